package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dreschagin/kvm-streamer-api/internal/domain/entity"
)

const defaultKey = "streamer:snapshot:saved"

// Options configures the Redis connection.
type Options struct {
	Host         string
	Port         string
	Password     string
	DB           int
	Key          string
	TTL          time.Duration
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Retention stores the saved snapshot in Redis so it survives restarts
// and is shared between API replicas.
type Retention struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRetention creates a Redis backed retention and checks the connection.
func NewRetention(opts Options) (*Retention, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", opts.Host, opts.Port),
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     opts.PoolSize,
		MinIdleConns: opts.MinIdleConns,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		MaxRetries:   3,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	key := opts.Key
	if key == "" {
		key = defaultKey
	}

	return &Retention{
		client: client,
		key:    key,
		ttl:    opts.TTL,
	}, nil
}

type snapshotRecord struct {
	Online     bool            `json:"online"`
	Width      int             `json:"width"`
	Height     int             `json:"height"`
	Headers    []entity.Header `json:"headers"`
	Data       []byte          `json:"data"`
	CapturedAt time.Time       `json:"captured_at"`
}

func encodeSnapshot(snapshot *entity.Snapshot) ([]byte, error) {
	return json.Marshal(snapshotRecord{
		Online:     snapshot.Online(),
		Width:      snapshot.Width(),
		Height:     snapshot.Height(),
		Headers:    snapshot.Headers(),
		Data:       snapshot.Data(),
		CapturedAt: snapshot.CapturedAt(),
	})
}

func decodeSnapshot(raw []byte) (*entity.Snapshot, error) {
	var record snapshotRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal saved snapshot: %w", err)
	}
	return entity.NewSnapshot(record.Online, record.Width, record.Height, record.Headers, record.Data, record.CapturedAt)
}

// Save replaces the saved snapshot. Zero TTL keeps it until removal.
func (r *Retention) Save(ctx context.Context, snapshot *entity.Snapshot) error {
	data, err := encodeSnapshot(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := r.client.Set(ctx, r.key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Load returns the saved snapshot or nil when the key is missing.
func (r *Retention) Load(ctx context.Context) (*entity.Snapshot, error) {
	raw, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return decodeSnapshot(raw)
}

func (r *Retention) Remove(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("failed to remove snapshot: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (r *Retention) Close() error {
	return r.client.Close()
}
