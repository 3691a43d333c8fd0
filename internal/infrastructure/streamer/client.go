package streamer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dreschagin/kvm-streamer-api/internal/application/port"
	"github.com/dreschagin/kvm-streamer-api/internal/domain/entity"
	"github.com/dreschagin/kvm-streamer-api/pkg/logger"
)

// Upstream snapshot headers, in the order they are exposed to clients.
const (
	HeaderOnline    = "X-UStreamer-Online"
	HeaderWidth     = "X-UStreamer-Width"
	HeaderHeight    = "X-UStreamer-Height"
	HeaderQuality   = "X-UStreamer-Quality"
	HeaderTimestamp = "X-Timestamp"
)

const maxSnapshotSize = 32 << 20

// Options configures the streamer client.
type Options struct {
	// URL is http://host:port or unix:///path/to/socket
	URL     string
	Timeout time.Duration
}

// Client talks to the video streamer over HTTP and keeps the saved frame in a retention backend.
type Client struct {
	http      *http.Client
	baseURL   string
	retention port.SnapshotRetention
	maxFrame  int64
	logger    *logger.Logger
}

// NewClient creates a streamer client.
func NewClient(opts Options, retention port.SnapshotRetention, log *logger.Logger) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	baseURL := strings.TrimRight(opts.URL, "/")

	if socket, ok := strings.CutPrefix(opts.URL, "unix://"); ok {
		if socket == "" {
			return nil, errors.New("empty streamer unix socket path")
		}
		dialer := &net.Dialer{}
		transport.DialContext = func(ctx context.Context, _, _ string) (net.Conn, error) {
			return dialer.DialContext(ctx, "unix", socket)
		}
		baseURL = "http://localhost"
	} else {
		parsed, err := url.Parse(opts.URL)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return nil, fmt.Errorf("invalid streamer URL %q", opts.URL)
		}
	}

	return &Client{
		http: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		baseURL:   baseURL,
		retention: retention,
		maxFrame:  maxSnapshotSize,
		logger:    log.With("component", "streamer"),
	}, nil
}

// GetState returns the upstream state and the headers of the saved frame.
// An unreachable streamer is reported as a null state.
func (c *Client) GetState(ctx context.Context) (map[string]interface{}, error) {
	streamerState, err := c.fetchState(ctx)
	if err != nil {
		return nil, err
	}

	var saved interface{}
	snapshot, err := c.retention.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load saved snapshot: %w", err)
	}
	if snapshot != nil {
		saved = snapshot.HeadersMap()
	}

	return map[string]interface{}{
		"streamer": streamerState,
		"snapshot": map[string]interface{}{
			"saved": saved,
		},
	}, nil
}

func (c *Client) fetchState(ctx context.Context) (interface{}, error) {
	resp, err := c.get(ctx, "/state")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Debug("Streamer is unreachable", "error", err.Error())
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Unexpected streamer state status", "status", resp.StatusCode)
		return nil, nil
	}

	var payload map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode streamer state: %w", err)
	}

	// ustreamer wraps its state into {"ok": true, "result": {...}}
	if result, ok := payload["result"]; ok {
		if _, wrapped := payload["ok"]; wrapped {
			return result, nil
		}
	}
	return payload, nil
}

// TakeSnapshot returns the saved frame when load is set, otherwise fetches a new one.
// A nil snapshot without error means there is nothing to return.
func (c *Client) TakeSnapshot(ctx context.Context, save, load, allowOffline bool) (*entity.Snapshot, error) {
	if load {
		return c.retention.Load(ctx)
	}

	resp, err := c.get(ctx, "/snapshot")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Warn("Failed to reach streamer for snapshot", "error", err.Error())
		return nil, nil
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusServiceUnavailable:
		c.logger.Debug("Streamer has no frame yet")
		return nil, nil
	default:
		return nil, fmt.Errorf("unexpected snapshot status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxFrame+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if int64(len(data)) > c.maxFrame {
		return nil, fmt.Errorf("snapshot exceeds %d bytes", c.maxFrame)
	}

	online := strings.EqualFold(strings.TrimSpace(resp.Header.Get(HeaderOnline)), "true")
	if !online && !allowOffline {
		c.logger.Debug("Streamer is offline, snapshot skipped")
		return nil, nil
	}

	snapshot, err := buildSnapshot(resp.Header, online, data)
	if err != nil {
		return nil, err
	}

	if save {
		if err := c.retention.Save(ctx, snapshot); err != nil {
			c.logger.Warn("Failed to retain snapshot", "error", err.Error())
		}
	}
	return snapshot, nil
}

// RemoveSnapshot drops the saved frame.
func (c *Client) RemoveSnapshot(ctx context.Context) {
	if err := c.retention.Remove(ctx); err != nil {
		c.logger.Warn("Failed to remove saved snapshot", "error", err.Error())
	}
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return c.http.Do(req)
}

func buildSnapshot(header http.Header, online bool, data []byte) (*entity.Snapshot, error) {
	width, err := headerInt(header, HeaderWidth)
	if err != nil {
		return nil, err
	}
	height, err := headerInt(header, HeaderHeight)
	if err != nil {
		return nil, err
	}

	if width == 0 || height == 0 {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to read snapshot dimensions: %w", err)
		}
		width, height = cfg.Width, cfg.Height
	}

	headers := []entity.Header{
		{Name: HeaderOnline, Value: strconv.FormatBool(online)},
		{Name: HeaderWidth, Value: strconv.Itoa(width)},
		{Name: HeaderHeight, Value: strconv.Itoa(height)},
	}
	if quality := header.Get(HeaderQuality); quality != "" {
		headers = append(headers, entity.Header{Name: HeaderQuality, Value: quality})
	}

	capturedAt := time.Now().UTC()
	if ts := header.Get(HeaderTimestamp); ts != "" {
		headers = append(headers, entity.Header{Name: HeaderTimestamp, Value: ts})
		if seconds, err := strconv.ParseFloat(ts, 64); err == nil && seconds > 0 {
			whole, frac := math.Modf(seconds)
			capturedAt = time.Unix(int64(whole), int64(frac*1e9)).UTC()
		}
	}

	return entity.NewSnapshot(online, width, height, headers, data, capturedAt)
}

func headerInt(header http.Header, name string) (int, error) {
	raw := strings.TrimSpace(header.Get(name))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("malformed %s header %q", name, raw)
	}
	return value, nil
}
