package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Logging   LoggingConfig
	Streamer  StreamerConfig
	Retention RetentionConfig
	Redis     RedisConfig
	OCR       OCRConfig
	Preview   PreviewConfig
	S3        S3Config
	NATS      NATSConfig
	Security  SecurityConfig
	Metrics   MetricsConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type LoggingConfig struct {
	Level string
}

type StreamerConfig struct {
	URL               string
	Timeout           time.Duration
	StatePollInterval time.Duration
}

type RetentionConfig struct {
	// Backend - memory или redis
	Backend string
	TTL     time.Duration
}

type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int
	Key          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type OCRConfig struct {
	Enabled       bool
	DefaultLangs  []string
	MaxConcurrent int
}

type PreviewConfig struct {
	Workers int
}

type S3Config struct {
	Enabled         bool
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	KeyPrefix       string
	URLMode         string
	PresignedTTL    time.Duration
}

type NATSConfig struct {
	Enabled bool
	URL     string
	Stream  string
}

type SecurityConfig struct {
	AllowedOrigins []string
	AuthEnabled    bool
	AuthToken      string
	RateLimitRPS   float64
	RateLimitBurst int
	// TrustedProxies - адреса и CIDR прокси, чьим X-Forwarded-For можно верить
	TrustedProxies []string
}

type MetricsConfig struct {
	Enabled bool
}

const (
	RetentionMemory = "memory"
	RetentionRedis  = "redis"
)

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	p := &parser{}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     p.duration("SERVER_READ_TIMEOUT", "10s"),
			WriteTimeout:    p.duration("SERVER_WRITE_TIMEOUT", "30s"),
			IdleTimeout:     p.duration("SERVER_IDLE_TIMEOUT", "60s"),
			ShutdownTimeout: p.duration("SERVER_SHUTDOWN_TIMEOUT", "30s"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Streamer: StreamerConfig{
			URL:               getEnv("STREAMER_URL", "unix:///run/kvmd/ustreamer.sock"),
			Timeout:           p.duration("STREAMER_TIMEOUT", "10s"),
			StatePollInterval: p.duration("STATE_POLL_INTERVAL", "1s"),
		},
		Retention: RetentionConfig{
			Backend: strings.ToLower(getEnv("RETENTION_BACKEND", RetentionMemory)),
			TTL:     p.duration("RETENTION_TTL", "0s"),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           p.int("REDIS_DB", "0"),
			Key:          getEnv("REDIS_KEY", "streamer:snapshot:saved"),
			PoolSize:     p.int("REDIS_POOL_SIZE", "10"),
			MinIdleConns: p.int("REDIS_MIN_IDLE_CONNS", "1"),
			DialTimeout:  p.duration("REDIS_DIAL_TIMEOUT", "5s"),
			ReadTimeout:  p.duration("REDIS_READ_TIMEOUT", "3s"),
			WriteTimeout: p.duration("REDIS_WRITE_TIMEOUT", "3s"),
		},
		OCR: OCRConfig{
			Enabled:       p.bool("OCR_ENABLED", false),
			DefaultLangs:  splitCSV(getEnv("OCR_DEFAULT_LANGS", "eng")),
			MaxConcurrent: p.int("OCR_MAX_CONCURRENT", "1"),
		},
		Preview: PreviewConfig{
			Workers: p.int("PREVIEW_WORKERS", "0"),
		},
		S3: S3Config{
			Enabled:         p.bool("S3_ENABLED", false),
			Bucket:          getEnv("S3_BUCKET", ""),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			UsePathStyle:    p.bool("S3_USE_PATH_STYLE", false),
			KeyPrefix:       getEnv("S3_KEY_PREFIX", "snapshots"),
			URLMode:         getEnv("S3_URL_MODE", "presigned"),
			PresignedTTL:    p.duration("S3_PRESIGNED_TTL", "15m"),
		},
		NATS: NATSConfig{
			Enabled: p.bool("NATS_ENABLED", false),
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
			Stream:  getEnv("NATS_STREAM", "STREAMER"),
		},
		Security: SecurityConfig{
			AllowedOrigins: splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:8080,http://127.0.0.1:8080")),
			AuthEnabled:    p.bool("AUTH_ENABLED", false),
			AuthToken:      getEnv("AUTH_BEARER_TOKEN", ""),
			RateLimitRPS:   p.float("RATE_LIMIT_RPS", "0"),
			RateLimitBurst: p.int("RATE_LIMIT_BURST", "10"),
			TrustedProxies: splitCSV(getEnv("RATE_LIMIT_TRUSTED_PROXIES", "")),
		},
		Metrics: MetricsConfig{
			Enabled: p.bool("METRICS_ENABLED", true),
		},
	}

	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Security.AuthEnabled && c.Security.AuthToken == "" {
		return fmt.Errorf("AUTH_BEARER_TOKEN is required when AUTH_ENABLED=true")
	}
	if c.Retention.Backend != RetentionMemory && c.Retention.Backend != RetentionRedis {
		return fmt.Errorf("invalid RETENTION_BACKEND: %q (memory or redis)", c.Retention.Backend)
	}
	if c.Retention.TTL < 0 {
		return fmt.Errorf("invalid RETENTION_TTL: must not be negative")
	}
	if c.Streamer.StatePollInterval <= 0 {
		return fmt.Errorf("invalid STATE_POLL_INTERVAL: must be positive")
	}
	if c.S3.Enabled && c.S3.Bucket == "" {
		return fmt.Errorf("S3_BUCKET is required when S3_ENABLED=true")
	}
	if c.OCR.MaxConcurrent <= 0 {
		return fmt.Errorf("invalid OCR_MAX_CONCURRENT: must be positive")
	}
	if c.Security.RateLimitRPS < 0 {
		return fmt.Errorf("invalid RATE_LIMIT_RPS: must not be negative")
	}
	return nil
}

// parser запоминает первую ошибку разбора
type parser struct {
	err error
}

func (p *parser) fail(key, raw string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
}

func (p *parser) duration(key, defaultValue string) time.Duration {
	raw := getEnv(key, defaultValue)
	value, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(key, raw, err)
	}
	return value
}

func (p *parser) int(key, defaultValue string) int {
	raw := getEnv(key, defaultValue)
	value, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, raw, err)
	}
	return value
}

func (p *parser) float(key, defaultValue string) float64 {
	raw := getEnv(key, defaultValue)
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail(key, raw, err)
	}
	return value
}

func (p *parser) bool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(key, raw, err)
		return defaultValue
	}
	return value
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitCSV(raw string) []string {
	items := make([]string, 0)
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
