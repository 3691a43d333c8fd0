package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Fatalf("unexpected port: %s", cfg.Server.Port)
	}
	if cfg.Retention.Backend != RetentionMemory || cfg.Retention.TTL != 0 {
		t.Fatalf("unexpected retention: %+v", cfg.Retention)
	}
	if cfg.Streamer.StatePollInterval != time.Second {
		t.Fatalf("unexpected poll interval: %v", cfg.Streamer.StatePollInterval)
	}
	if cfg.OCR.Enabled || len(cfg.OCR.DefaultLangs) != 1 || cfg.OCR.DefaultLangs[0] != "eng" {
		t.Fatalf("unexpected OCR config: %+v", cfg.OCR)
	}
	if !cfg.Metrics.Enabled {
		t.Fatalf("metrics must be enabled by default")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STREAMER_URL", "http://127.0.0.1:8081")
	t.Setenv("RETENTION_BACKEND", "Redis")
	t.Setenv("RETENTION_TTL", "1h")
	t.Setenv("OCR_ENABLED", "true")
	t.Setenv("OCR_DEFAULT_LANGS", "eng, rus")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("RATE_LIMIT_TRUSTED_PROXIES", "127.0.0.1, 10.0.0.0/8")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Streamer.URL != "http://127.0.0.1:8081" {
		t.Fatalf("unexpected streamer url: %s", cfg.Streamer.URL)
	}
	if cfg.Retention.Backend != RetentionRedis || cfg.Retention.TTL != time.Hour {
		t.Fatalf("unexpected retention: %+v", cfg.Retention)
	}
	if strings.Join(cfg.OCR.DefaultLangs, ",") != "eng,rus" {
		t.Fatalf("unexpected langs: %v", cfg.OCR.DefaultLangs)
	}
	if cfg.Security.RateLimitRPS != 2.5 {
		t.Fatalf("unexpected rps: %v", cfg.Security.RateLimitRPS)
	}
	if strings.Join(cfg.Security.TrustedProxies, ",") != "127.0.0.1,10.0.0.0/8" {
		t.Fatalf("unexpected trusted proxies: %v", cfg.Security.TrustedProxies)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{name: "bad duration", env: map[string]string{"STREAMER_TIMEOUT": "soon"}, wantErr: "STREAMER_TIMEOUT"},
		{name: "bad bool", env: map[string]string{"OCR_ENABLED": "maybe"}, wantErr: "OCR_ENABLED"},
		{name: "bad backend", env: map[string]string{"RETENTION_BACKEND": "disk"}, wantErr: "RETENTION_BACKEND"},
		{name: "auth without token", env: map[string]string{"AUTH_ENABLED": "true"}, wantErr: "AUTH_BEARER_TOKEN"},
		{name: "s3 without bucket", env: map[string]string{"S3_ENABLED": "true"}, wantErr: "S3_BUCKET"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for key, value := range tc.env {
				t.Setenv(key, value)
			}

			_, err := Load()
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %q", tc.wantErr, err.Error())
			}
		})
	}
}
