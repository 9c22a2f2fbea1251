package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level info, got %s", cfg.LogLevel)
	}
	if cfg.ClaimsBasePrice != 79 {
		t.Errorf("expected claims base price 79, got %d", cfg.ClaimsBasePrice)
	}
	if cfg.ParkingBasePrice != 49 {
		t.Errorf("expected parking base price 49, got %d", cfg.ParkingBasePrice)
	}
	if cfg.SessionCacheTTL != 24*time.Hour {
		t.Errorf("expected 24h session cache TTL, got %s", cfg.SessionCacheTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("CLAIMS_BASE_PRICE", "120")
	t.Setenv("LLM_STREAM_TIMEOUT", "30s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg := Load()

	if cfg.Port != "9999" {
		t.Errorf("expected port override, got %s", cfg.Port)
	}
	if cfg.ClaimsBasePrice != 120 {
		t.Errorf("expected claims base price 120, got %d", cfg.ClaimsBasePrice)
	}
	if cfg.StreamTimeout != 30*time.Second {
		t.Errorf("expected 30s stream timeout, got %s", cfg.StreamTimeout)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Errorf("unexpected cors origins: %#v", cfg.CORSAllowedOrigins)
	}
}

func TestGetEnvAsIntIgnoresGarbage(t *testing.T) {
	t.Setenv("UPLOAD_MAX_BYTES", "not-a-number")
	cfg := Load()
	if cfg.UploadMaxBytes != 10<<20 {
		t.Errorf("expected default upload max bytes, got %d", cfg.UploadMaxBytes)
	}
}
