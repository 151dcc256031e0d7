package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Env != "production" {
		t.Errorf("expected env=production, got %s", cfg.Env)
	}
	if cfg.Demo() {
		t.Error("default config must not target demo")
	}

	if cfg.HTTP.TimeoutSec != 10 {
		t.Errorf("expected timeout 10s, got %d", cfg.HTTP.TimeoutSec)
	}
	if cfg.HTTP.MaxRetries != 3 {
		t.Errorf("expected 3 retries, got %d", cfg.HTTP.MaxRetries)
	}

	if cfg.Rate.RPS != 10.0 {
		t.Errorf("expected 10 rps, got %v", cfg.Rate.RPS)
	}
	if cfg.Rate.Burst != 20 {
		t.Errorf("expected burst 20, got %d", cfg.Rate.Burst)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("KALSHI_ENV", "demo")
	t.Setenv("KALSHI_API_KEY_ID", "11111111-2222-3333-4444-555555555555")
	t.Setenv("KALSHI_PRIVATE_KEY_PATH", "/secrets/kalshi.pem")
	t.Setenv("KALSHI_HTTP_MAX_RETRIES", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !cfg.Demo() {
		t.Errorf("expected demo env, got %s", cfg.Env)
	}
	if cfg.Auth.APIKeyID != "11111111-2222-3333-4444-555555555555" {
		t.Errorf("unexpected api key id: %s", cfg.Auth.APIKeyID)
	}
	if cfg.Auth.PrivateKeyPath != "/secrets/kalshi.pem" {
		t.Errorf("unexpected key path: %s", cfg.Auth.PrivateKeyPath)
	}
	if cfg.HTTP.MaxRetries != 5 {
		t.Errorf("expected 5 retries, got %d", cfg.HTTP.MaxRetries)
	}
}

func TestHTTPTimeout(t *testing.T) {
	h := HTTPConfig{TimeoutSec: 30}
	if h.Timeout().Seconds() != 30 {
		t.Errorf("unexpected timeout: %v", h.Timeout())
	}
}
