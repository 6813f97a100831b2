package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load with defaults: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.GinMode != "release" {
		t.Errorf("GinMode = %q, want release", cfg.GinMode)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.Gateway.RateLimit.Window != 15*time.Minute {
		t.Errorf("RateLimit.Window = %v, want 15m", cfg.Gateway.RateLimit.Window)
	}
	if cfg.Gateway.RateLimit.MaxAuthed != 1000 || cfg.Gateway.RateLimit.MaxAnonymous != 100 {
		t.Errorf("ceilings = %d/%d, want 1000/100",
			cfg.Gateway.RateLimit.MaxAuthed, cfg.Gateway.RateLimit.MaxAnonymous)
	}
	if cfg.Auth.TokenTTL != time.Hour {
		t.Errorf("TokenTTL = %v, want 1h", cfg.Auth.TokenTTL)
	}
	if cfg.IsProduction() {
		t.Error("default env must not be production")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("RATE_WINDOW", "1m")
	t.Setenv("RATE_MAX_ANONYMOUS", "7")
	t.Setenv("APP_ENV", "production")
	t.Setenv("LOG_LEVEL", "warning")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9999" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.Gateway.RateLimit.Window != time.Minute {
		t.Errorf("Window = %v", cfg.Gateway.RateLimit.Window)
	}
	if cfg.Gateway.RateLimit.MaxAnonymous != 7 {
		t.Errorf("MaxAnonymous = %d", cfg.Gateway.RateLimit.MaxAnonymous)
	}
	if !cfg.IsProduction() {
		t.Error("APP_ENV=production not honored")
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn (normalized)", cfg.LogLevel)
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[0] != want[0] || cfg.CORS.AllowedOrigins[1] != want[1] {
		t.Errorf("AllowedOrigins = %v, want %v", cfg.CORS.AllowedOrigins, want)
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"bad log level", "LOG_LEVEL", "loud"},
		{"zero window", "RATE_WINDOW", "0s"},
		{"zero ceiling", "RATE_MAX_ANONYMOUS", "0"},
		{"zero ttl", "TOKEN_TTL", "0s"},
		{"zero burst", "LOGIN_RATE_BURST", "0"},
		{"bad sample ratio", "OTEL_TRACES_SAMPLER_ARG", "1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load with %s=%s succeeded, want error", tt.key, tt.value)
			}
		})
	}
}

func TestLoad_UnknownGinModeFallsBack(t *testing.T) {
	t.Setenv("GIN_MODE", "verbose")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GinMode != "release" {
		t.Errorf("GinMode = %q, want release", cfg.GinMode)
	}
}
