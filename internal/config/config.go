// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes settings for all
// three services (gateway, auth, url) such as server timeouts, logging,
// database paths, backend addresses, rate limiting, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "clipr-gateway")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// RateLimitConfig defines the gateway admission-control policy: one fixed
// window with separate ceilings for authenticated and anonymous callers.
type RateLimitConfig struct {
	Window        time.Duration // RATE_WINDOW, e.g. 15m
	MaxAuthed     int           // RATE_MAX_AUTHENTICATED per window
	MaxAnonymous  int           // RATE_MAX_ANONYMOUS per window
	RedisAddr     string        // RATE_REDIS_ADDR; empty = in-memory store
	RedisPassword string        // RATE_REDIS_PASSWORD
}

// GatewayConfig holds the settings only the gateway cares about: the
// backend base addresses it proxies to and the admission-control policy.
type GatewayConfig struct {
	AuthServiceURL string // AUTH_SERVICE_URL
	URLServiceURL  string // URL_SERVICE_URL
	RateLimit      RateLimitConfig
}

// GoogleOAuthConfig holds the Google federation settings for the auth
// service. The flow is disabled when ClientID is empty.
type GoogleOAuthConfig struct {
	ClientID     string // GOOGLE_CLIENT_ID
	ClientSecret string // GOOGLE_CLIENT_SECRET
	CallbackURL  string // GOOGLE_CALLBACK_URL
}

// AuthConfig holds auth-service settings.
type AuthConfig struct {
	DBPath      string        // AUTH_DB_PATH
	TokenTTL    time.Duration // TOKEN_TTL (JWT lifetime)
	WebAppURL   string        // WEB_APP_URL (OAuth redirect target)
	LoginRPS    float64       // LOGIN_RATE_RPS credential-endpoint throttle
	LoginBurst  int           // LOGIN_RATE_BURST
	GoogleOAuth GoogleOAuthConfig
}

// URLConfig holds url-service settings.
type URLConfig struct {
	DBPath string // URL_DB_PATH
}

// Config holds all configuration values for the application. Each binary
// reads only the sections it needs; the others keep their defaults.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev
	AppEnv    string // development|production; gates error detail in envelopes

	// Token verification (secret shared by the gateway and the auth service)
	JWTSecret string // JWT_SECRET

	// Services
	Gateway GatewayConfig
	Auth    AuthConfig
	URL     URLConfig

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),
		AppEnv:    strings.ToLower(getenv("APP_ENV", "development")),

		JWTSecret: getenv("JWT_SECRET", "supersecretjwtkeythatshouldbechangedinproduction"),

		Gateway: GatewayConfig{
			AuthServiceURL: getenv("AUTH_SERVICE_URL", "http://localhost:5001"),
			URLServiceURL:  getenv("URL_SERVICE_URL", "http://localhost:5002"),
			RateLimit: RateLimitConfig{
				Window:        getdur("RATE_WINDOW", 15*time.Minute),
				MaxAuthed:     getint("RATE_MAX_AUTHENTICATED", 1000),
				MaxAnonymous:  getint("RATE_MAX_ANONYMOUS", 100),
				RedisAddr:     getenv("RATE_REDIS_ADDR", ""),
				RedisPassword: getenv("RATE_REDIS_PASSWORD", ""),
			},
		},

		Auth: AuthConfig{
			DBPath:     getenv("AUTH_DB_PATH", "auth.db"),
			TokenTTL:   getdur("TOKEN_TTL", time.Hour),
			WebAppURL:  getenv("WEB_APP_URL", "http://localhost:3000"),
			LoginRPS:   getfloat("LOGIN_RATE_RPS", 1.0),
			LoginBurst: getint("LOGIN_RATE_BURST", 5),
			GoogleOAuth: GoogleOAuthConfig{
				ClientID:     getenv("GOOGLE_CLIENT_ID", ""),
				ClientSecret: getenv("GOOGLE_CLIENT_SECRET", ""),
				CallbackURL:  getenv("GOOGLE_CALLBACK_URL", ""),
			},
		},

		URL: URLConfig{
			DBPath: getenv("URL_DB_PATH", "urls.db"),
		},

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "clipr"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	switch cfg.AppEnv {
	case "development", "production":
	default:
		cfg.AppEnv = "development"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return cfg, errors.New("JWT_SECRET must not be empty")
	}
	if strings.TrimSpace(cfg.Gateway.AuthServiceURL) == "" || strings.TrimSpace(cfg.Gateway.URLServiceURL) == "" {
		return cfg, errors.New("AUTH_SERVICE_URL and URL_SERVICE_URL must not be empty")
	}
	if cfg.Gateway.RateLimit.Window <= 0 {
		return cfg, errors.New("RATE_WINDOW must be > 0")
	}
	if cfg.Gateway.RateLimit.MaxAuthed < 1 || cfg.Gateway.RateLimit.MaxAnonymous < 1 {
		return cfg, errors.New("rate-limit ceilings must be >= 1")
	}
	if strings.TrimSpace(cfg.Auth.DBPath) == "" || strings.TrimSpace(cfg.URL.DBPath) == "" {
		return cfg, errors.New("AUTH_DB_PATH and URL_DB_PATH must not be empty")
	}
	if cfg.Auth.TokenTTL <= 0 {
		return cfg, errors.New("TOKEN_TTL must be > 0")
	}
	if cfg.Auth.LoginRPS < 0 {
		return cfg, errors.New("LOGIN_RATE_RPS must be >= 0")
	}
	if cfg.Auth.LoginBurst < 1 {
		return cfg, errors.New("LOGIN_RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// IsProduction reports whether the process runs with APP_ENV=production.
// Error envelopes include internal detail only when this is false.
func (c Config) IsProduction() bool { return c.AppEnv == "production" }

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
