package gateway

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/clipr-io/clipr/internal/config"
	"github.com/clipr-io/clipr/internal/http/middleware"
	"github.com/clipr-io/clipr/internal/http/respond"
	"github.com/clipr-io/clipr/internal/ratelimit"
	"github.com/clipr-io/clipr/internal/token"
)

// RegisterRoutes attaches all gateway middleware and routes to the given
// Gin engine. The rate-window store is injected so deployments can choose
// between the in-process store and Redis.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Structured request logging
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Identity: verify bearer tokens, reject invalid ones
//  8. Rate limiter (per verified user, else per client IP)
//  9. CORS and security headers
func RegisterRoutes(r *gin.Engine, cfg config.Config, store ratelimit.Store) error {
	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Bearer-token verification. Requests without a token proceed as
	// anonymous; requests with an invalid token stop here.
	verifier := token.NewVerifier(cfg.JWTSecret)
	r.Use(middleware.Identity(verifier))

	// 8) Windowed rate limiter keyed by identity
	limiter := ratelimit.New(store, ratelimit.Policy{
		Window:       cfg.Gateway.RateLimit.Window,
		MaxAuthed:    cfg.Gateway.RateLimit.MaxAuthed,
		MaxAnonymous: cfg.Gateway.RateLimit.MaxAnonymous,
	})
	r.Use(middleware.RateLimit(limiter))

	// 9) CORS posture (safe defaults: allow all if none configured)
	useCORS(r, cfg.CORS.AllowedOrigins)

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS: cfg.Security.EnableHSTS,
		HSTSMaxAge: cfg.Security.HSTSMaxAge,
	}))

	// Fallback for paths outside the two proxied prefixes
	r.NoRoute(func(c *gin.Context) {
		respond.Fail(c, http.StatusNotFound, fmt.Sprintf("Cannot %s %s", c.Request.Method, c.Request.URL.Path))
	})

	// Liveness/health (answered locally, never proxied)
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	authProxy, err := NewProxy(cfg.Gateway.AuthServiceURL, "/api/auth")
	if err != nil {
		return fmt.Errorf("auth upstream url: %w", err)
	}
	urlProxy, err := NewProxy(cfg.Gateway.URLServiceURL, "/api/urls")
	if err != nil {
		return fmt.Errorf("url upstream url: %w", err)
	}

	r.Any("/api/auth/*path", authProxy.Handler())
	r.Any("/api/urls/*path", urlProxy.Handler())
	return nil
}

// useCORS installs the CORS middleware. With no configured origins the
// gateway allows all origins without credentials; with an allowlist it
// echoes only matching origins.
func useCORS(r *gin.Engine, origins []string) {
	common := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		common.AllowAllOrigins = true
	} else {
		common.AllowOrigins = origins
	}
	r.Use(cors.New(common))
}

// limitBody caps the request body size for all endpoints using
// http.MaxBytesReader. Requests exceeding the cap cause downstream body
// reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
