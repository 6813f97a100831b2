// Command gateway runs the public edge: token verification, rate limiting,
// and proxying to the auth and url backends.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/clipr-io/clipr/internal/config"
	"github.com/clipr-io/clipr/internal/gateway"
	"github.com/clipr-io/clipr/internal/http/respond"
	"github.com/clipr-io/clipr/internal/observability"
	"github.com/clipr-io/clipr/internal/ratelimit"
	"github.com/clipr-io/clipr/internal/sysutil"
)

var version = "dev"

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	respond.SetVerbose(!cfg.IsProduction())
	gin.SetMode(cfg.GinMode)

	shutdownOTel, err := observability.SetupOTel(context.Background(), cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownOTel(ctx)
	}()

	// Rate windows live in Redis when configured, so replicas share one
	// ledger; otherwise each replica counts on its own.
	var store ratelimit.Store
	if addr := cfg.Gateway.RateLimit.RedisAddr; addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.Gateway.RateLimit.RedisPassword,
		})
		defer rdb.Close()
		store = ratelimit.NewRedisStore(rdb)
		log.Info().Str("addr", addr).Msg("rate windows backed by redis")
	} else {
		store = ratelimit.NewMemoryStore()
	}

	r := gin.New()
	if err := gateway.RegisterRoutes(r, cfg, store); err != nil {
		log.Fatal().Err(err).Msg("gateway route setup failed")
	}

	runServer(r, cfg, "gateway")
}

// runServer starts the HTTP server and blocks until SIGINT/SIGTERM, then
// drains in-flight requests before returning.
func runServer(h http.Handler, cfg config.Config, name string) {
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("service", name).Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info().Str("service", name).Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown incomplete")
	}
}
