package urlapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/clipr-io/clipr/internal/config"
	"github.com/clipr-io/clipr/internal/domain"
	"github.com/clipr-io/clipr/internal/http/middleware"
	"github.com/clipr-io/clipr/internal/http/respond"
	"github.com/clipr-io/clipr/internal/repo"
	"github.com/clipr-io/clipr/internal/services"
)

// linkRepoShim adapts the repository free functions to the
// services.LinkRepo interface. This keeps services decoupled from the
// concrete repo package while reusing existing functions.
type linkRepoShim struct{}

func (linkRepoShim) CreateShortLink(ctx context.Context, db *gorm.DB, originalURL, code, userID string) (*domain.ShortLink, error) {
	return repo.CreateShortLink(ctx, db, originalURL, code, userID)
}

func (linkRepoShim) CodeExists(ctx context.Context, db *gorm.DB, code string) (bool, error) {
	return repo.CodeExists(ctx, db, code)
}

func (linkRepoShim) ResolveAndCount(ctx context.Context, db *gorm.DB, code string) (*domain.ShortLink, error) {
	return repo.ResolveAndCount(ctx, db, code)
}

func (linkRepoShim) ListByUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.ShortLink, error) {
	return repo.ListByUser(ctx, db, userID)
}

func (linkRepoShim) IsDuplicate(err error) bool { return repo.IsDuplicate(err) }
func (linkRepoShim) IsNotFound(err error) bool  { return repo.IsNotFound(err) }

// RegisterRoutes attaches all middleware and endpoints for the url
// service. Responses are gzip-compressed; link listings benefit the most.
//
// Route order matters: the fixed paths are registered before the catch-all
// /:code so "shorten" or "health" are never treated as short codes. Codes
// are seven characters from a 62-symbol alphabet, so no legitimate code
// collides with a fixed route either way.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.Metrics())
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	svc := services.NewURLService(db, linkRepoShim{})
	h := NewHandler(svc)

	r.POST("/shorten", h.Shorten)
	r.GET("/my-urls", h.MyURLs)
	r.GET("/:code", h.Redirect)

	r.NoRoute(func(c *gin.Context) {
		respond.Fail(c, http.StatusNotFound, fmt.Sprintf("Cannot %s %s", c.Request.Method, c.Request.URL.Path))
	})
}
