package authapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"gorm.io/gorm"

	"github.com/clipr-io/clipr/internal/config"
	"github.com/clipr-io/clipr/internal/domain"
	"github.com/clipr-io/clipr/internal/http/middleware"
	"github.com/clipr-io/clipr/internal/http/respond"
	"github.com/clipr-io/clipr/internal/repo"
	"github.com/clipr-io/clipr/internal/services"
)

// userRepoShim adapts the repository free functions to the
// services.UserRepo interface. This keeps services decoupled from the
// concrete repo package while reusing existing functions.
type userRepoShim struct{}

func (userRepoShim) CreateUser(ctx context.Context, db *gorm.DB, name, email, passwordHash, googleID string) (*domain.User, error) {
	return repo.CreateUser(ctx, db, name, email, passwordHash, googleID)
}

func (userRepoShim) GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	return repo.GetUserByEmail(ctx, db, email)
}

func (userRepoShim) GetUserByGoogleID(ctx context.Context, db *gorm.DB, googleID string) (*domain.User, error) {
	return repo.GetUserByGoogleID(ctx, db, googleID)
}

func (userRepoShim) LinkGoogleID(ctx context.Context, db *gorm.DB, userID, googleID string) error {
	return repo.LinkGoogleID(ctx, db, userID, googleID)
}

func (userRepoShim) IsDuplicate(err error) bool { return repo.IsDuplicate(err) }
func (userRepoShim) IsNotFound(err error) bool  { return repo.IsNotFound(err) }

// RegisterRoutes attaches all middleware and endpoints for the auth
// service. Credential endpoints sit behind a small per-IP throttle so a
// single host cannot brute-force passwords even inside the gateway's
// generous window.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.Metrics())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	svc := services.NewAuthService(db, userRepoShim{}, cfg.JWTSecret, cfg.Auth.TokenTTL, googleOAuthConfig(cfg))
	h := NewHandler(svc, cfg.Auth.WebAppURL)

	throttle := middleware.NewThrottle(cfg.Auth.LoginRPS, cfg.Auth.LoginBurst)

	r.POST("/register", throttle.Handler(), h.Register)
	r.POST("/login", throttle.Handler(), h.Login)
	r.GET("/google", h.GoogleRedirect)
	r.GET("/google/callback", h.GoogleCallback)

	r.NoRoute(func(c *gin.Context) {
		respond.Fail(c, http.StatusNotFound, fmt.Sprintf("Cannot %s %s", c.Request.Method, c.Request.URL.Path))
	})
}

// googleOAuthConfig builds the oauth2 config, or nil when no client id is
// configured.
func googleOAuthConfig(cfg config.Config) *oauth2.Config {
	g := cfg.Auth.GoogleOAuth
	if g.ClientID == "" {
		return nil
	}
	return &oauth2.Config{
		ClientID:     g.ClientID,
		ClientSecret: g.ClientSecret,
		RedirectURL:  g.CallbackURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
	}
}
