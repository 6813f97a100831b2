// Package urlapi exposes the url service's HTTP surface: shortening,
// per-user listing, and the redirect endpoint. Identity arrives as the
// X-User-Id / X-User-Email headers injected by the gateway; this service
// never sees bearer tokens.
package urlapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/clipr-io/clipr/internal/http/respond"
	"github.com/clipr-io/clipr/internal/services"
)

// Gateway-injected identity headers.
const (
	headerUserID    = "X-User-Id"
	headerUserEmail = "X-User-Email"
)

var (
	linksCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clipr_links_created_total",
		Help: "Short links created.",
	})
	redirects = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clipr_redirects_total",
		Help: "Successful short-link redirects.",
	})
)

func init() {
	prometheus.MustRegister(linksCreated, redirects)
}

// Handler bundles the HTTP handlers for the url endpoints.
type Handler struct {
	URLs *services.URLService
}

// NewHandler constructs a Handler.
func NewHandler(urls *services.URLService) *Handler {
	return &Handler{URLs: urls}
}

type shortenRequest struct {
	OriginalURL string `json:"originalUrl"`
}

// Shorten handles POST /shorten. Anonymous callers may shorten; the link
// is owned by the gateway-verified user when the identity header is
// present.
func (h *Handler) Shorten(c *gin.Context) {
	var req shortenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Fail(c, http.StatusBadRequest, "Invalid request body.")
		return
	}

	link, err := h.URLs.Shorten(c.Request.Context(), req.OriginalURL, c.GetHeader(headerUserID))
	if err != nil {
		respond.Error(c, err)
		return
	}

	linksCreated.Inc()
	respond.OK(c, http.StatusCreated, "URL shortened successfully!", link)
}

// MyURLs handles GET /my-urls. Requires a gateway-verified identity.
func (h *Handler) MyURLs(c *gin.Context) {
	links, err := h.URLs.ListForUser(c.Request.Context(), c.GetHeader(headerUserID))
	if err != nil {
		respond.Error(c, err)
		return
	}
	respond.OK(c, http.StatusOK, "User URLs fetched successfully!", links)
}

// Redirect handles GET /:code. On a hit the click counter has already been
// incremented atomically by the time the 302 is written.
func (h *Handler) Redirect(c *gin.Context) {
	link, err := h.URLs.Resolve(c.Request.Context(), c.Param("code"))
	if err != nil {
		respond.Error(c, err)
		return
	}

	redirects.Inc()
	c.Redirect(http.StatusFound, link.OriginalURL)
}
