// Package authapi exposes the auth service's HTTP surface: registration,
// credential login, and the Google OAuth flow. All success and error bodies
// use the shared response envelope.
package authapi

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clipr-io/clipr/internal/http/middleware"
	"github.com/clipr-io/clipr/internal/http/respond"
	"github.com/clipr-io/clipr/internal/services"
)

// stateCookie carries the OAuth anti-forgery state between the consent
// redirect and the callback.
const (
	stateCookie       = "oauth_state"
	stateCookieMaxAge = 600 // seconds
)

// Handler bundles the HTTP handlers for the auth endpoints.
type Handler struct {
	Auth *services.AuthService
	// WebAppURL is where the Google callback lands the browser afterwards.
	WebAppURL string
}

// NewHandler constructs a Handler.
func NewHandler(auth *services.AuthService, webAppURL string) *Handler {
	return &Handler{Auth: auth, WebAppURL: webAppURL}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /register.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Fail(c, http.StatusBadRequest, "Invalid request body.")
		return
	}

	u, err := h.Auth.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respond.Error(c, err)
		return
	}

	respond.OK(c, http.StatusCreated, "User registered successfully!", gin.H{
		"id":    u.ID,
		"name":  u.Name,
		"email": u.Email,
	})
}

// Login handles POST /login. The response carries the user together with a
// bearer token for subsequent gateway requests.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Fail(c, http.StatusBadRequest, "Invalid request body.")
		return
	}

	u, tok, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respond.Error(c, err)
		return
	}

	respond.OK(c, http.StatusOK, "Logged in successfully!", gin.H{
		"user":  u,
		"token": tok,
	})
}

// GoogleRedirect handles GET /google: sets the anti-forgery state cookie
// and sends the browser to the Google consent screen.
func (h *Handler) GoogleRedirect(c *gin.Context) {
	if !h.Auth.GoogleEnabled() {
		respond.Fail(c, http.StatusServiceUnavailable, "Google sign-in is not configured.")
		return
	}

	state := uuid.NewString()
	c.SetCookie(stateCookie, state, stateCookieMaxAge, "/", "", false, true)
	c.Redirect(http.StatusFound, h.Auth.GoogleAuthURL(state))
}

// GoogleCallback handles GET /google/callback: validates the state, trades
// the code for a profile, finds or creates the account, and lands the
// browser back on the web app with a token in the query string. Failures
// land on the web app with an error marker instead of a JSON body, since
// the caller here is a browser mid-redirect.
func (h *Handler) GoogleCallback(c *gin.Context) {
	if !h.Auth.GoogleEnabled() {
		respond.Fail(c, http.StatusServiceUnavailable, "Google sign-in is not configured.")
		return
	}

	want, err := c.Cookie(stateCookie)
	if err != nil || want == "" || c.Query("state") != want {
		c.Redirect(http.StatusFound, h.webAppErrorURL("invalid_state"))
		return
	}
	c.SetCookie(stateCookie, "", -1, "/", "", false, true)

	code := c.Query("code")
	if code == "" {
		c.Redirect(http.StatusFound, h.webAppErrorURL("missing_code"))
		return
	}

	_, tok, err := h.Auth.GoogleCallback(c.Request.Context(), code)
	if err != nil {
		middleware.LoggerFrom(c).Error().Err(err).Msg("google sign-in failed")
		c.Redirect(http.StatusFound, h.webAppErrorURL("google_auth_failed"))
		return
	}

	c.Redirect(http.StatusFound, h.WebAppURL+"?token="+url.QueryEscape(tok))
}

func (h *Handler) webAppErrorURL(code string) string {
	return h.WebAppURL + "?error=" + url.QueryEscape(code)
}
