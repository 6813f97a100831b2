// Error-kind serialization. Every stage of the pipeline fails fast with a
// service-level sentinel; this file is the one place that turns a sentinel
// into an HTTP status and envelope message. Handlers call Error instead of
// choosing status codes themselves.
package respond

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clipr-io/clipr/internal/services"
	"github.com/clipr-io/clipr/internal/token"
)

// Error maps err to its transport status and writes the failure envelope.
//
// Mapping:
//   - ValidationError                → 400
//   - services.ErrInvalidCredentials → 401
//   - services.ErrAuthRequired       → 401
//   - token.ErrInvalidToken          → 403
//   - services.ErrLinkNotFound       → 404
//   - services.ErrUserNotFound       → 404
//   - services.ErrEmailTaken         → 409
//   - services.ErrCodeExhausted      → 503
//   - anything else                  → 500 with a generic message
func Error(c *gin.Context, err error) {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		Fail(c, http.StatusBadRequest, ve.Msg)
	case errors.Is(err, services.ErrInvalidCredentials):
		Fail(c, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, services.ErrAuthRequired):
		Fail(c, http.StatusUnauthorized, "Authentication required to view your URLs.")
	case errors.Is(err, token.ErrInvalidToken):
		Fail(c, http.StatusForbidden, "Invalid or expired token.")
	case errors.Is(err, services.ErrLinkNotFound):
		Fail(c, http.StatusNotFound, "Short URL not found.")
	case errors.Is(err, services.ErrUserNotFound):
		Fail(c, http.StatusNotFound, "User not found.")
	case errors.Is(err, services.ErrEmailTaken):
		Fail(c, http.StatusConflict, "User with this email already exists.")
	case errors.Is(err, services.ErrCodeExhausted):
		Fail(c, http.StatusServiceUnavailable, "Could not allocate a short code, please retry.")
	default:
		FailDetail(c, http.StatusInternalServerError, "Something went wrong. Please try again later.", err.Error())
	}
}
