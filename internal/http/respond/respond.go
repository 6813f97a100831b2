// Package respond implements the standard response envelope returned by all
// JSON endpoints, plus the single mapping from internal error kinds to
// transport status codes. Keeping both here guarantees uniform responses for
// success and failure across the three services.
//
// Envelope shape:
//
//	{
//	  "success":    true|false,
//	  "message":    "human-readable summary",
//	  "data":       {...},          // success payload, optional
//	  "error":      "detail",       // internal detail, non-production only
//	  "statusCode": 404             // echoed on failures
//	}
package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Envelope is the wire shape of every JSON API response.
type Envelope struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Data       any    `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
	StatusCode int    `json:"statusCode,omitempty"`
}

// verbose gates whether failure envelopes carry internal error detail.
// Mains call SetVerbose(!cfg.IsProduction()) once at startup.
var verbose = true

// SetVerbose toggles internal detail in failure envelopes. Production runs
// with verbose=false so no internal error text leaks to clients.
func SetVerbose(v bool) { verbose = v }

// OK writes a success envelope with the given status, message, and payload.
func OK(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Envelope{Success: true, Message: message, Data: data})
}

// Fail aborts the request with a failure envelope. Server-side failures
// (>= 500) are logged with the request-scoped logger.
func Fail(c *gin.Context, status int, message string) {
	FailDetail(c, status, message, "")
}

// FailDetail is Fail with internal detail attached; the detail reaches the
// client only outside production mode.
func FailDetail(c *gin.Context, status int, message, detail string) {
	resp := Envelope{
		Success:    false,
		Message:    message,
		StatusCode: status,
	}
	if verbose && detail != "" {
		resp.Error = detail
	}

	if status >= http.StatusInternalServerError {
		loggerFrom(c).Error().
			Int("status", status).
			Str("message", message).
			Str("detail", detail).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// loggerFrom returns the request-scoped zerolog logger attached by the
// logging middleware, or a fallback when none is present. Looked up by
// context key rather than importing the middleware package, which would
// cycle (the middleware uses this package for rejections).
func loggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get("logger"); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}
