// Admission control: the ADMITTED stage of the request pipeline.
//
// The middleware keys every request by identity (subject id when attached,
// client IP otherwise), records it against the fixed-window limiter, and
// rejects with a 429 envelope plus retry metadata when the caller's ceiling
// is exceeded. Runs after Identity() so authenticated callers get their
// higher ceiling.
package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/clipr-io/clipr/internal/http/respond"
	"github.com/clipr-io/clipr/internal/ratelimit"
)

// RateLimitKey derives the stable limiter key for a request: "user:<subject>"
// when an identity is attached, else "ip:<addr>". The prefixes keep the two
// namespaces from colliding.
func RateLimitKey(c *gin.Context) (key string, authenticated bool) {
	if sub := SubjectID(c); sub != "" {
		return "user:" + sub, true
	}
	return "ip:" + c.ClientIP(), false
}

// RateLimit returns a middleware enforcing the given limiter.
//
// Every response carries X-RateLimit-Limit / X-RateLimit-Remaining /
// X-RateLimit-Reset; rejections additionally carry Retry-After (seconds,
// rounded up) and the standard failure envelope. A limiter store error
// admits the request: admission control is best-effort and must not take
// the edge down with it.
func RateLimit(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, authed := RateLimitKey(c)

		d, err := limiter.Allow(c.Request.Context(), key, authed)
		if err != nil {
			LoggerFrom(c).Error().Err(err).Str("key", key).Msg("rate-limit store failure, admitting")
		}

		h := c.Writer.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

		if d.Allowed {
			c.Next()
			return
		}

		retry := int64(d.RetryAfter.Seconds())
		if d.RetryAfter > 0 && retry == 0 {
			retry = 1
		}
		h.Set("Retry-After", strconv.FormatInt(retry, 10))
		respond.Fail(c, http.StatusTooManyRequests, "Too many requests, please try again later!")
	}
}
