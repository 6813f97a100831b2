// Credential-endpoint throttle for the auth service.
//
// Distinct from the gateway's windowed admission control: login and register
// are brute-forceable, so the auth service additionally smooths them with a
// small per-IP token bucket. Buckets are created on demand in a map guarded
// by a mutex, with opportunistic eviction of idle entries to bound memory.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/clipr-io/clipr/internal/http/respond"
)

// bucket holds one client's limiter and the last time it was seen.
type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Throttle is a per-IP token-bucket limiter for credential endpoints.
// Safe for concurrent use.
type Throttle struct {
	rps   rate.Limit
	burst int

	mu      sync.Mutex
	buckets map[string]*bucket
	ttl     time.Duration
	lookups uint64
}

// NewThrottle constructs a Throttle replenishing rps tokens per second with
// the given burst size (values <= 0 are coerced to 1).
func NewThrottle(rps float64, burst int) *Throttle {
	if burst <= 0 {
		burst = 1
	}
	return &Throttle{
		rps:     rate.Limit(rps),
		burst:   burst,
		buckets: make(map[string]*bucket),
		ttl:     10 * time.Minute,
	}
}

// get returns (creating if absent) the limiter for key, evicting idle
// buckets after ~5000 lookups. Eviction runs before the fetch so a stale
// bucket for the requested key is also replaced.
func (t *Throttle) get(key string) *rate.Limiter {
	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.lookups++
	if t.lookups >= 5000 {
		for k, b := range t.buckets {
			if now.Sub(b.lastSeen) >= t.ttl {
				delete(t.buckets, k)
			}
		}
		t.lookups = 0
	}

	if b, ok := t.buckets[key]; ok {
		b.lastSeen = now
		return b.limiter
	}
	lim := rate.NewLimiter(t.rps, t.burst)
	t.buckets[key] = &bucket{limiter: lim, lastSeen: now}
	return lim
}

// Handler returns the Gin middleware enforcing the throttle per client IP.
func (t *Throttle) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if t.get(c.ClientIP()).Allow() {
			c.Next()
			return
		}
		c.Header("Retry-After", "1")
		respond.Fail(c, http.StatusTooManyRequests, "Too many attempts, please slow down.")
	}
}
