package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clipr-io/clipr/internal/ratelimit"
	"github.com/clipr-io/clipr/internal/token"
)

func rateLimitEngine(t *testing.T, policy ratelimit.Policy, secret string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), Logger())
	if secret != "" {
		r.Use(Identity(token.NewVerifier(secret)))
	}
	r.Use(RateLimit(ratelimit.New(ratelimit.NewMemoryStore(), policy)))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func TestRateLimit_HeadersOnEveryResponse(t *testing.T) {
	policy := ratelimit.Policy{Window: time.Minute, MaxAuthed: 10, MaxAnonymous: 5}
	r := rateLimitEngine(t, policy, "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("X-RateLimit-Limit"); got != "5" {
		t.Errorf("X-RateLimit-Limit = %q, want 5", got)
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "4" {
		t.Errorf("X-RateLimit-Remaining = %q, want 4", got)
	}
	if got := w.Header().Get("X-RateLimit-Reset"); got == "" {
		t.Error("X-RateLimit-Reset missing")
	}
}

func TestRateLimit_RejectsOverCeiling(t *testing.T) {
	policy := ratelimit.Policy{Window: time.Minute, MaxAuthed: 10, MaxAnonymous: 3}
	r := rateLimitEngine(t, policy, "")

	var last *httptest.ResponseRecorder
	for i := 0; i < policy.MaxAnonymous+1; i++ {
		last = httptest.NewRecorder()
		r.ServeHTTP(last, httptest.NewRequest(http.MethodGet, "/ping", nil))
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", last.Code)
	}
	retry, err := strconv.Atoi(last.Header().Get("Retry-After"))
	if err != nil || retry < 1 {
		t.Errorf("Retry-After = %q, want integer >= 1", last.Header().Get("Retry-After"))
	}
	if got := last.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", got)
	}
	if body := last.Body.String(); !strings.Contains(body, "Too many requests") {
		t.Errorf("body = %s, want rejection envelope", body)
	}
}

func TestRateLimit_AuthedCeilingApplies(t *testing.T) {
	const secret = "rl-test-secret"
	policy := ratelimit.Policy{Window: time.Minute, MaxAuthed: 8, MaxAnonymous: 2}
	r := rateLimitEngine(t, policy, secret)

	raw, err := token.Issue(secret, "user-1", "u@x.com", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// The authenticated caller is keyed separately from the anonymous IP
	// and gets the higher ceiling.
	for i := 1; i <= policy.MaxAuthed; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("authed request %d: status = %d, want 200", i, w.Code)
		}
		if got := w.Header().Get("X-RateLimit-Limit"); got != "8" {
			t.Fatalf("X-RateLimit-Limit = %q, want 8", got)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("authed over ceiling: status = %d, want 429", w.Code)
	}
}

func TestRateLimitKey(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	key, authed := RateLimitKey(c)
	if authed || key == "" || key[:3] != "ip:" {
		t.Errorf("anonymous key = %q authed=%v, want ip:<addr>,false", key, authed)
	}

	c.Set("identity", &token.Identity{SubjectID: "abc"})
	key, authed = RateLimitKey(c)
	if !authed || key != "user:abc" {
		t.Errorf("authed key = %q authed=%v, want user:abc,true", key, authed)
	}
}
