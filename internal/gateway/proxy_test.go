package gateway

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clipr-io/clipr/internal/http/middleware"
	"github.com/clipr-io/clipr/internal/token"
)

const proxySecret = "proxy-test-secret"

// recordedRequest captures what the upstream actually received.
type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   string
}

func recordingBackend(t *testing.T, status int, respond func(w http.ResponseWriter)) (*httptest.Server, *recordedRequest) {
	t.Helper()
	rec := &recordedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec.Method = r.Method
		rec.Path = r.URL.Path
		rec.Query = r.URL.RawQuery
		rec.Header = r.Header.Clone()
		rec.Body = string(body)
		if respond != nil {
			respond(w)
			return
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func proxyEngine(t *testing.T, target string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	p, err := NewProxy(target, "/api/urls")
	if err != nil {
		t.Fatalf("NewProxy: %v", err)
	}

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), middleware.Identity(token.NewVerifier(proxySecret)))
	r.Any("/api/urls/*path", p.Handler())
	return r
}

func TestProxy_StripsPrefixAndPreservesRest(t *testing.T) {
	backend, rec := recordingBackend(t, http.StatusOK, nil)
	r := proxyEngine(t, backend.URL)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/urls/my-urls?page=2&sort=desc", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if rec.Path != "/my-urls" {
		t.Errorf("upstream path = %q, want /my-urls", rec.Path)
	}
	if rec.Query != "page=2&sort=desc" {
		t.Errorf("upstream query = %q, want page=2&sort=desc", rec.Query)
	}
}

func TestProxy_ForwardsMethodAndBody(t *testing.T) {
	backend, rec := recordingBackend(t, http.StatusCreated, nil)
	r := proxyEngine(t, backend.URL)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/urls/shorten", strings.NewReader(`{"originalUrl":"https://example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}
	if rec.Method != http.MethodPost {
		t.Errorf("upstream method = %q, want POST", rec.Method)
	}
	if rec.Body != `{"originalUrl":"https://example.com"}` {
		t.Errorf("upstream body = %q", rec.Body)
	}
	if ct := rec.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("upstream Content-Type = %q", ct)
	}
}

func TestProxy_InjectsVerifiedIdentity(t *testing.T) {
	backend, rec := recordingBackend(t, http.StatusOK, nil)
	r := proxyEngine(t, backend.URL)

	raw, err := token.Issue(proxySecret, "user-5", "five@x.com", time.Hour, time.Now())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/urls/my-urls", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	r.ServeHTTP(w, req)

	if got := rec.Header.Get(HeaderUserID); got != "user-5" {
		t.Errorf("X-User-Id = %q, want user-5", got)
	}
	if got := rec.Header.Get(HeaderUserEmail); got != "five@x.com" {
		t.Errorf("X-User-Email = %q, want five@x.com", got)
	}
}

func TestProxy_StripsSpoofedIdentityHeaders(t *testing.T) {
	backend, rec := recordingBackend(t, http.StatusOK, nil)
	r := proxyEngine(t, backend.URL)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/urls/my-urls", nil)
	req.Header.Set(HeaderUserID, "forged-admin")
	req.Header.Set(HeaderUserEmail, "forged@x.com")
	r.ServeHTTP(w, req)

	if got := rec.Header.Get(HeaderUserID); got != "" {
		t.Errorf("spoofed X-User-Id reached the backend: %q", got)
	}
	if got := rec.Header.Get(HeaderUserEmail); got != "" {
		t.Errorf("spoofed X-User-Email reached the backend: %q", got)
	}
}

func TestProxy_RedirectPassesThrough(t *testing.T) {
	backend, _ := recordingBackend(t, 0, func(w http.ResponseWriter) {
		w.Header().Set("Location", "https://example.com/landing")
		w.WriteHeader(http.StatusFound)
	})
	r := proxyEngine(t, backend.URL)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/urls/abc1234", nil))

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if got := w.Header().Get("Location"); got != "https://example.com/landing" {
		t.Errorf("Location = %q", got)
	}
}

func TestProxy_UpstreamDownIs502(t *testing.T) {
	backend, _ := recordingBackend(t, http.StatusOK, nil)
	url := backend.URL
	backend.Close()

	r := proxyEngine(t, url)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/urls/my-urls", nil))

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Upstream service unavailable.") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestOutboundURL(t *testing.T) {
	p, err := NewProxy("http://upstream:9000", "/api/auth")
	if err != nil {
		t.Fatalf("NewProxy: %v", err)
	}

	tests := []struct {
		in, want string
	}{
		{"/api/auth/login", "http://upstream:9000/login"},
		{"/api/auth/google/callback", "http://upstream:9000/google/callback"},
		{"/api/auth", "http://upstream:9000/"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.in, nil)
		if got := p.outboundURL(req.URL); got != tt.want {
			t.Errorf("outboundURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
