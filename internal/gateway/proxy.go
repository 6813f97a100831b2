// Package gateway is the public edge of the platform. It terminates token
// verification and rate limiting, then forwards requests to the auth and
// url backends over plain HTTP, injecting the verified identity as trusted
// headers.
package gateway

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clipr-io/clipr/internal/http/middleware"
	"github.com/clipr-io/clipr/internal/http/respond"
)

// Identity headers the gateway owns. Inbound values are always removed so
// callers cannot impersonate; the verified identity, when present, is
// re-injected before forwarding.
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserEmail = "X-User-Email"
)

// hopHeaders are connection-scoped headers that must not be forwarded.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Proxy forwards requests for one route prefix to a single upstream,
// stripping the prefix and preserving the remaining path and query string
// verbatim.
type Proxy struct {
	target *url.URL
	prefix string
	client *http.Client
}

// NewProxy builds a Proxy for upstream target (e.g. "http://auth:8081")
// that strips prefix (e.g. "/api/auth") from inbound paths. The upstream
// URL must be absolute.
func NewProxy(target, prefix string) (*Proxy, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, err
	}
	return &Proxy{
		target: u,
		prefix: strings.TrimSuffix(prefix, "/"),
		client: &http.Client{
			// Redirect responses pass through to the caller untouched.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Handler returns the gin handler that forwards the request. The outbound
// request shares the inbound request's context, so a client disconnect
// cancels the upstream call. A failed attempt is reported as 502 with no
// retry; retrying non-idempotent writes could double-apply them.
func (p *Proxy) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		out := p.outboundURL(c.Request.URL)

		req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, out, c.Request.Body)
		if err != nil {
			respond.Fail(c, http.StatusInternalServerError, "Something went wrong. Please try again later.")
			return
		}

		copyForwardHeaders(req.Header, c.Request.Header)
		req.Header.Set("X-Forwarded-For", c.ClientIP())

		// Re-inject identity only for verified callers.
		if id := middleware.IdentityFrom(c); id != nil {
			req.Header.Set(HeaderUserID, id.SubjectID)
			req.Header.Set(HeaderUserEmail, id.Email)
		}

		resp, err := p.client.Do(req)
		if err != nil {
			middleware.LoggerFrom(c).Error().
				Err(err).
				Str("upstream", p.target.String()).
				Str("path", c.Request.URL.Path).
				Msg("upstream request failed")
			respond.Fail(c, http.StatusBadGateway, "Upstream service unavailable.")
			return
		}
		defer resp.Body.Close()

		// Stream the upstream response through verbatim: status, headers,
		// and body, including 3xx redirects.
		h := c.Writer.Header()
		for k, vv := range resp.Header {
			if isHopHeader(k) {
				continue
			}
			for _, v := range vv {
				h.Add(k, v)
			}
		}
		c.Status(resp.StatusCode)
		if _, err := io.Copy(c.Writer, resp.Body); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("response copy interrupted")
		}
		c.Abort()
	}
}

// outboundURL maps the inbound URL onto the upstream, stripping the route
// prefix and carrying the raw query through unchanged.
func (p *Proxy) outboundURL(in *url.URL) string {
	path := strings.TrimPrefix(in.Path, p.prefix)
	if path == "" {
		path = "/"
	}
	out := *p.target
	out.Path = strings.TrimSuffix(out.Path, "/") + path
	out.RawQuery = in.RawQuery
	return out.String()
}

// copyForwardHeaders copies inbound headers onto the outbound request,
// dropping hop-by-hop headers and the gateway-owned identity headers.
func copyForwardHeaders(dst, src http.Header) {
	for k, vv := range src {
		if isHopHeader(k) || isIdentityHeader(k) {
			continue
		}
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}

func isHopHeader(name string) bool {
	for _, h := range hopHeaders {
		if strings.EqualFold(name, h) {
			return true
		}
	}
	return false
}

func isIdentityHeader(name string) bool {
	return strings.EqualFold(name, HeaderUserID) || strings.EqualFold(name, HeaderUserEmail)
}
