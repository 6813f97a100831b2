// Identity attachment: the AUTHENTICATED stage of the request pipeline.
//
// The middleware verifies an optional bearer credential and threads the
// resulting Identity through the Gin context as an explicit value. Absence
// of a credential is not an error; downstream stages decide whether
// identity is required. A credential that is present but invalid rejects
// the request immediately and short-circuits the rest of the chain.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/clipr-io/clipr/internal/http/respond"
	"github.com/clipr-io/clipr/internal/token"
)

// identityKey is the Gin context key carrying the *token.Identity.
const identityKey = "identity"

// Identity returns a middleware that runs the token verifier on the
// Authorization header.
//
// Behavior:
//   - No Authorization header → proceed anonymous.
//   - "Bearer <token>" with a valid token → attach Identity, proceed.
//   - Present but malformed/expired/tampered → 403 envelope, abort.
func Identity(verifier *token.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw := bearerToken(header)
		if header != "" && raw == "" {
			// "Bearer" with nothing after it: present but unusable.
			LoggerFrom(c).Warn().Msg("empty bearer credential")
			respond.Error(c, token.ErrInvalidToken)
			return
		}

		id, err := verifier.Verify(raw)
		if err != nil {
			LoggerFrom(c).Warn().Msg("invalid or expired token")
			respond.Error(c, err)
			return
		}
		if id != nil {
			c.Set(identityKey, id)
		}
		c.Next()
	}
}

// IdentityFrom returns the identity attached by Identity(), or nil for an
// anonymous request.
func IdentityFrom(c *gin.Context) *token.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(*token.Identity); ok {
			return id
		}
	}
	return nil
}

// SubjectID returns the attached identity's subject id, or "" when the
// request is anonymous. Convenient for logging and rate-limit keys.
func SubjectID(c *gin.Context) string {
	if id := IdentityFrom(c); id != nil {
		return id.SubjectID
	}
	return ""
}

// bearerToken extracts the token from an "Authorization: Bearer x" header.
// A non-empty header without the Bearer scheme is returned as-is so it
// fails verification: a present-but-malformed credential is a rejection,
// never an anonymous pass-through.
func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	tok, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return header
	}
	return strings.TrimSpace(tok)
}
