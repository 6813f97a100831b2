// Package token issues and verifies the bearer credentials that carry caller
// identity between the gateway and the backends. Verification is a pure
// function of (credential, secret, current time): it performs no I/O and has
// no side effects, so the gateway can run it on every request cheaply.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any credential that is present but
// unusable: malformed, tampered with, signed with the wrong key, or expired.
// Callers must treat it as a hard rejection, not as "anonymous".
var ErrInvalidToken = errors.New("invalid or expired token")

// Identity is the verified claim set extracted from a credential. It lives
// for exactly one request and is never persisted.
type Identity struct {
	SubjectID string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Claims is the JWT payload. The claim names (userId, email) are part of the
// wire contract with the auth service and must not change.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// Issue signs a credential for the given user, valid for ttl from now.
// The auth service calls this after a successful login or federation.
func Issue(secret, userID, email string, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "clipr-auth",
		},
		UserID: userID,
		Email:  email,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verifier validates credentials against a shared secret. The zero clock
// defaults to time.Now; tests inject their own.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

// NewVerifier constructs a Verifier for the given shared secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret), now: time.Now}
}

// WithClock returns a copy of the verifier using the supplied clock.
func (v *Verifier) WithClock(now func() time.Time) *Verifier {
	return &Verifier{secret: v.secret, now: now}
}

// Verify parses and validates raw and returns the embedded identity.
//
// Contract:
//   - raw == "" → (nil, nil): no credential, no identity; the caller decides
//     downstream whether identity is required.
//   - invalid/expired/tampered → (nil, ErrInvalidToken).
//   - valid → Identity carrying the subject id and email as issued.
func (v *Verifier) Verify(raw string) (*Identity, error) {
	if raw == "" {
		return nil, nil
	}

	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims,
		func(_ *jwt.Token) (any, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}

	id := &Identity{
		SubjectID: claims.UserID,
		Email:     claims.Email,
	}
	if claims.IssuedAt != nil {
		id.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}
