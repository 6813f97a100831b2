// Package shortcode generates the fixed-length opaque codes that identify
// short links. Codes are drawn uniformly from a 62-character alphanumeric
// alphabet using crypto/rand, so collisions are negligible but possible;
// the url service verifies each candidate against the store and relies on
// the store's unique index as the final arbiter.
package shortcode

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Alphabet is the 62-character set codes are drawn from.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the fixed code length.
const Length = 7

var alphabetLen = big.NewInt(int64(len(Alphabet)))

// Generate returns a new random code of Length characters. Each position is
// an independent uniform draw, so there is no modulo bias.
func Generate() (string, error) {
	buf := make([]byte, Length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("shortcode: read random: %w", err)
		}
		buf[i] = Alphabet[n.Int64()]
	}
	return string(buf), nil
}

// Valid reports whether s is a well-formed code: exactly Length characters,
// all from Alphabet. The url service uses it to reject junk lookups before
// touching the store.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}
