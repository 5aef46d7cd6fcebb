// Package auth inspects the tokens the backend hands out. Nothing here
// verifies a signature; the server stays the only authority on validity.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrBadToken = errors.New("invalid token")

const OTPLength = 6

type Claims struct {
	UserID string `json:"id,omitempty"`
	Role   string `json:"role,omitempty"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// PeekClaims decodes the payload of an access token without checking its
// signature. Used for expiry display and log context only.
func PeekClaims(raw string) (*Claims, error) {
	c := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, c); err != nil {
		return nil, ErrBadToken
	}
	return c, nil
}

// ExpiresIn reports how long until the token's exp claim, and false when the
// token carries none or cannot be decoded.
func ExpiresIn(raw string, now time.Time) (time.Duration, bool) {
	c, err := PeekClaims(raw)
	if err != nil || c.ExpiresAt == nil {
		return 0, false
	}
	return c.ExpiresAt.Sub(now), true
}

// Fingerprint is a short log-safe identifier for a token.
func Fingerprint(raw string) string {
	if raw == "" {
		return ""
	}
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])[:12]
}

func ValidOTP(code string) bool {
	if len(code) != OTPLength {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
