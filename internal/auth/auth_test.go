package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartboard-client/internal/auth"
)

func sign(t *testing.T, c auth.Claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte("server-secret"))
	require.NoError(t, err)
	return tok
}

func TestPeekClaims(t *testing.T) {
	exp := time.Now().Add(15 * time.Minute).Truncate(time.Second)
	tok := sign(t, auth.Claims{
		UserID: "42",
		Role:   "OWNER",
		Email:  "o@x.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})

	c, err := auth.PeekClaims(tok)
	require.NoError(t, err)
	assert.Equal(t, "42", c.UserID)
	assert.Equal(t, "OWNER", c.Role)
	assert.Equal(t, "o@x.com", c.Email)
	assert.True(t, c.ExpiresAt.Time.Equal(exp))

	_, err = auth.PeekClaims("garbage")
	assert.ErrorIs(t, err, auth.ErrBadToken)
}

func TestExpiresIn(t *testing.T) {
	now := time.Now()
	tok := sign(t, auth.Claims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}})
	d, ok := auth.ExpiresIn(tok, now)
	require.True(t, ok)
	assert.InDelta(t, time.Hour.Seconds(), d.Seconds(), 1)

	_, ok = auth.ExpiresIn(sign(t, auth.Claims{UserID: "1"}), now)
	assert.False(t, ok)

	_, ok = auth.ExpiresIn("not.a.jwt", now)
	assert.False(t, ok)
}

func TestFingerprint(t *testing.T) {
	a := auth.Fingerprint("token-a")
	assert.Len(t, a, 12)
	assert.Equal(t, a, auth.Fingerprint("token-a"))
	assert.NotEqual(t, a, auth.Fingerprint("token-b"))
	assert.Empty(t, auth.Fingerprint(""))
}

func TestValidOTP(t *testing.T) {
	cases := map[string]bool{
		"123456":  true,
		"000000":  true,
		"12345":   false,
		"1234567": false,
		"12a456":  false,
		"":        false,
	}
	for code, want := range cases {
		assert.Equal(t, want, auth.ValidOTP(code), code)
	}
}
