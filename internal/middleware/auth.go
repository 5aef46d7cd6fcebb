package middleware

import (
	"errors"
	"net/http"
)

var ErrNoSession = errors.New("no session")

// TokenSource yields the current access token, or "" when logged out.
type TokenSource interface {
	AccessToken() string
}

// Auth sets Authorization: Bearer <token>. Requests to anything but the
// open auth endpoints fail with ErrNoSession when there is no token; they
// never reach the network.
func Auth(tokens TokenSource) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			raw := tokens.AccessToken()
			if raw == "" {
				if isOpen(req.URL.Path) {
					return next.RoundTrip(req)
				}
				return nil, ErrNoSession
			}
			req = req.Clone(req.Context())
			req.Header.Set("Authorization", "Bearer "+raw)
			return next.RoundTrip(req)
		})
	}
}
