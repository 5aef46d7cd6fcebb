// Package middleware wraps the outgoing transports: bearer injection,
// request ids and a throttle on the unauthenticated auth endpoints.
package middleware

import (
	"net/http"
	"strings"
)

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

type Middleware func(http.RoundTripper) http.RoundTripper

// Chain wraps base so the first middleware sees the request first.
func Chain(base http.RoundTripper, mws ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	for i := len(mws) - 1; i >= 0; i-- {
		base = mws[i](base)
	}
	return base
}

// the only endpoints reachable without a session
var open = []string{
	"/auth/login",
	"/auth/register/request",
	"/auth/register/verify",
	"/auth/forgot-password",
	"/auth/reset-password",
}

func isOpen(path string) bool {
	for _, p := range open {
		if strings.HasSuffix(path, p) {
			return true
		}
	}
	return false
}
