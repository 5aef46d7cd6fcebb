// Package nav holds the routing policy: which routes need a session and
// where each role lands.
package nav

import "smartboard-client/internal/model"

const (
	RouteEntry          = "/"
	RouteRegister       = "/register"
	RouteRegisterVerify = "/registerVerify"
	RouteForgotPassword = "/forgot-password"
	RouteResetPassword  = "/reset-password"
	RouteVerifyOTP      = "/verify-otp"

	RouteNotificationDetails = "/notifications/details"
)

// routes reachable without a session
var public = map[string]bool{
	RouteEntry:          true,
	RouteRegister:       true,
	RouteRegisterVerify: true,
	RouteForgotPassword: true,
	RouteResetPassword:  true,
	RouteVerifyOTP:      true,
}

func IsPublic(route string) bool { return public[route] }

// Home returns the landing route for a role; false for roles the client
// cannot route.
func Home(r model.Role) (string, bool) {
	switch r {
	case model.RoleStudent:
		return "/student/home", true
	case model.RoleOwner:
		return "/owner/home", true
	case model.RoleAdmin:
		return "/admin/home", true
	default:
		return "", false
	}
}

type Decision struct {
	// Redirect is the route to replace the current one with, or "".
	Redirect string
	// ForceLogout is set when the session carries a role the client does
	// not know; such a session is treated as unauthenticated.
	ForceLogout bool
}

// Decide is the whole authorization policy as a pure function.
func Decide(sess *model.Session, loading bool, route string) Decision {
	if loading {
		return Decision{}
	}
	if sess == nil {
		if !IsPublic(route) {
			return Decision{Redirect: RouteEntry}
		}
		return Decision{}
	}

	home, ok := Home(sess.User.Role)
	if !ok {
		d := Decision{ForceLogout: true}
		if !IsPublic(route) {
			d.Redirect = RouteEntry
		}
		return d
	}
	if IsPublic(route) {
		return Decision{Redirect: home}
	}
	return Decision{}
}
