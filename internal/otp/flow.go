// Package otp drives the one-time-passcode flows: registration, password
// recovery and password change. Each runs request, verify, finalize.
package otp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"smartboard-client/internal/model"
	"smartboard-client/internal/nav"
)

const (
	DefaultCooldown   = 60
	MinPasswordLength = 6

	RouteChangePasswordVerify = "/change-password/verify"
	RouteChangePasswordNew    = "/change-password/new"
)

var (
	ErrInvalidCode     = errors.New("enter the 6-digit code")
	ErrCooldownActive  = errors.New("resend is not available yet")
	ErrChallengeClosed = errors.New("challenge is no longer active")
	ErrWeakPassword    = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrMissingEmail    = errors.New("email is required")
	ErrNoSession       = errors.New("not logged in")
)

type Mode string

const (
	ModeRegister Mode = "register"
	ModeReset    Mode = "reset"
)

// API is the slice of the backend the flows call.
type API interface {
	RequestRegistration(ctx context.Context, p model.RegisterProfile) error
	VerifyRegistration(ctx context.Context, email, otp string) (*model.AuthResponse, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, otp, newPassword string) error
}

type Sessions interface {
	Login(ctx context.Context, accessToken, refreshToken string, user model.User) error
	Logout(ctx context.Context) error
	Current() *model.Session
}

type Router interface {
	Push(nav.Location)
	Replace(nav.Location)
}

type Flow struct {
	api      API
	sessions Sessions
	router   Router
	log      *zap.Logger
	cooldown int
}

// NewFlow returns a flow whose challenges wait cooldown ticks between
// resends. cooldown <= 0 means DefaultCooldown.
func NewFlow(api API, sessions Sessions, router Router, log *zap.Logger, cooldown int) *Flow {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &Flow{api: api, sessions: sessions, router: router, log: log, cooldown: cooldown}
}

// StartRegistration posts the profile and, once the server has mailed a
// code, opens the verify screen.
func (f *Flow) StartRegistration(ctx context.Context, p model.RegisterProfile) (*Challenge, error) {
	p.Email = strings.TrimSpace(p.Email)
	if p.Email == "" {
		return nil, ErrMissingEmail
	}
	if err := f.api.RequestRegistration(ctx, p); err != nil {
		f.log.Debug("registration request failed", zap.String("email", p.Email), zap.Error(err))
		return nil, fmt.Errorf("request registration code: %w", err)
	}
	c := f.newChallenge(ModeRegister, p.Email)
	c.profile = &p
	f.router.Push(nav.Location{
		Path:   nav.RouteVerifyOTP,
		Params: map[string]string{"email": p.Email, "mode": string(ModeRegister)},
	})
	return c, nil
}

func (f *Flow) StartReset(ctx context.Context, email string) (*Challenge, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ErrMissingEmail
	}
	if err := f.api.ForgotPassword(ctx, email); err != nil {
		f.log.Debug("reset request failed", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("request reset code: %w", err)
	}
	c := f.newChallenge(ModeReset, email)
	f.router.Push(nav.Location{
		Path:   nav.RouteVerifyOTP,
		Params: map[string]string{"email": email, "mode": string(ModeReset)},
	})
	return c, nil
}

// StartPasswordChange runs the reset protocol for the logged-in user. Its
// screens live under the user's protected routes, and finishing it logs
// the user out.
func (f *Flow) StartPasswordChange(ctx context.Context) (*Challenge, error) {
	cur := f.sessions.Current()
	if cur == nil {
		return nil, ErrNoSession
	}
	email := cur.User.Email
	if email == "" {
		return nil, ErrMissingEmail
	}
	if err := f.api.ForgotPassword(ctx, email); err != nil {
		f.log.Debug("password change request failed", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("request reset code: %w", err)
	}
	c := f.newChallenge(ModeReset, email)
	c.change = true
	f.router.Push(nav.Location{
		Path:   RouteChangePasswordVerify,
		Params: map[string]string{"email": email},
	})
	return c, nil
}

// CompleteReset submits the new password with the code carried by h. The
// server checks the code here, for the first and only time on this path.
func (f *Flow) CompleteReset(ctx context.Context, h Handoff, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}
	if err := f.api.ResetPassword(ctx, h.Email, h.OTP, newPassword); err != nil {
		f.log.Debug("password reset failed", zap.String("email", h.Email), zap.Error(err))
		return fmt.Errorf("reset password: %w", err)
	}
	f.log.Info("password reset", zap.String("email", h.Email), zap.Bool("change", h.PasswordChange))
	if h.PasswordChange {
		if err := f.sessions.Logout(ctx); err != nil {
			f.log.Warn("logout after password change", zap.Error(err))
		}
	}
	f.router.Replace(nav.Location{Path: nav.RouteEntry})
	return nil
}

func (f *Flow) newChallenge(mode Mode, email string) *Challenge {
	return &Challenge{flow: f, mode: mode, email: email, cooldown: f.cooldown}
}
