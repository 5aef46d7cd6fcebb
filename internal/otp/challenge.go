package otp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"smartboard-client/internal/auth"
	"smartboard-client/internal/model"
	"smartboard-client/internal/nav"
)

type Outcome int

const (
	// OutcomeNone: nothing was submitted.
	OutcomeNone Outcome = iota
	// OutcomeSuppressed: a verify call was already in flight.
	OutcomeSuppressed
	OutcomeLoggedIn
	OutcomeHandedOff
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuppressed:
		return "suppressed"
	case OutcomeLoggedIn:
		return "logged-in"
	case OutcomeHandedOff:
		return "handed-off"
	default:
		return "none"
	}
}

// Handoff carries a reset code to the new-password screen unverified.
type Handoff struct {
	Email          string
	OTP            string
	PasswordChange bool
}

type Result struct {
	Outcome Outcome
	Handoff Handoff
}

// Challenge is one verify screen. It is not persisted.
type Challenge struct {
	flow    *Flow
	mode    Mode
	email   string
	profile *model.RegisterProfile
	change  bool

	mu        sync.Mutex
	code      string
	autoFor   string
	cooldown  int
	inFlight  bool
	resending bool
	closed    bool
}

func (c *Challenge) Mode() Mode    { return c.mode }
func (c *Challenge) Email() string { return c.email }

func (c *Challenge) Code() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.code
}

func (c *Challenge) Cooldown() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cooldown
}

// Tick moves the resend cooldown down by one, stopping at zero, and returns
// the new value.
func (c *Challenge) Tick() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cooldown > 0 {
		c.cooldown--
	}
	return c.cooldown
}

// Countdown ticks once per value received on ticks until the cooldown is
// zero, the challenge closes or ctx is done. Restart it after a resend.
func (c *Challenge) Countdown(ctx context.Context, ticks <-chan time.Time) {
	for {
		c.mu.Lock()
		done := c.cooldown == 0 || c.closed
		c.mu.Unlock()
		if done {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			c.Tick()
		}
	}
}

func (c *Challenge) CanResend() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && c.cooldown == 0 && !c.resending
}

// Resend repeats the original request. The entered code is kept; the
// cooldown restarts only when the server accepts.
func (c *Challenge) Resend(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return ErrChallengeClosed
	case c.cooldown > 0 || c.resending:
		c.mu.Unlock()
		return ErrCooldownActive
	}
	c.resending = true
	c.mu.Unlock()

	var err error
	if c.mode == ModeRegister && c.profile != nil {
		err = c.flow.api.RequestRegistration(ctx, *c.profile)
	} else {
		err = c.flow.api.ForgotPassword(ctx, c.email)
	}

	c.mu.Lock()
	c.resending = false
	if err == nil {
		c.cooldown = c.flow.cooldown
	}
	c.mu.Unlock()

	if err != nil {
		c.flow.log.Debug("otp resend failed", zap.String("email", c.email), zap.Error(err))
		return fmt.Errorf("resend code: %w", err)
	}
	return nil
}

// Input replaces the code with the digits in raw, at most six. Reaching six
// digits submits; an unchanged six-digit value does not submit twice.
func (c *Challenge) Input(ctx context.Context, raw string) (Result, error) {
	code := make([]byte, 0, auth.OTPLength)
	for i := 0; i < len(raw) && len(code) < auth.OTPLength; i++ {
		if raw[i] >= '0' && raw[i] <= '9' {
			code = append(code, raw[i])
		}
	}

	c.mu.Lock()
	c.code = string(code)
	if len(code) < auth.OTPLength {
		// the field was edited; the next full code submits again
		c.autoFor = ""
	}
	auto := len(code) == auth.OTPLength && c.autoFor != c.code
	if auto {
		c.autoFor = c.code
	}
	c.mu.Unlock()

	if !auto {
		return Result{}, nil
	}
	return c.Submit(ctx)
}

// Submit verifies the current code. While a verify call is outstanding,
// further submits return OutcomeSuppressed without doing anything. A failed
// verify leaves the challenge as it was.
func (c *Challenge) Submit(ctx context.Context) (Result, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Result{}, ErrChallengeClosed
	}
	if c.inFlight {
		c.mu.Unlock()
		return Result{Outcome: OutcomeSuppressed}, nil
	}
	code := c.code
	if !auth.ValidOTP(code) {
		c.mu.Unlock()
		return Result{}, ErrInvalidCode
	}
	c.inFlight = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
	}()

	if c.mode == ModeReset {
		return c.handOff(code), nil
	}
	return c.verify(ctx, code)
}

func (c *Challenge) handOff(code string) Result {
	h := Handoff{Email: c.email, OTP: code, PasswordChange: c.change}
	path := nav.RouteResetPassword
	if c.change {
		path = RouteChangePasswordNew
	}
	c.Close()
	c.flow.router.Replace(nav.Location{
		Path:   path,
		Params: map[string]string{"email": h.Email, "otp": h.OTP},
	})
	return Result{Outcome: OutcomeHandedOff, Handoff: h}
}

func (c *Challenge) verify(ctx context.Context, code string) (Result, error) {
	res, err := c.flow.api.VerifyRegistration(ctx, c.email, code)
	if err != nil {
		c.flow.log.Debug("otp verify failed", zap.String("email", c.email), zap.Error(err))
		return Result{}, fmt.Errorf("verify code: %w", err)
	}
	if res == nil || res.User == nil || res.Token == "" {
		return Result{}, errors.New("verify code: incomplete response")
	}
	if err := c.flow.sessions.Login(ctx, res.Token, res.RefreshToken, *res.User); err != nil {
		return Result{}, fmt.Errorf("verify code: %w", err)
	}
	c.Close()
	return Result{Outcome: OutcomeLoggedIn}, nil
}

// Close ends the challenge; used when the screen goes away.
func (c *Challenge) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}
