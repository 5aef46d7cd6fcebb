package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"smartboard-client/internal/app"
	"smartboard-client/internal/auth"
	"smartboard-client/internal/model"
	"smartboard-client/internal/otp"
)

var (
	loginEmail    string
	loginPassword string

	regProfile model.RegisterProfile
	regRole    string

	resetEmail string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and keep the session on this machine",
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user and their home screen",
	RunE:  runWhoami,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and verify it with the emailed code",
	Long: `Posts the registration form, then asks for the 6-digit code sent by
email. Type "resend" at the code prompt to request a new one once the
cooldown has run out. A verified code signs the new account in.`,
	RunE: runRegister,
}

var forgotPasswordCmd = &cobra.Command{
	Use:   "forgot-password",
	Short: "Reset a forgotten password with an emailed code",
	RunE:  runForgotPassword,
}

var changePasswordCmd = &cobra.Command{
	Use:   "change-password",
	Short: "Change the signed-in user's password; signs out when done",
	RunE:  runChangePassword,
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "account password")

	f := registerCmd.Flags()
	f.StringVar(&regProfile.FullName, "name", "", "full name")
	f.StringVar(&regProfile.Email, "email", "", "email")
	f.StringVar(&regProfile.Password, "password", "", "password")
	f.StringVar(&regProfile.Phone, "phone", "", "phone number")
	f.StringVar(&regProfile.Address, "address", "", "address")
	f.StringVar(&regProfile.Gender, "gender", "", "gender")
	f.StringVar(&regRole, "role", "student", "student or owner")
	f.StringVar(&regProfile.NICNumber, "nic", "", "NIC number (owners)")
	f.StringVar(&regProfile.AccNo, "account", "", "bank account number (owners)")
	f.StringVar(&regProfile.StudentUniversity, "university", "", "university (students)")

	forgotPasswordCmd.Flags().StringVar(&resetEmail, "email", "", "account email")
}

func runLogin(cmd *cobra.Command, args []string) error {
	p := newPrompter(cmd)
	email, err := p.ask("Email", loginEmail)
	if err != nil {
		return err
	}
	password, err := p.ask("Password", loginPassword)
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		user, err := a.Login(ctx, email, password)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s (%s)\n", user.Email, user.Role)
		return nil
	})
}

func runLogout(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		had := a.Sessions.Current() != nil
		if err := a.Sessions.Logout(ctx); err != nil {
			return err
		}
		if had {
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "no session")
		}
		return nil
	})
}

func runWhoami(cmd *cobra.Command, args []string) error {
	return requireSession(cmd, func(ctx context.Context, a *app.App, s *model.Session) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "email: %s\nrole:  %s\nid:    %s\n", s.User.Email, s.User.Role, s.User.ID)
		if s.User.FullName != "" {
			fmt.Fprintf(out, "name:  %s\n", s.User.FullName)
		}
		if left, ok := auth.ExpiresIn(s.AccessToken, time.Now()); ok {
			if left > 0 {
				fmt.Fprintf(out, "token: expires in %s\n", left.Round(time.Second))
			} else {
				fmt.Fprintln(out, "token: expired")
			}
		}
		fmt.Fprintf(out, "home:  %s\n", a.Router.Current().Path)
		return nil
	})
}

func runRegister(cmd *cobra.Command, args []string) error {
	p := newPrompter(cmd)
	prof := regProfile
	prof.Role = model.Role(strings.ToUpper(regRole))
	if prof.Role != model.RoleStudent && prof.Role != model.RoleOwner {
		return fmt.Errorf("role must be student or owner, got %q", regRole)
	}
	var err error
	if prof.FullName, err = p.ask("Full name", prof.FullName); err != nil {
		return err
	}
	if prof.Email, err = p.ask("Email", prof.Email); err != nil {
		return err
	}
	if prof.Password, err = p.ask("Password", prof.Password); err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		ch, err := a.OTP.StartRegistration(ctx, prof)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "a code was sent to %s\n", ch.Email())
		if _, err := runChallenge(ctx, p, ch); err != nil {
			return err
		}
		s := a.Sessions.Current()
		if s == nil {
			return errors.New("verified, but the account cannot be signed in here")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "verified; signed in as %s, home %s\n", s.User.Email, a.Router.Current().Path)
		return nil
	})
}

func runForgotPassword(cmd *cobra.Command, args []string) error {
	p := newPrompter(cmd)
	email, err := p.ask("Email", resetEmail)
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		ch, err := a.OTP.StartReset(ctx, email)
		if err != nil {
			return err
		}
		return finishReset(ctx, cmd, p, a, ch)
	})
}

func runChangePassword(cmd *cobra.Command, args []string) error {
	p := newPrompter(cmd)
	return requireSession(cmd, func(ctx context.Context, a *app.App, _ *model.Session) error {
		ch, err := a.OTP.StartPasswordChange(ctx)
		if err != nil {
			return err
		}
		return finishReset(ctx, cmd, p, a, ch)
	})
}

func finishReset(ctx context.Context, cmd *cobra.Command, p *prompter, a *app.App, ch *otp.Challenge) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "a code was sent to %s\n", ch.Email())
	res, err := runChallenge(ctx, p, ch)
	if err != nil {
		return err
	}
	for {
		pw, err := p.ask("New password", "")
		if err != nil {
			return err
		}
		err = a.OTP.CompleteReset(ctx, res.Handoff, pw)
		if errors.Is(err, otp.ErrWeakPassword) {
			fmt.Fprintf(out, "use at least %d characters\n", otp.MinPasswordLength)
			continue
		}
		if err != nil {
			return err
		}
		break
	}
	if res.Handoff.PasswordChange {
		fmt.Fprintln(out, "password changed; sign in again")
	} else {
		fmt.Fprintln(out, "password reset; sign in with the new password")
	}
	return nil
}

// runChallenge reads codes until one is accepted. "resend" asks for a new
// code when the cooldown allows it.
func runChallenge(ctx context.Context, p *prompter, ch *otp.Challenge) (otp.Result, error) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	cdCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go ch.Countdown(cdCtx, ticker.C)
	defer ch.Close()

	for {
		line, err := p.ask(`Code (or "resend")`, "")
		if err != nil {
			return otp.Result{}, err
		}
		if line == "resend" {
			if !ch.CanResend() {
				fmt.Fprintf(p.out, "resend available in %ds\n", ch.Cooldown())
				continue
			}
			if err := ch.Resend(ctx); err != nil {
				fmt.Fprintf(p.out, "resend failed: %v\n", err)
				continue
			}
			go ch.Countdown(cdCtx, ticker.C)
			fmt.Fprintln(p.out, "a new code is on its way")
			continue
		}

		res, err := ch.Input(ctx, line)
		if err == nil && res.Outcome == otp.OutcomeNone {
			res, err = ch.Submit(ctx)
		}
		switch {
		case errors.Is(err, otp.ErrInvalidCode):
			fmt.Fprintf(p.out, "enter the %d-digit code\n", auth.OTPLength)
		case errors.Is(err, otp.ErrChallengeClosed):
			return otp.Result{}, err
		case err != nil:
			fmt.Fprintf(p.out, "verification failed: %v\n", err)
		case res.Outcome == otp.OutcomeLoggedIn, res.Outcome == otp.OutcomeHandedOff:
			return res, nil
		}
	}
}
