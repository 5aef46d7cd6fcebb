package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"smartboard-client/internal/app"
	"smartboard-client/internal/config"
	"smartboard-client/internal/logging"
	"smartboard-client/internal/model"
)

var (
	// Global flags
	cfgPath string
	verbose bool

	cfg    config.Config
	logger *zap.Logger

	// appOptions lets tests swap the device and transport.
	appOptions app.Options
)

var errNotLoggedIn = errors.New("not logged in; run `smartboard login`")

var rootCmd = &cobra.Command{
	Use:   "smartboard",
	Short: "SmartBoard client: session, OTP and notification sync from the terminal",
	Long: `smartboard keeps a SmartBoard session on this machine and syncs the
notification inbox for the signed-in user.

Configuration is read from .env, then ~/.smartboard/config.yaml (or
--config / $SMARTBOARD_CONFIG), then SMARTBOARD_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.LogLevel = "debug"
		}
		logger, err = logging.New(cfg.LogLevel, cfg.LogJSON)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config.yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd, registerCmd, forgotPasswordCmd, changePasswordCmd)
	rootCmd.AddCommand(notificationsCmd, inboxCmd, pushCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// withApp builds the client for one command and tears it down afterwards.
// Interrupts cancel the context handed to fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, appOptions)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()
	return fn(ctx, a)
}

// requireSession is withApp for commands that need a signed-in user. fn
// gets the session as it was when the command started; the live one may
// be gone by the time fn looks again.
func requireSession(cmd *cobra.Command, fn func(ctx context.Context, a *app.App, s *model.Session) error) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		s := a.Sessions.Current()
		if s == nil {
			return errNotLoggedIn
		}
		return fn(ctx, a, s)
	})
}

type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(cmd *cobra.Command) *prompter {
	return &prompter{in: bufio.NewReader(cmd.InOrStdin()), out: cmd.OutOrStdout()}
}

// ask returns the flag value when set, otherwise a trimmed line from input.
func (p *prompter) ask(label, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.in.ReadString('\n')
	line = strings.TrimSpace(line)
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", fmt.Errorf("read %s: %w", strings.ToLower(label), err)
	}
	return line, nil
}
