package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"smartboard-client/internal/app"
	"smartboard-client/internal/model"
	"smartboard-client/internal/nav"
	"smartboard-client/internal/notify"
	"smartboard-client/internal/ui"
)

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"n"},
	Short:   "Read and acknowledge notifications",
}

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notifications, newest first as the server orders them",
	RunE:  runNotificationsList,
}

var notificationsUnreadCmd = &cobra.Command{
	Use:   "unread",
	Short: "Print the unread count",
	RunE:  runNotificationsUnread,
}

var notificationsReadCmd = &cobra.Command{
	Use:   "read [id]",
	Short: "Mark one notification read",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotificationsRead,
}

var notificationsReadAllCmd = &cobra.Command{
	Use:   "read-all",
	Short: "Mark every notification read",
	RunE:  runNotificationsReadAll,
}

var notificationsOpenCmd = &cobra.Command{
	Use:   "open [id]",
	Short: "Mark a notification read and print the screen it links to",
	Args:  cobra.ExactArgs(1),
	RunE:  runNotificationsOpen,
}

var notificationsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the unread count until interrupted",
	RunE:  runNotificationsWatch,
}

var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "Interactive notification inbox",
	RunE:  runInbox,
}

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push notification registration",
}

var pushRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register this device's push token for the signed-in user",
	RunE:  runPushRegister,
}

func init() {
	notificationsCmd.AddCommand(
		notificationsListCmd,
		notificationsUnreadCmd,
		notificationsReadCmd,
		notificationsReadAllCmd,
		notificationsOpenCmd,
		notificationsWatchCmd,
	)
	pushCmd.AddCommand(pushRegisterCmd)
}

func runNotificationsList(cmd *cobra.Command, args []string) error {
	return requireSession(cmd, func(ctx context.Context, a *app.App, _ *model.Session) error {
		if err := a.Engine.Refresh(ctx); err != nil {
			return err
		}
		printState(cmd.OutOrStdout(), a.Engine.State())
		return nil
	})
}

func runNotificationsUnread(cmd *cobra.Command, args []string) error {
	return requireSession(cmd, func(ctx context.Context, a *app.App, _ *model.Session) error {
		n, err := a.Engine.LoadUnreadCount(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), n)
		return nil
	})
}

func runNotificationsRead(cmd *cobra.Command, args []string) error {
	return requireSession(cmd, func(ctx context.Context, a *app.App, _ *model.Session) error {
		if err := a.Engine.MarkRead(ctx, model.ID(args[0])); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "marked %s read\n", args[0])
		return nil
	})
}

func runNotificationsReadAll(cmd *cobra.Command, args []string) error {
	return requireSession(cmd, func(ctx context.Context, a *app.App, _ *model.Session) error {
		if err := a.Engine.MarkAllRead(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "all read")
		return nil
	})
}

func runNotificationsOpen(cmd *cobra.Command, args []string) error {
	return requireSession(cmd, func(ctx context.Context, a *app.App, s *model.Session) error {
		loc, err := openNotification(ctx, a, s.User.Role, model.ID(args[0]))
		if err != nil {
			return err
		}
		printLocation(cmd.OutOrStdout(), loc)
		return nil
	})
}

// openNotification marks the notification read and moves the router to the
// screen it links to. role is fixed by the caller so a logout mid-way does
// not change where it leads.
func openNotification(ctx context.Context, a *app.App, role model.Role, id model.ID) (nav.Location, error) {
	items, err := a.Engine.LoadAll(ctx)
	if err != nil {
		return nav.Location{}, err
	}
	for _, it := range items {
		if it.ID != id {
			continue
		}
		if err := a.Engine.MarkRead(ctx, id); err != nil {
			logger.Warn("mark read before open", zap.String("id", string(id)), zap.Error(err))
		}
		loc := nav.DeepLink(it, role)
		a.Router.Push(loc)
		return loc, nil
	}
	return nav.Location{}, fmt.Errorf("notification %s not found", id)
}

func runNotificationsWatch(cmd *cobra.Command, args []string) error {
	return requireSession(cmd, func(ctx context.Context, a *app.App, _ *model.Session) error {
		out := cmd.OutOrStdout()
		var last atomic.Int64
		last.Store(-1)
		unsub := a.Engine.Subscribe(func(st notify.State) {
			if prev := last.Swap(int64(st.Unread)); prev != int64(st.Unread) {
				fmt.Fprintf(out, "%d unread\n", st.Unread)
			}
		})
		defer unsub()

		a.Poller.SetFocused(true)
		<-ctx.Done()
		a.Poller.SetFocused(false)
		return nil
	})
}

func runInbox(cmd *cobra.Command, args []string) error {
	return requireSession(cmd, func(ctx context.Context, a *app.App, s *model.Session) error {
		role := s.User.Role
		p := tea.NewProgram(
			ui.NewInbox(ctx, a.Engine, a.Poller, role),
			tea.WithContext(ctx),
			tea.WithReportFocus(),
		)
		unsub := a.Engine.Subscribe(func(st notify.State) { p.Send(ui.StateMsg(st)) })
		defer unsub()

		final, err := p.Run()
		if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return err
		}
		if m, ok := final.(ui.Inbox); ok {
			if loc, ok := m.Opened(); ok {
				a.Router.Push(loc)
				printLocation(cmd.OutOrStdout(), loc)
			}
		}
		return nil
	})
}

func runPushRegister(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		res := a.Push.Register(ctx)
		switch res.Status {
		case notify.PushRegistered:
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s\n", res.Token)
			return nil
		case notify.PushNoSession:
			return errNotLoggedIn
		}
		if res.Err != nil {
			return fmt.Errorf("push %s: %w", res.Status, res.Err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "push %s\n", res.Status)
		return nil
	})
}

func printState(w io.Writer, st notify.State) {
	fmt.Fprintf(w, "%d unread\n", st.Unread)
	for _, it := range st.Items {
		mark := " "
		if !it.Read {
			mark = "•"
		}
		when := ""
		if !it.CreatedAt.IsZero() {
			when = it.CreatedAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s %-6s %-16s %s: %s\n", mark, it.ID, when, it.Title, it.Message)
	}
}

func printLocation(w io.Writer, loc nav.Location) {
	fmt.Fprint(w, "open ", loc.Path)
	for _, k := range slices.Sorted(maps.Keys(loc.Params)) {
		fmt.Fprintf(w, " %s=%s", k, loc.Params[k])
	}
	fmt.Fprintln(w)
}
