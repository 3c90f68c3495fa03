package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/isdelr/creatives/internal/models"
	"github.com/isdelr/creatives/internal/notify"
	"github.com/isdelr/creatives/internal/push"
	"github.com/isdelr/creatives/internal/scheduler"
	"github.com/isdelr/creatives/internal/session"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			snap, err := rt.enter(cmd, session.RequireUser)
			if err != nil {
				return err
			}
			printUser(cmd.OutOrStdout(), *snap.User)
			return nil
		},
	}
}

func newRefreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Re-fetch the account from the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			if _, err := rt.enter(cmd, session.RequireUser); err != nil {
				return err
			}
			rt.session.RefreshUser(cmd.Context())

			snap, err := rt.enter(cmd, session.RequireUser)
			if err != nil {
				return err
			}
			printUser(cmd.OutOrStdout(), *snap.User)
			return nil
		},
	}
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stay connected and print account changes as they happen",
		Long: `Keep a live connection to the server and print the account whenever
it changes, for example when credits are adjusted. The account is also
refreshed on the configured schedule. Stops on interrupt or when the
session ends.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.openLive(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			snap, err := rt.enter(cmd, session.RequireUser)
			if err != nil {
				return err
			}
			sched, err := scheduler.New(scheduler.RefreshJob(rt.cfg.RefreshSchedule, rt.session))
			if err != nil {
				return err
			}
			return watch(cmd.Context(), cmd.OutOrStdout(), rt, sched, *snap.User)
		},
	}
}

// watch prints account changes and notifications until ctx ends or the
// session does.
func watch(ctx context.Context, out io.Writer, rt *runtime, sched *scheduler.Scheduler, last models.User) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates, unsubscribe := rt.session.Subscribe()
	defer unsubscribe()
	notices, stopNotices := rt.notices.Subscribe(16)
	defer stopNotices()

	listener := push.NewListener(rt.client, rt.session)
	done := make(chan struct{}, 2)
	go func() {
		listener.Run(ctx)
		done <- struct{}{}
	}()
	go func() {
		sched.Run(ctx)
		done <- struct{}{}
	}()
	defer func() {
		cancel()
		<-done
		<-done
	}()

	printUser(out, last)
	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-notices:
			if !ok {
				notices = nil
				continue
			}
			printNotification(out, n)
		case s := <-updates:
			if s.Status != session.StatusAuthenticated {
				fmt.Fprintln(out, "Session ended.")
				return nil
			}
			if !s.User.Equal(last) {
				log.Debug().Str("user_id", s.User.ID).Msg("Account changed")
				printUser(out, *s.User)
				last = *s.User
			}
		}
	}
}

func printNotification(w io.Writer, n notify.Notification) {
	mark := "✓"
	if n.Level == notify.LevelError {
		mark = "✗"
	}
	fmt.Fprintf(w, "[%s] %s %s\n", n.Time.Format("15:04:05"), mark, n.Message)
}

func printUser(w io.Writer, u models.User) {
	fmt.Fprintf(w, "%s (@%s)\n", u.DisplayName(), u.Username)
	fmt.Fprintf(w, "  Email:   %s\n", u.Email)
	fmt.Fprintf(w, "  Plan:    %s (%d credits/month)\n", u.SubscriptionTier.Label(), u.SubscriptionTier.MonthlyCredits())
	fmt.Fprintf(w, "  Credits: %d\n", u.CreditsBalance)
	if u.IsAdmin {
		fmt.Fprintln(w, "  Role:    admin")
	}
}
