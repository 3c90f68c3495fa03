package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/isdelr/creatives/internal/session"
	"github.com/spf13/cobra"
)

func newAdminCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrative commands (admin accounts only)",
	}
	cmd.AddCommand(newAdminUsersCmd(a), newAdminCreditsCmd(a))
	return cmd
}

func newAdminUsersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List every account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			if _, err := rt.enter(cmd, session.RequireAdmin); err != nil {
				return err
			}
			users, err := rt.client.AdminListUsers(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tUSERNAME\tPLAN\tCREDITS")
			for _, u := range users {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", u.ID, u.Username, u.SubscriptionTier.Label(), u.CreditsBalance)
			}
			return tw.Flush()
		},
	}
}

func newAdminCreditsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "credits <user-id> <credits>",
		Short: "Set a user's credit balance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			credits, err := strconv.Atoi(args[1])
			if err != nil || credits < 0 {
				return fmt.Errorf("credits must be a non-negative integer, got %q", args[1])
			}
			rt, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			snap, err := rt.enter(cmd, session.RequireAdmin)
			if err != nil {
				return err
			}
			upd, err := rt.client.AdminSetCredits(cmd.Context(), args[0], credits)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Credits for %s set to %d\n", upd.UserID, upd.NewBalance)

			if upd.UserID == snap.User.ID {
				rt.session.RefreshUser(cmd.Context())
			}
			return nil
		},
	}
}
