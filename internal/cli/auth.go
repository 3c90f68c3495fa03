package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/isdelr/creatives/internal/models"
	"github.com/spf13/cobra"
)

func newLoginCmd(a *app) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login [username]",
		Short: "Sign in with a username and password",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			p := newPrompter(cmd)
			var username string
			if len(args) == 1 {
				username = args[0]
			}
			if username, err = p.valueOr(username, "Username", false); err != nil {
				return err
			}
			if password, err = p.valueOr(password, "Password", true); err != nil {
				return err
			}
			return rt.session.Login(cmd.Context(), username, password)
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when omitted)")
	return cmd
}

func newRegisterCmd(a *app) *cobra.Command {
	var email, username, fullName, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Long: `Create an account and sign in with it. New accounts start on the
free plan with 50 credits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			p := newPrompter(cmd)
			if email, err = p.valueOr(email, "Email", false); err != nil {
				return err
			}
			if username, err = p.valueOr(username, "Username", false); err != nil {
				return err
			}
			if !cmd.Flags().Changed("password") {
				if password, err = p.secret("Password"); err != nil {
					return err
				}
				confirm, err := p.secret("Confirm password")
				if err != nil {
					return err
				}
				if err := models.ConfirmPassword(password, confirm); err != nil {
					return reportInvalid(cmd, err)
				}
			}
			return reportInvalid(cmd, rt.session.Register(cmd.Context(), email, username, password, fullName))
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username, 3-20 letters, digits or underscores")
	cmd.Flags().StringVar(&fullName, "name", "", "Full name (optional)")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted twice when omitted)")
	return cmd
}

func newOAuthCmd(a *app) *cobra.Command {
	var id, name, email string
	cmd := &cobra.Command{
		Use:       "oauth <provider>",
		Short:     "Sign in through a social provider (mock)",
		Long:      fmt.Sprintf("Sign in through one of the mock social providers: %v.", models.Providers()),
		Args:      cobra.ExactArgs(1),
		ValidArgs: models.Providers(),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := args[0]
			if err := models.CheckProvider(provider); err != nil {
				return reportInvalid(cmd, err)
			}
			rt, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			if id == "" {
				id = uuid.NewString()
			}
			return rt.session.LoginWithProvider(cmd.Context(), provider, mockProfile(provider, id, name, email))
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Provider account id (random when omitted)")
	cmd.Flags().StringVar(&name, "name", "", "Display name sent by the provider")
	cmd.Flags().StringVar(&email, "email", "", "Email sent by the provider (google, yandex)")
	return cmd
}

// mockProfile fills the fields the given provider's callback reads.
func mockProfile(provider, id, name, email string) models.OAuthProfile {
	if name == "" {
		name = "Creative User"
	}
	p := models.OAuthProfile{Name: name, DisplayName: name, FirstName: name, Email: email}
	switch provider {
	case models.ProviderTelegram:
		p.TelegramID = id
	case models.ProviderVK:
		p.VKID = id
	case models.ProviderGoogle:
		p.GoogleID = id
		if p.Email == "" {
			p.Email = "user" + id[:min(8, len(id))] + "@gmail.com"
		}
	case models.ProviderYandex:
		p.YandexID = id
	}
	return p
}

// reportInvalid prints form validation failures, which the session does not
// notify, and passes err through.
func reportInvalid(cmd *cobra.Command, err error) error {
	if models.IsValidationError(err) {
		fmt.Fprintf(cmd.OutOrStdout(), "✗ %v\n", err)
	}
	return err
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			rt.session.Logout(cmd.Context())
			return nil
		},
	}
}
