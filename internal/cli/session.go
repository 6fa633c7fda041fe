package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"storefront/internal/app"
	"storefront/internal/domain"
	"storefront/internal/fetchstate"
)

// LoginOptions holds flags for the login command.
type LoginOptions struct {
	*RootOptions
	Username string
	Password string
}

func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoginOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session",
		Example: `  shopctl login --username emilys --password emilyspass
  shopctl login -u emilys -p emilyspass --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.session(cmd, func(ctx context.Context, a *app.App, out *Output) error {
				return execute(ctx, a, out, "login", func(ctx context.Context) (*domain.User, error) {
					return a.Session.Login(ctx, opts.Username, opts.Password)
				}, func(w io.Writer, u *domain.User) {
					fmt.Fprintf(w, "Signed in as %s (%s)\n", displayName(u), u.Email)
				}, fetchstate.WithoutRedirect())
			})
		},
	}

	cmd.Flags().StringVarP(&opts.Username, "username", "u", "", "account username (required)")
	_ = cmd.MarkFlagRequired("username")
	cmd.Flags().StringVarP(&opts.Password, "password", "p", "", "account password (required)")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and drop its cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.session(cmd, func(ctx context.Context, a *app.App, out *Output) error {
				a.Session.Logout(ctx)
				return out.Success(map[string]bool{"authenticated": false}, func(w io.Writer) {
					fmt.Fprintln(w, "Signed out")
				})
			})
		},
	}
}

type whoami struct {
	Authenticated bool         `json:"authenticated"`
	User          *domain.User `json:"user"`
}

func NewWhoamiCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.session(cmd, func(ctx context.Context, a *app.App, out *Output) error {
				u := a.Session.CurrentSession(ctx)
				return out.Success(whoami{Authenticated: u != nil, User: u}, func(w io.Writer) {
					if u == nil {
						fmt.Fprintln(w, "Not signed in")
						return
					}
					fmt.Fprintf(w, "%s (%s) id=%d\n", displayName(u), u.Username, u.ID)
				})
			})
		},
	}
}

func displayName(u *domain.User) string {
	if u.FirstName == "" && u.LastName == "" {
		return u.Username
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
