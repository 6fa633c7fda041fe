package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"storefront/internal/app"
	"storefront/internal/config"
	"storefront/internal/fetchstate"
)

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Opener builds the application graph for one command run.
type Opener func(ctx context.Context, opts *RootOptions) (*app.App, error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format  string
	EnvFile string
	Verbose bool

	open Opener
}

// NewRootCommand creates the shopctl command tree. A nil open uses
// OpenFromEnv.
func NewRootCommand(open Opener) *cobra.Command {
	if open == nil {
		open = OpenFromEnv
	}
	opts := &RootOptions{open: open}

	cmd := &cobra.Command{
		Use:   "shopctl",
		Short: "Storefront session from the command line",
		Long:  "Sign in, browse the catalog and manage the cart of the storefront session.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return WrapExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats), nil)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "environment file loaded before the environment")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log diagnostics to stderr")

	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewWhoamiCommand(opts))
	cmd.AddCommand(NewProductsCommand(opts))
	cmd.AddCommand(NewCartCommand(opts))

	return cmd
}

// OpenFromEnv loads configuration the way the server does. Without an
// explicit STORE_DRIVER the session is kept in SQLite so it survives
// between invocations.
func OpenFromEnv(ctx context.Context, opts *RootOptions) (*app.App, error) {
	cfg, err := config.Load(opts.EnvFile)
	if err != nil {
		return nil, err
	}
	if os.Getenv("STORE_DRIVER") == "" {
		cfg.StoreDriver = config.DriverSQLite
	}
	logger := log.New(io.Discard, "", 0)
	if opts.Verbose {
		logger = log.New(os.Stderr, "[shopctl] ", log.LstdFlags|log.LUTC|log.Lshortfile)
		cfg.AppEnv = "development"
	}
	return app.New(ctx, cfg, logger)
}

// session opens the app and hands it to fn, closing it afterwards.
func (o *RootOptions) session(cmd *cobra.Command, fn func(ctx context.Context, a *app.App, out *Output) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := o.open(ctx, o)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open storefront", err)
	}
	defer a.Close()
	return fn(ctx, a, &Output{Format: o.Format, Writer: cmd.OutOrStdout()})
}

// execute runs op through a fetch-state runner and prints either its result
// or its classified failure.
func execute[T any](ctx context.Context, a *app.App, out *Output, where string, op func(ctx context.Context) (T, error), text func(w io.Writer, v T), extra ...fetchstate.Option) error {
	opts := append([]fetchstate.Option{fetchstate.WithLogger(a.ErrorLog, where)}, extra...)
	runner := fetchstate.New[T](a.Session, opts...)
	v, ok := runner.Execute(ctx, op)
	if !ok {
		return out.Failure(runner.Err(), runner.Redirect())
	}
	return out.Success(v, func(w io.Writer) { text(w, v) })
}
