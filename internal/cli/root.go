// Package cli contains the dashctl commands
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/jrsteele09/budget-dashboard/client"
	"github.com/jrsteele09/budget-dashboard/internal/config"
	"github.com/jrsteele09/budget-dashboard/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries what every command needs once the root has loaded config.
type app struct {
	cfgFile string
	verbose bool

	cfg    config.Config
	client *client.Client
}

// NewRootCmd builds the dashctl command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "dashctl",
		Short: "Budget dashboard API client",
		Long: `dashctl signs in to the budget dashboard API and calls it through the
authenticated request pipeline. Expired access tokens are refreshed
transparently; a failed refresh ends the session until you sign in again.

Example usage:
  dashctl login -u jane                # Sign in (password from DASHBOARD_PASSWORD or prompt flag)
  dashctl call GET /api/transfers/     # Call an endpoint
  dashctl status                       # Show the current session
  dashctl watch                        # Keep the session fresh and print events
  dashctl logout                       # Sign out`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context(), cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.client == nil {
				return nil
			}
			return a.client.Close()
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (yaml, json or toml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newStatusCmd(a),
		newCallCmd(a),
		newWatchCmd(a),
		newAckCmd(a),
	)
	return root
}

// Execute runs dashctl with the process arguments.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

func (a *app) setup(ctx context.Context, logOut io.Writer) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg

	level := cfg.GetLogLevel()
	if a.verbose {
		level = "debug"
	}
	logger := logging.Setup(cfg.GetEnv(), level, logOut)

	repo, err := client.NewRepo(cfg)
	if err != nil {
		return err
	}
	a.client = client.New(cfg, repo, client.WithLogger(logger))

	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := a.client.Hydrate(ctx); err != nil {
		return fmt.Errorf("restoring session: %w", err)
	}
	return nil
}

// passwordFromEnv lets scripts avoid putting passwords on the command line.
func passwordFromEnv() string {
	v := viper.New()
	v.SetEnvPrefix("DASHBOARD")
	_ = v.BindEnv("password")
	return v.GetString("password")
}
