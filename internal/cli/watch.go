package cli

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/budget-dashboard/sessions"
	"github.com/spf13/cobra"
)

func newWatchCmd(a *app) *cobra.Command {
	var noBanner bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the session fresh and print session events until interrupted",
		Long: `Runs the proactive refresh monitor against the stored session and prints
session state changes and server error notifications as they happen.
Stop with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			w := cmd.OutOrStdout()
			if !noBanner {
				fmt.Fprintln(w, figure.NewFigure(a.cfg.GetAppName(), "", true).String())
			}
			return a.watch(ctx, w)
		},
	}

	cmd.Flags().BoolVar(&noBanner, "no-banner", false, "skip the startup banner")
	return cmd
}

func (a *app) watch(ctx context.Context, w io.Writer) error {
	updates, cancelUpdates := a.client.Store().Subscribe()
	defer cancelUpdates()
	notifications, cancelNotifications := a.client.Notifications()
	defer cancelNotifications()

	stopMonitor := a.client.StartMonitor(ctx)
	defer stopMonitor()

	printSession(w, a.client.Session())
	last := a.client.Session()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(w, "Stopped watching")
			return nil
		case s, ok := <-updates:
			if !ok {
				return nil
			}
			if s.State() == last.State() && s.AccessToken != last.AccessToken {
				fmt.Fprintf(w, "%s  access token refreshed\n", stamp())
			} else if s.State() != last.State() {
				printSession(w, s)
			}
			last = s
		case n, ok := <-notifications:
			if !ok {
				return nil
			}
			fmt.Fprintf(w, "%s  %s: %s (%d %s)\n", stamp(), n.Kind, n.Message, n.StatusCode, n.URL)
		}
	}
}

func printSession(w io.Writer, s sessions.Session) {
	switch s.State() {
	case sessions.StateAuthenticated:
		fmt.Fprintf(w, "%s  authenticated as user %d (%s)\n", stamp(), s.UserID, s.UserLevel)
	case sessions.StateSessionExpired:
		fmt.Fprintf(w, "%s  session expired, run `dashctl ack` and log in again\n", stamp())
	default:
		fmt.Fprintf(w, "%s  logged out\n", stamp())
	}
}

func stamp() string {
	return time.Now().Format(time.TimeOnly)
}
