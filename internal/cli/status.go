package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jrsteele09/budget-dashboard/internal/utils"
	"github.com/jrsteele09/budget-dashboard/sessions"
	"github.com/jrsteele09/budget-dashboard/token"
	"github.com/spf13/cobra"
)

type statusOutput struct {
	State     sessions.State `json:"state"`
	UserID    int64          `json:"user_id,omitempty"`
	UserLevel string         `json:"user_level,omitempty"`
	ExpiresAt *time.Time     `json:"access_expires_at,omitempty"`
	ExpiresIn string         `json:"access_expires_in,omitempty"`
}

func newStatusCmd(a *app) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := describe(a.client.Session(), time.Now())
			w := cmd.OutOrStdout()

			if jsonOutput {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			fmt.Fprintf(w, "State:      %s\n", out.State)
			if out.State == sessions.StateLoggedOut {
				return nil
			}
			fmt.Fprintf(w, "User:       %d (%s)\n", out.UserID, out.UserLevel)
			if out.ExpiresAt != nil {
				fmt.Fprintf(w, "Expires:    %s (%s)\n", utils.Value(out.ExpiresAt).Format(time.RFC3339), out.ExpiresIn)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func describe(s sessions.Session, now time.Time) statusOutput {
	out := statusOutput{State: s.State()}
	if out.State == sessions.StateLoggedOut {
		return out
	}
	out.UserID = s.UserID
	out.UserLevel = s.UserLevel

	if claims, err := token.Decode(s.AccessToken); err == nil {
		out.ExpiresAt = utils.Ptr(claims.ExpiresAt)
		if token.IsExpired(s.AccessToken, now) {
			out.ExpiresIn = "expired"
		} else {
			out.ExpiresIn = claims.ExpiresAt.Sub(now).Round(time.Second).String()
		}
	}
	return out
}
