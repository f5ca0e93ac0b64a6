package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	dasherrors "github.com/jrsteele09/budget-dashboard/internal/errors"
	"github.com/jrsteele09/budget-dashboard/pipeline"
	"github.com/spf13/cobra"
)

func newCallCmd(a *app) *cobra.Command {
	var (
		data   string
		params []string
	)

	cmd := &cobra.Command{
		Use:   "call METHOD PATH",
		Short: "Call an API endpoint with the current session",
		Long: `Send one request through the authenticated pipeline and print the response body.

Examples:
  dashctl call GET /api/transfers/ --param status=pending
  dashctl call POST /api/transfers/ --data '{"amount": 250}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDescriptor(args[0], args[1], data, params)
			if err != nil {
				return err
			}

			resp, err := a.client.Do(cmd.Context(), d)
			if resp != nil {
				writeBody(cmd, resp.Body)
			}
			if errors.Is(err, dasherrors.ErrRequestDiscarded) {
				return errors.New("request discarded: the session changed while it was pending")
			}
			if a.client.Expired().Active() {
				fmt.Fprintln(cmd.ErrOrStderr(), "Session expired, run `dashctl ack` and log in again")
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body")
	cmd.Flags().StringArrayVar(&params, "param", nil, "query parameter key=value (repeatable)")
	return cmd
}

func buildDescriptor(method, path, data string, params []string) (pipeline.Descriptor, error) {
	d := pipeline.Descriptor{Method: strings.ToUpper(method), URL: path}
	if data != "" {
		if !json.Valid([]byte(data)) {
			return d, errors.New("--data must be valid JSON")
		}
		d.Body = []byte(data)
		d.Header = http.Header{}
		d.Header.Set("Content-Type", "application/json")
	}

	if len(params) > 0 {
		d.Params = url.Values{}
		for _, p := range params {
			k, v, ok := strings.Cut(p, "=")
			if !ok || k == "" {
				return d, fmt.Errorf("invalid --param %q, want key=value", p)
			}
			d.Params.Add(k, v)
		}
	}
	return d, nil
}

func writeBody(cmd *cobra.Command, body []byte) {
	if len(body) == 0 {
		return
	}
	var pretty bytes.Buffer
	if json.Indent(&pretty, body, "", "  ") == nil {
		body = pretty.Bytes()
	}
	w := cmd.OutOrStdout()
	_, _ = w.Write(body)
	if body[len(body)-1] != '\n' {
		fmt.Fprintln(w)
	}
}
