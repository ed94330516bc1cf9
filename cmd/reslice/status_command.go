package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"reslice/internal/api"
	"reslice/internal/queueaccess"
	"reslice/internal/textutil"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var watch bool
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show live status for a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := ctx.client()
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			var session *queueaccess.Session
			defer func() {
				if session != nil {
					_ = session.Close()
				}
			}()

			fetch := func() (*api.JobStatusView, error) {
				if session != nil {
					return session.Status(cmd.Context(), args[0])
				}
				view, err := client.jobStatus(cmd.Context(), args[0])
				if errors.Is(err, errDaemonUnreachable) {
					opened, sessionErr := ctx.directSession()
					if sessionErr != nil {
						return nil, err
					}
					session = opened
					fmt.Fprintln(cmd.ErrOrStderr(), "daemon unreachable, reading queue database directly")
					return session.Status(cmd.Context(), args[0])
				}
				return view, err
			}

			for {
				view, err := fetch()
				if err != nil {
					return err
				}
				if jsonOut {
					if err := writeJSON(cmd, view); err != nil {
						return err
					}
				} else {
					kind := sevInfo
					switch view.Status {
					case "completed":
						kind = sevOK
					case "failed":
						kind = sevError
					}
					line := renderStatusLine(textutil.Label(view.Status), kind,
						fmt.Sprintf("%3d%% %s", view.Progress, view.Message), colorize)
					fmt.Fprintln(out, line)
				}

				if !watch || view.Status == "completed" || view.Status == "failed" {
					return nil
				}
				select {
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				case <-time.After(interval):
				}
			}
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the raw JSON response")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Poll until the job reaches a terminal state")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "Polling interval for --watch")
	return cmd
}
