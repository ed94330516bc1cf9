package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"reslice/internal/api"
	"reslice/internal/textutil"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List workflow jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := ctx.client().listJobs(cmd.Context(), statuses)
			if errors.Is(err, errDaemonUnreachable) {
				session, sessionErr := ctx.directSession()
				if sessionErr != nil {
					return err
				}
				defer session.Close()
				fmt.Fprintln(cmd.ErrOrStderr(), "daemon unreachable, reading queue database directly")
				jobs, err = session.List(cmd.Context(), statuses)
			}
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, api.JobListResponse{Jobs: jobs})
			}
			out := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintln(out, "No jobs found")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Job ID", "File", "Status", "Created", "Error"},
				buildJobRows(jobs),
			))
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&statuses, "status", nil, "Filter by job status (repeatable)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the raw JSON response")
	return cmd
}

func buildJobRows(jobs []api.JobView) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, []string{
			job.JobID,
			job.Filename,
			textutil.Label(job.Status),
			job.CreatedAt,
			textutil.Truncate(job.ErrorMessage, 60),
		})
	}
	return rows
}
