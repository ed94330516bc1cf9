package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reslice/internal/textutil"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show daemon and stage health",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := ctx.client().daemonStatus(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, status)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			fmt.Fprintln(out, renderSectionHeader("Daemon", colorize))
			runningKind := sevError
			if status.Running {
				runningKind = sevOK
			}
			fmt.Fprintln(out, renderStatusLine("running", runningKind, fmt.Sprintf("pid %d", status.PID), colorize))
			storeKind := sevWarn
			storeMsg := "live progress disabled"
			if status.StatusStore {
				storeKind = sevOK
				storeMsg = ""
			}
			fmt.Fprintln(out, renderStatusLine("status store", storeKind, storeMsg, colorize))
			if status.LastError != "" {
				fmt.Fprintln(out, renderStatusLine("last error", sevError, status.LastError, colorize))
			}

			fmt.Fprintln(out, renderSectionHeader("Stages", colorize))
			for _, stage := range status.StageHealth {
				kind := sevOK
				if !stage.Ready {
					kind = sevError
				}
				fmt.Fprintln(out, renderStatusLine(textutil.Label(stage.Name), kind, stage.Detail, colorize))
			}

			fmt.Fprintln(out, renderSectionHeader("Queue", colorize))
			for name, count := range status.QueueStats {
				fmt.Fprintln(out, renderStatusLine(textutil.Label(name), sevInfo, fmt.Sprintf("%d", count), colorize))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the raw JSON response")
	return cmd
}
