package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var meta submitMeta
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "submit <file>",
		Short: "Upload a study file and start the processing workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := ctx.client().ingest(cmd.Context(), args[0], meta)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, resp)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, resp.Message)
			rows := [][]string{
				{"Job ID", resp.JobID},
				{"Upload ID", resp.UploadID},
				{"Status", resp.Status},
				{"File", resp.FileInfo.Filename},
				{"Size", fmt.Sprintf("%d bytes", resp.FileInfo.FileSize)},
			}
			if resp.ReportID != "" {
				rows = append(rows, []string{"Report ID", resp.ReportID})
			}
			fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&meta.UploadID, "upload-id", "", "Client-supplied upload identifier")
	cmd.Flags().StringVar(&meta.ClinicID, "clinic", "", "Clinic identifier for storage routing")
	cmd.Flags().StringVar(&meta.PatientID, "patient", "", "Patient identifier for storage routing")
	cmd.Flags().StringVar(&meta.ReportType, "report-type", "", "Report type (xray, mri, ct, cbct)")
	cmd.Flags().StringVar(&meta.ReportID, "report-id", "", "Report identifier for record updates")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit the raw JSON response")
	return cmd
}
