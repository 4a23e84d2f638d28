package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newArchiveCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "archive <run-id|project>",
		Short: "Upload a calculated run directory to the configured bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, session, err := resolveRun(cmd.Context(), ctx, args[0])
			if err != nil {
				return err
			}
			uploader, err := newUploader(ctx)
			if err != nil {
				return err
			}
			if err := uploader.Check(cmd.Context()); err != nil {
				return err
			}
			summary, err := uploader.UploadSession(cmd.Context(), session)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, struct {
					RunID string   `json:"run_id"`
					Keys  []string `json:"keys"`
					Bytes int64    `json:"bytes"`
				}{run.ID, summary.Keys, summary.Bytes})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Archived run %s: %s objects, %s\n",
				shortID(run.ID), formatCount(len(summary.Keys)), summary.Size())
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
