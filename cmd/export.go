package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/engprogress/internal/excel"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a user's progress to an Excel workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetString("user")
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = fmt.Sprintf("progress-%s.xlsx", userID)
		}

		a, err := newApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.close()

		snap, err := a.orch.Snapshot(cmd.Context(), userID)
		if err != nil {
			return err
		}
		if snap == nil {
			return fmt.Errorf("no progress recorded for user %s", userID)
		}
		if err := excel.ExportProgress(snap, out); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d topics and %d words to %s\n", len(snap.Topics), len(snap.Words), out)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("user", "", "User ID to export")
	exportCmd.Flags().String("out", "", "Output .xlsx file (default progress-<user>.xlsx)")
	_ = exportCmd.MarkFlagRequired("user")
}
