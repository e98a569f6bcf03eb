package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/engprogress/internal/progress"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Retry session updates that were abandoned",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer a.close()

		batch, _ := cmd.Flags().GetInt("batch")
		if batch <= 0 {
			batch = a.cfg.ReplayBatch
		}
		stats, err := progress.NewReplayer(a.orch, a.store).ReplayFailed(cmd.Context(), batch)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Replayed: %d  Failed: %d  Discarded: %d\n", stats.Replayed, stats.Failed, stats.Discarded)
		return nil
	},
}

func init() {
	replayCmd.Flags().Int("batch", 0, "Maximum sessions to replay (default REPLAY_BATCH)")
}
