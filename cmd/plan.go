package cmd

import (
	"github.com/spf13/cobra"

	"github.com/huangsam/metplus/core"
	"github.com/huangsam/metplus/internal/history"
)

// planCmd resolves the full processing plan.
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show every tick, lead and field the configuration would process.",
	Long: `Resolve the complete plan of a METplus configuration.

For each tick of the time loop the plan shows:
- The leads processed at that tick
- Each process from PROCESS_LIST with its init, valid and lead times
- The fields each process would receive, paired across data types
- Ticks and runs removed by SKIP_TIMES
- Field indices that were skipped and why

When --history-backend is set the plan is also recorded for later export.

Examples:
  # Plan a GridStat configuration
  metplus plan -c grid_stat.conf

  # Override the loop bounds without editing the file
  metplus plan -c grid_stat.conf --set INIT_BEG=2024030100 --set INIT_END=2024030200

  # Record the plan and write it as JSON
  metplus plan -c grid_stat.conf --history-backend sqlite --output json`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := core.ExecutePlan(rootCtx, cfg, store, history.Manager); err != nil {
			return reportFailure("Cannot resolve plan", err)
		}
		return nil
	},
}
