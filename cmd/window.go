package cmd

import (
	"github.com/spf13/cobra"

	"github.com/huangsam/metplus/core"
)

// windowCmd resolves the outer time loop.
var windowCmd = &cobra.Command{
	Use:   "window",
	Short: "Show the loop mode, bounds and ticks of the time loop.",
	Long: `Resolve LOOP_BY and the matching _BEG, _END, _INCREMENT and _TIME_FMT values.

{now} and {today} in the bounds are filled from CLOCK_TIME or --clock-time.

Examples:
  metplus window -c grid_stat.conf
  metplus window -c grid_stat.conf --clock-time 20240301000000 --output csv`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := core.ExecuteWindow(rootCtx, cfg, store); err != nil {
			return reportFailure("Cannot resolve time window", err)
		}
		return nil
	},
}
