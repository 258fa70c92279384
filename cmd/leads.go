package cmd

import (
	"github.com/spf13/cobra"

	"github.com/huangsam/metplus/core"
)

// leadsCmd resolves the lead sequence of one tick.
var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Show the forecast leads processed at one tick.",
	Long: `Resolve the forecast lead sequence from LEAD_SEQ, LEAD_SEQ_<n> groups or INIT_SEQ.

Leads are filtered by LEAD_SEQ_MIN and LEAD_SEQ_MAX and printed with their
length in seconds at the reference time. INIT_SEQ needs a valid time.

Examples:
  # Leads from LEAD_SEQ
  metplus leads -c grid_stat.conf

  # Leads from INIT_SEQ for a valid time
  metplus leads -c series.conf --valid 2024030112

  # Show labeled groups too
  metplus leads -c series.conf --groups`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := core.ExecuteLeads(rootCtx, cfg, store); err != nil {
			return reportFailure("Cannot resolve leads", err)
		}
		return nil
	},
}
