package cmd

import (
	"github.com/spf13/cobra"

	"github.com/huangsam/metplus/core"
)

// fieldsCmd resolves the field specifications.
var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "Show the resolved fields, levels and thresholds.",
	Long: `Resolve the [FCST|OBS|ENS|BOTH]_VAR<n>_* keys into paired field specifications.

Tool scoped keys such as FCST_GRID_STAT_VAR1_NAME are preferred with --tool.
Templates in names and levels are filled from --init or --valid.

Examples:
  # Paired forecast and observation fields
  metplus fields -c grid_stat.conf --tool GRID_STAT

  # Only the ensemble fields
  metplus fields -c ensemble_stat.conf --data-type ens

  # Fill {init?fmt=...} tags
  metplus fields -c pcp_combine.conf --init 2024030100`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := core.ExecuteFields(rootCtx, cfg, store); err != nil {
			return reportFailure("Cannot resolve fields", err)
		}
		return nil
	},
}
