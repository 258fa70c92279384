package cmd

import (
	"github.com/spf13/cobra"

	"github.com/huangsam/metplus/core"
)

// checkCmd focused on CI/CD validation of field pairing.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate field pairing (fails on any issue).",
	Long: `Check that every FCST field has a matching OBS field and that BOTH keys
are not mixed with typed keys.

Each issue is printed with sed commands that rewrite the configuration.
Exits non-zero when any issue is found, so it can gate a pipeline.
Configurations that only run reformatters are not checked.

Examples:
  metplus check -c grid_stat.conf
  metplus check -c grid_stat.conf --tool GRID_STAT --output json`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		if err := core.ExecuteCheck(rootCtx, cfg, store); err != nil {
			return reportFailure("Field check failed", err)
		}
		return nil
	},
}
