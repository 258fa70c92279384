package cmd

import (
	"github.com/spf13/cobra"

	"github.com/huangsam/metplus/core"
)

// durationCmd parses a relative time.
var durationCmd = &cobra.Command{
	Use:   "duration <text>",
	Short: "Parse a relative time such as 3H, 1m or 1d12H.",
	Long: `Parse a relative time and show its components and length.

Months and years have no fixed length, so the total is measured from --at,
the clock time, or now.

Examples:
  metplus duration 36
  metplus duration 90 --unit M
  metplus duration 1m --at 2024020100`,
	Args:    cobra.ExactArgs(1),
	PreRunE: settingsSetupWrapper,
	RunE: func(_ *cobra.Command, args []string) error {
		if err := core.ExecuteDuration(rootCtx, cfg, args[0]); err != nil {
			return reportFailure("Cannot parse duration", err)
		}
		return nil
	},
}
