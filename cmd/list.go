package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/huangsam/metplus/core"
)

// listCmd parses a list expression.
var listCmd = &cobra.Command{
	Use:   "list <text>",
	Short: "Split a configuration list and expand begin_end_incr ranges.",
	Long: `Parse a comma-separated METplus list the way configuration values are read.

Quoted items and bracketed groups are kept whole.

Examples:
  metplus list "0, begin_end_incr(3,12,3)"
  metplus list "ab_begin_end_incr(0,6,3,2)h" --no-expand`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: settingsSetupWrapper,
	RunE: func(_ *cobra.Command, args []string) error {
		if err := core.ExecuteList(rootCtx, cfg, strings.Join(args, " ")); err != nil {
			return reportFailure("Cannot parse list", err)
		}
		return nil
	},
}
