package cmd

import (
	"github.com/spf13/cobra"

	"github.com/huangsam/metplus/internal/mcp"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the METplus MCP server",
	Long:  `Launch an MCP server on stdio that lets agents parse lists and durations and resolve leads, windows and fields.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// logs must stay off stdout, which carries the protocol
		return sharedSetup(rootCtx, cmd, args)
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, store)
	},
}
