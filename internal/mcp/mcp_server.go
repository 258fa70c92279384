// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/huangsam/metplus/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const configArgDescription = "METplus settings as KEY=VALUE lines for the [config] section; a [section] line switches sections. Uses the configuration files given on the command line when empty."

// NewMCPServer initializes and configures the METplus MCP server without starting it.
// This is exposed for unit testing. store may be nil when no configuration
// files were loaded; tools then require the config argument.
func NewMCPServer(baseCfg *contract.Config, store contract.ConfigStore) *server.MCPServer {
	s := server.NewMCPServer(
		"METplus Resolution Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		store:   store,
	}

	// --- 1. Tool: parse_list ---
	s.AddTool(mcp.NewTool("parse_list",
		mcp.WithDescription("Parse a METplus list expression such as '0, 6, begin_end_incr(12,24,6)' into its items."),
		mcp.WithString("text", mcp.Description("The list expression."), mcp.Required()),
		mcp.WithBoolean("expand", mcp.Description("Expand begin_end_incr ranges. Defaults to true.")),
	), h.handleParseList)

	// --- 2. Tool: parse_duration ---
	s.AddTool(mcp.NewTool("parse_duration",
		mcp.WithDescription("Parse a relative time such as '6', '1d12H' or '1m' and measure it in seconds."),
		mcp.WithString("text", mcp.Description("The relative time expression."), mcp.Required()),
		mcp.WithString("unit", mcp.Description("Unit applied to bare integers. Defaults to 'H'."), mcp.Enum("Y", "m", "d", "H", "M", "S")),
		mcp.WithString("at", mcp.Description("Reference time for month and year lengths (YYYYMMDDHH or RFC3339).")),
	), h.handleParseDuration)

	// --- 3. Tool: resolve_lead_sequence ---
	s.AddTool(mcp.NewTool("resolve_lead_sequence",
		mcp.WithDescription("Resolve the forecast leads from LEAD_SEQ, INIT_SEQ or LEAD_SEQ_<n> groups."),
		mcp.WithString("config", mcp.Description(configArgDescription)),
		mcp.WithString("init", mcp.Description("Initialization time of the loop tick.")),
		mcp.WithString("valid", mcp.Description("Valid time of the loop tick; required for INIT_SEQ.")),
		mcp.WithBoolean("wildcard", mcp.Description("Return '*' instead of [0] when no leads are configured.")),
	), h.handleResolveLeads)

	// --- 4. Tool: resolve_time_window ---
	s.AddTool(mcp.NewTool("resolve_time_window",
		mcp.WithDescription("Resolve LOOP_BY and the start, end and increment of the outer time loop."),
		mcp.WithString("config", mcp.Description(configArgDescription)),
		mcp.WithString("clock_time", mcp.Description("Clock time used by {now} and {today} tags.")),
	), h.handleResolveWindow)

	// --- 5. Tool: resolve_field_specs ---
	s.AddTool(mcp.NewTool("resolve_field_specs",
		mcp.WithDescription("Resolve the FCST/OBS/ENS field specifications from VAR<n> settings."),
		mcp.WithString("config", mcp.Description(configArgDescription)),
		mcp.WithString("data_type", mcp.Description("Resolve one data type only."), mcp.Enum("FCST", "OBS", "ENS")),
		mcp.WithString("tool", mcp.Description("Tool prefix such as GRID_STAT for tool-specific keys.")),
		mcp.WithString("init", mcp.Description("Initialization time for template tags.")),
		mcp.WithString("valid", mcp.Description("Valid time for template tags.")),
		mcp.WithString("lead", mcp.Description("Forecast lead for template tags, e.g. '6' or '30M'.")),
	), h.handleResolveFields)

	// --- 6. Tool: validate_fields ---
	s.AddTool(mcp.NewTool("validate_fields",
		mcp.WithDescription("Check that FCST and OBS field settings are paired and suggest BOTH_ rewrites."),
		mcp.WithString("config", mcp.Description(configArgDescription)),
		mcp.WithString("tool", mcp.Description("Tool prefix to check besides the generic keys.")),
	), h.handleValidateFields)

	return s
}

// StartMCPServer starts the METplus MCP server on stdio.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, store contract.ConfigStore) error {
	s := NewMCPServer(baseCfg, store)
	return server.ServeStdio(s)
}
