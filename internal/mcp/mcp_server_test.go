package mcp_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/huangsam/metplus/internal/confstore"
	"github.com/huangsam/metplus/internal/contract"
	mcp_internal "github.com/huangsam/metplus/internal/mcp"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func callTool(t *testing.T, store contract.ConfigStore, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	s := mcp_internal.NewMCPServer(&contract.Config{ClockTime: fixedNow}, store)
	tool := s.GetTool(name)
	require.NotNil(t, tool, "Tool %s should exist", name)

	res, err := tool.Handler(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	})
	require.NoError(t, err, "The MCP handler should not return a raw error for tool logic failures")
	require.NotNil(t, res)
	return res
}

func resultText(res *mcp.CallToolResult) string {
	return res.Content[0].(mcp.TextContent).Text
}

func TestMCPServer_ParseList(t *testing.T) {
	res := callTool(t, nil, "parse_list", map[string]any{"text": "0, begin_end_incr(6,18,6)"})
	require.False(t, res.IsError)

	var items []string
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &items))
	assert.Equal(t, []string{"0", "6", "12", "18"}, items)

	res = callTool(t, nil, "parse_list", map[string]any{"text": "begin_end_incr(6,18,6)", "expand": false})
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &items))
	assert.Equal(t, []string{"begin_end_incr(6,18,6)"}, items)

	res = callTool(t, nil, "parse_list", map[string]any{})
	assert.True(t, res.IsError)
}

func TestMCPServer_ParseDuration(t *testing.T) {
	res := callTool(t, nil, "parse_duration", map[string]any{"text": "1d6H"})
	require.False(t, res.IsError, resultText(res))

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &got))
	assert.Equal(t, "30H", got["canonical"])
	assert.InDelta(t, 30, got["hours"], 0)
	assert.InDelta(t, 108000, got["total_seconds"], 0)

	res = callTool(t, nil, "parse_duration", map[string]any{"text": "1m", "at": "2024020100"})
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &got))
	assert.Equal(t, true, got["calendar"])
	assert.InDelta(t, 29*24*3600, got["total_seconds"], 0) // leap year February

	res = callTool(t, nil, "parse_duration", map[string]any{"text": "six hours"})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(res), "parse failed")
}

func TestMCPServer_ResolveLeadSequence(t *testing.T) {
	res := callTool(t, nil, "resolve_lead_sequence", map[string]any{"config": "LEAD_SEQ = 0, 6, 12"})
	require.False(t, res.IsError, resultText(res))
	var got struct {
		Leads    []string `json:"leads"`
		Wildcard bool     `json:"wildcard"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &got))
	assert.Equal(t, []string{"0H", "6H", "12H"}, got.Leads)

	res = callTool(t, nil, "resolve_lead_sequence", map[string]any{"config": "LOOP_BY = INIT", "wildcard": true})
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &got))
	assert.True(t, got.Wildcard)

	res = callTool(t, nil, "resolve_lead_sequence", map[string]any{"config": "LEAD_SEQ = 0\nINIT_SEQ = 0"})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(res), "lead resolution failed")
}

func TestMCPServer_UsesLoadedStore(t *testing.T) {
	store := confstore.NewConfig(map[string]string{"LEAD_SEQ": "3"})
	res := callTool(t, store, "resolve_lead_sequence", map[string]any{})
	require.False(t, res.IsError, resultText(res))
	assert.Contains(t, resultText(res), "3H")

	res = callTool(t, nil, "resolve_lead_sequence", map[string]any{})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(res), "no configuration loaded")
}

func TestMCPServer_ResolveTimeWindow(t *testing.T) {
	config := "LOOP_BY = INIT\nINIT_TIME_FMT = %Y%m%d%H\nINIT_BEG = 2024030100\nINIT_END = 2024030112\nINIT_INCREMENT = 6H"
	res := callTool(t, nil, "resolve_time_window", map[string]any{"config": config})
	require.False(t, res.IsError, resultText(res))

	var got struct {
		Ticks []time.Time `json:"ticks"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &got))
	require.Len(t, got.Ticks, 3)
	assert.True(t, got.Ticks[2].Equal(fixedNow))

	res = callTool(t, nil, "resolve_time_window", map[string]any{"config": "INIT_BEG = 2024030100"})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(res), "window resolution failed")

	res = callTool(t, nil, "resolve_time_window", map[string]any{"config": config, "clock_time": "tomorrow"})
	assert.True(t, res.IsError)
}

func TestMCPServer_ResolveFieldSpecs(t *testing.T) {
	config := "BOTH_VAR1_NAME = TMP\nBOTH_VAR1_LEVELS = P500, P850\nFCST_VAR2_NAME = APCP_{lead?fmt=%HH}\nFCST_VAR2_LEVELS = A06"
	res := callTool(t, nil, "resolve_field_specs", map[string]any{
		"config":    config,
		"data_type": "fcst",
		"init":      "2024030100",
		"lead":      "6",
	})
	require.False(t, res.IsError, resultText(res))
	text := resultText(res)
	assert.Contains(t, text, "P850")
	assert.Contains(t, text, "APCP_06H")

	res = callTool(t, nil, "resolve_field_specs", map[string]any{"config": config, "init": "2024030100", "valid": "2024030106"})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(res), "cannot be used together")
}

func TestMCPServer_ValidateFields(t *testing.T) {
	res := callTool(t, nil, "validate_fields", map[string]any{"config": "BOTH_VAR1_NAME = TMP\nFCST_VAR1_NAME = TMP"})
	require.False(t, res.IsError, resultText(res))

	var got struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &got))
	assert.False(t, got.OK)

	res = callTool(t, nil, "validate_fields", map[string]any{"config": "FCST_VAR1_NAME = TMP\nOBS_VAR1_NAME = TMP"})
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &got))
	assert.True(t, got.OK)

	res = callTool(t, nil, "validate_fields", map[string]any{"config": "not a setting"})
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(res), "invalid config")
}
