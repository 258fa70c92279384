package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/metplus/core"
	"github.com/huangsam/metplus/internal/confstore"
	"github.com/huangsam/metplus/internal/contract"
	"github.com/huangsam/metplus/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	store   contract.ConfigStore
}

// storeFor returns the store built from the config argument, falling back
// to the store loaded at startup.
func (h *toolHandler) storeFor(request mcp.CallToolRequest) (contract.ConfigStore, error) {
	if text := request.GetString("config", ""); strings.TrimSpace(text) != "" {
		store, err := confstore.ParseConfigLines(text)
		if err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		return store, nil
	}
	if h.store == nil {
		return nil, errors.New("no configuration loaded; pass settings in the config argument")
	}
	return h.store, nil
}

// clock returns the reference time for a request.
func (h *toolHandler) clock(store contract.ConfigStore, override time.Time) (time.Time, error) {
	if !override.IsZero() {
		return override, nil
	}
	fallback := time.Now()
	if h.baseCfg != nil && !h.baseCfg.ClockTime.IsZero() {
		fallback = h.baseCfg.ClockTime
	}
	return core.ClockTime(store, fallback)
}

// tickContext builds the loop context from the init and valid arguments.
func tickContext(request mcp.CallToolRequest) (*schema.TimeInfo, error) {
	init, err := contract.ParseInputTime(request.GetString("init", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid init: %w", err)
	}
	valid, err := contract.ParseInputTime(request.GetString("valid", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid valid: %w", err)
	}
	if init.IsZero() && valid.IsZero() {
		return nil, nil
	}
	if !init.IsZero() && !valid.IsZero() {
		return nil, errors.New("init and valid cannot be used together")
	}
	return &schema.TimeInfo{Init: init, Valid: valid}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleParseList(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	items := contract.ParseList(text, request.GetBool("expand", true))
	if items == nil {
		items = []string{}
	}
	return jsonResult(items)
}

func (h *toolHandler) handleParseDuration(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	unit := request.GetString("unit", "H")
	if len(unit) != 1 {
		return mcp.NewToolResultError(fmt.Sprintf("invalid unit %q", unit)), nil
	}
	at, err := contract.ParseInputTime(request.GetString("at", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid at: %v", err)), nil
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}

	d, err := schema.ParseDuration(text, unit[0])
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("parse failed: %v", err)), nil
	}

	result := map[string]any{
		"input":         text,
		"duration":      d,
		"canonical":     d.String(),
		"total_seconds": d.ToSeconds(at),
		"calendar":      d.HasCalendarComponents(),
	}
	if hours, err := d.ToHours(); err == nil {
		result["hours"] = hours
	}
	return jsonResult(result)
}

func (h *toolHandler) handleResolveLeads(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	store, err := h.storeFor(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ti, err := tickContext(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ref, err := h.clock(store, time.Time{})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid CLOCK_TIME: %v", err)), nil
	}

	seq, err := core.ResolveLeadSequence(store, core.LeadOptions{
		Context:   ti,
		Reference: ref,
		Wildcard:  request.GetBool("wildcard", false),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("lead resolution failed: %v", err)), nil
	}
	return jsonResult(map[string]any{"leads": seq.Strings(), "wildcard": seq.Wildcard})
}

func (h *toolHandler) handleResolveWindow(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	store, err := h.storeFor(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	override, err := contract.ParseInputTime(request.GetString("clock_time", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid clock_time: %v", err)), nil
	}
	clock, err := h.clock(store, override)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid CLOCK_TIME: %v", err)), nil
	}

	window, err := core.ResolveTimeWindow(store, clock)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("window resolution failed: %v", err)), nil
	}
	return jsonResult(map[string]any{"window": window, "ticks": window.Times()})
}

func (h *toolHandler) handleResolveFields(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	store, err := h.storeFor(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ti, err := tickContext(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if leadText := request.GetString("lead", ""); leadText != "" {
		lead, err := schema.ParseDuration(leadText, schema.UnitHours)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid lead: %v", err)), nil
		}
		if ti == nil {
			ti = &schema.TimeInfo{}
		}
		*ti = ti.WithLead(lead)
	}
	if ti != nil {
		completed := ti.Complete()
		ti = &completed
	}

	dataType := schema.DataType(strings.ToUpper(request.GetString("data_type", "")))
	result, err := core.ResolveFieldSpecs(store, core.FieldOptions{
		DataType:       dataType,
		Tool:           strings.ToUpper(request.GetString("tool", "")),
		Context:        ti,
		SkipValidation: core.SkipFieldValidation(store),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("field resolution failed: %v", err)), nil
	}
	return jsonResult(result)
}

func (h *toolHandler) handleValidateFields(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	store, err := h.storeFor(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	report := core.CheckFieldInfo(store, request.GetString("tool", ""))
	return jsonResult(map[string]any{"ok": report.OK(), "report": report})
}
