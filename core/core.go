// Package core resolves METplus time loops, forecast leads and field
// specifications from a configuration store, and runs the commands built on
// top of them.
package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/huangsam/metplus/internal/contract"
	"github.com/huangsam/metplus/internal/outwriter"
	"github.com/huangsam/metplus/schema"
)

// ErrCheckFailed is returned by ExecuteCheck when validation finds issues.
var ErrCheckFailed = errors.New("field validation failed")

// ExecutorFunc defines the function signature for commands that render one
// resolution of the loaded configuration.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, store contract.ConfigStore) error

// ExecutePlan resolves the full plan, records it in the run history and
// prints it. It serves as the main entry point for the 'plan' command.
func ExecutePlan(ctx context.Context, cfg *contract.Config, store contract.ConfigStore, mgr contract.HistoryManager) error {
	start := time.Now()
	plan, err := BuildPlan(ctx, store, PlanOptions{Clock: cfg.ClockTime})
	if err != nil {
		return err
	}
	duration := time.Since(start)

	for _, tick := range plan.Ticks {
		for _, run := range tick.Runs {
			logSkippedFields(ctx, run.Process.String(), run.Fields.Skipped)
		}
	}
	if err := recordPlan(mgr, plan, cfg, store, start); err != nil {
		loggerFrom(ctx).Warn().Err(err).Str("run_uuid", plan.RunID).Msg("failed to record plan history")
	}
	return outwriter.NewOutWriter().WritePlan(plan, cfg, duration)
}

// ExecuteLeads resolves the lead sequence for the tick given by --init or
// --valid and prints it.
func ExecuteLeads(ctx context.Context, cfg *contract.Config, store contract.ConfigStore) error {
	ref, err := clockFor(store, cfg)
	if err != nil {
		return err
	}
	seq, err := ResolveLeadSequence(store, LeadOptions{
		Context:   tickContext(cfg),
		Reference: ref,
		Wildcard:  cfg.Wildcard,
	})
	if err != nil {
		return err
	}

	var groups []schema.LeadGroup
	if cfg.Groups {
		if groups, err = ResolveLeadGroups(store); err != nil {
			return err
		}
	}
	loggerFrom(ctx).Debug().Strs("leads", seq.Strings()).Msg("resolved lead sequence")
	return outwriter.NewOutWriter().WriteLeads(seq, groups, ref, cfg)
}

// ExecuteWindow resolves the outer time loop and prints it.
func ExecuteWindow(ctx context.Context, cfg *contract.Config, store contract.ConfigStore) error {
	clock, err := clockFor(store, cfg)
	if err != nil {
		return err
	}
	window, err := ResolveTimeWindow(store, clock)
	if err != nil {
		return err
	}
	loggerFrom(ctx).Debug().
		Str("loop_by", string(window.LoopBy)).
		Time("start", window.Start).
		Time("end", window.End).
		Msg("resolved time window")
	return outwriter.NewOutWriter().WriteWindow(window, cfg)
}

// ExecuteFields resolves the field specifications for --tool and
// --data-type and prints them.
func ExecuteFields(ctx context.Context, cfg *contract.Config, store contract.ConfigStore) error {
	var ti *schema.TimeInfo
	if t := tickContext(cfg); t != nil {
		completed := t.Complete()
		ti = &completed
	}
	result, err := ResolveFieldSpecs(store, FieldOptions{
		DataType:       cfg.DataType,
		Tool:           cfg.Tool,
		Context:        ti,
		SkipValidation: SkipFieldValidation(store),
	})
	if err != nil {
		return err
	}
	logSkippedFields(ctx, cfg.Tool, result.Skipped)
	return outwriter.NewOutWriter().WriteFields(result, cfg)
}

// ExecuteCheck validates field pairing and prints the report. It returns
// ErrCheckFailed when any issue is found so the command exits non-zero.
func ExecuteCheck(ctx context.Context, cfg *contract.Config, store contract.ConfigStore) error {
	report := CheckFieldInfo(store, cfg.Tool)
	if err := outwriter.NewOutWriter().WriteValidation(report, cfg); err != nil {
		return err
	}
	if !report.OK() {
		for _, issue := range report.Issues {
			loggerFrom(ctx).Debug().Str("index", issue.Index).Str("code", issue.Code).Msg(issue.Message)
		}
		return fmt.Errorf("%w: %d issue(s)", ErrCheckFailed, len(report.Issues))
	}
	return nil
}

// ExecuteList parses a list expression and prints its items.
func ExecuteList(_ context.Context, cfg *contract.Config, text string) error {
	items := contract.ParseList(text, !cfg.NoExpand)
	return outwriter.NewOutWriter().WriteList(items, cfg)
}

// ExecuteDuration parses a relative time and prints its components.
func ExecuteDuration(_ context.Context, cfg *contract.Config, text string) error {
	d, err := schema.ParseDuration(text, cfg.DurationUnit)
	if err != nil {
		return err
	}
	ref := cfg.DurationAt
	if ref.IsZero() {
		ref = cfg.ClockTime
	}
	if ref.IsZero() {
		ref = time.Now().UTC()
	}
	return outwriter.NewOutWriter().WriteDuration(text, d, ref, cfg)
}

// clockFor returns CLOCK_TIME, or the configured clock, or now.
func clockFor(store contract.ConfigStore, cfg *contract.Config) (time.Time, error) {
	fallback := cfg.ClockTime
	if fallback.IsZero() {
		fallback = time.Now()
	}
	clock, err := ClockTime(store, fallback)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read CLOCK_TIME: %w", err)
	}
	return clock, nil
}

// tickContext builds a loop context from --init or --valid.
func tickContext(cfg *contract.Config) *schema.TimeInfo {
	switch {
	case !cfg.LeadInit.IsZero():
		return &schema.TimeInfo{Init: cfg.LeadInit}
	case !cfg.LeadValid.IsZero():
		return &schema.TimeInfo{Valid: cfg.LeadValid}
	}
	return nil
}

// recordPlan stores the plan in the run history when one is configured.
func recordPlan(mgr contract.HistoryManager, plan schema.Plan, cfg *contract.Config, store contract.ConfigStore, start time.Time) error {
	if mgr == nil {
		return nil
	}
	hs := mgr.GetHistoryStore()
	if hs == nil {
		return nil
	}

	runID, err := hs.BeginRun(start, plan, configParams(cfg, store))
	if err != nil {
		return err
	}
	for _, tick := range plan.Ticks {
		for _, run := range tick.Runs {
			if err := hs.RecordFields(runID, tick.Time, run); err != nil {
				return err
			}
		}
	}
	return hs.EndRun(runID, time.Now(), plan)
}

// configSnapshotter is implemented by stores that can dump their raw values.
type configSnapshotter interface {
	Snapshot() map[string]map[string]string
}

// configParams captures the settings a plan was resolved with, including the
// merged configuration when the store can provide it.
func configParams(cfg *contract.Config, store contract.ConfigStore) map[string]any {
	params := map[string]any{
		"config_files": cfg.ConfigFiles,
		"overrides":    cfg.Overrides,
		"output":       string(cfg.Output),
	}
	if !cfg.ClockTime.IsZero() {
		params["clock_time"] = cfg.ClockTime.Format(contract.DateTimeFormat)
	}
	if snap, ok := store.(configSnapshotter); ok {
		params["config"] = snap.Snapshot()
	}
	return params
}

// logSkippedFields reports every skipped index and its suggested rewrites.
func logSkippedFields(ctx context.Context, scope string, skipped []schema.SkippedField) {
	logger := loggerFrom(ctx)
	for _, s := range skipped {
		event := logger.Warn().Str("index", s.Index).Str("code", s.Code)
		if scope != "" {
			event = event.Str("scope", scope)
		}
		if s.DataType != "" {
			event = event.Str("data_type", string(s.DataType))
		}
		if len(s.Rewrites) > 0 {
			event = event.Strs("suggested_rewrites", s.Rewrites)
		}
		event.Msg(s.Reason)
	}
}
