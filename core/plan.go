package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/metplus/internal/contract"
	"github.com/huangsam/metplus/schema"
)

// PlanOptions controls BuildPlan.
type PlanOptions struct {
	// Clock is the run clock used for {now} and {today}. CLOCK_TIME in the
	// store takes precedence; a zero Clock falls back to time.Now.
	Clock time.Time
	// Processes replaces PROCESS_LIST when non-empty.
	Processes []schema.Process
}

// PlanBuilder resolves a full plan step by step.
type PlanBuilder struct {
	ctx       context.Context
	store     contract.ConfigStore
	opts      PlanOptions
	clock     time.Time
	window    schema.TimeWindow
	processes []schema.Process
	skips     map[string]SkipTimes
	ticks     []schema.PlanTick
	result    *schema.Plan
}

// NewPlanBuilder creates a new builder for plans.
func NewPlanBuilder(ctx context.Context, store contract.ConfigStore, opts PlanOptions) *PlanBuilder {
	return &PlanBuilder{
		ctx:   ctx,
		store: store,
		opts:  opts,
		skips: make(map[string]SkipTimes),
	}
}

// ResolveClock settles the clock time of the run.
func (b *PlanBuilder) ResolveClock() (*PlanBuilder, error) {
	fallback := b.opts.Clock
	if fallback.IsZero() {
		fallback = time.Now()
	}
	clock, err := ClockTime(b.store, fallback)
	if err != nil {
		return nil, fmt.Errorf("failed to read CLOCK_TIME: %w", err)
	}
	b.clock = clock
	return b, nil
}

// ResolveWindow computes the outer time loop.
func (b *PlanBuilder) ResolveWindow() (*PlanBuilder, error) {
	window, err := ResolveTimeWindow(b.store, b.clock)
	if err != nil {
		return nil, err
	}
	b.window = window
	return b, nil
}

// ResolveProcesses reads the process list and the skip times of each process.
func (b *PlanBuilder) ResolveProcesses() (*PlanBuilder, error) {
	b.processes = b.opts.Processes
	if len(b.processes) == 0 {
		b.processes = ParseProcessList(b.store)
	}
	for _, p := range b.processes {
		if _, ok := b.skips[p.Tool]; ok {
			continue
		}
		skips, err := ResolveSkipTimes(b.store, p.Tool)
		if err != nil {
			return nil, fmt.Errorf("failed to read skip times for %s: %w", p, err)
		}
		b.skips[p.Tool] = skips
	}
	return b, nil
}

// ResolveTicks walks the time loop. Lead failures stop the plan; field
// failures are kept on each run as skipped indices.
func (b *PlanBuilder) ResolveTicks() (*PlanBuilder, error) {
	for _, tick := range b.window.Times() {
		if err := b.ctx.Err(); err != nil {
			return nil, err
		}
		ti := b.window.Context(tick, b.clock, "")
		leads, err := ResolveLeadSequence(b.store, LeadOptions{Context: &ti, Reference: b.clock})
		if err != nil {
			return nil, fmt.Errorf("failed to resolve leads at %s: %w", tick.Format(contract.DateTimeFormat), err)
		}

		pt := schema.PlanTick{Time: tick, Leads: leads}
		candidates := 0
		for _, lead := range leads.Leads {
			runCtx := ti.WithLead(lead).Complete()
			for _, p := range b.processes {
				candidates++
				if b.skips[p.Tool].ShouldSkip(runCtx.Valid) {
					continue
				}
				run, err := b.resolveRun(p, runCtx)
				if err != nil {
					return nil, err
				}
				pt.Runs = append(pt.Runs, run)
			}
		}
		pt.Skipped = candidates > 0 && len(pt.Runs) == 0
		b.ticks = append(b.ticks, pt)
	}
	return b, nil
}

func (b *PlanBuilder) resolveRun(p schema.Process, ti schema.TimeInfo) (schema.PlanRun, error) {
	ti.Instance = p.Instance
	fields, err := ResolveFieldSpecs(b.store, FieldOptions{Tool: p.Tool, Context: &ti})
	if err != nil {
		return schema.PlanRun{}, fmt.Errorf("failed to resolve fields for %s: %w", p, err)
	}
	lead := ti.LeadOrZero()
	return schema.PlanRun{Process: p, Init: ti.Init, Valid: ti.Valid, Lead: &lead, Fields: fields}, nil
}

// BuildResult constructs the final Plan.
func (b *PlanBuilder) BuildResult() *PlanBuilder {
	b.result = &schema.Plan{
		RunID:     uuid.NewString(),
		Clock:     b.clock,
		Window:    b.window,
		Processes: b.processes,
		Ticks:     b.ticks,
	}
	return b
}

// GetResult returns the built Plan.
func (b *PlanBuilder) GetResult() *schema.Plan {
	return b.result
}

// BuildPlan resolves the time loop, the leads of every tick and the fields
// each process would receive, without running anything.
func BuildPlan(ctx context.Context, store contract.ConfigStore, opts PlanOptions) (schema.Plan, error) {
	builder := NewPlanBuilder(ctx, store, opts)
	steps := []func() (*PlanBuilder, error){
		builder.ResolveClock,
		builder.ResolveWindow,
		builder.ResolveProcesses,
		builder.ResolveTicks,
	}
	for _, step := range steps {
		if _, err := step(); err != nil {
			return schema.Plan{}, err
		}
	}
	return *builder.BuildResult().GetResult(), nil
}
