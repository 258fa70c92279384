package schema

import "time"

// Process is one PROCESS_LIST entry.
type Process struct {
	Name     string `json:"name"`
	Instance string `json:"instance,omitempty"`
	Tool     string `json:"tool"`
}

// String renders the process as it is written in PROCESS_LIST.
func (p Process) String() string {
	if p.Instance == "" {
		return p.Name
	}
	return p.Name + "(" + p.Instance + ")"
}

// Plan is the fully resolved work of one configuration: every loop tick,
// the leads at each tick, and the fields each process would receive.
type Plan struct {
	RunID     string     `json:"run_id"`
	Clock     time.Time  `json:"clock"`
	Window    TimeWindow `json:"window"`
	Processes []Process  `json:"processes"`
	Ticks     []PlanTick `json:"ticks"`
}

// PlanTick is one iteration of the outer time loop.
type PlanTick struct {
	Time    time.Time    `json:"time"`
	Skipped bool         `json:"skipped"`
	Leads   LeadSequence `json:"leads"`
	Runs    []PlanRun    `json:"runs,omitempty"`
}

// PlanRun is one process invocation at one tick and lead.
// Lead is nil when the lead sequence is a wildcard.
type PlanRun struct {
	Process Process           `json:"process"`
	Init    time.Time         `json:"init,omitzero"`
	Valid   time.Time         `json:"valid,omitzero"`
	Lead    *RelativeDuration `json:"lead,omitempty"`
	Fields  FieldResult       `json:"fields"`
}

// LeadString renders the run's lead, "*" for a wildcard run.
func (r PlanRun) LeadString() string {
	if r.Lead == nil {
		return "*"
	}
	return r.Lead.String()
}

// TotalRuns counts the runs across all ticks.
func (p Plan) TotalRuns() int {
	n := 0
	for _, t := range p.Ticks {
		n += len(t.Runs)
	}
	return n
}

// TotalFields counts the accepted field entries across all runs.
func (p Plan) TotalFields() int {
	n := 0
	for _, t := range p.Ticks {
		for _, r := range t.Runs {
			n += len(r.Fields.Entries)
		}
	}
	return n
}

// SkippedTicks counts ticks removed by skip times.
func (p Plan) SkippedTicks() int {
	n := 0
	for _, t := range p.Ticks {
		if t.Skipped {
			n++
		}
	}
	return n
}

// ValidationIssue is one failed pairing rule found by field validation.
type ValidationIssue struct {
	Index     string   `json:"index"`
	Tool      string   `json:"tool,omitempty"`
	Attribute string   `json:"attribute"`
	Code      string   `json:"code"`
	Message   string   `json:"message"`
	Rewrites  []string `json:"suggested_rewrites,omitempty"`
}

// ValidationReport collects every issue found in one configuration.
type ValidationReport struct {
	Checked int               `json:"checked"`
	Skipped bool              `json:"skipped"`
	Issues  []ValidationIssue `json:"issues"`
}

// OK reports whether the configuration passed validation.
func (r ValidationReport) OK() bool {
	return len(r.Issues) == 0
}
