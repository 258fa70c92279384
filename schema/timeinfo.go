package schema

import (
	"maps"
	"time"
)

// TimeInfo is the run-time context of one loop tick. Either Init or Valid is
// set by the time loop; Complete derives the other one from Lead.
type TimeInfo struct {
	Now      time.Time
	Init     time.Time
	Valid    time.Time
	Lead     *RelativeDuration
	Instance string
	Custom   string
	Levels   map[DataType]string
}

// HasInit reports whether an initialization time is known.
func (ti TimeInfo) HasInit() bool {
	return !ti.Init.IsZero()
}

// HasValid reports whether a valid time is known.
func (ti TimeInfo) HasValid() bool {
	return !ti.Valid.IsZero()
}

// LeadOrZero returns the lead, or a zero duration when unset.
func (ti TimeInfo) LeadOrZero() RelativeDuration {
	if ti.Lead == nil {
		return RelativeDuration{}
	}
	return *ti.Lead
}

// WithLead returns a copy of the context with the lead set.
func (ti TimeInfo) WithLead(lead RelativeDuration) TimeInfo {
	ti.Lead = &lead
	return ti
}

// WithLevels returns a copy of the context with per-type current levels.
func (ti TimeInfo) WithLevels(levels map[DataType]string) TimeInfo {
	merged := make(map[DataType]string, len(ti.Levels)+len(levels))
	maps.Copy(merged, ti.Levels)
	maps.Copy(merged, levels)
	ti.Levels = merged
	return ti
}

// Complete fills in whichever of Init or Valid is missing from the lead.
func (ti TimeInfo) Complete() TimeInfo {
	lead := ti.LeadOrZero()
	switch {
	case ti.HasInit() && !ti.HasValid():
		ti.Valid = lead.AddTo(ti.Init)
	case ti.HasValid() && !ti.HasInit():
		ti.Init = lead.SubtractFrom(ti.Valid)
	}
	ti.Lead = &lead
	return ti
}

// TimeWindow holds the bounds of the outer time loop.
type TimeWindow struct {
	LoopBy   LoopMode         `json:"loop_by"`
	Start    time.Time        `json:"start"`
	End      time.Time        `json:"end"`
	Interval RelativeDuration `json:"interval"`
}

// Times returns every loop time from Start to End inclusive. The interval is
// added to the previous tick, so month steps clamp cumulatively.
func (w TimeWindow) Times() []time.Time {
	var out []time.Time
	for t := w.Start; !t.After(w.End); t = w.Interval.AddTo(t) {
		out = append(out, t)
		if !w.Interval.AddTo(t).After(t) {
			break
		}
	}
	return out
}

// Context returns the loop context for one tick of the window.
func (w TimeWindow) Context(tick, now time.Time, instance string) TimeInfo {
	ti := TimeInfo{Now: now, Instance: instance}
	if w.LoopBy == LoopByInit {
		ti.Init = tick
	} else {
		ti.Valid = tick
	}
	return ti
}

// LeadSequence is the ordered set of leads processed at one tick.
// Wildcard means no lead loop was configured and the caller asked for "*".
type LeadSequence struct {
	Leads    []RelativeDuration `json:"leads"`
	Wildcard bool               `json:"wildcard"`
}

// Strings renders the sequence, "*" for a wildcard.
func (s LeadSequence) Strings() []string {
	if s.Wildcard {
		return []string{"*"}
	}
	out := make([]string, len(s.Leads))
	for i, lead := range s.Leads {
		out[i] = lead.String()
	}
	return out
}

// LeadGroup is one labeled LEAD_SEQ_<n> group.
type LeadGroup struct {
	Index int                `json:"index"`
	Label string             `json:"label"`
	Leads []RelativeDuration `json:"leads"`
}
