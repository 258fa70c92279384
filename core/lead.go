package core

import (
	"regexp"
	"slices"
	"strconv"
	"time"

	"github.com/huangsam/metplus/internal/contract"
	"github.com/huangsam/metplus/schema"
)

// leadMaxSentinel stands for "no LEAD_SEQ_MAX configured".
const leadMaxSentinel = "4000Y"

const conflictingLeadMessage = "%s and %s are both listed in the configuration. Only one may be used at a time."

var leadGroupRegex = regexp.MustCompile(`^LEAD_SEQ_(\d+)`)

// LeadOptions controls ResolveLeadSequence.
type LeadOptions struct {
	// Context is the loop tick being processed. INIT_SEQ needs its Valid time.
	Context *schema.TimeInfo
	// Reference anchors the approximate LEAD_SEQ_MIN/MAX comparison.
	Reference time.Time
	// Wildcard returns a "*" sequence instead of [0] when nothing is set.
	Wildcard bool
}

// leadBounds holds LEAD_SEQ_MIN and LEAD_SEQ_MAX.
type leadBounds struct {
	min, max schema.RelativeDuration
	noMax    bool
}

// ResolveLeadSequence returns the forecast leads to process from LEAD_SEQ,
// INIT_SEQ or labeled LEAD_SEQ_<n> groups. Only one of them may be set.
func ResolveLeadSequence(store contract.ConfigStore, opts LeadOptions) (schema.LeadSequence, error) {
	bounds, err := leadMinMax(store)
	if err != nil {
		return schema.LeadSequence{}, err
	}

	leadSeq := contract.ParseList(store.GetString(contract.ConfigSection, "LEAD_SEQ", ""), true)
	initSeq, err := contract.ParseIntList(store.GetString(contract.ConfigSection, "INIT_SEQ", ""))
	if err != nil {
		return schema.LeadSequence{}, err
	}
	groups, err := ResolveLeadGroups(store)
	if err != nil {
		return schema.LeadSequence{}, err
	}

	if err := checkLeadConfigs(leadSeq, initSeq, groups, opts.Context, bounds.noMax); err != nil {
		return schema.LeadSequence{}, err
	}

	var leads []schema.RelativeDuration
	switch {
	case len(leadSeq) > 0:
		leads, err = parseLeads(leadSeq, "LEAD_SEQ")
		if err != nil {
			return schema.LeadSequence{}, err
		}
		leads = filterLeads(leads, bounds, opts.Reference)
	case len(initSeq) > 0:
		leads, err = expandInitSeq(initSeq, opts.Context.Valid, bounds)
		if err != nil {
			return schema.LeadSequence{}, err
		}
	case len(groups) > 0:
		leads = unionLeadGroups(groups, opts.Reference)
	}

	if len(leads) == 0 {
		if opts.Wildcard {
			return schema.LeadSequence{Wildcard: true}, nil
		}
		return schema.LeadSequence{Leads: []schema.RelativeDuration{{}}}, nil
	}
	return schema.LeadSequence{Leads: leads}, nil
}

// ResolveLeadGroups reads every LEAD_SEQ_<n> group ordered by n. Each group
// needs a LEAD_SEQ_<n>_LABEL.
func ResolveLeadGroups(store contract.ConfigStore) ([]schema.LeadGroup, error) {
	var indices []int
	seen := make(map[int]struct{})
	for _, key := range store.Keys(contract.ConfigSection) {
		m := leadGroupRegex.FindStringSubmatch(key)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		indices = append(indices, n)
	}
	slices.Sort(indices)

	groups := make([]schema.LeadGroup, 0, len(indices))
	for _, n := range indices {
		key := "LEAD_SEQ_" + strconv.Itoa(n)
		labelKey := key + "_LABEL"
		label, ok := store.GetRaw(contract.ConfigSection, labelKey)
		if !ok {
			return nil, schema.NewResolveError(schema.ErrCodeMissingGroupLabel, "Need to set %s to describe %s", labelKey, key)
		}
		leads, err := parseLeads(contract.ParseList(store.GetString(contract.ConfigSection, key, ""), true), key)
		if err != nil {
			return nil, err
		}
		groups = append(groups, schema.LeadGroup{Index: n, Label: label, Leads: leads})
	}
	return groups, nil
}

// checkLeadConfigs enforces that the lead styles are mutually exclusive and
// that INIT_SEQ has what it needs.
func checkLeadConfigs(leadSeq []string, initSeq []int, groups []schema.LeadGroup, ctx *schema.TimeInfo, noMax bool) error {
	if len(leadSeq) > 0 {
		if len(initSeq) > 0 {
			return schema.NewResolveError(schema.ErrCodeConflictingLeadSpec, conflictingLeadMessage, "LEAD_SEQ", "INIT_SEQ")
		}
		if len(groups) > 0 {
			return schema.NewResolveError(schema.ErrCodeConflictingLeadSpec, conflictingLeadMessage, "LEAD_SEQ", "LEAD_SEQ_<n>")
		}
	}
	if len(initSeq) > 0 && len(groups) > 0 {
		return schema.NewResolveError(schema.ErrCodeConflictingLeadSpec, conflictingLeadMessage, "INIT_SEQ", "LEAD_SEQ_<n>")
	}

	if len(initSeq) > 0 {
		if ctx == nil {
			return schema.NewResolveError(schema.ErrCodeMissingValidContext, "Cannot run using INIT_SEQ without a run time context")
		}
		if !ctx.HasValid() {
			return schema.NewResolveError(schema.ErrCodeMissingValidContext,
				"INIT_SEQ specified while looping by init time. Use LEAD_SEQ or change to loop by valid time")
		}
		if noMax {
			return schema.NewResolveError(schema.ErrCodeMissingLeadMax, "LEAD_SEQ_MAX must be set to use INIT_SEQ")
		}
	}
	return nil
}

// leadMinMax reads LEAD_SEQ_MIN (default 0) and LEAD_SEQ_MAX (default an
// effectively unbounded sentinel).
func leadMinMax(store contract.ConfigStore) (leadBounds, error) {
	minText := store.GetString(contract.ConfigSection, "LEAD_SEQ_MIN", "0")
	maxText := store.GetString(contract.ConfigSection, "LEAD_SEQ_MAX", leadMaxSentinel)

	lo, err := schema.ParseDuration(minText, schema.UnitHours)
	if err != nil {
		return leadBounds{}, schema.WrapResolveError(schema.ErrCodeInvalidDuration, err, "invalid LEAD_SEQ_MIN %q", minText)
	}
	hi, err := schema.ParseDuration(maxText, schema.UnitHours)
	if err != nil {
		return leadBounds{}, schema.WrapResolveError(schema.ErrCodeInvalidDuration, err, "invalid LEAD_SEQ_MAX %q", maxText)
	}
	return leadBounds{min: lo, max: hi, noMax: maxText == leadMaxSentinel}, nil
}

func parseLeads(items []string, key string) ([]schema.RelativeDuration, error) {
	leads := make([]schema.RelativeDuration, 0, len(items))
	for _, item := range items {
		lead, err := schema.ParseDuration(item, schema.UnitHours)
		if err != nil {
			return nil, schema.WrapResolveError(schema.ErrCodeInvalidLeadItem, err, "Invalid item %s in %s", item, key)
		}
		leads = append(leads, lead)
	}
	return leads, nil
}

// filterLeads keeps leads inside [min, max]. Month and year leads are not
// comparable without an anchor, so every value is added to ref first. The
// result depends on ref for calendar leads.
func filterLeads(leads []schema.RelativeDuration, bounds leadBounds, ref time.Time) []schema.RelativeDuration {
	lo := bounds.min.AddTo(ref)
	hi := bounds.max.AddTo(ref)
	out := make([]schema.RelativeDuration, 0, len(leads))
	for _, lead := range leads {
		at := lead.AddTo(ref)
		if !at.Before(lo) && !at.After(hi) {
			out = append(out, lead)
		}
	}
	return out
}

// expandInitSeq turns init hours into the leads that reach the valid hour,
// stepping by a day up to LEAD_SEQ_MAX.
func expandInitSeq(initSeq []int, valid time.Time, bounds leadBounds) ([]schema.RelativeDuration, error) {
	minHours, err := bounds.min.ToHours()
	if err != nil {
		return nil, err
	}
	maxHours, err := bounds.max.ToHours()
	if err != nil {
		return nil, err
	}

	validHour := valid.Hour()
	var out []schema.RelativeDuration
	for _, init := range initSeq {
		lead := validHour - init
		if validHour < init {
			lead = validHour + (24 - init)
		}
		for ; lead <= maxHours; lead += 24 {
			if lead >= minHours {
				out = append(out, schema.HoursDuration(lead))
			}
		}
	}

	slices.SortStableFunc(out, func(a, b schema.RelativeDuration) int {
		sa, sb := a.ToSeconds(valid), b.ToSeconds(valid)
		switch {
		case sa < sb:
			return -1
		case sa > sb:
			return 1
		}
		return 0
	})
	return out, nil
}

// unionLeadGroups merges groups in index order, dropping leads that are
// equal in effect to one already taken.
func unionLeadGroups(groups []schema.LeadGroup, ref time.Time) []schema.RelativeDuration {
	var out []schema.RelativeDuration
	for _, group := range groups {
		for _, lead := range group.Leads {
			dup := slices.ContainsFunc(out, func(seen schema.RelativeDuration) bool {
				return seen.Equal(lead, ref)
			})
			if !dup {
				out = append(out, lead)
			}
		}
	}
	return out
}
