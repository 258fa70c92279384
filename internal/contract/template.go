package contract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/metplus/schema"
)

var templateTagRegex = regexp.MustCompile(`\{([^{}]+)\}`)

// Substitute fills the filename-template style tags of tmpl from info:
// {init?fmt=%Y%m%d%H}, {valid?fmt=...&shift=-3H}, {now?fmt=...}, {today},
// {lead?fmt=%3H}, {instance}, {custom}, {fcst_level?fmt=%2H}, {obs_level}
// and {ens_level}. Tags that cannot be filled are left in place when skipMissing
// is set and are an error otherwise.
func Substitute(tmpl string, info schema.TimeInfo, skipMissing bool) (string, error) {
	var firstErr error
	out := templateTagRegex.ReplaceAllStringFunc(tmpl, func(tag string) string {
		value, ok := substituteTag(tag[1:len(tag)-1], info)
		if ok {
			return value
		}
		if !skipMissing && firstErr == nil {
			firstErr = schema.NewResolveError(schema.ErrCodeUnknownTag, "cannot fill template tag %s in %q", tag, tmpl)
		}
		return tag
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// SubstituteAll applies Substitute to every item.
func SubstituteAll(items []string, info schema.TimeInfo, skipMissing bool) ([]string, error) {
	out := make([]string, len(items))
	for i, item := range items {
		v, err := Substitute(item, info, skipMissing)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func substituteTag(body string, info schema.TimeInfo) (string, bool) {
	name, opts := parseTagBody(body)
	switch name {
	case "init":
		return formatTimeTag(info.Init, opts, DefaultTagFormat)
	case "valid":
		return formatTimeTag(info.Valid, opts, DefaultTagFormat)
	case "now":
		return formatTimeTag(info.Now, opts, DefaultTagFormat)
	case "today":
		return formatTimeTag(info.Now, opts, TodayFormat)
	case "lead":
		if info.Lead == nil {
			return "", false
		}
		format := opts["fmt"]
		if format == "" {
			format = DefaultLeadFormat
		}
		ref := info.Init
		if ref.IsZero() {
			ref = info.Lead.SubtractFrom(info.Valid)
		}
		return info.Lead.FormatLead(format, ref), true
	case "instance":
		return info.Instance, info.Instance != ""
	case "custom":
		return info.Custom, info.Custom != ""
	}

	if dt, found := strings.CutSuffix(name, "_level"); found {
		level, ok := info.Levels[schema.DataType(strings.ToUpper(dt))]
		if !ok {
			return "", false
		}
		return formatLevelTag(level, opts["fmt"]), true
	}
	return "", false
}

// formatLevelTag applies a lead-style format to the hours of an
// accumulation level, so {fcst_level?fmt=%3H} turns A06 into 006. Levels
// without a single letter and number are returned as configured.
func formatLevelTag(level, format string) string {
	if format == "" {
		return level
	}
	_, value, ok := SplitLevel(level)
	if !ok {
		return level
	}
	hours, err := strconv.Atoi(value)
	if err != nil {
		return level
	}
	return schema.HoursDuration(hours).FormatLead(format, time.Time{})
}

// parseTagBody splits "init?fmt=%Y&shift=-3H" into its name and options.
// Options may be separated by '?' or '&'.
func parseTagBody(body string) (string, map[string]string) {
	name, rest, _ := strings.Cut(body, "?")
	opts := make(map[string]string)
	for _, part := range strings.FieldsFunc(rest, func(r rune) bool { return r == '?' || r == '&' }) {
		if k, v, ok := strings.Cut(part, "="); ok {
			opts[strings.TrimSpace(k)] = v
		}
	}
	return strings.TrimSpace(name), opts
}

func formatTimeTag(t time.Time, opts map[string]string, defaultFormat string) (string, bool) {
	if t.IsZero() {
		return "", false
	}
	if shift := opts["shift"]; shift != "" {
		rd, err := schema.ParseDuration(shift, schema.UnitSeconds)
		if err != nil {
			return "", false
		}
		t = rd.AddTo(t)
	}
	format := opts["fmt"]
	if format == "" {
		format = defaultFormat
	}
	return FormatTime(format, t), true
}
