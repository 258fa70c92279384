package core

import (
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/metplus/internal/contract"
	"github.com/huangsam/metplus/schema"
)

// SkipTimes maps a strftime format to the values that are skipped, for
// example {"%m": ["3", "4"], "%Y%m%d": ["20201031"]}.
type SkipTimes map[string][]string

// ResolveSkipTimes reads <TOOL>_SKIP_TIMES, falling back to SKIP_TIMES.
// Items look like "%m:begin_end_incr(3,11,1)", "%d:30,31" or "%H:0-3".
func ResolveSkipTimes(store contract.ConfigStore, tool string) (SkipTimes, error) {
	var text string
	if tool != "" {
		text = store.GetString(contract.ConfigSection, strings.ToUpper(tool)+"_SKIP_TIMES", "")
	}
	if text == "" {
		text = store.GetString(contract.ConfigSection, "SKIP_TIMES", "")
	}
	skips := make(SkipTimes)
	if text == "" {
		return skips, nil
	}

	// ranges are expanded per item so the commas they produce stay inside it
	for _, item := range contract.ParseList(text, false) {
		format, values, ok := strings.Cut(item, ":")
		if !ok || format == "" || strings.Contains(values, ":") {
			return nil, schema.NewResolveError(schema.ErrCodeInvalidSkipTime, "SKIP_TIMES item does not match format: %s", item)
		}
		skips[format] = append(skips[format], expandSkipValues(values)...)
	}
	return skips, nil
}

// expandSkipValues lists the values of one item. Dashed ranges such as
// "1-5" become every integer between the ends.
func expandSkipValues(values string) []string {
	var out []string
	for _, value := range contract.ParseList(values, true) {
		if strings.Contains(value, "-") {
			if ints := contract.ExpandIntString(value); len(ints) > 0 {
				for _, v := range ints {
					out = append(out, strconv.Itoa(v))
				}
				continue
			}
		}
		out = append(out, value)
	}
	return out
}

// ShouldSkip reports whether valid matches any skip value once formatted.
// Values are compared as integers so "%m:3" matches March.
func (s SkipTimes) ShouldSkip(valid time.Time) bool {
	if valid.IsZero() {
		return false
	}
	for format, values := range s {
		got, err := strconv.Atoi(contract.FormatTime(format, valid))
		if err != nil {
			continue
		}
		for _, value := range values {
			if want, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && want == got {
				return true
			}
		}
	}
	return false
}
