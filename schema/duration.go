package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// RelativeDuration is a calendar-aware offset whose components are applied
// additively. Months and years only have a length once anchored to a time,
// so two durations are compared by their net effect at a reference time.
type RelativeDuration struct {
	Years   int `json:"years,omitempty"`
	Months  int `json:"months,omitempty"`
	Days    int `json:"days,omitempty"`
	Hours   int `json:"hours,omitempty"`
	Minutes int `json:"minutes,omitempty"`
	Seconds int `json:"seconds,omitempty"`
}

// Duration unit codes. Month and minute differ only by case.
const (
	UnitYears   byte = 'Y'
	UnitMonths  byte = 'm'
	UnitDays    byte = 'd'
	UnitHours   byte = 'H'
	UnitMinutes byte = 'M'
	UnitSeconds byte = 'S'
)

var durationTokenRegex = regexp.MustCompile(`^([-+]?)(\d+)([a-zA-Z]?)`)

// ParseDuration parses text such as "3", "3H", "-30M", "1m" or "1d12H".
// A bare integer is interpreted in defaultUnit.
func ParseDuration(text string, defaultUnit byte) (RelativeDuration, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return RelativeDuration{}, NewResolveError(ErrCodeInvalidDuration, "empty duration")
	}

	var rd RelativeDuration
	for rest := s; rest != ""; {
		m := durationTokenRegex.FindStringSubmatch(rest)
		if m == nil {
			return RelativeDuration{}, NewResolveError(ErrCodeInvalidDuration, "invalid duration %q", text)
		}
		n, err := strconv.Atoi(m[2])
		if err != nil {
			return RelativeDuration{}, WrapResolveError(ErrCodeInvalidDuration, err, "invalid duration %q", text)
		}
		if m[1] == "-" {
			n = -n
		}

		unit := defaultUnit
		if m[3] != "" {
			unit = m[3][0]
		} else if m[0] != s {
			// a bare number is only allowed as the whole value
			return RelativeDuration{}, NewResolveError(ErrCodeInvalidDuration, "invalid duration %q", text)
		}

		var ok bool
		if rd, ok = rd.withComponent(unit, n); !ok {
			return RelativeDuration{}, NewResolveError(ErrCodeInvalidDuration, "invalid duration unit %q in %q", string(unit), text)
		}
		rest = rest[len(m[0]):]
	}
	return rd, nil
}

// MustParseDuration is ParseDuration for literals known to be valid.
func MustParseDuration(text string, defaultUnit byte) RelativeDuration {
	rd, err := ParseDuration(text, defaultUnit)
	if err != nil {
		panic(err)
	}
	return rd
}

// HoursDuration returns a duration of n hours.
func HoursDuration(n int) RelativeDuration {
	return RelativeDuration{Hours: n}
}

func (d RelativeDuration) withComponent(unit byte, n int) (RelativeDuration, bool) {
	switch unit {
	case UnitYears:
		d.Years += n
	case UnitMonths:
		d.Months += n
	case UnitDays:
		d.Days += n
	case UnitHours:
		d.Hours += n
	case UnitMinutes:
		d.Minutes += n
	case UnitSeconds:
		d.Seconds += n
	default:
		return d, false
	}
	return d, true
}

// AddTo adds the duration to t. Years and months are applied first and the
// day is clamped to the length of the resulting month (Jan 31 + 1m is the
// last day of February); the remaining components are fixed-length.
func (d RelativeDuration) AddTo(t time.Time) time.Time {
	if d.Years != 0 || d.Months != 0 {
		y, m, day := t.Date()
		total := y*12 + int(m) - 1 + d.Years*12 + d.Months
		ny, nm := floorDiv(total, 12), time.Month(total-floorDiv(total, 12)*12+1)
		if last := daysIn(ny, nm, t.Location()); day > last {
			day = last
		}
		hh, mm, ss := t.Clock()
		t = time.Date(ny, nm, day, hh, mm, ss, t.Nanosecond(), t.Location())
	}
	// whole days of the clock components go through AddDate so large hour
	// counts never overflow time.Duration
	secs := int64(d.Hours)*3600 + int64(d.Minutes)*60 + int64(d.Seconds)
	days := floorDiv64(secs, 86400)
	t = t.AddDate(0, 0, d.Days+int(days))
	return t.Add(time.Duration(secs-days*86400) * time.Second)
}

// SubtractFrom subtracts the duration from t.
func (d RelativeDuration) SubtractFrom(t time.Time) time.Time {
	return d.Negate().AddTo(t)
}

// Negate returns the duration with every component sign flipped.
func (d RelativeDuration) Negate() RelativeDuration {
	return RelativeDuration{
		Years:   -d.Years,
		Months:  -d.Months,
		Days:    -d.Days,
		Hours:   -d.Hours,
		Minutes: -d.Minutes,
		Seconds: -d.Seconds,
	}
}

// IsZero reports whether every component is zero.
func (d RelativeDuration) IsZero() bool {
	return d == RelativeDuration{}
}

// HasCalendarComponents reports whether the duration has years or months.
func (d RelativeDuration) HasCalendarComponents() bool {
	return d.Years != 0 || d.Months != 0
}

// ToHours returns the total whole hours of a duration without year or month
// components, rounding toward negative infinity.
func (d RelativeDuration) ToHours() (int, error) {
	if d.HasCalendarComponents() {
		return 0, NewResolveError(ErrCodeInvalidDuration, "cannot convert %s to hours without a reference time", d)
	}
	return int(floorDiv64(d.fixedSeconds(), 3600)), nil
}

// ToSeconds resolves the duration against ref and returns the elapsed seconds.
func (d RelativeDuration) ToSeconds(ref time.Time) int64 {
	return d.AddTo(ref).Unix() - ref.Unix()
}

// Equal reports whether both durations land on the same instant from ref.
func (d RelativeDuration) Equal(other RelativeDuration, ref time.Time) bool {
	return d.AddTo(ref).Equal(other.AddTo(ref))
}

// String returns a form ParseDuration accepts: a single unit when the
// duration has no calendar components, otherwise its non-zero components.
func (d RelativeDuration) String() string {
	if !d.HasCalendarComponents() {
		total := d.fixedSeconds()
		switch {
		case total%3600 == 0:
			return fmt.Sprintf("%dH", total/3600)
		case total%60 == 0:
			return fmt.Sprintf("%dM", total/60)
		default:
			return fmt.Sprintf("%dS", total)
		}
	}

	var sb strings.Builder
	parts := []struct {
		n    int
		unit byte
	}{
		{d.Years, UnitYears}, {d.Months, UnitMonths}, {d.Days, UnitDays},
		{d.Hours, UnitHours}, {d.Minutes, UnitMinutes}, {d.Seconds, UnitSeconds},
	}
	for _, p := range parts {
		if p.n != 0 {
			fmt.Fprintf(&sb, "%d%c", p.n, p.unit)
		}
	}
	return sb.String()
}

// MarshalText implements encoding.TextMarshaler.
func (d RelativeDuration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Bare integers are hours.
func (d *RelativeDuration) UnmarshalText(text []byte) error {
	rd, err := ParseDuration(string(text), UnitHours)
	if err != nil {
		return err
	}
	*d = rd
	return nil
}

var leadFormatRegex = regexp.MustCompile(`%(\d*)([HMS])`)

// FormatLead renders the duration for lead template tags. %H is the signed
// total hours, padded to two digits or to the width given as in %3H. %M and
// %S are the minutes and seconds left over. Calendar components are resolved
// against ref.
func (d RelativeDuration) FormatLead(format string, ref time.Time) string {
	total := d.ToSeconds(ref)
	sign := ""
	if total < 0 {
		sign = "-"
		total = -total
	}
	return leadFormatRegex.ReplaceAllStringFunc(format, func(tok string) string {
		m := leadFormatRegex.FindStringSubmatch(tok)
		width := 2
		if m[1] != "" {
			width, _ = strconv.Atoi(m[1])
		}
		switch m[2] {
		case "H":
			return fmt.Sprintf("%s%0*d", sign, width, total/3600)
		case "M":
			return fmt.Sprintf("%0*d", width, total%3600/60)
		default:
			return fmt.Sprintf("%0*d", width, total%60)
		}
	})
}

func (d RelativeDuration) fixedSeconds() int64 {
	return int64(d.Days)*86400 + int64(d.Hours)*3600 + int64(d.Minutes)*60 + int64(d.Seconds)
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorDiv64(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
