package contract

import (
	"time"

	"github.com/huangsam/metplus/schema"
	"github.com/ncruces/go-strftime"
)

// Timestamp formats used by METplus configuration.
const (
	ClockTimeFormat   = "%Y%m%d%H%M%S"
	DefaultTagFormat  = "%Y%m%d%H%M%S"
	TodayFormat       = "%Y%m%d"
	DefaultLeadFormat = "%H"
)

// DateTimeFormat is the default date time representation in output.
var DateTimeFormat = time.RFC3339

// FormatTime renders t with a strftime format such as "%Y%m%d%H".
func FormatTime(format string, t time.Time) string {
	return strftime.Format(format, t)
}

// ParseTime parses value with a strftime format. The result is in UTC.
func ParseTime(format, value string) (time.Time, error) {
	t, err := strftime.Parse(format, value)
	if err != nil {
		return time.Time{}, schema.WrapResolveError(schema.ErrCodeInvalidTime, err, "time %q does not match format %q", value, format)
	}
	return t.UTC(), nil
}
