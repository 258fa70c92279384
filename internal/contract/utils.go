package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fatih/color"
)

// Status label constants.
const (
	OKValue      = "OK"      // resolved cleanly
	SkippedValue = "Skipped" // dropped by skip times or field rules
	WarnValue    = "Warn"    // resolved with diagnostics
	ErrorValue   = "Error"   // failed to resolve
)

// Color variables for console output.
var (
	ErrorColor   = color.New(color.FgRed, color.Bold) // ErrorColor marks failed validation.
	WarnColor    = color.New(color.FgYellow)          // WarnColor marks skipped indices.
	SkippedColor = color.New(color.FgMagenta)         // SkippedColor marks skipped ticks.
	OKColor      = color.New(color.FgCyan)            // OKColor marks resolved rows.
)

// GetColorLabel returns a colored status label for console output (table).
func GetColorLabel(label string) string {
	switch label {
	case ErrorValue:
		return ErrorColor.Sprint(label)
	case WarnValue:
		return WarnColor.Sprint(label)
	case SkippedValue:
		return SkippedColor.Sprint(label)
	default:
		return OKColor.Sprint(label)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. It returns os.Stdout when no path is given.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetHistoryDBFilePath returns the path to the SQLite DB file for run history.
func GetHistoryDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".metplus_history.db"
	}
	return filepath.Join(homeDir, ".metplus_history.db")
}

// TruncateText truncates text to a maximum width with an ellipsis suffix.
// Requires maxWidth > 3 so there is room for the ellipsis and some content.
func TruncateText(text string, maxWidth int) string {
	runes := []rune(text)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return text
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "1", "y", "t":
		return true, nil
	case "no", "false", "0", "n", "f":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}

// IsPythonScript reports whether any space-separated word of name ends in
// ".py", which marks a python embedding field.
func IsPythonScript(name string) bool {
	for _, word := range strings.Fields(name) {
		if strings.HasSuffix(word, ".py") {
			return true
		}
	}
	return false
}

// FormatLevel makes a level safe for file names: "*" becomes "all" and
// commas become underscores.
func FormatLevel(level string) string {
	return strings.ReplaceAll(strings.ReplaceAll(level, "*", "all"), ",", "_")
}

var levelRegex = regexp.MustCompile(`^(\w)(\d+)$`)

// SplitLevel splits a level such as "P500" into its type letter and value.
func SplitLevel(level string) (string, string, bool) {
	m := levelRegex.FindStringSubmatch(level)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

var (
	camelWordRegex  = regexp.MustCompile(`([^\d])([A-Z][a-z]+)`)
	camelLowerRegex = regexp.MustCompile(`([a-z])([A-Z])`)
)

// CamelToUnderscore converts "GridStat" to "grid_stat" and "PCPCombine" to
// "pcp_combine". Digits stick to the preceding word, so "Point2Grid" stays
// "point2grid".
func CamelToUnderscore(s string) string {
	s = camelWordRegex.ReplaceAllString(s, "${1}_${2}")
	return strings.ToLower(camelLowerRegex.ReplaceAllString(s, "${1}_${2}"))
}
