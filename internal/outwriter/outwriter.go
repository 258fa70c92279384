// Package outwriter has output and writer logic.
package outwriter

import (
	"io"
	"os"
	"time"

	"github.com/huangsam/metplus/internal/contract"
	"github.com/huangsam/metplus/schema"
	"golang.org/x/term"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the core logic.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteLeads prints a lead sequence and its groups using the configured output format.
func (ow *OutWriter) WriteLeads(seq schema.LeadSequence, groups []schema.LeadGroup, ref time.Time, cfg *contract.Config) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WriteLeads(w, seq, groups, ref, cfg)
	}, "Wrote leads")
}

// WriteWindow prints the loop window using the configured output format.
func (ow *OutWriter) WriteWindow(window schema.TimeWindow, cfg *contract.Config) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WriteWindow(w, window, cfg)
	}, "Wrote window")
}

// WriteFields prints resolved field specs using the configured output format.
func (ow *OutWriter) WriteFields(result schema.FieldResult, cfg *contract.Config) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WriteFields(w, result, cfg)
	}, "Wrote fields")
}

// WritePlan prints a resolved plan using the configured output format.
func (ow *OutWriter) WritePlan(plan schema.Plan, cfg *contract.Config, duration time.Duration) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WritePlan(w, plan, cfg, duration)
	}, "Wrote plan")
}

// WriteValidation prints a field validation report using the configured output format.
func (ow *OutWriter) WriteValidation(report schema.ValidationReport, cfg *contract.Config) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WriteValidation(w, report, cfg)
	}, "Wrote validation report")
}

// WriteList prints parsed list items using the configured output format.
func (ow *OutWriter) WriteList(items []string, cfg *contract.Config) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WriteList(w, items, cfg)
	}, "Wrote list")
}

// WriteDuration prints a parsed duration using the configured output format.
func (ow *OutWriter) WriteDuration(text string, d schema.RelativeDuration, ref time.Time, cfg *contract.Config) error {
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return WriteDuration(w, text, d, ref, cfg)
	}, "Wrote duration")
}

// GetMaxTableTextWidth calculates the maximum width for free-text cells such
// as field names and extra options, based on terminal width.
func GetMaxTableTextWidth(cfg *contract.Config) int {
	var termWidth int

	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		termWidth = cfg.Width
	}

	if termWidth == 0 { // Not set by override
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Index + Type + Level + Thresholds + Output columns with borders/padding
	baseWidth := 60

	available := (termWidth - baseWidth) / 2 // Name and Options share the rest
	if available < 12 {
		return 12
	}
	if available > 60 {
		return 60
	}
	return available
}
