package outwriter

import (
	"fmt"
	"io"
	"strings"

	"github.com/huangsam/metplus/internal/contract"
	"github.com/huangsam/metplus/schema"
)

// WriteValidation renders the issues found by field validation together with
// suggested rewrites.
func WriteValidation(w io.Writer, report schema.ValidationReport, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		type jsonReport struct {
			OK bool `json:"ok"`
			schema.ValidationReport
		}
		return writeJSON(w, jsonReport{OK: report.OK(), ValidationReport: report})
	case schema.CSVOut:
		data := make([][]string, len(report.Issues))
		for i, issue := range report.Issues {
			data[i] = []string{issue.Index, issue.Tool, issue.Attribute, issue.Code, issue.Message, strings.Join(issue.Rewrites, "|")}
		}
		return writeCSVWithHeader(w, []string{"index", "tool", "attribute", "code", "message", "suggested_rewrites"}, data)
	case schema.ParquetOut:
		return errUnsupported(cfg, "check")
	}

	if report.Skipped {
		_, err := fmt.Fprintf(w, "%s field validation: every process only reformats data\n", statusLabel(contract.SkippedValue, cfg))
		return err
	}
	if report.OK() {
		_, err := fmt.Fprintf(w, "%s checked %d field indices\n", statusLabel(contract.OKValue, cfg), report.Checked)
		return err
	}

	maxWidth := GetMaxTableTextWidth(cfg)
	var data [][]string
	for _, issue := range report.Issues {
		data = append(data, []string{
			issue.Index,
			issue.Tool,
			issue.Attribute,
			issue.Code,
			contract.TruncateText(issue.Message, 2*maxWidth),
		})
	}
	if err := writeTable(w, []string{"Index", "Tool", "Attribute", "Code", "Message"}, data); err != nil {
		return err
	}
	for _, issue := range report.Issues {
		if len(issue.Rewrites) == 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "VAR%s suggested rewrites:\n", issue.Index); err != nil {
			return err
		}
		for _, rw := range issue.Rewrites {
			if _, err := fmt.Fprintf(w, "    %s\n", rw); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintf(w, "%s %d issues in %d field indices\n", statusLabel(contract.ErrorValue, cfg), len(report.Issues), report.Checked)
	return err
}
