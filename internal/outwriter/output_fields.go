package outwriter

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/huangsam/metplus/internal/contract"
	"github.com/huangsam/metplus/internal/parquet"
	"github.com/huangsam/metplus/schema"
)

var fieldCSVHeader = []string{
	"field_index", "level_index", "data_type", "name", "level", "thresholds", "extra_options", "output_name",
}

// WriteFields renders accepted field specs followed by skipped indices.
func WriteFields(w io.Writer, result schema.FieldResult, cfg *contract.Config) error {
	rows := parquet.FieldRows(result)

	switch cfg.Output {
	case schema.JSONOut:
		return writeJSON(w, result)
	case schema.CSVOut:
		data := make([][]string, len(rows))
		for i, r := range rows {
			data[i] = fieldRecord(r)
		}
		return writeCSVWithHeader(w, fieldCSVHeader, data)
	case schema.ParquetOut:
		return writeParquet(w, rows)
	}

	maxWidth := GetMaxTableTextWidth(cfg)
	var data [][]string
	for _, r := range rows {
		data = append(data, []string{
			r.FieldIndex,
			strconv.Itoa(int(r.LevelIndex) + 1),
			r.DataType,
			contract.TruncateText(r.Name, maxWidth),
			r.Level,
			r.Thresholds,
			contract.TruncateText(r.ExtraOptions, maxWidth),
			r.OutputName,
		})
	}
	headers := []string{"Index", "Level #", "Type", "Name", "Level", "Thresholds", "Options", "Output Name"}
	if err := writeTable(w, headers, data); err != nil {
		return err
	}
	if err := writeSkipped(w, result.Skipped, cfg); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Resolved %d field entries from %d indices (%d skipped)\n",
		len(result.Entries), len(result.Indices()), len(result.Skipped))
	return err
}

// writeSkipped lists skipped indices with their reasons and rewrites.
func writeSkipped(w io.Writer, skipped []schema.SkippedField, cfg *contract.Config) error {
	for _, s := range skipped {
		label := statusLabel(contract.WarnValue, cfg)
		name := "VAR" + s.Index
		if s.DataType != "" {
			name = string(s.DataType) + "_" + name
		}
		if _, err := fmt.Fprintf(w, "%s %s: %s\n", label, name, s.Reason); err != nil {
			return err
		}
		for _, rw := range s.Rewrites {
			if _, err := fmt.Fprintf(w, "    suggested: %s\n", rw); err != nil {
				return err
			}
		}
	}
	return nil
}

func fieldRecord(r parquet.PlanField) []string {
	return []string{
		r.FieldIndex,
		strconv.Itoa(int(r.LevelIndex)),
		r.DataType,
		r.Name,
		r.Level,
		r.Thresholds,
		r.ExtraOptions,
		r.OutputName,
	}
}

// joinNonEmpty joins the non-empty parts with sep.
func joinNonEmpty(sep string, parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
