package outwriter

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/huangsam/metplus/internal/contract"
	"github.com/huangsam/metplus/internal/parquet"
	"github.com/huangsam/metplus/schema"
)

// WriteLeads renders a lead sequence. Seconds are measured at ref, and each
// lead is labeled with the first group that contains it.
func WriteLeads(w io.Writer, seq schema.LeadSequence, groups []schema.LeadGroup, ref time.Time, cfg *contract.Config) error {
	rows := parquet.LeadRows(seq, ref)

	switch cfg.Output {
	case schema.JSONOut:
		type jsonLeads struct {
			Leads    []parquet.Lead     `json:"leads"`
			Wildcard bool               `json:"wildcard"`
			Groups   []schema.LeadGroup `json:"groups,omitempty"`
		}
		return writeJSON(w, jsonLeads{Leads: rows, Wildcard: seq.Wildcard, Groups: groups})
	case schema.CSVOut:
		var data [][]string
		for _, r := range rows {
			data = append(data, []string{
				strconv.Itoa(int(r.Position)),
				r.Lead,
				strconv.FormatInt(r.Seconds, 10),
				strconv.FormatBool(r.Wildcard),
				groupLabel(groups, r, ref),
			})
		}
		return writeCSVWithHeader(w, []string{"position", "lead", "seconds", "wildcard", "group"}, data)
	case schema.ParquetOut:
		return writeParquet(w, rows)
	}

	headers := []string{"#", "Lead", "Seconds"}
	if len(groups) > 0 {
		headers = append(headers, "Group")
	}
	var data [][]string
	for _, r := range rows {
		seconds := strconv.FormatInt(r.Seconds, 10)
		if r.Wildcard {
			seconds = "-"
		}
		row := []string{strconv.Itoa(int(r.Position) + 1), r.Lead, seconds}
		if len(groups) > 0 {
			row = append(row, groupLabel(groups, r, ref))
		}
		data = append(data, row)
	}
	if err := writeTable(w, headers, data); err != nil {
		return err
	}
	if seq.Wildcard {
		_, err := fmt.Fprintln(w, "No leads configured; every lead is matched")
		return err
	}
	_, err := fmt.Fprintf(w, "Resolved %d leads\n", len(seq.Leads))
	return err
}

// groupLabel returns the label of the first group holding the lead.
func groupLabel(groups []schema.LeadGroup, row parquet.Lead, ref time.Time) string {
	for _, g := range groups {
		for _, lead := range g.Leads {
			if lead.ToSeconds(ref) == row.Seconds {
				return g.Label
			}
		}
	}
	return ""
}
