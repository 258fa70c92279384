package outwriter

import (
	"io"
	"strconv"
	"time"

	"github.com/huangsam/metplus/internal/contract"
	"github.com/huangsam/metplus/schema"
)

// WriteList renders the items of a parsed list expression.
func WriteList(w io.Writer, items []string, cfg *contract.Config) error {
	switch cfg.Output {
	case schema.JSONOut:
		if items == nil {
			items = []string{}
		}
		return writeJSON(w, items)
	case schema.ParquetOut:
		return errUnsupported(cfg, "list")
	}

	data := make([][]string, len(items))
	for i, item := range items {
		data[i] = []string{strconv.Itoa(i + 1), item}
	}
	if cfg.Output == schema.CSVOut {
		return writeCSVWithHeader(w, []string{"position", "item"}, data)
	}
	return writeTable(w, []string{"#", "Item"}, data)
}

// durationView is the rendered form of a parsed duration.
type durationView struct {
	Input     string `json:"input"`
	Canonical string `json:"canonical"`
	Years     int    `json:"years"`
	Months    int    `json:"months"`
	Days      int    `json:"days"`
	Hours     int    `json:"hours"`
	Minutes   int    `json:"minutes"`
	Seconds   int    `json:"seconds"`
	AtTime    string `json:"at_time"`
	Total     int64  `json:"total_seconds"`
	Calendar  bool   `json:"calendar"`
}

// WriteDuration renders a parsed duration and its length in seconds at ref.
func WriteDuration(w io.Writer, text string, d schema.RelativeDuration, ref time.Time, cfg *contract.Config) error {
	view := durationView{
		Input:     text,
		Canonical: d.String(),
		Years:     d.Years,
		Months:    d.Months,
		Days:      d.Days,
		Hours:     d.Hours,
		Minutes:   d.Minutes,
		Seconds:   d.Seconds,
		AtTime:    ref.Format(contract.DateTimeFormat),
		Total:     d.ToSeconds(ref),
		Calendar:  d.HasCalendarComponents(),
	}

	switch cfg.Output {
	case schema.JSONOut:
		return writeJSON(w, view)
	case schema.ParquetOut:
		return errUnsupported(cfg, "duration")
	}

	hours := "-"
	if h, err := d.ToHours(); err == nil {
		hours = strconv.Itoa(h)
	}
	row := []string{view.Input, view.Canonical, hours, strconv.FormatInt(view.Total, 10), view.AtTime}
	if cfg.Output == schema.CSVOut {
		return writeCSVWithHeader(w, []string{"input", "canonical", "hours", "seconds", "at_time"}, [][]string{row})
	}
	return writeTable(w, []string{"Input", "Canonical", "Hours", "Seconds", "At"}, [][]string{row})
}
