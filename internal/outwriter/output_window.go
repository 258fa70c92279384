package outwriter

import (
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/metplus/internal/contract"
	"github.com/huangsam/metplus/schema"
)

// WriteWindow renders the loop mode, bounds and interval of the time loop.
func WriteWindow(w io.Writer, window schema.TimeWindow, cfg *contract.Config) error {
	times := window.Times()

	switch cfg.Output {
	case schema.JSONOut:
		type jsonWindow struct {
			schema.TimeWindow
			Ticks []string `json:"ticks"`
		}
		out := jsonWindow{TimeWindow: window, Ticks: make([]string, len(times))}
		for i, t := range times {
			out.Ticks[i] = t.Format(contract.DateTimeFormat)
		}
		return writeJSON(w, out)
	case schema.CSVOut:
		var data [][]string
		for i, t := range times {
			data = append(data, []string{strconv.Itoa(i + 1), string(window.LoopBy), t.Format(contract.DateTimeFormat)})
		}
		return writeCSVWithHeader(w, []string{"tick", "loop_by", "time"}, data)
	case schema.ParquetOut:
		return errUnsupported(cfg, "window")
	}

	data := [][]string{{
		string(window.LoopBy),
		window.Start.Format(contract.DateTimeFormat),
		window.End.Format(contract.DateTimeFormat),
		window.Interval.String(),
		strconv.Itoa(len(times)),
	}}
	if err := writeTable(w, []string{"Loop By", "Start", "End", "Interval", "Ticks"}, data); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Looping by %s time over %d ticks\n", window.LoopBy, len(times))
	return err
}
