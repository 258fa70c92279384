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

// WritePlan renders one row per process run, or one row per skipped tick.
func WritePlan(w io.Writer, plan schema.Plan, cfg *contract.Config, duration time.Duration) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeJSON(w, plan)
	case schema.CSVOut:
		rows := parquet.PlanRows(plan)
		data := make([][]string, len(rows))
		for i, r := range rows {
			data[i] = append([]string{r.TickTime.Format(contract.DateTimeFormat), r.Process, r.Lead}, fieldRecord(r)...)
		}
		return writeCSVWithHeader(w, append([]string{"tick_time", "process", "lead"}, fieldCSVHeader...), data)
	case schema.ParquetOut:
		return writeParquet(w, parquet.PlanRows(plan))
	}

	var data [][]string
	for _, tick := range plan.Ticks {
		tickTime := tick.Time.Format(contract.DateTimeFormat)
		if tick.Skipped {
			data = append(data, []string{tickTime, statusLabel(contract.SkippedValue, cfg), "", "", "", "", "", ""})
			continue
		}
		for _, run := range tick.Runs {
			status := contract.OKValue
			if len(run.Fields.Skipped) > 0 {
				status = contract.WarnValue
			}
			data = append(data, []string{
				tickTime,
				statusLabel(status, cfg),
				run.Process.String(),
				run.LeadString(),
				formatTimeCell(run.Init),
				formatTimeCell(run.Valid),
				strconv.Itoa(len(run.Fields.Entries)),
				strconv.Itoa(len(run.Fields.Skipped)),
			})
		}
	}
	headers := []string{"Tick", "Status", "Process", "Lead", "Init", "Valid", "Fields", "Skipped"}
	if err := writeTable(w, headers, data); err != nil {
		return err
	}

	summary := joinNonEmpty(", ",
		fmt.Sprintf("%d ticks", len(plan.Ticks)),
		skippedSummary(plan.SkippedTicks()),
		fmt.Sprintf("%d runs", plan.TotalRuns()),
		fmt.Sprintf("%d field entries", plan.TotalFields()),
	)
	if _, err := fmt.Fprintf(w, "Resolved %s\n", summary); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Plan %s looping by %s completed in %v\n", plan.RunID, plan.Window.LoopBy, duration)
	return err
}

func skippedSummary(n int) string {
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("%d skipped", n)
}

func formatTimeCell(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(contract.DateTimeFormat)
}
