package history

import (
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/metplus/internal/parquet"
)

// ExecuteHistoryExport writes every recorded plan run, field and skipped
// field to three Parquet files named after outputFile.
func ExecuteHistoryExport(w io.Writer, store *HistoryStoreImpl, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("history is disabled; set --history-backend to export")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get history status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no history data found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total plan runs: %d\n", status.TotalRuns)
	_, _ = fmt.Fprintf(w, "Total field records: %d\n", status.TableSizes[planFieldsTable])

	runs, err := store.GetAllPlanRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve plan runs: %w", err)
	}
	fields, err := store.GetAllPlanFields()
	if err != nil {
		return fmt.Errorf("failed to retrieve plan fields: %w", err)
	}
	skipped, err := store.GetAllSkippedFields()
	if err != nil {
		return fmt.Errorf("failed to retrieve skipped fields: %w", err)
	}

	runsFile := outputFile + ".plan_runs.parquet"
	if err := parquet.WritePlanRunsParquet(parquet.ConvertPlanRunRecords(runs), runsFile); err != nil {
		return fmt.Errorf("failed to write plan runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d plan runs to: %s\n", len(runs), runsFile)

	fieldsFile := outputFile + ".plan_fields.parquet"
	if err := parquet.WritePlanFieldsParquet(parquet.ConvertPlanFieldRecords(fields), fieldsFile); err != nil {
		return fmt.Errorf("failed to write plan fields: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d field records to: %s\n", len(fields), fieldsFile)

	skippedFile := outputFile + ".skipped_fields.parquet"
	if err := parquet.WriteSkippedFieldsParquet(parquet.ConvertSkippedFieldRecords(skipped), skippedFile); err != nil {
		return fmt.Errorf("failed to write skipped fields: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d skipped field records to: %s\n", len(skipped), skippedFile)

	return nil
}
