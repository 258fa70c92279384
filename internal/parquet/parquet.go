// Package parquet provides data structures and functions for exporting
// resolved plans and run history to Parquet files using
// github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/huangsam/metplus/internal/contract"
	"github.com/huangsam/metplus/schema"
	"github.com/parquet-go/parquet-go"
)

// PlanRun represents a single recorded plan with its window.
// This struct maps to the metplus_plan_runs database table.
type PlanRun struct {
	// RunID is the database identifier of the plan run
	RunID int64 `parquet:"run_id,snappy"`

	// RunUUID is the identifier assigned when the plan was built
	RunUUID string `parquet:"run_uuid,snappy"`

	// StartTime is when recording began (stored as TIMESTAMP with nanosecond precision)
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when recording completed (nullable)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is the duration of the recording in milliseconds (nullable)
	RunDurationMs *int32 `parquet:"run_duration_ms,optional,snappy"`

	// LoopBy is init or valid
	LoopBy string `parquet:"loop_by,snappy,dict"`

	WindowStart time.Time `parquet:"window_start,snappy"`
	WindowEnd   time.Time `parquet:"window_end,snappy"`
	Interval    string    `parquet:"interval,snappy,dict"`

	TotalTicks  int32 `parquet:"total_ticks,snappy"`
	TotalRuns   int32 `parquet:"total_runs,snappy"`
	TotalFields int32 `parquet:"total_fields,snappy"`

	// ConfigParams contains the JSON-encoded configuration parameters (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// PlanField is one resolved field of one process run.
// This struct maps to the metplus_plan_fields database table.
type PlanField struct {
	RunID        int64     `parquet:"run_id,snappy"`
	TickTime     time.Time `parquet:"tick_time,snappy"`
	Process      string    `parquet:"process,snappy,dict"`
	Lead         string    `parquet:"lead,snappy,dict"`
	FieldIndex   string    `parquet:"field_index,snappy,dict"`
	LevelIndex   int32     `parquet:"level_index,snappy"`
	DataType     string    `parquet:"data_type,snappy,dict"`
	Name         string    `parquet:"name,snappy"`
	Level        string    `parquet:"level,snappy"`
	Thresholds   string    `parquet:"thresholds,snappy"`
	ExtraOptions string    `parquet:"extra_options,snappy"`
	OutputName   string    `parquet:"output_name,snappy"`

	// LevelTag is the level as it appears in output file names
	LevelTag string `parquet:"level_tag,snappy"`

	// ThreshLetters holds the thresholds in letter notation, e.g. "ge5&&lt10"
	ThreshLetters string `parquet:"thresh_letters,snappy"`
}

// SkippedField is one VAR index dropped from a process run.
// This struct maps to the metplus_skipped_fields database table.
type SkippedField struct {
	RunID      int64     `parquet:"run_id,snappy"`
	TickTime   time.Time `parquet:"tick_time,snappy"`
	Process    string    `parquet:"process,snappy,dict"`
	Lead       string    `parquet:"lead,snappy,dict"`
	FieldIndex string    `parquet:"field_index,snappy"`
	DataType   string    `parquet:"data_type,snappy,dict"`
	Code       string    `parquet:"code,snappy,dict"`
	Reason     string    `parquet:"reason,snappy"`
}

// Lead is one entry of a resolved lead sequence.
type Lead struct {
	Position int32  `parquet:"position,snappy" json:"position"`
	Lead     string `parquet:"lead,snappy" json:"lead"`
	Seconds  int64  `parquet:"seconds,snappy" json:"seconds"`
	Wildcard bool   `parquet:"wildcard,snappy" json:"wildcard"`
}

// Write writes rows of any struct type to w using struct schema inference.
func Write[T any](w io.Writer, data []T) error {
	writer := parquet.NewGenericWriter[T](w)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// WriteFile writes rows of any struct type to a new Parquet file.
func WriteFile[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()
	return Write(file, data)
}

// WritePlanRunsParquet writes a slice of PlanRun structs to a Parquet file.
func WritePlanRunsParquet(data []PlanRun, outputPath string) error {
	return WriteFile(data, outputPath)
}

// WritePlanFieldsParquet writes a slice of PlanField structs to a Parquet file.
func WritePlanFieldsParquet(data []PlanField, outputPath string) error {
	return WriteFile(data, outputPath)
}

// WriteSkippedFieldsParquet writes a slice of SkippedField structs to a Parquet file.
func WriteSkippedFieldsParquet(data []SkippedField, outputPath string) error {
	return WriteFile(data, outputPath)
}

// ConvertPlanRunRecords converts schema.PlanRunRecord to PlanRun for Parquet export.
func ConvertPlanRunRecords(records []schema.PlanRunRecord) []PlanRun {
	result := make([]PlanRun, len(records))
	for i, record := range records {
		result[i] = PlanRun{
			RunID:         record.RunID,
			RunUUID:       record.RunUUID,
			StartTime:     record.StartTime,
			EndTime:       record.EndTime,
			RunDurationMs: record.RunDurationMs,
			LoopBy:        record.LoopBy,
			WindowStart:   record.WindowStart,
			WindowEnd:     record.WindowEnd,
			Interval:      record.Interval,
			TotalTicks:    record.TotalTicks,
			TotalRuns:     record.TotalRuns,
			TotalFields:   record.TotalFields,
			ConfigParams:  record.ConfigParams,
		}
	}
	return result
}

// ConvertPlanFieldRecords converts schema.PlanFieldRecord to PlanField for Parquet export.
func ConvertPlanFieldRecords(records []schema.PlanFieldRecord) []PlanField {
	result := make([]PlanField, len(records))
	for i, r := range records {
		result[i] = PlanField{
			RunID:        r.RunID,
			TickTime:     r.TickTime,
			Process:      r.Process,
			Lead:         r.Lead,
			FieldIndex:   r.FieldIndex,
			LevelIndex:   r.LevelIndex,
			DataType:     r.DataType,
			Name:         r.Name,
			Level:        r.Level,
			Thresholds:   r.Thresholds,
			ExtraOptions: r.ExtraOptions,
			OutputName:   r.OutputName,

			LevelTag:      contract.FormatLevel(r.Level),
			ThreshLetters: letterThresholds(r.Thresholds),
		}
	}
	return result
}

// letterThresholds converts a stored comma separated threshold list. Items
// that no longer parse are kept as stored.
func letterThresholds(raw string) string {
	if raw == "" {
		return ""
	}
	var out []string
	for item := range strings.SplitSeq(raw, ",") {
		th, err := schema.ParseThreshold(item)
		if err != nil {
			out = append(out, item)
			continue
		}
		out = append(out, th.LetterFormat())
	}
	return strings.Join(out, ",")
}

func joinLetters(ths []schema.Threshold) string {
	out := make([]string, len(ths))
	for i, th := range ths {
		out[i] = th.LetterFormat()
	}
	return strings.Join(out, ",")
}

// ConvertSkippedFieldRecords converts schema.SkippedFieldRecord to SkippedField for Parquet export.
func ConvertSkippedFieldRecords(records []schema.SkippedFieldRecord) []SkippedField {
	result := make([]SkippedField, len(records))
	for i, r := range records {
		result[i] = SkippedField(r)
	}
	return result
}

// FieldRows flattens a field result into rows. The run columns are left
// for the caller to fill.
func FieldRows(result schema.FieldResult) []PlanField {
	var rows []PlanField
	for _, entry := range result.Entries {
		for _, spec := range entry.Specs {
			rows = append(rows, PlanField{
				FieldIndex:   entry.Index,
				LevelIndex:   int32(entry.LevelIndex),
				DataType:     string(spec.DataType),
				Name:         spec.Name,
				Level:        spec.Level,
				Thresholds:   strings.Join(spec.ThresholdStrings(), ","),
				ExtraOptions: spec.ExtraOptions,
				OutputName:   spec.OutputName,

				LevelTag:      contract.FormatLevel(spec.Level),
				ThreshLetters: joinLetters(spec.Thresholds),
			})
		}
	}
	return rows
}

// PlanRows flattens every process run of a plan into field rows.
func PlanRows(plan schema.Plan) []PlanField {
	var rows []PlanField
	for _, tick := range plan.Ticks {
		for _, run := range tick.Runs {
			for _, row := range FieldRows(run.Fields) {
				row.TickTime = tick.Time
				row.Process = run.Process.String()
				row.Lead = run.LeadString()
				rows = append(rows, row)
			}
		}
	}
	return rows
}

// LeadRows converts a lead sequence into rows; seconds are measured at ref.
func LeadRows(seq schema.LeadSequence, ref time.Time) []Lead {
	if seq.Wildcard {
		return []Lead{{Lead: "*", Wildcard: true}}
	}
	rows := make([]Lead, len(seq.Leads))
	for i, lead := range seq.Leads {
		rows[i] = Lead{Position: int32(i), Lead: lead.String(), Seconds: lead.ToSeconds(ref)}
	}
	return rows
}
