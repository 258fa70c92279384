package schema

import "time"

// HistoryStatus represents the status of the run history store.
type HistoryStatus struct {
	Backend          string           `json:"backend"`
	Connected        bool             `json:"connected"`
	TotalRuns        int              `json:"total_runs"`
	LastRunID        int64            `json:"last_run_id"`
	LastRunTime      time.Time        `json:"last_run_time"`
	OldestRunTime    time.Time        `json:"oldest_run_time"`
	TotalFieldsSaved int              `json:"total_fields_saved"`
	TableSizes       map[string]int64 `json:"table_sizes"`
}

// PlanRunRecord represents a row from the metplus_plan_runs table.
type PlanRunRecord struct {
	RunID         int64
	RunUUID       string
	StartTime     time.Time
	EndTime       *time.Time
	RunDurationMs *int32
	LoopBy        string
	WindowStart   time.Time
	WindowEnd     time.Time
	Interval      string
	TotalTicks    int32
	TotalRuns     int32
	TotalFields   int32
	ConfigParams  *string
}

// PlanFieldRecord represents a row from the metplus_plan_fields table.
type PlanFieldRecord struct {
	RunID        int64
	TickTime     time.Time
	Process      string
	Lead         string
	FieldIndex   string
	LevelIndex   int32
	DataType     string
	Name         string
	Level        string
	Thresholds   string
	ExtraOptions string
	OutputName   string
}

// SkippedFieldRecord represents a row from the metplus_skipped_fields table.
type SkippedFieldRecord struct {
	RunID      int64
	TickTime   time.Time
	Process    string
	Lead       string
	FieldIndex string
	DataType   string
	Code       string
	Reason     string
}
