package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/huangsam/metplus/internal/contract"
	"github.com/huangsam/metplus/schema"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver
)

// Table names for the run history.
const (
	planRunsTable      = "metplus_plan_runs"
	planFieldsTable    = "metplus_plan_fields"
	skippedFieldsTable = "metplus_skipped_fields"
)

// historyTables lists every history table, parents first.
var historyTables = []string{planRunsTable, planFieldsTable, skippedFieldsTable}

// HistoryStoreImpl implements the HistoryStore interface.
type HistoryStoreImpl struct {
	db         *sql.DB
	backend    schema.DatabaseBackend
	driverName string
}

var _ contract.HistoryStore = &HistoryStoreImpl{} // Compile-time check

// NewHistoryStore creates a new HistoryStore with the specified backend.
func NewHistoryStore(backend schema.DatabaseBackend, connStr string) (*HistoryStoreImpl, error) {
	if backend == schema.NoneBackend {
		return &HistoryStoreImpl{backend: backend}, nil
	}

	db, driverName, err := openDB(backend, connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		var connDetail string
		switch backend {
		case schema.MySQLBackend:
			connDetail = "Check that MySQL is running and the connection string is correct. Ensure user/password are valid."
		case schema.PostgreSQLBackend:
			connDetail = "Check that PostgreSQL is running and the connection string is correct. Ensure user/password are valid."
		default:
			connDetail = "Verify the database file is accessible."
		}
		return nil, fmt.Errorf("failed to connect to %s database: %w. %s", backend, err, connDetail)
	}

	if err := createHistoryTables(db, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history tables: %w", err)
	}

	return &HistoryStoreImpl{db: db, backend: backend, driverName: driverName}, nil
}

// openDB opens a connection for the backend without verifying it.
func openDB(backend schema.DatabaseBackend, connStr string) (*sql.DB, string, error) {
	switch backend {
	case schema.SQLiteBackend:
		dbPath := connStr
		if dbPath == "" {
			dbPath = contract.GetHistoryDBFilePath()
		}
		db, err := sql.Open("sqlite", dbPath)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open SQLite database at %q: %w. Check that the directory is writable", dbPath, err)
		}
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)
		return db, "sqlite", nil

	case schema.MySQLBackend:
		db, err := sql.Open("mysql", connStr)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open MySQL database: %w. Check connection string format: user:password@tcp(host:port)/dbname", err)
		}
		return db, "mysql", nil

	case schema.PostgreSQLBackend:
		db, err := sql.Open("pgx", connStr)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open PostgreSQL database: %w. Check connection string format: host=... dbname=...", err)
		}
		return db, "pgx", nil
	}
	return nil, "", fmt.Errorf("unsupported backend: %s", backend)
}

// createHistoryTables applies the first migration of the backend directly,
// so a fresh database works without running migrate first.
func createHistoryTables(db *sql.DB, backend schema.DatabaseBackend) error {
	ddl, err := fs.ReadFile(migrationsFS, "migrations/"+string(backend)+"/000001_create_plan_tables.up.sql")
	if err != nil {
		return fmt.Errorf("failed to read table definitions: %w", err)
	}
	for stmt := range strings.SplitSeq(string(ddl), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// placeholders returns n bind parameters for the backend, starting at 1.
func (hs *HistoryStoreImpl) placeholders(n int) string {
	out := make([]string, n)
	for i := range out {
		if hs.backend == schema.PostgreSQLBackend {
			out[i] = fmt.Sprintf("$%d", i+1)
		} else {
			out[i] = "?"
		}
	}
	return strings.Join(out, ", ")
}

// BeginRun creates a new plan run and returns its unique ID.
func (hs *HistoryStoreImpl) BeginRun(startTime time.Time, plan schema.Plan, configParams map[string]any) (int64, error) {
	if hs.backend == schema.NoneBackend || hs.db == nil {
		return 0, nil
	}

	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal config params: %w", err)
	}

	columns := "run_uuid, start_time, loop_by, window_start, window_end, interval_text, config_params"
	args := []any{
		plan.RunID,
		formatTime(startTime, hs.backend),
		string(plan.Window.LoopBy),
		formatTime(plan.Window.Start, hs.backend),
		formatTime(plan.Window.End, hs.backend),
		plan.Window.Interval.String(),
		string(configJSON),
	}

	var runID int64
	switch hs.backend {
	case schema.PostgreSQLBackend:
		query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING run_id`, planRunsTable, columns, hs.placeholders(len(args)))
		err = hs.db.QueryRow(query, args...).Scan(&runID)
	default: // SQLite and MySQL
		query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, planRunsTable, columns, hs.placeholders(len(args)))
		var result sql.Result
		result, err = hs.db.Exec(query, args...)
		if err != nil {
			return 0, fmt.Errorf("failed to insert plan run: %w", err)
		}
		runID, err = result.LastInsertId()
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert plan run: %w", err)
	}
	return runID, nil
}

// EndRun updates the plan run with completion data.
func (hs *HistoryStoreImpl) EndRun(runID int64, endTime time.Time, plan schema.Plan) error {
	if hs.backend == schema.NoneBackend || hs.db == nil {
		return nil
	}

	var query string
	if hs.backend == schema.PostgreSQLBackend {
		query = fmt.Sprintf(`SELECT start_time FROM %s WHERE run_id = $1`, planRunsTable)
	} else {
		query = fmt.Sprintf(`SELECT start_time FROM %s WHERE run_id = ?`, planRunsTable)
	}
	startTime, err := scanTime(hs.db.QueryRow(query, runID), hs.backend)
	if err != nil {
		return fmt.Errorf("failed to get start_time for run %d: %w", runID, err)
	}

	durationMs := endTime.Sub(startTime).Milliseconds()

	var update string
	if hs.backend == schema.PostgreSQLBackend {
		update = fmt.Sprintf(`UPDATE %s SET end_time = $1, run_duration_ms = $2, total_ticks = $3, total_runs = $4, total_fields = $5 WHERE run_id = $6`, planRunsTable)
	} else {
		update = fmt.Sprintf(`UPDATE %s SET end_time = ?, run_duration_ms = ?, total_ticks = ?, total_runs = ?, total_fields = ? WHERE run_id = ?`, planRunsTable)
	}
	if _, err := hs.db.Exec(update, formatTime(endTime, hs.backend), durationMs, len(plan.Ticks), plan.TotalRuns(), plan.TotalFields(), runID); err != nil {
		return fmt.Errorf("failed to update plan run: %w", err)
	}
	return nil
}

// RecordFields stores the accepted and skipped fields of one process run.
func (hs *HistoryStoreImpl) RecordFields(runID int64, tick time.Time, run schema.PlanRun) error {
	if hs.backend == schema.NoneBackend || hs.db == nil {
		return nil
	}

	tx, err := hs.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	tickTime := formatTime(tick, hs.backend)
	process := run.Process.String()
	lead := run.LeadString()

	fieldQuery := fmt.Sprintf(`INSERT INTO %s (run_id, tick_time, process, lead_text, field_index, level_index,
		data_type, name, level, thresholds, extra_options, output_name) VALUES (%s)`, planFieldsTable, hs.placeholders(12))
	for _, entry := range run.Fields.Entries {
		for _, spec := range entry.Specs {
			if _, err := tx.Exec(fieldQuery, runID, tickTime, process, lead, entry.Index, entry.LevelIndex,
				string(spec.DataType), spec.Name, spec.Level, strings.Join(spec.ThresholdStrings(), ","),
				spec.ExtraOptions, spec.OutputName); err != nil {
				return fmt.Errorf("failed to insert plan field: %w", err)
			}
		}
	}

	skippedQuery := fmt.Sprintf(`INSERT INTO %s (run_id, tick_time, process, lead_text, field_index, data_type, code, reason)
		VALUES (%s)`, skippedFieldsTable, hs.placeholders(8))
	for _, skipped := range run.Fields.Skipped {
		if _, err := tx.Exec(skippedQuery, runID, tickTime, process, lead, skipped.Index,
			string(skipped.DataType), skipped.Code, skipped.Reason); err != nil {
			return fmt.Errorf("failed to insert skipped field: %w", err)
		}
	}

	return tx.Commit()
}

// Close closes the underlying connection.
func (hs *HistoryStoreImpl) Close() error {
	if hs.db != nil {
		return hs.db.Close()
	}
	return nil
}

// GetStatus returns status information about the history store.
func (hs *HistoryStoreImpl) GetStatus() (schema.HistoryStatus, error) {
	status := schema.HistoryStatus{
		Backend:    string(hs.backend),
		Connected:  hs.db != nil,
		TableSizes: make(map[string]int64),
	}
	if hs.backend == schema.NoneBackend || hs.db == nil {
		return status, nil
	}

	row := hs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", planRunsTable))
	if err := row.Scan(&status.TotalRuns); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		row = hs.db.QueryRow(fmt.Sprintf("SELECT run_id FROM %s ORDER BY run_id DESC LIMIT 1", planRunsTable))
		if err := row.Scan(&status.LastRunID); err != nil {
			return status, fmt.Errorf("failed to get last run id: %w", err)
		}

		var err error
		row = hs.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id DESC LIMIT 1", planRunsTable))
		if status.LastRunTime, err = scanTime(row, hs.backend); err != nil {
			return status, fmt.Errorf("failed to get last run time: %w", err)
		}
		row = hs.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id ASC LIMIT 1", planRunsTable))
		if status.OldestRunTime, err = scanTime(row, hs.backend); err != nil {
			return status, fmt.Errorf("failed to get oldest run time: %w", err)
		}

		row = hs.db.QueryRow(fmt.Sprintf("SELECT COALESCE(SUM(total_fields), 0) FROM %s", planRunsTable))
		if err := row.Scan(&status.TotalFieldsSaved); err != nil {
			return status, fmt.Errorf("failed to get total fields: %w", err)
		}
	}

	for _, table := range historyTables {
		var count int64
		if err := hs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}

	return status, nil
}

// GetAllPlanRuns retrieves every plan run ordered by ID.
func (hs *HistoryStoreImpl) GetAllPlanRuns() ([]schema.PlanRunRecord, error) {
	if hs.backend == schema.NoneBackend || hs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, run_uuid, start_time, end_time, run_duration_ms, loop_by, window_start,
		window_end, interval_text, total_ticks, total_runs, total_fields, config_params FROM %s ORDER BY run_id`, planRunsTable)
	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query plan runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.PlanRunRecord
	for rows.Next() {
		var record schema.PlanRunRecord
		var start, end, winStart, winEnd timeScanner
		start.backend, end.backend, winStart.backend, winEnd.backend = hs.backend, hs.backend, hs.backend, hs.backend
		if err := rows.Scan(&record.RunID, &record.RunUUID, &start, &end, &record.RunDurationMs, &record.LoopBy,
			&winStart, &winEnd, &record.Interval, &record.TotalTicks, &record.TotalRuns, &record.TotalFields,
			&record.ConfigParams); err != nil {
			return nil, fmt.Errorf("failed to scan plan run: %w", err)
		}
		record.StartTime = start.t
		record.WindowStart = winStart.t
		record.WindowEnd = winEnd.t
		if end.valid {
			endTime := end.t
			record.EndTime = &endTime
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plan runs: %w", err)
	}
	return results, nil
}

// GetAllPlanFields retrieves every recorded field ordered by run and tick.
func (hs *HistoryStoreImpl) GetAllPlanFields() ([]schema.PlanFieldRecord, error) {
	if hs.backend == schema.NoneBackend || hs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, tick_time, process, lead_text, field_index, level_index, data_type, name,
		level, thresholds, extra_options, output_name FROM %s ORDER BY run_id, tick_time, process, field_index, level_index`, planFieldsTable)
	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query plan fields: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.PlanFieldRecord
	for rows.Next() {
		var record schema.PlanFieldRecord
		tick := timeScanner{backend: hs.backend}
		if err := rows.Scan(&record.RunID, &tick, &record.Process, &record.Lead, &record.FieldIndex, &record.LevelIndex,
			&record.DataType, &record.Name, &record.Level, &record.Thresholds, &record.ExtraOptions, &record.OutputName); err != nil {
			return nil, fmt.Errorf("failed to scan plan field: %w", err)
		}
		record.TickTime = tick.t
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plan fields: %w", err)
	}
	return results, nil
}

// GetAllSkippedFields retrieves every skipped field ordered by run and tick.
func (hs *HistoryStoreImpl) GetAllSkippedFields() ([]schema.SkippedFieldRecord, error) {
	if hs.backend == schema.NoneBackend || hs.db == nil {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, tick_time, process, lead_text, field_index, data_type, code, reason
		FROM %s ORDER BY run_id, tick_time, process, field_index`, skippedFieldsTable)
	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query skipped fields: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.SkippedFieldRecord
	for rows.Next() {
		var record schema.SkippedFieldRecord
		tick := timeScanner{backend: hs.backend}
		if err := rows.Scan(&record.RunID, &tick, &record.Process, &record.Lead, &record.FieldIndex,
			&record.DataType, &record.Code, &record.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan skipped field: %w", err)
		}
		record.TickTime = tick.t
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating skipped fields: %w", err)
	}
	return results, nil
}

// formatTime converts a time.Time to the appropriate format for the backend.
func formatTime(t time.Time, backend schema.DatabaseBackend) any {
	switch backend {
	case schema.SQLiteBackend:
		return t.UTC().Format(time.RFC3339Nano)
	default:
		return t.UTC()
	}
}

// scanTime reads one time column, which SQLite stores as RFC 3339 text.
func scanTime(row *sql.Row, backend schema.DatabaseBackend) (time.Time, error) {
	ts := timeScanner{backend: backend}
	if err := row.Scan(&ts); err != nil {
		return time.Time{}, err
	}
	return ts.t, nil
}

// timeScanner is an sql.Scanner for nullable time columns of any backend.
type timeScanner struct {
	backend schema.DatabaseBackend
	t       time.Time
	valid   bool
}

// Scan implements sql.Scanner.
func (ts *timeScanner) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		ts.valid = false
		return nil
	case time.Time:
		ts.t, ts.valid = v.UTC(), true
		return nil
	case string:
		return ts.parse(v)
	case []byte:
		return ts.parse(string(v))
	}
	return fmt.Errorf("unsupported time value %T", src)
}

func (ts *timeScanner) parse(s string) error {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			ts.t, ts.valid = t.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("failed to parse time %q", s)
}
