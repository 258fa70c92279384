// Package schema has the models shared by every part of metplus: relative
// durations, thresholds, time windows, field specs, plans and resolve errors.
package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for the run history.
	DatabaseBackend string

	// DataType identifies which side of a verification a field belongs to.
	DataType string

	// LoopMode represents the timestamp the outer time loop steps over.
	LoopMode string

	// LogFormat represents how log lines are rendered.
	LogFormat string
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All history backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// All data types supported. BothType is a configuration shorthand only and
// never appears on a resolved FieldSpec.
const (
	FcstType DataType = "FCST"
	ObsType  DataType = "OBS"
	EnsType  DataType = "ENS"
	BothType DataType = "BOTH"
)

// All loop modes supported.
const (
	LoopByInit  LoopMode = "init"
	LoopByValid LoopMode = "valid"
)

// All log formats supported.
const (
	ConsoleLog LogFormat = "console" // default
	JSONLog    LogFormat = "json"
)

// DefaultDataTypes are the data types resolved when a caller does not ask for one.
var DefaultDataTypes = []DataType{FcstType, ObsType}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidDatabaseBackends lists all valid history backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidDataTypes lists the data types a caller may request explicitly.
var ValidDataTypes = map[DataType]struct{}{
	FcstType: {},
	ObsType:  {},
	EnsType:  {},
}

// ValidLogFormats lists all valid log formats.
var ValidLogFormats = map[LogFormat]struct{}{
	ConsoleLog: {},
	JSONLog:    {},
}

// Lower returns the lower case form used in output columns (fcst, obs, ens).
func (d DataType) Lower() string {
	switch d {
	case FcstType:
		return "fcst"
	case ObsType:
		return "obs"
	case EnsType:
		return "ens"
	case BothType:
		return "both"
	}
	return string(d)
}
