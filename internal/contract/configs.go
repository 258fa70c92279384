package contract

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/huangsam/metplus/schema"
)

// Default values for configuration.
const (
	DefaultLogLevel      = "info"
	DefaultTargetVersion = -1
	MaxTableWidth        = 500
)

// inputTimeFormats are tried in order when a time is given on the command line.
var inputTimeFormats = []string{"%Y%m%d%H%M%S", "%Y%m%d%H%M", "%Y%m%d%H", "%Y%m%d"}

// Config holds the runtime configuration of the CLI.
// This struct remains the "final, validated" config.
type Config struct {
	ConfigFiles []string
	Overrides   []string
	ClockTime   time.Time

	Output     schema.OutputMode `validate:"oneof=text csv json parquet"`
	OutputFile string
	Width      int  `validate:"gte=0,lte=500"` // Terminal width override (0 = auto-detect)
	UseColors  bool // Enable colored labels in table output
	Warn       bool // Report resolution failures as warnings

	LogLevel  string           `validate:"oneof=trace debug info warn error fatal panic disabled"`
	LogFormat schema.LogFormat `validate:"oneof=console json"`

	HistoryBackend   schema.DatabaseBackend `validate:"omitempty,oneof=sqlite mysql postgresql none"`
	HistoryDBConnect string                 // Please use env var as this is plaintext

	Tool     string
	DataType schema.DataType `validate:"omitempty,oneof=FCST OBS ENS"`

	LeadInit  time.Time
	LeadValid time.Time
	Wildcard  bool
	Groups    bool

	NoExpand     bool
	DurationUnit byte
	DurationAt   time.Time

	TargetVersion int `validate:"gte=-1"`
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	ConfigFiles      []string `mapstructure:"config-file"`
	Overrides        []string `mapstructure:"set"`
	ClockTime        string   `mapstructure:"clock-time"`
	Output           string   `mapstructure:"output"`
	OutputFile       string   `mapstructure:"output-file"`
	Width            int      `mapstructure:"width"`
	Color            string   `mapstructure:"color"`
	Warn             bool     `mapstructure:"warn"`
	LogLevel         string   `mapstructure:"log-level"`
	LogFormat        string   `mapstructure:"log-format"`
	HistoryBackend   string   `mapstructure:"history-backend"`
	HistoryDBConnect string   `mapstructure:"history-db-connect"`

	// --- Fields from fieldsCmd / planCmd / checkCmd flags ---
	Tool     string `mapstructure:"tool"`
	DataType string `mapstructure:"data-type"`

	// --- Fields from leadsCmd.Flags() ---
	Init     string `mapstructure:"init"`
	Valid    string `mapstructure:"valid"`
	Wildcard bool   `mapstructure:"wildcard"`
	Groups   bool   `mapstructure:"groups"`

	// --- Fields from listCmd / durationCmd flags ---
	NoExpand bool   `mapstructure:"no-expand"`
	Unit     string `mapstructure:"unit"`
	At       string `mapstructure:"at"`

	// --- Fields from historyMigrateCmd.Flags() ---
	TargetVersion int `mapstructure:"target-version"`
}

// Clone returns a copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.ConfigFiles = append([]string(nil), c.ConfigFiles...)
	clone.Overrides = append([]string(nil), c.Overrides...)
	return &clone
}

// HistoryEnabled reports whether plans should be recorded.
func (c *Config) HistoryEnabled() bool {
	return c.HistoryBackend != "" && c.HistoryBackend != schema.NoneBackend
}

// ProcessAndValidate performs all complex parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processTimes(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	return validateStruct(cfg)
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("history-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("history-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateBackendConfigs validates the history backend configuration.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	cfg.HistoryBackend = schema.DatabaseBackend(strings.ToLower(input.HistoryBackend))
	if cfg.HistoryBackend == "" {
		return nil
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.HistoryBackend]; !ok {
		return fmt.Errorf("invalid history backend '%s'. must be sqlite, mysql, postgresql, none", input.HistoryBackend)
	}
	cfg.HistoryDBConnect = input.HistoryDBConnect
	return ValidateDatabaseConnectionString(cfg.HistoryBackend, cfg.HistoryDBConnect)
}

// validateSimpleInputs transfers and checks the fields that need no parsing.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.ConfigFiles = splitRepeated(input.ConfigFiles)
	cfg.Overrides = input.Overrides
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.Warn = input.Warn
	cfg.Wildcard = input.Wildcard
	cfg.Groups = input.Groups
	cfg.NoExpand = input.NoExpand
	cfg.TargetVersion = input.TargetVersion
	cfg.Tool = strings.ToUpper(strings.TrimSpace(input.Tool))

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}

	cfg.LogLevel = strings.ToLower(input.LogLevel)
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	cfg.LogFormat = schema.LogFormat(strings.ToLower(input.LogFormat))
	if cfg.LogFormat == "" {
		cfg.LogFormat = schema.ConsoleLog
	}
	if _, ok := schema.ValidLogFormats[cfg.LogFormat]; !ok {
		return fmt.Errorf("invalid log format '%s'. must be console, json", input.LogFormat)
	}

	cfg.DataType = schema.DataType(strings.ToUpper(strings.TrimSpace(input.DataType)))
	if cfg.DataType != "" {
		if _, ok := schema.ValidDataTypes[cfg.DataType]; !ok {
			return fmt.Errorf("invalid data type '%s'. must be fcst, obs, ens", input.DataType)
		}
	}

	cfg.DurationUnit = schema.UnitHours
	if input.Unit != "" {
		if len(input.Unit) != 1 || !strings.Contains("YmdHMS", input.Unit) {
			return fmt.Errorf("invalid unit '%s'. must be one of Y, m, d, H, M, S", input.Unit)
		}
		cfg.DurationUnit = input.Unit[0]
	}
	return nil
}

// processTimes parses the clock and lead context times given on the command line.
func processTimes(cfg *Config, input *ConfigRawInput) error {
	var err error
	if cfg.ClockTime, err = ParseInputTime(input.ClockTime); err != nil {
		return fmt.Errorf("invalid --clock-time: %w", err)
	}
	if cfg.LeadInit, err = ParseInputTime(input.Init); err != nil {
		return fmt.Errorf("invalid --init: %w", err)
	}
	if cfg.LeadValid, err = ParseInputTime(input.Valid); err != nil {
		return fmt.Errorf("invalid --valid: %w", err)
	}
	if cfg.DurationAt, err = ParseInputTime(input.At); err != nil {
		return fmt.Errorf("invalid --at: %w", err)
	}
	if !cfg.LeadInit.IsZero() && !cfg.LeadValid.IsZero() {
		return fmt.Errorf("--init and --valid cannot be used together")
	}
	return nil
}

// ParseInputTime parses a command-line timestamp such as 2025110312 or an
// RFC 3339 string. An empty value returns the zero time.
func ParseInputTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(DateTimeFormat, value); err == nil {
		return t.UTC(), nil
	}
	for _, format := range inputTimeFormats {
		if len(value) != len(FormatTime(format, time.Unix(0, 0).UTC())) {
			continue
		}
		if t, err := ParseTime(format, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q (expected YYYYMMDD[HH[MM[SS]]] or RFC3339)", value)
}

// validateStruct runs the struct tag rules over the final config.
func validateStruct(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid %s '%v': failed %s=%s", strings.ToLower(fe.Field()), fe.Value(), fe.Tag(), fe.Param())
		}
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// splitRepeated flattens values that may be given repeatedly or comma-separated.
func splitRepeated(values []string) []string {
	var out []string
	for _, v := range values {
		for part := range strings.SplitSeq(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
