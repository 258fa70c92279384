// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"time"

	"github.com/huangsam/metplus/schema"
)

// Section names used by METplus configuration files.
const (
	ConfigSection    = "config"
	DirSection       = "dir"
	FilenameSection  = "filename_templates"
	UserEnvSection   = "user_env_vars"
	DefaultSectionID = ConfigSection
)

// ConfigStore is the read-only view of a METplus configuration the resolvers
// query. Keys are case-insensitive; sections are matched in lower case.
type ConfigStore interface {
	// GetRaw returns the interpolated value of a key and whether it is set.
	GetRaw(section, key string) (string, bool)

	// GetString returns the value of a key, or fallback when it is not set.
	GetString(section, key, fallback string) string

	// HasOption reports whether a key is set.
	HasOption(section, key string) bool

	// Keys lists the keys of a section in sorted order.
	Keys(section string) []string

	// Sections lists every section name.
	Sections() []string
}

// HistoryManager defines the interface for managing the run history store.
// This allows the history layer to be mocked for testing.
type HistoryManager interface {
	GetHistoryStore() HistoryStore
}

// HistoryStore defines the interface for recording resolved plans.
type HistoryStore interface {
	// BeginRun creates a new plan run and returns its unique ID
	BeginRun(startTime time.Time, plan schema.Plan, configParams map[string]any) (int64, error)

	// EndRun updates the plan run with completion data
	EndRun(runID int64, endTime time.Time, plan schema.Plan) error

	// RecordFields stores the accepted and skipped fields of one plan run
	RecordFields(runID int64, tick time.Time, run schema.PlanRun) error

	// GetStatus returns status information about the history store
	GetStatus() (schema.HistoryStatus, error)

	// Close closes the underlying connection
	Close() error
}
