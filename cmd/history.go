package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/huangsam/metplus/internal/contract"
	"github.com/huangsam/metplus/internal/history"
	"github.com/huangsam/metplus/schema"
)

// historySettings reads only the history backend settings. It skips METplus
// configuration loading so the ledger can be managed without any .conf file.
func historySettings() (schema.DatabaseBackend, string, error) {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return "", "", fmt.Errorf("error reading config file: %w", err)
		}
	}

	backend := schema.DatabaseBackend(viper.GetString("history-backend"))
	if backend == "" {
		backend = schema.SQLiteBackend
	}
	connStr := viper.GetString("history-db-connect")
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return "", "", err
	}
	return backend, connStr, nil
}

// historySetupWrapper opens the history store for status and export.
func historySetupWrapper(_ *cobra.Command, _ []string) error {
	backend, connStr, err := historySettings()
	if err != nil {
		return err
	}
	if err := history.InitHistory(backend, connStr); err != nil {
		return fmt.Errorf("failed to initialize history: %w", err)
	}
	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")
	return nil
}

// historyMigrateSetupWrapper reads the backend without creating tables, so
// migrations can run on a fresh database.
func historyMigrateSetupWrapper(_ *cobra.Command, _ []string) error {
	backend, connStr, err := historySettings()
	if err != nil {
		return err
	}
	if backend == schema.SQLiteBackend && connStr == "" {
		connStr = contract.GetHistoryDBFilePath()
	}
	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr
	return nil
}

// historyCmd focused on plan history management.
//
// Note: history subcommands skip sharedSetup. Only the backend settings are
// needed, not the METplus configuration.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage recorded plans and exports",
	Long: `Manage the ledger of resolved plans.

When --history-backend is set, 'metplus plan' records:
- Run metadata (timestamp, configuration files, overrides, duration)
- Every run of every tick with its init, valid and lead
- Every accepted field and every skipped field index

Commands below default to the sqlite backend in $HOME/.metplus_history.db.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status  - Show ledger statistics
  export  - Export data to Parquet for analytics
  clear   - Remove all recorded plans
  migrate - Run database schema migrations`,
}

// historyStatusCmd shows history status.
var historyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display ledger statistics and connection details",
	Long: `Show the backend, the number of recorded plans, the newest and oldest run
and the row count of each table.

Examples:
  metplus history status
  metplus history status --history-backend postgresql --history-db-connect "host=db dbname=metplus"`,
	PreRunE: historySetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		hs := history.Manager.GetHistoryStore()
		if hs == nil {
			return errors.New("history is disabled")
		}
		status, err := hs.GetStatus()
		if err != nil {
			return reportFailure("Failed to get history status", err)
		}
		history.PrintHistoryStatus(cmd.OutOrStdout(), status)
		return nil
	},
}

// historyExportCmd exports history data to Parquet files.
var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recorded plans to Parquet for BI tools and analytics",
	Long: `Export every recorded plan run, field and skipped field to Parquet.

Requires: --output-file parameter

Examples:
  metplus history export --output-file plans.parquet
  duckdb -c "SELECT lead, count(*) FROM read_parquet('plans.parquet.plan_fields.parquet') GROUP BY lead"`,
	PreRunE: historySetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		impl, _ := history.Manager.GetHistoryStore().(*history.HistoryStoreImpl)
		if err := history.ExecuteHistoryExport(cmd.OutOrStdout(), impl, cfg.OutputFile); err != nil {
			return reportFailure("Failed to export history data", err)
		}
		return nil
	},
}

// historyClearCmd clears the history data.
var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all recorded plans",
	Long: `Delete all recorded plans.

For sqlite the database file is removed. For mysql and postgresql the history
tables are dropped.

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  metplus history export --output-file backup.parquet
  metplus history clear`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		backend, connStr, err := historySettings()
		if err != nil {
			return err
		}
		if err := history.ClearHistory(backend, contract.GetHistoryDBFilePath(), connStr); err != nil {
			return reportFailure("Failed to clear history data", err)
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "History data cleared successfully.")
		return nil
	},
}

// historyMigrateCmd runs database migrations for the history store.
var historyMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the history store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  metplus history migrate

  # Rollback to initial state
  metplus history migrate --target-version 0`,
	PreRunE: historyMigrateSetupWrapper,
	RunE: func(cmd *cobra.Command, _ []string) error {
		targetVersion := viper.GetInt("target-version")
		if err := history.MigrateHistory(cmd.OutOrStdout(), cfg.HistoryBackend, cfg.HistoryDBConnect, targetVersion); err != nil {
			return reportFailure("Failed to run migrations", err)
		}
		return nil
	},
}
