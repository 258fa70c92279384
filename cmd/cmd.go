// Package cmd defines the command-line interface for metplus.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/huangsam/metplus/internal/contract"
	"github.com/huangsam/metplus/schema"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(leadsCmd)
	rootCmd.AddCommand(windowCmd)
	rootCmd.AddCommand(fieldsCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(durationCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the history subcommands to the parent history command
	historyCmd.AddCommand(historyStatusCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().StringSliceP("config-file", "c", nil, "METplus configuration file; repeat or comma-separate, later files win")
	rootCmd.PersistentFlags().StringArray("set", nil, "Override a value as [section.]KEY=VALUE; may be repeated")
	rootCmd.PersistentFlags().String("clock-time", "", "Clock time used for {now} and {today} (YYYYMMDDHHMMSS or RFC3339)")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().Bool("warn", false, "Log resolution failures at warn level instead of error")
	rootCmd.PersistentFlags().String("log-level", contract.DefaultLogLevel, "Log level: trace or debug or info or warn or error")
	rootCmd.PersistentFlags().String("log-format", string(schema.ConsoleLog), "Log format: console or json")
	rootCmd.PersistentFlags().String("history-backend", "", "Plan history backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("history-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("config", "", "Path to app settings file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// --tool is shared by the field commands
	for _, c := range []*cobra.Command{planCmd, fieldsCmd, checkCmd} {
		c.Flags().String("tool", "", "Tool scope for field lookups, e.g. GRID_STAT")
		if err := viper.BindPFlags(c.Flags()); err != nil {
			contract.LogFatal("Error binding "+c.Name()+" flags", err)
		}
	}

	fieldsCmd.Flags().String("data-type", "", "Resolve only one data type: fcst or obs or ens")
	fieldsCmd.Flags().String("init", "", "Initialization time used to fill field templates")
	fieldsCmd.Flags().String("valid", "", "Valid time used to fill field templates")
	if err := viper.BindPFlags(fieldsCmd.Flags()); err != nil {
		contract.LogFatal("Error binding fields flags", err)
	}

	leadsCmd.Flags().String("init", "", "Initialization time of the tick")
	leadsCmd.Flags().String("valid", "", "Valid time of the tick, required by INIT_SEQ")
	leadsCmd.Flags().Bool("wildcard", false, "Return * when no lead loop is configured")
	leadsCmd.Flags().Bool("groups", false, "Also print the labeled LEAD_SEQ_<n> groups")
	if err := viper.BindPFlags(leadsCmd.Flags()); err != nil {
		contract.LogFatal("Error binding leads flags", err)
	}

	listCmd.Flags().Bool("no-expand", false, "Keep begin_end_incr calls unexpanded")
	if err := viper.BindPFlags(listCmd.Flags()); err != nil {
		contract.LogFatal("Error binding list flags", err)
	}

	durationCmd.Flags().String("unit", string(schema.UnitHours), "Unit of a bare integer: Y, m, d, H, M or S")
	durationCmd.Flags().String("at", "", "Reference time for month and year components")
	if err := viper.BindPFlags(durationCmd.Flags()); err != nil {
		contract.LogFatal("Error binding duration flags", err)
	}

	historyMigrateCmd.Flags().Int("target-version", contract.DefaultTargetVersion, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(historyMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding history migrate flags", err)
	}
}
