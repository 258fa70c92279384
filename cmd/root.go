package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/huangsam/metplus/core"
	"github.com/huangsam/metplus/internal/confstore"
	"github.com/huangsam/metplus/internal/contract"
	"github.com/huangsam/metplus/internal/history"
	"github.com/huangsam/metplus/schema"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// store holds the METplus configuration loaded from --config-file and --set.
var store = confstore.NewConfig(nil)

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:                "metplus",
	Short:              "Resolve METplus time loops, forecast leads and field lists.",
	Long:               `metplus reads METplus configuration files and shows exactly which times, leads and fields each wrapper would process.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// A missing .env is fine; existing env vars are never overridden
	_ = godotenv.Load()

	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".metplus")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}

	viper.SetEnvPrefix("METPLUS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("output", schema.TextOut)
	viper.SetDefault("color", "yes")
	viper.SetDefault("log-level", contract.DefaultLogLevel)
	viper.SetDefault("log-format", schema.ConsoleLog)
	viper.SetDefault("history-backend", "")
	viper.SetDefault("history-db-connect", "")
	viper.SetDefault("unit", string(schema.UnitHours))
	viper.SetDefault("target-version", contract.DefaultTargetVersion)
}

// readAppSettings merges the settings file, env and flags into cfg.
func readAppSettings(cmd *cobra.Command) error {
	// several commands share flag names, so the running command's flags are
	// bound last
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind %s flags: %w", cmd.Name(), err)
	}
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}
	if err := contract.ProcessAndValidate(cfg, input); err != nil {
		return err
	}
	setupLogging(cfg)
	return nil
}

// setupLogging configures the global zerolog logger.
func setupLogging(cfg *contract.Config) {
	if cfg.LogFormat == schema.JSONLog {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen, NoColor: !cfg.UseColors})
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	rootCtx = core.WithLogger(context.Background(), log.Logger)
}

// loadStore reads the METplus configuration files and applies overrides.
func loadStore() error {
	loaded, err := confstore.Load(cfg.ConfigFiles...)
	if err != nil {
		return err
	}
	if err := loaded.ApplyOverrides(cfg.Overrides); err != nil {
		return err
	}

	if cfg.ClockTime.IsZero() {
		loaded.SetDefaultClock(time.Now().UTC())
	} else {
		loaded.Set(contract.ConfigSection, "CLOCK_TIME", contract.FormatTime(contract.ClockTimeFormat, cfg.ClockTime))
	}
	store = loaded

	log.Debug().Strs("files", loaded.Files()).Int("overrides", len(cfg.Overrides)).Msg("loaded configuration")
	return nil
}

// sharedSetup unmarshals config, runs validation and loads the METplus
// configuration files.
func sharedSetup(_ context.Context, cmd *cobra.Command, _ []string) error {
	if err := readAppSettings(cmd); err != nil {
		return err
	}
	if err := loadStore(); err != nil {
		return err
	}
	if err := history.InitHistory(cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return fmt.Errorf("failed to initialize history: %w", err)
	}
	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// settingsSetupWrapper only reads app settings, for commands that need no
// METplus configuration.
func settingsSetupWrapper(cmd *cobra.Command, _ []string) error {
	return readAppSettings(cmd)
}

// reportFailure logs a command failure at error level, or at warn level with
// --warn, and returns err for cobra to surface.
func reportFailure(msg string, err error) error {
	event := log.Error()
	if cfg.Warn {
		event = log.Warn()
	}
	if code, ok := schema.CodeOf(err); ok {
		event = event.Str("code", string(code))
	}
	if rewrites := schema.SuggestedRewrites(err); len(rewrites) > 0 {
		event = event.Strs("suggested_rewrites", rewrites)
	}
	event.Err(err).Msg(msg)
	return fmt.Errorf("%s: %w", strings.ToLower(msg), err)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
