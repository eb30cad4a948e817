// Package cli implements the erpshell command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/desolution/erpshell/internal/config"
	"github.com/desolution/erpshell/internal/logging"
)

var (
	cfgFile        string
	envFile        string
	logLevel       string
	logFormat      string
	storageBackend string
	dataDir        string
	nonInteractive bool
	jsonOutput     bool
	jsonlOutput    bool
	noColor        bool
	noProgress     bool

	appConfig *config.Config
	logger    = zerolog.Nop()

	// configDirFunc is overridden in tests.
	configDirFunc = config.DefaultConfigDir
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

var buildInfo = BuildInfo{Version: "dev", Commit: "none", Date: "unknown"}

var rootCmd = &cobra.Command{
	Use:           "erpshell",
	Short:         "Terminal client for the ERP backend",
	Long:          "erpshell signs in to the ERP backend, keeps the session between runs and lets you pick a colour theme.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default $XDG_CONFIG_HOME/erpshell/config.yaml)")
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading configuration")
	flags.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&logFormat, "log-format", "", "log format (console, json)")
	flags.StringVar(&storageBackend, "storage", "", "storage backend (sqlite, memory, redis, postgres)")
	flags.StringVar(&dataDir, "data-dir", "", "directory for the sqlite database")
	flags.BoolVar(&nonInteractive, "non-interactive", false, "never prompt; fail when input is required")
	flags.BoolVar(&jsonOutput, "json", false, "output JSON")
	flags.BoolVar(&jsonlOutput, "jsonl", false, "output JSON lines")
	flags.BoolVar(&noColor, "no-color", false, "disable coloured output")
	flags.BoolVar(&noProgress, "no-progress", false, "disable progress output")
}

// ExecuteContext runs the root command with ctx.
func ExecuteContext(ctx context.Context, info BuildInfo) error {
	if info.Version != "" {
		buildInfo = info
	}
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		printError(err)
	}
	return err
}

func initConfig(cmd *cobra.Command) error {
	if err := loadEnvFile(envFile); err != nil {
		return err
	}

	path := cfgFile
	if path == "" {
		candidate := filepath.Join(configDirFunc(), "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}

	v := viper.New()
	bindFlag(v, cmd, "logging.level", "log-level")
	bindFlag(v, cmd, "logging.format", "log-format")
	bindFlag(v, cmd, "storage.backend", "storage")
	bindFlag(v, cmd, "storage.data_dir", "data-dir")

	cfg, err := config.LoadWith(v, path)
	if err != nil {
		return &PreflightError{
			Message:  "Invalid configuration",
			Hint:     err.Error(),
			NextStep: "erpshell --config <path> version",
		}
	}
	appConfig = cfg

	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	logger = logging.Component("cli")
	logger.Debug().Str("storage", cfg.Storage.Backend).Str("config", path).Msg("configuration loaded")
	return nil
}

func bindFlag(v *viper.Viper, cmd *cobra.Command, key, name string) {
	if flag := cmd.Flags().Lookup(name); flag != nil {
		_ = v.BindPFlag(key, flag)
	}
}

// loadEnvFile loads a dotenv file without overriding the environment.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// GetConfig returns the loaded configuration, or defaults before loading.
func GetConfig() *config.Config {
	if appConfig == nil {
		return config.DefaultConfig()
	}
	return appConfig
}

// PreflightError is a user-facing failure with a suggested remedy.
type PreflightError struct {
	Message  string
	Hint     string
	NextStep string
}

func (e *PreflightError) Error() string {
	if e.Hint == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Hint)
}

func printError(err error) {
	var preflight *PreflightError
	if errors.As(err, &preflight) {
		fmt.Fprintf(os.Stderr, "Error: %s\n", preflight.Message)
		if preflight.Hint != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", preflight.Hint)
		}
		if preflight.NextStep != "" {
			fmt.Fprintf(os.Stderr, "Next: %s\n", preflight.NextStep)
		}
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}
