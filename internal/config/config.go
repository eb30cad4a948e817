// Package config loads erpshell configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/desolution/erpshell/internal/auth"
	"github.com/desolution/erpshell/internal/theme"
	"github.com/spf13/viper"
)

// Storage backends.
const (
	StorageSQLite   = "sqlite"
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// EnvPrefix prefixes environment overrides, e.g. ERPSHELL_API_BASE_URL.
const EnvPrefix = "ERPSHELL"

// Config is the full application configuration.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Storage StorageConfig `mapstructure:"storage"`
	UI      UIConfig      `mapstructure:"ui"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// APIConfig configures the ERP backend.
type APIConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Encoding string        `mapstructure:"encoding"`
}

// StorageConfig selects the durable key-value backend.
type StorageConfig struct {
	Backend     string `mapstructure:"backend"`
	DataDir     string `mapstructure:"data_dir"`
	RedisURL    string `mapstructure:"redis_url"`
	RedisPrefix string `mapstructure:"redis_prefix"`
	PostgresURL string `mapstructure:"postgres_url"`
}

// UIConfig controls the terminal UI.
type UIConfig struct {
	// DefaultTheme is used when no valid theme has been persisted.
	DefaultTheme string `mapstructure:"default_theme"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Timeout:  10 * time.Second,
			Encoding: string(auth.EncodingJSON),
		},
		Storage: StorageConfig{
			Backend:     StorageSQLite,
			DataDir:     DefaultDataDir(),
			RedisPrefix: "erpshell:",
		},
		UI: UIConfig{
			DefaultTheme: string(theme.DefaultID),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// DefaultConfigDir is $XDG_CONFIG_HOME/erpshell or ~/.config/erpshell.
func DefaultConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "erpshell")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".erpshell")
	}
	return filepath.Join(home, ".config", "erpshell")
}

// DefaultDataDir is $XDG_DATA_HOME/erpshell or ~/.local/share/erpshell.
func DefaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "erpshell")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".erpshell", "data")
	}
	return filepath.Join(home, ".local", "share", "erpshell")
}

// SetDefaults registers defaults on v.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("api.encoding", d.API.Encoding)
	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.data_dir", d.Storage.DataDir)
	v.SetDefault("storage.redis_url", d.Storage.RedisURL)
	v.SetDefault("storage.redis_prefix", d.Storage.RedisPrefix)
	v.SetDefault("storage.postgres_url", d.Storage.PostgresURL)
	v.SetDefault("ui.default_theme", d.UI.DefaultTheme)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// Load reads configuration with a fresh viper instance.
func Load(path string) (*Config, error) {
	return LoadWith(viper.New(), path)
}

// LoadWith reads configuration into v, which may already carry bound flags.
// Precedence: flags, ERPSHELL_* env, config file, defaults. API_BASE_URL is
// honored when no other base URL is set.
func LoadWith(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(DefaultConfigDir())
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = strings.TrimSpace(os.Getenv("API_BASE_URL"))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	var errs []error

	if c.API.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("api.timeout must be positive"))
	}
	if _, err := auth.ParseEncoding(c.API.Encoding); err != nil {
		errs = append(errs, fmt.Errorf("api.encoding: %w", err))
	}

	switch c.Storage.Backend {
	case StorageSQLite:
		if c.Storage.DataDir == "" {
			errs = append(errs, fmt.Errorf("storage.data_dir is required for sqlite"))
		}
	case StorageMemory:
	case StorageRedis:
		if c.Storage.RedisURL == "" {
			errs = append(errs, fmt.Errorf("storage.redis_url is required for redis"))
		}
	case StoragePostgres:
		if c.Storage.PostgresURL == "" {
			errs = append(errs, fmt.Errorf("storage.postgres_url is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be one of sqlite, memory, redis, postgres (got %q)", c.Storage.Backend))
	}

	if _, err := theme.Parse(c.UI.DefaultTheme); err != nil {
		errs = append(errs, fmt.Errorf("ui.default_theme: %w", err))
	}

	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// DefaultTheme returns the validated default theme identifier.
func (c *Config) DefaultTheme() theme.ID {
	id, err := theme.Parse(c.UI.DefaultTheme)
	if err != nil {
		return theme.DefaultID
	}
	return id
}

// DatabasePath is the SQLite file location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Storage.DataDir, "erpshell.db")
}
