// File: internal/config/config.go
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/codewarden/warden-cli/api/schemas"
	"github.com/codewarden/warden-cli/internal/observability"
)

// Config is the fully merged application configuration for one invocation.
// It is produced by Load (defaults, then global file, then project file,
// then caller overrides) and treated as immutable afterwards.
type Config struct {
	Engine  schemas.EngineConfig       `mapstructure:"engine" yaml:"engine"`
	Logging observability.LoggerConfig `mapstructure:"logging" yaml:"logging"`
	History HistoryConfig              `mapstructure:"history" yaml:"history"`
	Store   StoreConfig                `mapstructure:"store" yaml:"store"`
	GitHub  GitHubConfig               `mapstructure:"github" yaml:"github"`
	Assist  AssistConfig               `mapstructure:"assist" yaml:"assist"`
	Watch   WatchConfig                `mapstructure:"watch" yaml:"watch"`
}

// HistoryConfig controls the local run-history database.
type HistoryConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Path of the SQLite database file. Empty resolves to
	// ~/.config/warden/history.db when the store is opened.
	Path string `mapstructure:"path" yaml:"path"`
	// Keep bounds how many runs ListRuns-style queries return by default.
	Keep int `mapstructure:"keep" yaml:"keep"`
}

// StoreConfig controls the optional shared CI violations store.
type StoreConfig struct {
	// URL is a PostgreSQL DSN. Empty disables the store.
	URL string `mapstructure:"url" yaml:"url"`
}

// GitHubConfig identifies the repository check runs are published to.
type GitHubConfig struct {
	Owner string `mapstructure:"owner" yaml:"owner"`
	Repo  string `mapstructure:"repo" yaml:"repo"`
	// Token is read from WARDEN_GITHUB_TOKEN when not set in a file.
	Token string `mapstructure:"token" yaml:"token"`
}

// AssistConfig controls the remediation advisor.
type AssistConfig struct {
	Model string `mapstructure:"model" yaml:"model"`
	// APIKey is read from WARDEN_GEMINI_API_KEY or GEMINI_API_KEY when not
	// set in a file.
	APIKey string `mapstructure:"api_key" yaml:"api_key"`
}

// WatchConfig controls continuous-audit mode.
type WatchConfig struct {
	// Debounce is how long the watcher waits after the last filesystem
	// event before re-running the audit.
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Engine --
	v.SetDefault("engine.parallel", true)
	v.SetDefault("engine.max_concurrency", schemas.DefaultMaxConcurrency)
	v.SetDefault("engine.deep", false)

	// -- Logging --
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.max_size", 50)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 14)
	v.SetDefault("logging.compress", true)

	// -- History --
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.keep", 50)

	// -- Assist --
	v.SetDefault("assist.model", "gemini-2.5-flash")

	// -- Watch --
	v.SetDefault("watch.debounce", "500ms")
}

// Default creates a configuration populated with default values only.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Defaults are static, so this only fires on a programming error.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// Validate checks the merged configuration for sane values.
func (c *Config) Validate() error {
	if c.Engine.MinSeverity != "" && !c.Engine.MinSeverity.Valid() {
		return fmt.Errorf("engine.min_severity %q is not a valid severity", c.Engine.MinSeverity)
	}
	if c.Engine.FailOnSeverity != "" && !c.Engine.FailOnSeverity.Valid() {
		return fmt.Errorf("engine.fail_on_severity %q is not a valid severity", c.Engine.FailOnSeverity)
	}
	if c.Engine.MaxFiles < 0 {
		return fmt.Errorf("engine.max_files must not be negative")
	}
	if c.Engine.MaxConcurrency < 0 {
		return fmt.Errorf("engine.max_concurrency must not be negative")
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be %q or %q", "console", "json")
	}
	return nil
}

// GlobalConfigPath resolves the user-scoped configuration file location.
func GlobalConfigPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "warden", "config.yaml"), nil
}

// ProjectConfigName is the project-scoped configuration file, looked up
// relative to the audit root.
const ProjectConfigName = ".warden.yaml"
