// Package config handles configuration loading for subagent.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/ShayCichocki/subagent/pkg/models"
)

// Config holds all configuration for subagent.
type Config struct {
	Workspace WorkspaceConfig `mapstructure:"workspace"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Timeouts  TimeoutsConfig  `mapstructure:"timeouts"`
	History   HistoryConfig   `mapstructure:"history"`
	Research  ResearchConfig  `mapstructure:"research"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// WorkspaceConfig holds workspace settings.
type WorkspaceConfig struct {
	// Root is the workspace directory. Empty means the current directory.
	Root string `mapstructure:"root"`
}

// ProvidersConfig holds capability provider settings.
type ProvidersConfig struct {
	// Servers lists the provider processes to launch. Empty selects the
	// default filesystem provider rooted at the workspace.
	Servers []models.ServerDescriptor `mapstructure:"servers"`
}

// TimeoutsConfig holds timeout settings.
type TimeoutsConfig struct {
	// ProviderCall bounds a single provider round trip.
	ProviderCall time.Duration `mapstructure:"provider_call"`
}

// HistoryConfig holds execution history settings.
type HistoryConfig struct {
	// Limit bounds the in-memory execution history.
	Limit int `mapstructure:"limit"`
	// Persist enables SQLite persistence under .subagent/state.db.
	Persist bool `mapstructure:"persist"`
}

// ResearchConfig holds researcher settings.
type ResearchConfig struct {
	// CacheSize bounds the findings cache.
	CacheSize int `mapstructure:"cache_size"`
}

// LoggingConfig holds debug logging settings.
type LoggingConfig struct {
	// Debug enables the file-backed debug log under .subagent/logs.
	Debug bool `mapstructure:"debug"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (SUBAGENT_*)
// 2. Project config (.subagent.yaml in current directory or parent)
// 3. User config (~/.config/subagent/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Load project config if present
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			// Merge project config (takes precedence)
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("SUBAGENT")
	v.AutomaticEnv()
	v.BindEnv("workspace.root", "SUBAGENT_WORKSPACE_ROOT")
	v.BindEnv("logging.debug", "SUBAGENT_DEBUG")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Workspace.Root = os.ExpandEnv(cfg.Workspace.Root)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Workspace.Root = os.ExpandEnv(cfg.Workspace.Root)

	return cfg, nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("workspace.root", "")
	v.SetDefault("timeouts.provider_call", "5s")
	v.SetDefault("history.limit", 1000)
	v.SetDefault("history.persist", false)
	v.SetDefault("research.cache_size", 128)
	v.SetDefault("logging.debug", false)
}

// getUserConfigDir returns the XDG config directory for subagent.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "subagent")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "subagent")
	}
	return filepath.Join(home, ".config", "subagent")
}

// findProjectConfig searches for .subagent.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".subagent.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Timeouts: TimeoutsConfig{
			ProviderCall: 5 * time.Second,
		},
		History: HistoryConfig{
			Limit: 1000,
		},
		Research: ResearchConfig{
			CacheSize: 128,
		},
	}
}
