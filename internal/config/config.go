package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config is the application configuration.
type Config struct {
	// DatabasePath is the filesystem path of the SQLite database file.
	// Backups and exports are written to sibling directories of this file.
	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	// Operator is the identity recorded in migration ledger metadata.
	// Empty means "resolve from the environment".
	Operator string `mapstructure:"operator" yaml:"operator"`

	// LogLevel is a logrus level name ("debug", "info", "warn", "error").
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/gtd-backend/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "gtd-backend", "config.yaml")
}

func defaultConfig() *Config {
	return &Config{
		DatabasePath: "data.db",
		LogLevel:     "info",
	}
}

// Load reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("database_path", "data.db")
	v.SetDefault("log_level", "info")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}
