// Package config loads tool configuration from file and environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/robby/ghsync/internal/domain"
	"github.com/robby/ghsync/internal/drift"
	"github.com/spf13/viper"
)

// Config represents the full ghsync configuration. Every key is optional;
// unset keys take the defaults below.
type Config struct {
	// Repository is the default "owner/name" to reconcile.
	Repository string `mapstructure:"repository"`

	// StatusField is the board field holding the kanban status.
	StatusField string `mapstructure:"status_field"`

	// DoneStatuses are the board statuses considered terminal.
	DoneStatuses []string `mapstructure:"done_statuses"`

	// ProtectedBranches are branches preflight warns about working on.
	ProtectedBranches []string `mapstructure:"protected_branches"`

	// BaseBranch is the branch feature work merges back into.
	BaseBranch string `mapstructure:"base_branch"`

	// StaleThresholdDays flags In Progress items older than this.
	StaleThresholdDays int `mapstructure:"stale_threshold_days"`

	// StatusDateFields maps a board status to the text field expected to
	// carry that status's timestamp.
	StatusDateFields map[string]string `mapstructure:"status_date_fields"`

	// BackupDir is where interrupted-session backups are written.
	BackupDir string `mapstructure:"backup_dir"`
}

// Load reads .ghsync.yaml from the working directory or home directory, plus
// GHSYNC_* environment overrides. A missing config file is not an error.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".ghsync")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
	}
	v.SetEnvPrefix("GHSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(cfg)
	return cfg, nil
}

// applyDefaults sets default values for unset fields.
func applyDefaults(cfg *Config) {
	if cfg.StatusField == "" {
		cfg.StatusField = "Status"
	}
	if cfg.DoneStatuses == nil {
		cfg.DoneStatuses = domain.DefaultDoneStatuses
	}
	if cfg.ProtectedBranches == nil {
		cfg.ProtectedBranches = domain.DefaultProtectedBranches
	}
	if cfg.BaseBranch == "" {
		cfg.BaseBranch = cfg.ProtectedBranches[0]
	}
	if cfg.StaleThresholdDays == 0 {
		cfg.StaleThresholdDays = drift.DefaultStaleThresholdDays
	}
	if cfg.StatusDateFields == nil {
		cfg.StatusDateFields = map[string]string{
			"In Progress": "Started At",
			"Done":        "Completed At",
			"Released":    "Completed At",
		}
	}
	if cfg.BackupDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.BackupDir = filepath.Join(home, ".ghsync", "backups")
		}
	}
}

// Metrics adapts the config to the metrics classifier's view of it.
func (c *Config) Metrics() drift.MetricsConfig {
	return drift.MetricsConfig{
		StatusDateFields:   c.StatusDateFields,
		StaleThresholdDays: c.StaleThresholdDays,
	}
}

// SplitRepository returns the owner and name halves of Repository.
func (c *Config) SplitRepository() (owner, name string, err error) {
	owner, name, ok := strings.Cut(c.Repository, "/")
	if !ok || owner == "" || name == "" {
		return "", "", fmt.Errorf("repository must be \"owner/name\", got %q", c.Repository)
	}
	return owner, name, nil
}
