// Package config provides XDG path helpers.
package config

import (
	"os"
	"path/filepath"
)

const appDir = "studytimer"

// XDGConfigHome returns the XDG config home or a default fallback.
func XDGConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

// XDGDataHome returns the XDG data home or a default fallback.
func XDGDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

// XDGStateHome returns the XDG state home or a default fallback.
func XDGStateHome() string {
	if v := os.Getenv("XDG_STATE_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "state")
}

// DefaultConfigPath returns the default TOML config path.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigHome(), appDir, "config.toml")
}

// DefaultDBPath returns the default path for the SQLite database.
func DefaultDBPath() string {
	return filepath.Join(XDGDataHome(), appDir, "studytimer.db")
}

// DefaultFileStorePath returns the default path for the YAML snapshot file.
func DefaultFileStorePath() string {
	return filepath.Join(XDGDataHome(), appDir, "timers.yaml")
}

// DefaultPlanPath returns the default study plan path.
func DefaultPlanPath() string {
	return filepath.Join(XDGConfigHome(), appDir, "plan.tsv")
}

// DefaultLogPath returns the log file used while the terminal UI owns the screen.
func DefaultLogPath() string {
	return filepath.Join(XDGStateHome(), appDir, "studytimer.log")
}
