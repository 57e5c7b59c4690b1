// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Timer  TimerConfig  `toml:"timer"`
	Store  StoreConfig  `toml:"store"`
	Server ServerConfig `toml:"server"`
	Remote RemoteConfig `toml:"remote"`
	Plan   PlanConfig   `toml:"plan"`
}

// TimerConfig maps timer settings. Durations use Go duration syntax.
type TimerConfig struct {
	TickInterval       *string `toml:"tick-interval"`
	CheckpointInterval *string `toml:"checkpoint-interval"`
	PomodoroLength     *string `toml:"pomodoro-length"`
}

// StoreConfig maps snapshot storage settings.
type StoreConfig struct {
	Backend   *string `toml:"backend"`
	Path      *string `toml:"path"`
	Namespace *string `toml:"namespace"`
}

// ServerConfig maps HTTP API settings.
type ServerConfig struct {
	Addr  *string `toml:"addr"`
	Token *string `toml:"token"`
}

// RemoteConfig maps the study server connection.
type RemoteConfig struct {
	BaseURL          *string `toml:"base-url"`
	Token            *string `toml:"token"`
	MinReportSeconds *int    `toml:"min-report-seconds"`
	CompletionStatus *string `toml:"completion-status"`
}

// PlanConfig maps study plan settings.
type PlanConfig struct {
	Path           *string `toml:"path"`
	DefaultMinutes *int    `toml:"default-minutes"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}

// Template is written by the config command when no file exists yet.
const Template = `# studytimer configuration

[timer]
# tick-interval = "100ms"
# checkpoint-interval = "30s"
# pomodoro-length = "25m"

[store]
# backend = "sqlite" # or "file"
# path = ""
# namespace = "studytimer"

[server]
# addr = ":8742"
# token = "" # require "Authorization: Bearer <token>" when set

[remote]
# base-url = "https://example.com"
# token = ""
# min-report-seconds = 10
# completion-status = "Concluído"

[plan]
# path = ""
# default-minutes = 50
`
