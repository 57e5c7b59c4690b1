package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/timer"
)

const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
)

// Settings is the resolved configuration after defaults, the config file and
// the environment have been applied.
type Settings struct {
	Timer timer.Config

	StoreBackend string
	StorePath    string

	ServerAddr  string
	ServerToken string

	RemoteBaseURL    string
	RemoteToken      string
	MinReportSeconds int
	CompletionStatus string

	PlanPath           string
	PlanDefaultMinutes int
}

// Defaults returns the settings used when nothing is configured.
func Defaults() Settings {
	return Settings{
		Timer:              timer.DefaultConfig(),
		StoreBackend:       BackendSQLite,
		ServerAddr:         ":8742",
		MinReportSeconds:   10,
		CompletionStatus:   "Concluído",
		PlanPath:           DefaultPlanPath(),
		PlanDefaultMinutes: 50,
	}
}

// Resolve layers the file config and environment over the defaults and
// validates the result.
func Resolve(fc FileConfig) (Settings, error) {
	s := Defaults()
	if err := s.apply(fc); err != nil {
		return Settings{}, err
	}
	if v := os.Getenv("STUDYTIMER_TOKEN"); v != "" {
		s.RemoteToken = v
	}
	if v := os.Getenv("STUDYTIMER_BASE_URL"); v != "" {
		s.RemoteBaseURL = v
	}
	if s.StorePath == "" {
		s.StorePath = s.DefaultStorePath()
	}
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("config validation: %w", err)
	}
	return s, nil
}

// DefaultStorePath returns the default path for the selected backend.
func (s Settings) DefaultStorePath() string {
	if s.StoreBackend == BackendFile {
		return DefaultFileStorePath()
	}
	return DefaultDBPath()
}

func (s *Settings) apply(fc FileConfig) error {
	if err := applyDuration("timer.tick-interval", fc.Timer.TickInterval, &s.Timer.TickInterval); err != nil {
		return err
	}
	if err := applyDuration("timer.checkpoint-interval", fc.Timer.CheckpointInterval, &s.Timer.CheckpointInterval); err != nil {
		return err
	}
	if err := applyDuration("timer.pomodoro-length", fc.Timer.PomodoroLength, &s.Timer.PomodoroLength); err != nil {
		return err
	}
	applyString(fc.Store.Backend, &s.StoreBackend)
	applyString(fc.Store.Path, &s.StorePath)
	applyString(fc.Store.Namespace, &s.Timer.Namespace)
	applyString(fc.Server.Addr, &s.ServerAddr)
	applyString(fc.Server.Token, &s.ServerToken)
	applyString(fc.Remote.BaseURL, &s.RemoteBaseURL)
	applyString(fc.Remote.Token, &s.RemoteToken)
	applyInt(fc.Remote.MinReportSeconds, &s.MinReportSeconds)
	applyString(fc.Remote.CompletionStatus, &s.CompletionStatus)
	applyString(fc.Plan.Path, &s.PlanPath)
	applyInt(fc.Plan.DefaultMinutes, &s.PlanDefaultMinutes)
	return nil
}

// Validate rejects settings the timer or its hosts cannot run with.
func (s Settings) Validate() error {
	if s.Timer.TickInterval <= 0 {
		return fmt.Errorf("timer.tick-interval must be positive, got %s", s.Timer.TickInterval)
	}
	if s.Timer.PomodoroLength <= 0 {
		return fmt.Errorf("timer.pomodoro-length must be positive, got %s", s.Timer.PomodoroLength)
	}
	if s.Timer.CheckpointInterval < 0 {
		return fmt.Errorf("timer.checkpoint-interval must not be negative, got %s", s.Timer.CheckpointInterval)
	}
	if s.Timer.CheckpointInterval > 0 && s.Timer.CheckpointInterval < s.Timer.TickInterval {
		return fmt.Errorf("timer.checkpoint-interval (%s) must not be shorter than timer.tick-interval (%s)", s.Timer.CheckpointInterval, s.Timer.TickInterval)
	}
	if s.Timer.Namespace == "" {
		return fmt.Errorf("store.namespace must not be empty")
	}
	switch s.StoreBackend {
	case BackendSQLite, BackendFile:
	default:
		return fmt.Errorf("store.backend must be %q or %q, got %q", BackendSQLite, BackendFile, s.StoreBackend)
	}
	if s.ServerAddr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if s.RemoteBaseURL != "" {
		u, err := url.Parse(s.RemoteBaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("remote.base-url must be an http(s) URL, got %q", s.RemoteBaseURL)
		}
	}
	if s.MinReportSeconds < 0 {
		return fmt.Errorf("remote.min-report-seconds must not be negative, got %d", s.MinReportSeconds)
	}
	if s.CompletionStatus == "" {
		return fmt.Errorf("remote.completion-status must not be empty")
	}
	if s.PlanDefaultMinutes <= 0 {
		return fmt.Errorf("plan.default-minutes must be positive, got %d", s.PlanDefaultMinutes)
	}
	return nil
}

func applyDuration(name string, value *string, target *time.Duration) error {
	if value == nil {
		return nil
	}
	d, err := time.ParseDuration(*value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, *value, err)
	}
	*target = d
	return nil
}

func applyString(value *string, target *string) {
	if value != nil {
		*target = *value
	}
}

func applyInt(value *int, target *int) {
	if value != nil {
		*target = *value
	}
}
