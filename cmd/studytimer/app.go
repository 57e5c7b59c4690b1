package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/completion"
	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/config"
	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/model"
	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/plan"
	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/remote"
	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/store"
	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/timer"
)

// app holds everything a command needs once the timers are restored.
type app struct {
	settings  config.Settings
	logger    *slog.Logger
	registry  *timer.Registry
	history   *store.Store
	completer *completion.Service
	sessions  []model.PlanSession

	stopReporter context.CancelFunc
	reporterDone chan struct{}
	closers      []func() error
}

// openApp opens the stores, restores persisted timers and starts the time
// reporter when a study server is configured.
func openApp(ctx context.Context, settings config.Settings, logger *slog.Logger, opts ...timer.Option) (*app, error) {
	a := &app{settings: settings, logger: logger}

	var kv timer.Store
	switch settings.StoreBackend {
	case config.BackendFile:
		fileStore, err := store.OpenFile(settings.StorePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open timer store: %w", err)
		}
		kv = fileStore
		history, err := store.Open(historyPath(settings))
		if err != nil {
			return nil, fmt.Errorf("failed to open db: %w", err)
		}
		a.history = history
	default:
		db, err := store.Open(settings.StorePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open db: %w", err)
		}
		kv = db
		a.history = db
	}
	a.closers = append(a.closers, a.history.Close)

	opts = append([]timer.Option{timer.WithStore(kv), timer.WithLogger(logger)}, opts...)
	a.registry = timer.New(settings.Timer, opts...)
	restored := a.registry.RestoreAll(ctx)
	logger.Info("timers restored", "count", restored, "backend", settings.StoreBackend, "path", settings.StorePath)

	sessions, err := loadSessions(settings, nil)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.sessions = sessions

	completionOpts := []completion.Option{
		completion.WithHistory(a.history),
		completion.WithStatus(settings.CompletionStatus),
		completion.WithTitles(a.title),
		completion.WithLogger(logger),
	}
	if settings.RemoteBaseURL != "" {
		client := remote.NewClient(settings.RemoteBaseURL, settings.RemoteToken)
		completionOpts = append(completionOpts, completion.WithRemote(client))

		events := a.registry.Subscribe(256)
		reporter := remote.NewReporter(client, time.Duration(settings.MinReportSeconds)*time.Second, logger)
		reporterCtx, cancel := context.WithCancel(context.Background())
		a.stopReporter = cancel
		a.reporterDone = make(chan struct{})
		go func() {
			defer close(a.reporterDone)
			reporter.Run(reporterCtx, events)
		}()
	}
	a.completer = completion.NewService(a.registry, completionOpts...)
	return a, nil
}

// historyPath returns the SQLite database completed sessions are recorded in.
// With the sqlite backend it is the timer store itself.
func historyPath(settings config.Settings) string {
	if settings.StoreBackend == config.BackendFile {
		return config.DefaultDBPath()
	}
	return settings.StorePath
}

// loadSessions returns the sessions named on the command line, or the study
// plan when none are given. A missing plan file yields no sessions.
func loadSessions(settings config.Settings, ids []string) ([]model.PlanSession, error) {
	if len(ids) > 0 {
		return plan.FromIDs(ids, settings.PlanDefaultMinutes), nil
	}
	sessions, err := plan.Load(settings.PlanPath, settings.PlanDefaultMinutes)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load study plan: %w", err)
	}
	return sessions, nil
}

// withRestored appends a session for every restored timer the plan does not
// list, so no persisted time is hidden.
func (a *app) withRestored(sessions []model.PlanSession) []model.PlanSession {
	known := make(map[string]bool, len(sessions))
	for _, s := range sessions {
		known[s.ID] = true
	}
	for _, t := range a.registry.Timers() {
		if !known[t.SessionID] {
			sessions = append(sessions, model.PlanSession{ID: t.SessionID, PlannedMinutes: a.settings.PlanDefaultMinutes})
		}
	}
	return sessions
}

func (a *app) session(id string) (model.PlanSession, bool) {
	for _, s := range a.sessions {
		if s.ID == id {
			return s, true
		}
	}
	return model.PlanSession{}, false
}

func (a *app) title(id string) string {
	if s, ok := a.session(id); ok {
		return s.Title
	}
	return ""
}

func (a *app) plannedMinutes(id string) int {
	if s, ok := a.session(id); ok {
		return s.PlannedMinutes
	}
	return a.settings.PlanDefaultMinutes
}

// Close writes the final checkpoint, drains the reporter and closes the
// stores.
func (a *app) Close() {
	if a.registry != nil {
		a.registry.Close()
	}
	if a.reporterDone != nil {
		select {
		case <-a.reporterDone:
		case <-time.After(20 * time.Second):
			a.logger.Warn("time reporter did not finish")
		}
		a.stopReporter()
	}
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			a.logger.Warn("failed to close store", "error", err)
		}
	}
}
