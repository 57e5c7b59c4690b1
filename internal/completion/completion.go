// Package completion finishes a study session: it sends the studied time to
// the study server, then stops and clears the session's timer and records the
// session in local history.
package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/model"
	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/timer"
)

// ErrNoTimer is returned when the session has no timer to complete.
var ErrNoTimer = errors.New("no timer for session")

const DefaultStatus = "Concluído"

// Timers is the part of the timer registry the workflow drives.
type Timers interface {
	Get(sessionID string) (timer.Timer, bool)
	Stop(sessionID string)
	Clear(sessionID string)
}

// Completer marks a session complete on the study server.
type Completer interface {
	Complete(ctx context.Context, sessionID, status string, seconds int64) error
}

// History stores completed sessions locally.
type History interface {
	InsertCompleted(ctx context.Context, cs model.CompletedSession) (int64, error)
}

// Option configures a Service.
type Option func(*Service)

// WithRemote sends completions to the study server. Without it sessions are
// completed locally only.
func WithRemote(c Completer) Option {
	return func(s *Service) { s.remote = c }
}

// WithHistory records completed sessions.
func WithHistory(h History) Option {
	return func(s *Service) { s.history = h }
}

// WithStatus overrides the completion marker sent to the server.
func WithStatus(status string) Option {
	return func(s *Service) {
		if status != "" {
			s.status = status
		}
	}
}

// WithTitles supplies display titles for history rows.
func WithTitles(fn func(sessionID string) string) Option {
	return func(s *Service) { s.titles = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service runs the completion workflow.
type Service struct {
	timers  Timers
	remote  Completer
	history History
	status  string
	titles  func(string) string
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(timers Timers, opts ...Option) *Service {
	s := &Service{
		timers: timers,
		status: DefaultStatus,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Complete finishes the session. If the server rejects the update the timer is
// left exactly as it was and the error is returned.
func (s *Service) Complete(ctx context.Context, sessionID string) (model.CompletedSession, error) {
	t, ok := s.timers.Get(sessionID)
	if !ok {
		return model.CompletedSession{}, fmt.Errorf("%w: %s", ErrNoTimer, sessionID)
	}
	seconds := t.WholeSeconds()

	if s.remote != nil {
		if err := s.remote.Complete(ctx, sessionID, s.status, seconds); err != nil {
			return model.CompletedSession{}, fmt.Errorf("complete session %s: %w", sessionID, err)
		}
	}

	s.timers.Stop(sessionID)
	s.timers.Clear(sessionID)

	cs := model.CompletedSession{
		SessionID:      sessionID,
		CompletedAt:    s.now(),
		StudiedSeconds: seconds,
		Pomodoros:      t.Pomodoros,
		Status:         s.status,
		Synced:         s.remote != nil,
	}
	if s.titles != nil {
		cs.Title = s.titles(sessionID)
	}
	if s.history != nil {
		id, err := s.history.InsertCompleted(ctx, cs)
		if err != nil {
			s.logger.Warn("failed to record completed session", "session_id", sessionID, "error", err)
		} else {
			cs.ID = id
		}
	}
	s.logger.Info("session completed", "session_id", sessionID, "seconds", seconds, "synced", cs.Synced)
	return cs, nil
}
