package remote

import (
	"context"
	"log/slog"
	"time"

	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/timer"
)

// TimeReporter is the part of Client the Reporter needs.
type TimeReporter interface {
	ReportTime(ctx context.Context, sessionID string, start, end time.Time) error
}

// Reporter sends the study time accumulated since the last report whenever a
// timer stops. Stretches shorter than the minimum are held back and folded
// into the next report.
type Reporter struct {
	client   TimeReporter
	minimum  time.Duration
	logger   *slog.Logger
	now      func() time.Time
	reported map[string]time.Duration
}

// NewReporter returns a Reporter that skips stretches shorter than minimum.
func NewReporter(client TimeReporter, minimum time.Duration, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{
		client:   client,
		minimum:  minimum,
		logger:   logger,
		now:      time.Now,
		reported: map[string]time.Duration{},
	}
}

// Run consumes registry events until the channel closes or ctx is done.
func (r *Reporter) Run(ctx context.Context, events <-chan timer.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			r.Handle(ctx, ev)
		}
	}
}

// Handle processes one registry event.
func (r *Reporter) Handle(ctx context.Context, ev timer.Event) {
	switch ev.Type {
	case timer.EventStarted:
		// Time credited before this process first saw the timer run is not
		// ours to report.
		if _, ok := r.reported[ev.SessionID]; !ok {
			r.reported[ev.SessionID] = ev.Elapsed
		}
	case timer.EventCleared:
		delete(r.reported, ev.SessionID)
	case timer.EventStopped:
		base := r.reported[ev.SessionID]
		stretch := (ev.Elapsed - base).Truncate(time.Second)
		if stretch <= 0 || stretch < r.minimum {
			r.logger.Debug("study time not reported", "session_id", ev.SessionID, "seconds", int64(stretch/time.Second))
			return
		}
		end := ev.At
		if end.IsZero() {
			end = r.now()
		}
		start := end.Add(-stretch)
		if err := r.client.ReportTime(ctx, ev.SessionID, start, end); err != nil {
			r.logger.Warn("failed to report study time", "session_id", ev.SessionID, "seconds", int64(stretch/time.Second), "error", err)
			return
		}
		r.reported[ev.SessionID] = base + stretch
		r.logger.Info("study time reported", "session_id", ev.SessionID, "seconds", int64(stretch/time.Second))
	}
}
