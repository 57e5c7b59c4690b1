package timer

import (
	"time"

	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/clock"
)

// tickHandle is the scheduling handle of one running timer. Closing quit is
// the cancellation token for its goroutine.
type tickHandle struct {
	ticker clock.Ticker
	quit   chan struct{}
}

func (r *Registry) startTickerLocked(e *entry) {
	if e.handle != nil {
		return
	}
	h := &tickHandle{
		ticker: r.clock.NewTicker(r.config.TickInterval),
		quit:   make(chan struct{}),
	}
	e.handle = h
	r.tickers.Add(1)
	go r.run(e.timer.SessionID, h)
}

func (r *Registry) stopTickerLocked(e *entry) {
	if e.handle == nil {
		return
	}
	e.handle.ticker.Stop()
	close(e.handle.quit)
	e.handle = nil
}

func (r *Registry) run(sessionID string, h *tickHandle) {
	defer r.tickers.Done()
	for {
		select {
		case <-h.quit:
			return
		case <-h.ticker.C():
			r.tick(sessionID, h)
		}
	}
}

func (r *Registry) tick(sessionID string, h *tickHandle) {
	r.mu.Lock()
	e, ok := r.timers[sessionID]
	// A tick already in flight when the handle was cancelled is stale.
	if !ok || e.handle != h || !e.timer.Running {
		r.mu.Unlock()
		return
	}
	now := r.clock.Now()
	r.advanceLocked(e, now)

	count, crossed := r.announcePomodoroLocked(e, now)
	save := crossed > 0
	if r.config.CheckpointInterval > 0 && now.Sub(e.lastCheckpoint) >= r.config.CheckpointInterval {
		save = true
	}
	if save {
		e.lastCheckpoint = now
	}
	update := e.update()
	r.mu.Unlock()

	if crossed > 0 {
		r.logger.Info("pomodoro completed", "session_id", sessionID, "pomodoros", count, "crossed", crossed)
	}
	r.notifyDisplay(update)
	if save {
		r.checkpoint()
	}
}

// announcePomodoroLocked records pomodoro boundaries crossed since the last
// notification and emits a single event covering all of them.
func (r *Registry) announcePomodoroLocked(e *entry, now time.Time) (count, crossed int) {
	count, crossed = DetectPomodoro(e.timer.Elapsed, r.config.PomodoroLength, e.timer.LastNotifiedPomodoro)
	if crossed == 0 {
		return count, 0
	}
	e.timer.Pomodoros = count
	e.timer.LastNotifiedPomodoro = count
	r.emitLocked(Event{
		Type:      EventPomodoro,
		SessionID: e.timer.SessionID,
		Elapsed:   e.timer.Elapsed,
		Pomodoros: count,
		Crossed:   crossed,
		At:        now,
	})
	return count, crossed
}
