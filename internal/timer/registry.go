package timer

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/clock"
)

type entry struct {
	timer          Timer
	handle         *tickHandle
	lastCheckpoint time.Time
}

func (e *entry) update() Update {
	return Update{
		SessionID: e.timer.SessionID,
		Elapsed:   e.timer.Elapsed,
		Running:   e.timer.Running,
		Pomodoros: e.timer.Pomodoros,
	}
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock replaces the wall clock.
func WithClock(c clock.Clock) Option {
	return func(r *Registry) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithStore enables persistence to the given store.
func WithStore(s Store) Option {
	return func(r *Registry) {
		r.store = s
	}
}

// WithLogger sets the logger used for storage failures and transitions.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithDisplay installs the display hook.
func WithDisplay(fn DisplayFunc) Option {
	return func(r *Registry) {
		r.display = fn
	}
}

// Registry maps session identifiers to timers. At most one Timer exists per
// session, and every running Timer owns exactly one ticker.
type Registry struct {
	mu          sync.Mutex
	config      Config
	clock       clock.Clock
	logger      *slog.Logger
	display     DisplayFunc
	timers      map[string]*entry
	subscribers []chan Event
	tickers     sync.WaitGroup
	closed      bool
	sealed      bool

	store  Store
	key    string
	saveMu sync.Mutex
}

// New creates an empty Registry. Call RestoreAll before handing it to a UI.
func New(config Config, opts ...Option) *Registry {
	config = config.normalized()
	r := &Registry{
		config: config,
		clock:  clock.Real(),
		logger: slog.Default(),
		timers: make(map[string]*entry),
		key:    StoreKey(config.Namespace),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Config returns the normalized configuration.
func (r *Registry) Config() Config {
	return r.config
}

// Subscribe registers a new observer channel. Events are dropped for
// subscribers whose buffer is full.
func (r *Registry) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		close(ch)
		return ch
	}
	r.subscribers = append(r.subscribers, ch)
	return ch
}

// Start creates the session's timer if needed and makes it run. Starting a
// running timer is a no-op.
func (r *Registry) Start(sessionID string) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	e, ok := r.timers[sessionID]
	if ok && e.timer.Running {
		r.mu.Unlock()
		return
	}
	if !ok {
		e = &entry{timer: Timer{SessionID: sessionID}}
		r.timers[sessionID] = e
	}
	now := r.clock.Now()
	e.timer.RunStart = now.Add(-e.timer.Elapsed)
	e.timer.Running = true
	e.lastCheckpoint = now
	r.startTickerLocked(e)
	update := e.update()
	r.emitLocked(Event{
		Type:      EventStarted,
		SessionID: sessionID,
		Elapsed:   e.timer.Elapsed,
		Pomodoros: e.timer.Pomodoros,
		At:        now,
	})
	r.mu.Unlock()

	r.logger.Debug("timer started", "session_id", sessionID, "elapsed_ms", update.Elapsed.Milliseconds())
	r.notifyDisplay(update)
	r.checkpoint()
}

// Stop freezes a running timer. A pomodoro boundary crossed since the last
// tick is announced before the stop event. Stopping an absent or paused timer
// is a no-op.
func (r *Registry) Stop(sessionID string) {
	r.mu.Lock()
	e, ok := r.timers[sessionID]
	if !ok || !e.timer.Running {
		r.mu.Unlock()
		return
	}
	now := r.clock.Now()
	r.advanceLocked(e, now)
	count, crossed := r.announcePomodoroLocked(e, now)
	e.timer.Running = false
	r.stopTickerLocked(e)
	update := e.update()
	r.emitLocked(Event{
		Type:      EventStopped,
		SessionID: sessionID,
		Elapsed:   e.timer.Elapsed,
		Pomodoros: e.timer.Pomodoros,
		At:        now,
	})
	r.mu.Unlock()

	if crossed > 0 {
		r.logger.Info("pomodoro completed", "session_id", sessionID, "pomodoros", count, "crossed", crossed)
	}
	r.logger.Debug("timer stopped", "session_id", sessionID, "elapsed_ms", update.Elapsed.Milliseconds())
	r.notifyDisplay(update)
	r.checkpoint()
}

// Toggle starts a paused or absent timer and stops a running one.
func (r *Registry) Toggle(sessionID string) {
	if r.HasActiveTimer(sessionID) {
		r.Stop(sessionID)
		return
	}
	r.Start(sessionID)
}

// Elapsed returns the session's accumulated study time, computed live for a
// running timer. Unknown sessions report zero.
func (r *Registry) Elapsed(sessionID string) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.timers[sessionID]
	if !ok {
		return 0
	}
	return r.viewLocked(e, r.clock.Now()).Elapsed
}

// Get returns a copy of the session's timer.
func (r *Registry) Get(sessionID string) (Timer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.timers[sessionID]
	if !ok {
		return Timer{}, false
	}
	return r.viewLocked(e, r.clock.Now()), true
}

// ActiveTimer returns the session's timer only if it is running.
func (r *Registry) ActiveTimer(sessionID string) (Timer, bool) {
	t, ok := r.Get(sessionID)
	if !ok || !t.Running {
		return Timer{}, false
	}
	return t, true
}

// HasActiveTimer reports whether the session has a running timer.
func (r *Registry) HasActiveTimer(sessionID string) bool {
	_, ok := r.ActiveTimer(sessionID)
	return ok
}

// Clear removes the session's timer and its persisted snapshot. The snapshot
// is removed even when the timer is not loaded in memory.
func (r *Registry) Clear(sessionID string) {
	r.mu.Lock()
	e, ok := r.timers[sessionID]
	if ok {
		r.stopTickerLocked(e)
		delete(r.timers, sessionID)
		r.emitLocked(Event{
			Type:      EventCleared,
			SessionID: sessionID,
			At:        r.clock.Now(),
		})
	}
	r.mu.Unlock()

	if err := r.removeSnapshot(context.Background(), sessionID); err != nil {
		r.logger.Warn("failed to remove timer snapshot", "session_id", sessionID, "key", r.key, "error", err)
	}
	if ok {
		r.notifyDisplay(Update{SessionID: sessionID})
	}
}

// Timers returns copies of every timer ordered by session identifier.
func (r *Registry) Timers() []Timer {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.Now()
	result := make([]Timer, 0, len(r.timers))
	for _, e := range r.timers {
		result = append(result, r.viewLocked(e, now))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SessionID < result[j].SessionID
	})
	return result
}

// Len returns the number of timers held in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

// LiveTickers returns the number of scheduling handles currently owned by
// timers.
func (r *Registry) LiveTickers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	live := 0
	for _, e := range r.timers {
		if e.handle != nil {
			live++
		}
	}
	return live
}

// Close cancels every ticker, waits for the ticker goroutines to exit, writes
// a final checkpoint and closes subscriber channels. Running timers stay
// marked as running in the checkpoint so the next RestoreAll credits the time
// the process was down. In memory they are left paused, and later SaveAll
// calls do not overwrite the final checkpoint. Close must not be called from
// a display hook.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	now := r.clock.Now()
	for _, e := range r.timers {
		if e.timer.Running {
			r.advanceLocked(e, now)
		}
		r.stopTickerLocked(e)
	}
	r.mu.Unlock()

	r.tickers.Wait()
	if err := r.SaveAll(context.Background()); err != nil {
		r.logger.Warn("final timer checkpoint failed", "key", r.key, "error", err)
	}

	r.mu.Lock()
	r.sealed = true
	for _, e := range r.timers {
		e.timer.Running = false
	}
	for _, ch := range r.subscribers {
		close(ch)
	}
	r.subscribers = nil
	r.mu.Unlock()
}

// viewLocked brings a running timer up to date before copying it, so every
// reading is live and never lower than the previous one.
func (r *Registry) viewLocked(e *entry, now time.Time) Timer {
	if e.timer.Running {
		r.advanceLocked(e, now)
	}
	return e.timer
}

// advanceLocked stores the live elapsed value. After a backwards clock jump
// the run start is rebased so elapsed keeps growing from where it was.
func (r *Registry) advanceLocked(e *entry, now time.Time) {
	live := now.Sub(e.timer.RunStart)
	if live < e.timer.Elapsed {
		e.timer.RunStart = now.Add(-e.timer.Elapsed)
		return
	}
	e.timer.Elapsed = live
}

func (r *Registry) emitLocked(event Event) {
	for _, ch := range r.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

func (r *Registry) notifyDisplay(update Update) {
	if r.display != nil {
		r.display(update)
	}
}
