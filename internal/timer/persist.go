package timer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrCorruptSnapshot indicates the stored snapshot collection could not be
// decoded.
var ErrCorruptSnapshot = errors.New("corrupt timer snapshot")

// maxElapsedMs is the largest elapsed value a time.Duration can hold.
const maxElapsedMs = math.MaxInt64 / int64(time.Millisecond)

// Store is a durable key-value store. One key holds the whole snapshot
// collection.
type Store interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set replaces the value for key.
	Set(ctx context.Context, key string, value []byte) error
}

// StoreKey returns the namespaced key the snapshot collection lives under.
func StoreKey(namespace string) string {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return namespace + ".timers"
}

// Snapshot is the persisted form of a Timer. Timestamps are Unix milliseconds.
type Snapshot struct {
	SessionID            string `json:"sessionId"`
	RunStartTimestamp    int64  `json:"runStartTimestamp"`
	ElapsedMs            int64  `json:"elapsedMs"`
	IsRunning            bool   `json:"isRunning"`
	PomodoroCount        int    `json:"pomodoroCount"`
	LastNotifiedPomodoro int    `json:"lastNotifiedPomodoro"`
	SavedAt              int64  `json:"savedAt"`
}

func snapshotOf(t Timer, savedAt time.Time) Snapshot {
	return Snapshot{
		SessionID:            t.SessionID,
		RunStartTimestamp:    t.RunStart.UnixMilli(),
		ElapsedMs:            t.Elapsed.Milliseconds(),
		IsRunning:            t.Running,
		PomodoroCount:        t.Pomodoros,
		LastNotifiedPomodoro: t.LastNotifiedPomodoro,
		SavedAt:              savedAt.UnixMilli(),
	}
}

// Recover rebuilds a paused Timer from a snapshot. Time between SavedAt and
// now is credited when the snapshot was taken while running; a negative gap
// (clock moved backwards) credits nothing. Elapsed values outside the range of
// time.Duration are clamped.
func Recover(s Snapshot, now time.Time) Timer {
	var recovered time.Duration
	if s.ElapsedMs > 0 {
		recovered = time.Duration(min(s.ElapsedMs, maxElapsedMs)) * time.Millisecond
	}
	if s.IsRunning && s.SavedAt > 0 {
		if gap := now.Sub(time.UnixMilli(s.SavedAt)); gap > 0 && recovered <= math.MaxInt64-gap {
			recovered += gap
		}
	}
	pomodoros := s.PomodoroCount
	if pomodoros < 0 {
		pomodoros = 0
	}
	notified := s.LastNotifiedPomodoro
	if notified < 0 {
		notified = 0
	}
	if notified > pomodoros {
		notified = pomodoros
	}
	return Timer{
		SessionID:            s.SessionID,
		RunStart:             now.Add(-recovered),
		Elapsed:              recovered,
		Running:              false,
		Pomodoros:            pomodoros,
		LastNotifiedPomodoro: notified,
	}
}

// DecodeSnapshots parses a stored snapshot collection.
func DecodeSnapshots(data []byte) (map[string]Snapshot, error) {
	var snaps map[string]Snapshot
	if err := json.Unmarshal(data, &snaps); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	return snaps, nil
}

// SaveAll writes a snapshot of every non-blank timer. In-memory state is the
// source of truth and is unaffected by a failed write.
func (r *Registry) SaveAll(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	snaps, ok := r.snapshots()
	if !ok {
		return nil
	}
	data, err := json.Marshal(snaps)
	if err != nil {
		return fmt.Errorf("encode timer snapshots: %w", err)
	}
	if err := r.store.Set(ctx, r.key, data); err != nil {
		return fmt.Errorf("write timer snapshots: %w", err)
	}
	return nil
}

// RestoreAll loads persisted snapshots into the registry as paused timers and
// returns how many were restored. Sessions already present in memory keep
// their in-memory state. Unreadable or corrupt data restores nothing.
func (r *Registry) RestoreAll(ctx context.Context) int {
	if r.store == nil {
		return 0
	}
	data, ok, err := r.store.Get(ctx, r.key)
	if err != nil {
		r.logger.Warn("failed to read timer snapshots", "key", r.key, "error", err)
		return 0
	}
	if !ok || len(data) == 0 {
		return 0
	}
	snaps, err := DecodeSnapshots(data)
	if err != nil {
		r.logger.Warn("ignoring stored timers", "key", r.key, "error", err)
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.Now()
	restored := 0
	for id, snap := range snaps {
		if id == "" || snap.ElapsedMs < 0 || snap.ElapsedMs > maxElapsedMs {
			r.logger.Warn("skipping invalid timer snapshot", "session_id", id, "elapsed_ms", snap.ElapsedMs)
			continue
		}
		if _, exists := r.timers[id]; exists {
			continue
		}
		snap.SessionID = id
		r.timers[id] = &entry{timer: Recover(snap, now)}
		restored++
	}
	return restored
}

// snapshots reports false once Close has written the final checkpoint.
func (r *Registry) snapshots() (map[string]Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return nil, false
	}
	now := r.clock.Now()
	snaps := make(map[string]Snapshot, len(r.timers))
	for id, e := range r.timers {
		t := r.viewLocked(e, now)
		if t.Blank() {
			continue
		}
		snaps[id] = snapshotOf(t, now)
	}
	return snaps, true
}

// removeSnapshot deletes one session from the stored collection, keeping the
// snapshots of sessions that are not loaded in memory.
func (r *Registry) removeSnapshot(ctx context.Context, sessionID string) error {
	if r.store == nil {
		return nil
	}
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	data, ok, err := r.store.Get(ctx, r.key)
	if err != nil {
		return fmt.Errorf("read timer snapshots: %w", err)
	}
	if !ok || len(data) == 0 {
		return nil
	}
	snaps, err := DecodeSnapshots(data)
	if err != nil {
		// Nothing usable is stored; replace it with what memory holds.
		var live bool
		if snaps, live = r.snapshots(); !live {
			return nil
		}
	}
	if _, present := snaps[sessionID]; !present && err == nil {
		return nil
	}
	delete(snaps, sessionID)
	encoded, err := json.Marshal(snaps)
	if err != nil {
		return fmt.Errorf("encode timer snapshots: %w", err)
	}
	if err := r.store.Set(ctx, r.key, encoded); err != nil {
		return fmt.Errorf("write timer snapshots: %w", err)
	}
	return nil
}

func (r *Registry) checkpoint() {
	if err := r.SaveAll(context.Background()); err != nil {
		r.logger.Warn("timer checkpoint failed", "key", r.key, "error", err)
	}
}
