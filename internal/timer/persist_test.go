package timer

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/clock"
	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/store"
)

func TestSaveRestoreRoundTrip(t *testing.T) {
	store := newMemStore()
	r := New(DefaultConfig(), WithStore(store), WithLogger(quietLogger()))
	r.Start("s1")
	time.Sleep(200 * time.Millisecond)
	if err := r.SaveAll(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	r.Close()

	fresh := New(DefaultConfig(), WithStore(store), WithLogger(quietLogger()))
	defer fresh.Close()
	if n := fresh.RestoreAll(context.Background()); n != 1 {
		t.Fatalf("expected 1 restored timer, got %d", n)
	}
	tm, ok := fresh.Get("s1")
	if !ok {
		t.Fatalf("expected restored timer")
	}
	if tm.Running {
		t.Fatalf("restored timer must be paused")
	}
	if tm.Elapsed < 200*time.Millisecond {
		t.Fatalf("expected elapsed >= 200ms, got %v", tm.Elapsed)
	}
	if fresh.LiveTickers() != 0 {
		t.Fatalf("restored timers must not own tickers")
	}
}

func TestRestoreCreditsDowntimeForRunningSnapshot(t *testing.T) {
	now := epoch
	snap := Snapshot{
		SessionID:         "s1",
		RunStartTimestamp: now.Add(-90 * time.Minute).UnixMilli(),
		ElapsedMs:         1_800_000,
		IsRunning:         true,
		PomodoroCount:     1,
		SavedAt:           now.Add(-time.Hour).UnixMilli(),
	}
	data, err := json.Marshal(map[string]Snapshot{"s1": snap})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	store := newMemStore()
	store.data[StoreKey(DefaultNamespace)] = data

	r, _ := newTestRegistry(t, store)
	if n := r.RestoreAll(context.Background()); n != 1 {
		t.Fatalf("expected 1 restored timer, got %d", n)
	}
	tm, _ := r.Get("s1")
	if tm.Running {
		t.Fatalf("restored timer must be paused")
	}
	if tm.Elapsed < 5_400_000*time.Millisecond {
		t.Fatalf("expected elapsed >= 90m, got %v", tm.Elapsed)
	}
	if tm.Pomodoros != 1 {
		t.Fatalf("expected pomodoro count kept, got %d", tm.Pomodoros)
	}

	// Resuming continues from the recovered value.
	r.Start("s1")
	if got := r.Elapsed("s1"); got != tm.Elapsed {
		t.Fatalf("expected resume from %v, got %v", tm.Elapsed, got)
	}
}

func TestRecover(t *testing.T) {
	now := epoch
	tests := []struct {
		name          string
		snap          Snapshot
		wantElapsed   time.Duration
		wantPomodoros int
		wantNotified  int
	}{
		{
			name:        "paused snapshot keeps elapsed",
			snap:        Snapshot{ElapsedMs: 60_000, SavedAt: now.Add(-time.Hour).UnixMilli()},
			wantElapsed: time.Minute,
		},
		{
			name:        "running snapshot credits gap",
			snap:        Snapshot{ElapsedMs: 60_000, IsRunning: true, SavedAt: now.Add(-2 * time.Minute).UnixMilli()},
			wantElapsed: 3 * time.Minute,
		},
		{
			name:        "saved in the future credits nothing",
			snap:        Snapshot{ElapsedMs: 60_000, IsRunning: true, SavedAt: now.Add(time.Hour).UnixMilli()},
			wantElapsed: time.Minute,
		},
		{
			name:        "missing saved-at credits nothing",
			snap:        Snapshot{ElapsedMs: 60_000, IsRunning: true},
			wantElapsed: time.Minute,
		},
		{
			name:          "notified watermark clamped to count",
			snap:          Snapshot{ElapsedMs: 60_000, PomodoroCount: 2, LastNotifiedPomodoro: 5},
			wantElapsed:   time.Minute,
			wantPomodoros: 2,
			wantNotified:  2,
		},
		{
			name:        "negative counters clamped",
			snap:        Snapshot{ElapsedMs: 1000, PomodoroCount: -1, LastNotifiedPomodoro: -3},
			wantElapsed: time.Second,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Recover(tt.snap, now)
			if got.Running {
				t.Fatalf("recovered timer must be paused")
			}
			if got.Elapsed != tt.wantElapsed {
				t.Fatalf("elapsed: want %v, got %v", tt.wantElapsed, got.Elapsed)
			}
			if !got.RunStart.Equal(now.Add(-tt.wantElapsed)) {
				t.Fatalf("run start: want %v, got %v", now.Add(-tt.wantElapsed), got.RunStart)
			}
			if got.Pomodoros != tt.wantPomodoros || got.LastNotifiedPomodoro != tt.wantNotified {
				t.Fatalf("pomodoros: want %d/%d, got %d/%d", tt.wantPomodoros, tt.wantNotified, got.Pomodoros, got.LastNotifiedPomodoro)
			}
		})
	}
}

func TestBlankTimersAreNotPersisted(t *testing.T) {
	store := newMemStore()
	r, fake := newTestRegistry(t, store)
	r.Start("blank")
	r.Stop("blank")
	r.Start("used")
	fake.Advance(time.Second)
	r.Stop("used")

	snaps := store.stored(t)
	if _, ok := snaps["blank"]; ok {
		t.Fatalf("blank timer must not be persisted: %+v", snaps)
	}
	got, ok := snaps["used"]
	if !ok {
		t.Fatalf("expected snapshot for used timer")
	}
	if got.ElapsedMs != 1000 || got.IsRunning {
		t.Fatalf("unexpected snapshot %+v", got)
	}
	if got.SavedAt != fake.Now().UnixMilli() {
		t.Fatalf("expected savedAt %d, got %d", fake.Now().UnixMilli(), got.SavedAt)
	}
}

func TestTransitionsCheckpoint(t *testing.T) {
	store := newMemStore()
	r, fake := newTestRegistry(t, store)
	r.Start("s1")
	fake.Advance(2 * time.Second)

	snaps := store.stored(t)
	if s, ok := snaps["s1"]; !ok || !s.IsRunning {
		t.Fatalf("expected running snapshot after start, got %+v", snaps)
	}
	r.Stop("s1")
	snaps = store.stored(t)
	if s := snaps["s1"]; s.IsRunning || s.ElapsedMs != 2000 {
		t.Fatalf("expected paused snapshot at 2000ms, got %+v", s)
	}
}

func TestPeriodicCheckpoint(t *testing.T) {
	store := newMemStore()
	fake := clock.NewFake(epoch)
	cfg := DefaultConfig()
	cfg.CheckpointInterval = time.Second
	r := New(cfg, WithClock(fake), WithStore(store), WithLogger(quietLogger()))
	defer r.Close()

	r.Start("s1")
	store.mu.Lock()
	before := store.sets
	store.mu.Unlock()

	fake.Advance(1500 * time.Millisecond)
	deadline := time.Now().Add(2 * time.Second)
	for {
		store.mu.Lock()
		sets := store.sets
		store.mu.Unlock()
		if sets > before {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected a periodic checkpoint while running")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if s := store.stored(t)["s1"]; !s.IsRunning || s.ElapsedMs < 1000 {
		t.Fatalf("unexpected periodic snapshot %+v", s)
	}
}

func TestRestoreCorruptDataRestoresNothing(t *testing.T) {
	for name, raw := range map[string]string{
		"garbage":   "{not json",
		"wrong top": `[1,2,3]`,
	} {
		t.Run(name, func(t *testing.T) {
			store := newMemStore()
			store.data[StoreKey(DefaultNamespace)] = []byte(raw)
			r, _ := newTestRegistry(t, store)
			if n := r.RestoreAll(context.Background()); n != 0 {
				t.Fatalf("expected nothing restored, got %d", n)
			}
			if r.Len() != 0 {
				t.Fatalf("expected empty registry")
			}
		})
	}
}

func TestRestoreSkipsInvalidEntries(t *testing.T) {
	store := newMemStore()
	store.data[StoreKey(DefaultNamespace)] = []byte(`{
		"": {"elapsedMs": 1000},
		"neg": {"elapsedMs": -5},
		"ok": {"elapsedMs": 3000}
	}`)
	r, _ := newTestRegistry(t, store)
	if n := r.RestoreAll(context.Background()); n != 1 {
		t.Fatalf("expected 1 restored timer, got %d", n)
	}
	tm, ok := r.Get("ok")
	if !ok || tm.SessionID != "ok" || tm.Elapsed != 3*time.Second {
		t.Fatalf("unexpected restored timer %+v", tm)
	}
}

func TestRestoreSkipsElapsedBeyondDuration(t *testing.T) {
	store := newMemStore()
	store.data[StoreKey(DefaultNamespace)] = []byte(`{
		"huge": {"elapsedMs": 9300000000000000},
		"ok": {"elapsedMs": 2000}
	}`)
	r, _ := newTestRegistry(t, store)
	if n := r.RestoreAll(context.Background()); n != 1 {
		t.Fatalf("expected 1 restored timer, got %d", n)
	}
	if _, ok := r.Get("huge"); ok {
		t.Fatalf("overflowing snapshot must not be restored")
	}
	if got := r.Elapsed("ok"); got != 2*time.Second {
		t.Fatalf("unexpected elapsed for valid snapshot: %v", got)
	}
}

func TestRecoverClampsOverflowingElapsed(t *testing.T) {
	tm := Recover(Snapshot{
		SessionID: "huge",
		ElapsedMs: 9300000000000000,
		IsRunning: true,
		SavedAt:   epoch.Add(-time.Hour).UnixMilli(),
	}, epoch)
	if tm.Elapsed < 0 {
		t.Fatalf("elapsed wrapped negative: %v", tm.Elapsed)
	}
	if want := time.Duration(maxElapsedMs) * time.Millisecond; tm.Elapsed < want {
		t.Fatalf("expected elapsed clamped to %v, got %v", want, tm.Elapsed)
	}
}

func TestRestoreReadFailure(t *testing.T) {
	store := newMemStore()
	store.failGet = errors.New("disk gone")
	r, _ := newTestRegistry(t, store)
	if n := r.RestoreAll(context.Background()); n != 0 {
		t.Fatalf("expected nothing restored on read failure, got %d", n)
	}
}

func TestRestoreKeepsInMemoryTimers(t *testing.T) {
	store := newMemStore()
	store.data[StoreKey(DefaultNamespace)] = []byte(`{"s1": {"sessionId": "s1", "elapsedMs": 999000}}`)
	r, fake := newTestRegistry(t, store)
	r.Start("s1")
	fake.Advance(time.Second)
	if n := r.RestoreAll(context.Background()); n != 0 {
		t.Fatalf("expected in-memory timer to win, restored %d", n)
	}
	if got := r.Elapsed("s1"); got != time.Second {
		t.Fatalf("expected live value kept, got %v", got)
	}
}

func TestClearKeepsOtherSnapshots(t *testing.T) {
	store := newMemStore()
	r, fake := newTestRegistry(t, store)
	r.Start("live")
	fake.Advance(time.Second)
	r.Stop("live")

	// Another process wrote a session this registry never loaded.
	snaps := store.stored(t)
	snaps["offline"] = Snapshot{SessionID: "offline", ElapsedMs: 7000}
	data, err := json.Marshal(snaps)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	store.mu.Lock()
	store.data[StoreKey(DefaultNamespace)] = data
	store.mu.Unlock()

	r.Clear("offline")
	snaps = store.stored(t)
	if _, ok := snaps["offline"]; ok {
		t.Fatalf("expected unloaded snapshot removed, got %+v", snaps)
	}
	if _, ok := snaps["live"]; !ok {
		t.Fatalf("expected live snapshot kept, got %+v", snaps)
	}

	r.Clear("live")
	snaps = store.stored(t)
	if _, ok := snaps["live"]; ok {
		t.Fatalf("expected live snapshot removed, got %+v", snaps)
	}
	if r.Len() != 0 {
		t.Fatalf("expected empty registry after clear")
	}
}

func TestClearRepairsCorruptCollection(t *testing.T) {
	store := newMemStore()
	r, fake := newTestRegistry(t, store)
	r.Start("keep")
	fake.Advance(time.Second)
	r.Stop("keep")
	store.mu.Lock()
	store.data[StoreKey(DefaultNamespace)] = []byte("{broken")
	store.mu.Unlock()

	r.Clear("other")
	snaps := store.stored(t)
	if s, ok := snaps["keep"]; !ok || s.ElapsedMs != 1000 {
		t.Fatalf("expected collection rebuilt from memory, got %+v", snaps)
	}
}

func TestNamespaceSeparatesCollections(t *testing.T) {
	store := newMemStore()
	fake := clock.NewFake(epoch)
	a := New(Config{Namespace: "alpha"}, WithClock(fake), WithStore(store), WithLogger(quietLogger()))
	b := New(Config{Namespace: "beta"}, WithClock(fake), WithStore(store), WithLogger(quietLogger()))
	defer a.Close()
	defer b.Close()

	a.Start("s1")
	fake.Advance(time.Second)
	a.Stop("s1")

	if n := b.RestoreAll(context.Background()); n != 0 {
		t.Fatalf("expected separate namespaces, beta restored %d", n)
	}
	if StoreKey("alpha") != "alpha.timers" || StoreKey("") != "studytimer.timers" {
		t.Fatalf("unexpected store keys %q %q", StoreKey("alpha"), StoreKey(""))
	}
}

func TestCloseCheckpointKeepsRunningFlag(t *testing.T) {
	store := newMemStore()
	fake := clock.NewFake(epoch)
	r := New(DefaultConfig(), WithClock(fake), WithStore(store), WithLogger(quietLogger()))
	r.Start("s1")
	fake.Advance(3 * time.Second)
	r.Close()

	s := store.stored(t)["s1"]
	if !s.IsRunning || s.ElapsedMs != 3000 {
		t.Fatalf("expected running snapshot at 3000ms, got %+v", s)
	}

	fake.Advance(time.Minute)
	fresh := New(DefaultConfig(), WithClock(fake), WithStore(store), WithLogger(quietLogger()))
	defer fresh.Close()
	fresh.RestoreAll(context.Background())
	if got := fresh.Elapsed("s1"); got != time.Minute+3*time.Second {
		t.Fatalf("expected downtime credited, got %v", got)
	}
}

func TestSaveAllAfterCloseKeepsFinalCheckpoint(t *testing.T) {
	store := newMemStore()
	fake := clock.NewFake(epoch)
	r := New(DefaultConfig(), WithClock(fake), WithStore(store), WithLogger(quietLogger()))
	r.Start("s1")
	fake.Advance(2 * time.Second)
	r.Close()

	if err := r.SaveAll(context.Background()); err != nil {
		t.Fatalf("SaveAll after close: %v", err)
	}
	if s := store.stored(t)["s1"]; !s.IsRunning || s.ElapsedMs != 2000 {
		t.Fatalf("final checkpoint overwritten: %+v", s)
	}
}

func TestFileStoreRecoversFromCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timers.yaml")
	if err := os.WriteFile(path, []byte("- not\n- a map\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	kv, err := store.OpenFile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	fake := clock.NewFake(epoch)
	r := New(DefaultConfig(), WithClock(fake), WithStore(kv), WithLogger(quietLogger()))
	if n := r.RestoreAll(context.Background()); n != 0 {
		t.Fatalf("expected nothing restored from corrupt file, got %d", n)
	}
	r.Start("s1")
	fake.Advance(5 * time.Second)
	r.Stop("s1")
	if err := r.SaveAll(context.Background()); err != nil {
		t.Fatalf("SaveAll over corrupt file: %v", err)
	}
	r.Close()

	fresh := New(DefaultConfig(), WithClock(fake), WithStore(kv), WithLogger(quietLogger()))
	defer fresh.Close()
	if n := fresh.RestoreAll(context.Background()); n != 1 {
		t.Fatalf("expected 1 restored timer after restart, got %d", n)
	}
	if got := fresh.Elapsed("s1"); got != 5*time.Second {
		t.Fatalf("unexpected restored elapsed %v", got)
	}
}
