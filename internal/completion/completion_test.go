package completion

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/clock"
	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/model"
	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/timer"
)

type fakeRemote struct {
	calls   []int64
	status  string
	err     error
	running bool
	reg     *timer.Registry
}

func (f *fakeRemote) Complete(_ context.Context, sessionID, status string, seconds int64) error {
	f.calls = append(f.calls, seconds)
	f.status = status
	if f.reg != nil {
		f.running = f.reg.HasActiveTimer(sessionID)
	}
	return f.err
}

type fakeHistory struct {
	rows []model.CompletedSession
	err  error
}

func (f *fakeHistory) InsertCompleted(_ context.Context, cs model.CompletedSession) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.rows = append(f.rows, cs)
	return int64(len(f.rows)), nil
}

var epoch = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newRegistry(t *testing.T) (*timer.Registry, *clock.Fake) {
	t.Helper()
	fake := clock.NewFake(epoch)
	r := timer.New(timer.DefaultConfig(), timer.WithClock(fake), timer.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	t.Cleanup(r.Close)
	return r, fake
}

func TestCompleteSendsWholeSecondsThenClears(t *testing.T) {
	reg, fake := newRegistry(t)
	reg.Start("9")
	fake.Advance(26*time.Minute + 1500*time.Millisecond)

	remote := &fakeRemote{reg: reg}
	history := &fakeHistory{}
	svc := NewService(reg,
		WithRemote(remote),
		WithHistory(history),
		WithTitles(func(id string) string { return "Session " + id }),
		WithNow(func() time.Time { return epoch.Add(time.Hour) }),
	)
	cs, err := svc.Complete(context.Background(), "9")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if len(remote.calls) != 1 || remote.calls[0] != 1561 || remote.status != DefaultStatus {
		t.Fatalf("unexpected remote calls %v status %q", remote.calls, remote.status)
	}
	if !remote.running {
		t.Fatalf("remote update must happen before the timer is stopped")
	}
	if reg.Len() != 0 || reg.LiveTickers() != 0 {
		t.Fatalf("expected timer stopped and cleared")
	}
	if len(history.rows) != 1 || cs.ID != 1 || cs.Title != "Session 9" || !cs.Synced || cs.StudiedSeconds != 1561 {
		t.Fatalf("unexpected completed session %+v", cs)
	}
	if !cs.CompletedAt.Equal(epoch.Add(time.Hour)) {
		t.Fatalf("unexpected completion time %v", cs.CompletedAt)
	}
}

func TestCompleteRemoteFailureLeavesTimer(t *testing.T) {
	reg, fake := newRegistry(t)
	reg.Start("9")
	fake.Advance(time.Minute)

	history := &fakeHistory{}
	svc := NewService(reg, WithRemote(&fakeRemote{err: errors.New("502")}), WithHistory(history))
	if _, err := svc.Complete(context.Background(), "9"); err == nil {
		t.Fatalf("expected remote error")
	}
	if !reg.HasActiveTimer("9") {
		t.Fatalf("timer must keep running after a failed completion")
	}
	if len(history.rows) != 0 {
		t.Fatalf("failed completion must not be recorded")
	}
}

func TestCompleteUnknownSession(t *testing.T) {
	reg, _ := newRegistry(t)
	svc := NewService(reg)
	if _, err := svc.Complete(context.Background(), "missing"); !errors.Is(err, ErrNoTimer) {
		t.Fatalf("expected ErrNoTimer, got %v", err)
	}
}

func TestCompleteOfflineAndHistoryFailure(t *testing.T) {
	reg, fake := newRegistry(t)
	reg.Start("1")
	fake.Advance(10 * time.Second)
	reg.Stop("1")

	svc := NewService(reg, WithHistory(&fakeHistory{err: errors.New("disk full")}), WithStatus("done"))
	cs, err := svc.Complete(context.Background(), "1")
	if err != nil {
		t.Fatalf("history failure must not fail completion: %v", err)
	}
	if cs.Synced || cs.Status != "done" || cs.StudiedSeconds != 10 {
		t.Fatalf("unexpected completed session %+v", cs)
	}
	if _, ok := reg.Get("1"); ok {
		t.Fatalf("expected timer cleared")
	}
}
