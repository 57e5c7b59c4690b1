package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "nested", "studytimer.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return st
}

func TestKVGetSet(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if _, ok, err := st.Get(ctx, "studytimer.timers"); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}
	if err := st.Set(ctx, "studytimer.timers", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := st.Set(ctx, "studytimer.timers", []byte(`{"b":2}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	value, ok, err := st.Get(ctx, "studytimer.timers")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if string(value) != `{"b":2}` {
		t.Fatalf("unexpected value %q", value)
	}
	if _, ok, _ := st.Get(ctx, "other.timers"); ok {
		t.Fatalf("keys must not collide")
	}
}

func TestKVSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "studytimer.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := st.Set(context.Background(), "k", []byte("v")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	st, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()
	value, ok, err := st.Get(context.Background(), "k")
	if err != nil || !ok || string(value) != "v" {
		t.Fatalf("expected persisted value, got %q ok=%v err=%v", value, ok, err)
	}
}

func TestCompletedHistory(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		_, err := st.InsertCompleted(ctx, model.CompletedSession{
			SessionID:      id,
			Title:          "Session " + strings.ToUpper(id),
			CompletedAt:    base.Add(time.Duration(i) * 24 * time.Hour),
			StudiedSeconds: int64(600 * (i + 1)),
			Pomodoros:      i,
			Status:         "Concluído",
			Synced:         i != 1,
		})
		if err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	all, err := st.ListCompleted(ctx, model.HistoryConfig{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].SessionID != "a" || all[2].SessionID != "c" {
		t.Fatalf("unexpected history %+v", all)
	}
	if all[1].Synced || !all[0].Synced {
		t.Fatalf("synced flag not round-tripped: %+v", all)
	}
	if !all[2].CompletedAt.Equal(base.Add(48*time.Hour)) || all[2].StudiedSeconds != 1800 {
		t.Fatalf("unexpected row %+v", all[2])
	}

	since := base.Add(24 * time.Hour)
	filtered, err := st.ListCompleted(ctx, model.HistoryConfig{Since: &since})
	if err != nil {
		t.Fatalf("list since: %v", err)
	}
	if len(filtered) != 2 || filtered[0].SessionID != "b" {
		t.Fatalf("unexpected filtered history %+v", filtered)
	}

	last, err := st.ListCompleted(ctx, model.HistoryConfig{Last: 1})
	if err != nil {
		t.Fatalf("list last: %v", err)
	}
	if len(last) != 1 || last[0].SessionID != "c" {
		t.Fatalf("unexpected last history %+v", last)
	}
}

func TestFileKV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "timers.yaml")
	kv, err := OpenFile(path)
	if err != nil {
		t.Fatalf("open file kv: %v", err)
	}
	ctx := context.Background()
	if _, ok, err := kv.Get(ctx, "studytimer.timers"); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}
	payload := `{"s1":{"sessionId":"s1","elapsedMs":1000}}`
	if err := kv.Set(ctx, "studytimer.timers", []byte(payload)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := kv.Set(ctx, "other", []byte("x")); err != nil {
		t.Fatalf("set other: %v", err)
	}

	reopened, err := OpenFile(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	value, ok, err := reopened.Get(ctx, "studytimer.timers")
	if err != nil || !ok || string(value) != payload {
		t.Fatalf("unexpected value %q ok=%v err=%v", value, ok, err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if !strings.Contains(string(raw), "studytimer.timers:") {
		t.Fatalf("expected readable yaml, got %q", raw)
	}
	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "store-*.yaml"))
	if len(matches) != 0 {
		t.Fatalf("temp files left behind: %v", matches)
	}
}

func TestFileKVCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timers.yaml")
	if err := os.WriteFile(path, []byte("- not\n- a map\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	kv, err := OpenFile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()
	if _, _, err := kv.Get(ctx, "k"); !errors.Is(err, ErrCorruptFile) {
		t.Fatalf("expected ErrCorruptFile, got %v", err)
	}

	if err := kv.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("set over corrupt file: %v", err)
	}
	value, ok, err := kv.Get(ctx, "k")
	if err != nil || !ok || string(value) != "v" {
		t.Fatalf("unexpected value %q ok=%v err=%v", value, ok, err)
	}
	backup, err := os.ReadFile(kv.BackupPath())
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if string(backup) != "- not\n- a map\n" {
		t.Fatalf("backup does not hold the corrupt bytes: %q", backup)
	}
	if err := kv.Set(ctx, "other", []byte("w")); err != nil {
		t.Fatalf("second set: %v", err)
	}
	if value, _, _ := kv.Get(ctx, "k"); string(value) != "v" {
		t.Fatalf("earlier key lost after rewrite: %q", value)
	}
}
