// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for timer snapshots and study history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Ticker goroutines checkpoint concurrently; one connection serializes them.
	db.SetMaxOpenConns(1)
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS completed_sessions (
			id INTEGER PRIMARY KEY,
			session_id TEXT NOT NULL,
			title TEXT NOT NULL,
			completed_at TEXT NOT NULL,
			studied_seconds INTEGER NOT NULL,
			pomodoros INTEGER NOT NULL,
			status TEXT NOT NULL,
			synced INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_completed_sessions_completed_at ON completed_sessions(completed_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Set replaces the value stored under key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339Nano))
	return err
}

// InsertCompleted records a completed study session.
func (s *Store) InsertCompleted(ctx context.Context, cs model.CompletedSession) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO completed_sessions (session_id, title, completed_at, studied_seconds, pomodoros, status, synced)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		cs.SessionID,
		cs.Title,
		cs.CompletedAt.UTC().Format(time.RFC3339Nano),
		cs.StudiedSeconds,
		cs.Pomodoros,
		cs.Status,
		cs.Synced,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListCompleted returns completed sessions filtered by the history config,
// oldest first.
func (s *Store) ListCompleted(ctx context.Context, cfg model.HistoryConfig) ([]model.CompletedSession, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Since != nil {
		clauses = append(clauses, "completed_at >= ?")
		args = append(args, cfg.Since.UTC().Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT id, session_id, title, completed_at, studied_seconds, pomodoros, status, synced
		FROM completed_sessions
		WHERE %s
		ORDER BY completed_at ASC, id ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var sessions []model.CompletedSession
	for rows.Next() {
		var cs model.CompletedSession
		var completedAt string
		if err := rows.Scan(&cs.ID, &cs.SessionID, &cs.Title, &completedAt, &cs.StudiedSeconds, &cs.Pomodoros, &cs.Status, &cs.Synced); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, completedAt)
		if err != nil {
			return nil, err
		}
		cs.CompletedAt = parsed
		sessions = append(sessions, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if cfg.Last > 0 && len(sessions) > cfg.Last {
		sessions = sessions[len(sessions)-cfg.Last:]
	}
	return sessions, nil
}
