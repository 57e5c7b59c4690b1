// Package model defines shared data structures.
package model

import "time"

// PlanSession is one study session from the study plan.
type PlanSession struct {
	ID             string
	Title          string
	PlannedMinutes int
}

// Label returns the title, or the identifier when the plan has no title.
func (p PlanSession) Label() string {
	if p.Title != "" {
		return p.Title
	}
	return p.ID
}

// CompletedSession records a study session that was marked complete.
type CompletedSession struct {
	ID             int64
	SessionID      string
	Title          string
	CompletedAt    time.Time
	StudiedSeconds int64
	Pomodoros      int
	Status         string
	// Synced is false when the session was completed without a remote server.
	Synced bool
}

// HistoryConfig defines filters for the history report.
type HistoryConfig struct {
	Since *time.Time
	Last  int
}

// DayTotal aggregates study time for one calendar day.
type DayTotal struct {
	Day            time.Time
	StudiedSeconds int64
	Sessions       int
}
