// Package visual maps timer state to what a host shows for it.
package visual

import (
	"fmt"
	"time"

	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/timer"
)

type Kind string

const (
	KindStart  Kind = "start"
	KindResume Kind = "resume"
	KindActive Kind = "active"
)

type Emphasis string

const (
	EmphasisNormal Emphasis = "normal"
	EmphasisMuted  Emphasis = "muted"
	EmphasisUrgent Emphasis = "urgent"
)

// State is the control a host renders for one session.
type State struct {
	Kind     Kind     `json:"kind"`
	Label    string   `json:"label"`
	Emphasis Emphasis `json:"emphasis"`
	// Pulse asks the host for an animated affordance.
	Pulse bool `json:"pulse"`
}

const (
	LabelStart  = "Begin study"
	LabelResume = "Continue"
	LabelActive = "Studying… pause"
)

// For returns the visual state of t. A zero Timer maps to the start state.
func For(t timer.Timer) State {
	switch {
	case t.Running:
		return State{Kind: KindActive, Label: LabelActive, Emphasis: EmphasisUrgent, Pulse: true}
	case t.Elapsed > 0:
		return State{Kind: KindResume, Label: LabelResume, Emphasis: EmphasisNormal}
	default:
		return State{Kind: KindStart, Label: LabelStart, Emphasis: EmphasisMuted}
	}
}

// FormatElapsed renders d as HH:MM:SS. Hours are not wrapped at 24.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}

const DefaultPlannedMinutes = 50

// Progress reports whole minutes studied against a planned session length.
type Progress struct {
	Minutes  int
	Planned  int
	Fraction float64
}

// ProgressOf computes study progress. A non-positive planned length falls
// back to DefaultPlannedMinutes and the fraction is capped at 1.
func ProgressOf(elapsed time.Duration, plannedMinutes int) Progress {
	if plannedMinutes <= 0 {
		plannedMinutes = DefaultPlannedMinutes
	}
	if elapsed < 0 {
		elapsed = 0
	}
	minutes := int(elapsed / time.Minute)
	fraction := float64(minutes) / float64(plannedMinutes)
	if fraction > 1 {
		fraction = 1
	}
	return Progress{Minutes: minutes, Planned: plannedMinutes, Fraction: fraction}
}

func (p Progress) String() string {
	return fmt.Sprintf("%d/%d min", p.Minutes, p.Planned)
}
