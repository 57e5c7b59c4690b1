// Package timer tracks active study time per study session.
//
// A Registry owns one Timer per session identifier. Running timers are driven
// by their own ticker goroutine, emit pomodoro events as 25-minute boundaries
// are crossed, and are checkpointed to a durable Store so that a restarted
// process can recover the time accumulated while nobody was watching.
package timer

import (
	"time"
)

const (
	DefaultTickInterval       = 100 * time.Millisecond
	DefaultCheckpointInterval = 30 * time.Second
	DefaultPomodoroLength     = 25 * time.Minute
	DefaultNamespace          = "studytimer"
)

// Config contains runtime options for a Registry.
type Config struct {
	// TickInterval is the resolution of running timers.
	TickInterval time.Duration
	// CheckpointInterval bounds how much running time can be lost on an
	// ungraceful exit. Zero disables periodic checkpoints; transitions are
	// still persisted.
	CheckpointInterval time.Duration
	// PomodoroLength is the fixed work interval length.
	PomodoroLength time.Duration
	// Namespace prefixes the store key.
	Namespace string
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		TickInterval:       DefaultTickInterval,
		CheckpointInterval: DefaultCheckpointInterval,
		PomodoroLength:     DefaultPomodoroLength,
		Namespace:          DefaultNamespace,
	}
}

func (c Config) normalized() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.CheckpointInterval < 0 {
		c.CheckpointInterval = 0
	}
	if c.PomodoroLength <= 0 {
		c.PomodoroLength = DefaultPomodoroLength
	}
	if c.Namespace == "" {
		c.Namespace = DefaultNamespace
	}
	return c
}

// Timer is a point-in-time copy of one session's timer state.
type Timer struct {
	SessionID string
	// RunStart marks the beginning of the current running stretch. It is kept
	// equal to now - Elapsed whenever the timer resumes.
	RunStart             time.Time
	Elapsed              time.Duration
	Running              bool
	Pomodoros            int
	LastNotifiedPomodoro int
}

// Blank reports whether the timer has never accumulated any study time.
// Blank timers are not persisted.
func (t Timer) Blank() bool {
	return t.Elapsed == 0 && !t.Running
}

// WholeSeconds returns the elapsed time truncated to whole seconds.
func (t Timer) WholeSeconds() int64 {
	return int64(t.Elapsed / time.Second)
}
