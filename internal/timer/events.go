package timer

import "time"

// EventType defines the type of Registry event.
type EventType string

const (
	EventStarted  EventType = "started"
	EventStopped  EventType = "stopped"
	EventCleared  EventType = "cleared"
	EventPomodoro EventType = "pomodoro"
)

// Event represents a Registry update for observers.
type Event struct {
	Type      EventType
	SessionID string
	Elapsed   time.Duration
	// Pomodoros is the completed interval count after the event.
	Pomodoros int
	// Crossed is the number of interval boundaries folded into a pomodoro
	// event. It is 1 for ordinary ticks and larger after a clock jump.
	Crossed int
	At      time.Time
}

// Update is what the display hook receives on every tick and transition.
type Update struct {
	SessionID string
	Elapsed   time.Duration
	Running   bool
	Pomodoros int
}

// DisplayFunc renders timer updates. It is called outside the registry lock,
// possibly from several ticker goroutines at once.
type DisplayFunc func(Update)
