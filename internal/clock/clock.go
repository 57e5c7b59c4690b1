// Package clock isolates wall-clock reads and periodic scheduling from the host
// time source.
//
// Production code uses Real(). Tests use NewFake() and advance time by hand.
package clock

import "time"

// Clock provides the time operations the timer core depends on.
type Clock interface {
	// Now returns the current wall-clock time.
	Now() time.Time

	// NewTicker returns a Ticker that delivers the current time every d.
	NewTicker(d time.Duration) Ticker
}

// Ticker is a cancellable periodic schedule.
type Ticker interface {
	// C returns the channel on which ticks are delivered.
	C() <-chan time.Time

	// Stop turns off the ticker. No ticks are sent after Stop returns.
	Stop()
}

type realClock struct{}

// Real returns a Clock backed by the time package.
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) NewTicker(d time.Duration) Ticker {
	return &realTicker{ticker: time.NewTicker(d)}
}

type realTicker struct {
	ticker *time.Ticker
}

func (t *realTicker) C() <-chan time.Time {
	return t.ticker.C
}

func (t *realTicker) Stop() {
	t.ticker.Stop()
}
