package tui

import (
	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/timer"
)

// DisplayBridge carries registry display updates into the Bubble Tea loop.
// The hook never blocks: registry calls made from inside Update would
// otherwise deadlock against the loop that is waiting on them.
type DisplayBridge struct {
	ch chan timer.Update
}

func NewDisplayBridge(buffer int) *DisplayBridge {
	if buffer <= 0 {
		buffer = 64
	}
	return &DisplayBridge{ch: make(chan timer.Update, buffer)}
}

// Hook is installed on the registry with timer.WithDisplay. Updates that do
// not fit in the buffer are dropped; the screen redraws from registry state.
func (b *DisplayBridge) Hook() timer.DisplayFunc {
	return func(u timer.Update) {
		select {
		case b.ch <- u:
		default:
		}
	}
}

// Updates returns the receiving side of the bridge.
func (b *DisplayBridge) Updates() <-chan timer.Update {
	return b.ch
}
