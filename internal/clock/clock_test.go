package clock

import (
	"testing"
	"time"
)

func TestFakeAdvanceFiresTicker(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	f := NewFake(start)
	tk := f.NewTicker(100 * time.Millisecond)

	f.Advance(50 * time.Millisecond)
	select {
	case <-tk.C():
		t.Fatalf("ticker fired before its deadline")
	default:
	}

	f.Advance(50 * time.Millisecond)
	select {
	case got := <-tk.C():
		if !got.Equal(start.Add(100 * time.Millisecond)) {
			t.Fatalf("unexpected tick time %v", got)
		}
	default:
		t.Fatalf("expected a tick after 100ms")
	}
	if !f.Now().Equal(start.Add(100 * time.Millisecond)) {
		t.Fatalf("unexpected now %v", f.Now())
	}
}

func TestFakeStopRemovesTicker(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	a := f.NewTicker(time.Second)
	f.NewTicker(time.Second)
	if f.ActiveTickers() != 2 {
		t.Fatalf("expected 2 tickers, got %d", f.ActiveTickers())
	}
	a.Stop()
	a.Stop()
	if f.ActiveTickers() != 1 {
		t.Fatalf("expected 1 ticker after stop, got %d", f.ActiveTickers())
	}
	f.Advance(2 * time.Second)
	select {
	case <-a.C():
		t.Fatalf("stopped ticker fired")
	default:
	}
}

func TestFakeSetDoesNotFire(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	tk := f.NewTicker(time.Second)
	f.Set(time.Unix(3600, 0))
	select {
	case <-tk.C():
		t.Fatalf("Set must not fire tickers")
	default:
	}
}

func TestRealClockTicks(t *testing.T) {
	c := Real()
	tk := c.NewTicker(5 * time.Millisecond)
	defer tk.Stop()
	select {
	case <-tk.C():
	case <-time.After(time.Second):
		t.Fatalf("real ticker did not fire")
	}
	if c.Now().IsZero() {
		t.Fatalf("expected non-zero now")
	}
}
