package timeutil

import (
	"testing"
	"time"
)

func TestRealClockNow(t *testing.T) {
	t.Parallel()

	var c Clock = RealClock{}
	before := time.Now()
	now := c.Now()
	if now.Before(before) {
		t.Errorf("Now() = %v, before %v", now, before)
	}
}

func TestMockClock(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	if got := c.Now(); !got.Equal(start) {
		t.Errorf("Now() = %v, want %v", got, start)
	}

	c.Advance(time.Hour)
	if got := c.Since(start); got != time.Hour {
		t.Errorf("Since(start) = %v, want 1h", got)
	}

	c.Set(start)
	if got := c.Now(); !got.Equal(start) {
		t.Errorf("after Set: Now() = %v, want %v", got, start)
	}

	c.Sleep(50 * time.Millisecond)
	c.Sleep(100 * time.Millisecond)
	sleeps := c.Sleeps()
	if len(sleeps) != 2 || sleeps[0] != 50*time.Millisecond || sleeps[1] != 100*time.Millisecond {
		t.Errorf("Sleeps() = %v, want [50ms 100ms]", sleeps)
	}
}
