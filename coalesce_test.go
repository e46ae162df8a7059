package pageview

import (
	"sync/atomic"
	"testing"
	"time"
)

func waitForCount(t *testing.T, n *atomic.Int32, want int32) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for n.Load() != want {
		if time.Now().After(deadline) {
			t.Fatalf("count = %d, want %d", n.Load(), want)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestCoalescerMergesBurst(t *testing.T) {
	var fired atomic.Int32
	c := NewCoalescer(20*time.Millisecond, func() { fired.Add(1) })
	defer c.Stop()

	// A burst of triggers inside one window fires exactly once.
	for i := 0; i < 10; i++ {
		c.Trigger()
		time.Sleep(2 * time.Millisecond)
	}
	waitForCount(t, &fired, 1)

	// Triggers in the burst keep pushing the deadline out: nothing
	// more fires once the burst is over.
	time.Sleep(50 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("fired %d times, want 1", got)
	}
}

func TestCoalescerFiresPerBurst(t *testing.T) {
	var fired atomic.Int32
	c := NewCoalescer(10*time.Millisecond, func() { fired.Add(1) })
	defer c.Stop()

	c.Trigger()
	waitForCount(t, &fired, 1)
	c.Trigger()
	waitForCount(t, &fired, 2)
}

func TestCoalescerFlush(t *testing.T) {
	var fired atomic.Int32
	c := NewCoalescer(time.Hour, func() { fired.Add(1) })
	defer c.Stop()

	c.Flush() // nothing pending
	if fired.Load() != 0 {
		t.Error("Flush with nothing pending fired")
	}

	c.Trigger()
	c.Flush()
	if fired.Load() != 1 {
		t.Errorf("fired %d times after Flush, want 1", fired.Load())
	}
	// The flushed invocation is consumed; the timer must not re-fire.
	time.Sleep(20 * time.Millisecond)
	if fired.Load() != 1 {
		t.Errorf("fired %d times, want 1", fired.Load())
	}
}

func TestCoalescerStop(t *testing.T) {
	var fired atomic.Int32
	c := NewCoalescer(10*time.Millisecond, func() { fired.Add(1) })

	c.Trigger()
	c.Stop()
	time.Sleep(30 * time.Millisecond)
	if fired.Load() != 0 {
		t.Errorf("fired %d times after Stop, want 0", fired.Load())
	}
	c.Trigger() // rejected
	c.Flush()
	time.Sleep(30 * time.Millisecond)
	if fired.Load() != 0 {
		t.Errorf("fired %d times after stopped Trigger, want 0", fired.Load())
	}
}
