package pageview

import (
	"sync"
	"time"
)

// Coalescer merges a burst of calls into a single trailing invocation
// per time window. Each Trigger supersedes a pending invocation and
// restarts the window, so fn runs once, after the burst goes quiet.
//
// It is the engine's scroll-event damper, and a reusable primitive:
// hosts can wrap their own handlers (a search box feeding
// Engine.Search typically coalesces at ~300ms upstream).
//
// Coalescer is safe for concurrent use.
type Coalescer struct {
	window time.Duration
	fn     func()

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	stopped bool
}

// NewCoalescer creates a coalescer invoking fn at most once per burst,
// window after the last Trigger.
func NewCoalescer(window time.Duration, fn func()) *Coalescer {
	return &Coalescer{window: window, fn: fn}
}

// Trigger schedules (or reschedules) the trailing invocation,
// cancelling any pending one.
func (c *Coalescer) Trigger() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.pending = true
	if c.timer == nil {
		c.timer = time.AfterFunc(c.window, c.fire)
	} else {
		c.timer.Reset(c.window)
	}
}

func (c *Coalescer) fire() {
	c.mu.Lock()
	if c.stopped || !c.pending {
		c.mu.Unlock()
		return
	}
	c.pending = false
	fn := c.fn
	c.mu.Unlock()
	fn()
}

// Flush runs the pending invocation immediately, if any.
func (c *Coalescer) Flush() {
	c.mu.Lock()
	if c.stopped || !c.pending {
		c.mu.Unlock()
		return
	}
	c.pending = false
	if c.timer != nil {
		c.timer.Stop()
	}
	fn := c.fn
	c.mu.Unlock()
	fn()
}

// Stop cancels any pending invocation and rejects future Triggers.
func (c *Coalescer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	c.pending = false
	if c.timer != nil {
		c.timer.Stop()
	}
}
