package service

import (
	"sync"
	"time"

	"eidgate/internal/eid/models"
)

// coalescer debounces emitted states: within a window only the last state
// is published. Publishing happens under the lock so states leave in the
// order they were pushed.
type coalescer struct {
	window     time.Duration
	publish    func(models.SessionState)
	superseded func()

	mu      sync.Mutex
	pending models.SessionState
	timer   *time.Timer
	stopped bool
}

func newCoalescer(window time.Duration, publish func(models.SessionState), superseded func()) *coalescer {
	if superseded == nil {
		superseded = func() {}
	}
	return &coalescer{window: window, publish: publish, superseded: superseded}
}

func (c *coalescer) push(st models.SessionState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}
	if c.window <= 0 {
		c.publish(st)
		return
	}

	if c.pending != nil {
		c.superseded()
	}
	c.pending = st
	if c.timer == nil {
		c.timer = time.AfterFunc(c.window, c.flush)
		return
	}
	c.timer.Reset(c.window)
}

func (c *coalescer) flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending == nil {
		return
	}
	st := c.pending
	c.pending = nil
	c.publish(st)
}

// stop publishes any pending state immediately and rejects further pushes.
func (c *coalescer) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}
	c.stopped = true
	if c.timer != nil {
		c.timer.Stop()
	}
	if c.pending != nil {
		st := c.pending
		c.pending = nil
		c.publish(st)
	}
}
