package bench

import (
	"sync"
	"time"
)

// Timer is the timing collaborator the driver signals.
// Start marks the beginning of the measured phase, Stop the full drain.
type Timer interface {
	Start()
	Stop()
}

// Control is a wall-clock Timer. The harness reads Elapsed once the case
// returns.
type Control struct {
	mu    sync.Mutex
	now   func() time.Time
	start time.Time
	stop  time.Time
}

// NewControl creates an idle Control.
func NewControl() *Control {
	return &Control{now: time.Now}
}

// Start records the start of the measurement. Calling it again restarts it.
func (c *Control) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start = c.now()
	c.stop = time.Time{}
}

// Stop records the end of the measurement. It is a no-op before Start.
func (c *Control) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.start.IsZero() {
		return
	}
	c.stop = c.now()
}

// Started reports whether Start has been called.
func (c *Control) Started() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.start.IsZero()
}

// Elapsed returns the measured duration: start to stop, or start to now
// while the measurement is still open. Zero before Start.
func (c *Control) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.start.IsZero():
		return 0
	case c.stop.IsZero():
		return c.now().Sub(c.start)
	default:
		return c.stop.Sub(c.start)
	}
}
