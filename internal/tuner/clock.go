package tuner

import (
	"sync"
	"time"
)

// Clock is a monotonic time source read once per frame
type Clock interface {
	Now() time.Duration
}

type systemClock struct {
	start time.Time
}

// SystemClock measures time since its creation on the monotonic clock
func SystemClock() Clock {
	return systemClock{start: time.Now()}
}

func (c systemClock) Now() time.Duration {
	return time.Since(c.start)
}

// ManualClock is advanced explicitly, by tests or by the driver for
// offline sources
type ManualClock struct {
	mu  sync.Mutex
	now time.Duration
}

// NewManualClock starts at zero
func NewManualClock() *ManualClock {
	return &ManualClock{}
}

func (c *ManualClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d
}

// Set moves the clock to an absolute time
func (c *ManualClock) Set(t time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
