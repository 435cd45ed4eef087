package tuner

import "time"

const (
	// HoldCap is where the hold accumulator saturates
	HoldCap = 5000 * time.Millisecond
	// holdStepCap bounds a single tick so a stalled UI cannot jump ahead
	holdStepCap = 220 * time.Millisecond
)

// HoldTimer accumulates how long the tuner has been reporting in tune. It is
// driven by the presentation tick, not by audio frames.
type HoldTimer struct {
	held time.Duration
}

// Update adds dt while active and resets otherwise
func (h *HoldTimer) Update(active bool, dt time.Duration) time.Duration {
	if !active {
		h.held = 0
		return 0
	}
	h.held = min(h.held+min(max(dt, 0), holdStepCap), HoldCap)
	return h.held
}

// Held returns the accumulated time
func (h *HoldTimer) Held() time.Duration { return h.held }

// Progress returns the accumulated share of HoldCap in [0, 1]
func (h *HoldTimer) Progress() float64 {
	return float64(h.held) / float64(HoldCap)
}

// Full reports whether the cap has been reached
func (h *HoldTimer) Full() bool { return h.held >= HoldCap }
