package tuner

import (
	"math"
	"time"
)

const (
	offsetHistory = 7

	// OffsetStep caps how far the reported offset moves per frame
	OffsetStep = 0.28
	// TunedThreshold is the in-tune band in semitones (15 cents)
	TunedThreshold = 0.15
	// TunedAfter is how long the offset must stay in band
	TunedAfter = 900 * time.Millisecond
)

// offsetTracker reports a steadied offset and the sustained in-tune flag
type offsetTracker struct {
	history    ring
	last       float64
	hasLast    bool
	tunedSince time.Duration
	inBand     bool
}

func newOffsetTracker() offsetTracker {
	return offsetTracker{history: newRing(offsetHistory)}
}

// update feeds a raw offset in semitones measured at now
func (t *offsetTracker) update(raw float64, now time.Duration) (offset float64, tuned bool) {
	t.history.push(raw)
	offset = t.history.median()
	if t.hasLast {
		offset = t.last + math.Max(-OffsetStep, math.Min(OffsetStep, offset-t.last))
	}
	t.last, t.hasLast = offset, true

	if math.Abs(offset) > TunedThreshold {
		t.inBand = false
		return offset, false
	}
	if !t.inBand {
		t.tunedSince, t.inBand = now, true
	}
	return offset, now-t.tunedSince >= TunedAfter
}

func (t *offsetTracker) reset() {
	t.history.reset()
	t.last, t.hasLast = 0, false
	t.tunedSince, t.inBand = 0, false
}
