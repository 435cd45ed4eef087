package tuner

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// semitones up from f
func up(f, semitones float64) float64 {
	return f * math.Pow(2, semitones/12)
}

func TestRing(t *testing.T) {
	r := newRing(3)
	r.push(3)
	assert.Equal(t, 3.0, r.median())

	r.push(1)
	// upper median of an even count
	assert.Equal(t, 3.0, r.median())

	r.push(2)
	r.push(10)
	assert.Equal(t, 3, r.len())
	assert.Equal(t, []float64{1, 2, 10}, r.values)
	assert.Equal(t, 2.0, r.median())

	r.reset()
	assert.Equal(t, 0, r.len())
}

func TestStabilizer(t *testing.T) {
	const (
		threshold = 0.00315
		strong    = 0.1
		weak      = 0.005
	)
	spike := up(440, 2)

	t.Run("first value is taken as is", func(t *testing.T) {
		s := newStabilizer()
		assert.Equal(t, 440.0, s.push(440, strong, threshold, ChromaticSmoothing))
	})

	t.Run("single weak spike is held", func(t *testing.T) {
		s := newStabilizer()
		s.push(440, strong, threshold, ChromaticSmoothing)

		assert.Equal(t, 440.0, s.push(spike, weak, threshold, ChromaticSmoothing))
		assert.Equal(t, 1, s.outliers)

		assert.Equal(t, 440.0, s.push(440, strong, threshold, ChromaticSmoothing))
		assert.Equal(t, 0, s.outliers)
	})

	t.Run("fourth weak spike is accepted", func(t *testing.T) {
		s := newStabilizer()
		s.push(440, strong, threshold, ChromaticSmoothing)

		for i := 0; i < OutlierFrames-1; i++ {
			assert.Equal(t, 440.0, s.push(spike, weak, threshold, ChromaticSmoothing))
		}
		got := s.push(spike, weak, threshold, ChromaticSmoothing)
		assert.InDelta(t, 440+(spike-440)*ChromaticSmoothing, got, 1e-9)
		assert.Equal(t, 0, s.outliers)
	})

	t.Run("strong jump is smoothed", func(t *testing.T) {
		s := newStabilizer()
		s.push(440, strong, threshold, StringSmoothing)

		got := s.push(spike, strong, threshold, StringSmoothing)
		assert.InDelta(t, 440+(spike-440)*StringSmoothing, got, 1e-9)
	})

	t.Run("small weak move is not an outlier", func(t *testing.T) {
		s := newStabilizer()
		s.push(440, strong, threshold, ChromaticSmoothing)

		got := s.push(up(440, 1), weak, threshold, ChromaticSmoothing)
		assert.Greater(t, got, 440.0)
		assert.Equal(t, 0, s.outliers)
	})

	t.Run("weak spikes bypass until the streak is long enough", func(t *testing.T) {
		s := newStabilizer()
		assert.False(t, s.spike(spike, weak, threshold), "nothing displayed yet")
		s.push(440, strong, threshold, ChromaticSmoothing)

		assert.False(t, s.spike(spike, strong, threshold))
		assert.False(t, s.spike(up(440, 1), weak, threshold))
		for i := 0; i < OutlierFrames-1; i++ {
			assert.True(t, s.spike(spike, weak, threshold), "frame %d", i)
		}
		assert.False(t, s.spike(spike, weak, threshold))
		assert.False(t, s.spike(spike, weak, threshold), "streak keeps passing")

		// a normal frame ends the streak
		assert.False(t, s.spike(440, weak, threshold))
		assert.True(t, s.spike(spike, weak, threshold))
	})
}

func TestVoter(t *testing.T) {
	var v voter
	assert.False(t, v.vote(2))
	assert.False(t, v.vote(2))
	assert.True(t, v.vote(2))
	assert.Zero(t, v.frames)

	// a different candidate restarts the count
	assert.False(t, v.vote(2))
	assert.False(t, v.vote(3))
	assert.False(t, v.vote(3))
	assert.True(t, v.vote(3))
}

func TestSelectNote(t *testing.T) {
	g4 := up(440, -2)

	t.Run("promotes on third frame", func(t *testing.T) {
		var v voter
		selected, changed := selectNote(&v, 0, g4)
		assert.Equal(t, 0, selected)
		assert.False(t, changed)

		selected, changed = selectNote(&v, selected, g4)
		assert.False(t, changed)

		selected, changed = selectNote(&v, selected, g4)
		assert.True(t, changed)
		assert.Equal(t, -2, selected)
	})

	t.Run("reverting frame resets the count", func(t *testing.T) {
		var v voter
		selectNote(&v, 0, g4)
		_, changed := selectNote(&v, 0, 440)
		assert.False(t, changed)
		assert.Zero(t, v.frames)

		selectNote(&v, 0, g4)
		_, changed = selectNote(&v, 0, g4)
		assert.False(t, changed)
		selected, changed := selectNote(&v, 0, g4)
		assert.True(t, changed)
		assert.Equal(t, -2, selected)
	})

	t.Run("guard band keeps the selection", func(t *testing.T) {
		var v voter
		// rounds to A#4 but is only 0.51 semitones away from A4
		for i := 0; i < 5; i++ {
			selected, changed := selectNote(&v, 0, up(440, 0.51))
			assert.Equal(t, 0, selected)
			assert.False(t, changed)
		}
	})
}

func TestSelectString(t *testing.T) {
	t.Run("promotes the nearest string", func(t *testing.T) {
		var v voter
		selected := 0
		var changed bool
		for i := 0; i < DebounceFrames; i++ {
			selected, changed = selectString(&v, selected, 146.83, guitar)
		}
		assert.True(t, changed)
		assert.Equal(t, 2, selected)
	})

	t.Run("too far from every string", func(t *testing.T) {
		targets := []Target{{Label: "A2", Frequency: 110}, {Label: "D3", Frequency: 146.83}}
		var v voter
		// closer to D3 than to A2, but past the ceiling
		f := up(146.83, 1.5)
		for i := 0; i < 5; i++ {
			selected, changed := selectString(&v, 0, f, targets)
			assert.Equal(t, 0, selected)
			assert.False(t, changed)
		}
	})

	t.Run("margin keeps a close selection", func(t *testing.T) {
		targets := []Target{{Label: "A", Frequency: 220}, {Label: "B", Frequency: up(220, 0.2)}}
		var v voter
		// 0.1 from A and 0.1 from B, so B is not clearly closer
		for i := 0; i < 5; i++ {
			selected, changed := selectString(&v, 0, up(220, 0.1), targets)
			assert.Equal(t, 0, selected)
			assert.False(t, changed)
		}
	})
}

func TestOffsetTracker(t *testing.T) {
	t.Run("tuned after sustain", func(t *testing.T) {
		tr := newOffsetTracker()
		for at := time.Duration(0); at < 2*time.Second; at += 100 * time.Millisecond {
			offset, tuned := tr.update(0.05, at)
			assert.InDelta(t, 0.05, offset, 1e-12)
			assert.Equal(t, at >= TunedAfter, tuned, "at %v", at)
		}
	})

	t.Run("change is clamped", func(t *testing.T) {
		tr := newOffsetTracker()
		offset, _ := tr.update(0, 0)
		require.Zero(t, offset)

		// median of {0, 1} is 1
		offset, _ = tr.update(1, time.Millisecond)
		assert.InDelta(t, OffsetStep, offset, 1e-12)
	})

	t.Run("leaving the band restarts the timer", func(t *testing.T) {
		tr := newOffsetTracker()
		tr.update(0, 0)
		_, tuned := tr.update(0, time.Second)
		require.True(t, tuned)

		// enough out-of-band frames to move the median
		for i := 0; i < 4; i++ {
			_, tuned = tr.update(0.5, time.Second+time.Duration(i)*time.Millisecond)
		}
		assert.False(t, tuned)

		for i := 0; i < 7; i++ {
			tr.update(0, 2*time.Second)
		}
		_, tuned = tr.update(0, 2*time.Second+500*time.Millisecond)
		assert.False(t, tuned)
		_, tuned = tr.update(0, 3*time.Second)
		assert.True(t, tuned)
	})
}

func TestHoldTimer(t *testing.T) {
	var h HoldTimer
	assert.Equal(t, 120*time.Millisecond, h.Update(true, 120*time.Millisecond))

	// a stalled tick only counts up to the step cap
	assert.Equal(t, 340*time.Millisecond, h.Update(true, time.Second))

	for i := 0; i < 100; i++ {
		h.Update(true, 120*time.Millisecond)
	}
	assert.Equal(t, HoldCap, h.Held())
	assert.True(t, h.Full())
	assert.Equal(t, 1.0, h.Progress())

	assert.Zero(t, h.Update(false, 120*time.Millisecond))
	assert.Zero(t, h.Progress())
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(Chromatic(), nil))
	assert.NoError(t, Validate(Auto(), guitar))
	assert.NoError(t, Validate(Locked(5), guitar))

	assert.ErrorIs(t, Validate(Locked(-1), guitar), ErrStringOutOfRange)
	assert.ErrorIs(t, Validate(Locked(0), nil), ErrNoTargets)
	assert.ErrorIs(t, Validate(Auto(), []Target{{Label: "E5", Frequency: 659.25}}), ErrTargetOutOfBand)
	assert.ErrorIs(t, Validate(Mode{Kind: ModeKind(9)}, guitar), ErrUnknownMode)
}

func TestManualClock(t *testing.T) {
	c := NewManualClock()
	assert.Zero(t, c.Now())
	c.Advance(50 * time.Millisecond)
	c.Advance(50 * time.Millisecond)
	assert.Equal(t, 100*time.Millisecond, c.Now())
	c.Set(time.Second)
	assert.Equal(t, time.Second, c.Now())
}
