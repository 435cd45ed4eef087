package tuner

import (
	"math"

	"github.com/0xlemi/corno/internal/pitch"
)

const (
	// DebounceFrames is how many consecutive frames a new reference needs
	DebounceFrames = 3
	// NoteGuard is how far, in semitones, the pitch must sit from the
	// selected note before another note can be voted for
	NoteGuard = 0.52
	// StringMargin is how much closer another string must be
	StringMargin = 0.12
	// StringCeiling is the largest distance at which a string can win
	StringCeiling = 1.4
)

// voter debounces a candidate over consecutive frames
type voter struct {
	candidate int
	frames    int
}

// vote counts one qualifying frame for candidate and reports whether it has
// now won. A win clears the count.
func (v *voter) vote(candidate int) bool {
	if v.frames > 0 && v.candidate == candidate {
		v.frames++
	} else {
		v.candidate, v.frames = candidate, 1
	}
	if v.frames >= DebounceFrames {
		v.reset()
		return true
	}
	return false
}

func (v *voter) reset() {
	v.candidate, v.frames = 0, 0
}

// selectNote runs chromatic voting and returns the new selected note index
// and whether it changed
func selectNote(v *voter, selected int, display float64) (int, bool) {
	position := pitch.SemitonesFromA4(display)
	candidate := int(math.Round(position))

	if candidate == selected || math.Abs(position-float64(selected)) <= NoteGuard {
		v.reset()
		return selected, false
	}
	if v.vote(candidate) {
		return candidate, true
	}
	return selected, false
}

// selectString runs preset voting and returns the new selected string index
// and whether it changed
func selectString(v *voter, selected int, display float64, targets []Target) (int, bool) {
	nearest, nearestDistance := 0, math.Inf(1)
	selectedDistance := math.Inf(1)
	for i, t := range targets {
		d := pitch.SemitoneDistance(pitch.ResolveToTarget(display, t.Frequency), t.Frequency)
		if d < nearestDistance {
			nearest, nearestDistance = i, d
		}
		if i == selected {
			selectedDistance = d
		}
	}

	if nearest == selected || nearestDistance+StringMargin >= selectedDistance || nearestDistance > StringCeiling {
		v.reset()
		return selected, false
	}
	if v.vote(nearest) {
		return nearest, true
	}
	return selected, false
}
