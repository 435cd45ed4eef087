package pitch

import "math"

const (
	// JumpGuardOctaves is the largest move that is smoothed instead of
	// taken outright
	JumpGuardOctaves = 0.45
	// JumpBlend is the share of a new value blended into the baseline
	JumpBlend = 0.2
)

var (
	// saw and square waves bias AMDF toward a harmonic; a known target can
	// pull the estimate back from up to two octaves away
	targetFactors = []float64{1.0 / 4, 1.0 / 3, 1.0 / 2, 1, 2, 3, 4}

	// continuity only needs to undo a single octave flip
	continuityFactors = []float64{1, 1.0 / 2, 2}
)

// ResolveToTarget folds raw to the in-band multiple or divisor closest to
// target
func ResolveToTarget(raw, target float64) float64 {
	return resolve(raw, target, targetFactors)
}

// ResolveNear folds raw by at most one octave toward reference. Passing raw
// as its own reference leaves it unchanged.
func ResolveNear(raw, reference float64) float64 {
	return resolve(raw, reference, continuityFactors)
}

// resolve picks the in-band candidate with the smallest semitone distance to
// reference; ties keep the earlier factor
func resolve(raw, reference float64, factors []float64) float64 {
	best := 0.0
	bestDistance := math.Inf(1)
	for _, k := range factors {
		candidate := raw * k
		if !InBand(candidate) {
			continue
		}
		if d := SemitoneDistance(candidate, reference); d < bestDistance {
			best, bestDistance = candidate, d
		}
	}
	if math.IsInf(bestDistance, 1) {
		return ClampToBand(raw)
	}
	return best
}

// ClampToBand limits f to the supported band
func ClampToBand(f float64) float64 {
	return math.Min(math.Max(f, LowestNoteHz), HighestNoteHz)
}

// Stabilize applies the jump guard: a resolved value within
// JumpGuardOctaves of the previous baseline is blended into it, anything
// further away becomes the new baseline.
func Stabilize(previous float64, hasPrevious bool, resolved float64) float64 {
	if !hasPrevious || math.Abs(math.Log2(resolved/previous)) > JumpGuardOctaves {
		return resolved
	}
	return previous + (resolved-previous)*JumpBlend
}
