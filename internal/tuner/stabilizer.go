package tuner

import "github.com/0xlemi/corno/internal/pitch"

const (
	displayHistory = 5

	// OutlierJump is the semitone jump that makes a weak frame suspect
	OutlierJump = 1.2
	// OutlierFrames is the streak after which a suspect value is accepted
	OutlierFrames = 4
	// WeakSignalFactor scales the signal threshold below which a jump is
	// treated as a spike
	WeakSignalFactor = 4.8

	ChromaticSmoothing = 0.32
	StringSmoothing    = 0.20
)

// stabilizer turns the stabilized frequency stream into the display value
type stabilizer struct {
	history    ring
	display    float64
	hasDisplay bool
	outliers   int
	spikes     int
}

func newStabilizer() stabilizer {
	return stabilizer{history: newRing(displayHistory)}
}

// push feeds one stabilized frequency and returns the new display frequency.
// threshold is the signal threshold the frame's rms is judged against.
func (s *stabilizer) push(frequency, rms, threshold, alpha float64) float64 {
	s.history.push(frequency)
	candidate := s.history.median()

	if !s.hasDisplay {
		s.display, s.hasDisplay = candidate, true
		return s.display
	}

	jump := pitch.SemitoneDistance(candidate, s.display)
	if jump > OutlierJump && rms < threshold*WeakSignalFactor {
		s.outliers++
		if s.outliers < OutlierFrames {
			return s.display
		}
	}
	s.outliers = 0

	s.display += (candidate - s.display) * alpha
	return s.display
}

// spike reports whether a raw reading should bypass the pipeline: a weak
// frame more than OutlierJump from the display. Once OutlierFrames such frames
// arrive in a row they pass until a normal frame ends the streak.
func (s *stabilizer) spike(frequency, rms, threshold float64) bool {
	if !s.hasDisplay || rms >= threshold*WeakSignalFactor || pitch.SemitoneDistance(frequency, s.display) <= OutlierJump {
		s.spikes = 0
		return false
	}
	if s.spikes < OutlierFrames {
		s.spikes++
	}
	return s.spikes < OutlierFrames
}

func (s *stabilizer) reset() {
	s.history.reset()
	s.display, s.hasDisplay = 0, false
	s.outliers, s.spikes = 0, 0
}
