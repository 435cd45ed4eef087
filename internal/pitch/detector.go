package pitch

import (
	"errors"
	"fmt"
	"math"

	"github.com/0xlemi/corno/internal/audio"
	"gonum.org/v1/gonum/floats"
)

// Reference pitch and supported band (D1 to B4)
const (
	A4            = 440.0
	LowestNoteHz  = 36.7
	HighestNoteHz = 493.9

	// SilenceFloor is the RMS below which a frame never yields a pitch
	SilenceFloor = 0.0025
)

// Errors
var (
	ErrEmptyBuffer = errors.New("empty audio buffer")
	ErrShortFrame  = errors.New("frame too short for the supported band")
	ErrNoPitch     = errors.New("no confident pitch")
)

// Estimate is a raw detector result for one frame. Frequency is only
// meaningful when the detector returned no error; RMS is always filled in
// when the buffer was not empty.
type Estimate struct {
	Frequency float64
	RMS       float64
}

// MinFrameSize is the shortest frame the AMDF detector accepts at the given
// sample rate: the lowest note's period, one neighbour lag and a few samples
// of overlap.
func MinFrameSize(sampleRate int) int {
	return int(float64(sampleRate)/LowestNoteHz) + 6
}

// Detector defines the interface for pitch detection
type Detector interface {
	// DetectPitch analyzes an audio buffer and returns the raw fundamental
	DetectPitch(buffer *audio.AudioBuffer) (Estimate, error)
}

// Note represents a musical note
type Note struct {
	Name      string  // e.g., "A", "A#", "B"
	Octave    int     // e.g., 4 for middle C (C4)
	Frequency float64 // Frequency in Hz
	Cents     float64 // Cents deviation from perfect pitch (-50 to +50)
}

// Symbol returns the name with its octave, e.g. "A4"
func (n Note) Symbol() string {
	return fmt.Sprintf("%s%d", n.Name, n.Octave)
}

// All note names in chromatic order
var noteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// SemitonesFromA4 is the continuous pitch position 12*log2(f/440)
func SemitonesFromA4(frequency float64) float64 {
	return 12 * math.Log2(frequency/A4)
}

// FrequencyOf is the inverse of SemitonesFromA4
func FrequencyOf(semitones float64) float64 {
	return A4 * math.Pow(2, semitones/12)
}

// SemitoneDistance is |12*log2(a/b)|
func SemitoneDistance(a, b float64) float64 {
	return math.Abs(12 * math.Log2(a/b))
}

// InBand reports whether f lies inside the supported band
func InBand(f float64) bool {
	return f >= LowestNoteHz && f <= HighestNoteHz
}

// NoteAt returns the equal-tempered note index semitones away from A4
func NoteAt(index int) Note {
	// A4 is 9 semitones above C4
	noteIndex := ((index+9)%12 + 12) % 12
	octave := 4 + int(math.Floor(float64(index+9)/12))

	return Note{
		Name:      noteNames[noteIndex],
		Octave:    octave,
		Frequency: FrequencyOf(float64(index)),
	}
}

// FrequencyToNote converts a frequency to the nearest note
func FrequencyToNote(frequency float64) Note {
	semitones := SemitonesFromA4(frequency)
	rounded := math.Round(semitones)

	note := NoteAt(int(rounded))
	note.Frequency = frequency
	note.Cents = 100 * (semitones - rounded)
	return note
}

// RMS returns the root mean square of the samples
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	return math.Sqrt(floats.Dot(samples, samples) / float64(len(samples)))
}

// float64s widens a frame for the numeric routines
func float64s(samples []float32) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = float64(s)
	}
	return out
}
