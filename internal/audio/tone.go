package audio

import (
	"fmt"
	"math"
	"time"
)

// Waveform selects the shape produced by a ToneGenerator
type Waveform int

const (
	Sine Waveform = iota
	Sawtooth
	Square
)

func (w Waveform) String() string {
	switch w {
	case Sine:
		return "sine"
	case Sawtooth:
		return "saw"
	case Square:
		return "square"
	default:
		return "unknown"
	}
}

// ParseWaveform maps a name to a Waveform
func ParseWaveform(name string) (Waveform, error) {
	switch name {
	case "sine", "sin":
		return Sine, nil
	case "saw", "sawtooth":
		return Sawtooth, nil
	case "square", "sq":
		return Square, nil
	default:
		return Sine, fmt.Errorf("unknown waveform %q", name)
	}
}

// ToneGenerator produces a phase-continuous periodic signal
type ToneGenerator struct {
	Wave       Waveform
	Frequency  float64
	Amplitude  float64
	SampleRate int

	// Sweep drifts the pitch by this many cents per second
	Sweep float64

	phase   float64 // in cycles, [0, 1)
	elapsed int     // samples rendered so far
}

// NewToneGenerator creates a generator starting at phase zero
func NewToneGenerator(wave Waveform, frequency, amplitude float64, sampleRate int) *ToneGenerator {
	return &ToneGenerator{
		Wave:       wave,
		Frequency:  frequency,
		Amplitude:  amplitude,
		SampleRate: sampleRate,
	}
}

// Next renders the following n samples
func (g *ToneGenerator) Next(n int) *AudioBuffer {
	buf := &AudioBuffer{
		Samples:    make([]float32, n),
		SampleRate: g.SampleRate,
	}
	sr := float64(g.SampleRate)
	step := g.Frequency / sr
	for i := range buf.Samples {
		buf.Samples[i] = float32(g.Amplitude * g.shape(g.phase))
		if g.Sweep != 0 {
			step = g.FrequencyAt(float64(g.elapsed)/sr) / sr
		}
		g.phase += step
		g.phase -= math.Floor(g.phase)
		g.elapsed++
	}
	return buf
}

// FrequencyAt returns the instantaneous frequency t seconds in
func (g *ToneGenerator) FrequencyAt(t float64) float64 {
	return g.Frequency * math.Pow(2, g.Sweep*t/1200)
}

func (g *ToneGenerator) shape(phase float64) float64 {
	switch g.Wave {
	case Sawtooth:
		return 2*phase - 1
	case Square:
		if phase < 0.5 {
			return 1
		}
		return -1
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}

// ToneCapturer delivers frames from a ToneGenerator
type ToneCapturer struct {
	*pacedSource
}

// NewToneCapturer creates a synthetic source. duration 0 means endless.
func NewToneCapturer(gen *ToneGenerator, bufferSize int, duration time.Duration, realtime bool) *ToneCapturer {
	total := 0
	if duration > 0 {
		samples := int(duration.Seconds() * float64(gen.SampleRate))
		total = (samples + bufferSize - 1) / bufferSize
	}

	n := 0
	next := func() *AudioBuffer {
		if total > 0 && n >= total {
			return nil
		}
		n++
		return gen.Next(bufferSize)
	}

	return &ToneCapturer{
		pacedSource: newPacedSource(next, frameDuration(bufferSize, gen.SampleRate), realtime),
	}
}
