package audio

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWaveform(t *testing.T) {
	for name, want := range map[string]Waveform{
		"sine":     Sine,
		"saw":      Sawtooth,
		"sawtooth": Sawtooth,
		"square":   Square,
	} {
		got, err := ParseWaveform(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseWaveform("triangle")
	assert.Error(t, err)
}

func TestToneGenerator_PhaseContinuous(t *testing.T) {
	whole := NewToneGenerator(Sine, 440, 0.5, 44100).Next(1000)

	split := NewToneGenerator(Sine, 440, 0.5, 44100)
	samples := append(split.Next(300).Samples, split.Next(700).Samples...)

	require.Len(t, samples, len(whole.Samples))
	for i := range samples {
		assert.InDelta(t, whole.Samples[i], samples[i], 1e-6)
	}
}

func TestToneGenerator_Shapes(t *testing.T) {
	// 4 samples per cycle
	saw := NewToneGenerator(Sawtooth, 100, 1, 400).Next(4).Samples
	assert.InDeltaSlice(t, []float32{-1, -0.5, 0, 0.5}, saw, 1e-6)

	square := NewToneGenerator(Square, 100, 1, 400).Next(4).Samples
	assert.Equal(t, []float32{1, 1, -1, -1}, square)

	sine := NewToneGenerator(Sine, 100, 0.5, 400).Next(2).Samples
	assert.InDelta(t, 0, sine[0], 1e-6)
	assert.InDelta(t, 0.5, sine[1], 1e-6)

	buf := NewToneGenerator(Sine, 100, 1, 44100).Next(44100)
	assert.Equal(t, time.Second, buf.Duration())
	peak := 0.0
	for _, s := range buf.Samples {
		peak = math.Max(peak, math.Abs(float64(s)))
	}
	assert.InDelta(t, 1, peak, 1e-3)
}

func TestToneCapturer_Duration(t *testing.T) {
	gen := NewToneGenerator(Sine, 220, 0.5, 8000)
	// 0.1 s at 8 kHz is 800 samples, rounded up to four frames of 256
	c := NewToneCapturer(gen, 256, 100*time.Millisecond, false)

	assert.ErrorIs(t, c.Stop(), ErrNotCapturing)
	require.NoError(t, c.Start())
	assert.ErrorIs(t, c.Start(), ErrAlreadyCapturing)

	n := 0
	for buf := range c.Frames() {
		assert.Len(t, buf.Samples, 256)
		n++
	}
	assert.Equal(t, 4, n)
	require.NoError(t, c.Stop())
}

func TestToneCapturer_StopEndless(t *testing.T) {
	c := NewToneCapturer(NewToneGenerator(Square, 110, 0.5, 8000), 128, 0, false)
	require.NoError(t, c.Start())

	frames := c.Frames()
	for i := 0; i < 10; i++ {
		<-frames
	}
	require.NoError(t, c.Stop())

	// the producer closes the channel on its way out
	for range frames {
	}
	assert.False(t, c.IsCapturing())
}

func TestDownmix(t *testing.T) {
	out := downmix([]float32{0.5, -0.5, 1, 1, 0.25, 0.75}, 2, 2)
	assert.Equal(t, []float32{0, 1, 1}, out)

	assert.Equal(t, []float32{0.2}, downmix([]float32{0.1}, 0, 2))
}

func TestToneGenerator_Sweep(t *testing.T) {
	gen := NewToneGenerator(Sine, 440, 0.5, 1000)
	gen.Sweep = 1200

	// one octave per second
	assert.InDelta(t, 880, gen.FrequencyAt(1), 1e-9)
	assert.InDelta(t, 440, gen.FrequencyAt(0), 1e-9)

	gen.Next(1000)
	assert.Equal(t, 1000, gen.elapsed)

	steady := NewToneGenerator(Sine, 440, 0.5, 1000)
	assert.Equal(t, 440.0, steady.FrequencyAt(3))
}
