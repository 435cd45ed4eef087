package pitch

import (
	"testing"

	"github.com/0xlemi/corno/internal/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFFTDetector_Sine(t *testing.T) {
	d := NewFFTDetector()

	est, err := d.DetectPitch(tone(audio.Sine, 220, 4096))
	require.NoError(t, err)
	assert.InDelta(t, 220, est.Frequency, 2)
}

func TestFFTDetector_Silence(t *testing.T) {
	d := NewFFTDetector()

	_, err := d.DetectPitch(&audio.AudioBuffer{Samples: make([]float32, 4096), SampleRate: testSampleRate})
	assert.ErrorIs(t, err, ErrNoPitch)

	_, err = d.DetectPitch(nil)
	assert.ErrorIs(t, err, ErrEmptyBuffer)
}
