package audio

import (
	"errors"
	"time"
)

// Errors
var (
	ErrAlreadyCapturing = errors.New("audio capture already started")
	ErrNotCapturing     = errors.New("audio capture not started")
)

// AudioBuffer represents one frame of mono audio samples in [-1, 1]
type AudioBuffer struct {
	Samples    []float32
	SampleRate int
}

// Duration returns how much audio the buffer holds
func (b *AudioBuffer) Duration() time.Duration {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(b.Samples)) * time.Second / time.Duration(b.SampleRate)
}

// Capturer defines the interface for a frame source
type Capturer interface {
	// Start begins delivering frames
	Start() error

	// Stop ends capture and closes the frame channel
	Stop() error

	// Frames delivers one buffer per audio callback. The channel is closed
	// when the source is exhausted or stopped.
	Frames() <-chan *AudioBuffer

	// IsCapturing returns true if currently capturing audio
	IsCapturing() bool
}

// downmix averages interleaved channels into a mono frame and applies gain.
// Samples are clipped to [-1, 1].
func downmix(in []float32, channels int, gain float32) []float32 {
	if channels < 1 {
		channels = 1
	}
	out := make([]float32, len(in)/channels)
	for i := range out {
		sum := float32(0)
		for ch := 0; ch < channels; ch++ {
			sum += in[i*channels+ch]
		}
		out[i] = clip(sum / float32(channels) * gain)
	}
	return out
}

func clip(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
