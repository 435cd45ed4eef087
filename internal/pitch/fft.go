package pitch

import (
	"math/cmplx"
	"sort"

	"github.com/0xlemi/corno/internal/audio"
	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// FFTDetector implements pitch detection using FFT peak picking. It is coarser
// than AMDF at the bottom of the band and is kept as a comparison estimator.
type FFTDetector struct {
	minFrequency  float64 // Lowest frequency to detect (Hz)
	maxFrequency  float64 // Highest frequency to detect (Hz)
	peakThreshold float64 // Minimum peak height as fraction of highest peak
	silenceFloor  float64 // Minimum RMS volume level for note detection
}

// NewFFTDetector creates a new FFT-based pitch detector
func NewFFTDetector() *FFTDetector {
	return &FFTDetector{
		minFrequency:  LowestNoteHz,
		maxFrequency:  HighestNoteHz,
		peakThreshold: 0.2,
		silenceFloor:  SilenceFloor,
	}
}

// DetectPitch analyzes an audio buffer and returns the strongest in-band peak
func (d *FFTDetector) DetectPitch(buffer *audio.AudioBuffer) (Estimate, error) {
	if buffer == nil || len(buffer.Samples) == 0 {
		return Estimate{}, ErrEmptyBuffer
	}

	x := float64s(buffer.Samples)
	est := Estimate{RMS: RMS(x)}

	// Skip everything if the level is too low (likely silence)
	if est.RMS <= d.silenceFloor {
		return est, ErrNoPitch
	}

	binSizeHz := float64(buffer.SampleRate) / float64(len(x))
	if binSizeHz <= 0 || d.maxFrequency/binSizeHz < 2 {
		return est, ErrShortFrame
	}

	window.Apply(x, window.Hann)
	spectrum := fft.FFTReal(x)

	freq, ok := d.findFundamentalFrequency(spectrum, binSizeHz)
	if !ok || !InBand(freq) {
		return est, ErrNoPitch
	}

	est.Frequency = freq
	return est, nil
}

// Peak represents a peak in the frequency spectrum
type Peak struct {
	Bin       int
	Magnitude float64
	Frequency float64
}

// findFundamentalFrequency returns the strongest interpolated in-band peak
func (d *FFTDetector) findFundamentalFrequency(spectrum []complex128, binSizeHz float64) (float64, bool) {
	// We only need to look at the first half of the spectrum (Nyquist theorem)
	spectrumHalf := spectrum[:len(spectrum)/2]

	minBin := int(d.minFrequency / binSizeHz)
	if minBin < 1 {
		minBin = 1 // Avoid DC component
	}

	maxBin := int(d.maxFrequency/binSizeHz) + 1
	if maxBin >= len(spectrumHalf) {
		maxBin = len(spectrumHalf) - 1
	}

	maxMagnitude := 0.0
	for i := minBin; i <= maxBin; i++ {
		if m := cmplx.Abs(spectrumHalf[i]); m > maxMagnitude {
			maxMagnitude = m
		}
	}
	if maxMagnitude == 0 {
		return 0, false
	}

	var peaks []Peak
	for i := minBin + 1; i < maxBin; i++ {
		prev := cmplx.Abs(spectrumHalf[i-1])
		current := cmplx.Abs(spectrumHalf[i])
		next := cmplx.Abs(spectrumHalf[i+1])

		if current <= prev || current <= next || current < maxMagnitude*d.peakThreshold {
			continue
		}

		// Quadratic interpolation:
		// x = 0.5 * (R[k-1] - R[k+1]) / (R[k-1] - 2*R[k] + R[k+1]) + k
		freq := float64(i) * binSizeHz
		if den := prev - 2*current + next; den != 0 {
			freq = (float64(i) + 0.5*(prev-next)/den) * binSizeHz
		}

		peaks = append(peaks, Peak{
			Bin:       i,
			Magnitude: current,
			Frequency: freq,
		})
	}

	if len(peaks) == 0 {
		return 0, false
	}

	sort.Slice(peaks, func(i, j int) bool {
		return peaks[i].Magnitude > peaks[j].Magnitude
	})

	return peaks[0].Frequency, true
}
