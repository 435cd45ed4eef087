package pitch

import (
	"math"

	"github.com/0xlemi/corno/internal/audio"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	// AMDFTolerance is how far above the global best a notch may sit and
	// still be taken as the period
	AMDFTolerance = 1.12

	// amdfDepthSlack widens the tolerance band by a fraction of the mean
	// curve level. Integer lags put the deepest notch on whichever period
	// multiple lands closest to a whole sample, so a purely relative band
	// collapses on clean signals whose best value is near zero.
	amdfDepthSlack = 0.02
)

// AMDFDetector estimates the fundamental with the Average Magnitude
// Difference Function. Of all notches within the tolerance band it takes the
// shortest lag, which keeps deeper sub-harmonic notches further out from
// winning.
type AMDFDetector struct {
	minFrequency float64
	maxFrequency float64
	tolerance    float64
	silenceFloor float64
}

// NewAMDFDetector creates a detector for the supported note band
func NewAMDFDetector() *AMDFDetector {
	return &AMDFDetector{
		minFrequency: LowestNoteHz,
		maxFrequency: HighestNoteHz,
		tolerance:    AMDFTolerance,
		silenceFloor: SilenceFloor,
	}
}

// DetectPitch analyzes one frame
func (d *AMDFDetector) DetectPitch(buffer *audio.AudioBuffer) (Estimate, error) {
	if buffer == nil || len(buffer.Samples) == 0 {
		return Estimate{}, ErrEmptyBuffer
	}

	x := float64s(buffer.Samples)
	est := Estimate{RMS: RMS(x)}

	sampleRate := float64(buffer.SampleRate)
	minLag := int(math.Floor(sampleRate / d.maxFrequency))
	maxLag := int(math.Floor(sampleRate / d.minFrequency))
	if sampleRate <= 0 || minLag < 2 || maxLag+1 >= len(x)-4 {
		return est, ErrShortFrame
	}

	// One extra lag on each side gives both band edges real neighbours.
	// curve[i] is the lag minLag-1+i, so the band is curve[1:len-1].
	curve := amdf(x, minLag-1, maxLag+1)
	band := curve[1 : len(curve)-1]
	best := 1 + floats.MinIdx(band)
	acceptance := curve[best]*d.tolerance + amdfDepthSlack*stat.Mean(band, nil)

	for i := 1; i < len(curve)-1; i++ {
		left, mid, right := curve[i-1], curve[i], curve[i+1]
		if mid > left || mid > right || (mid == left && mid == right) {
			continue
		}
		offset, depth := notch(left, mid, right)
		if depth <= acceptance {
			est.Frequency = d.clamp(sampleRate / (float64(minLag-1+i) + offset))
			return est, nil
		}
	}

	// Crude confidence guard against pitch spikes in noise
	if est.RMS <= d.silenceFloor {
		return est, ErrNoPitch
	}

	offset, _ := notch(curve[best-1], curve[best], curve[best+1])
	est.Frequency = d.clamp(sampleRate / (float64(minLag-1+best) + offset))
	return est, nil
}

// clamp keeps a refined edge notch inside the band. The V fit may move the
// apex up to half a lag past the last whole lag.
func (d *AMDFDetector) clamp(f float64) float64 {
	return math.Min(math.Max(f, d.minFrequency), d.maxFrequency)
}

// amdf returns the mean absolute difference for every lag in [minLag, maxLag]
func amdf(x []float64, minLag, maxLag int) []float64 {
	curve := make([]float64, maxLag-minLag+1)
	for lag := minLag; lag <= maxLag; lag++ {
		limit := len(x) - lag
		sum := 0.0
		for i := 0; i < limit; i++ {
			sum += math.Abs(x[i] - x[i+lag])
		}
		curve[lag-minLag] = sum / float64(limit)
	}
	return curve
}

// notch fits a V through a local minimum and its two neighbours, returning
// the apex position relative to the middle point (within +-0.5) and the apex
// depth. AMDF notches are V shaped, so this is closer than a parabola.
func notch(left, mid, right float64) (offset, depth float64) {
	slope := math.Max(left, right) - mid
	if slope <= 0 {
		return 0, mid
	}
	offset = (left - right) / (2 * slope)
	return offset, mid - slope*math.Abs(offset)
}
