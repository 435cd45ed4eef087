// Package tuner turns raw per-frame pitch estimates into a steady reading
// against a chosen reference note or instrument string.
package tuner

import (
	"io"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/0xlemi/corno/internal/audio"
	"github.com/0xlemi/corno/internal/pitch"
)

// DefaultSensitivity is the middle of the 0 to 100 sensitivity scale
const DefaultSensitivity = 50

// Reference is the note or string the offset is measured against
type Reference struct {
	Label     string
	Frequency float64
}

// Output is the tuner state after one frame. When HasSignal is false only
// SignalLevel, SelectedIndex, Reference and At are meaningful.
type Output struct {
	HasSignal   bool
	SignalLevel float64 // frame RMS
	Frequency   float64 // display frequency in Hz
	// SelectedIndex is a note index relative to A4 in chromatic mode and a
	// string index otherwise
	SelectedIndex int
	Reference     Reference
	Offset        float64 // semitones, positive is sharp
	Tuned         bool
	At            time.Duration
}

// Cents returns Offset in cents
func (o Output) Cents() float64 {
	return o.Offset * 100
}

// state is everything cleared when the signal drops or the reference
// context changes
type state struct {
	stable    float64
	hasStable bool
	display   stabilizer
	offset    offsetTracker
	notes     voter
	strings   voter
	hadSignal bool
}

func newState() state {
	return state{
		display: newStabilizer(),
		offset:  newOffsetTracker(),
	}
}

// Tuner runs the per-frame pipeline. It is not safe for concurrent use.
type Tuner struct {
	detector  pitch.Detector
	clock     Clock
	threshold float64
	logger    *slog.Logger

	st state

	// the selection outlives signal loss; only Reset or a new target set
	// clears it
	selectedNote   int
	selectedString int

	mode       Mode
	targets    []Target
	configured bool
}

// Option configures a Tuner
type Option func(*Tuner)

// WithDetector replaces the default AMDF detector
func WithDetector(d pitch.Detector) Option {
	return func(t *Tuner) { t.detector = d }
}

// WithClock replaces the system clock
func WithClock(c Clock) Option {
	return func(t *Tuner) { t.clock = c }
}

// WithSensitivity sets the 0 to 100 input sensitivity. Higher values accept
// quieter signals.
func WithSensitivity(s float64) Option {
	return func(t *Tuner) { t.threshold = SignalThreshold(s) }
}

// WithLogger sets the debug logger
func WithLogger(l *slog.Logger) Option {
	return func(t *Tuner) { t.logger = l }
}

// New creates a tuner
func New(opts ...Option) *Tuner {
	t := &Tuner{
		detector:  pitch.NewAMDFDetector(),
		clock:     SystemClock(),
		threshold: SignalThreshold(DefaultSensitivity),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		st:        newState(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SignalThreshold maps sensitivity to the RMS a frame must exceed. It never
// drops below the detector's silence floor.
func SignalThreshold(sensitivity float64) float64 {
	s := math.Max(0, math.Min(100, sensitivity))
	return math.Max(pitch.SilenceFloor, 0.0048-s/100*0.0033)
}

// Threshold returns the active signal threshold
func (t *Tuner) Threshold() float64 {
	return t.threshold
}

// Reset returns the tuner to its freshly constructed state
func (t *Tuner) Reset() {
	t.st = newState()
	t.selectedNote, t.selectedString = 0, 0
	t.mode, t.targets, t.configured = Mode{}, nil, false
}

// Process runs one frame through the pipeline
func (t *Tuner) Process(buf *audio.AudioBuffer, mode Mode, targets []Target) (Output, error) {
	if err := Validate(mode, targets); err != nil {
		return Output{}, err
	}
	t.configure(mode, targets)

	now := t.clock.Now()
	est, err := t.detector.DetectPitch(buf)
	if err != nil || est.RMS <= t.threshold {
		if t.st.hadSignal {
			t.logger.Debug("signal lost", "rms", est.RMS, "err", err)
		}
		t.st = newState()
		return t.output(est.RMS, now), nil
	}
	if !t.st.hadSignal {
		t.logger.Debug("signal acquired", "rms", est.RMS, "frequency", est.Frequency)
		t.st.hadSignal = true
	}

	st := &t.st
	var resolved float64
	if mode.Kind == KindLocked {
		resolved = pitch.ResolveToTarget(est.Frequency, targets[mode.Index].Frequency)
	} else {
		reference := est.Frequency
		if st.hasStable {
			reference = st.stable
		}
		resolved = pitch.ResolveNear(est.Frequency, reference)
	}
	// a weak spike leaves the baseline and display history alone
	display := st.display.display
	if !st.display.spike(resolved, est.RMS, t.threshold) {
		st.stable = pitch.Stabilize(st.stable, st.hasStable, resolved)
		st.hasStable = true

		alpha := StringSmoothing
		if mode.Kind == KindChromatic {
			alpha = ChromaticSmoothing
		}
		display = st.display.push(st.stable, est.RMS, t.threshold, alpha)
	} else {
		t.logger.Debug("weak spike ignored", "rms", est.RMS, "frequency", resolved)
	}

	var changed bool
	switch mode.Kind {
	case KindChromatic:
		t.selectedNote, changed = selectNote(&st.notes, t.selectedNote, display)
	case KindAuto:
		t.selectedString, changed = selectString(&st.strings, t.selectedString, display, targets)
	case KindLocked:
		st.strings.reset()
	}
	if changed {
		st.offset.reset()
		t.logger.Debug("reference promoted", "mode", mode, "reference", t.reference().Label)
	}

	ref := t.reference()
	played := pitch.SemitonesFromA4(display)
	if mode.Kind != KindChromatic {
		played = pitch.SemitonesFromA4(pitch.ResolveToTarget(display, ref.Frequency))
	}
	target := pitch.SemitonesFromA4(ref.Frequency)
	if mode.Kind == KindChromatic {
		target = float64(t.selectedNote)
	}

	out := t.output(est.RMS, now)
	out.HasSignal = true
	out.Frequency = display
	out.Offset, out.Tuned = st.offset.update(played-target, now)
	return out, nil
}

// configure starts a fresh reference context when the mode or target set
// differs from the previous call
func (t *Tuner) configure(mode Mode, targets []Target) {
	sameTargets := slices.Equal(targets, t.targets)
	if t.configured && mode == t.mode && sameTargets {
		return
	}
	if t.configured {
		t.logger.Debug("mode reset", "from", t.mode, "to", mode)
	}

	t.st = newState()
	if !sameTargets {
		t.targets = slices.Clone(targets)
		t.selectedString = 0
	}
	if mode.Kind == KindLocked {
		t.selectedString = mode.Index
	}
	t.mode, t.configured = mode, true
}

func (t *Tuner) reference() Reference {
	if t.mode.Kind == KindChromatic {
		note := pitch.NoteAt(t.selectedNote)
		return Reference{Label: note.Symbol(), Frequency: note.Frequency}
	}
	target := t.targets[t.selectedString]
	return Reference{Label: target.Label, Frequency: target.Frequency}
}

func (t *Tuner) output(rms float64, now time.Duration) Output {
	index := t.selectedNote
	if t.mode.Kind != KindChromatic {
		index = t.selectedString
	}
	return Output{
		SignalLevel:   rms,
		SelectedIndex: index,
		Reference:     t.reference(),
		At:            now,
	}
}
