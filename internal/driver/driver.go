// Package driver pulls frames from an audio source and runs them through a
// tuner, one output per frame.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/0xlemi/corno/internal/audio"
	"github.com/0xlemi/corno/internal/tuner"
)

// Sink receives every output. It runs on the driver goroutine and should
// return quickly.
type Sink func(tuner.Output)

// Driver owns a tuner for the lifetime of Run
type Driver struct {
	source audio.Capturer
	tuner  *tuner.Tuner
	sink   Sink
	clock  *tuner.ManualClock
	logger *slog.Logger

	mu      sync.Mutex
	mode    tuner.Mode
	targets []tuner.Target
}

// Option configures a Driver
type Option func(*Driver)

// WithManualClock advances clock by each frame's duration after it is
// processed, for sources that run faster than real time
func WithManualClock(clock *tuner.ManualClock) Option {
	return func(d *Driver) { d.clock = clock }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

// New creates a driver. The initial mode is validated against targets.
func New(source audio.Capturer, tn *tuner.Tuner, mode tuner.Mode, targets []tuner.Target, sink Sink, opts ...Option) (*Driver, error) {
	if err := tuner.Validate(mode, targets); err != nil {
		return nil, err
	}
	d := &Driver{
		source:  source,
		tuner:   tn,
		sink:    sink,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		mode:    mode,
		targets: slices.Clone(targets),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// SetMode switches mode from the next frame on. It is safe to call from any
// goroutine.
func (d *Driver) SetMode(mode tuner.Mode) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := tuner.Validate(mode, d.targets); err != nil {
		return err
	}
	if mode != d.mode {
		d.logger.Info("mode changed", "mode", mode)
	}
	d.mode = mode
	return nil
}

// Mode returns the current mode and the preset targets
func (d *Driver) Mode() (tuner.Mode, []tuner.Target) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode, d.targets
}

// Run processes frames until ctx is done or the source runs dry. The source
// is stopped and the tuner reset before Run returns.
func (d *Driver) Run(ctx context.Context) error {
	if err := d.source.Start(); err != nil {
		return fmt.Errorf("start audio source: %w", err)
	}
	d.logger.Info("capture started", "mode", d.currentMode())

	processed := 0
	defer func() {
		if err := d.source.Stop(); err != nil && !errors.Is(err, audio.ErrNotCapturing) {
			d.logger.Warn("stopping audio source", "err", err)
		}
		d.tuner.Reset()
		if dr, ok := d.source.(interface{ Dropped() int64 }); ok && dr.Dropped() > 0 {
			d.logger.Warn("frames dropped", "count", dr.Dropped())
		}
		d.logger.Info("capture stopped", "frames", processed)
	}()

	frames := d.source.Frames()
	for {
		select {
		case <-ctx.Done():
			return nil
		case buf, ok := <-frames:
			if !ok {
				return nil
			}

			mode, targets := d.Mode()
			out, err := d.tuner.Process(buf, mode, targets)
			if err != nil {
				return fmt.Errorf("process frame: %w", err)
			}
			if d.sink != nil {
				d.sink(out)
			}
			if d.clock != nil {
				d.clock.Advance(buf.Duration())
			}
			processed++
		}
	}
}

func (d *Driver) currentMode() tuner.Mode {
	mode, _ := d.Mode()
	return mode
}
