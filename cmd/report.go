package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/0xlemi/corno/internal/config"
	"github.com/0xlemi/corno/internal/tuner"
)

// reporter prints headless runs: a line whenever the reading changes
// meaningfully, optionally every Nth frame, and a summary at the end
type reporter struct {
	w     io.Writer
	every int

	frames     int
	withSignal int
	tunedAt    time.Duration
	everTuned  bool
	prev       tuner.Output
	last       tuner.Output
}

func newReporter(w io.Writer, every int) *reporter {
	return &reporter{w: w, every: every}
}

// Observe is a driver.Sink
func (r *reporter) Observe(out tuner.Output) {
	changed := r.frames == 0 ||
		out.HasSignal != r.prev.HasSignal ||
		out.SelectedIndex != r.prev.SelectedIndex ||
		out.Tuned != r.prev.Tuned
	periodic := r.every > 0 && r.frames%r.every == 0

	if changed || periodic {
		fmt.Fprintln(r.w, formatOutput(out))
	}

	r.frames++
	if out.HasSignal {
		r.withSignal++
		r.last = out
	}
	if out.Tuned && !r.everTuned {
		r.tunedAt, r.everTuned = out.At, true
	}
	r.prev = out
}

// Summary prints totals and the final reading
func (r *reporter) Summary() {
	fmt.Fprintf(r.w, "frames: %d, with signal: %d\n", r.frames, r.withSignal)
	if r.everTuned {
		fmt.Fprintf(r.w, "tuned after: %v\n", r.tunedAt.Round(time.Millisecond))
	} else {
		fmt.Fprintln(r.w, "tuned after: never")
	}
	if r.withSignal > 0 {
		fmt.Fprintf(r.w, "last reading: %s\n", formatOutput(r.last))
	}
}

func formatOutput(out tuner.Output) string {
	at := fmt.Sprintf("%7.3fs", out.At.Seconds())
	if !out.HasSignal {
		return fmt.Sprintf("%s  --    no signal (level %.4f)", at, out.SignalLevel)
	}
	line := fmt.Sprintf("%s  %-4s  %8.2f Hz  %+6.1f cents", at, out.Reference.Label, out.Frequency, out.Cents())
	if out.Tuned {
		line += "  TUNED"
	}
	return line
}

func printPresets(w io.Writer, presets []config.Preset) {
	for _, p := range presets {
		labels := make([]string, len(p.Strings))
		for i, s := range p.Strings {
			labels[i] = s.Label
		}
		strs := "any note"
		if len(labels) > 0 {
			strs = strings.Join(labels, " ")
		}
		fmt.Fprintf(w, "%-18s %-20s %s\n", p.ID, p.Name, strs)
	}
}
