package tuner

import (
	"errors"
	"fmt"

	"github.com/0xlemi/corno/internal/pitch"
)

// Errors
var (
	ErrUnknownMode      = errors.New("unknown tuning mode")
	ErrNoTargets        = errors.New("string mode needs at least one target")
	ErrStringOutOfRange = errors.New("locked string index out of range")
	ErrTargetOutOfBand  = errors.New("target frequency outside the supported band")
)

// ModeKind tags a Mode
type ModeKind int

const (
	KindChromatic ModeKind = iota
	KindLocked
	KindAuto
)

// Mode selects what the played pitch is compared against. Index is only
// meaningful for KindLocked.
type Mode struct {
	Kind  ModeKind
	Index int
}

// Chromatic compares against the nearest equal-tempered note
func Chromatic() Mode { return Mode{Kind: KindChromatic} }

// Locked compares against one preset string
func Locked(index int) Mode { return Mode{Kind: KindLocked, Index: index} }

// Auto picks the preset string the player is aiming for
func Auto() Mode { return Mode{Kind: KindAuto} }

func (m Mode) String() string {
	switch m.Kind {
	case KindChromatic:
		return "chromatic"
	case KindLocked:
		return fmt.Sprintf("locked(%d)", m.Index)
	case KindAuto:
		return "auto"
	default:
		return "unknown"
	}
}

// Target is one preset string
type Target struct {
	Label     string  `yaml:"label"`
	Frequency float64 `yaml:"frequency"`
}

// Validate rejects mode/target combinations a host should never send
func Validate(mode Mode, targets []Target) error {
	switch mode.Kind {
	case KindChromatic:
		return nil
	case KindLocked, KindAuto:
	default:
		return fmt.Errorf("%w: %d", ErrUnknownMode, mode.Kind)
	}

	if len(targets) == 0 {
		return ErrNoTargets
	}
	for _, t := range targets {
		if !pitch.InBand(t.Frequency) {
			return fmt.Errorf("%w: %s %.2f Hz", ErrTargetOutOfBand, t.Label, t.Frequency)
		}
	}
	if mode.Kind == KindLocked && (mode.Index < 0 || mode.Index >= len(targets)) {
		return fmt.Errorf("%w: %d of %d", ErrStringOutOfRange, mode.Index, len(targets))
	}
	return nil
}
