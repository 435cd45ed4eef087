package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/0xlemi/corno/internal/tuner"
	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var builtinPresets []byte

// ChromaticPreset is the id of the preset without strings
const ChromaticPreset = "chromatic"

var (
	ErrUnknownPreset = errors.New("unknown preset")
	ErrInvalidPreset = errors.New("invalid preset")
)

// Preset is a named set of strings. A preset without strings tunes
// chromatically.
type Preset struct {
	ID      string         `yaml:"id"`
	Name    string         `yaml:"name"`
	Strings []tuner.Target `yaml:"strings"`
}

// Chromatic reports whether the preset has no strings
func (p Preset) Chromatic() bool {
	return len(p.Strings) == 0
}

// Mode picks the tuner mode for the preset. locked < 0 means auto.
func (p Preset) Mode(locked int) tuner.Mode {
	switch {
	case p.Chromatic():
		return tuner.Chromatic()
	case locked >= 0:
		return tuner.Locked(locked)
	default:
		return tuner.Auto()
	}
}

func (p Preset) validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidPreset)
	}
	if p.Chromatic() {
		return nil
	}
	if err := tuner.Validate(tuner.Auto(), p.Strings); err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidPreset, p.ID, err)
	}
	return nil
}

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

func decodePresets(r io.Reader) ([]Preset, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var file presetFile
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode presets: %w", err)
	}
	for _, p := range file.Presets {
		if err := p.validate(); err != nil {
			return nil, err
		}
	}
	return file.Presets, nil
}

// BuiltinPresets returns the presets shipped with the binary
func BuiltinPresets() []Preset {
	presets, err := decodePresets(bytes.NewReader(builtinPresets))
	if err != nil {
		panic(fmt.Sprintf("config: embedded presets: %v", err))
	}
	return presets
}

// LoadPresets returns the built-in presets merged with the ones in path. A
// user preset replaces a built-in one with the same id. An empty path
// returns the built-ins.
func LoadPresets(path string) ([]Preset, error) {
	presets := BuiltinPresets()
	if path == "" {
		return presets, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open presets file: %w", err)
	}
	defer f.Close()

	user, err := decodePresets(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	for _, p := range user {
		replaced := false
		for i := range presets {
			if presets[i].ID == p.ID {
				presets[i], replaced = p, true
				break
			}
		}
		if !replaced {
			presets = append(presets, p)
		}
	}
	return presets, nil
}

// FindPreset looks a preset up by id
func FindPreset(presets []Preset, id string) (Preset, error) {
	for _, p := range presets {
		if p.ID == id {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, id)
}
