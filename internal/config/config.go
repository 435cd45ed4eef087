// Package config layers defaults, a .env file, CORNO_* environment variables
// and command line flags into one Config.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/0xlemi/corno/internal/pitch"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable the tuner reads
const EnvPrefix = "CORNO_"

var ErrInvalidConfig = errors.New("invalid config")

// Config holds every runtime setting
type Config struct {
	SampleRate    int
	BufferSize    int
	Channels      int
	Amplification float64 // live input gain
	Sensitivity   float64 // 0 to 100
	Detector      string  // amdf or fft
	Preset        string
	LockedString  int // -1 picks the string automatically
	PresetsFile   string
	Device        string // input device index or name prefix; empty for the default
	LogLevel      string
	LogFile       string
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		SampleRate:    44100,
		BufferSize:    2048,
		Channels:      1,
		Amplification: 8.0,
		Sensitivity:   50,
		Detector:      "amdf",
		Preset:        ChromaticPreset,
		LockedString:  -1,
		LogLevel:      "info",
	}
}

// Load starts from Default, loads the given .env files (".env" when none
// are named, and a missing file is not an error) and applies CORNO_*
// variables. Variables already set in the environment win over .env files.
func Load(envFiles ...string) (Config, error) {
	cfg := Default()
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load env file: %w", err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	ints := map[string]*int{
		"SAMPLE_RATE": &c.SampleRate,
		"BUFFER_SIZE": &c.BufferSize,
		"CHANNELS":    &c.Channels,
		"STRING":      &c.LockedString,
	}
	floats := map[string]*float64{
		"AMPLIFICATION": &c.Amplification,
		"SENSITIVITY":   &c.Sensitivity,
	}
	strs := map[string]*string{
		"DETECTOR":     &c.Detector,
		"PRESET":       &c.Preset,
		"PRESETS_FILE": &c.PresetsFile,
		"DEVICE":       &c.Device,
		"LOG_LEVEL":    &c.LogLevel,
		"LOG_FILE":     &c.LogFile,
	}

	for key, dst := range ints {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			*dst = n
		}
	}
	for key, dst := range floats {
		if v, ok := lookup(EnvPrefix + key); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			*dst = f
		}
	}
	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	return nil
}

// Validate checks ranges and enums
// CheckBufferSize reports whether frames of BufferSize samples at sampleRate
// can hold the lowest note's period. Files carry their own rate, so this is
// checked again once a track is decoded.
func (c Config) CheckBufferSize(sampleRate int) error {
	if minFrame := pitch.MinFrameSize(sampleRate); c.BufferSize < minFrame {
		return fmt.Errorf("%w: buffer size %d is below %d at %d Hz", ErrInvalidConfig, c.BufferSize, minFrame, sampleRate)
	}
	return nil
}

func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidConfig, c.SampleRate)
	}
	if err := c.CheckBufferSize(c.SampleRate); err != nil {
		return err
	}
	if c.Channels < 1 {
		return fmt.Errorf("%w: channels %d", ErrInvalidConfig, c.Channels)
	}
	if c.Amplification <= 0 {
		return fmt.Errorf("%w: amplification %g", ErrInvalidConfig, c.Amplification)
	}
	if c.Sensitivity < 0 || c.Sensitivity > 100 {
		return fmt.Errorf("%w: sensitivity %g outside 0-100", ErrInvalidConfig, c.Sensitivity)
	}
	if c.Detector != "amdf" && c.Detector != "fft" {
		return fmt.Errorf("%w: detector %q", ErrInvalidConfig, c.Detector)
	}
	if c.LockedString < -1 {
		return fmt.Errorf("%w: string %d", ErrInvalidConfig, c.LockedString)
	}
	if _, err := c.Level(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Level parses LogLevel
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return level, fmt.Errorf("log level: %w", err)
	}
	return level, nil
}

// NewDetector builds the configured pitch detector
func (c Config) NewDetector() pitch.Detector {
	if c.Detector == "fft" {
		return pitch.NewFFTDetector()
	}
	return pitch.NewAMDFDetector()
}
