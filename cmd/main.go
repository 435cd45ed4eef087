package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/0xlemi/corno/internal/audio"
	"github.com/0xlemi/corno/internal/config"
	"github.com/0xlemi/corno/internal/driver"
	"github.com/0xlemi/corno/internal/tuner"
	"github.com/0xlemi/corno/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// app carries the resolved configuration through the commands
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	logFile *os.File
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "corno: %v\n", err)
		os.Exit(1)
	}

	a := &app{cfg: cfg}
	if err := a.rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "corno",
		Short:        "Real-time instrument tuner",
		Long:         "Corno listens to the default input (or --device) and shows how far the played note is from the nearest note or preset string.",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         a.runLive,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			// the TUI owns the terminal
			var w io.Writer = os.Stderr
			if cmd == cmd.Root() {
				w = io.Discard
			}
			return a.initLogger(w)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logFile != nil {
				a.logFile.Close()
			}
		},
	}

	// flags default to the already loaded config, so they win only when set
	flags := root.PersistentFlags()
	flags.IntVar(&a.cfg.SampleRate, "sample-rate", a.cfg.SampleRate, "capture sample rate in Hz")
	flags.IntVar(&a.cfg.BufferSize, "buffer-size", a.cfg.BufferSize, "samples per analysis frame")
	flags.IntVar(&a.cfg.Channels, "channels", a.cfg.Channels, "input channels, mixed down to mono")
	flags.Float64Var(&a.cfg.Amplification, "amplification", a.cfg.Amplification, "live input gain")
	flags.Float64Var(&a.cfg.Sensitivity, "sensitivity", a.cfg.Sensitivity, "input sensitivity from 0 to 100")
	flags.StringVar(&a.cfg.Detector, "detector", a.cfg.Detector, "pitch detector: amdf or fft")
	flags.StringVarP(&a.cfg.Preset, "preset", "p", a.cfg.Preset, "tuning preset id (see 'corno presets')")
	flags.IntVarP(&a.cfg.LockedString, "string", "s", a.cfg.LockedString, "lock to a preset string by index, -1 for automatic")
	flags.StringVar(&a.cfg.PresetsFile, "presets-file", a.cfg.PresetsFile, "YAML file with extra presets")
	flags.StringVarP(&a.cfg.Device, "device", "d", a.cfg.Device, "input device index or name prefix")
	flags.StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "debug, info, warn or error")
	flags.StringVar(&a.cfg.LogFile, "log-file", a.cfg.LogFile, "write logs to this file")

	root.AddCommand(a.fileCmd(), a.toneCmd(), a.presetsCmd(), a.devicesCmd())
	return root
}

// initLogger builds the process logger. A log file overrides w.
func (a *app) initLogger(w io.Writer) error {
	level, err := a.cfg.Level()
	if err != nil {
		return err
	}
	if a.cfg.LogFile != "" {
		f, err := os.OpenFile(a.cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		a.logFile, w = f, f
	}

	h := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug, // include file:line in debug mode
	})
	a.logger = slog.New(h)
	slog.SetDefault(a.logger)
	return nil
}

// preset resolves the configured preset, including user presets
func (a *app) preset() (config.Preset, error) {
	presets, err := config.LoadPresets(a.cfg.PresetsFile)
	if err != nil {
		return config.Preset{}, err
	}
	return config.FindPreset(presets, a.cfg.Preset)
}

func (a *app) newTuner(clock tuner.Clock) *tuner.Tuner {
	return tuner.New(
		tuner.WithDetector(a.cfg.NewDetector()),
		tuner.WithClock(clock),
		tuner.WithSensitivity(a.cfg.Sensitivity),
		tuner.WithLogger(a.logger.With(slog.String("component", "tuner"))),
	)
}

func (a *app) runLive(cmd *cobra.Command, _ []string) error {
	preset, err := a.preset()
	if err != nil {
		return err
	}

	// Create audio capturer with PortAudio
	capturer, err := audio.NewPortAudioCapturer(a.cfg.BufferSize, a.cfg.SampleRate, a.cfg.Channels, a.cfg.Device, a.logger)
	if err != nil {
		return fmt.Errorf("create audio capturer: %w", err)
	}
	capturer.SetAmplification(float32(a.cfg.Amplification))

	var p *tea.Program
	d, err := driver.New(capturer, a.newTuner(tuner.SystemClock()), preset.Mode(a.cfg.LockedString), preset.Strings,
		func(out tuner.Output) { p.Send(ui.OutputMsg(out)) },
		driver.WithLogger(a.logger.With(slog.String("component", "driver"))))
	if err != nil {
		return err
	}

	p = tea.NewProgram(ui.NewModel(d, preset.Name), tea.WithAltScreen())

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		err := d.Run(ctx)
		p.Send(ui.DoneMsg{Err: err})
		errc <- err
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	cancel()
	return <-errc
}

func (a *app) fileCmd() *cobra.Command {
	var (
		every    int
		realtime bool
	)
	cmd := &cobra.Command{
		Use:   "file <path>",
		Short: "Run the tuner over a WAV or MP3 file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := audio.NewFileCapturer(args[0], a.cfg.BufferSize, realtime)
			if err != nil {
				return err
			}
			a.logger.Info("file loaded",
				slog.String("path", src.Path),
				slog.Int("sample_rate", src.Track.SampleRate),
				slog.Duration("length", src.Track.Duration()))
			if err := a.cfg.CheckBufferSize(src.Track.SampleRate); err != nil {
				return fmt.Errorf("%s: %w (raise --buffer-size)", src.Path, err)
			}
			return a.runHeadless(cmd.Context(), cmd.OutOrStdout(), src, every)
		},
	}
	cmd.Flags().IntVar(&every, "every", 0, "also print every Nth frame")
	cmd.Flags().BoolVar(&realtime, "realtime", false, "pace frames at playback speed")
	return cmd
}

func (a *app) toneCmd() *cobra.Command {
	var (
		freq      float64
		wave      string
		duration  time.Duration
		amplitude float64
		sweep     float64
		every     int
		realtime  bool
	)
	cmd := &cobra.Command{
		Use:   "tone",
		Short: "Run the tuner over a synthetic tone",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := audio.ParseWaveform(wave)
			if err != nil {
				return err
			}
			gen := audio.NewToneGenerator(w, freq, amplitude, a.cfg.SampleRate)
			gen.Sweep = sweep
			src := audio.NewToneCapturer(gen, a.cfg.BufferSize, duration, realtime)
			return a.runHeadless(cmd.Context(), cmd.OutOrStdout(), src, every)
		},
	}
	cmd.Flags().Float64Var(&freq, "freq", 440, "tone frequency in Hz")
	cmd.Flags().StringVar(&wave, "wave", "sine", "waveform: sine, saw or square")
	cmd.Flags().DurationVar(&duration, "duration", 3*time.Second, "tone length")
	cmd.Flags().Float64Var(&amplitude, "amplitude", 0.5, "peak amplitude from 0 to 1")
	cmd.Flags().Float64Var(&sweep, "sweep", 0, "detune drift in cents per second")
	cmd.Flags().IntVar(&every, "every", 0, "also print every Nth frame")
	cmd.Flags().BoolVar(&realtime, "realtime", false, "pace frames at playback speed")
	return cmd
}

// runHeadless drives an offline source on simulated time and prints a report
func (a *app) runHeadless(ctx context.Context, w io.Writer, src audio.Capturer, every int) error {
	preset, err := a.preset()
	if err != nil {
		return err
	}

	clock := tuner.NewManualClock()
	rep := newReporter(w, every)
	d, err := driver.New(src, a.newTuner(clock), preset.Mode(a.cfg.LockedString), preset.Strings, rep.Observe,
		driver.WithManualClock(clock),
		driver.WithLogger(a.logger.With(slog.String("component", "driver"))))
	if err != nil {
		return err
	}

	if err := d.Run(ctx); err != nil {
		return err
	}
	rep.Summary()
	return nil
}

func (a *app) presetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List tuning presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			presets, err := config.LoadPresets(a.cfg.PresetsFile)
			if err != nil {
				return err
			}
			printPresets(cmd.OutOrStdout(), presets)
			return nil
		},
	}
}

func (a *app) devicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List audio input devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			devices, err := audio.ListDevices()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, d := range devices {
				marker := " "
				if d.Default {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %2d  %s (%d ch, %.0f Hz)\n", marker, d.Index, d.Name, d.Channels, d.SampleRate)
			}
			return nil
		},
	}
}
