package audio

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
)

// frameQueue is how many frames may wait for the driver before new ones are dropped
const frameQueue = 8

// DeviceInfo describes an input device
type DeviceInfo struct {
	Index      int
	Name       string
	Channels   int
	SampleRate float64
	Default    bool
}

// PortAudioCapturer implements audio capture using PortAudio
type PortAudioCapturer struct {
	isCapturing   bool
	stream        *portaudio.Stream
	frames        chan *AudioBuffer
	device        string
	bufferSize    int
	sampleRate    int
	channels      int
	mu            sync.Mutex
	amplification atomic.Uint32 // float32 bits; read by the callback without locking
	dropped       atomic.Int64
	logger        *slog.Logger
}

// NewPortAudioCapturer creates a new audio capturer using PortAudio.
// device selects an input by 1-based index or name prefix; empty means the
// system default input.
func NewPortAudioCapturer(bufferSize, sampleRate, channels int, device string, logger *slog.Logger) (*PortAudioCapturer, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &PortAudioCapturer{
		device:     device,
		bufferSize: bufferSize,
		sampleRate: sampleRate,
		channels:   channels,
		logger:     logger.With(slog.String("component", "portaudio")),
	}
	c.amplification.Store(math.Float32bits(1.0))
	return c, nil
}

// Start begins audio capture
func (c *PortAudioCapturer) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isCapturing {
		return ErrAlreadyCapturing
	}

	c.frames = make(chan *AudioBuffer, frameQueue)

	var err error
	if c.device == "" {
		c.stream, err = portaudio.OpenDefaultStream(
			c.channels, // input channels
			0,          // output channels (we don't need output)
			float64(c.sampleRate),
			c.bufferSize, // frames per buffer
			c.processAudio,
		)
	} else {
		var info *portaudio.DeviceInfo
		info, err = findDevice(c.device)
		if err != nil {
			return err
		}
		params := portaudio.LowLatencyParameters(info, nil)
		params.Input.Channels = c.channels
		params.Output.Channels = 0
		params.SampleRate = float64(c.sampleRate)
		params.FramesPerBuffer = c.bufferSize
		c.stream, err = portaudio.OpenStream(params, c.processAudio)
	}
	if err != nil {
		return fmt.Errorf("open input stream: %w", err)
	}

	if err := c.stream.Start(); err != nil {
		c.stream.Close()
		return fmt.Errorf("start input stream: %w", err)
	}

	c.isCapturing = true
	c.logger.Info("capture started",
		slog.Int("sample_rate", c.sampleRate),
		slog.Int("buffer_size", c.bufferSize),
		slog.String("device", c.device))
	return nil
}

// Stop ends audio capture and releases PortAudio
func (c *PortAudioCapturer) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isCapturing {
		return ErrNotCapturing
	}

	// Pa_StopStream waits for the running callback, which never takes c.mu.
	if err := c.stream.Stop(); err != nil {
		return fmt.Errorf("stop input stream: %w", err)
	}
	if err := c.stream.Close(); err != nil {
		return fmt.Errorf("close input stream: %w", err)
	}
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("terminate portaudio: %w", err)
	}

	c.isCapturing = false
	close(c.frames)
	c.logger.Info("capture stopped", slog.Int64("dropped_frames", c.dropped.Load()))
	return nil
}

// processAudio is the PortAudio callback. It must not block.
func (c *PortAudioCapturer) processAudio(in, _ []float32) {
	gain := math.Float32frombits(c.amplification.Load())

	buf := &AudioBuffer{
		Samples:    downmix(in, c.channels, gain),
		SampleRate: c.sampleRate,
	}

	select {
	case c.frames <- buf:
	default:
		c.dropped.Add(1)
	}
}

// Frames returns the channel the callback delivers into
func (c *PortAudioCapturer) Frames() <-chan *AudioBuffer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

// IsCapturing returns true if currently capturing audio
func (c *PortAudioCapturer) IsCapturing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isCapturing
}

// Dropped reports how many frames were discarded because the consumer fell behind
func (c *PortAudioCapturer) Dropped() int64 {
	return c.dropped.Load()
}

// SetAmplification sets the audio amplification factor
func (c *PortAudioCapturer) SetAmplification(factor float32) {
	// Ensure amplification is positive
	if factor < 0.1 {
		factor = 0.1
	}

	c.amplification.Store(math.Float32bits(factor))
}

// ListDevices returns every device with at least one input channel.
// PortAudio must not be initialized by the caller.
func ListDevices() ([]DeviceInfo, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	def, _ := portaudio.DefaultInputDevice()

	var out []DeviceInfo
	for i, d := range devices {
		if d.MaxInputChannels < 1 {
			continue
		}
		out = append(out, DeviceInfo{
			Index:      i + 1,
			Name:       d.Name,
			Channels:   d.MaxInputChannels,
			SampleRate: d.DefaultSampleRate,
			Default:    def != nil && def.Name == d.Name,
		})
	}
	return out, nil
}

// findDevice resolves a 1-based index or a name prefix to an input device
func findDevice(dev string) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	if i, err := strconv.Atoi(dev); err == nil && i > 0 && i <= len(devices) {
		if devices[i-1].MaxInputChannels > 0 {
			return devices[i-1], nil
		}
	}

	for _, d := range devices {
		if d.MaxInputChannels > 0 && strings.HasPrefix(d.Name, dev) {
			return d, nil
		}
	}

	return nil, fmt.Errorf("input device not found: %s", dev)
}
