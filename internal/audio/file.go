package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/mdobak/go-xerrors"
)

// Errors
var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrInvalidWAV        = errors.New("invalid wav file")
)

// wavPCM is the WAVE_FORMAT_PCM tag
const wavPCM = 1

// FileCapturer slices a decoded audio file into fixed-size frames. A trailing
// partial frame is discarded.
type FileCapturer struct {
	*pacedSource
	Path  string
	Track *AudioBuffer
}

// NewFileCapturer decodes a WAV or MP3 file up front
func NewFileCapturer(path string, bufferSize int, realtime bool) (*FileCapturer, error) {
	track, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	pos := 0
	next := func() *AudioBuffer {
		if pos+bufferSize > len(track.Samples) {
			return nil
		}
		frame := &AudioBuffer{
			Samples:    track.Samples[pos : pos+bufferSize : pos+bufferSize],
			SampleRate: track.SampleRate,
		}
		pos += bufferSize
		return frame
	}

	return &FileCapturer{
		pacedSource: newPacedSource(next, frameDuration(bufferSize, track.SampleRate), realtime),
		Path:        path,
		Track:       track,
	}, nil
}

// LoadFile decodes a whole file into one mono buffer, choosing the decoder by
// extension
func LoadFile(path string) (*AudioBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.New("open audio file", err)
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav", ".wave":
		return DecodeWAV(f)
	case ".mp3":
		return DecodeMP3(f)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// DecodeWAV reads integer PCM WAV data and downmixes it to mono
func DecodeWAV(r io.ReadSeeker) (*AudioBuffer, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, ErrInvalidWAV
	}
	if decoder.WavAudioFormat != wavPCM {
		return nil, fmt.Errorf("%w: wav format tag %d", ErrUnsupportedFormat, decoder.WavAudioFormat)
	}

	format := decoder.Format()
	channels := format.NumChannels
	if channels < 1 {
		return nil, ErrInvalidWAV
	}

	depth := int(decoder.BitDepth)
	scale := float32(int(1) << (depth - 1))
	offset := 0
	if depth == 8 {
		// 8-bit WAV is unsigned
		offset = 128
	}

	var interleaved []float32
	buffer := &audio.IntBuffer{
		Data:   make([]int, 8192*channels),
		Format: format,
	}
	for {
		n, err := decoder.PCMBuffer(buffer)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, xerrors.New("decode wav", err)
		}
		for _, v := range buffer.Data[:n] {
			interleaved = append(interleaved, float32(v-offset)/scale)
		}
		if n == 0 || err != nil {
			break
		}
	}

	return &AudioBuffer{
		Samples:    downmix(interleaved, channels, 1),
		SampleRate: format.SampleRate,
	}, nil
}

// DecodeMP3 reads an MP3 stream. go-mp3 always yields 16-bit little-endian
// stereo.
func DecodeMP3(r io.Reader) (*AudioBuffer, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, xerrors.New("decode mp3", err)
	}

	raw, err := io.ReadAll(decoder)
	if err != nil {
		return nil, xerrors.New("read mp3", err)
	}

	interleaved := make([]float32, len(raw)/2)
	for i := range interleaved {
		interleaved[i] = float32(int16(binary.LittleEndian.Uint16(raw[2*i:]))) / 32768
	}

	return &AudioBuffer{
		Samples:    downmix(interleaved, 2, 1),
		SampleRate: decoder.SampleRate(),
	}, nil
}
