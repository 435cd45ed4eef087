package main

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/0xlemi/corno/internal/config"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSine writes one second of a 16-bit mono sine
func writeSine(t *testing.T, path string, freq float64, sampleRate int) {
	t.Helper()

	data := make([]int, sampleRate)
	for i := range data {
		data[i] = int(16000 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
}

func TestFileCommand_BufferTooShortForTrackRate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a3-96k.wav")
	writeSine(t, path, 220, 96000)

	a := &app{cfg: config.Default()}
	root := a.rootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"file", path})

	err := root.Execute()
	require.ErrorIs(t, err, config.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "96000 Hz")
	assert.Contains(t, err.Error(), "--buffer-size")
}

func TestFileCommand_HighRateWithLongerBuffer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a3-96k.wav")
	writeSine(t, path, 220, 96000)

	a := &app{cfg: config.Default()}
	var buf bytes.Buffer
	root := a.rootCmd()
	root.SetOut(&buf)
	root.SetArgs([]string{"file", "--buffer-size", "4096", path})
	require.NoError(t, root.Execute())

	out := buf.String()
	assert.Contains(t, out, "A3")
	assert.NotContains(t, out, "with signal: 0")
}
