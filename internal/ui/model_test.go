package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/0xlemi/corno/internal/tuner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDriver struct {
	mode    tuner.Mode
	targets []tuner.Target
}

func (f *fakeDriver) SetMode(mode tuner.Mode) error {
	if err := tuner.Validate(mode, f.targets); err != nil {
		return err
	}
	f.mode = mode
	return nil
}

func (f *fakeDriver) Mode() (tuner.Mode, []tuner.Target) {
	return f.mode, f.targets
}

var ukulele = []tuner.Target{
	{Label: "G4", Frequency: 392.00},
	{Label: "C4", Frequency: 261.63},
	{Label: "E4", Frequency: 329.63},
	{Label: "A4", Frequency: 440.00},
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model, cmd
}

func key(s string) tea.KeyMsg {
	switch s {
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

// testModel pins the model's clock to a value the test moves by hand
func testModel(d ModeSetter) (Model, *time.Time) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m := NewModel(d, "Ukulele (GCEA)")
	m.now = func() time.Time { return now }
	return m, &now
}

func TestModel_Keys(t *testing.T) {
	d := &fakeDriver{mode: tuner.Auto(), targets: ukulele}
	m, _ := testModel(d)

	m, _ = update(t, m, OutputMsg{HasSignal: true, SelectedIndex: 2})
	m, _ = update(t, m, key("right"))
	assert.Equal(t, tuner.Locked(3), d.mode)

	// wraps around
	m, _ = update(t, m, key("right"))
	assert.Equal(t, tuner.Locked(0), d.mode)
	m, _ = update(t, m, key("left"))
	assert.Equal(t, tuner.Locked(3), d.mode)

	m, _ = update(t, m, key("a"))
	assert.Equal(t, tuner.Auto(), d.mode)
	m, _ = update(t, m, key("c"))
	assert.Equal(t, tuner.Chromatic(), d.mode)
	assert.NoError(t, m.err)

	_, cmd := update(t, m, key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_StepFromChromatic(t *testing.T) {
	d := &fakeDriver{mode: tuner.Chromatic(), targets: ukulele}
	m, _ := testModel(d)

	// G3 is note -14, not a string
	m, _ = update(t, m, OutputMsg{HasSignal: true, SelectedIndex: -14})
	m, _ = update(t, m, key("right"))
	assert.Equal(t, tuner.Locked(0), d.mode)
	assert.NoError(t, m.err)

	d.mode = tuner.Chromatic()
	m, _ = update(t, m, key("left"))
	assert.Equal(t, tuner.Locked(3), d.mode)
	assert.NoError(t, m.err)
}

func TestModel_ModeErrorShown(t *testing.T) {
	d := &fakeDriver{mode: tuner.Chromatic()}
	m, _ := testModel(d)

	m, _ = update(t, m, key("a"))
	assert.ErrorIs(t, m.err, tuner.ErrNoTargets)
	assert.Equal(t, tuner.Chromatic(), d.mode)
	assert.Contains(t, m.View(), tuner.ErrNoTargets.Error())

	// arrows do nothing without strings
	m, _ = update(t, m, key("right"))
	assert.Equal(t, tuner.Chromatic(), d.mode)
}

func TestModel_HoldAndGrace(t *testing.T) {
	m, now := testModel(&fakeDriver{mode: tuner.Locked(3), targets: ukulele})
	start := *now

	tuned := OutputMsg{
		HasSignal:     true,
		SignalLevel:   0.2,
		Frequency:     440,
		SelectedIndex: 3,
		Reference:     tuner.Reference{Label: "A4", Frequency: 440},
		Tuned:         true,
	}
	m, _ = update(t, m, tuned)

	for i := 0; i < 3; i++ {
		var cmd tea.Cmd
		m, cmd = update(t, m, TickMsg(start.Add(time.Duration(i)*tickInterval)))
		assert.NotNil(t, cmd)
	}
	assert.Equal(t, 3*tickInterval, m.hold.Held())

	// a stalled tick is capped
	m, _ = update(t, m, TickMsg(start.Add(5*time.Second)))
	assert.Equal(t, 3*tickInterval+220*time.Millisecond, m.hold.Held())

	// signal drops but the reading lingers
	m, _ = update(t, m, OutputMsg{SignalLevel: 0.001, SelectedIndex: 3, Reference: tuned.Reference})
	*now = start.Add(500 * time.Millisecond)
	assert.True(t, m.showing())
	assert.Contains(t, m.View(), "Frequency: 440.00 Hz")

	*now = start.Add(time.Second)
	assert.False(t, m.showing())
	m, _ = update(t, m, TickMsg(start.Add(5*time.Second+tickInterval)))
	assert.Zero(t, m.hold.Held())
	assert.Contains(t, m.View(), "Listening for audio...")
}

func TestModel_View(t *testing.T) {
	m, _ := testModel(&fakeDriver{mode: tuner.Auto(), targets: ukulele})

	m, _ = update(t, m, OutputMsg{
		HasSignal:     true,
		SignalLevel:   0.1,
		Frequency:     442,
		SelectedIndex: 3,
		Reference:     tuner.Reference{Label: "A4", Frequency: 440},
		Offset:        0.0712,
		Tuned:         true,
	})
	view := m.View()
	assert.Contains(t, view, "Preset: Ukulele (GCEA) | Mode: auto")
	assert.Contains(t, view, "A4")
	assert.Contains(t, view, "Cents: +7.1")
	assert.Contains(t, view, "Slightly sharp")
	assert.Contains(t, view, "TUNED")
	assert.Contains(t, view, "Level: -20.0 dB")

	m, _ = update(t, m, OutputMsg{SignalLevel: 0.01})
	m.lastSignal = time.Time{}
	assert.Contains(t, m.View(), "waiting for a steady pitch")
}

func TestModel_SharpNoteSplitsColours(t *testing.T) {
	m, _ := testModel(&fakeDriver{mode: tuner.Chromatic()})
	m, _ = update(t, m, OutputMsg{
		HasSignal: true,
		Frequency: 233.08,
		Reference: tuner.Reference{Label: "A#3", Frequency: 233.08},
	})

	view := m.View()
	assert.Contains(t, view, "#3")
	assert.Contains(t, view, "In Tune")
}

func TestModel_DoneQuits(t *testing.T) {
	m, _ := testModel(&fakeDriver{mode: tuner.Chromatic()})

	m, cmd := update(t, m, DoneMsg{Err: errors.New("device unplugged")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Contains(t, m.View(), "device unplugged")
}

func TestDirection(t *testing.T) {
	for cents, want := range map[float64]string{
		0:   "In Tune",
		-3:  "In Tune",
		5:   "Slightly sharp",
		-10: "Slightly flat",
		25:  "Too sharp, tune down",
		-30: "Too flat, tune up",
	} {
		got, _ := direction(cents)
		assert.Equal(t, want, got, "%v cents", cents)
	}
}

func TestNeedle(t *testing.T) {
	centre := []rune(needle(0))
	assert.Equal(t, '█', centre[2+needleWidth/2])

	sharp := []rune(needle(80))
	assert.Equal(t, '█', sharp[2+needleWidth-1])
	assert.Equal(t, '┼', sharp[2+needleWidth/2])

	flat := []rune(needle(-25))
	assert.Equal(t, '█', flat[2+needleWidth/2-needleWidth/4])
}

func TestHoldBar(t *testing.T) {
	assert.Equal(t, "["+strings.Repeat(" ", holdBarWidth)+"]", holdBar(0))
	assert.Equal(t, "["+strings.Repeat("■", holdBarWidth)+"]", holdBar(1))
}

func TestLevelDB(t *testing.T) {
	assert.InDelta(t, -20, levelDB(0.1), 1e-9)
	assert.Equal(t, -100.0, levelDB(0))
}
