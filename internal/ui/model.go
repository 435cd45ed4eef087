package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/0xlemi/corno/internal/pitch"
	"github.com/0xlemi/corno/internal/tuner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Constants for UI behavior
const (
	tickInterval = 120 * time.Millisecond

	// How long to keep showing the last reading after the signal drops
	noSignalGrace = 850 * time.Millisecond

	// Display bands in cents, tighter than the tuner's own in-tune band
	inTuneCents   = 3
	slightlyCents = 10

	// Below this RMS the input counts as quiet
	listeningFloor = 0.003

	needleWidth  = 41
	holdBarWidth = 24
)

var (
	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			PaddingLeft(2).
			PaddingRight(2).
			MarginBottom(1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CCCCCC"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F"))

	inTuneStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00FF00"))
	slightlyStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFA500"))
	offStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF0000"))

	tunedBadgeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#000000")).
			Background(lipgloss.Color("#00FF00")).
			PaddingLeft(1).
			PaddingRight(1)

	selectedStringStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FAFAFA")).
				Background(lipgloss.Color("#7D56F4")).
				PaddingLeft(1).
				PaddingRight(1)

	stringStyle = infoStyle.PaddingLeft(1).PaddingRight(1)

	// Note colors
	noteColors = map[string]string{
		"C": "#E8D6B0", // Beige
		"D": "#A020F0", // Purple
		"E": "#FFFF00", // Yellow
		"F": "#FFA500", // Orange
		"G": "#00FF00", // Green
		"A": "#FF0000", // Red
		"B": "#0000FF", // Blue
	}
)

// Returns a style for a natural note
func getNoteStyle(noteName string) lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color(noteColors[noteName])).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#333333")).
		Padding(2, 4).
		MarginBottom(1)
}

// Get the next note in the scale (for sharp note colors)
func getNextNote(note string) string {
	switch note {
	case "C":
		return "D"
	case "D":
		return "E"
	case "E":
		return "F"
	case "F":
		return "G"
	case "G":
		return "A"
	case "A":
		return "B"
	default:
		return "C"
	}
}

// ModeSetter is the part of the driver the UI controls
type ModeSetter interface {
	SetMode(tuner.Mode) error
	Mode() (tuner.Mode, []tuner.Target)
}

// OutputMsg carries one tuner output
type OutputMsg tuner.Output

// TickMsg represents a timer tick
type TickMsg time.Time

// DoneMsg reports that the driver stopped
type DoneMsg struct {
	Err error
}

// Model represents the UI state
type Model struct {
	driver     ModeSetter
	presetName string

	current    tuner.Output // most recent output
	last       tuner.Output // most recent output with a signal
	lastSignal time.Time
	lastTick   time.Time
	hold       tuner.HoldTimer

	err    error
	width  int
	height int

	now func() time.Time
}

// NewModel creates a new UI model
func NewModel(driver ModeSetter, presetName string) Model {
	return Model{
		driver:     driver,
		presetName: presetName,
		now:        time.Now,
	}
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Init initializes the UI model
func (m Model) Init() tea.Cmd {
	return tick()
}

// Update updates the UI model based on messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "c":
			m.setMode(tuner.Chromatic())
		case "a":
			m.setMode(tuner.Auto())
		case "left":
			m.stepString(-1)
		case "right":
			m.stepString(1)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case OutputMsg:
		m.current = tuner.Output(msg)
		if m.current.HasSignal {
			m.last = m.current
			m.lastSignal = m.now()
		}

	case TickMsg:
		now := time.Time(msg)
		dt := tickInterval
		if !m.lastTick.IsZero() {
			dt = now.Sub(m.lastTick)
		}
		m.lastTick = now
		m.hold.Update(m.showing() && m.last.Tuned, dt)
		return m, tick()

	case DoneMsg:
		m.err = msg.Err
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) setMode(mode tuner.Mode) {
	m.err = m.driver.SetMode(mode)
	if m.err == nil {
		m.hold.Update(false, 0)
	}
}

// stepString locks the previous or next string, starting from the one the
// tuner currently has selected
func (m *Model) stepString(step int) {
	mode, targets := m.driver.Mode()
	if len(targets) == 0 {
		return
	}
	// chromatic indices are notes, so enter the strings at either end
	if mode.Kind == tuner.KindChromatic {
		next := 0
		if step < 0 {
			next = len(targets) - 1
		}
		m.setMode(tuner.Locked(next))
		return
	}
	current := m.current.SelectedIndex
	if mode.Kind == tuner.KindLocked {
		current = mode.Index
	}
	next := ((current+step)%len(targets) + len(targets)) % len(targets)
	m.setMode(tuner.Locked(next))
}

// showing reports whether a reading should be on screen. The last reading
// lingers for noSignalGrace after the signal drops.
func (m Model) showing() bool {
	if m.current.HasSignal {
		return true
	}
	return !m.lastSignal.IsZero() && m.now().Sub(m.lastSignal) < noSignalGrace
}

// direction describes which way to turn the peg
func direction(cents float64) (string, lipgloss.Style) {
	abs := math.Abs(cents)
	switch {
	case abs <= inTuneCents:
		return "In Tune", inTuneStyle
	case abs <= slightlyCents && cents > 0:
		return "Slightly sharp", slightlyStyle
	case abs <= slightlyCents:
		return "Slightly flat", slightlyStyle
	case cents > 0:
		return "Too sharp, tune down", offStyle
	default:
		return "Too flat, tune up", offStyle
	}
}

// needle draws the offset on a +-50 cent scale
func needle(cents float64) string {
	half := needleWidth / 2
	pos := half + int(math.Round(math.Max(-50, math.Min(50, cents))/50*float64(half)))

	bar := []rune(strings.Repeat("─", needleWidth))
	bar[half] = '┼'
	bar[pos] = '█'
	return "♭ " + string(bar) + " ♯"
}

func holdBar(progress float64) string {
	filled := int(math.Round(progress * holdBarWidth))
	return "[" + strings.Repeat("■", filled) + strings.Repeat(" ", holdBarWidth-filled) + "]"
}

// levelDB converts RMS to dB (with protection against log(0))
func levelDB(rms float64) float64 {
	if rms <= 0.0000001 {
		return -100
	}
	return 20 * math.Log10(rms)
}

func renderNote(note pitch.Note) string {
	noteText := note.Symbol()
	if !strings.HasSuffix(note.Name, "#") {
		return getNoteStyle(note.Name).Render(noteText)
	}

	// For sharps, we need to render the note with split colors
	baseNote := string(note.Name[0])
	nextNote := getNextNote(baseNote)

	leftStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color(noteColors[baseNote])).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#333333")).
		BorderLeft(true).
		BorderTop(true).
		BorderBottom(true).
		BorderRight(false).
		PaddingLeft(2).
		PaddingRight(1).
		PaddingTop(2).
		PaddingBottom(2)

	rightStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color(noteColors[nextNote])).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#333333")).
		BorderLeft(false).
		BorderTop(true).
		BorderBottom(true).
		BorderRight(true).
		PaddingLeft(1).
		PaddingRight(2).
		PaddingTop(2).
		PaddingBottom(2)

	return leftStyle.Render(baseNote) + rightStyle.Render(noteText[1:])
}

func (m Model) renderStrings(mode tuner.Mode, targets []tuner.Target) string {
	if len(targets) == 0 || mode.Kind == tuner.KindChromatic {
		return ""
	}
	selected := m.current.SelectedIndex
	if mode.Kind == tuner.KindLocked {
		selected = mode.Index
	}
	parts := make([]string, len(targets))
	for i, t := range targets {
		if i == selected {
			parts[i] = selectedStringStyle.Render(t.Label)
		} else {
			parts[i] = stringStyle.Render(t.Label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// View renders the UI
func (m Model) View() string {
	mode, targets := m.driver.Mode()

	s := titleStyle.Render("Corno - Instrument Tuner")
	s += "\n"
	s += infoStyle.Render(fmt.Sprintf("Preset: %s | Mode: %s", m.presetName, mode))
	s += "\n"
	if strs := m.renderStrings(mode, targets); strs != "" {
		s += strs + "\n"
	}
	s += "\n"

	if m.showing() {
		out := m.last
		cents := out.Cents()

		s += renderNote(pitch.FrequencyToNote(out.Reference.Frequency))
		s += "\n"

		info := fmt.Sprintf("Frequency: %.2f Hz | Target: %s %.2f Hz | Cents: %+.1f",
			out.Frequency,
			out.Reference.Label,
			out.Reference.Frequency,
			cents)
		s += infoStyle.Render(info)
		s += "\n\n"

		label, style := direction(cents)
		s += needle(cents) + "\n"
		s += style.Render(label)
		if out.Tuned {
			s += "  " + tunedBadgeStyle.Render("TUNED")
		}
		s += "\n"
		s += infoStyle.Render("Hold ") + holdBar(m.hold.Progress())
	} else if m.current.SignalLevel < listeningFloor {
		s += infoStyle.Render("Listening for audio...")
	} else {
		s += infoStyle.Render("Hearing something, waiting for a steady pitch...")
	}

	s += "\n\n"
	s += infoStyle.Render(fmt.Sprintf("Level: %.1f dB", levelDB(m.current.SignalLevel)))

	if m.err != nil {
		s += "\n" + errorStyle.Render(m.err.Error())
	}

	s += "\n\n"
	s += infoStyle.Render("q quit | c chromatic | a auto | ←/→ lock string")

	return s
}
