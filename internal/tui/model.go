// Package tui is the terminal pad composer.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/icco/padcomposer/internal/composer"
	"github.com/icco/padcomposer/internal/store"
)

// View modes
type viewMode int

const (
	composeMode viewMode = iota
	libraryMode
)

const (
	fps      = 30
	keyUp    = "up"
	keyDown  = "down"
	keyEnter = "enter"
	keyEsc   = "esc"
)

// tickMsg refreshes the snapshot and animates the meter
type tickMsg time.Time

// PadDownMsg presses a pad from outside the terminal, such as a MIDI input.
type PadDownMsg struct {
	Pitch string
}

// PadUpMsg releases the pad pressed by the PadDownMsg with the same pitch.
type PadUpMsg struct {
	Pitch string
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00"))

	recordStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF4040")).
			Bold(true)
)

// Model is the bubbletea model of the composer.
type Model struct {
	ctrl  *composer.Controller
	mode  viewMode
	state store.State

	// held is the index of the pad being held, or -1.
	held       int
	external   string
	input      string
	noteCursor int
	libCursor  int
	message    string
	failed     bool
	meter      meter
	width      int
	height     int
}

// New creates the model for ctrl.
func New(ctrl *composer.Controller) Model {
	return Model{
		ctrl:  ctrl,
		state: ctrl.State(),
		held:  -1,
		meter: newMeter(),
	}
}

// WithInput names the MIDI input feeding the model pad messages. The view
// then shows a keyboard.
func (m Model) WithInput(name string) Model {
	m.input = name
	return m
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/fps, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		m.refresh()
		m.meter.update(m.sounding())
		return m, tick()

	case PadDownMsg:
		if m.held >= 0 {
			m = m.release()
		}
		m.ctrl.PressStart(msg.Pitch)
		m.external = msg.Pitch
		m.refresh()
		return m, nil

	case PadUpMsg:
		// A later press has already replaced this one.
		if msg.Pitch != m.external {
			return m, nil
		}
		m = m.release()
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.ctrl.Close()
			return m, tea.Quit
		}
		var cmd tea.Cmd
		switch m.mode {
		case composeMode:
			m, cmd = m.updateCompose(msg)
		case libraryMode:
			m, cmd = m.updateLibrary(msg)
		}
		m.refresh()
		return m, cmd
	}

	return m, nil
}

func (m *Model) refresh() {
	m.state = m.ctrl.State()
	if m.state.Current == nil {
		m.noteCursor = 0
		return
	}
	if n := len(m.state.Current.Notes); m.noteCursor >= n {
		m.noteCursor = max(n-1, 0)
	}
}

// sounding reports whether a pad is held or playback is on a note.
func (m Model) sounding() bool {
	return m.held >= 0 || m.external != "" || m.state.PlayingPitch != ""
}

func (m *Model) notify(n composer.Notice) {
	m.message = n.Message
	m.failed = n.Failed()
}

func (m *Model) fail(err error) {
	m.message = err.Error()
	m.failed = true
}

func (m Model) View() string {
	switch m.mode {
	case libraryMode:
		return m.viewLibrary()
	default:
		return m.viewCompose()
	}
}

func (m Model) viewMessage() string {
	if m.message == "" {
		return ""
	}
	if m.failed {
		return errorStyle.Render(m.message) + "\n"
	}
	return successStyle.Render(m.message) + "\n"
}
