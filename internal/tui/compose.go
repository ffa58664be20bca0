package tui

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/icco/padcomposer/internal/theory"
	"github.com/icco/padcomposer/internal/timeline"
)

// padKeys are the keys of the pads in grid order.
const padKeys = "1234567890-="

const (
	tempoStep    = 5
	durationStep = 0.1
	visibleNotes = 10
	timelineSize = 16
)

func padIndex(key string) int {
	if len(key) != 1 {
		return -1
	}
	return strings.Index(padKeys, key)
}

// Terminals report no key releases, so a pad is held from one press of its
// key until the same key, space or another pad key.
func (m Model) updatePad(i int) Model {
	pads := m.ctrl.Pads()
	if i >= len(pads) {
		return m
	}
	prev := m.held
	if prev >= 0 || m.external != "" {
		m = m.release()
	}
	if prev == i {
		return m
	}
	m.ctrl.PressStart(pads[i])
	m.held = i
	return m
}

func (m Model) release() Model {
	m.held = -1
	m.external = ""
	if n, ok := m.ctrl.PressEnd(); ok {
		m.message = fmt.Sprintf("Recorded %s for %ss", n.Pitch, n.Duration)
		m.failed = false
	}
	return m
}

func (m Model) selectedNote() (timeline.Note, bool) {
	if m.state.Current == nil || len(m.state.Current.Notes) == 0 {
		return timeline.Note{}, false
	}
	return m.state.Current.Notes[m.noteCursor], true
}

func (m Model) updateCompose(msg tea.KeyMsg) (Model, tea.Cmd) {
	key := msg.String()
	if i := padIndex(key); i >= 0 {
		return m.updatePad(i), nil
	}

	switch key {
	case " ":
		if m.held >= 0 || m.external != "" {
			m = m.release()
		}
	case "q":
		m.ctrl.Close()
		return m, tea.Quit
	case "p":
		if m.ctrl.TogglePlayback() {
			m.message = "Playing"
		} else {
			m.message = "Stopped"
		}
		m.failed = false
	case "r":
		if m.ctrl.ToggleRecording() {
			m.message = "Recording"
		} else {
			m.message = "Recording stopped"
		}
		m.failed = false
	case "g":
		if notes := m.ctrl.Generate(); notes != nil {
			m.message = fmt.Sprintf("Generated %d notes", len(notes))
			m.failed = false
		} else {
			m.message = "No composition to add a melody to"
			m.failed = true
		}
	case "m":
		if m.ctrl.ToggleMetronome() {
			m.message = "Metronome on"
		} else {
			m.message = "Metronome off"
		}
		m.failed = false
	case "s":
		m.notify(m.ctrl.Save())
	case "S":
		m.notify(m.ctrl.SaveAsNew())
	case "n":
		c := m.ctrl.NewComposition()
		m.noteCursor = 0
		m.message = c.Name
		m.failed = false
	case "C":
		m.ctrl.ClearComposition()
		m.message = "Composition closed"
		m.failed = false
	case "e", "E":
		paths, n := m.ctrl.Export(key == "E")
		m.notify(n)
		if !n.Failed() {
			m.message = fmt.Sprintf("%s: %s", n.Message, strings.Join(paths, ", "))
		}
	case "]":
		m.ctrl.SetTempo(m.state.Settings.Tempo + tempoStep)
	case "[":
		m.ctrl.SetTempo(m.state.Settings.Tempo - tempoStep)
	case ".":
		m.ctrl.SetOctave(m.state.Settings.Octave + 1)
	case ",":
		m.ctrl.SetOctave(m.state.Settings.Octave - 1)
	case "tab":
		if err := m.ctrl.SetScale(string(nextScale(m.state.Settings.Scale))); err != nil {
			m.fail(err)
		}
	case "i":
		if err := m.ctrl.SetInstrument(string(nextInstrument(m.state.Settings.Instrument))); err != nil {
			m.fail(err)
		}
	case keyUp, "k":
		if m.noteCursor > 0 {
			m.noteCursor--
		}
	case keyDown, "j":
		if m.state.Current != nil && m.noteCursor < len(m.state.Current.Notes)-1 {
			m.noteCursor++
		}
	case "shift+up", "shift+down":
		if n, ok := m.selectedNote(); ok {
			step := 1
			if key == "shift+down" {
				step = -1
			}
			if pitch, err := transpose(n.Pitch, step); err == nil {
				m.ctrl.UpdateNote(n.ID, timeline.NotePatch{Pitch: &pitch})
			}
		}
	case "left", "right":
		if n, ok := m.selectedNote(); ok {
			d := n.Seconds() + durationStep
			if key == "left" {
				d = n.Seconds() - durationStep
			}
			s := timeline.FormatDuration(math.Round(d*10) / 10)
			m.ctrl.UpdateNote(n.ID, timeline.NotePatch{Duration: &s})
		}
	case "x", "backspace", "delete":
		if n, ok := m.selectedNote(); ok {
			m.ctrl.DeleteNote(n.ID)
		}
	case "l":
		m.mode = libraryMode
		m.libCursor = 0
		m.message = ""
	}

	return m, nil
}

func nextScale(sc theory.Scale) theory.Scale {
	for i, s := range theory.Scales {
		if s == sc {
			return theory.Scales[(i+1)%len(theory.Scales)]
		}
	}
	return theory.Scales[0]
}

func nextInstrument(in timeline.Instrument) timeline.Instrument {
	for i, s := range timeline.Instruments {
		if s == in {
			return timeline.Instruments[(i+1)%len(timeline.Instruments)]
		}
	}
	return timeline.Instruments[0]
}

func transpose(pitch string, semitones int) (string, error) {
	n, err := theory.MIDINote(pitch)
	if err != nil {
		return "", err
	}
	next := int(n) + semitones
	if next < 0 || next > 127 {
		return pitch, nil
	}
	return theory.MIDINoteName(uint8(next)), nil //nolint:gosec // bounded above
}

func (m Model) viewCompose() string {
	st := m.state
	var b strings.Builder

	b.WriteString(titleStyle.Render("Pad Composer") + "\n\n")
	if st.Current != nil {
		saved := " (unsaved)"
		if st.Saved() {
			saved = ""
		}
		b.WriteString(fmt.Sprintf("Composition: %s%s\n", st.Current.Name, saved))
	} else {
		b.WriteString("Composition: none (press a pad or n to start one)\n")
	}
	metronome := "off"
	if st.Metronome {
		metronome = "on"
	}
	b.WriteString(fmt.Sprintf("Tempo: %d  Scale: %s  Octave: %d  Instrument: %s  Metronome: %s\n",
		st.Settings.Tempo, st.Settings.Scale, st.Settings.Octave, st.Settings.Instrument, metronome))
	if st.Recording {
		b.WriteString(recordStyle.Render("● REC") + "\n")
	} else {
		b.WriteString(helpStyle.Render("○ not recording") + "\n")
	}
	b.WriteString("\n")

	end := 0.0
	if st.Current != nil {
		end = st.Current.EndTime()
	}
	b.WriteString(renderTimeline(m.ctrl.Position(), end, st.Playing) + "\n")
	b.WriteString("Level         " + m.meter.render(timelineSize*3) + "\n\n")

	b.WriteString(m.viewPads() + "\n\n")
	if m.input != "" {
		b.WriteString(fmt.Sprintf("MIDI In: %s\n", m.input))
		b.WriteString(renderKeyboard(m.state.Settings.Octave, m.activePitches()) + "\n\n")
	}
	b.WriteString(m.viewNotes())

	b.WriteString("\n")
	b.WriteString(m.viewMessage())
	b.WriteString("\n" + helpStyle.Render("Pads: 1-0 - = (same key or space releases) • r: record • p: play/stop • g: generate • m: metronome"))
	b.WriteString("\n" + helpStyle.Render("[/]: tempo • ,/.: octave • tab: scale • i: instrument • ↑↓: select note • shift+↑↓: pitch • ←→: duration • x: delete"))
	b.WriteString("\n" + helpStyle.Render("s: save • S: save as new • n: new • C: close • e/E: export json/+midi • l: library • q: quit"))

	return b.String()
}

func (m Model) viewPads() string {
	pads := m.ctrl.Pads()
	cells := make([]string, 0, len(pads))
	for i, pitch := range pads {
		style := lipgloss.NewStyle().
			Width(6).
			Align(lipgloss.Center).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444"))
		switch {
		case i == m.held:
			style = style.Background(lipgloss.Color("#7D56F4")).BorderForeground(lipgloss.Color("#7D56F4"))
		case pitch == m.state.PlayingPitch:
			style = style.Foreground(lipgloss.Color("#00FF00")).Bold(true).BorderForeground(lipgloss.Color("#00FF00"))
		}
		label := pitch
		if i < len(padKeys) {
			label = fmt.Sprintf("%c\n%s", padKeys[i], pitch)
		}
		cells = append(cells, style.Render(label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

func (m Model) viewNotes() string {
	var b strings.Builder
	b.WriteString("  #   Time    Pitch  Duration\n")
	if m.state.Current == nil || len(m.state.Current.Notes) == 0 {
		b.WriteString(helpStyle.Render("  no notes yet") + "\n")
		return b.String()
	}

	notes := m.state.Current.Notes
	start := 0
	if m.noteCursor >= visibleNotes {
		start = m.noteCursor - visibleNotes + 1
	}
	stop := min(start+visibleNotes, len(notes))
	for i := start; i < stop; i++ {
		n := notes[i]
		line := fmt.Sprintf("%3d  %6.2f  %-5s  %s", i+1, n.Time, n.Pitch, n.Duration)
		switch {
		case i == m.noteCursor:
			b.WriteString(selectedStyle.Render("> "+line) + "\n")
		case m.state.Playing && n.Pitch == m.state.PlayingPitch:
			b.WriteString(successStyle.Render("  "+line) + "\n")
		default:
			b.WriteString("  " + line + "\n")
		}
	}
	if len(notes) > visibleNotes {
		b.WriteString(helpStyle.Render(fmt.Sprintf("  %d notes", len(notes))) + "\n")
	}
	return b.String()
}

// renderTimeline draws playback progress through the composition as a bar of
// timelineSize cells.
func renderTimeline(pos, end float64, isPlaying bool) string {
	// Colors for the bar - gradient from cyan to magenta
	colors := []string{
		"#00FFFF", "#00E5FF", "#00CCFF", "#00B2FF",
		"#0099FF", "#0080FF", "#0066FF", "#1A4DFF",
		"#3333FF", "#4D1AFF", "#6600FF", "#8000FF",
		"#9900FF", "#B300FF", "#CC00FF", "#FF00FF",
	}

	current := -1
	if isPlaying && end > 0 {
		current = min(int(pos/end*timelineSize), timelineSize-1)
	}

	bar := strings.Builder{}
	bar.WriteString("Clock         ")
	for i := 0; i < timelineSize; i++ {
		var cell string
		var cellStyle lipgloss.Style

		switch {
		case i == current:
			cell = " ▶ "
			cellStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(lipgloss.Color(colors[i])).
				Bold(true)
		case i < current:
			cell = " █ "
			cellStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color(colors[i]))
		default:
			cell = " · "
			cellStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#444444"))
		}

		bar.WriteString(cellStyle.Render(cell))
	}

	status := fmt.Sprintf(" Stopped  %.1fs", end)
	statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	if isPlaying {
		status = fmt.Sprintf(" Playing  %.1f/%.1fs", pos, end)
		statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")).Bold(true)
	}
	bar.WriteString(statusStyle.Render(status))

	return bar.String()
}
