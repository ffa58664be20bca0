package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/icco/padcomposer/internal/theory"
)

// activePitches collects the MIDI notes that are sounding: the held pad, the
// external press and the playback pitch.
func (m Model) activePitches() map[uint8]bool {
	active := make(map[uint8]bool)
	add := func(pitch string) {
		if n, err := theory.MIDINote(pitch); err == nil {
			active[n] = true
		}
	}
	if pads := m.ctrl.Pads(); m.held >= 0 && m.held < len(pads) {
		add(pads[m.held])
	}
	add(m.external)
	add(m.state.PlayingPitch)
	return active
}

// renderKeyboard draws two octaves of piano keys starting at C of octave.
func renderKeyboard(octave int, active map[uint8]bool) string {
	whiteStyle := lipgloss.NewStyle().Background(lipgloss.Color("#FFFFFF")).Foreground(lipgloss.Color("#000000"))
	blackStyle := lipgloss.NewStyle().Background(lipgloss.Color("#000000")).Foreground(lipgloss.Color("#FFFFFF"))
	activeWhite := lipgloss.NewStyle().Background(lipgloss.Color("#00FF00")).Foreground(lipgloss.Color("#000000"))
	activeBlack := lipgloss.NewStyle().Background(lipgloss.Color("#00AA00")).Foreground(lipgloss.Color("#FFFFFF"))

	// White keys: C D E F G A B
	// Black keys: C# D# _ F# G# A#
	whiteKeys := []int{0, 2, 4, 5, 7, 9, 11}
	blackKeys := []int{1, 3, -1, 6, 8, 10, -1}

	var top, bottom strings.Builder
	for o := octave; o <= octave+1; o++ {
		base := (o + 1) * 12 // C of this octave

		for _, offset := range blackKeys {
			note := base + offset
			switch {
			case offset < 0 || note > 127:
				top.WriteString(" ")
			case active[uint8(note)]: //nolint:gosec // bounded above
				top.WriteString(activeBlack.Render("█"))
			default:
				top.WriteString(blackStyle.Render("█"))
			}
			top.WriteString(" ")
		}

		for _, offset := range whiteKeys {
			note := base + offset
			switch {
			case note > 127:
				bottom.WriteString(" ")
			case active[uint8(note)]: //nolint:gosec // bounded above
				bottom.WriteString(activeWhite.Render("█"))
			default:
				bottom.WriteString(whiteStyle.Render("█"))
			}
			bottom.WriteString(" ")
		}
	}

	return top.String() + "\n" + bottom.String()
}
