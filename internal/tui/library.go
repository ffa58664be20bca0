package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) updateLibrary(msg tea.KeyMsg) (Model, tea.Cmd) {
	list := m.state.Compositions

	switch msg.String() {
	case keyUp, "k":
		if m.libCursor > 0 {
			m.libCursor--
		}
	case keyDown, "j":
		if m.libCursor < len(list)-1 {
			m.libCursor++
		}
	case keyEnter:
		if m.libCursor < len(list) {
			c := list[m.libCursor]
			if _, ok := m.ctrl.Load(c.ID); ok {
				m.mode = composeMode
				m.noteCursor = 0
				m.message = fmt.Sprintf("Loaded: %s", c.Name)
				m.failed = false
			}
		}
	case "d":
		if m.libCursor < len(list) {
			m.notify(m.ctrl.DeleteComposition(list[m.libCursor].ID))
			if m.libCursor > 0 && m.libCursor >= len(list)-1 {
				m.libCursor--
			}
		}
	case keyEsc, "q", "l":
		m.mode = composeMode
	}

	return m, nil
}

func (m Model) viewLibrary() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Saved Compositions") + "\n\n")

	list := m.state.Compositions
	if len(list) == 0 {
		b.WriteString("No saved compositions.\n\n")
		b.WriteString("Press s in the composer to save one.\n")
	} else {
		current := ""
		if m.state.Current != nil {
			current = m.state.Current.ID
		}
		for i, c := range list {
			cursor := "  "
			if i == m.libCursor {
				cursor = "> "
			}
			// Mark the composition being edited
			open := ""
			if c.ID == current {
				open = " (open)"
			}
			line := fmt.Sprintf("%s%-36s %3d notes  %3d bpm  %s%s\n",
				cursor, c.Name, len(c.Notes), c.Tempo, c.Instrument, open)
			if i == m.libCursor {
				b.WriteString(selectedStyle.Render(line))
			} else {
				b.WriteString(line)
			}
		}
	}

	b.WriteString("\n")
	b.WriteString(m.viewMessage())

	b.WriteString("\n" + helpStyle.Render("↑/k: up • ↓/j: down • enter: load • d: delete • l/q/esc: back"))

	return b.String()
}
