package tui

import (
	"strings"

	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
)

// meter is a level bar that springs up while a note sounds and settles back
// when it stops.
type meter struct {
	spring   harmonica.Spring
	level    float64
	velocity float64
}

func newMeter() meter {
	return meter{spring: harmonica.NewSpring(harmonica.FPS(fps), 8.0, 0.6)}
}

func (m *meter) update(on bool) {
	target := 0.0
	if on {
		target = 1.0
	}
	m.level, m.velocity = m.spring.Update(m.level, m.velocity, target)
}

var meterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700"))

func (m meter) render(width int) string {
	level := min(max(m.level, 0), 1)
	filled := int(level*float64(width) + 0.5)
	return meterStyle.Render(strings.Repeat("▮", filled)) +
		helpStyle.Render(strings.Repeat("·", width-filled))
}
