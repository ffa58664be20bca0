package tui

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/icco/padcomposer/internal/audio"
	"github.com/icco/padcomposer/internal/composer"
	"github.com/icco/padcomposer/internal/library"
	"github.com/icco/padcomposer/internal/store"
	"github.com/icco/padcomposer/internal/theory"
	"github.com/icco/padcomposer/internal/transport"
	"github.com/sirupsen/logrus/hooks/test"
)

func newTestModel(t *testing.T) (Model, *transport.Manual) {
	t.Helper()
	log, _ := test.NewNullLogger()
	dir := t.TempDir()
	tr := transport.NewManual()
	ctrl := composer.New(composer.Options{
		Store:     store.New(nil, time.Now, log),
		Library:   library.New(filepath.Join(dir, "library.json"), log),
		Engine:    audio.NewSilent(log),
		Transport: tr,
		ExportDir: dir,
		Log:       log,
	})
	return New(ctrl), tr
}

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(key(k))
		m = next.(Model)
	}
	return m, cmd
}

func TestRecordPadTap(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = press(t, m, "r", "1", "1")

	if !m.state.Recording {
		t.Fatal("recording should be on")
	}
	notes := m.state.Current.Notes
	if len(notes) != 1 || notes[0].Pitch != "C4" {
		t.Fatalf("notes = %+v", notes)
	}
	if m.held != -1 {
		t.Errorf("held = %d", m.held)
	}
	if !strings.Contains(m.View(), "Recorded C4") {
		t.Errorf("view missing record message:\n%s", m.View())
	}
}

func TestOtherPadReleasesHeldPad(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = press(t, m, "r", "1", "3", " ")

	notes := m.state.Current.Notes
	if len(notes) != 2 || notes[0].Pitch != "C4" || notes[1].Pitch != "D4" {
		t.Fatalf("notes = %+v", notes)
	}
}

func TestPadWithoutRecordingAddsNothing(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = press(t, m, "1", "1")
	if n := len(m.state.Current.Notes); n != 0 {
		t.Errorf("got %d notes", n)
	}
}

func TestSettingsKeys(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = press(t, m, "]", "]", ".", "tab", "i")
	s := m.state.Settings
	if s.Tempo != 130 || s.Octave != 5 || s.Scale != theory.Major || s.Instrument != "guitar" {
		t.Errorf("settings = %+v", s)
	}
	if pads := m.ctrl.Pads(); len(pads) != 7 || pads[0] != "C5" {
		t.Errorf("pads = %v", pads)
	}
}

func TestGenerateAndPlay(t *testing.T) {
	m, tr := newTestModel(t)
	m, _ = press(t, m, "g", "p")
	if len(m.state.Current.Notes) != 8 {
		t.Fatalf("notes = %d", len(m.state.Current.Notes))
	}
	if !m.state.Playing {
		t.Fatal("should be playing")
	}
	if !strings.Contains(m.View(), "Playing") {
		t.Error("view should show playing")
	}
	tr.Advance(60)
	m.refresh()
	if m.state.Playing || m.state.PlayingPitch != "" {
		t.Errorf("playing %v pitch %q", m.state.Playing, m.state.PlayingPitch)
	}
}

func TestEditSelectedNote(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = press(t, m, "r", "1", "1")
	before := m.state.Current.Notes[0]

	m, _ = press(t, m, "right")
	if got := m.state.Current.Notes[0].Duration; got != "0.2" {
		t.Errorf("duration = %s, was %s", got, before.Duration)
	}
	m, _ = press(t, m, "x")
	if n := len(m.state.Current.Notes); n != 0 {
		t.Errorf("notes = %d", n)
	}
}

func TestLibraryLoad(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = press(t, m, "s")
	saved := m.state.Current.ID
	m, _ = press(t, m, "n", "l")
	if m.mode != libraryMode {
		t.Fatal("expected library mode")
	}
	if !strings.Contains(m.View(), "Saved Compositions") {
		t.Error("library view not rendered")
	}
	m, _ = press(t, m, "enter")
	if m.mode != composeMode || m.state.Current.ID != saved {
		t.Errorf("mode = %v current = %s", m.mode, m.state.Current.ID)
	}
}

func TestQuit(t *testing.T) {
	m, _ := newTestModel(t)
	_, cmd := press(t, m, "q")
	if cmd == nil {
		t.Fatal("expected a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected quit")
	}
}

func TestMeterSprings(t *testing.T) {
	mt := newMeter()
	for range fps {
		mt.update(true)
	}
	if mt.level < 0.8 {
		t.Errorf("level after a second on = %v", mt.level)
	}
	for range 2 * fps {
		mt.update(false)
	}
	if mt.level > 0.1 {
		t.Errorf("level after settling = %v", mt.level)
	}
	if r := mt.render(10); !strings.Contains(r, "·") {
		t.Errorf("render = %q", r)
	}
}

func TestRenderTimeline(t *testing.T) {
	if got := renderTimeline(0, 2, false); !strings.Contains(got, "Stopped") {
		t.Errorf("stopped bar = %q", got)
	}
	if got := renderTimeline(1, 2, true); !strings.Contains(got, "▶") || !strings.Contains(got, "Playing") {
		t.Errorf("playing bar = %q", got)
	}
}

func TestExternalPads(t *testing.T) {
	m, _ := newTestModel(t)
	m = m.WithInput("Pad In")
	m, _ = press(t, m, "r")

	next, _ := m.Update(PadDownMsg{Pitch: "E4"})
	m = next.(Model)
	if !m.activePitches()[64] {
		t.Error("E4 should be active")
	}
	if !strings.Contains(m.View(), "MIDI In: Pad In") {
		t.Error("view should show the input")
	}

	// A release for a pitch that is not held is ignored.
	next, _ = m.Update(PadUpMsg{Pitch: "C4"})
	m = next.(Model)
	if len(m.state.Current.Notes) != 0 {
		t.Fatal("stale release recorded a note")
	}

	next, _ = m.Update(PadUpMsg{Pitch: "E4"})
	m = next.(Model)
	notes := m.state.Current.Notes
	if len(notes) != 1 || notes[0].Pitch != "E4" {
		t.Errorf("notes = %+v", notes)
	}
}

func TestRenderKeyboard(t *testing.T) {
	plain := renderKeyboard(4, nil)
	lit := renderKeyboard(4, map[uint8]bool{60: true})
	if strings.Count(plain, "\n") != 1 {
		t.Errorf("keyboard should have two rows:\n%s", plain)
	}
	if strings.Count(lit, "█") != strings.Count(plain, "█") {
		t.Error("lighting a key should not change the key count")
	}
}
