package composer

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/icco/padcomposer/internal/store"
	"github.com/icco/padcomposer/internal/timeline"
	"github.com/icco/padcomposer/internal/transport"
	"github.com/sirupsen/logrus/hooks/test"
)

type fakeEngine struct {
	now         float64
	attacks     []string
	releases    int
	scheduled   []string
	instruments []timeline.Instrument
}

func (e *fakeEngine) Attack(pitch string) { e.attacks = append(e.attacks, pitch) }
func (e *fakeEngine) Release()            { e.releases++ }
func (e *fakeEngine) AttackRelease(pitch string, duration, at float64) {
	e.scheduled = append(e.scheduled, pitch)
}
func (e *fakeEngine) Now() float64 { return e.now }
func (e *fakeEngine) SetInstrument(in timeline.Instrument) {
	e.instruments = append(e.instruments, in)
}
func (e *fakeEngine) Close() error { return nil }

type fakeLibrary struct {
	saved [][]timeline.Composition
	err   error
}

func (l *fakeLibrary) Save(list []timeline.Composition) error {
	if l.err != nil {
		return l.err
	}
	l.saved = append(l.saved, list)
	return nil
}

type fixture struct {
	c    *Controller
	eng  *fakeEngine
	tr   *transport.Manual
	lib  *fakeLibrary
	wall time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log, _ := test.NewNullLogger()
	f := &fixture{
		eng:  &fakeEngine{},
		tr:   transport.NewManual(),
		lib:  &fakeLibrary{},
		wall: time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC),
	}
	st := store.New(nil, func() time.Time { return f.wall }, log)
	f.c = New(Options{
		Store:     st,
		Library:   f.lib,
		Engine:    f.eng,
		Transport: f.tr,
		ExportDir: t.TempDir(),
		Rand:      rand.New(rand.NewSource(1)), //nolint:gosec // deterministic test source
		Wall:      func() time.Time { return f.wall },
		Log:       log,
	})
	return f
}

func TestRecordPress(t *testing.T) {
	f := newFixture(t)
	if !f.c.ToggleRecording() {
		t.Fatal("recording should be on")
	}
	if !f.c.State().Recording {
		t.Error("store should report recording")
	}

	f.eng.now = 1
	f.c.PressStart("C4")
	f.wall = f.wall.Add(500 * time.Millisecond)
	n, ok := f.c.PressEnd()
	if !ok {
		t.Fatal("note should be recorded")
	}
	if n.Pitch != "C4" || n.Time != 1 || n.Duration != "0.5" {
		t.Errorf("note = %+v", n)
	}
	cur := f.c.State().Current
	if cur == nil || len(cur.Notes) != 1 {
		t.Fatalf("current = %+v", cur)
	}
	if f.eng.releases != 1 || len(f.eng.attacks) != 1 {
		t.Errorf("attacks=%v releases=%d", f.eng.attacks, f.eng.releases)
	}
}

func TestPlayWithoutCompositionCreatesOne(t *testing.T) {
	f := newFixture(t)
	f.c.ClearComposition()
	if f.c.TogglePlayback() {
		t.Error("nothing should play")
	}
	st := f.c.State()
	if st.Current == nil {
		t.Fatal("a composition should be created")
	}
	if st.Playing {
		t.Error("should not be playing")
	}
}

func TestPlaybackRunsToEnd(t *testing.T) {
	f := newFixture(t)
	st := f.c.Store()
	st.AddNote(timeline.Note{ID: "a", Pitch: "C4", Time: 0, Duration: "1"})
	st.AddNote(timeline.Note{ID: "b", Pitch: "E4", Time: 0.5, Duration: "0.5"})

	if !f.c.TogglePlayback() {
		t.Fatal("playback should start")
	}
	f.tr.Advance(0)
	if got := f.c.State(); !got.Playing || got.PlayingPitch != "C4" {
		t.Errorf("state = playing %v pitch %q", got.Playing, got.PlayingPitch)
	}
	f.tr.Advance(0.5)
	if got := f.c.State().PlayingPitch; got != "E4" {
		t.Errorf("pitch = %q", got)
	}
	f.tr.Advance(0.5)
	got := f.c.State()
	if got.Playing || got.PlayingPitch != "" {
		t.Errorf("after end: playing %v pitch %q", got.Playing, got.PlayingPitch)
	}
	if strings.Join(f.eng.scheduled, ",") != "C4,E4" {
		t.Errorf("scheduled = %v", f.eng.scheduled)
	}
}

func TestToggleStopsAndClearsPitch(t *testing.T) {
	f := newFixture(t)
	f.c.Store().AddNote(timeline.NewNote("C4", 0, 2))
	f.c.TogglePlayback()
	f.tr.Advance(0.1)
	if f.c.TogglePlayback() {
		t.Error("second toggle should stop")
	}
	got := f.c.State()
	if got.Playing || got.PlayingPitch != "" {
		t.Errorf("state = playing %v pitch %q", got.Playing, got.PlayingPitch)
	}
	if n := len(f.tr.Pending()); n != 0 {
		t.Errorf("%d events still pending", n)
	}
}

func TestMetronomeUsesSettingsTempo(t *testing.T) {
	f := newFixture(t)
	f.c.Store().AddNote(timeline.NewNote("C4", 0, 2))
	f.c.SetTempo(60)
	f.c.ToggleMetronome()
	f.c.Play()
	f.tr.Advance(2)
	clicks := 0
	for _, p := range f.eng.scheduled {
		if p == "C7" {
			clicks++
		}
	}
	if clicks != 2 {
		t.Errorf("clicks = %d, want 2", clicks)
	}
}

func TestGenerate(t *testing.T) {
	f := newFixture(t)
	notes := f.c.Generate()
	if len(notes) != 8 {
		t.Fatalf("generated %d notes", len(notes))
	}
	if got := len(f.c.State().Current.Notes); got != 8 {
		t.Errorf("current has %d notes", got)
	}

	f.c.ClearComposition()
	if notes := f.c.Generate(); notes != nil {
		t.Errorf("generate without composition = %v", notes)
	}
	if f.c.State().Current != nil {
		t.Error("generate must not create a composition")
	}
}

func TestSaveNotices(t *testing.T) {
	f := newFixture(t)
	n := f.c.Save()
	if n.Kind != Success || !strings.HasPrefix(n.Message, "Saved as") {
		t.Errorf("first save = %+v", n)
	}
	n = f.c.Save()
	if n.Kind != Success || strings.HasPrefix(n.Message, "Saved as") {
		t.Errorf("second save = %+v", n)
	}
	if len(f.lib.saved) != 2 || len(f.lib.saved[1]) != 1 {
		t.Errorf("library writes = %v", f.lib.saved)
	}

	n = f.c.SaveAsNew()
	if n.Kind != Success || len(f.c.State().Compositions) != 2 {
		t.Errorf("save as new = %+v", n)
	}

	f.lib.err = errors.New("disk full")
	if n := f.c.Save(); !n.Failed() {
		t.Errorf("failing save = %+v", n)
	}
}

func TestLoadAppliesInstrument(t *testing.T) {
	f := newFixture(t)
	if err := f.c.SetInstrument("violin"); err != nil {
		t.Fatal(err)
	}
	f.c.Save()
	id := f.c.State().Current.ID
	f.c.NewComposition()
	if got := f.c.State().Settings.Instrument; got != timeline.Synth {
		t.Errorf("instrument after new = %s", got)
	}
	if _, ok := f.c.Load(id); !ok {
		t.Fatal("load failed")
	}
	last := f.eng.instruments[len(f.eng.instruments)-1]
	if last != timeline.Violin {
		t.Errorf("engine instrument = %s", last)
	}
	if err := f.c.SetInstrument("kazoo"); err == nil {
		t.Error("expected error for unknown instrument")
	}
}

func TestExport(t *testing.T) {
	f := newFixture(t)
	if _, n := f.c.Export(false); !n.Failed() {
		t.Errorf("empty export = %+v", n)
	}

	f.c.Store().AddNote(timeline.NewNote("C4", 0, 1))
	paths, n := f.c.Export(true)
	if n.Failed() {
		t.Fatalf("export = %+v", n)
	}
	if len(paths) != 2 {
		t.Fatalf("paths = %v", paths)
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			t.Error(err)
		}
	}
	if filepath.Ext(paths[0]) != ".json" || filepath.Ext(paths[1]) != ".mid" {
		t.Errorf("paths = %v", paths)
	}
}

func TestUpdateNoteClamps(t *testing.T) {
	f := newFixture(t)
	n := timeline.NewNote("C4", 0, 1)
	f.c.Store().AddNote(n)

	d := "12"
	at := -3.0
	if !f.c.UpdateNote(n.ID, timeline.NotePatch{Duration: &d, Time: &at}) {
		t.Fatal("update failed")
	}
	got := f.c.State().Current.Notes[0]
	if got.Duration != "4" || got.Time != 0 {
		t.Errorf("note = %+v", got)
	}

	bad := "soon"
	if f.c.UpdateNote(n.ID, timeline.NotePatch{Duration: &bad}) {
		t.Error("malformed duration should be rejected")
	}
	nan := "NaN"
	if f.c.UpdateNote(n.ID, timeline.NotePatch{Duration: &nan}) {
		t.Error("NaN duration should be rejected")
	}
	if got := f.c.State().Current.Notes[0]; got.Duration != "4" {
		t.Errorf("rejected update changed the note: %+v", got)
	}
	if !f.c.DeleteNote(n.ID) || f.c.DeleteNote(n.ID) {
		t.Error("delete should succeed once")
	}
}
