package library

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/icco/padcomposer/internal/timeline"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestLoadMissingFile(t *testing.T) {
	log, hook := test.NewNullLogger()
	l := New(filepath.Join(t.TempDir(), "none.json"), log)
	if got := l.Load(); len(got) != 0 {
		t.Errorf("got %d compositions", len(got))
	}
	for _, e := range hook.AllEntries() {
		if e.Level <= logrus.WarnLevel {
			t.Errorf("unexpected warning: %s", e.Message)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "library.json")
	l := New(path, nil)

	c := timeline.New(time.Now())
	c.Tempo = 96
	c = c.AddNote(timeline.NewNote("A3", 0.25, 0.5))
	if err := l.Save([]timeline.Composition{c}); err != nil {
		t.Fatal(err)
	}

	got := l.Load()
	if len(got) != 1 {
		t.Fatalf("got %d compositions", len(got))
	}
	if got[0].ID != c.ID || got[0].Tempo != 96 || len(got[0].Notes) != 1 {
		t.Errorf("loaded %+v", got[0])
	}
	if got[0].Notes[0] != c.Notes[0] {
		t.Errorf("note = %+v, want %+v", got[0].Notes[0], c.Notes[0])
	}
}

func TestLoadMalformedStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	log, hook := test.NewNullLogger()
	l := New(path, log)

	if got := l.Load(); len(got) != 0 {
		t.Errorf("got %d compositions", len(got))
	}
	e := hook.LastEntry()
	if e == nil || e.Level != logrus.WarnLevel {
		t.Fatalf("expected a warning, got %+v", e)
	}
}

func TestLoadFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.json")
	data := `[{"id":"a","name":"old","notes":null},{"name":"no id"}]`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	log, _ := test.NewNullLogger()
	got := New(path, log).Load()
	if len(got) != 1 {
		t.Fatalf("got %d compositions", len(got))
	}
	c := got[0]
	if c.Tempo != timeline.DefaultTempo || c.Octave != timeline.DefaultOctave || c.Instrument != timeline.Synth || c.Notes == nil {
		t.Errorf("defaults not applied: %+v", c)
	}
}

func TestLoadClampsNotes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.json")
	data := `[{"id":"a","name":"old","notes":[
		{"id":"n1","pitch":"C4","time":1,"duration":"-1"},
		{"id":"n2","pitch":"D4","time":-3,"duration":"9"},
		{"id":"n3","pitch":"E4","time":2,"duration":"0"},
		{"id":"n4","pitch":"F4","time":0.5,"duration":"1.5"}
	]}]`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	log, _ := test.NewNullLogger()
	got := New(path, log).Load()
	if len(got) != 1 || len(got[0].Notes) != 4 {
		t.Fatalf("got %+v", got)
	}
	want := []struct {
		time     float64
		duration string
	}{
		{1, "0.1"},
		{0, "4"},
		{2, "0.1"},
		{0.5, "1.5"},
	}
	for i, w := range want {
		n := got[0].Notes[i]
		if n.Time != w.time || n.Duration != w.duration {
			t.Errorf("note %d = %+v, want time %v duration %s", i, n, w.time, w.duration)
		}
		if n.End() <= n.Time {
			t.Errorf("note %d ends at %v, not after %v", i, n.End(), n.Time)
		}
	}
}
