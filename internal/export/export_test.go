package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/icco/padcomposer/internal/timeline"
)

func sample() timeline.Composition {
	c := timeline.New(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	c.Name = "Song"
	return c.AddNotes(
		timeline.NewNote("C4", 0, 1),
		timeline.NewNote("E4", 0.5, 0.5),
	)
}

func TestEntries(t *testing.T) {
	got, err := Entries(sample())
	if err != nil {
		t.Fatal(err)
	}
	want := []Entry{
		{Pitch: "C4", Time: 0, Duration: "1"},
		{Pitch: "E4", Time: 0.5, Duration: "0.5"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d entries", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestEmptyExportFails(t *testing.T) {
	c := timeline.New(time.Now())
	if _, err := Entries(c); !errors.Is(err, ErrNoNotes) {
		t.Errorf("Entries err = %v", err)
	}
	if _, err := WriteJSON(t.TempDir(), c); !errors.Is(err, ErrNoNotes) {
		t.Errorf("WriteJSON err = %v", err)
	}
	if _, err := MIDI(c); !errors.Is(err, ErrNoNotes) {
		t.Errorf("MIDI err = %v", err)
	}
}

func TestWriteJSONShape(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteJSON(dir, sample())
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "Song.json" {
		t.Errorf("path = %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if len(raw) != 2 {
		t.Fatalf("got %d entries", len(raw))
	}
	for _, e := range raw {
		if len(e) != 3 {
			t.Errorf("entry has keys %v, want pitch/time/duration", e)
		}
		if _, ok := e["id"]; ok {
			t.Error("id must not be exported")
		}
	}
}

func TestImportRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	src := sample()
	if err := EncodeJSON(&buf, src); err != nil {
		t.Fatal(err)
	}
	notes, err := Import(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != len(src.Notes) {
		t.Fatalf("got %d notes", len(notes))
	}
	for i, n := range notes {
		want := src.Notes[i]
		if n.Pitch != want.Pitch || n.Time != want.Time || n.Duration != want.Duration {
			t.Errorf("note %d = %+v, want %+v", i, n, want)
		}
		if n.ID == "" || n.ID == want.ID {
			t.Errorf("note %d should get a fresh id", i)
		}
	}
}

func TestImportClampsAndRejects(t *testing.T) {
	notes, err := Import(bytes.NewBufferString(`[{"pitch":"A4","time":-1,"duration":"9"}]`))
	if err != nil {
		t.Fatal(err)
	}
	if notes[0].Time != 0 || notes[0].Duration != "4" {
		t.Errorf("note = %+v", notes[0])
	}

	tests := []string{
		`{"pitch":"A4"}`,
		`[{"time":0,"duration":"1"}]`,
		`[{"pitch":"A4","time":0,"duration":"long"}]`,
		`[{"pitch":"C4","time":0,"duration":"NaN"}]`,
		`[{"pitch":"C4","time":0,"duration":"+Inf"}]`,
		`[{"pitch":"C4","time":0,"duration":"-inf"}]`,
	}
	for _, in := range tests {
		if _, err := Import(bytes.NewBufferString(in)); err == nil {
			t.Errorf("Import(%s) should fail", in)
		}
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Song", "Song.json"},
		{"Composition 2024/1/2 03:04:05", "Composition 2024-1-2 03-04-05.json"},
		{"  ", "composition.json"},
	}
	for _, tt := range tests {
		if got := FileName(tt.name, ".json"); got != tt.want {
			t.Errorf("FileName(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestMIDIRoundTrip(t *testing.T) {
	src := sample()
	src.Tempo = 120
	src.Instrument = timeline.Piano

	var buf bytes.Buffer
	if err := EncodeMIDI(&buf, src); err != nil {
		t.Fatal(err)
	}
	notes, tempo, err := ImportMIDI(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if tempo != 120 {
		t.Errorf("tempo = %d", tempo)
	}
	if len(notes) != 2 {
		t.Fatalf("got %d notes", len(notes))
	}
	for i, n := range notes {
		want := src.Notes[i]
		if n.Pitch != want.Pitch || n.Time != want.Time || n.Duration != want.Duration {
			t.Errorf("note %d = %+v, want %+v", i, n, want)
		}
	}
}

func TestWriteMIDI(t *testing.T) {
	path, err := WriteMIDI(t.TempDir(), sample())
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Ext(path) != ".mid" {
		t.Errorf("path = %s", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() == 0 {
		t.Error("empty MIDI file")
	}
}
