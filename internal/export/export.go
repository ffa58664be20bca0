// Package export writes compositions out as note lists and Standard MIDI
// Files, and reads those note lists back.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/icco/padcomposer/internal/timeline"
)

// ErrNoNotes is returned when exporting a composition without notes.
var ErrNoNotes = errors.New("composition has no notes to export")

// Entry is one exported note. The id is left out.
type Entry struct {
	Pitch    string  `json:"pitch"`
	Time     float64 `json:"time"`
	Duration string  `json:"duration"`
}

// Entries converts the notes of c in insertion order.
func Entries(c timeline.Composition) ([]Entry, error) {
	if len(c.Notes) == 0 {
		return nil, ErrNoNotes
	}
	out := make([]Entry, len(c.Notes))
	for i, n := range c.Notes {
		out[i] = Entry{Pitch: n.Pitch, Time: n.Time, Duration: n.Duration}
	}
	return out, nil
}

// EncodeJSON writes the exported note list of c to w.
func EncodeJSON(w io.Writer, c timeline.Composition) error {
	entries, err := Entries(c)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return fmt.Errorf("encoding notes: %w", err)
	}
	return nil
}

// FileName is the base name used for an export of the composition called
// name, with the extension ext.
func FileName(name, ext string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "composition"
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '-'
		}
		return r
	}, name)
	return name + ext
}

// WriteJSON writes <name>.json into dir and returns its path.
func WriteJSON(dir string, c timeline.Composition) (string, error) {
	if len(c.Notes) == 0 {
		return "", ErrNoNotes
	}
	path := filepath.Join(dir, FileName(c.Name, ".json"))
	if err := writeFile(path, func(w io.Writer) error { return EncodeJSON(w, c) }); err != nil {
		return "", err
	}
	return path, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}
	f, err := os.Create(path) //nolint:gosec // path is built from the export directory
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close() //nolint:errcheck,gosec // already failing
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}

// Import reads an exported note list. Every note gets a fresh id, and out of
// range durations and negative times are clamped.
func Import(r io.Reader) ([]timeline.Note, error) {
	var entries []Entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decoding notes: %w", err)
	}
	notes := make([]timeline.Note, 0, len(entries))
	for i, e := range entries {
		if e.Pitch == "" {
			return nil, fmt.Errorf("note %d: missing pitch", i)
		}
		d, err := timeline.ParseDuration(e.Duration)
		if err != nil {
			return nil, fmt.Errorf("note %d: %w", i, err)
		}
		notes = append(notes, timeline.NewNote(e.Pitch, e.Time, d))
	}
	return notes, nil
}

// ImportFile reads an exported note list from path.
func ImportFile(path string) ([]timeline.Note, error) {
	f, err := os.Open(path) //nolint:gosec // user supplied path
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // read only
	return Import(f)
}
