// Package library persists the saved compositions as a single JSON array.
package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/icco/padcomposer/internal/theory"
	"github.com/icco/padcomposer/internal/timeline"
	"github.com/sirupsen/logrus"
)

// Library reads and writes the composition list at Path.
type Library struct {
	Path string
	log  logrus.FieldLogger
}

// New returns a library backed by the file at path.
func New(path string, log logrus.FieldLogger) *Library {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Library{Path: path, log: log.WithField("library", path)}
}

// Load reads every saved composition. A missing file is an empty library.
// Malformed data is discarded with a warning, so start-up never fails on a
// corrupt file.
func (l *Library) Load() []timeline.Composition {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			l.log.WithError(err).Warn("could not read library, starting empty")
		}
		return []timeline.Composition{}
	}

	var list []timeline.Composition
	if err := json.Unmarshal(data, &list); err != nil {
		l.log.WithError(err).Warn("discarding malformed library")
		return []timeline.Composition{}
	}

	out := list[:0]
	for _, c := range list {
		if c.ID == "" {
			l.log.WithField("name", c.Name).Warn("skipping composition without id")
			continue
		}
		out = append(out, normalize(c))
	}
	l.log.WithField("count", len(out)).Debug("library loaded")
	return out
}

// normalize fills settings that older files may lack and brings note times
// and durations into range.
func normalize(c timeline.Composition) timeline.Composition {
	notes := make([]timeline.Note, len(c.Notes))
	for i, n := range c.Notes {
		notes[i] = n.Clamped()
	}
	c.Notes = notes
	if c.Tempo == 0 {
		c.Tempo = timeline.DefaultTempo
	}
	c.Tempo = timeline.ClampTempo(c.Tempo)
	if c.Octave == 0 {
		c.Octave = timeline.DefaultOctave
	}
	c.Octave = timeline.ClampOctave(c.Octave)
	if c.Instrument == "" {
		c.Instrument = timeline.Synth
	}
	if c.Scale == "" {
		c.Scale = theory.Chromatic
	}
	return c
}

// Save replaces the file with list. The write goes through a temporary file
// in the same directory and a rename.
func (l *Library) Save(list []timeline.Composition) error {
	if list == nil {
		list = []timeline.Composition{}
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding library: %w", err)
	}

	dir := filepath.Dir(l.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating library directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".library-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck,gosec // already failing
		return fmt.Errorf("writing library: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing library: %w", err)
	}
	if err := os.Rename(tmp.Name(), l.Path); err != nil {
		return fmt.Errorf("replacing library: %w", err)
	}
	l.log.WithField("count", len(list)).Info("library saved")
	return nil
}
