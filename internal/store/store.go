// Package store is the application state container: the saved compositions,
// the composition being edited, the editor settings and the transport flags.
//
// Every mutation replaces the current composition with a new value, and
// subscribers get a State snapshot after each change.
package store

import (
	"sync"
	"time"

	"github.com/icco/padcomposer/internal/theory"
	"github.com/icco/padcomposer/internal/timeline"
	"github.com/sirupsen/logrus"
)

// Settings are the editor controls. They are written into a composition when
// it is saved and read back when it is loaded.
type Settings struct {
	Tempo      int                 `json:"tempo"`
	Instrument timeline.Instrument `json:"instrument"`
	Scale      theory.Scale        `json:"scale"`
	Octave     int                 `json:"octave"`
}

// DefaultSettings match a fresh composition.
func DefaultSettings() Settings {
	return Settings{
		Tempo:      timeline.DefaultTempo,
		Instrument: timeline.Synth,
		Scale:      theory.Chromatic,
		Octave:     timeline.DefaultOctave,
	}
}

func settingsOf(c timeline.Composition) Settings {
	return Settings{Tempo: c.Tempo, Instrument: c.Instrument, Scale: c.Scale, Octave: c.Octave}
}

func (s Settings) applyTo(c timeline.Composition) timeline.Composition {
	c.Tempo = s.Tempo
	c.Instrument = s.Instrument
	c.Scale = s.Scale
	c.Octave = s.Octave
	return c
}

// State is an immutable snapshot of the store.
type State struct {
	Compositions []timeline.Composition `json:"compositions"`
	Current      *timeline.Composition  `json:"current"`
	Settings     Settings               `json:"settings"`
	Playing      bool                   `json:"playing"`
	Recording    bool                   `json:"recording"`
	Metronome    bool                   `json:"metronome"`
	PlayingPitch string                 `json:"playingPitch,omitempty"`
}

// Saved reports whether the current composition is in the saved list.
func (s State) Saved() bool {
	return s.Current != nil && FindByID(s.Compositions, s.Current.ID) >= 0
}

// FindByID returns the index of the composition with id, or -1. Save, load
// and delete all resolve compositions through it.
func FindByID(list []timeline.Composition, id string) int {
	for i, c := range list {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Store holds the state. It is safe for concurrent use.
type Store struct {
	mu           sync.RWMutex
	compositions []timeline.Composition
	current      *timeline.Composition
	settings     Settings
	playing      bool
	recording    bool
	metronome    bool
	pitch        string

	now  func() time.Time
	log  logrus.FieldLogger
	subs map[int]func(State)
	next int
}

// New creates a store with a fresh current composition. now defaults to
// time.Now.
func New(saved []timeline.Composition, now func() time.Time, log logrus.FieldLogger) *Store {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Store{
		compositions: append([]timeline.Composition(nil), saved...),
		settings:     DefaultSettings(),
		now:          now,
		log:          log.WithField("component", "store"),
		subs:         make(map[int]func(State)),
	}
	c := timeline.New(now())
	s.current = &c
	return s
}

// Subscribe registers fn to receive a snapshot after every change. The
// returned function unregisters it.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() State {
	st := State{
		Compositions: append([]timeline.Composition(nil), s.compositions...),
		Settings:     s.settings,
		Playing:      s.playing,
		Recording:    s.recording,
		Metronome:    s.metronome,
		PlayingPitch: s.pitch,
	}
	if s.current != nil {
		c := *s.current
		st.Current = &c
	}
	return st
}

// update runs fn under the write lock and notifies subscribers when fn
// reports a change.
func (s *Store) update(fn func() bool) bool {
	s.mu.Lock()
	changed := fn()
	var (
		st   State
		subs []func(State)
	)
	if changed {
		st = s.snapshotLocked()
		subs = make([]func(State), 0, len(s.subs))
		for _, sub := range s.subs {
			subs = append(subs, sub)
		}
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(st)
	}
	return changed
}

func (s *Store) setCurrent(c timeline.Composition) {
	s.current = &c
}

// Current returns the composition being edited.
func (s *Store) Current() (timeline.Composition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return timeline.Composition{}, false
	}
	return *s.current, true
}

// Settings returns the editor settings.
func (s *Store) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Compositions returns the saved compositions.
func (s *Store) Compositions() []timeline.Composition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]timeline.Composition(nil), s.compositions...)
}

// EnsureComposition returns the current composition id, creating an empty
// composition when there is none.
func (s *Store) EnsureComposition() string {
	var id string
	s.update(func() bool {
		if s.current != nil {
			id = s.current.ID
			return false
		}
		c := timeline.New(s.now())
		s.setCurrent(c)
		id = c.ID
		return true
	})
	return id
}

// AddNote appends n, creating a composition first when there is none.
func (s *Store) AddNote(n timeline.Note) {
	s.update(func() bool {
		if s.current == nil {
			s.setCurrent(timeline.New(s.now()))
		}
		s.setCurrent(s.current.AddNote(n))
		return true
	})
}

// AppendNotes adds notes in one batch. Without a current composition it does
// nothing and returns false.
func (s *Store) AppendNotes(notes []timeline.Note) bool {
	return s.update(func() bool {
		if s.current == nil {
			return false
		}
		s.setCurrent(s.current.AddNotes(notes...))
		return true
	})
}

// UpdateNote patches the note with id. Unknown ids and a missing composition
// are no-ops.
func (s *Store) UpdateNote(id string, patch timeline.NotePatch) bool {
	return s.update(func() bool {
		if s.current == nil {
			return false
		}
		c, ok := s.current.UpdateNote(id, patch)
		if ok {
			s.setCurrent(c)
		}
		return ok
	})
}

// DeleteNote removes the note with id. Unknown ids are no-ops.
func (s *Store) DeleteNote(id string) bool {
	return s.update(func() bool {
		if s.current == nil {
			return false
		}
		c, ok := s.current.DeleteNote(id)
		if ok {
			s.setCurrent(c)
		}
		return ok
	})
}

// NewComposition replaces the current composition with a fresh one and
// resets the settings to its defaults.
func (s *Store) NewComposition() timeline.Composition {
	var c timeline.Composition
	s.update(func() bool {
		c = timeline.New(s.now())
		s.setCurrent(c)
		s.settings = settingsOf(c)
		return true
	})
	s.log.WithField("composition", c.ID).Info("new composition")
	return c
}

// ClearCurrent leaves the store without a current composition.
func (s *Store) ClearCurrent() {
	s.update(func() bool {
		if s.current == nil {
			return false
		}
		s.current = nil
		return true
	})
}

// Load makes the saved composition with id current and applies its
// settings. Unknown ids are no-ops.
func (s *Store) Load(id string) (timeline.Composition, bool) {
	var c timeline.Composition
	ok := s.update(func() bool {
		i := FindByID(s.compositions, id)
		if i < 0 {
			return false
		}
		c = s.compositions[i]
		s.setCurrent(c)
		s.settings = settingsOf(c)
		return true
	})
	return c, ok
}

// Save overwrites the saved copy of the current composition with the current
// settings applied. When the current composition has never been saved it is
// saved as new instead; created reports which happened.
func (s *Store) Save() (saved timeline.Composition, created, ok bool) {
	ok = s.update(func() bool {
		if s.current == nil {
			return false
		}
		i := FindByID(s.compositions, s.current.ID)
		if i < 0 {
			saved = s.saveAsNewLocked()
			created = true
			return true
		}
		saved = s.settings.applyTo(*s.current)
		list := append([]timeline.Composition(nil), s.compositions...)
		list[i] = saved
		s.compositions = list
		s.setCurrent(saved)
		return true
	})
	return saved, created, ok
}

// SaveAsNew stores a copy of the current composition under a fresh id and a
// timestamped name, and makes the copy current.
func (s *Store) SaveAsNew() (timeline.Composition, bool) {
	var saved timeline.Composition
	ok := s.update(func() bool {
		if s.current == nil {
			return false
		}
		saved = s.saveAsNewLocked()
		return true
	})
	return saved, ok
}

func (s *Store) saveAsNewLocked() timeline.Composition {
	c := s.settings.applyTo(s.current.Clone())
	c.ID = timeline.NewID()
	c.Name = "Composition " + s.now().Format("2006/1/2 15:04:05")
	list := make([]timeline.Composition, 0, len(s.compositions)+1)
	list = append(list, s.compositions...)
	s.compositions = append(list, c)
	s.setCurrent(c)
	return c
}

// DeleteComposition removes a saved composition. The current composition is
// kept even when it is the one removed.
func (s *Store) DeleteComposition(id string) bool {
	return s.update(func() bool {
		i := FindByID(s.compositions, id)
		if i < 0 {
			return false
		}
		list := make([]timeline.Composition, 0, len(s.compositions)-1)
		list = append(list, s.compositions[:i]...)
		s.compositions = append(list, s.compositions[i+1:]...)
		return true
	})
}

// Rename changes the current composition's name.
func (s *Store) Rename(name string) bool {
	return s.update(func() bool {
		if s.current == nil || name == "" {
			return false
		}
		c := *s.current
		c.Name = name
		s.setCurrent(c)
		return true
	})
}

// SetTempo clamps and stores the tempo, returning the stored value.
func (s *Store) SetTempo(bpm int) int {
	bpm = timeline.ClampTempo(bpm)
	s.update(func() bool {
		if s.settings.Tempo == bpm {
			return false
		}
		s.settings.Tempo = bpm
		return true
	})
	return bpm
}

// SetOctave clamps and stores the octave, returning the stored value.
func (s *Store) SetOctave(octave int) int {
	octave = timeline.ClampOctave(octave)
	s.update(func() bool {
		if s.settings.Octave == octave {
			return false
		}
		s.settings.Octave = octave
		return true
	})
	return octave
}

// SetScale validates and stores the scale.
func (s *Store) SetScale(name string) error {
	sc, err := theory.ParseScale(name)
	if err != nil {
		return err
	}
	s.update(func() bool {
		changed := s.settings.Scale != sc
		s.settings.Scale = sc
		return changed
	})
	return nil
}

// SetInstrument validates and stores the instrument.
func (s *Store) SetInstrument(name string) (timeline.Instrument, error) {
	in, err := timeline.ParseInstrument(name)
	if err != nil {
		return "", err
	}
	s.update(func() bool {
		changed := s.settings.Instrument != in
		s.settings.Instrument = in
		return changed
	})
	return in, nil
}

// ToggleMetronome flips the metronome flag and returns the new value.
func (s *Store) ToggleMetronome() bool {
	var on bool
	s.update(func() bool {
		s.metronome = !s.metronome
		on = s.metronome
		return true
	})
	return on
}

// SetPlaying records the transport state. It satisfies playback.Reporter.
func (s *Store) SetPlaying(playing bool) {
	s.update(func() bool {
		changed := s.playing != playing
		s.playing = playing
		return changed
	})
}

// SetPlayingPitch records the highlighted pitch. It satisfies
// playback.Reporter.
func (s *Store) SetPlayingPitch(pitch string) {
	s.update(func() bool {
		changed := s.pitch != pitch
		s.pitch = pitch
		return changed
	})
}

// SetRecording records the recorder state.
func (s *Store) SetRecording(recording bool) {
	s.update(func() bool {
		changed := s.recording != recording
		s.recording = recording
		return changed
	})
}
