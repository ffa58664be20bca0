// Package composer is the root controller. It owns the store and connects the
// recorder, the playback scheduler, the melody generator and the library to
// one audio engine and transport.
package composer

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/icco/padcomposer/internal/audio"
	"github.com/icco/padcomposer/internal/export"
	"github.com/icco/padcomposer/internal/melody"
	"github.com/icco/padcomposer/internal/playback"
	"github.com/icco/padcomposer/internal/recording"
	"github.com/icco/padcomposer/internal/store"
	"github.com/icco/padcomposer/internal/theory"
	"github.com/icco/padcomposer/internal/timeline"
	"github.com/icco/padcomposer/internal/transport"
	"github.com/sirupsen/logrus"
)

// NoticeKind says how a UI should present a Notice.
type NoticeKind string

const (
	Info    NoticeKind = "info"
	Success NoticeKind = "success"
	// Blocking notices report a failed operation the user has to
	// acknowledge.
	Blocking NoticeKind = "blocking"
)

// Notice is the user-facing outcome of an operation.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

// Failed reports whether the notice describes a failure.
func (n Notice) Failed() bool { return n.Kind == Blocking }

// Persister stores the saved composition list.
type Persister interface {
	Save(list []timeline.Composition) error
}

// Options configure a Controller.
type Options struct {
	Store     *store.Store
	Library   Persister
	Engine    audio.Engine
	Transport transport.Transport
	// ExportDir receives exported files. Empty means the working directory.
	ExportDir string
	Rand      *rand.Rand
	// Wall measures press durations. Defaults to time.Now.
	Wall func() time.Time
	Log  logrus.FieldLogger
}

// Controller runs every user operation.
type Controller struct {
	store     *store.Store
	library   Persister
	engine    audio.Engine
	recorder  *recording.Session
	player    *playback.Scheduler
	generator *melody.Generator
	transport transport.Transport
	exportDir string
	log       logrus.FieldLogger
}

// New builds a controller. Store, Engine and Transport are required.
func New(opts Options) *Controller {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // melodies need no crypto randomness
	}
	c := &Controller{
		store:     opts.Store,
		library:   opts.Library,
		engine:    opts.Engine,
		recorder:  recording.NewSession(opts.Engine, opts.Store, opts.Wall, log),
		player:    playback.NewScheduler(opts.Transport, opts.Engine, opts.Store, log),
		generator: melody.NewGenerator(rng),
		transport: opts.Transport,
		exportDir: opts.ExportDir,
		log:       log.WithField("component", "composer"),
	}
	c.engine.SetInstrument(c.store.Settings().Instrument)
	return c
}

// Store exposes the state for observers.
func (c *Controller) Store() *store.Store { return c.store }

// State returns the current snapshot.
func (c *Controller) State() store.State { return c.store.Snapshot() }

// Pads lists the pitches of the pad grid for the current scale and octave.
func (c *Controller) Pads() []string {
	s := c.store.Settings()
	return theory.PadPitches(s.Scale, s.Octave)
}

// playable is the current composition with the editor settings applied.
func (c *Controller) playable() (timeline.Composition, bool) {
	comp, ok := c.store.Current()
	if !ok {
		return comp, false
	}
	s := c.store.Settings()
	comp.Tempo = s.Tempo
	comp.Instrument = s.Instrument
	return comp, true
}

// TogglePlayback stops a running playback or starts a new one. Without a
// current composition it only creates an empty one, and reports false.
func (c *Controller) TogglePlayback() bool {
	if c.player.Playing() {
		c.player.Stop()
		return false
	}
	return c.Play()
}

// Play starts playback of the current composition from the top.
func (c *Controller) Play() bool {
	comp, ok := c.playable()
	if !ok {
		c.store.EnsureComposition()
		return false
	}
	c.engine.SetInstrument(comp.Instrument)
	c.player.SetMetronome(c.store.Snapshot().Metronome)
	c.player.Play(comp)
	return true
}

// Stop halts playback.
func (c *Controller) Stop() { c.player.Stop() }

// Position is the playback position in seconds.
func (c *Controller) Position() float64 { return c.transport.Position() }

// Playing reports whether playback is running.
func (c *Controller) Playing() bool { return c.player.Playing() }

// ToggleRecording arms or disarms the recorder and returns the new state.
func (c *Controller) ToggleRecording() bool {
	on := c.recorder.Toggle()
	c.store.SetRecording(on)
	return on
}

// PressStart sounds pitch and starts timing a note.
func (c *Controller) PressStart(pitch string) {
	c.recorder.PressStart(pitch)
}

// PressEnd releases the active pad. The note is returned when it was
// recorded.
func (c *Controller) PressEnd() (timeline.Note, bool) {
	return c.recorder.PressEnd()
}

// Recorder returns the recorder state.
func (c *Controller) Recorder() recording.State { return c.recorder.Snapshot() }

// Generate appends a random melody for the current settings. Without a
// current composition it does nothing and returns nil.
func (c *Controller) Generate() []timeline.Note {
	if _, ok := c.store.Current(); !ok {
		return nil
	}
	s := c.store.Settings()
	notes := c.generator.Melody(s.Scale, s.Octave, s.Tempo)
	if !c.store.AppendNotes(notes) {
		return nil
	}
	c.log.WithField("notes", len(notes)).Info("melody generated")
	return notes
}

// UpdateNote patches one note of the current composition.
func (c *Controller) UpdateNote(id string, patch timeline.NotePatch) bool {
	if patch.Duration != nil {
		d, err := timeline.ParseDuration(*patch.Duration)
		if err != nil {
			return false
		}
		clamped := timeline.FormatDuration(timeline.ClampDuration(d))
		patch.Duration = &clamped
	}
	if patch.Time != nil {
		at := timeline.ClampTime(*patch.Time)
		patch.Time = &at
	}
	return c.store.UpdateNote(id, patch)
}

// DeleteNote removes one note of the current composition.
func (c *Controller) DeleteNote(id string) bool { return c.store.DeleteNote(id) }

// ClearComposition leaves the editor without a current composition.
func (c *Controller) ClearComposition() {
	c.player.Stop()
	c.store.ClearCurrent()
}

// NewComposition starts a fresh composition with default settings.
func (c *Controller) NewComposition() timeline.Composition {
	c.player.Stop()
	comp := c.store.NewComposition()
	c.engine.SetInstrument(comp.Instrument)
	return comp
}

// Load makes a saved composition current.
func (c *Controller) Load(id string) (timeline.Composition, bool) {
	comp, ok := c.store.Load(id)
	if !ok {
		return comp, false
	}
	c.player.Stop()
	c.engine.SetInstrument(comp.Instrument)
	c.log.WithField("composition", id).Info("composition loaded")
	return comp, true
}

// Save overwrites the saved copy of the current composition, or saves it as
// new when it was never saved.
func (c *Controller) Save() Notice {
	saved, created, ok := c.store.Save()
	if !ok {
		return Notice{Kind: Info, Message: "Nothing to save"}
	}
	if n, failed := c.persist(); failed {
		return n
	}
	if created {
		return Notice{Kind: Success, Message: fmt.Sprintf("Saved as %q", saved.Name)}
	}
	return Notice{Kind: Success, Message: fmt.Sprintf("Saved %q", saved.Name)}
}

// SaveAsNew stores the current composition as a new entry.
func (c *Controller) SaveAsNew() Notice {
	saved, ok := c.store.SaveAsNew()
	if !ok {
		return Notice{Kind: Info, Message: "Nothing to save"}
	}
	if n, failed := c.persist(); failed {
		return n
	}
	return Notice{Kind: Success, Message: fmt.Sprintf("Saved as %q", saved.Name)}
}

// DeleteComposition removes a saved composition.
func (c *Controller) DeleteComposition(id string) Notice {
	if !c.store.DeleteComposition(id) {
		return Notice{Kind: Info, Message: "No such composition"}
	}
	if n, failed := c.persist(); failed {
		return n
	}
	return Notice{Kind: Success, Message: "Composition deleted"}
}

// Rename changes the current composition's name.
func (c *Controller) Rename(name string) bool { return c.store.Rename(name) }

func (c *Controller) persist() (Notice, bool) {
	if c.library == nil {
		return Notice{}, false
	}
	if err := c.library.Save(c.store.Compositions()); err != nil {
		c.log.WithError(err).Error("saving library")
		return Notice{Kind: Blocking, Message: fmt.Sprintf("Could not save: %v", err)}, true
	}
	return Notice{}, false
}

// Export writes the current composition as a note list, plus a MIDI file
// when withMIDI is set. It aborts with a blocking notice when there are no
// notes.
func (c *Controller) Export(withMIDI bool) ([]string, Notice) {
	comp, ok := c.playable()
	if !ok || len(comp.Notes) == 0 {
		return nil, Notice{Kind: Blocking, Message: "No notes to export"}
	}

	dir := c.exportDir
	if dir == "" {
		dir = "."
	}
	var paths []string
	path, err := export.WriteJSON(dir, comp)
	if err != nil {
		return nil, c.exportFailed(err)
	}
	paths = append(paths, path)
	if withMIDI {
		path, err := export.WriteMIDI(dir, comp)
		if err != nil {
			return paths, c.exportFailed(err)
		}
		paths = append(paths, path)
	}
	c.log.WithField("files", paths).Info("composition exported")
	return paths, Notice{Kind: Success, Message: fmt.Sprintf("Exported %d notes", len(comp.Notes))}
}

func (c *Controller) exportFailed(err error) Notice {
	if errors.Is(err, export.ErrNoNotes) {
		return Notice{Kind: Blocking, Message: "No notes to export"}
	}
	c.log.WithError(err).Error("export failed")
	return Notice{Kind: Blocking, Message: fmt.Sprintf("Export failed: %v", err)}
}

// SetTempo clamps and applies the tempo.
func (c *Controller) SetTempo(bpm int) int { return c.store.SetTempo(bpm) }

// SetOctave clamps and applies the octave.
func (c *Controller) SetOctave(octave int) int { return c.store.SetOctave(octave) }

// SetScale applies a scale by tag.
func (c *Controller) SetScale(name string) error { return c.store.SetScale(name) }

// SetInstrument applies an instrument by tag and retunes the engine.
func (c *Controller) SetInstrument(name string) error {
	in, err := c.store.SetInstrument(name)
	if err != nil {
		return err
	}
	c.engine.SetInstrument(in)
	return nil
}

// ToggleMetronome flips the metronome. It takes effect on the next Play.
func (c *Controller) ToggleMetronome() bool { return c.store.ToggleMetronome() }

// Close stops playback and recording.
func (c *Controller) Close() {
	c.player.Stop()
	c.recorder.Stop()
	c.store.SetRecording(false)
}
