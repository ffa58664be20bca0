// Package timeline models a composition as an ordered list of timed notes.
//
// Compositions are values. Every mutation returns a new Composition and never
// writes into the Notes slice of the receiver, so a snapshot handed to an
// observer stays valid while the owner keeps editing.
package timeline

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/icco/padcomposer/internal/theory"
)

const (
	MinDuration = 0.1
	MaxDuration = 4.0

	MinTempo     = 40
	MaxTempo     = 240
	DefaultTempo = 120

	MinOctave     = 2
	MaxOctave     = 6
	DefaultOctave = 4
)

// Instrument is the tone tag a composition is played with.
type Instrument string

const (
	Synth    Instrument = "synth"
	Guitar   Instrument = "guitar"
	Electric Instrument = "electric"
	Piano    Instrument = "piano"
	Violin   Instrument = "violin"
	Flute    Instrument = "flute"
)

// Instruments lists every instrument in display order.
var Instruments = []Instrument{Synth, Guitar, Electric, Piano, Violin, Flute}

// General MIDI programs for each instrument.
var programs = map[Instrument]uint8{
	Synth:    80, // Lead 1 (square)
	Guitar:   24, // Acoustic Guitar (nylon)
	Electric: 27, // Electric Guitar (clean)
	Piano:    0,  // Acoustic Grand Piano
	Violin:   40,
	Flute:    73,
}

// Program returns the General MIDI program number for the instrument.
// Unknown tags map to the synth program.
func (in Instrument) Program() uint8 {
	if p, ok := programs[in]; ok {
		return p
	}
	return programs[Synth]
}

var (
	ErrUnknownInstrument = errors.New("unknown instrument")
	ErrInvalidDuration   = errors.New("invalid duration")
)

// ParseInstrument validates an instrument tag.
func ParseInstrument(s string) (Instrument, error) {
	in := Instrument(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Instruments {
		if in == known {
			return in, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownInstrument, s)
}

// Note is one timed event of a composition. Time is the offset in seconds from
// the start of the composition; Duration is a decimal number of seconds kept
// as a string to match the stored format.
type Note struct {
	ID       string  `json:"id"`
	Pitch    string  `json:"pitch"`
	Time     float64 `json:"time"`
	Duration string  `json:"duration"`
}

// NewNote builds a note with a fresh id, clamping duration into range and
// time to be non-negative.
func NewNote(pitch string, at, seconds float64) Note {
	return Note{
		ID:       NewID(),
		Pitch:    pitch,
		Time:     ClampTime(at),
		Duration: FormatDuration(ClampDuration(seconds)),
	}
}

// Clamped returns n with its time and duration brought into range. A
// malformed duration becomes MinDuration.
func (n Note) Clamped() Note {
	n.Time = ClampTime(n.Time)
	n.Duration = FormatDuration(n.Seconds())
	return n
}

// Seconds parses the duration, clamped to [MinDuration, MaxDuration].
// Malformed values read as MinDuration.
func (n Note) Seconds() float64 {
	d, err := ParseDuration(n.Duration)
	if err != nil {
		return MinDuration
	}
	return ClampDuration(d)
}

// End is the time the note stops sounding.
func (n Note) End() float64 {
	return n.Time + n.Seconds()
}

// NotePatch carries the fields updateNote replaces. Nil fields are kept.
type NotePatch struct {
	Pitch    *string  `json:"pitch,omitempty"`
	Time     *float64 `json:"time,omitempty"`
	Duration *string  `json:"duration,omitempty"`
}

func (p NotePatch) apply(n Note) Note {
	if p.Pitch != nil {
		n.Pitch = *p.Pitch
	}
	if p.Time != nil {
		n.Time = *p.Time
	}
	if p.Duration != nil {
		n.Duration = *p.Duration
	}
	return n
}

// Composition is a named note sequence plus the settings it was written with.
// Notes are kept in insertion order, not sorted by time.
type Composition struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Notes      []Note       `json:"notes"`
	Tempo      int          `json:"tempo"`
	Instrument Instrument   `json:"instrument"`
	Scale      theory.Scale `json:"scale"`
	Octave     int          `json:"octave"`
}

// New returns an empty composition with default settings, named after the
// creation time.
func New(now time.Time) Composition {
	return Composition{
		ID:         NewID(),
		Name:       "New composition " + now.Format("2006/01/02 15:04:05"),
		Notes:      []Note{},
		Tempo:      DefaultTempo,
		Instrument: Synth,
		Scale:      theory.Chromatic,
		Octave:     DefaultOctave,
	}
}

// AddNote appends a note.
func (c Composition) AddNote(n Note) Composition {
	return c.AddNotes(n)
}

// AddNotes appends notes in one batch.
func (c Composition) AddNotes(notes ...Note) Composition {
	out := make([]Note, 0, len(c.Notes)+len(notes))
	out = append(out, c.Notes...)
	out = append(out, notes...)
	c.Notes = out
	return c
}

// UpdateNote applies patch to the note with the given id. The second return
// reports whether a note matched; when it is false the composition is
// returned unchanged.
func (c Composition) UpdateNote(id string, patch NotePatch) (Composition, bool) {
	idx := c.IndexOf(id)
	if idx < 0 {
		return c, false
	}
	out := make([]Note, len(c.Notes))
	copy(out, c.Notes)
	out[idx] = patch.apply(out[idx])
	c.Notes = out
	return c, true
}

// DeleteNote removes the note with the given id.
func (c Composition) DeleteNote(id string) (Composition, bool) {
	idx := c.IndexOf(id)
	if idx < 0 {
		return c, false
	}
	out := make([]Note, 0, len(c.Notes)-1)
	out = append(out, c.Notes[:idx]...)
	out = append(out, c.Notes[idx+1:]...)
	c.Notes = out
	return c, true
}

// IndexOf returns the position of the note with the given id, or -1.
func (c Composition) IndexOf(id string) int {
	for i, n := range c.Notes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// Note looks a note up by id.
func (c Composition) Note(id string) (Note, bool) {
	if i := c.IndexOf(id); i >= 0 {
		return c.Notes[i], true
	}
	return Note{}, false
}

// EndTime is the latest end over all notes, 0 for an empty composition.
func (c Composition) EndTime() float64 {
	end := 0.0
	for _, n := range c.Notes {
		if e := n.End(); e > end {
			end = e
		}
	}
	return end
}

// Clone returns a copy that shares nothing with c.
func (c Composition) Clone() Composition {
	out := make([]Note, len(c.Notes))
	copy(out, c.Notes)
	c.Notes = out
	return c
}

// NewID returns a random identifier for notes and compositions.
func NewID() string {
	return uuid.NewString()
}

// ClampDuration bounds a duration in seconds to [MinDuration, MaxDuration].
// NaN reads as MinDuration.
func ClampDuration(seconds float64) float64 {
	if math.IsNaN(seconds) {
		return MinDuration
	}
	return min(max(seconds, MinDuration), MaxDuration)
}

// ClampTime bounds a note time to be non-negative and finite.
func ClampTime(at float64) float64 {
	if math.IsNaN(at) || math.IsInf(at, 0) || at < 0 {
		return 0
	}
	return at
}

// FormatDuration encodes seconds as the shortest decimal string.
func FormatDuration(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', -1, 64)
}

// ParseDuration decodes a decimal duration string. NaN and infinities are
// rejected.
func ParseDuration(s string) (float64, error) {
	d, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}
	return d, nil
}

// ClampTempo bounds a tempo to [MinTempo, MaxTempo].
func ClampTempo(bpm int) int {
	return min(max(bpm, MinTempo), MaxTempo)
}

// ClampOctave bounds an octave to [MinOctave, MaxOctave].
func ClampOctave(octave int) int {
	return min(max(octave, MinOctave), MaxOctave)
}
