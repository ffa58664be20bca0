package export

import (
	"fmt"
	"io"
	"math"
	"path/filepath"
	"sort"

	"github.com/icco/padcomposer/internal/theory"
	"github.com/icco/padcomposer/internal/timeline"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const (
	ticksPerQuarterNote = 960
	midiChannel         = 0
	midiVelocity        = 100
)

type midiEvent struct {
	tick uint32
	off  bool
	key  uint8
}

// MIDI renders c as a two track Standard MIDI File: a tempo track and one
// note track on channel 0 with the instrument's General MIDI program.
// Notes with pitches outside the MIDI range are skipped.
func MIDI(c timeline.Composition) (*smf.SMF, error) {
	if len(c.Notes) == 0 {
		return nil, ErrNoNotes
	}
	tempo := timeline.ClampTempo(c.Tempo)
	ticksPerSecond := float64(ticksPerQuarterNote) * float64(tempo) / 60
	toTicks := func(seconds float64) uint32 {
		return uint32(math.Round(seconds * ticksPerSecond)) //nolint:gosec // times are non-negative and bounded
	}

	events := make([]midiEvent, 0, 2*len(c.Notes))
	for _, n := range c.Notes {
		key, err := theory.MIDINote(n.Pitch)
		if err != nil {
			continue
		}
		start := toTicks(n.Time)
		end := toTicks(n.End())
		if end <= start {
			end = start + 1
		}
		events = append(events,
			midiEvent{tick: start, key: key},
			midiEvent{tick: end, off: true, key: key})
	}
	// Note offs sort before note ons on the same tick so repeated pitches
	// retrigger.
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return events[i].off && !events[j].off
	})

	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(ticksPerQuarterNote)

	var track0 smf.Track
	track0.Add(0, smf.MetaMeter(4, 4))
	track0.Add(0, smf.MetaTempo(float64(tempo)))
	track0.Close(0)
	if err := sm.Add(track0); err != nil {
		return nil, fmt.Errorf("error adding tempo track: %w", err)
	}

	var track smf.Track
	track.Add(0, midi.ProgramChange(midiChannel, c.Instrument.Program()))
	var lastTick uint32
	for _, ev := range events {
		delta := ev.tick - lastTick
		if ev.off {
			track.Add(delta, midi.NoteOff(midiChannel, ev.key))
		} else {
			track.Add(delta, midi.NoteOn(midiChannel, ev.key, midiVelocity))
		}
		lastTick = ev.tick
	}
	track.Close(0)
	if err := sm.Add(track); err != nil {
		return nil, fmt.Errorf("error adding note track: %w", err)
	}
	return sm, nil
}

// EncodeMIDI writes c as a Standard MIDI File to w.
func EncodeMIDI(w io.Writer, c timeline.Composition) error {
	sm, err := MIDI(c)
	if err != nil {
		return err
	}
	if _, err := sm.WriteTo(w); err != nil {
		return fmt.Errorf("error writing MIDI file: %w", err)
	}
	return nil
}

// WriteMIDI writes <name>.mid into dir and returns its path.
func WriteMIDI(dir string, c timeline.Composition) (string, error) {
	if len(c.Notes) == 0 {
		return "", ErrNoNotes
	}
	path := filepath.Join(dir, FileName(c.Name, ".mid"))
	if err := writeFile(path, func(w io.Writer) error { return EncodeMIDI(w, c) }); err != nil {
		return "", err
	}
	return path, nil
}

// ImportMIDI reads the notes of a Standard MIDI File, along with the first
// tempo it declares (120 when there is none). Every track is merged, and
// overlapping notes of the same key end at the first note off.
func ImportMIDI(r io.Reader) ([]timeline.Note, int, error) {
	rd, err := smf.ReadFrom(r)
	if err != nil {
		return nil, 0, fmt.Errorf("reading MIDI file: %w", err)
	}
	ticks, ok := rd.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, 0, fmt.Errorf("unsupported MIDI time format %v", rd.TimeFormat)
	}

	bpm := float64(timeline.DefaultTempo)
	if changes := rd.TempoChanges(); len(changes) > 0 && changes[0].BPM > 0 {
		bpm = changes[0].BPM
	}
	ticksPerMinute := bpm * float64(uint16(ticks))
	toSeconds := func(t uint32) float64 { return float64(t) * 60 / ticksPerMinute }

	type open struct {
		tick  uint32
		index int
	}
	var (
		notes  []timeline.Note
		starts []uint32
	)
	for _, track := range rd.Tracks {
		var (
			current uint32
			active  = map[uint8]open{}
		)
		end := func(key uint8) {
			o, ok := active[key]
			if !ok {
				return
			}
			delete(active, key)
			seconds := toSeconds(current - o.tick)
			notes[o.index].Duration = timeline.FormatDuration(timeline.ClampDuration(seconds))
		}
		for _, ev := range track {
			current += ev.Delta
			var channel, key, velocity uint8
			switch {
			case ev.Message.GetNoteOn(&channel, &key, &velocity) && velocity > 0:
				end(key)
				active[key] = open{tick: current, index: len(notes)}
				at := toSeconds(current)
				notes = append(notes, timeline.NewNote(theory.MIDINoteName(key), at, timeline.MinDuration))
				starts = append(starts, current)
			case ev.Message.GetNoteOn(&channel, &key, &velocity),
				ev.Message.GetNoteOff(&channel, &key, &velocity):
				end(key)
			}
		}
	}

	// Merged tracks are ordered by start.
	order := make([]int, len(notes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return starts[order[i]] < starts[order[j]] })
	sorted := make([]timeline.Note, len(notes))
	for i, idx := range order {
		sorted[i] = notes[idx]
	}
	return sorted, timeline.ClampTempo(int(math.Round(bpm))), nil
}
