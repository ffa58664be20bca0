// Package theory holds the scale tables and pitch naming shared by the pad
// layout, the melody generator and the audio engines.
package theory

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Scale identifies one of the interval tables below.
type Scale string

const (
	Chromatic  Scale = "chromatic"
	Major      Scale = "major"
	Minor      Scale = "minor"
	Dorian     Scale = "dorian"
	Phrygian   Scale = "phrygian"
	Lydian     Scale = "lydian"
	Mixolydian Scale = "mixolydian"
)

const notesPerOctave = 12

// ErrUnknownScale is returned by ParseScale for tags outside the table.
var ErrUnknownScale = errors.New("unknown scale")

// ErrInvalidPitch is returned when a pitch string cannot be parsed.
var ErrInvalidPitch = errors.New("invalid pitch")

var noteNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var intervals = map[Scale][]int{
	Chromatic:  {0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
	Major:      {0, 2, 4, 5, 7, 9, 11},
	Minor:      {0, 2, 3, 5, 7, 8, 10},
	Dorian:     {0, 2, 3, 5, 7, 9, 10},
	Phrygian:   {0, 1, 3, 5, 7, 8, 10},
	Lydian:     {0, 2, 4, 6, 7, 9, 11},
	Mixolydian: {0, 2, 4, 5, 7, 9, 10},
}

// Scales lists every scale in display order.
var Scales = []Scale{Chromatic, Major, Minor, Dorian, Phrygian, Lydian, Mixolydian}

// ParseScale validates a scale tag.
func ParseScale(s string) (Scale, error) {
	sc := Scale(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := intervals[sc]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownScale, s)
	}
	return sc, nil
}

// Intervals returns a copy of the scale's semitone table. Unknown scales fall
// back to chromatic.
func Intervals(sc Scale) []int {
	table, ok := intervals[sc]
	if !ok {
		table = intervals[Chromatic]
	}
	out := make([]int, len(table))
	copy(out, table)
	return out
}

// PitchName renders a semitone offset above C of the given octave as a pitch
// string, carrying into higher octaves when the offset is 12 or more.
func PitchName(octave, semitone int) string {
	carry := semitone / notesPerOctave
	idx := semitone % notesPerOctave
	if idx < 0 {
		idx += notesPerOctave
		carry--
	}
	return fmt.Sprintf("%s%d", noteNames[idx], octave+carry)
}

// DegreePitch maps a scale degree to a pitch. Degrees past the end of the
// table continue into the next octave.
func DegreePitch(sc Scale, octave, degree int) string {
	table, ok := intervals[sc]
	if !ok {
		table = intervals[Chromatic]
	}
	n := len(table)
	octaves := degree / n
	d := degree % n
	if d < 0 {
		d += n
		octaves--
	}
	return PitchName(octave, table[d]+octaves*notesPerOctave)
}

// PadPitches returns the pitches laid out on the pad grid for a scale and
// octave: one pad per interval of the table.
func PadPitches(sc Scale, octave int) []string {
	table := Intervals(sc)
	pads := make([]string, len(table))
	for i, iv := range table {
		pads[i] = PitchName(octave, iv)
	}
	return pads
}

// ParsePitch splits a pitch such as "C#4" into its semitone within the octave
// and the octave number.
func ParsePitch(pitch string) (semitone, octave int, err error) {
	p := strings.TrimSpace(pitch)
	if p == "" {
		return 0, 0, fmt.Errorf("%w: empty", ErrInvalidPitch)
	}
	nameLen := 1
	if len(p) > 1 && (p[1] == '#' || p[1] == 'b') {
		nameLen = 2
	}
	name := strings.ToUpper(p[:1]) + p[1:nameLen]
	semitone = -1
	for i, n := range noteNames {
		if n == name {
			semitone = i
			break
		}
	}
	if semitone < 0 && nameLen == 2 && p[1] == 'b' {
		for i, n := range noteNames {
			if n == strings.ToUpper(p[:1]) {
				semitone = (i + notesPerOctave - 1) % notesPerOctave
				if i == 0 {
					// Cb belongs to the octave below
					octave--
				}
				break
			}
		}
	}
	if semitone < 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidPitch, pitch)
	}
	oct, err := strconv.Atoi(p[nameLen:])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidPitch, pitch)
	}
	return semitone, octave + oct, nil
}

// MIDINote converts a pitch string to a MIDI note number (C4 = 60).
func MIDINote(pitch string) (uint8, error) {
	semitone, octave, err := ParsePitch(pitch)
	if err != nil {
		return 0, err
	}
	n := (octave+1)*notesPerOctave + semitone
	if n < 0 || n > 127 {
		return 0, fmt.Errorf("%w: %q out of MIDI range", ErrInvalidPitch, pitch)
	}
	return uint8(n), nil //nolint:gosec // bounded above
}

// MIDINoteName converts a MIDI note number back to a pitch string.
func MIDINoteName(note uint8) string {
	octave := int(note/notesPerOctave) - 1
	return fmt.Sprintf("%s%d", noteNames[note%notesPerOctave], octave)
}

// Frequency returns the equal-tempered frequency of a MIDI note, A4 = 440 Hz.
func Frequency(note uint8) float64 {
	return 440.0 * math.Pow(2.0, (float64(note)-69.0)/12.0)
}
