// Package melody generates short random melodies from fixed melodic and
// rhythmic patterns.
package melody

import (
	"math/rand"

	"github.com/icco/padcomposer/internal/theory"
	"github.com/icco/padcomposer/internal/timeline"
)

const (
	// Length is the number of notes a generated melody has.
	Length = 8
	// Spacing is the gap in seconds between generated note starts.
	Spacing = 0.5
	// degrees is the size of the range the running scale degree wraps in.
	degrees = 7
)

// Patterns are the signed scale-degree steps a melody is built from.
var Patterns = [][]int{
	{0, 2, 4},  // triad up
	{4, 2, 0},  // triad down
	{0, 2, 1},  // neighbor motion
	{0, 4, 7},  // arpeggio
	{0, -1, 0}, // ornament
}

// Rhythm tokens, named after note values.
const (
	Half    = "2n"
	Quarter = "4n"
	Eighth  = "8n"
)

// Rhythms are the duration templates concatenated into a rhythm line.
var Rhythms = [][]string{
	{Quarter, Quarter, Quarter, Quarter},
	{Half, Quarter, Quarter},
	{Quarter, Eighth, Eighth, Quarter, Quarter},
}

var beats = map[string]float64{
	Half:    2,
	Quarter: 1,
	Eighth:  0.5,
}

// TokenSeconds converts a rhythm token to seconds at tempo. Unknown tokens
// count as a quarter note.
func TokenSeconds(token string, tempo int) float64 {
	b, ok := beats[token]
	if !ok {
		b = 1
	}
	if tempo <= 0 {
		tempo = timeline.DefaultTempo
	}
	return b * 60 / float64(tempo)
}

// Generator produces melodies. It is not safe for concurrent use because
// *rand.Rand is not.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator uses rng for every random choice.
func NewGenerator(rng *rand.Rand) *Generator {
	return &Generator{rng: rng}
}

// Degrees walks the scale from degree 0, applying randomly chosen patterns
// until length degrees are produced. The last pattern may be cut short.
// Every returned degree is within [0, 7).
func (g *Generator) Degrees(length int) []int {
	out := make([]int, 0, length)
	current := 0
	for len(out) < length {
		pattern := Patterns[g.rng.Intn(len(Patterns))]
		for _, step := range pattern {
			if len(out) >= length {
				break
			}
			current += step
			for current < 0 {
				current += degrees
			}
			current %= degrees
			out = append(out, current)
		}
	}
	return out
}

// Rhythm concatenates random rhythm templates and truncates to length.
func (g *Generator) Rhythm(length int) []string {
	out := make([]string, 0, length+5)
	for len(out) < length {
		out = append(out, Rhythms[g.rng.Intn(len(Rhythms))]...)
	}
	return out[:length]
}

// Melody builds Length notes in scale sc starting at octave, spaced Spacing
// seconds apart, with durations from the rhythm line at tempo.
func (g *Generator) Melody(sc theory.Scale, octave, tempo int) []timeline.Note {
	degs := g.Degrees(Length)
	rhythm := g.Rhythm(Length)
	notes := make([]timeline.Note, len(degs))
	for i, d := range degs {
		notes[i] = timeline.NewNote(
			theory.DegreePitch(sc, octave, d),
			float64(i)*Spacing,
			TokenSeconds(rhythm[i], tempo),
		)
	}
	return notes
}
