package audio

import (
	"math"
	"sort"
	"sync"

	"github.com/ebitengine/oto/v3"
	"github.com/icco/padcomposer/internal/theory"
	"github.com/icco/padcomposer/internal/timeline"
	"github.com/sirupsen/logrus"
)

const (
	sampleRate   = 44100
	channelCount = 2 // stereo
	bitDepth     = 2 // 16-bit
	maxVoices    = 32
)

// WaveType represents different oscillator wave shapes
type WaveType int

const (
	WaveSine WaveType = iota
	WaveSquare
	WaveSawtooth
	WaveTriangle
)

// tone describes how an instrument tag sounds: its wave and envelope rates,
// all per sample.
type tone struct {
	wave    WaveType
	attack  float64 // envelope increment while rising
	decay   float64 // multiplier while held after the attack peak
	release float64 // multiplier once released
}

var tones = map[timeline.Instrument]tone{
	timeline.Synth:    {wave: WaveSine, attack: 0.001, decay: 1, release: 0.9995},
	timeline.Guitar:   {wave: WaveSawtooth, attack: 0.01, decay: 0.99996, release: 0.999},
	timeline.Electric: {wave: WaveSquare, attack: 0.005, decay: 0.99999, release: 0.9993},
	timeline.Piano:    {wave: WaveTriangle, attack: 0.02, decay: 0.99997, release: 0.9992},
	timeline.Violin:   {wave: WaveSawtooth, attack: 0.0002, decay: 1, release: 0.9997},
	timeline.Flute:    {wave: WaveSine, attack: 0.0004, decay: 1, release: 0.9996},
}

// voice represents a single playing note
type voice struct {
	id        uint64
	frequency float64
	phase     float64
	envelope  float64
	peaked    bool
	releasing bool
	active    bool
	tone      tone
}

// pending is a voice start or release due at a sample frame.
type pending struct {
	frame int64
	on    bool
	id    uint64
	freq  float64
}

// Synth is a small polyphonic synthesizer rendering through oto. Its clock is
// the number of frames rendered so far, which makes AttackRelease sample
// accurate relative to Now.
type Synth struct {
	mu           sync.Mutex
	otoCtx       *oto.Context
	player       *oto.Player
	voices       []*voice
	queue        []pending
	frame        int64
	nextID       uint64
	live         uint64 // id of the voice started by Attack, 0 if none
	masterVolume float64
	tone         tone
	log          logrus.FieldLogger
}

// NewSynth opens the default audio device and starts rendering.
func NewSynth(log logrus.FieldLogger) (*Synth, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channelCount,
		Format:       oto.FormatSignedInt16LE,
	}

	otoCtx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-readyChan

	s := newSynth(log)
	s.otoCtx = otoCtx
	s.player = otoCtx.NewPlayer(&synthReader{synth: s})
	s.player.Play()
	return s, nil
}

func newSynth(log logrus.FieldLogger) *Synth {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Synth{
		masterVolume: 0.3,
		tone:         tones[timeline.Synth],
		log:          log.WithField("engine", "synth"),
	}
}

// synthReader implements io.Reader for continuous audio generation
type synthReader struct {
	synth *Synth
}

func (r *synthReader) Read(buf []byte) (int, error) {
	r.synth.render(buf)
	return len(buf), nil
}

func (s *Synth) render(buf []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	numSamples := len(buf) / (channelCount * bitDepth)
	for i := 0; i < numSamples; i++ {
		s.dispatchLocked()

		var sample float64
		for _, v := range s.voices {
			if !v.active {
				continue
			}
			sample += generateWave(v.tone.wave, v.phase) * v.envelope * 0.2

			v.phase += v.frequency / sampleRate
			if v.phase >= 1.0 {
				v.phase -= 1.0
			}

			switch {
			case v.releasing:
				v.envelope *= v.tone.release
				if v.envelope < 0.001 {
					v.active = false
				}
			case !v.peaked:
				v.envelope += v.tone.attack
				if v.envelope >= 1.0 {
					v.envelope = 1.0
					v.peaked = true
				}
			default:
				v.envelope *= v.tone.decay
			}
		}

		sample *= s.masterVolume
		if sample > 1.0 {
			sample = 1.0
		} else if sample < -1.0 {
			sample = -1.0
		}

		sampleInt := int16(sample * 32767)
		idx := i * channelCount * bitDepth
		buf[idx] = byte(sampleInt)
		buf[idx+1] = byte(sampleInt >> 8)
		buf[idx+2] = byte(sampleInt)
		buf[idx+3] = byte(sampleInt >> 8)
		s.frame++
	}
}

// dispatchLocked applies queued starts and releases due at the current frame.
func (s *Synth) dispatchLocked() {
	n := 0
	for n < len(s.queue) && s.queue[n].frame <= s.frame {
		p := s.queue[n]
		if p.on {
			s.startLocked(p.id, p.freq)
		} else {
			s.releaseLocked(p.id)
		}
		n++
	}
	if n > 0 {
		s.queue = s.queue[n:]
	}
}

func generateWave(waveType WaveType, phase float64) float64 {
	switch waveType {
	case WaveSine:
		return math.Sin(2 * math.Pi * phase)
	case WaveSquare:
		if phase < 0.5 {
			return 0.8
		}
		return -0.8
	case WaveSawtooth:
		return 2*phase - 1
	case WaveTriangle:
		if phase < 0.5 {
			return 4*phase - 1
		}
		return 3 - 4*phase
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}

func (s *Synth) frequency(pitch string) (float64, bool) {
	note, err := theory.MIDINote(pitch)
	if err != nil {
		s.log.WithError(err).Warn("cannot play pitch")
		return 0, false
	}
	return theory.Frequency(note), true
}

// startLocked finds an inactive voice or steals the oldest one.
func (s *Synth) startLocked(id uint64, freq float64) {
	var v *voice
	for _, cand := range s.voices {
		if !cand.active {
			v = cand
			break
		}
	}
	if v == nil {
		if len(s.voices) < maxVoices {
			v = &voice{}
			s.voices = append(s.voices, v)
		} else {
			v = s.voices[0]
		}
	}
	*v = voice{id: id, frequency: freq, active: true, tone: s.tone}
}

func (s *Synth) releaseLocked(id uint64) {
	for _, v := range s.voices {
		if v.active && v.id == id && !v.releasing {
			v.releasing = true
			return
		}
	}
}

func (s *Synth) enqueueLocked(p pending) {
	i := sort.Search(len(s.queue), func(i int) bool { return s.queue[i].frame > p.frame })
	s.queue = append(s.queue, pending{})
	copy(s.queue[i+1:], s.queue[i:])
	s.queue[i] = p
}

func (s *Synth) Attack(pitch string) {
	freq, ok := s.frequency(pitch)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live != 0 {
		s.releaseLocked(s.live)
	}
	s.nextID++
	s.live = s.nextID
	s.startLocked(s.live, freq)
}

func (s *Synth) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live != 0 {
		s.releaseLocked(s.live)
		s.live = 0
	}
}

func (s *Synth) AttackRelease(pitch string, duration, at float64) {
	freq, ok := s.frequency(pitch)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	start := int64(at * sampleRate)
	if start < s.frame {
		start = s.frame
	}
	s.nextID++
	s.enqueueLocked(pending{frame: start, on: true, id: s.nextID, freq: freq})
	s.enqueueLocked(pending{frame: start + int64(duration*sampleRate), id: s.nextID})
}

// Now returns the number of seconds rendered so far.
func (s *Synth) Now() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return float64(s.frame) / sampleRate
}

func (s *Synth) SetInstrument(in timeline.Instrument) {
	t, ok := tones[in]
	if !ok {
		t = tones[timeline.Synth]
	}
	s.mu.Lock()
	s.tone = t
	s.mu.Unlock()
}

// SetVolume sets the master volume (0.0 - 1.0)
func (s *Synth) SetVolume(vol float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.masterVolume = min(max(vol, 0), 1)
}

// AllNotesOff releases every sounding voice and drops queued notes.
func (s *Synth) AllNotesOff() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = nil
	s.live = 0
	for _, v := range s.voices {
		if v.active {
			v.releasing = true
		}
	}
}

// Close shuts down the synthesizer
func (s *Synth) Close() error {
	s.AllNotesOff()
	// As of oto v3.4, player.Close() is deprecated and no longer needed.
	if s.player != nil {
		s.player.Pause()
	}
	return nil
}

func (s *Synth) activeVoices() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.voices {
		if v.active {
			n++
		}
	}
	return n
}
