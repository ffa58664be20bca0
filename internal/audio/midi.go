package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/icco/padcomposer/internal/theory"
	"github.com/icco/padcomposer/internal/timeline"
	"github.com/sirupsen/logrus"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

const (
	midiChannel  = 0
	midiVelocity = 100
)

// OutPorts lists the names of the available MIDI outputs. A driver must be
// registered by the binary, see cmd.
func OutPorts() []string {
	var names []string
	for _, out := range midi.GetOutPorts() {
		names = append(names, out.String())
	}
	return names
}

// MIDIEngine sends notes to an external MIDI output. Scheduled notes are
// timed with the wall clock since the output has no clock of its own.
type MIDIEngine struct {
	mu       sync.Mutex
	outPort  drivers.Out
	sendFunc func(msg midi.Message) error
	start    time.Time
	live     uint8
	hasLive  bool
	timers   map[*time.Timer]struct{}
	log      logrus.FieldLogger
}

// NewMIDIEngine opens the named output port, or the first one when name is
// empty.
func NewMIDIEngine(name string, log logrus.FieldLogger) (*MIDIEngine, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	var (
		out drivers.Out
		err error
	)
	if name == "" {
		out, err = midi.OutPort(0)
	} else {
		out, err = midi.FindOutPort(name)
	}
	if err != nil {
		return nil, fmt.Errorf("no MIDI output %q: %w", name, err)
	}
	send, err := midi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("failed to open port %s: %w", out.String(), err)
	}
	e := newMIDIEngine(send, log)
	e.outPort = out
	e.log = e.log.WithField("port", out.String())
	return e, nil
}

func newMIDIEngine(send func(midi.Message) error, log logrus.FieldLogger) *MIDIEngine {
	return &MIDIEngine{
		sendFunc: send,
		start:    time.Now(),
		timers:   make(map[*time.Timer]struct{}),
		log:      log.WithField("engine", "midi"),
	}
}

func (e *MIDIEngine) send(msg midi.Message) {
	if err := e.sendFunc(msg); err != nil {
		e.log.WithError(err).Warn("failed to send MIDI message")
	}
}

func (e *MIDIEngine) note(pitch string) (uint8, bool) {
	n, err := theory.MIDINote(pitch)
	if err != nil {
		e.log.WithError(err).Warn("cannot play pitch")
		return 0, false
	}
	return n, true
}

func (e *MIDIEngine) Attack(pitch string) {
	n, ok := e.note(pitch)
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.hasLive {
		e.send(midi.NoteOff(midiChannel, e.live))
	}
	e.live, e.hasLive = n, true
	e.send(midi.NoteOn(midiChannel, n, midiVelocity))
}

func (e *MIDIEngine) Release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.hasLive {
		e.send(midi.NoteOff(midiChannel, e.live))
		e.hasLive = false
	}
}

func (e *MIDIEngine) AttackRelease(pitch string, duration, at float64) {
	n, ok := e.note(pitch)
	if !ok {
		return
	}
	delay := time.Duration((at - e.Now()) * float64(time.Second))
	if delay < 0 {
		delay = 0
	}
	hold := time.Duration(duration * float64(time.Second))
	e.after(delay, func() { e.send(midi.NoteOn(midiChannel, n, midiVelocity)) })
	e.after(delay+hold, func() { e.send(midi.NoteOff(midiChannel, n)) })
}

func (e *MIDIEngine) after(d time.Duration, fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		e.mu.Lock()
		_, live := e.timers[t]
		delete(e.timers, t)
		e.mu.Unlock()
		if live {
			fn()
		}
	})
	e.timers[t] = struct{}{}
}

func (e *MIDIEngine) Now() float64 {
	return time.Since(e.start).Seconds()
}

func (e *MIDIEngine) SetInstrument(in timeline.Instrument) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.send(midi.ProgramChange(midiChannel, in.Program()))
}

// Close stops pending notes, sends all notes off and closes the port.
func (e *MIDIEngine) Close() error {
	e.mu.Lock()
	for t := range e.timers {
		t.Stop()
	}
	e.timers = make(map[*time.Timer]struct{})
	e.send(midi.ControlChange(midiChannel, 123, 0)) // all notes off
	e.hasLive = false
	out := e.outPort
	e.outPort = nil
	e.mu.Unlock()

	if out != nil {
		if err := out.Close(); err != nil {
			return fmt.Errorf("failed to close MIDI port: %w", err)
		}
	}
	return nil
}
