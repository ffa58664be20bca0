// Package audio provides the tone engines the composer plays through.
//
// An Engine is monophonic for live playing (Attack/Release) and polyphonic for
// scheduled notes (AttackRelease), mirroring a simple synth voice on a shared
// audio clock.
package audio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/icco/padcomposer/internal/timeline"
	"github.com/sirupsen/logrus"
)

// Engine is the capability the recorder and the scheduler drive.
type Engine interface {
	// Attack starts the live voice on pitch, replacing any live voice.
	Attack(pitch string)
	// Release ends the live voice.
	Release()
	// AttackRelease plays pitch for duration seconds starting at the engine
	// time at. Times in the past start immediately.
	AttackRelease(pitch string, duration, at float64)
	// Now is the engine's monotonic clock in seconds.
	Now() float64
	// SetInstrument changes the tone used for new notes.
	SetInstrument(in timeline.Instrument)
	Close() error
}

// Backend names an Engine implementation.
type Backend string

const (
	BackendSynth  Backend = "synth"
	BackendMIDI   Backend = "midi"
	BackendSilent Backend = "silent"
)

var ErrUnknownBackend = errors.New("unknown audio backend")

// ParseBackend validates a backend name. Empty selects the synth.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(s); b {
	case "":
		return BackendSynth, nil
	case BackendSynth, BackendMIDI, BackendSilent:
		return b, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, s)
	}
}

// Options select and configure an engine.
type Options struct {
	Backend  Backend
	MIDIPort string
	Log      logrus.FieldLogger
}

// Open creates the engine named by opts.Backend.
func Open(opts Options) (Engine, error) {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	switch opts.Backend {
	case BackendSynth, "":
		s, err := NewSynth(log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize audio: %w", err)
		}
		return s, nil
	case BackendMIDI:
		m, err := NewMIDIEngine(opts.MIDIPort, log)
		if err != nil {
			return nil, fmt.Errorf("failed to open MIDI output: %w", err)
		}
		return m, nil
	case BackendSilent:
		return NewSilent(log), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

// Silent is an engine that only keeps time and logs what it would play.
type Silent struct {
	mu         sync.Mutex
	start      time.Time
	instrument timeline.Instrument
	live       string
	log        logrus.FieldLogger
}

func NewSilent(log logrus.FieldLogger) *Silent {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Silent{start: time.Now(), instrument: timeline.Synth, log: log.WithField("engine", "silent")}
}

func (s *Silent) Attack(pitch string) {
	s.mu.Lock()
	s.live = pitch
	s.mu.Unlock()
	s.log.WithField("pitch", pitch).Debug("attack")
}

func (s *Silent) Release() {
	s.mu.Lock()
	pitch := s.live
	s.live = ""
	s.mu.Unlock()
	s.log.WithField("pitch", pitch).Debug("release")
}

func (s *Silent) AttackRelease(pitch string, duration, at float64) {
	s.log.WithFields(logrus.Fields{"pitch": pitch, "duration": duration, "at": at}).Debug("attack-release")
}

func (s *Silent) Now() float64 {
	return time.Since(s.start).Seconds()
}

func (s *Silent) SetInstrument(in timeline.Instrument) {
	s.mu.Lock()
	s.instrument = in
	s.mu.Unlock()
}

func (s *Silent) Close() error { return nil }
