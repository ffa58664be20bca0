// Package recording turns pad presses into timeline notes.
//
// A Session moves Idle → Armed → NoteActive → Armed → … → Idle. Press
// durations are measured on the wall clock; note start times are measured on
// the engine clock relative to the moment recording was first armed for the
// current composition.
package recording

import (
	"sync"
	"time"

	"github.com/icco/padcomposer/internal/timeline"
	"github.com/sirupsen/logrus"
)

// Voice is the part of the audio engine a session plays through.
type Voice interface {
	Attack(pitch string)
	Release()
	Now() float64
}

// Timeline receives recorded notes.
type Timeline interface {
	// EnsureComposition returns the current composition id, creating an
	// empty composition first when there is none.
	EnsureComposition() string
	AddNote(n timeline.Note)
}

// State is a snapshot of the session for display.
type State struct {
	Recording   bool   `json:"recording"`
	ActivePitch string `json:"activePitch,omitempty"`
}

// Session is the recorder. It is safe for concurrent use.
type Session struct {
	mu       sync.Mutex
	voice    Voice
	timeline Timeline
	wall     func() time.Time
	log      logrus.FieldLogger

	recording    bool
	anchorID     string // composition the start clock belongs to
	sessionStart float64

	active     string
	pressStart time.Time
}

// NewSession creates an idle session. wall defaults to time.Now.
func NewSession(v Voice, tl Timeline, wall func() time.Time, log logrus.FieldLogger) *Session {
	if wall == nil {
		wall = time.Now
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Session{
		voice:    v,
		timeline: tl,
		wall:     wall,
		log:      log.WithField("component", "recording"),
	}
}

// Start arms the session. The start clock is captured only the first time a
// given composition is armed, so pausing and resuming keeps note times on one
// axis.
func (s *Session) Start() {
	id := s.timeline.EnsureComposition()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recording = true
	if id != s.anchorID {
		s.anchorID = id
		s.sessionStart = s.voice.Now()
	}
	s.log.WithFields(logrus.Fields{"composition": id, "start": s.sessionStart}).Info("recording armed")
}

// Stop disarms the session. A press already in progress still finalizes on
// release.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recording {
		s.log.Info("recording stopped")
	}
	s.recording = false
}

// Toggle flips between Start and Stop and reports the new recording state.
func (s *Session) Toggle() bool {
	if s.Recording() {
		s.Stop()
		return false
	}
	s.Start()
	return true
}

func (s *Session) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording
}

// PressStart sounds pitch and makes it the active note. Recording is
// monophonic: a second press replaces the first.
func (s *Session) PressStart(pitch string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pressStart = s.wall()
	s.active = pitch
	s.voice.Attack(pitch)
}

// PressEnd releases the active note. When recording it appends the note to
// the timeline and returns it.
func (s *Session) PressEnd() (timeline.Note, bool) {
	s.mu.Lock()
	if s.active == "" {
		s.mu.Unlock()
		return timeline.Note{}, false
	}
	pitch := s.active
	s.active = ""

	held := float64(s.wall().Sub(s.pressStart).Milliseconds()) / 1000
	s.voice.Release()
	if !s.recording {
		s.mu.Unlock()
		return timeline.Note{}, false
	}
	n := timeline.NewNote(pitch, s.voice.Now()-s.sessionStart, held)
	s.mu.Unlock()

	// AddNote notifies observers, which may call Snapshot.
	s.timeline.AddNote(n)
	s.log.WithFields(logrus.Fields{"pitch": n.Pitch, "time": n.Time, "duration": n.Duration}).Debug("note recorded")
	return n, true
}

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{Recording: s.recording, ActivePitch: s.active}
}
