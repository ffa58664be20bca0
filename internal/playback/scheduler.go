// Package playback replays a composition through an audio engine against a
// shared transport, reporting which pitch is sounding so a UI can highlight
// it.
package playback

import (
	"sync"

	"github.com/icco/padcomposer/internal/timeline"
	"github.com/icco/padcomposer/internal/transport"
	"github.com/sirupsen/logrus"
)

const (
	// ClickPitch and ClickLength shape the metronome click.
	ClickPitch  = "C7"
	ClickLength = 0.05
)

// Voice is the part of the audio engine the scheduler plays through.
type Voice interface {
	AttackRelease(pitch string, duration, at float64)
}

// Reporter receives playback state changes.
type Reporter interface {
	SetPlaying(playing bool)
	SetPlayingPitch(pitch string)
}

type nopReporter struct{}

func (nopReporter) SetPlaying(bool)        {}
func (nopReporter) SetPlayingPitch(string) {}

// Plan summarizes what Play scheduled.
type Plan struct {
	EndTime float64 `json:"endTime"`
	Notes   int     `json:"notes"`
	Clicks  int     `json:"clicks"`
	Events  int     `json:"events"`
}

// Scheduler owns the playback session. Only one Play is live at a time;
// callbacks left over from an earlier Play are ignored.
//
// Reports go out from one goroutine at a time. A change made while a report is
// being delivered, including one made by the reporter itself, is picked up
// before delivery ends, so the last report always matches the latest state.
type Scheduler struct {
	mu        sync.Mutex
	transport transport.Transport
	voice     Voice
	report    Reporter
	log       logrus.FieldLogger

	playing   bool
	pitch     string
	gen       uint64
	metronome bool

	flushing    bool
	dirty       bool
	delivered   bool
	lastPlaying bool
	lastPitch   string
}

// NewScheduler creates a stopped scheduler. report may be nil.
func NewScheduler(tr transport.Transport, v Voice, report Reporter, log logrus.FieldLogger) *Scheduler {
	if report == nil {
		report = nopReporter{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Scheduler{
		transport: tr,
		voice:     v,
		report:    report,
		log:       log.WithField("component", "playback"),
	}
}

// SetMetronome turns beat clicks on or off for the next Play.
func (s *Scheduler) SetMetronome(on bool) {
	s.mu.Lock()
	s.metronome = on
	s.mu.Unlock()
}

// Play schedules every note of c and starts the transport. Pending events
// from any earlier run are cancelled first.
func (s *Scheduler) Play(c timeline.Composition) Plan {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.transport.Stop()
	s.transport.Cancel()

	plan := Plan{EndTime: c.EndTime(), Notes: len(c.Notes)}
	for _, n := range c.Notes {
		s.transport.Schedule(s.noteOn(gen, n), n.Time)
		s.transport.Schedule(s.noteOff(gen), n.End())
		plan.Events += 2
	}
	if s.metronome && c.Tempo > 0 {
		beat := 60.0 / float64(c.Tempo)
		for i := 0; float64(i)*beat < plan.EndTime; i++ {
			s.transport.Schedule(s.click(gen), float64(i)*beat)
			plan.Clicks++
			plan.Events++
		}
	}
	s.transport.Schedule(s.terminal(gen), plan.EndTime)
	plan.Events++

	s.transport.Start()
	s.playing = true
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"composition": c.ID,
		"notes":       plan.Notes,
		"end":         plan.EndTime,
	}).Info("playback started")
	s.flush()
	return plan
}

// Stop halts the transport, drops all pending events and clears the
// sounding pitch.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.gen++
	wasPlaying := s.playing
	s.halt()
	s.mu.Unlock()

	if wasPlaying {
		s.log.Info("playback stopped")
	}
	s.flush()
}

// Toggle stops when playing and plays c otherwise. It reports whether
// playback is running afterwards.
func (s *Scheduler) Toggle(c timeline.Composition) bool {
	if s.Playing() {
		s.Stop()
		return false
	}
	s.Play(c)
	return true
}

func (s *Scheduler) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// Pitch is the pitch currently highlighted, "" when none.
func (s *Scheduler) Pitch() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pitch
}

// halt must be called with s.mu held.
func (s *Scheduler) halt() {
	s.transport.Stop()
	s.transport.Cancel()
	s.playing = false
	s.pitch = ""
}

func (s *Scheduler) noteOn(gen uint64, n timeline.Note) transport.Callback {
	return func(at float64) {
		if !s.setPitch(gen, n.Pitch) {
			return
		}
		s.voice.AttackRelease(n.Pitch, n.Seconds(), at)
	}
}

func (s *Scheduler) noteOff(gen uint64) transport.Callback {
	return func(float64) {
		s.setPitch(gen, "")
	}
}

func (s *Scheduler) click(gen uint64) transport.Callback {
	return func(at float64) {
		s.mu.Lock()
		live := gen == s.gen
		s.mu.Unlock()
		if live {
			s.voice.AttackRelease(ClickPitch, ClickLength, at)
		}
	}
}

func (s *Scheduler) terminal(gen uint64) transport.Callback {
	return func(float64) {
		s.mu.Lock()
		if gen != s.gen {
			s.mu.Unlock()
			return
		}
		s.halt()
		s.mu.Unlock()

		s.log.Info("playback finished")
		s.flush()
	}
}

// setPitch updates the highlighted pitch if gen is still current. It reports
// whether gen is still current once the change has been delivered.
func (s *Scheduler) setPitch(gen uint64, pitch string) bool {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return false
	}
	s.pitch = pitch
	s.mu.Unlock()
	s.flush()

	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.gen
}

// flush delivers the playing flag and pitch to the reporter when they differ
// from what was last delivered.
func (s *Scheduler) flush() {
	s.mu.Lock()
	s.dirty = true
	if s.flushing {
		s.mu.Unlock()
		return
	}
	s.flushing = true
	for s.dirty {
		s.dirty = false
		playing, pitch := s.playing, s.pitch
		sendPlaying := !s.delivered || playing != s.lastPlaying
		sendPitch := !s.delivered || pitch != s.lastPitch
		s.delivered, s.lastPlaying, s.lastPitch = true, playing, pitch
		s.mu.Unlock()

		if sendPlaying {
			s.report.SetPlaying(playing)
		}
		if sendPitch {
			s.report.SetPlayingPitch(pitch)
		}
		s.mu.Lock()
	}
	s.flushing = false
	s.mu.Unlock()
}
