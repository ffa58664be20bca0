package transport

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultLookahead is how far ahead of its due time an event is handed to its
// callback.
const DefaultLookahead = 50 * time.Millisecond

// Source is a monotonic clock reading in seconds.
type Source func() float64

// WallSource returns a Source counting seconds since the call.
func WallSource() Source {
	start := time.Now()
	return func() float64 {
		return time.Since(start).Seconds()
	}
}

// Clock is a real-time transport. Callbacks run one at a time on the goroutine
// that called Run, never while the clock's lock is held, so a callback may
// schedule, stop or cancel freely.
type Clock struct {
	mu        sync.Mutex
	q         queue
	seq       uint64
	now       Source
	running   bool
	origin    float64
	lookahead float64
	wake      chan struct{}
	log       logrus.FieldLogger
}

// NewClock creates a stopped clock reading time from now. A nil source uses
// the wall clock.
func NewClock(now Source, log logrus.FieldLogger) *Clock {
	if now == nil {
		now = WallSource()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Clock{
		now:       now,
		lookahead: DefaultLookahead.Seconds(),
		wake:      make(chan struct{}, 1),
		log:       log.WithField("component", "transport"),
	}
}

// SetLookahead changes how early events are dispatched.
func (c *Clock) SetLookahead(d time.Duration) {
	c.mu.Lock()
	c.lookahead = d.Seconds()
	c.mu.Unlock()
	c.poke()
}

func (c *Clock) Schedule(cb Callback, offset float64) {
	c.mu.Lock()
	c.seq++
	c.q.add(&event{offset: offset, seq: c.seq, cb: cb})
	c.mu.Unlock()
	c.poke()
}

func (c *Clock) Start() {
	c.mu.Lock()
	if !c.running {
		c.running = true
		c.origin = c.now()
		c.log.WithField("origin", c.origin).Debug("transport started")
	}
	c.mu.Unlock()
	c.poke()
}

func (c *Clock) Stop() {
	c.mu.Lock()
	if c.running {
		c.running = false
		c.log.Debug("transport stopped")
	}
	c.mu.Unlock()
	c.poke()
}

func (c *Clock) Cancel() {
	c.mu.Lock()
	dropped := c.q.Len()
	c.q = nil
	c.mu.Unlock()
	if dropped > 0 {
		c.log.WithField("dropped", dropped).Debug("transport events cancelled")
	}
	c.poke()
}

func (c *Clock) Position() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return 0
	}
	return c.now() - c.origin
}

func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Now reads the underlying source.
func (c *Clock) Now() float64 {
	return c.now()
}

func (c *Clock) poke() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// next pops the next due event. When nothing is due it returns how long to
// wait, or a negative wait when there is nothing to wait for.
func (c *Clock) next() (ev *event, at float64, wait time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running || c.q.Len() == 0 {
		return nil, 0, -1
	}
	pos := c.now() - c.origin
	head := c.q[0]
	if head.offset <= pos+c.lookahead {
		c.q.pop()
		return head, c.origin + head.offset, 0
	}
	return nil, 0, time.Duration((head.offset - pos - c.lookahead) * float64(time.Second))
}

// Run dispatches events until ctx is done.
func (c *Clock) Run(ctx context.Context) error {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		ev, at, wait := c.next()
		if ev != nil {
			ev.cb(at)
			continue
		}

		var fire <-chan time.Time
		if wait >= 0 {
			timer.Reset(wait)
			fire = timer.C
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.wake:
		case <-fire:
		}
		timer.Stop()
	}
}
