package transport

import "sync"

// Manual is a transport whose position only moves when Advance is called. It
// fires events synchronously from Advance, in time order, and is used for
// tests and offline rendering.
type Manual struct {
	mu      sync.Mutex
	q       queue
	seq     uint64
	running bool
	pos     float64
}

// NewManual returns a stopped manual transport.
func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) Schedule(cb Callback, offset float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.q.add(&event{offset: offset, seq: m.seq, cb: cb})
}

func (m *Manual) Start() {
	m.mu.Lock()
	m.running = true
	m.mu.Unlock()
}

func (m *Manual) Stop() {
	m.mu.Lock()
	m.running = false
	m.pos = 0
	m.mu.Unlock()
}

func (m *Manual) Cancel() {
	m.mu.Lock()
	m.q = nil
	m.mu.Unlock()
}

func (m *Manual) Position() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pos
}

func (m *Manual) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Pending returns the offsets of all queued events in firing order.
func (m *Manual) Pending() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.q.offsets()
}

// Advance moves the position forward by d seconds, firing every event that
// falls due on the way. It returns the number of callbacks run. A stopped
// transport does not move.
func (m *Manual) Advance(d float64) int {
	m.mu.Lock()
	target := m.pos + d
	m.mu.Unlock()

	fired := 0
	for {
		m.mu.Lock()
		if !m.running || m.q.Len() == 0 || m.q[0].offset > target {
			if m.running {
				m.pos = target
			}
			m.mu.Unlock()
			return fired
		}
		ev := m.q.pop()
		if ev.offset > m.pos {
			m.pos = ev.offset
		}
		m.mu.Unlock()

		ev.cb(ev.offset)
		fired++
	}
}
