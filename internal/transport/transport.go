// Package transport provides the shared clock that timed playback events are
// scheduled against.
//
// Event times are offsets in seconds from the transport's start. When an event
// fires its callback receives the absolute time on the underlying clock source
// at which the event is due, so an audio engine sharing that source can start
// the sound exactly on time even if the callback runs a little early or late.
package transport

import (
	"container/heap"
	"math"
)

// Callback is invoked when a scheduled event fires.
type Callback func(at float64)

// Transport is a schedulable clock. Events cannot be withdrawn one by one;
// Cancel is the only way to drop them.
type Transport interface {
	// Schedule registers cb to fire at offset seconds after start. A negative
	// or NaN offset fires at the start.
	Schedule(cb Callback, offset float64)
	// Start begins moving the position forward from zero.
	Start()
	// Stop halts the transport and rewinds its position to zero. Pending
	// events stay queued.
	Stop()
	// Cancel drops every pending event at once.
	Cancel()
	// Position is the number of seconds since Start, 0 when stopped.
	Position() float64
	// Running reports whether the transport has been started.
	Running() bool
}

type event struct {
	offset float64
	seq    uint64
	cb     Callback
}

// queue orders events by offset, then by insertion.
type queue []*event

func (q queue) Len() int { return len(q) }

func (q queue) Less(i, j int) bool {
	if q[i].offset == q[j].offset {
		return q[i].seq < q[j].seq
	}
	return q[i].offset < q[j].offset
}

func (q queue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *queue) Push(x any) { *q = append(*q, x.(*event)) }

func (q *queue) Pop() any {
	old := *q
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return ev
}

func (q *queue) add(ev *event) {
	if math.IsNaN(ev.offset) || ev.offset < 0 {
		ev.offset = 0
	}
	heap.Push(q, ev)
}

func (q *queue) pop() *event { return heap.Pop(q).(*event) }

func (q queue) offsets() []float64 {
	cp := make(queue, len(q))
	copy(cp, q)
	out := make([]float64, 0, len(cp))
	for cp.Len() > 0 {
		out = append(out, cp.pop().offset)
	}
	return out
}
