package transport

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"
)

func TestManualFiresInTimeOrder(t *testing.T) {
	m := NewManual()
	var got []float64
	record := func(at float64) { got = append(got, at) }

	m.Schedule(record, 1.0)
	m.Schedule(record, 0.25)
	m.Schedule(record, 0.5)

	if n := m.Advance(1); n != 0 {
		t.Fatalf("stopped transport fired %d events", n)
	}

	m.Start()
	if n := m.Advance(0.5); n != 2 {
		t.Fatalf("expected 2 events by 0.5, got %d", n)
	}
	if pos := m.Position(); pos != 0.5 {
		t.Errorf("position = %v, want 0.5", pos)
	}
	m.Advance(1)
	want := []float64{0.25, 0.5, 1.0}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d at %v, want %v", i, got[i], want[i])
		}
	}
}

func TestManualCancelFromCallback(t *testing.T) {
	m := NewManual()
	fired := 0
	m.Schedule(func(float64) {
		fired++
		m.Stop()
		m.Cancel()
	}, 0.5)
	m.Schedule(func(float64) { fired++ }, 0.75)
	m.Schedule(func(float64) { fired++ }, 2)

	m.Start()
	m.Advance(5)
	if fired != 1 {
		t.Errorf("expected only the cancelling event to fire, got %d", fired)
	}
	if m.Running() || m.Position() != 0 {
		t.Errorf("expected stopped at 0, running=%v pos=%v", m.Running(), m.Position())
	}
	if p := m.Pending(); len(p) != 0 {
		t.Errorf("pending = %v", p)
	}
}

func TestManualEventsScheduledDuringAdvance(t *testing.T) {
	m := NewManual()
	var got []float64
	m.Schedule(func(at float64) {
		got = append(got, at)
		m.Schedule(func(at float64) { got = append(got, at) }, at+0.5)
	}, 0.5)
	m.Start()
	m.Advance(2)
	if len(got) != 2 || got[1] != 1.0 {
		t.Errorf("got %v, want [0.5 1]", got)
	}
}

func TestManualPending(t *testing.T) {
	m := NewManual()
	m.Schedule(func(float64) {}, 3)
	m.Schedule(func(float64) {}, 1)
	p := m.Pending()
	if len(p) != 2 || p[0] != 1 || p[1] != 3 {
		t.Errorf("pending = %v", p)
	}
}

func TestInvalidOffsetsFireAtStart(t *testing.T) {
	m := NewManual()
	m.Schedule(func(float64) {}, 1)
	m.Schedule(func(float64) {}, math.NaN())
	m.Schedule(func(float64) {}, -2)
	p := m.Pending()
	if len(p) != 3 || p[0] != 0 || p[1] != 0 || p[2] != 1 {
		t.Errorf("pending = %v, want [0 0 1]", p)
	}
	m.Start()
	if n := m.Advance(0); n != 2 {
		t.Errorf("fired %d events at start, want 2", n)
	}
}

func TestClockDispatchesInOrder(t *testing.T) {
	c := NewClock(nil, nil)
	c.SetLookahead(0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	var mu sync.Mutex
	var got []float64
	done := make(chan struct{})
	c.Schedule(func(float64) {
		mu.Lock()
		got = append(got, 0.04)
		mu.Unlock()
		close(done)
	}, 0.04)
	c.Schedule(func(float64) {
		mu.Lock()
		got = append(got, 0.01)
		mu.Unlock()
	}, 0.01)
	c.Start()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for events")
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 || got[0] != 0.01 || got[1] != 0.04 {
		t.Errorf("got %v", got)
	}
}

func TestClockCancelDropsPending(t *testing.T) {
	c := NewClock(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	fired := make(chan struct{}, 1)
	c.Schedule(func(float64) { fired <- struct{}{} }, 0.2)
	c.Start()
	c.Cancel()

	select {
	case <-fired:
		t.Fatal("cancelled event fired")
	case <-time.After(400 * time.Millisecond):
	}
	if !c.Running() {
		t.Error("cancel must not stop the transport")
	}
	c.Stop()
	if c.Position() != 0 {
		t.Error("stopped clock should report position 0")
	}
}

func TestClockCallbackReceivesAbsoluteTime(t *testing.T) {
	now := 100.0
	c := NewClock(func() float64 { return now }, nil)
	c.Start()
	c.Schedule(func(float64) {}, 0.5)

	ev, at, wait := c.next()
	if ev != nil {
		t.Fatalf("event fired early at %v", at)
	}
	if wait <= 0 {
		t.Fatalf("expected positive wait, got %v", wait)
	}

	now = 100.5
	ev, at, _ = c.next()
	if ev == nil {
		t.Fatal("expected event to be due")
	}
	if at != 100.5 {
		t.Errorf("absolute time = %v, want 100.5", at)
	}
}
