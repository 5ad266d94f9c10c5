package schedule

import (
	"sync"
	"testing"
	"time"
)

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	stopped bool
	fired   bool
	fn      func()
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
	delays []time.Duration
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{clock: f, at: f.now.Add(d), fn: fn}
	f.timers = append(f.timers, t)
	f.delays = append(f.delays, d)
	return t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	var due []*fakeTimer
	for _, timer := range f.timers {
		if !timer.stopped && !timer.fired && !timer.at.After(f.now) {
			timer.fired = true
			due = append(due, timer)
		}
	}
	f.mu.Unlock()
	for _, timer := range due {
		timer.fn()
	}
}

func TestScheduleFires(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	s := New(clock)

	fired := 0
	s.Schedule("a", time.Minute, func() { fired++ })
	if s.Pending() != 1 {
		t.Fatalf("expected 1 pending, got %d", s.Pending())
	}

	clock.Advance(30 * time.Second)
	if fired != 0 {
		t.Fatalf("fired too early")
	}
	clock.Advance(30 * time.Second)
	if fired != 1 {
		t.Fatalf("expected 1 fire, got %d", fired)
	}
	if s.Pending() != 0 {
		t.Fatalf("expected entry removed after firing")
	}
}

func TestScheduleReplaces(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	s := New(clock)

	var got []string
	s.Schedule("a", time.Minute, func() { got = append(got, "first") })
	s.Schedule("a", 2*time.Minute, func() { got = append(got, "second") })

	clock.Advance(time.Minute)
	if len(got) != 0 {
		t.Fatalf("replaced task fired: %v", got)
	}
	clock.Advance(time.Minute)
	if len(got) != 1 || got[0] != "second" {
		t.Fatalf("expected only second, got %v", got)
	}
}

func TestCancel(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	s := New(clock)

	fired := false
	s.Schedule("a", time.Minute, func() { fired = true })
	if !s.Cancel("a") {
		t.Fatalf("expected cancel to report pending task")
	}
	if s.Cancel("a") {
		t.Fatalf("second cancel should report nothing pending")
	}
	clock.Advance(time.Hour)
	if fired {
		t.Fatalf("cancelled task fired")
	}
}

func TestStaleCallbackIgnored(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	s := New(clock)

	fired := 0
	s.Schedule("a", time.Minute, func() { fired++ })
	stale := clock.timers[0]
	s.Schedule("a", time.Hour, func() { fired += 10 })

	// A timer that could not be stopped in time still runs its callback.
	stale.fn()
	if fired != 0 {
		t.Fatalf("stale callback ran the task")
	}
	if s.Pending() != 1 {
		t.Fatalf("stale callback removed the live entry")
	}
}

func TestStop(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	s := New(clock)
	s.Schedule("a", time.Minute, func() { t.Fatalf("should not fire") })
	s.Schedule("b", time.Minute, func() { t.Fatalf("should not fire") })
	s.Stop()
	clock.Advance(time.Hour)
	if s.Pending() != 0 {
		t.Fatalf("expected no pending tasks")
	}
}
