package schedule

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type Timer interface {
	Stop() bool
}

type realClock struct{}

type realTimer struct{ t *time.Timer }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return realTimer{t: time.AfterFunc(d, f)}
}

func (t realTimer) Stop() bool { return t.t.Stop() }

func RealClock() Clock { return realClock{} }

type entry struct {
	timer Timer
	seq   uint64
}

// Scheduler runs at most one deferred task per key. Scheduling a key again
// stops the previous task.
type Scheduler struct {
	mu      sync.Mutex
	clock   Clock
	seq     uint64
	entries map[string]entry
}

func New(clock Clock) *Scheduler {
	if clock == nil {
		clock = realClock{}
	}
	return &Scheduler{clock: clock, entries: make(map[string]entry)}
}

func (s *Scheduler) Clock() Clock {
	return s.clock
}

func (s *Scheduler) Schedule(key string, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.entries[key]; ok {
		prev.timer.Stop()
	}
	s.seq++
	seq := s.seq
	timer := s.clock.AfterFunc(d, func() {
		s.mu.Lock()
		current, ok := s.entries[key]
		if !ok || current.seq != seq {
			s.mu.Unlock()
			return
		}
		delete(s.entries, key)
		s.mu.Unlock()
		fn()
	})
	s.entries[key] = entry{timer: timer, seq: seq}
}

// Cancel stops the pending task for key. It reports whether one was pending.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.entries[key]
	if !ok {
		return false
	}
	delete(s.entries, key)
	current.timer.Stop()
	return true
}

func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, current := range s.entries {
		current.timer.Stop()
		delete(s.entries, key)
	}
}
