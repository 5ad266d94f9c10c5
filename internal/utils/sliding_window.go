package utils

import (
	"sync"
	"time"
)

// SlidingWindow counts events inside a trailing time window.
type SlidingWindow struct {
	mu     sync.Mutex
	window time.Duration
	hits   []time.Time
}

func NewSlidingWindow(window time.Duration) *SlidingWindow {
	return &SlidingWindow{window: window}
}

func (w *SlidingWindow) Add(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.trim(now)
	w.hits = append(w.hits, now)
	return len(w.hits)
}

func (w *SlidingWindow) Count(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.trim(now)
	return len(w.hits)
}

// Oldest returns the earliest hit still inside the window.
func (w *SlidingWindow) Oldest(now time.Time) (time.Time, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.trim(now)
	if len(w.hits) == 0 {
		return time.Time{}, false
	}
	return w.hits[0], true
}

func (w *SlidingWindow) trim(now time.Time) {
	cutoff := now.Add(-w.window)
	idx := 0
	for _, hit := range w.hits {
		if hit.After(cutoff) {
			break
		}
		idx++
	}
	w.hits = w.hits[idx:]
}

// KeyedWindows limits events per key, such as login attempts per client IP.
type KeyedWindows struct {
	mu      sync.Mutex
	window  time.Duration
	limit   int
	windows map[string]*SlidingWindow
}

func NewKeyedWindows(window time.Duration, limit int) *KeyedWindows {
	return &KeyedWindows{window: window, limit: limit, windows: make(map[string]*SlidingWindow)}
}

// Allow records an attempt for key unless the limit is already reached. When
// refused, retryAfter tells when the oldest attempt leaves the window.
func (k *KeyedWindows) Allow(key string, now time.Time) (allowed bool, retryAfter time.Duration) {
	w := k.get(key)
	if w.Count(now) >= k.limit {
		oldest, _ := w.Oldest(now)
		return false, oldest.Add(k.window).Sub(now)
	}
	w.Add(now)
	return true, 0
}

// Prune drops keys with no hits left in the window.
func (k *KeyedWindows) Prune(now time.Time) int {
	k.mu.Lock()
	defer k.mu.Unlock()

	removed := 0
	for key, w := range k.windows {
		if w.Count(now) == 0 {
			delete(k.windows, key)
			removed++
		}
	}
	return removed
}

func (k *KeyedWindows) get(key string) *SlidingWindow {
	k.mu.Lock()
	defer k.mu.Unlock()
	w := k.windows[key]
	if w == nil {
		w = NewSlidingWindow(k.window)
		k.windows[key] = w
	}
	return w
}
