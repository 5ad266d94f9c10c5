package utils

import (
	"testing"
	"time"
)

func TestSlidingWindowAdd(t *testing.T) {
	window := NewSlidingWindow(2 * time.Second)
	now := time.Now()
	if count := window.Add(now); count != 1 {
		t.Fatalf("expected 1, got %d", count)
	}
	window.Add(now.Add(500 * time.Millisecond))
	if count := window.Count(now.Add(1 * time.Second)); count != 2 {
		t.Fatalf("expected 2, got %d", count)
	}
	if count := window.Count(now.Add(3 * time.Second)); count != 0 {
		t.Fatalf("expected 0, got %d", count)
	}
}

func TestKeyedWindowsAllow(t *testing.T) {
	limiter := NewKeyedWindows(time.Minute, 2)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i := range 2 {
		if ok, _ := limiter.Allow("1.2.3.4", now.Add(time.Duration(i)*time.Second)); !ok {
			t.Fatalf("attempt %d should be allowed", i)
		}
	}
	ok, retry := limiter.Allow("1.2.3.4", now.Add(10*time.Second))
	if ok {
		t.Fatalf("third attempt should be refused")
	}
	if retry != 50*time.Second {
		t.Fatalf("expected retry after 50s, got %v", retry)
	}
	if ok, _ := limiter.Allow("5.6.7.8", now); !ok {
		t.Fatalf("other keys are independent")
	}
	if ok, _ := limiter.Allow("1.2.3.4", now.Add(61*time.Second)); !ok {
		t.Fatalf("attempt after the window should be allowed")
	}
}

func TestKeyedWindowsPrune(t *testing.T) {
	limiter := NewKeyedWindows(time.Minute, 5)
	now := time.Now()
	limiter.Allow("a", now)
	limiter.Allow("b", now.Add(30*time.Second))

	if removed := limiter.Prune(now.Add(70 * time.Second)); removed != 1 {
		t.Fatalf("expected 1 pruned key, got %d", removed)
	}
}
