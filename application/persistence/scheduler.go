package persistence

import (
	"sync"
	"time"
)

// Scheduler runs at most one pending callback after a delay. Scheduling
// again replaces the pending callback and restarts the delay.
type Scheduler interface {
	Schedule(d time.Duration, fn func())
	Cancel()
	// Flush runs the pending callback now, on the caller's goroutine, and
	// reports whether there was one
	Flush() bool
	Pending() bool
}

// TimerScheduler is the production scheduler backed by time.AfterFunc
type TimerScheduler struct {
	mu    sync.Mutex
	timer *time.Timer
	fn    func()
	gen   uint64
}

// NewTimerScheduler creates a scheduler with nothing pending
func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{}
}

func (s *TimerScheduler) Schedule(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.fn = fn
	s.timer = time.AfterFunc(d, func() { s.fire(gen) })
}

func (s *TimerScheduler) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.fn == nil {
		s.mu.Unlock()
		return
	}
	fn := s.take()
	s.mu.Unlock()
	fn()
}

func (s *TimerScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.take()
}

func (s *TimerScheduler) Flush() bool {
	s.mu.Lock()
	fn := s.take()
	s.mu.Unlock()
	if fn == nil {
		return false
	}
	fn()
	return true
}

func (s *TimerScheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fn != nil
}

// take clears the pending callback; the caller holds mu
func (s *TimerScheduler) take() func() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	fn := s.fn
	s.fn = nil
	return fn
}

// ManualScheduler advances only when told to. Tests use it to step the
// debounce window deterministically.
type ManualScheduler struct {
	mu       sync.Mutex
	now      time.Duration
	deadline time.Duration
	fn       func()
	calls    int
}

// NewManualScheduler creates a scheduler at logical time zero
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) Schedule(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deadline = s.now + d
	s.fn = fn
	s.calls++
}

func (s *ManualScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fn = nil
}

func (s *ManualScheduler) Flush() bool {
	s.mu.Lock()
	fn := s.fn
	s.fn = nil
	s.mu.Unlock()
	if fn == nil {
		return false
	}
	fn()
	return true
}

func (s *ManualScheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fn != nil
}

// Advance moves logical time forward and fires the pending callback if its
// deadline has passed
func (s *ManualScheduler) Advance(d time.Duration) bool {
	s.mu.Lock()
	s.now += d
	if s.fn == nil || s.now < s.deadline {
		s.mu.Unlock()
		return false
	}
	fn := s.fn
	s.fn = nil
	s.mu.Unlock()
	fn()
	return true
}

// ScheduleCalls returns how many times Schedule was called
func (s *ManualScheduler) ScheduleCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
