package session

import (
	"sync"
	"time"

	"github.com/verte-zerg/codetype/internal/catalog"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// manualScheduler records timers and fires them on demand.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() { t.stopped = true }

func (s *manualScheduler) Every(_ time.Duration, fn func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{fn: fn}
	s.timers = append(s.timers, t)
	return t
}

// Fire runs every live timer once.
func (s *manualScheduler) Fire() {
	s.mu.Lock()
	timers := append([]*manualTimer(nil), s.timers...)
	s.mu.Unlock()
	for _, t := range timers {
		if !t.stopped {
			t.fn()
		}
	}
}

func (s *manualScheduler) active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

func (s *manualScheduler) started() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

type staticSource struct {
	snippets []catalog.Snippet
	next     int
}

func (s *staticSource) Random(language, difficulty string) catalog.Snippet {
	sn := s.snippets[s.next%len(s.snippets)]
	s.next++
	return sn
}

func testOptions(clock *fakeClock, sched *manualScheduler) Options {
	return Options{
		BackspaceAllowed: true,
		Clock:            clock,
		Scheduler:        sched,
	}
}
