package tui

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/verte-zerg/codetype/internal/session"
)

// tickMsg fires a loop timer. Messages for stopped timers or older attempts are dropped.
type tickMsg struct {
	timerID uint64
	attempt uuid.UUID
}

// loopScheduler runs session timers on the Bubble Tea event loop instead of goroutines.
type loopScheduler struct {
	mu      sync.Mutex
	nextID  uint64
	timers  map[uint64]*loopTimer
	pending []*loopTimer
}

type loopTimer struct {
	id       uint64
	interval time.Duration
	fn       func()
	sched    *loopScheduler
}

var _ session.Scheduler = (*loopScheduler)(nil)

func newLoopScheduler() *loopScheduler {
	return &loopScheduler{timers: map[uint64]*loopTimer{}}
}

func (s *loopScheduler) Every(interval time.Duration, fn func()) session.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t := &loopTimer{id: s.nextID, interval: interval, fn: fn, sched: s}
	s.timers[t.id] = t
	s.pending = append(s.pending, t)
	return t
}

func (t *loopTimer) Stop() {
	t.sched.mu.Lock()
	defer t.sched.mu.Unlock()
	delete(t.sched.timers, t.id)
}

// start returns tick commands for timers created since the last call.
func (s *loopScheduler) start(attempt uuid.UUID) tea.Cmd {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	var cmds []tea.Cmd
	for _, t := range pending {
		if s.active(t.id) {
			cmds = append(cmds, tickAfter(t.id, t.interval, attempt))
		}
	}
	return tea.Batch(cmds...)
}

// fire runs the timer callback and reschedules it. Unknown timers are ignored.
func (s *loopScheduler) fire(msg tickMsg) tea.Cmd {
	s.mu.Lock()
	t, ok := s.timers[msg.timerID]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	t.fn()
	if !s.active(t.id) {
		return nil
	}
	return tickAfter(t.id, t.interval, msg.attempt)
}

func (s *loopScheduler) active(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[id]
	return ok
}

func tickAfter(id uint64, interval time.Duration, attempt uuid.UUID) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return tickMsg{timerID: id, attempt: attempt}
	})
}
