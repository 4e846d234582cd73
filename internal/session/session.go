// Package session implements the typing attempt state machine and its test variants.
package session

import (
	"math"
	"sync"
	"time"

	"github.com/verte-zerg/codetype/internal/metrics"
)

// DefaultTickInterval is the live metrics refresh cadence.
const DefaultTickInterval = 300 * time.Millisecond

// State is the lifecycle stage of one attempt.
type State int

// Attempt states.
const (
	StateIdle State = iota
	StateActive
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// LiveMetrics is the last recomputed view of an attempt in progress.
type LiveMetrics struct {
	Correct  int
	Typed    int
	WPM      int
	Accuracy int
	Elapsed  time.Duration
}

// Result holds the metrics frozen at completion.
type Result struct {
	Correct         int
	Typed           int
	WPM             int
	Accuracy        int
	Duration        time.Duration
	DurationSeconds int
	CompletedAt     time.Time
}

// Options configures a Session.
type Options struct {
	BackspaceAllowed bool
	TickInterval     time.Duration
	Clock            Clock
	Scheduler        Scheduler
	// OnTick receives metrics after each scheduled recompute. It must not block.
	OnTick func(LiveMetrics)
	// OnComplete receives the frozen result once per attempt.
	OnComplete func(Result)
}

func (o Options) withDefaults() Options {
	if o.TickInterval <= 0 {
		o.TickInterval = DefaultTickInterval
	}
	if o.Clock == nil {
		o.Clock = SystemClock()
	}
	if o.Scheduler == nil {
		o.Scheduler = TickerScheduler()
	}
	return o
}

// Session tracks one attempt at reproducing a fixed target text.
type Session struct {
	mu   sync.Mutex
	opts Options

	target []rune
	buffer []rune
	state  State

	startedAt time.Time
	live      LiveMetrics
	result    Result

	timer Timer
	gen   uint64

	completeOnFull bool
	deadline       time.Duration
}

// New returns an idle session that completes when the buffer reaches the target length.
func New(target string, opts Options) *Session {
	return newSession(target, opts, true, 0)
}

func newSession(target string, opts Options, completeOnFull bool, deadline time.Duration) *Session {
	s := &Session{
		opts:           opts.withDefaults(),
		completeOnFull: completeOnFull,
		deadline:       deadline,
	}
	s.resetLocked(target)
	return s
}

// Target returns the text being typed.
func (s *Session) Target() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.target)
}

// Buffer returns the input accepted so far.
func (s *Session) Buffer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.buffer)
}

// State returns the current lifecycle stage.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// StartedAt returns the clock anchor and whether it is set.
func (s *Session) StartedAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt, !s.startedAt.IsZero()
}

// Elapsed returns time since the anchor, frozen once complete.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateActive:
		return s.opts.Clock.Now().Sub(s.startedAt)
	case StateComplete:
		return s.result.Duration
	default:
		return 0
	}
}

// Live returns the metrics computed at the last tick, or the final metrics once complete.
func (s *Session) Live() LiveMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

// Counts returns the correct and total typed runes of the current buffer.
func (s *Session) Counts() (correct, typed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return metrics.CountCorrect(s.target, s.buffer), len(s.buffer)
}

// Result returns the frozen metrics once the attempt is complete.
func (s *Session) Result() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.state == StateComplete
}

// Update proposes a full replacement of the buffer. Inputs longer than the target,
// deletions while backspace is disallowed, and edits after completion are ignored.
func (s *Session) Update(input string) bool {
	return s.apply(func(cur []rune) []rune { return []rune(input) })
}

// Type appends one rune.
func (s *Session) Type(r rune) bool {
	return s.apply(func(cur []rune) []rune {
		next := make([]rune, len(cur), len(cur)+1)
		copy(next, cur)
		return append(next, r)
	})
}

// Backspace removes the trailing rune.
func (s *Session) Backspace() bool {
	return s.apply(func(cur []rune) []rune {
		if len(cur) == 0 {
			return cur
		}
		return cur[:len(cur)-1]
	})
}

// Tick recomputes live metrics from the current buffer and elapsed time.
func (s *Session) Tick() {
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()
	s.onTimer(gen)
}

// Expire forces completion of an active deadline attempt, using the configured deadline as elapsed time.
func (s *Session) Expire() bool {
	s.mu.Lock()
	if s.state != StateActive || s.deadline <= 0 {
		s.mu.Unlock()
		return false
	}
	stop := s.completeLocked(s.deadline)
	res := s.result
	s.mu.Unlock()
	stopTimer(stop)
	s.notifyComplete(res)
	return true
}

// Abandon discards progress and returns to idle with the same target.
func (s *Session) Abandon() {
	s.Reset(s.Target())
}

// Reset starts a fresh attempt on target. Calling it repeatedly is harmless.
func (s *Session) Reset(target string) {
	s.mu.Lock()
	stop := s.resetLocked(target)
	s.mu.Unlock()
	stopTimer(stop)
}

func (s *Session) apply(edit func(cur []rune) []rune) bool {
	s.mu.Lock()
	accepted, stop, completed := s.applyLocked(edit)
	res := s.result
	s.mu.Unlock()
	stopTimer(stop)
	if completed {
		s.notifyComplete(res)
	}
	return accepted
}

func (s *Session) applyLocked(edit func(cur []rune) []rune) (accepted bool, stop Timer, completed bool) {
	if s.state == StateComplete {
		return false, nil, false
	}
	now := s.opts.Clock.Now()
	if s.state == StateActive && s.deadline > 0 && now.Sub(s.startedAt) >= s.deadline {
		return false, s.completeLocked(s.deadline), true
	}
	next := edit(s.buffer)
	if len(next) > len(s.target) {
		return false, nil, false
	}
	if !s.opts.BackspaceAllowed && !hasPrefix(next, s.buffer) {
		return false, nil, false
	}
	if runesEqual(next, s.buffer) {
		return false, nil, false
	}
	s.buffer = append(s.buffer[:0:0], next...)
	if s.state == StateIdle {
		s.state = StateActive
		s.startedAt = now
		gen := s.gen
		s.timer = s.opts.Scheduler.Every(s.opts.TickInterval, func() { s.onTimer(gen) })
	}
	if s.completeOnFull && len(s.buffer) == len(s.target) {
		return true, s.completeLocked(now.Sub(s.startedAt)), true
	}
	return true, nil, false
}

func (s *Session) onTimer(gen uint64) {
	s.mu.Lock()
	if s.gen != gen || s.state != StateActive {
		s.mu.Unlock()
		return
	}
	now := s.opts.Clock.Now()
	var stop Timer
	completed := false
	if s.deadline > 0 && now.Sub(s.startedAt) >= s.deadline {
		stop = s.completeLocked(s.deadline)
		completed = true
	} else {
		s.recomputeLocked(now.Sub(s.startedAt))
	}
	live := s.live
	res := s.result
	s.mu.Unlock()

	stopTimer(stop)
	if completed {
		s.notifyComplete(res)
		return
	}
	if s.opts.OnTick != nil {
		s.opts.OnTick(live)
	}
}

func (s *Session) recomputeLocked(elapsed time.Duration) {
	correct := metrics.CountCorrect(s.target, s.buffer)
	s.live = LiveMetrics{
		Correct:  correct,
		Typed:    len(s.buffer),
		WPM:      metrics.ComputeWPM(correct, elapsed.Seconds()),
		Accuracy: metrics.ComputeAccuracy(len(s.buffer), correct),
		Elapsed:  elapsed,
	}
}

// completeLocked freezes the result and hands back the timer for the caller to stop after unlocking.
func (s *Session) completeLocked(elapsed time.Duration) Timer {
	s.recomputeLocked(elapsed)
	s.state = StateComplete
	s.result = Result{
		Correct:         s.live.Correct,
		Typed:           s.live.Typed,
		WPM:             s.live.WPM,
		Accuracy:        s.live.Accuracy,
		Duration:        elapsed,
		DurationSeconds: int(math.Round(elapsed.Seconds())),
		CompletedAt:     s.startedAt.Add(elapsed),
	}
	return s.detachTimerLocked()
}

func (s *Session) resetLocked(target string) Timer {
	stop := s.detachTimerLocked()
	s.target = []rune(target)
	s.buffer = nil
	s.state = StateIdle
	s.startedAt = time.Time{}
	s.live = LiveMetrics{Accuracy: 100}
	s.result = Result{}
	return stop
}

func (s *Session) detachTimerLocked() Timer {
	t := s.timer
	s.timer = nil
	s.gen++
	return t
}

func (s *Session) notifyComplete(res Result) {
	if s.opts.OnComplete != nil {
		s.opts.OnComplete(res)
	}
}

func hasPrefix(s, prefix []rune) bool {
	if len(prefix) > len(s) {
		return false
	}
	return runesEqual(s[:len(prefix)], prefix)
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
