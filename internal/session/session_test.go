package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSessionCompletesOnFullBuffer(t *testing.T) {
	clock := newFakeClock()
	sched := &manualScheduler{}
	var completed []Result
	opts := testOptions(clock, sched)
	opts.OnComplete = func(r Result) { completed = append(completed, r) }
	s := New("ab", opts)

	require.Equal(t, StateIdle, s.State())
	_, ok := s.StartedAt()
	require.False(t, ok)

	require.True(t, s.Type('a'))
	require.Equal(t, StateActive, s.State())
	start, ok := s.StartedAt()
	require.True(t, ok)
	require.Equal(t, clock.Now(), start)
	require.Equal(t, 1, sched.active())

	clock.Advance(2 * time.Second)
	require.True(t, s.Type('b'))

	res, ok := s.Result()
	require.True(t, ok)
	assert.Equal(t, StateComplete, s.State())
	assert.Equal(t, 12, res.WPM)
	assert.Equal(t, 100, res.Accuracy)
	assert.Equal(t, 2, res.DurationSeconds)
	assert.Equal(t, start.Add(2*time.Second), res.CompletedAt)
	assert.Equal(t, 0, sched.active(), "timer stopped on completion")
	require.Len(t, completed, 1)
	assert.Equal(t, res, completed[0])
}

func TestSessionAccuracyCountsPositions(t *testing.T) {
	clock := newFakeClock()
	s := New("abc", testOptions(clock, &manualScheduler{}))

	require.True(t, s.Update("a"))
	clock.Advance(time.Second)
	require.True(t, s.Update("axc"))

	res, ok := s.Result()
	require.True(t, ok)
	assert.Equal(t, 2, res.Correct)
	assert.Equal(t, 3, res.Typed)
	assert.Equal(t, 67, res.Accuracy)
}

func TestSessionRejectsOverflow(t *testing.T) {
	s := New("ab", testOptions(newFakeClock(), &manualScheduler{}))

	assert.False(t, s.Update("abc"))
	assert.Equal(t, StateIdle, s.State(), "rejected input does not start the clock")
	assert.Equal(t, "", s.Buffer())

	require.True(t, s.Update("ab"))
	assert.False(t, s.Type('c'))
	assert.False(t, s.Backspace(), "no edits after completion")
	assert.Equal(t, "ab", s.Buffer())
}

func TestSessionBackspaceDisallowed(t *testing.T) {
	opts := testOptions(newFakeClock(), &manualScheduler{})
	opts.BackspaceAllowed = false
	s := New("hello", opts)

	require.True(t, s.Update("hx"))
	assert.False(t, s.Backspace())
	assert.False(t, s.Update("he"), "rewrite of existing input is rejected")
	assert.Equal(t, "hx", s.Buffer())
	assert.True(t, s.Update("hxl"))
}

func TestSessionBackspaceAllowed(t *testing.T) {
	s := New("hello", testOptions(newFakeClock(), &manualScheduler{}))

	require.True(t, s.Update("hx"))
	require.True(t, s.Backspace())
	assert.Equal(t, "h", s.Buffer())
	assert.False(t, New("", testOptions(newFakeClock(), &manualScheduler{})).Backspace())
}

func TestSessionTickRecomputesLive(t *testing.T) {
	clock := newFakeClock()
	sched := &manualScheduler{}
	var ticks []LiveMetrics
	opts := testOptions(clock, sched)
	opts.OnTick = func(m LiveMetrics) { ticks = append(ticks, m) }
	s := New("hello world", opts)

	assert.Equal(t, 100, s.Live().Accuracy)
	s.Tick()
	assert.Empty(t, ticks, "tick while idle is a no-op")

	require.True(t, s.Update("hello"))
	clock.Advance(6 * time.Second)
	sched.Fire()

	require.Len(t, ticks, 1)
	assert.Equal(t, LiveMetrics{Correct: 5, Typed: 5, WPM: 10, Accuracy: 100, Elapsed: 6 * time.Second}, ticks[0])
	assert.Equal(t, ticks[0], s.Live())
}

func TestSessionResetIsIdempotent(t *testing.T) {
	clock := newFakeClock()
	sched := &manualScheduler{}
	s := New("abc", testOptions(clock, sched))

	require.True(t, s.Update("ab"))
	s.Reset("xyz")
	s.Reset("xyz")

	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, "xyz", s.Target())
	assert.Equal(t, "", s.Buffer())
	assert.Equal(t, LiveMetrics{Accuracy: 100}, s.Live())
	_, ok := s.StartedAt()
	assert.False(t, ok)
	assert.Equal(t, 0, sched.active())
}

func TestSessionAbandonKeepsTarget(t *testing.T) {
	sched := &manualScheduler{}
	s := New("abc", testOptions(newFakeClock(), sched))

	require.True(t, s.Update("a"))
	s.Abandon()

	assert.Equal(t, "abc", s.Target())
	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, 0, sched.active())
}

func TestSessionStaleTimerIgnored(t *testing.T) {
	clock := newFakeClock()
	sched := &manualScheduler{}
	var ticks int
	opts := testOptions(clock, sched)
	opts.OnTick = func(LiveMetrics) { ticks++ }
	s := New("abc", opts)

	require.True(t, s.Update("a"))
	stale := sched.timers[0].fn
	s.Reset("abc")
	require.True(t, s.Update("a"))

	stale()
	assert.Equal(t, 0, ticks)
	sched.Fire()
	assert.Equal(t, 1, ticks)
}

func TestDeadlineSessionExpiresOnTick(t *testing.T) {
	clock := newFakeClock()
	sched := &manualScheduler{}
	var done []Result
	opts := testOptions(clock, sched)
	opts.OnComplete = func(r Result) { done = append(done, r) }
	s := newSession("abcdef", opts, false, 30*time.Second)

	require.True(t, s.Update("abcdef"))
	assert.Equal(t, StateActive, s.State(), "full buffer does not end a deadline attempt")

	clock.Advance(29 * time.Second)
	sched.Fire()
	assert.Equal(t, StateActive, s.State())

	clock.Advance(5 * time.Second)
	sched.Fire()
	res, ok := s.Result()
	require.True(t, ok)
	assert.Equal(t, 30*time.Second, res.Duration)
	assert.Equal(t, 30, res.DurationSeconds)
	assert.Equal(t, 2, res.WPM)
	assert.Len(t, done, 1)
	assert.Equal(t, 0, sched.active())
}

func TestDeadlineSessionLateKeystrokeCompletes(t *testing.T) {
	clock := newFakeClock()
	s := newSession("abcdef", testOptions(clock, &manualScheduler{}), false, 10*time.Second)

	require.True(t, s.Update("ab"))
	clock.Advance(11 * time.Second)
	assert.False(t, s.Type('c'))

	res, ok := s.Result()
	require.True(t, ok)
	assert.Equal(t, "ab", s.Buffer())
	assert.Equal(t, 10, res.DurationSeconds)
}

func TestExpire(t *testing.T) {
	clock := newFakeClock()
	s := newSession("abc", testOptions(clock, &manualScheduler{}), false, 15*time.Second)

	assert.False(t, s.Expire(), "idle attempts cannot expire")
	require.True(t, s.Update("a"))
	assert.True(t, s.Expire())
	assert.False(t, s.Expire())
	assert.Equal(t, 15*time.Second, s.Elapsed())

	plain := New("abc", testOptions(clock, &manualScheduler{}))
	require.True(t, plain.Update("a"))
	assert.False(t, plain.Expire(), "attempts without a deadline never expire")
}

func TestTickerSchedulerStopsOnEveryExit(t *testing.T) {
	defer goleak.VerifyNone(t)

	opts := Options{BackspaceAllowed: true, TickInterval: time.Millisecond}

	completed := New("ab", opts)
	require.True(t, completed.Update("a"))
	require.True(t, completed.Update("ab"))

	abandoned := New("ab", opts)
	require.True(t, abandoned.Update("a"))
	abandoned.Abandon()

	reset := New("ab", opts)
	require.True(t, reset.Update("a"))
	reset.Reset("cd")

	expired := newSession("ab", opts, false, time.Hour)
	require.True(t, expired.Update("a"))
	require.True(t, expired.Expire())
}

func TestTickerSchedulerDeliversTicks(t *testing.T) {
	defer goleak.VerifyNone(t)

	ticks := make(chan LiveMetrics, 16)
	s := New("abc", Options{
		TickInterval: time.Millisecond,
		OnTick: func(m LiveMetrics) {
			select {
			case ticks <- m:
			default:
			}
		},
	})
	require.True(t, s.Update("a"))
	select {
	case m := <-ticks:
		assert.Equal(t, 1, m.Typed)
	case <-time.After(2 * time.Second):
		t.Fatal("no tick delivered")
	}
	s.Abandon()
}
