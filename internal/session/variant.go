package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/codetype/internal/aggregator"
	"github.com/verte-zerg/codetype/internal/catalog"
	"github.com/verte-zerg/codetype/internal/metrics"
	"github.com/verte-zerg/codetype/internal/model"
)

// Defaults taken by the test screens.
const (
	DefaultTimedDuration    = 60 * time.Second
	DefaultTimedTick        = 200 * time.Millisecond
	DefaultAccuracyTarget   = 95
	accuracyWarningMinTyped = 10

	customLabel = "custom"
)

// TimedDurations are the selectable timed test lengths.
var TimedDurations = []time.Duration{15 * time.Second, 30 * time.Second, 60 * time.Second, 120 * time.Second}

var (
	// ErrEmptyTarget is returned when a variant would start on blank text.
	ErrEmptyTarget = errors.New("target text is empty")
	// ErrNotComplete is returned when saving an attempt that has no record.
	ErrNotComplete = errors.New("attempt is not complete")
)

// Kind names a session variant.
type Kind string

// Variant kinds.
const (
	KindPractice  Kind = "practice"
	KindTimed     Kind = "timed"
	KindSpeed     Kind = "speed"
	KindAccuracy  Kind = "accuracy"
	KindCustom    Kind = "custom"
	KindChallenge Kind = "challenge"
)

// Source supplies catalog snippets.
type Source interface {
	Random(language, difficulty string) catalog.Snippet
}

// Variant wraps a Session with a termination rule and a target source.
type Variant struct {
	kind       Kind
	sess       *Session
	src        Source
	snippet    catalog.Snippet
	language   string
	difficulty string
	mode       model.TestMode
	record     bool
	threshold  int
	duration   time.Duration
	challenge  *catalog.Challenge

	attemptID uuid.UUID
	guard     *SubmitGuard
}

// NewPractice returns an untimed, unrecorded attempt on a re-rollable catalog snippet.
func NewPractice(src Source, language, difficulty string, opts Options) (*Variant, error) {
	return newCatalogVariant(KindPractice, src, language, difficulty, opts, true, 0)
}

// NewTimed returns an attempt that ends only when duration has elapsed since the first keystroke.
func NewTimed(src Source, language, difficulty string, duration time.Duration, opts Options) (*Variant, error) {
	if duration <= 0 {
		duration = DefaultTimedDuration
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTimedTick
	}
	v, err := newCatalogVariant(KindTimed, src, language, difficulty, opts, false, duration)
	if err != nil {
		return nil, err
	}
	v.duration = duration
	return v, nil
}

// NewSpeed returns an attempt that ends when the snippet is fully typed.
func NewSpeed(src Source, language, difficulty string, opts Options) (*Variant, error) {
	return newCatalogVariant(KindSpeed, src, language, difficulty, opts, true, 0)
}

// NewAccuracy returns a speed attempt that also flags accuracy below threshold.
func NewAccuracy(src Source, language, difficulty string, threshold int, opts Options) (*Variant, error) {
	if threshold <= 0 || threshold > 100 {
		threshold = DefaultAccuracyTarget
	}
	v, err := newCatalogVariant(KindAccuracy, src, language, difficulty, opts, true, 0)
	if err != nil {
		return nil, err
	}
	v.threshold = threshold
	return v, nil
}

// NewChallenge runs a catalog challenge as an accuracy-gated attempt.
func NewChallenge(src Source, ch catalog.Challenge, opts Options) (*Variant, error) {
	v, err := newCatalogVariant(KindChallenge, src, ch.Language, ch.Difficulty, opts, true, 0)
	if err != nil {
		return nil, err
	}
	v.threshold = ch.TargetAccuracy
	v.challenge = &ch
	return v, nil
}

// NewCustom returns an attempt on user supplied text. Blank text is rejected.
func NewCustom(text string, opts Options) (*Variant, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyTarget
	}
	v := &Variant{
		kind:       KindCustom,
		language:   customLabel,
		difficulty: customLabel,
		mode:       model.TestModeCustom,
		record:     true,
		snippet:    catalog.Snippet{ID: customLabel, Title: "Custom", Language: customLabel, Difficulty: customLabel, Code: text},
	}
	v.sess = New(text, opts)
	v.attemptID = uuid.New()
	return v, nil
}

func newCatalogVariant(kind Kind, src Source, language, difficulty string, opts Options, completeOnFull bool, deadline time.Duration) (*Variant, error) {
	snippet := src.Random(language, difficulty)
	if strings.TrimSpace(snippet.Code) == "" {
		return nil, ErrEmptyTarget
	}
	v := &Variant{
		kind:       kind,
		src:        src,
		snippet:    snippet,
		language:   language,
		difficulty: difficulty,
		mode:       model.TestModeWords,
		record:     kind != KindPractice,
	}
	v.sess = newSession(snippet.Code, opts, completeOnFull, deadline)
	v.attemptID = uuid.New()
	return v, nil
}

// Kind returns the variant kind.
func (v *Variant) Kind() Kind { return v.kind }

// Session exposes the underlying state machine.
func (v *Variant) Session() *Session { return v.sess }

// Snippet returns the snippet being typed.
func (v *Variant) Snippet() catalog.Snippet { return v.snippet }

// Language returns the language label recorded with results.
func (v *Variant) Language() string { return v.language }

// Difficulty returns the difficulty label recorded with results.
func (v *Variant) Difficulty() string { return v.difficulty }

// AttemptID identifies the current attempt. It changes on every retry or reroll.
func (v *Variant) AttemptID() uuid.UUID { return v.attemptID }

// Duration returns the configured limit of a timed variant.
func (v *Variant) Duration() time.Duration { return v.duration }

// Threshold returns the accuracy target of gated variants, or 0.
func (v *Variant) Threshold() int { return v.threshold }

// Challenge returns the challenge definition, if any.
func (v *Variant) Challenge() (catalog.Challenge, bool) {
	if v.challenge == nil {
		return catalog.Challenge{}, false
	}
	return *v.challenge, true
}

// Remaining returns the time left on a timed variant.
func (v *Variant) Remaining() time.Duration {
	if v.kind != KindTimed {
		return 0
	}
	left := v.duration - v.sess.Elapsed()
	if left < 0 {
		return 0
	}
	return left
}

// BelowTarget reports the advisory accuracy warning. It never ends the attempt.
func (v *Variant) BelowTarget() bool {
	if v.threshold <= 0 || v.sess.State() != StateActive {
		return false
	}
	correct, typed := v.sess.Counts()
	return typed > accuracyWarningMinTyped && metrics.ComputeAccuracy(typed, correct) < v.threshold
}

// Retry restarts on the same target.
func (v *Variant) Retry() {
	v.sess.Reset(v.snippet.Code)
	v.newAttempt()
}

// Reroll picks a fresh snippet for practice; other variants keep their target and just retry.
func (v *Variant) Reroll() {
	if v.kind != KindPractice || v.src == nil {
		v.Retry()
		return
	}
	v.snippet = v.src.Random(v.language, v.difficulty)
	v.sess.Reset(v.snippet.Code)
	v.newAttempt()
}

// Select switches the practice language and difficulty and rerolls.
func (v *Variant) Select(language, difficulty string) {
	v.language = language
	v.difficulty = difficulty
	v.Reroll()
}

func (v *Variant) newAttempt() {
	v.attemptID = uuid.New()
	v.guard = nil
}

// Record builds the candidate record for a completed attempt.
func (v *Variant) Record() (model.SessionRecord, bool) {
	res, ok := v.sess.Result()
	if !ok || !v.record {
		return model.SessionRecord{}, false
	}
	return model.SessionRecord{
		WPM:             res.WPM,
		Accuracy:        res.Accuracy,
		DurationSeconds: res.DurationSeconds,
		Difficulty:      v.difficulty,
		TestMode:        v.mode,
		Language:        v.language,
		Timestamp:       res.CompletedAt,
	}, true
}

// Submitted reports whether the current attempt was saved.
func (v *Variant) Submitted() bool {
	return v.guard != nil && v.guard.Submitted()
}

// Guard returns the submission guard for the completed attempt.
func (v *Variant) Guard() (*SubmitGuard, error) {
	rec, ok := v.Record()
	if !ok {
		return nil, ErrNotComplete
	}
	if v.guard == nil {
		v.guard = NewSubmitGuard(rec)
	}
	return v.guard, nil
}

// Save submits the completed attempt once.
func (v *Variant) Save(ctx context.Context, dst aggregator.Submitter) (SubmitStatus, error) {
	guard, err := v.Guard()
	if err != nil {
		return SubmitStatusNone, err
	}
	return guard.Submit(ctx, dst)
}

// Evaluate checks a challenge result against its targets.
func (v *Variant) Evaluate() (catalog.Outcome, bool) {
	res, ok := v.sess.Result()
	if !ok || v.challenge == nil {
		return catalog.Outcome{}, false
	}
	return v.challenge.Evaluate(res.WPM, res.Accuracy, res.DurationSeconds), true
}
