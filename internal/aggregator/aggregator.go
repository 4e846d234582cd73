// Package aggregator defines the statistics data store contract consumed by sessions and stats views.
package aggregator

import (
	"context"
	"errors"
	"fmt"

	"github.com/verte-zerg/codetype/internal/model"
)

var (
	// ErrNotFound is returned when an indexed result does not exist.
	ErrNotFound = errors.New("test result not found")
	// ErrInvalidRange is returned for a malformed index range.
	ErrInvalidRange = errors.New("invalid result range")
	// ErrUnavailable wraps transport or backend failures. Callers may retry.
	ErrUnavailable = errors.New("aggregator unavailable")
	// ErrInvalidSubmission is returned when a submission fails validation.
	ErrInvalidSubmission = errors.New("invalid submission")
)

// Submission is the payload of a submit command. The aggregator assigns the timestamp.
type Submission struct {
	WPM             int            `json:"wpm"`
	Accuracy        float64        `json:"accuracy"`
	TestMode        model.TestMode `json:"testMode"`
	Language        string         `json:"language"`
	Difficulty      string         `json:"difficulty"`
	DurationSeconds int            `json:"duration"`
}

// FromRecord builds a submission from a completed record.
func FromRecord(rec model.SessionRecord) Submission {
	return Submission{
		WPM:             rec.WPM,
		Accuracy:        float64(rec.Accuracy),
		TestMode:        rec.TestMode,
		Language:        rec.Language,
		Difficulty:      rec.Difficulty,
		DurationSeconds: rec.DurationSeconds,
	}
}

// Validate checks the payload shape before it is persisted.
func (s Submission) Validate() error {
	switch {
	case s.WPM < 0:
		return fmt.Errorf("%w: wpm must be >= 0", ErrInvalidSubmission)
	case s.Accuracy < 0 || s.Accuracy > 100:
		return fmt.Errorf("%w: accuracy must be between 0 and 100", ErrInvalidSubmission)
	case !s.TestMode.Valid():
		return fmt.Errorf("%w: unknown test mode %q", ErrInvalidSubmission, s.TestMode)
	case s.DurationSeconds < 0:
		return fmt.Errorf("%w: duration must be >= 0", ErrInvalidSubmission)
	}
	return nil
}

// Submitter persists one completed result.
type Submitter interface {
	SubmitTestResult(ctx context.Context, sub Submission) error
}

// Querier answers aggregate statistics queries. Every query may legitimately find no data.
type Querier interface {
	ListTestResults(ctx context.Context) ([]model.SessionRecord, error)
	GetTestResult(ctx context.Context, index int) (model.SessionRecord, error)
	ListTestResultRange(ctx context.Context, start, end int) ([]model.SessionRecord, error)
	BestWPM(ctx context.Context) (model.Option[int], error)
	AverageWPM(ctx context.Context) (model.Option[float64], error)
	AverageAccuracy(ctx context.Context) (model.Option[float64], error)
	TotalTests(ctx context.Context) (int, error)
	TodaysResults(ctx context.Context) ([]model.SessionRecord, error)
	DailyStreak(ctx context.Context) (int, error)
	StreakCalendar(ctx context.Context) ([]model.StreakDay, error)
}

// Aggregator is the full command and query surface.
type Aggregator interface {
	Submitter
	Querier
}
