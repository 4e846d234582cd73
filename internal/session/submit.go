package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/verte-zerg/codetype/internal/aggregator"
	"github.com/verte-zerg/codetype/internal/model"
)

// SubmitStatus describes what a submit attempt did.
type SubmitStatus int

// Submit outcomes.
const (
	SubmitStatusNone SubmitStatus = iota
	SubmitStatusSubmitted
	SubmitStatusAlreadySubmitted
	SubmitStatusInFlight
)

func (s SubmitStatus) String() string {
	switch s {
	case SubmitStatusSubmitted:
		return "submitted"
	case SubmitStatusAlreadySubmitted:
		return "already submitted"
	case SubmitStatusInFlight:
		return "in flight"
	default:
		return "none"
	}
}

// SubmitGuard sends one record at most once, with at most one call in flight.
type SubmitGuard struct {
	mu       sync.Mutex
	record   model.SessionRecord
	inFlight bool
	done     bool
}

// NewSubmitGuard returns a guard for rec.
func NewSubmitGuard(rec model.SessionRecord) *SubmitGuard {
	return &SubmitGuard{record: rec}
}

// Record returns the guarded record.
func (g *SubmitGuard) Record() model.SessionRecord {
	return g.record
}

// Submitted reports whether a submit call has succeeded.
func (g *SubmitGuard) Submitted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.done
}

// Submit sends the record unless it was already sent or a send is outstanding.
// The submitted flag is only set when dst reports success.
func (g *SubmitGuard) Submit(ctx context.Context, dst aggregator.Submitter) (SubmitStatus, error) {
	g.mu.Lock()
	switch {
	case g.done:
		g.mu.Unlock()
		return SubmitStatusAlreadySubmitted, nil
	case g.inFlight:
		g.mu.Unlock()
		return SubmitStatusInFlight, nil
	}
	g.inFlight = true
	g.mu.Unlock()

	err := dst.SubmitTestResult(ctx, aggregator.FromRecord(g.record))

	g.mu.Lock()
	defer g.mu.Unlock()
	g.inFlight = false
	if err != nil {
		return SubmitStatusNone, fmt.Errorf("failed to submit result: %w", err)
	}
	g.done = true
	return SubmitStatusSubmitted, nil
}
