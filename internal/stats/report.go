package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/verte-zerg/codetype/internal/aggregator"
	"github.com/verte-zerg/codetype/internal/model"
)

// Report contains precomputed data for stats rendering.
type Report struct {
	// Overall is answered by the aggregator over every stored result.
	Overall Summary
	// Records and Summary reflect the configured filters.
	Records  []model.SessionRecord
	Summary  Summary
	Today    []model.SessionRecord
	Streak   int
	Calendar []model.StreakDay
	Window   int
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, q aggregator.Querier, cfg model.StatsConfig, now time.Time) (Report, error) {
	overall, err := LoadSummary(ctx, q)
	if err != nil {
		return Report{}, err
	}
	all, err := q.ListTestResults(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to list results: %w", err)
	}
	today, err := q.TodaysResults(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to load today's results: %w", err)
	}
	streak, err := q.DailyStreak(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to load streak: %w", err)
	}
	active, err := q.StreakCalendar(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to load calendar: %w", err)
	}

	records := Filter(all, cfg)
	return Report{
		Overall:  overall,
		Records:  records,
		Summary:  Summarize(records),
		Today:    today,
		Streak:   streak,
		Calendar: ExpandCalendar(active, DayIndex(now), CalendarDays),
		Window:   cfg.CurveWindow,
	}, nil
}

// LoadSummary asks the aggregator for the headline numbers.
func LoadSummary(ctx context.Context, q aggregator.Querier) (Summary, error) {
	total, err := q.TotalTests(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to count results: %w", err)
	}
	best, err := q.BestWPM(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to load best wpm: %w", err)
	}
	avgWPM, err := q.AverageWPM(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to load average wpm: %w", err)
	}
	avgAcc, err := q.AverageAccuracy(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to load average accuracy: %w", err)
	}
	return Summary{Total: total, BestWPM: best, AverageWPM: avgWPM, AverageAccuracy: avgAcc}, nil
}
