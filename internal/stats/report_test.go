package stats_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/codetype/internal/aggregator"
	"github.com/verte-zerg/codetype/internal/model"
	"github.com/verte-zerg/codetype/internal/stats"
	"github.com/verte-zerg/codetype/internal/store"
)

func TestBuildReport(t *testing.T) {
	now := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	clock := now
	st, err := store.Open(filepath.Join(t.TempDir(), "codetype.db"), store.WithClock(func() time.Time { return clock }))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	subs := []aggregator.Submission{
		{WPM: 30, Accuracy: 90, TestMode: model.TestModeWords, Language: "python", Difficulty: "easy", DurationSeconds: 20},
		{WPM: 45, Accuracy: 96, TestMode: model.TestModeWords, Language: "go", Difficulty: "easy", DurationSeconds: 25},
		{WPM: 50, Accuracy: 98, TestMode: model.TestModeWords, Language: "Python", Difficulty: "hard", DurationSeconds: 40},
		{WPM: 60, Accuracy: 100, TestMode: model.TestModeCustom, Language: "python", Difficulty: "custom", DurationSeconds: 15},
	}
	for i, sub := range subs {
		clock = now.Add(time.Duration(i-3) * 24 * time.Hour)
		if err := st.SubmitTestResult(ctx, sub); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	clock = now

	cfg := model.StatsConfig{Language: "python", Last: 2, CurveWindow: 3}
	report, err := stats.BuildReport(ctx, st, cfg, now)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}

	if report.Overall.Total != 4 {
		t.Fatalf("expected 4 overall results, got %d", report.Overall.Total)
	}
	if best, _ := report.Overall.BestWPM.Get(); best != 60 {
		t.Fatalf("expected overall best 60, got %d", best)
	}
	if len(report.Records) != 2 || report.Records[0].WPM != 50 || report.Records[1].WPM != 60 {
		t.Fatalf("unexpected filtered records: %+v", report.Records)
	}
	if report.Summary.Total != 2 {
		t.Fatalf("expected filtered total 2, got %d", report.Summary.Total)
	}
	if len(report.Today) != 1 || report.Today[0].WPM != 60 {
		t.Fatalf("unexpected today results: %+v", report.Today)
	}
	if report.Streak != 4 {
		t.Fatalf("expected streak 4, got %d", report.Streak)
	}
	if len(report.Calendar) != stats.CalendarDays {
		t.Fatalf("expected %d calendar days, got %d", stats.CalendarDays, len(report.Calendar))
	}
	if last := report.Calendar[len(report.Calendar)-1]; last.Day != stats.DayIndex(now) || !last.Active {
		t.Fatalf("expected today active at the end of the calendar, got %+v", last)
	}
	if report.Window != 3 {
		t.Fatalf("expected window 3, got %d", report.Window)
	}
}

func TestLoadSummaryEmpty(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "codetype.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	summary, err := stats.LoadSummary(context.Background(), st)
	if err != nil {
		t.Fatalf("load summary: %v", err)
	}
	if summary.Total != 0 || summary.BestWPM.IsPresent() || summary.AverageWPM.IsPresent() {
		t.Fatalf("expected empty summary, got %+v", summary)
	}
}
