package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/verte-zerg/codetype/internal/aggregator"
	"github.com/verte-zerg/codetype/internal/model"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func openTestStore(t *testing.T, clock *fakeClock) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "codetype.db"), WithClock(clock.Now))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func submission(wpm int, acc float64) aggregator.Submission {
	return aggregator.Submission{
		WPM:             wpm,
		Accuracy:        acc,
		TestMode:        model.TestModeWords,
		Language:        "python",
		Difficulty:      "easy",
		DurationSeconds: 30,
	}
}

func TestEmptyStoreQueries(t *testing.T) {
	st := openTestStore(t, &fakeClock{now: time.Now()})
	ctx := context.Background()

	best, err := st.BestWPM(ctx)
	if err != nil || best.IsPresent() {
		t.Fatalf("expected absent best wpm, got %v %v", best, err)
	}
	avg, err := st.AverageWPM(ctx)
	if err != nil || avg.IsPresent() {
		t.Fatalf("expected absent average wpm, got %v %v", avg, err)
	}
	acc, err := st.AverageAccuracy(ctx)
	if err != nil || acc.IsPresent() {
		t.Fatalf("expected absent average accuracy, got %v %v", acc, err)
	}
	total, err := st.TotalTests(ctx)
	if err != nil || total != 0 {
		t.Fatalf("expected zero total, got %d %v", total, err)
	}
	list, err := st.ListTestResults(ctx)
	if err != nil || len(list) != 0 {
		t.Fatalf("expected empty list, got %v %v", list, err)
	}
	streak, err := st.DailyStreak(ctx)
	if err != nil || streak != 0 {
		t.Fatalf("expected zero streak, got %d %v", streak, err)
	}
}

func TestSubmitAndQuery(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 10, 9, 0, 0, 500, time.UTC)}
	st := openTestStore(t, clock)
	ctx := context.Background()

	for _, sub := range []aggregator.Submission{submission(40, 90), submission(0, 100), submission(62, 95)} {
		if err := st.SubmitTestResult(ctx, sub); err != nil {
			t.Fatalf("submit: %v", err)
		}
		clock.now = clock.now.Add(time.Minute)
	}

	list, err := st.ListTestResults(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 || list[0].WPM != 40 || list[2].WPM != 62 {
		t.Fatalf("unexpected list %+v", list)
	}
	if !list[0].Timestamp.Equal(time.Date(2024, 5, 10, 9, 0, 0, 500, time.UTC)) {
		t.Fatalf("expected store-assigned timestamp, got %v", list[0].Timestamp)
	}
	if list[1].TestMode != model.TestModeWords || list[1].Language != "python" || list[1].DurationSeconds != 30 {
		t.Fatalf("fields not round-tripped: %+v", list[1])
	}

	best, err := st.BestWPM(ctx)
	if err != nil {
		t.Fatalf("best: %v", err)
	}
	if v, ok := best.Get(); !ok || v != 62 {
		t.Fatalf("expected best 62, got %v", best)
	}
	avg, err := st.AverageWPM(ctx)
	if err != nil {
		t.Fatalf("avg: %v", err)
	}
	if v, _ := avg.Get(); v < 33.9 || v > 34.1 {
		t.Fatalf("expected average 34, got %v", v)
	}
	acc, err := st.AverageAccuracy(ctx)
	if err != nil {
		t.Fatalf("accuracy: %v", err)
	}
	if v, _ := acc.Get(); v < 94.9 || v > 95.1 {
		t.Fatalf("expected average accuracy 95, got %v", v)
	}
	total, err := st.TotalTests(ctx)
	if err != nil || total != 3 {
		t.Fatalf("expected total 3, got %d %v", total, err)
	}
}

func TestSubmitRejectsInvalid(t *testing.T) {
	st := openTestStore(t, &fakeClock{now: time.Now()})
	bad := submission(10, 120)
	if err := st.SubmitTestResult(context.Background(), bad); err == nil {
		t.Fatalf("expected validation error")
	}
	bad = submission(10, 90)
	bad.TestMode = "marathon"
	if err := st.SubmitTestResult(context.Background(), bad); err == nil {
		t.Fatalf("expected mode validation error")
	}
}

func TestIndexedQueries(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)}
	st := openTestStore(t, clock)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		if err := st.SubmitTestResult(ctx, submission(10*(i+1), 100)); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	rec, err := st.GetTestResult(ctx, 2)
	if err != nil || rec.WPM != 30 {
		t.Fatalf("expected third result, got %+v %v", rec, err)
	}
	if _, err := st.GetTestResult(ctx, 4); !errors.Is(err, aggregator.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := st.GetTestResult(ctx, -1); !errors.Is(err, aggregator.ErrInvalidRange) {
		t.Fatalf("expected invalid range, got %v", err)
	}

	got, err := st.ListTestResultRange(ctx, 1, 3)
	if err != nil || len(got) != 2 || got[0].WPM != 20 || got[1].WPM != 30 {
		t.Fatalf("unexpected range %+v %v", got, err)
	}
	got, err = st.ListTestResultRange(ctx, 3, 10)
	if err != nil || len(got) != 1 {
		t.Fatalf("expected clipped range, got %+v %v", got, err)
	}
	got, err = st.ListTestResultRange(ctx, 2, 2)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty range, got %+v %v", got, err)
	}
	if _, err := st.ListTestResultRange(ctx, 3, 1); !errors.Is(err, aggregator.ErrInvalidRange) {
		t.Fatalf("expected invalid range, got %v", err)
	}
}

func TestTodayStreakAndCalendar(t *testing.T) {
	clock := &fakeClock{}
	st := openTestStore(t, clock)
	ctx := context.Background()

	for _, ts := range []time.Time{
		time.Date(2024, 5, 5, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 5, 8, 23, 59, 0, 0, time.UTC),
		time.Date(2024, 5, 9, 0, 1, 0, 0, time.UTC),
		time.Date(2024, 5, 9, 18, 0, 0, 0, time.UTC),
	} {
		clock.now = ts
		if err := st.SubmitTestResult(ctx, submission(50, 97)); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	clock.now = time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	streak, err := st.DailyStreak(ctx)
	if err != nil || streak != 2 {
		t.Fatalf("expected streak 2 ending yesterday, got %d %v", streak, err)
	}
	today, err := st.TodaysResults(ctx)
	if err != nil || len(today) != 0 {
		t.Fatalf("expected nothing today, got %+v %v", today, err)
	}

	clock.now = time.Date(2024, 5, 9, 20, 0, 0, 0, time.UTC)
	today, err = st.TodaysResults(ctx)
	if err != nil || len(today) != 2 {
		t.Fatalf("expected two results today, got %+v %v", today, err)
	}

	clock.now = time.Date(2024, 5, 12, 8, 0, 0, 0, time.UTC)
	streak, err = st.DailyStreak(ctx)
	if err != nil || streak != 0 {
		t.Fatalf("expected broken streak, got %d %v", streak, err)
	}

	cal, err := st.StreakCalendar(ctx)
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	if len(cal) != 3 {
		t.Fatalf("expected three active days, got %+v", cal)
	}
	for i := 1; i < len(cal); i++ {
		if cal[i-1].Day >= cal[i].Day || !cal[i].Active {
			t.Fatalf("calendar not ascending: %+v", cal)
		}
	}
}

func TestConcurrentSubmitsAllStored(t *testing.T) {
	st := openTestStore(t, &fakeClock{now: time.Now()})
	ctx := context.Background()

	const workers, perWorker = 8, 25
	errs := make(chan error, workers*perWorker)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if err := st.SubmitTestResult(ctx, submission(40+w, 95)); err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent submit failed: %v", err)
	}

	total, err := st.TotalTests(ctx)
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total != workers*perWorker {
		t.Fatalf("expected %d stored results, got %d", workers*perWorker, total)
	}
}

func TestSharedFileSubmitsWaitForLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codetype.db")
	var stores []*Store
	for i := 0; i < 2; i++ {
		st, err := Open(path)
		if err != nil {
			t.Fatalf("open store %d: %v", i, err)
		}
		t.Cleanup(func() {
			_ = st.Close()
		})
		stores = append(stores, st)
	}
	ctx := context.Background()

	const perStore = 20
	errs := make(chan error, len(stores)*perStore)
	var wg sync.WaitGroup
	for _, st := range stores {
		wg.Add(1)
		go func(st *Store) {
			defer wg.Done()
			for i := 0; i < perStore; i++ {
				if err := st.SubmitTestResult(ctx, submission(55, 97)); err != nil {
					errs <- err
				}
			}
		}(st)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("submit through second handle failed: %v", err)
	}
	total, err := stores[0].TotalTests(ctx)
	if err != nil || total != len(stores)*perStore {
		t.Fatalf("expected %d stored results, got %d %v", len(stores)*perStore, total, err)
	}
}
