// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/verte-zerg/codetype/internal/aggregator"
	"github.com/verte-zerg/codetype/internal/model"
	"github.com/verte-zerg/codetype/internal/stats"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// busyTimeoutMillis bounds how long a write waits on a locked database.
const busyTimeoutMillis = 5000

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store is the local aggregator backed by SQLite.
type Store struct {
	db     *sql.DB
	now    func() time.Time
	logger *zap.Logger
}

var _ aggregator.Aggregator = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used to stamp results and resolve "today".
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string, opts ...Option) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	store := &Store{db: db, now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(store)
	}

	// A single connection serializes writers; the pragmas stay on it for the store's lifetime.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	store.pragma(fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeoutMillis))
	store.pragma("PRAGMA journal_mode = WAL")
	store.pragma("PRAGMA synchronous = NORMAL")

	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// pragma applies a connection setting; failures are logged and ignored.
func (s *Store) pragma(stmt string) {
	if _, err := s.db.Exec(stmt); err != nil {
		s.logger.Debug("failed to apply pragma", zap.String("pragma", stmt), zap.Error(err))
	}
}

// isBusy reports whether err is SQLite giving up on a locked database.
func isBusy(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	code := serr.Code() & 0xff
	return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS test_results (
			id INTEGER PRIMARY KEY,
			wpm INTEGER NOT NULL,
			accuracy REAL NOT NULL,
			duration INTEGER NOT NULL,
			difficulty TEXT NOT NULL,
			test_mode TEXT NOT NULL,
			language TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_test_results_created_at ON test_results(created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to migrate db: %w", err)
		}
	}
	return nil
}

// SubmitTestResult validates and stores one result, stamping it with the store clock.
func (s *Store) SubmitTestResult(ctx context.Context, sub aggregator.Submission) error {
	if err := sub.Validate(); err != nil {
		return err
	}
	createdAt := s.now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO test_results (wpm, accuracy, duration, difficulty, test_mode, language, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sub.WPM,
		sub.Accuracy,
		sub.DurationSeconds,
		sub.Difficulty,
		string(sub.TestMode),
		sub.Language,
		createdAt.Format(timeLayout),
	)
	if err != nil {
		if isBusy(err) {
			return fmt.Errorf("%w: database is busy: %w", aggregator.ErrUnavailable, err)
		}
		return fmt.Errorf("failed to insert result: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read result id: %w", err)
	}
	s.logger.Debug("stored test result",
		zap.Int64("id", id),
		zap.Int("wpm", sub.WPM),
		zap.Float64("accuracy", sub.Accuracy),
		zap.String("mode", string(sub.TestMode)),
	)
	return nil
}

const selectRecords = `SELECT wpm, accuracy, duration, difficulty, test_mode, language, created_at FROM test_results`

// ListTestResults returns every result in submission order.
func (s *Store) ListTestResults(ctx context.Context) ([]model.SessionRecord, error) {
	return s.queryRecords(ctx, selectRecords+` ORDER BY id ASC`)
}

// GetTestResult returns the result at a zero-based submission index.
func (s *Store) GetTestResult(ctx context.Context, index int) (model.SessionRecord, error) {
	if index < 0 {
		return model.SessionRecord{}, fmt.Errorf("%w: negative index %d", aggregator.ErrInvalidRange, index)
	}
	records, err := s.queryRecords(ctx, selectRecords+` ORDER BY id ASC LIMIT 1 OFFSET ?`, index)
	if err != nil {
		return model.SessionRecord{}, err
	}
	if len(records) == 0 {
		return model.SessionRecord{}, fmt.Errorf("%w: index %d", aggregator.ErrNotFound, index)
	}
	return records[0], nil
}

// ListTestResultRange returns results with index in [start, end). An end past the
// last result is clipped.
func (s *Store) ListTestResultRange(ctx context.Context, start, end int) ([]model.SessionRecord, error) {
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: [%d, %d)", aggregator.ErrInvalidRange, start, end)
	}
	if end == start {
		return []model.SessionRecord{}, nil
	}
	return s.queryRecords(ctx, selectRecords+` ORDER BY id ASC LIMIT ? OFFSET ?`, end-start, start)
}

// BestWPM returns the highest stored WPM.
func (s *Store) BestWPM(ctx context.Context) (model.Option[int], error) {
	var best sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(wpm) FROM test_results`).Scan(&best); err != nil {
		return model.Absent[int](), fmt.Errorf("failed to query best wpm: %w", err)
	}
	if !best.Valid {
		return model.Absent[int](), nil
	}
	return model.Present(int(best.Int64)), nil
}

// AverageWPM returns the mean WPM across results.
func (s *Store) AverageWPM(ctx context.Context) (model.Option[float64], error) {
	return s.average(ctx, "wpm")
}

// AverageAccuracy returns the mean accuracy across results.
func (s *Store) AverageAccuracy(ctx context.Context) (model.Option[float64], error) {
	return s.average(ctx, "accuracy")
}

func (s *Store) average(ctx context.Context, column string) (model.Option[float64], error) {
	var avg sql.NullFloat64
	query := fmt.Sprintf(`SELECT AVG(%s) FROM test_results`, column)
	if err := s.db.QueryRowContext(ctx, query).Scan(&avg); err != nil {
		return model.Absent[float64](), fmt.Errorf("failed to query average %s: %w", column, err)
	}
	if !avg.Valid {
		return model.Absent[float64](), nil
	}
	return model.Present(avg.Float64), nil
}

// TotalTests counts stored results.
func (s *Store) TotalTests(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM test_results`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count results: %w", err)
	}
	return n, nil
}

// TodaysResults returns results stamped on the current UTC day.
func (s *Store) TodaysResults(ctx context.Context) ([]model.SessionRecord, error) {
	today := stats.DayIndex(s.now())
	from := stats.DayStart(today)
	to := stats.DayStart(today + 1)
	return s.queryRecords(ctx, selectRecords+` WHERE created_at >= ? AND created_at < ? ORDER BY id ASC`,
		from.Format(timeLayout), to.Format(timeLayout))
}

// DailyStreak counts consecutive active days ending today or yesterday.
func (s *Store) DailyStreak(ctx context.Context) (int, error) {
	days, err := s.activeDays(ctx)
	if err != nil {
		return 0, err
	}
	return stats.DailyStreak(days, stats.DayIndex(s.now())), nil
}

// StreakCalendar lists active days in ascending order.
func (s *Store) StreakCalendar(ctx context.Context) ([]model.StreakDay, error) {
	days, err := s.activeDays(ctx)
	if err != nil {
		return nil, err
	}
	return stats.Calendar(days), nil
}

func (s *Store) activeDays(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT substr(created_at, 1, 10) FROM test_results ORDER BY 1 ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query active days: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var days []int64
	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			return nil, fmt.Errorf("failed to scan day: %w", err)
		}
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, fmt.Errorf("failed to parse day %q: %w", date, err)
		}
		days = append(days, stats.DayIndex(parsed))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read active days: %w", err)
	}
	return days, nil
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]model.SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	records := []model.SessionRecord{}
	for rows.Next() {
		var rec model.SessionRecord
		var accuracy float64
		var mode, createdAt string
		if err := rows.Scan(&rec.WPM, &accuracy, &rec.DurationSeconds, &rec.Difficulty, &mode, &rec.Language, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		parsed, err := time.Parse(timeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse result time: %w", err)
		}
		rec.Accuracy = int(math.Round(accuracy))
		rec.TestMode = model.TestMode(mode)
		rec.Timestamp = parsed
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}
	return records, nil
}
