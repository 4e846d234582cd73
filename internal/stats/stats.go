// Package stats contains statistics calculations and reporting.
package stats

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/verte-zerg/codetype/internal/model"
)

const sparkChars = " .:-=+*#%@"

// CalendarDays is the span of the activity calendar.
const CalendarDays = 70

const secondsPerDay = 24 * 60 * 60

// Summary aggregates a set of records. Optional values are absent for an empty set.
type Summary struct {
	Total           int
	BestWPM         model.Option[int]
	AverageWPM      model.Option[float64]
	AverageAccuracy model.Option[float64]
}

// Summarize computes totals, best, and averages over records.
func Summarize(records []model.SessionRecord) Summary {
	if len(records) == 0 {
		return Summary{}
	}
	best := records[0].WPM
	var wpmSum, accSum float64
	for _, r := range records {
		if r.WPM > best {
			best = r.WPM
		}
		wpmSum += float64(r.WPM)
		accSum += float64(r.Accuracy)
	}
	n := float64(len(records))
	return Summary{
		Total:           len(records),
		BestWPM:         model.Present(best),
		AverageWPM:      model.Present(wpmSum / n),
		AverageAccuracy: model.Present(accSum / n),
	}
}

// Filter keeps records matching language and since, then the last n of them.
func Filter(records []model.SessionRecord, cfg model.StatsConfig) []model.SessionRecord {
	out := make([]model.SessionRecord, 0, len(records))
	for _, r := range records {
		if cfg.Language != "" && !strings.EqualFold(r.Language, cfg.Language) {
			continue
		}
		if cfg.Since != nil && r.Timestamp.Before(*cfg.Since) {
			continue
		}
		out = append(out, r)
	}
	if cfg.Last > 0 && len(out) > cfg.Last {
		out = out[len(out)-cfg.Last:]
	}
	return out
}

// DayIndex returns the UTC day number of t counted from the Unix epoch.
func DayIndex(t time.Time) int64 {
	secs := t.UTC().Unix()
	day := secs / secondsPerDay
	if secs < 0 && secs%secondsPerDay != 0 {
		day--
	}
	return day
}

// DayStart returns the UTC midnight of day.
func DayStart(day int64) time.Time {
	return time.Unix(day*secondsPerDay, 0).UTC()
}

// ActiveDays returns the distinct days with at least one record, ascending.
func ActiveDays(records []model.SessionRecord) []int64 {
	seen := make(map[int64]struct{}, len(records))
	days := make([]int64, 0, len(records))
	for _, r := range records {
		d := DayIndex(r.Timestamp)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days
}

// DailyStreak counts consecutive active days ending today, or yesterday when
// today has no activity yet. Any other gap yields 0.
func DailyStreak(days []int64, today int64) int {
	active := make(map[int64]struct{}, len(days))
	for _, d := range days {
		active[d] = struct{}{}
	}
	cur := today
	if _, ok := active[cur]; !ok {
		cur--
		if _, ok := active[cur]; !ok {
			return 0
		}
	}
	streak := 0
	for {
		if _, ok := active[cur]; !ok {
			return streak
		}
		streak++
		cur--
	}
}

// Calendar lists one active entry per day, ascending.
func Calendar(days []int64) []model.StreakDay {
	out := make([]model.StreakDay, 0, len(days))
	for _, d := range days {
		out = append(out, model.StreakDay{Day: d, Active: true})
	}
	return out
}

// ExpandCalendar fills the span days ending at today, marking the active ones.
func ExpandCalendar(active []model.StreakDay, today int64, span int) []model.StreakDay {
	if span <= 0 {
		return nil
	}
	set := make(map[int64]bool, len(active))
	for _, d := range active {
		if d.Active {
			set[d.Day] = true
		}
	}
	out := make([]model.StreakDay, span)
	first := today - int64(span) + 1
	for i := range out {
		day := first + int64(i)
		out[i] = model.StreakDay{Day: day, Active: set[day]}
	}
	return out
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := minMax(values)
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = clamp(idx, 0, len(sparkChars)-1)
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// WPMSeries extracts WPM values in record order.
func WPMSeries(records []model.SessionRecord) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = float64(r.WPM)
	}
	return out
}

// AccuracySeries extracts accuracy values in record order.
func AccuracySeries(records []model.SessionRecord) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = float64(r.Accuracy)
	}
	return out
}

func minMax(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
