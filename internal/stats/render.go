package stats

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/codetype/internal/metrics"
	"github.com/verte-zerg/codetype/internal/model"
)

// NoData marks an absent statistic.
const NoData = "—"

const (
	calendarActive   = "■"
	calendarInactive = "·"
)

var activeDayStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))

// FormatInt renders a present int or NoData.
func FormatInt(o model.Option[int]) string {
	if v, ok := o.Get(); ok {
		return fmt.Sprintf("%d", v)
	}
	return NoData
}

// FormatFloat renders a present float with one decimal, or NoData.
func FormatFloat(o model.Option[float64], suffix string) string {
	if v, ok := o.Get(); ok {
		return fmt.Sprintf("%.1f%s", v, suffix)
	}
	return NoData
}

// RenderSummary prints the headline numbers.
func RenderSummary(w io.Writer, s Summary, streak int) error {
	if s.Total == 0 {
		_, err := fmt.Fprintln(w, "No results yet. Finish a test and save it to see stats.")
		return err
	}
	lines := []string{
		"Summary",
		fmt.Sprintf("Tests: %d", s.Total),
		fmt.Sprintf("Best WPM: %s", FormatInt(s.BestWPM)),
		fmt.Sprintf("Avg WPM: %s", FormatFloat(s.AverageWPM, "")),
		fmt.Sprintf("Avg Accuracy: %s", FormatFloat(s.AverageAccuracy, "%")),
		fmt.Sprintf("Streak: %s", pluralDays(streak)),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func pluralDays(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}

// HistoryRows formats records newest first, at most limit rows (0 means all).
func HistoryRows(records []model.SessionRecord, limit int, loc *time.Location) [][]string {
	if loc == nil {
		loc = time.Local
	}
	n := len(records)
	if limit > 0 && n > limit {
		n = limit
	}
	rows := make([][]string, 0, n)
	for i := len(records) - 1; i >= 0 && len(rows) < n; i-- {
		r := records[i]
		rows = append(rows, []string{
			r.Timestamp.In(loc).Format("2006-01-02 15:04"),
			string(r.TestMode),
			r.Language,
			r.Difficulty,
			fmt.Sprintf("%d", r.WPM),
			fmt.Sprintf("%d%%", r.Accuracy),
			metrics.FormatDuration(r.DurationSeconds),
		})
	}
	return rows
}

// HistoryHeaders names the HistoryRows columns.
var HistoryHeaders = []string{"Date", "Mode", "Language", "Difficulty", "WPM", "Accuracy", "Time"}

// RenderHistory prints recent results as a table.
func RenderHistory(w io.Writer, records []model.SessionRecord, limit int) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No results found.")
		return err
	}
	cols := make([]column, len(HistoryHeaders))
	for i, h := range HistoryHeaders {
		cols[i] = column{title: h, right: i >= 4}
	}
	for _, line := range formatTable(cols, HistoryRows(records, limit, time.Local)) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderCurves plots smoothed WPM and accuracy across records.
func RenderCurves(w io.Writer, records []model.SessionRecord, window, width, height int, color bool) error {
	if len(records) == 0 {
		return nil
	}
	return PlotSeries(w, "Progress", []Series{
		{Name: "WPM", Values: MovingAverage(WPMSeries(records), window)},
		{Name: "Accuracy", Values: MovingAverage(AccuracySeries(records), window), Lo: 0, Hi: 100},
	}, width, height, color)
}

// RenderCalendar prints days as a week-column heatmap, Monday on top.
func RenderCalendar(w io.Writer, days []model.StreakDay, color bool) error {
	if len(days) == 0 {
		return nil
	}
	grid := calendarGrid(days)
	labels := []string{"Mon", "", "Wed", "", "Fri", "", "Sun"}
	if _, err := fmt.Fprintf(w, "Activity (last %d days)\n", len(days)); err != nil {
		return err
	}
	for row := 0; row < 7; row++ {
		var b strings.Builder
		b.WriteString(fmt.Sprintf("%-4s", labels[row]))
		for _, cell := range grid[row] {
			b.WriteString(" ")
			switch cell {
			case cellActive:
				if color {
					b.WriteString(activeDayStyle.Render(calendarActive))
				} else {
					b.WriteString(calendarActive)
				}
			case cellInactive:
				b.WriteString(calendarInactive)
			default:
				b.WriteString(" ")
			}
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(b.String(), " ")); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

type cellState int

const (
	cellEmpty cellState = iota
	cellInactive
	cellActive
)

// calendarGrid arranges consecutive days into 7 weekday rows and one column per week.
func calendarGrid(days []model.StreakDay) [7][]cellState {
	var grid [7][]cellState
	col := -1
	for i, d := range days {
		row := mondayIndex(DayStart(d.Day).Weekday())
		if i == 0 || row == 0 {
			col++
			for r := range grid {
				grid[r] = append(grid[r], cellEmpty)
			}
		}
		state := cellInactive
		if d.Active {
			state = cellActive
		}
		grid[row][col] = state
	}
	return grid
}

func mondayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}
