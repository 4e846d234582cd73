package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// Series is one plotted line. Lo and Hi pin the vertical range; when equal the
// range follows the data.
type Series struct {
	Name   string
	Values []float64
	Lo, Hi float64
}

const (
	defaultPlotHeight = 8
	minPlotWidth      = 10
	gutterWidth       = 5
	axisSeparator     = " │ "
	fallbackWidth     = 80
)

var seriesColors = []lipgloss.Color{"6", "5", "3", "2"}

// braille dot bits indexed by [row][column] within one 2x4 cell.
var brailleBits = [4][2]uint8{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

// PlotWidthFor returns the drawable width left after the axis gutter.
func PlotWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	w := totalWidth - gutterWidth - runewidth.StringWidth(axisSeparator)
	if w < minPlotWidth {
		return minPlotWidth
	}
	return w
}

// TerminalPlotWidth sizes a plot to stdout, or a fixed width when stdout is not a terminal.
func TerminalPlotWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		width = fallbackWidth
	}
	return PlotWidthFor(width)
}

// ColorEnabled reports whether w is a terminal and NO_COLOR is unset.
func ColorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// PlotSeries draws the series as overlaid braille lines. Each series is scaled on its own;
// the gutter shows the range of the first one.
func PlotSeries(w io.Writer, title string, series []Series, width, height int, color bool) error {
	var drawn []Series
	for _, s := range series {
		if len(s.Values) > 0 {
			drawn = append(drawn, s)
		}
	}
	if len(drawn) == 0 {
		return nil
	}
	if width < minPlotWidth {
		width = minPlotWidth
	}
	if height <= 0 {
		height = defaultPlotHeight
	}

	grids := make([][][]uint8, len(drawn))
	ranges := make([][2]float64, len(drawn))
	for i, s := range drawn {
		lo, hi := s.Lo, s.Hi
		if lo == hi {
			lo, hi = minMax(s.Values)
			if math.Abs(hi-lo) < 1e-9 {
				lo, hi = lo-1, hi+1
			}
		}
		ranges[i] = [2]float64{lo, hi}
		grids[i] = rasterize(resample(s.Values, width), lo, hi, width, height)
	}

	if title != "" {
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
	}
	for y := 0; y < height; y++ {
		var row strings.Builder
		row.WriteString(gutterLabel(y, height, ranges[0]))
		row.WriteString(axisSeparator)
		for x := 0; x < width; x++ {
			var mask uint8
			owner := -1
			for i, g := range grids {
				if g[y][x] != 0 {
					mask |= g[y][x]
					if owner < 0 {
						owner = i
					}
				}
			}
			cell := string(rune(0x2800 + int(mask)))
			if color && owner >= 0 {
				cell = lipgloss.NewStyle().Foreground(seriesColors[owner%len(seriesColors)]).Render(cell)
			}
			row.WriteString(cell)
		}
		if _, err := fmt.Fprintln(w, row.String()); err != nil {
			return err
		}
	}
	legend := make([]string, len(drawn))
	for i, s := range drawn {
		label := fmt.Sprintf("⠿ %s %.0f-%.0f", s.Name, ranges[i][0], ranges[i][1])
		if color {
			label = lipgloss.NewStyle().Foreground(seriesColors[i%len(seriesColors)]).Render(label)
		}
		legend[i] = label
	}
	_, err := fmt.Fprintln(w, strings.Repeat(" ", gutterWidth+runewidth.StringWidth(axisSeparator))+strings.Join(legend, "  "))
	return err
}

func gutterLabel(y, height int, r [2]float64) string {
	label := ""
	switch y {
	case 0:
		label = fmt.Sprintf("%.0f", r[1])
	case height - 1:
		label = fmt.Sprintf("%.0f", r[0])
	}
	return runewidth.FillLeft(label, gutterWidth)
}

// rasterize plots values onto a height x width grid of braille cells, joining
// neighbouring points with straight segments.
func rasterize(values []float64, lo, hi float64, width, height int) [][]uint8 {
	grid := make([][]uint8, height)
	for y := range grid {
		grid[y] = make([]uint8, width)
	}
	dotsTall := height * 4
	set := func(x, y int) {
		if x < 0 || y < 0 || x >= width*2 || y >= dotsTall {
			return
		}
		grid[y/4][x/2] |= brailleBits[y%4][x%2]
	}
	prevX, prevY := -1, -1
	for i, v := range values {
		pos := (v - lo) / (hi - lo)
		y := clamp(int(math.Round((1-pos)*float64(dotsTall-1))), 0, dotsTall-1)
		x := i * 2
		if prevX < 0 {
			set(x, y)
		} else {
			line(prevX, prevY, x, y, set)
		}
		prevX, prevY = x, y
	}
	return grid
}

// line walks a Bresenham segment from (x0,y0) to (x1,y1).
func line(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// resample stretches or squeezes values to exactly width points. Shrinking
// averages buckets; stretching interpolates linearly.
func resample(values []float64, width int) []float64 {
	out := make([]float64, width)
	n := len(values)
	switch {
	case n == width:
		copy(out, values)
	case n > width:
		for i := range out {
			start := i * n / width
			end := (i + 1) * n / width
			if end <= start {
				end = start + 1
			}
			var sum float64
			for _, v := range values[start:end] {
				sum += v
			}
			out[i] = sum / float64(end-start)
		}
	case n == 1 || width == 1:
		for i := range out {
			out[i] = values[0]
		}
	default:
		for i := range out {
			pos := float64(i) * float64(n-1) / float64(width-1)
			idx := int(pos)
			if idx >= n-1 {
				out[i] = values[n-1]
				continue
			}
			frac := pos - float64(idx)
			out[i] = values[idx]*(1-frac) + values[idx+1]*frac
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
