package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"

	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/model"
)

const (
	defaultChartHeight = 8
	minChartWidth      = 10
	chartAxisSeparator = " │ "
	colorReset         = "\x1b[0m"
)

// Series is a named run of values drawn as one chart line.
type Series struct {
	Name   string
	Values []float64
}

var seriesColors = []string{
	"\x1b[33m",
	"\x1b[36m",
	"\x1b[35m",
}

// ChartWidthFor returns the plot width that fits totalWidth cells once the
// axis labels for maxValue are drawn.
func ChartWidthFor(totalWidth int, maxValue float64) int {
	if totalWidth <= 0 {
		return minChartWidth
	}
	axis := utf8.RuneCountInString(axisLabel(maxValue)) + utf8.RuneCountInString(chartAxisSeparator)
	if w := totalWidth - axis; w > minChartWidth {
		return w
	}
	return minChartWidth
}

// MovingAverage returns the trailing mean of values over window points.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		return append([]float64(nil), values...)
	}
	out := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		n := i + 1
		if n > window {
			n = window
		}
		out[i] = sum / float64(n)
	}
	return out
}

// RenderDailyChart draws minutes studied per day, with a trailing average over
// window days, as a braille chart sharing one minute axis. forceColor colors
// the lines even when w is not a terminal.
func RenderDailyChart(w io.Writer, days []model.DayTotal, window, totalWidth, height int, forceColor bool) error {
	if len(days) == 0 {
		return nil
	}
	minutes := make([]float64, len(days))
	for i, d := range days {
		minutes[i] = float64(d.StudiedSeconds) / 60
	}
	series := []Series{{Name: "minutes/day", Values: minutes}}
	if window > 1 && len(days) > 1 {
		series = append(series, Series{Name: fmt.Sprintf("%d-day average", window), Values: MovingAverage(minutes, window)})
	}
	title := fmt.Sprintf("Study minutes %s to %s", days[0].Day.Format("2006-01-02"), days[len(days)-1].Day.Format("2006-01-02"))
	return plotChart(w, title, series, totalWidth, height, shouldUseColor(w, forceColor))
}

func plotChart(w io.Writer, title string, series []Series, totalWidth, height int, useColor bool) error {
	if height <= 0 {
		height = defaultChartHeight
	}
	maxVal := 0.0
	for _, s := range series {
		for _, v := range s.Values {
			maxVal = math.Max(maxVal, v)
		}
	}
	if maxVal <= 0 {
		maxVal = 1
	}
	width := ChartWidthFor(totalWidth, maxVal)

	// Each cell holds a 2x4 braille dot grid.
	dotsHigh := height * 4
	grids := make([][][]uint8, len(series))
	for si, s := range series {
		grid := make([][]uint8, height)
		for y := range grid {
			grid[y] = make([]uint8, width)
		}
		points := resample(s.Values, width*2)
		prevX, prevY := -1, -1
		for x, v := range points {
			y := dotsHigh - 1 - int(math.Round(v/maxVal*float64(dotsHigh-1)))
			if prevX >= 0 {
				line(prevX, prevY, x, y, func(px, py int) { setDot(grid, px, py) })
			} else {
				setDot(grid, x, y)
			}
			prevX, prevY = x, y
		}
		grids[si] = grid
	}

	if title != "" {
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
	}
	labelWidth := utf8.RuneCountInString(axisLabel(maxVal))
	for y := 0; y < height; y++ {
		label := ""
		switch y {
		case 0:
			label = axisLabel(maxVal)
		case height / 2:
			if height > 2 {
				label = axisLabel(maxVal / 2)
			}
		case height - 1:
			label = axisLabel(0)
		}
		var row strings.Builder
		row.WriteString(fmt.Sprintf("%*s%s", labelWidth, label, chartAxisSeparator))
		for x := 0; x < width; x++ {
			var mask uint8
			owner := -1
			for si, grid := range grids {
				if grid[y][x] != 0 {
					mask |= grid[y][x]
					if owner < 0 {
						owner = si
					}
				}
			}
			ch := rune(0x2800 + int(mask))
			if useColor && owner >= 0 {
				row.WriteString(seriesColors[owner%len(seriesColors)])
				row.WriteRune(ch)
				row.WriteString(colorReset)
				continue
			}
			row.WriteRune(ch)
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(row.String(), " ")); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, legend(series, useColor))
	return err
}

func axisLabel(minutes float64) string {
	return fmt.Sprintf("%.0fm", minutes)
}

func legend(series []Series, useColor bool) string {
	parts := make([]string, 0, len(series))
	for i, s := range series {
		label := "⠉ " + s.Name
		if useColor {
			label = seriesColors[i%len(seriesColors)] + label + colorReset
		}
		parts = append(parts, label)
	}
	return "Legend: " + strings.Join(parts, "  ")
}

// resample stretches or averages values onto n evenly spaced points.
func resample(values []float64, n int) []float64 {
	out := make([]float64, n)
	if len(values) == 0 || n <= 0 {
		return out
	}
	if len(values) == 1 || n == 1 {
		for i := range out {
			out[i] = values[0]
		}
		return out
	}
	if len(values) > n {
		for i := range out {
			start := i * len(values) / n
			end := (i + 1) * len(values) / n
			if end <= start {
				end = start + 1
			}
			var sum float64
			for _, v := range values[start:end] {
				sum += v
			}
			out[i] = sum / float64(end-start)
		}
		return out
	}
	for i := range out {
		pos := float64(i) * float64(len(values)-1) / float64(n-1)
		idx := int(pos)
		if idx >= len(values)-1 {
			out[i] = values[len(values)-1]
			continue
		}
		frac := pos - float64(idx)
		out[i] = values[idx]*(1-frac) + values[idx+1]*frac
	}
	return out
}

// line walks the cells between two dots with Bresenham's algorithm.
func line(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := x1 - x0
	if dx < 0 {
		dx = -dx
	}
	dy := y1 - y0
	if dy > 0 {
		dy = -dy
	}
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

var dotBits = [2][4]uint8{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

func setDot(grid [][]uint8, x, y int) {
	if x < 0 || y < 0 || y/4 >= len(grid) || x/2 >= len(grid[y/4]) {
		return
	}
	grid[y/4][x/2] |= dotBits[x%2][y%4]
}

func shouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}
