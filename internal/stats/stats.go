// Package stats contains study history calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/model"
	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/visual"
)

const sparkChars = " .:-=+*#%@"

// Summary aggregates a set of completed sessions.
type Summary struct {
	Sessions       int
	StudiedSeconds int64
	Pomodoros      int
	Unsynced       int
	LongestSeconds int64
}

// Average returns the mean studied time per session.
func (s Summary) Average() time.Duration {
	if s.Sessions == 0 {
		return 0
	}
	return time.Duration(s.StudiedSeconds/int64(s.Sessions)) * time.Second
}

// Summarize totals the completed sessions.
func Summarize(sessions []model.CompletedSession) Summary {
	var sum Summary
	for _, s := range sessions {
		sum.Sessions++
		sum.StudiedSeconds += s.StudiedSeconds
		sum.Pomodoros += s.Pomodoros
		if !s.Synced {
			sum.Unsynced++
		}
		if s.StudiedSeconds > sum.LongestSeconds {
			sum.LongestSeconds = s.StudiedSeconds
		}
	}
	return sum
}

// DailyTotals groups sessions by calendar day in loc, oldest day first. Days
// without sessions between the first and last day are included with zero time.
func DailyTotals(sessions []model.CompletedSession, loc *time.Location) []model.DayTotal {
	if len(sessions) == 0 {
		return nil
	}
	if loc == nil {
		loc = time.Local
	}
	byDay := map[time.Time]*model.DayTotal{}
	var first, last time.Time
	for _, s := range sessions {
		t := s.CompletedAt.In(loc)
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
		total, ok := byDay[day]
		if !ok {
			total = &model.DayTotal{Day: day}
			byDay[day] = total
		}
		total.StudiedSeconds += s.StudiedSeconds
		total.Sessions++
		if first.IsZero() || day.Before(first) {
			first = day
		}
		if day.After(last) {
			last = day
		}
	}
	var days []model.DayTotal
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		if total, ok := byDay[day]; ok {
			days = append(days, *total)
			continue
		}
		days = append(days, model.DayTotal{Day: day})
	}
	return days
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	maxVal := values[0]
	for _, v := range values[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	if maxVal <= 0 {
		return strings.Repeat(string(sparkChars[0]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		idx := int(math.Round(v / maxVal * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints the history totals.
func RenderSummary(w io.Writer, sum Summary) error {
	if sum.Sessions == 0 {
		_, err := fmt.Fprintln(w, "No completed sessions found.")
		return err
	}
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d", sum.Sessions),
		fmt.Sprintf("Studied: %s", visual.FormatElapsed(time.Duration(sum.StudiedSeconds)*time.Second)),
		fmt.Sprintf("Avg per session: %s", visual.FormatElapsed(sum.Average())),
		fmt.Sprintf("Longest: %s", visual.FormatElapsed(time.Duration(sum.LongestSeconds)*time.Second)),
		fmt.Sprintf("Pomodoros: %d", sum.Pomodoros),
	}
	if sum.Unsynced > 0 {
		lines = append(lines, fmt.Sprintf("Not sent to server: %d", sum.Unsynced))
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderDaily prints minutes studied per day as horizontal bars no wider than
// barWidth cells.
func RenderDaily(w io.Writer, days []model.DayTotal, barWidth int) error {
	if len(days) == 0 {
		return nil
	}
	if barWidth < 1 {
		barWidth = 1
	}
	var maxSeconds int64
	minutes := make([]float64, len(days))
	for i, d := range days {
		minutes[i] = float64(d.StudiedSeconds) / 60
		if d.StudiedSeconds > maxSeconds {
			maxSeconds = d.StudiedSeconds
		}
	}
	if _, err := fmt.Fprintf(w, "Per Day  %s\n", Sparkline(minutes)); err != nil {
		return err
	}
	for _, d := range days {
		bar := 0
		if maxSeconds > 0 {
			bar = int(math.Round(float64(d.StudiedSeconds) / float64(maxSeconds) * float64(barWidth)))
		}
		if bar == 0 && d.StudiedSeconds > 0 {
			bar = 1
		}
		line := fmt.Sprintf("%s %4d min %s", d.Day.Format("2006-01-02"), d.StudiedSeconds/60, strings.Repeat("#", bar))
		if _, err := fmt.Fprintln(w, strings.TrimRight(line, " ")); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderHistoryTable prints one row per completed session, newest first.
func RenderHistoryTable(w io.Writer, sessions []model.CompletedSession, titleWidth int) error {
	if len(sessions) == 0 {
		return nil
	}
	ordered := make([]model.CompletedSession, len(sessions))
	copy(ordered, sessions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CompletedAt.After(ordered[j].CompletedAt)
	})

	if _, err := fmt.Fprintln(w, "Completed Sessions"); err != nil {
		return err
	}
	headers := []string{"Completed", "Session", "Title", "Studied", "Pomodoros", "Synced"}
	rows := make([][]string, 0, len(ordered))
	for _, s := range ordered {
		title := s.Title
		if titleWidth > 0 {
			title = Truncate(title, titleWidth)
		}
		synced := "yes"
		if !s.Synced {
			synced = "no"
		}
		rows = append(rows, []string{
			s.CompletedAt.Local().Format("2006-01-02 15:04"),
			s.SessionID,
			title,
			visual.FormatElapsed(time.Duration(s.StudiedSeconds) * time.Second),
			fmt.Sprintf("%d", s.Pomodoros),
			synced,
		})
	}
	for _, line := range formatTable(headers, rows, map[int]bool{3: true, 4: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}
