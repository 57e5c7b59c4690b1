package stats

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/model"
)

func TestRenderDailyChart(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	days := []model.DayTotal{
		{Day: day, StudiedSeconds: 30 * 60},
		{Day: day.AddDate(0, 0, 1), StudiedSeconds: 0},
		{Day: day.AddDate(0, 0, 2), StudiedSeconds: 90 * 60},
	}
	var buf bytes.Buffer
	if err := RenderDailyChart(&buf, days, 7, 60, 4, true); err != nil {
		t.Fatalf("RenderDailyChart failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"2025-03-01 to 2025-03-03", "90m", "0m", "Legend:", "7-day average"} {
		if !strings.Contains(out, want) {
			t.Fatalf("chart missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("NO_COLOR must disable escapes")
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 1+4+1 {
		t.Fatalf("expected title, 4 rows and legend, got %d lines", len(lines))
	}
}

func TestRenderDailyChartEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderDailyChart(&buf, nil, 7, 80, 4, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestChartWidthFor(t *testing.T) {
	axis := len("90m") + len([]rune(chartAxisSeparator))
	if got := ChartWidthFor(80, 90); got != 80-axis {
		t.Fatalf("expected %d, got %d", 80-axis, got)
	}
	if got := ChartWidthFor(0, 90); got != minChartWidth {
		t.Fatalf("expected min width, got %d", got)
	}
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{2, 4, 6, 8}, 2)
	want := []float64{2, 3, 5, 7}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("MovingAverage[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestResample(t *testing.T) {
	if got := resample([]float64{1, 3}, 3); got[1] != 2 {
		t.Fatalf("expected interpolated midpoint 2, got %v", got)
	}
	if got := resample([]float64{1, 3, 5, 7}, 2); got[0] != 2 || got[1] != 6 {
		t.Fatalf("expected bucket means [2 6], got %v", got)
	}
}
