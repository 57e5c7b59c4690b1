package stats

import (
	"context"
	"io"
	"time"

	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/model"
)

// HistoryLister lists completed sessions.
type HistoryLister interface {
	ListCompleted(ctx context.Context, cfg model.HistoryConfig) ([]model.CompletedSession, error)
}

// Report contains precomputed data for history rendering.
type Report struct {
	Sessions []model.CompletedSession
	Summary  Summary
	Days     []model.DayTotal
}

// BuildReport loads and prepares data for history rendering.
func BuildReport(ctx context.Context, st HistoryLister, cfg model.HistoryConfig, loc *time.Location) (Report, error) {
	sessions, err := st.ListCompleted(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	return Report{
		Sessions: sessions,
		Summary:  Summarize(sessions),
		Days:     DailyTotals(sessions, loc),
	}, nil
}

// RenderReport prints the summary, per-day bars and the session table sized to
// totalWidth terminal cells. A non-positive width uses 80.
func RenderReport(w io.Writer, report Report, totalWidth int) error {
	if totalWidth <= 0 {
		totalWidth = 80
	}
	if err := RenderSummary(w, report.Summary); err != nil {
		return err
	}
	if report.Summary.Sessions == 0 {
		return nil
	}
	barWidth := totalWidth - len("2006-01-02    0 min ")
	if err := RenderDaily(w, report.Days, barWidth); err != nil {
		return err
	}
	titleWidth := totalWidth / 3
	if titleWidth < 8 {
		titleWidth = 8
	}
	return RenderHistoryTable(w, report.Sessions, titleWidth)
}
