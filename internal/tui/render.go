package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/model"
	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/timer"
	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/visual"
)

// Cursor, elapsed, button, bar, minutes and pomodoro columns.
const fixedColumnsWidth = 2 + 1 + 8 + 2 + 20 + 2 + 16 + 2 + 12 + 2 + 4

var (
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	normalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	urgentStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
	pulseStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true).Reverse(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	noticeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

type rowData struct {
	session  model.PlanSession
	timer    timer.Timer
	selected bool
	pulse    bool
	pending  bool
}

func renderRow(row rowData, labelWidth int, bar progress.Model) string {
	state := visual.For(row.timer)
	p := visual.ProgressOf(row.timer.Elapsed, row.session.PlannedMinutes)

	cursor := "  "
	label := fitLabel(row.session.Label(), labelWidth)
	if row.selected {
		cursor = selectedStyle.Render("> ")
		label = selectedStyle.Render(label)
	}

	button := "[" + state.Label + "]"
	if row.pending {
		button = "[Completing…]"
	}
	button = emphasisStyle(state, row.pulse).Render(runewidth.FillRight(button, 20))

	pomodoros := ""
	if row.timer.Pomodoros > 0 {
		pomodoros = fmt.Sprintf("🍅 %d", row.timer.Pomodoros)
	}

	cells := []string{
		cursor + label,
		normalStyle.Render(visual.FormatElapsed(row.timer.Elapsed)),
		button,
		bar.ViewAs(p.Fraction),
		runewidth.FillLeft(p.String(), 12),
		pomodoros,
	}
	return strings.TrimRight(strings.Join(cells, "  "), " ")
}

func emphasisStyle(state visual.State, pulse bool) lipgloss.Style {
	switch state.Emphasis {
	case visual.EmphasisUrgent:
		if state.Pulse && pulse {
			return pulseStyle
		}
		return urgentStyle
	case visual.EmphasisMuted:
		return mutedStyle
	default:
		return normalStyle
	}
}

// fitLabel truncates or pads s to exactly width display cells.
func fitLabel(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.FillRight(runewidth.Truncate(s, width, "…"), width)
}
