package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Session", "Studied", "Pomodoros"}
	rows := [][]string{
		{"101", "01:30:00", "3"},
		{"Português", "00:05:10", "0"},
	}
	rightAlign := map[int]bool{1: true, 2: true}

	lines := formatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Session    Studied Pomodoros" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "101       01:30:00         3" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "Português 00:05:10         0" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableWideRunes(t *testing.T) {
	lines := formatTable([]string{"Title", "N"}, [][]string{{"日本語", "1"}, {"abc", "22"}}, map[int]bool{1: true})
	if lines[1] != "日本語  1" {
		t.Fatalf("expected wide runes to count double: %q", lines[1])
	}
	if lines[2] != "abc    22" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("Direito Constitucional", 10); got != "Direito C…" {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := Truncate("anything", 0); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}
