package parser

import (
	"testing"
	"time"
)

var wednesday = time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)

func TestParseDueDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"15/12/2026", time.Date(2026, 12, 15, 23, 59, 59, 0, time.UTC)},
		{"today", time.Date(2026, 3, 4, 23, 59, 59, 0, time.UTC)},
		{"tomorrow", time.Date(2026, 3, 5, 23, 59, 59, 0, time.UTC)},
		{"3 days", time.Date(2026, 3, 7, 23, 59, 59, 0, time.UTC)},
		{"3days", time.Date(2026, 3, 7, 23, 59, 59, 0, time.UTC)},
		{"2w", time.Date(2026, 3, 18, 23, 59, 59, 0, time.UTC)},
		{"4 hours", wednesday.Add(4 * time.Hour)},
	}
	for _, tt := range tests {
		got, err := ParseDueDate(tt.in, wednesday)
		if err != nil {
			t.Errorf("ParseDueDate(%q): %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseDueDate(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestParseDueDateRejects(t *testing.T) {
	for _, in := range []string{"31/02/2026", "13/13/2026", "0 days", "400 days", "soon"} {
		if _, err := ParseDueDate(in, wednesday); err == nil {
			t.Errorf("ParseDueDate(%q): expected error", in)
		}
	}
	if got, err := ParseDueDate("  ", wednesday); got != nil || err != nil {
		t.Errorf("blank input: got %v, %v", got, err)
	}
}

func TestFormatDueDate(t *testing.T) {
	past := wednesday.AddDate(0, 0, -1)
	tomorrow := wednesday.AddDate(0, 0, 1)
	later := wednesday.AddDate(0, 1, 0)

	if got := FormatDueDate(&past, wednesday); got != "⚠️ OVERDUE (03/03/2026)" {
		t.Errorf("overdue: %q", got)
	}
	if got := FormatDueDate(&tomorrow, wednesday); got != "📅 Due tomorrow (05/03/2026)" {
		t.Errorf("tomorrow: %q", got)
	}
	if got := FormatDueDate(&later, wednesday); got != "📅 Due 04/04/2026" {
		t.Errorf("later: %q", got)
	}
	if got := FormatDueDate(nil, wednesday); got != "" {
		t.Errorf("nil: %q", got)
	}
}

func TestParseTaskName(t *testing.T) {
	got := ParseTaskName("Fix login redirect web-42 due:3days https://tracker.local/browse/OPS-1", wednesday)

	if got.Name != "Fix login redirect" {
		t.Errorf("Name: %q", got.Name)
	}
	if got.QuickRef != "WEB-42" {
		t.Errorf("QuickRef: %q", got.QuickRef)
	}
	if got.URL != "https://tracker.local/browse/OPS-1" {
		t.Errorf("URL: %q", got.URL)
	}
	if got.DueDate == nil || got.DueDate.Day() != 7 {
		t.Errorf("DueDate: %v", got.DueDate)
	}
	if len(got.Errors) != 0 {
		t.Errorf("Errors: %v", got.Errors)
	}
}

func TestParseTaskNameBadDue(t *testing.T) {
	got := ParseTaskName("Write report due:someday", wednesday)
	if got.Name != "Write report" {
		t.Errorf("Name: %q", got.Name)
	}
	if got.DueDate != nil || len(got.Errors) != 1 {
		t.Errorf("expected one error and no due date, got %v %v", got.DueDate, got.Errors)
	}
}

func TestParseTaskNamePlain(t *testing.T) {
	got := ParseTaskName("  Review   budget ", wednesday)
	if got.Name != "Review budget" || got.QuickRef != "" || got.DueDate != nil {
		t.Errorf("unexpected parse: %+v", got)
	}
}
