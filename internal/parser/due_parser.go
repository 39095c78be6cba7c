package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	dateRegex     = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	relativeRegex = regexp.MustCompile(`^(\d+)\s*(hour|hours|h|day|days|d|week|weeks|w)$`)
)

// ParseDueDate parses the due date formats accepted by `task add`
// Supported formats:
// - dd/mm/yyyy (e.g., "15/12/2026")
// - today, tomorrow
// - X days (e.g., "3 days", "3days", "3d")
// - X hours (e.g., "24 hours", "4h")
// - X weeks (e.g., "2 weeks", "1w")
// Relative forms count from now; day and week forms land on the end of that day.
func ParseDueDate(input string, now time.Time) (*time.Time, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return nil, nil
	}

	switch input {
	case "today":
		due := endOfDay(now, 0)
		return &due, nil
	case "tomorrow":
		due := endOfDay(now, 1)
		return &due, nil
	}

	if due, err := parseDateFormat(input, now.Location()); err == nil {
		return due, nil
	}
	if due, err := parseRelativeTime(input, now); err == nil {
		return due, nil
	}

	return nil, fmt.Errorf("invalid date format. Use: dd/mm/yyyy, today, tomorrow, X days, X hours, or X weeks")
}

// parseDateFormat parses dd/mm/yyyy format
func parseDateFormat(input string, loc *time.Location) (*time.Time, error) {
	matches := dateRegex.FindStringSubmatch(input)
	if len(matches) != 4 {
		return nil, fmt.Errorf("invalid date format")
	}

	day, _ := strconv.Atoi(matches[1])
	month, _ := strconv.Atoi(matches[2])
	year, _ := strconv.Atoi(matches[3])

	if month < 1 || month > 12 {
		return nil, fmt.Errorf("month must be between 1 and 12")
	}
	due := time.Date(year, time.Month(month), day, 23, 59, 59, 0, loc)

	// time.Date normalizes 31/02 into March; reject instead
	if due.Day() != day || due.Month() != time.Month(month) || due.Year() != year {
		return nil, fmt.Errorf("invalid date")
	}
	return &due, nil
}

// parseRelativeTime parses relative time formats like "3 days", "24h", etc.
func parseRelativeTime(input string, now time.Time) (*time.Time, error) {
	matches := relativeRegex.FindStringSubmatch(input)
	if len(matches) != 3 {
		return nil, fmt.Errorf("invalid relative time format")
	}

	amount, err := strconv.Atoi(matches[1])
	if err != nil || amount < 1 {
		return nil, fmt.Errorf("amount must be a positive number")
	}

	switch matches[2] {
	case "hour", "hours", "h":
		if amount > 8760 { // Max 1 year in hours
			return nil, fmt.Errorf("hours must be between 1 and 8760")
		}
		due := now.Add(time.Duration(amount) * time.Hour)
		return &due, nil
	case "day", "days", "d":
		if amount > 365 {
			return nil, fmt.Errorf("days must be between 1 and 365")
		}
		due := endOfDay(now, amount)
		return &due, nil
	default:
		if amount > 52 {
			return nil, fmt.Errorf("weeks must be between 1 and 52")
		}
		due := endOfDay(now, amount*7)
		return &due, nil
	}
}

func endOfDay(now time.Time, addDays int) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+addDays, 23, 59, 59, 0, now.Location())
}

// FormatDueDate formats a due date relative to now for display
func FormatDueDate(due *time.Time, now time.Time) string {
	if due == nil {
		return ""
	}

	// Calendar days, not 24h blocks
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dueDay := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, now.Location())
	daysDiff := int(dueDay.Sub(today).Hours() / 24)

	dateStr := due.Format("02/01/2006")

	switch {
	case daysDiff < 0:
		return fmt.Sprintf("⚠️ OVERDUE (%s)", dateStr)
	case daysDiff == 0:
		return fmt.Sprintf("🔥 Due today (%s)", dateStr)
	case daysDiff == 1:
		return fmt.Sprintf("📅 Due tomorrow (%s)", dateStr)
	case daysDiff <= 7:
		return fmt.Sprintf("📅 Due %s (in %d days)", dateStr, daysDiff)
	default:
		return fmt.Sprintf("📅 Due %s", dateStr)
	}
}
