package parser

import (
	"regexp"
	"strings"
	"time"
)

// ParsedTask is a task name with inline metadata pulled out
type ParsedTask struct {
	Name     string
	QuickRef string
	URL      string
	DueDate  *time.Time
	Errors   []string
}

var (
	inlineRefRegex = regexp.MustCompile(`\b([A-Za-z][A-Za-z0-9]*)-(\d+)\b`)
	inlineURLRegex = regexp.MustCompile(`https?://\S+`)
	inlineDueRegex = regexp.MustCompile(`due:(\S+)`)
)

// ParseTaskName extracts metadata from a task name using inline syntax
// Syntax: "Fix login redirect WEB-42 due:3days https://tracker/WEB-42"
// The first ticket-like token becomes the quick ref. Explicit flags on the
// command line win over anything found here.
func ParseTaskName(input string, now time.Time) ParsedTask {
	result := ParsedTask{Errors: []string{}}

	// URLs first so a ref inside a link is not taken as the task's ref
	if m := inlineURLRegex.FindString(input); m != "" {
		result.URL = m
		input = inlineURLRegex.ReplaceAllString(input, "")
	}

	if m := inlineDueRegex.FindStringSubmatch(input); len(m) > 1 {
		due, err := ParseDueDate(m[1], now)
		if err != nil {
			result.Errors = append(result.Errors, "Invalid due date '"+m[1]+"': "+err.Error())
		} else {
			result.DueDate = due
		}
		input = inlineDueRegex.ReplaceAllString(input, "")
	}

	if m := inlineRefRegex.FindString(input); m != "" {
		normalized, err := NormalizeQuickRef(m)
		if err != nil {
			result.Errors = append(result.Errors, "Invalid quick ref: "+m)
		} else {
			result.QuickRef = normalized
		}
		input = strings.Replace(input, m, "", 1)
	}

	result.Name = strings.Join(strings.Fields(input), " ")
	return result
}
