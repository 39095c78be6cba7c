package parser

import (
	"fmt"
	"regexp"
	"strings"
)

var quickRefRegex = regexp.MustCompile(`^([A-Z][A-Z0-9]*)-(\d+)$`)

// NormalizeQuickRef normalizes ticket-style task refs to uppercase ABC-12 form
// Accepts formats like:
// - "web-42", "WEB-42" -> "WEB-42"
// - " ops2-7 " -> "OPS2-7"
// Returns error if format is invalid
func NormalizeQuickRef(ref string) (string, error) {
	if ref == "" {
		return "", nil
	}

	ref = strings.ToUpper(strings.TrimSpace(ref))
	if !quickRefRegex.MatchString(ref) {
		return "", fmt.Errorf("invalid quick ref %q. Use: ABC-12 (letters-numbers)", ref)
	}
	return ref, nil
}

// IsQuickRef checks if a string looks like a ticket-style quick ref
func IsQuickRef(ref string) bool {
	_, err := NormalizeQuickRef(ref)
	return ref != "" && err == nil
}
