package textfilter

import (
	"regexp"
	"strings"
)

const (
	MaxNameLength = 30
	// MaxActionLength applies to shared games.
	MaxActionLength = 200
	// MaxRefereeActionLength applies to the stateless referee.
	MaxRefereeActionLength = 500

	DefaultName = "Player"
)

var (
	nameDisallowed    = regexp.MustCompile(`[^a-zA-Z0-9 ]`)
	controlCharacters = regexp.MustCompile(`[\x00-\x1f\x7f]`)
)

// SanitizeName keeps ASCII letters, digits and spaces, truncated and trimmed.
// An empty result becomes "Player".
func SanitizeName(name string) string {
	name = nameDisallowed.ReplaceAllString(name, "")
	if len(name) > MaxNameLength {
		name = name[:MaxNameLength]
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultName
	}
	return name
}

// SanitizeAction strips control characters and truncates to limit characters.
func SanitizeAction(action string, limit int) string {
	action = controlCharacters.ReplaceAllString(action, "")
	if r := []rune(action); len(r) > limit {
		action = string(r[:limit])
	}
	return strings.TrimSpace(action)
}

// StripQuotes removes the quote marks a model likes to wrap its answer in.
func StripQuotes(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'`)
}
