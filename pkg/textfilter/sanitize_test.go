package textfilter

import (
	"strings"
	"testing"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Ari", "Ari"},
		{"  Bo  ", "Bo"},
		{"<script>alert(1)</script>", "scriptalert1script"},
		{"Zoë the Brave!", "Zo the Brave"},
		{"", "Player"},
		{"!!!", "Player"},
		{strings.Repeat("a", 40), strings.Repeat("a", 30)},
		{strings.Repeat("b", 29) + "  c", strings.Repeat("b", 29)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := SanitizeName(tt.input); got != tt.expected {
				t.Errorf("SanitizeName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSanitizeAction(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		limit    int
		expected string
	}{
		{"plain", "I throw a rock", MaxActionLength, "I throw a rock"},
		{"control characters removed", "I\x00 throw\n a\t rock\x7f", MaxActionLength, "I throw a rock"},
		{"trimmed", "   duck   ", MaxActionLength, "duck"},
		{"truncated", strings.Repeat("x", 250), MaxActionLength, strings.Repeat("x", 200)},
		{"referee limit", strings.Repeat("y", 600), MaxRefereeActionLength, strings.Repeat("y", 500)},
		{"multibyte counted as characters", strings.Repeat("é", 201), MaxActionLength, strings.Repeat("é", 200)},
		{"only whitespace", " \n\t ", MaxActionLength, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeAction(tt.input, tt.limit); got != tt.expected {
				t.Errorf("SanitizeAction() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestStripQuotes(t *testing.T) {
	tests := map[string]string{
		`"I punch the moon"`:  "I punch the moon",
		`'I punch the moon'`:  "I punch the moon",
		`  "quoted"  `:        "quoted",
		`I say "hi" to you`:   `I say "hi" to you`,
		`""`:                  "",
	}
	for input, expected := range tests {
		if got := StripQuotes(input); got != expected {
			t.Errorf("StripQuotes(%q) = %q, want %q", input, got, expected)
		}
	}
}
