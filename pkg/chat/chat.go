package chat

import (
	"fmt"
	"strings"
)

const (
	ChatRoleUser   = "user"      // Acting player
	ChatRoleAgent  = "assistant" // Referee
	ChatRoleSystem = "system"    // Referee instructions
)

// ChatMessage represents a single message sent to the text-generation service.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Options are the per-call generation settings.
type Options struct {
	MaxTokens   int
	Temperature float64
}

// DefaultTemperature is used by every referee and opponent call.
const DefaultTemperature = 1.0

// SplitSystem joins all system messages into one instruction block and
// returns the remaining conversation in order. Providers that take the
// system prompt out-of-band (Anthropic, Gemini) use this.
func SplitSystem(messages []ChatMessage) (string, []ChatMessage) {
	var systemParts []string
	var rest []ChatMessage

	for _, msg := range messages {
		if msg.Role == ChatRoleSystem {
			systemParts = append(systemParts, msg.Content)
		} else {
			rest = append(rest, msg)
		}
	}

	return strings.Join(systemParts, "\n\n"), rest
}

// Validate checks that a message list can be sent as-is.
func Validate(messages []ChatMessage) error {
	if len(messages) == 0 {
		return fmt.Errorf("messages cannot be empty")
	}
	for i, msg := range messages {
		switch msg.Role {
		case ChatRoleUser, ChatRoleAgent, ChatRoleSystem:
		default:
			return fmt.Errorf("message %d has unknown role %q", i, msg.Role)
		}
		if strings.TrimSpace(msg.Content) == "" {
			return fmt.Errorf("message %d has empty content", i)
		}
	}
	return nil
}
