package services

import (
	"log/slog"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/zackedds/no-rulez-web/pkg/chat"
)

const fallbackEncoding = "cl100k_base"

// TokenCounter estimates prompt size before a referee call.
type TokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTokenCounter picks the model's encoding, falling back to cl100k_base.
// When no encoding can be loaded the counter estimates four characters per
// token.
func NewTokenCounter(model string, logger *slog.Logger) *TokenCounter {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
	}
	if err != nil {
		logger.Warn("Token encoding unavailable, estimating prompt size", "model", model, "error", err)
		return &TokenCounter{}
	}
	return &TokenCounter{enc: enc}
}

// Count returns the approximate token count of the messages.
func (c *TokenCounter) Count(messages []chat.ChatMessage) int {
	total := 0
	for _, m := range messages {
		if c != nil && c.enc != nil {
			total += len(c.enc.Encode(m.Content, nil, nil))
		} else {
			total += (utf8.RuneCountInString(m.Content) + 3) / 4
		}
		// role and separators
		total += 4
	}
	return total
}
