package services

import (
	"context"
	"errors"

	"github.com/zackedds/no-rulez-web/pkg/chat"
)

// ErrEmptyResponse is returned when a provider answers with no text.
var ErrEmptyResponse = errors.New("llm returned an empty response")

// LLMService defines the interface for the text-generation backends
type LLMService interface {
	// InitModel prepares the model on startup
	InitModel(ctx context.Context, modelName string) error

	// Chat sends the conversation and returns the reply text
	Chat(ctx context.Context, messages []chat.ChatMessage, opts chat.Options) (string, error)

	// Name identifies the provider in logs and metrics
	Name() string
}
