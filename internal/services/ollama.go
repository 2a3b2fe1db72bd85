package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/zackedds/no-rulez-web/pkg/chat"
)

// OllamaService implements LLMService on top of the Ollama client library
type OllamaService struct {
	client    *api.Client
	modelName string
	logger    *slog.Logger

	readyRetries int
	retryDelay   time.Duration
}

var _ LLMService = (*OllamaService)(nil)

// NewOllamaService creates a new Ollama service instance
func NewOllamaService(baseURL string, modelName string, timeout time.Duration, logger *slog.Logger) (*OllamaService, error) {
	// api.NewClient wants the server root, not the OpenAI-compatible /v1 path
	baseURL = strings.TrimSuffix(strings.TrimSuffix(baseURL, "/"), "/v1")
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url %q: %w", baseURL, err)
	}

	return &OllamaService{
		client:       api.NewClient(parsed, &http.Client{Timeout: timeout}),
		modelName:    modelName,
		logger:       logger,
		readyRetries: 5,
		retryDelay:   2 * time.Second,
	}, nil
}

func (s *OllamaService) Name() string { return "ollama" }

// InitModel waits for the server and pulls the model if it is missing
func (s *OllamaService) InitModel(ctx context.Context, modelName string) error {
	s.logger.Info("Initializing LLM model", "model", modelName)

	if err := s.waitForOllamaReady(ctx); err != nil {
		return fmt.Errorf("ollama service is not ready: %w", err)
	}

	ready, err := s.isModelReady(ctx, modelName)
	if err != nil {
		return fmt.Errorf("failed to check model readiness: %w", err)
	}
	if ready {
		s.logger.Info("Model already available", "model", modelName)
		return nil
	}

	s.logger.Info("Model not found, pulling it", "model", modelName)
	err = s.client.Pull(ctx, &api.PullRequest{Model: modelName}, func(p api.ProgressResponse) error {
		s.logger.Debug("Pull progress", "model", modelName, "status", p.Status, "completed", p.Completed, "total", p.Total)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to pull model: %w", err)
	}
	s.logger.Info("Model pulled successfully", "model", modelName)
	return nil
}

// Chat generates a non-streaming reply
func (s *OllamaService) Chat(ctx context.Context, messages []chat.ChatMessage, opts chat.Options) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model:    s.modelName,
		Messages: make([]api.Message, 0, len(messages)),
		Stream:   &stream,
		Options: map[string]interface{}{
			"temperature": opts.Temperature,
		},
	}
	if opts.MaxTokens > 0 {
		req.Options["num_predict"] = opts.MaxTokens
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, api.Message{Role: m.Role, Content: m.Content})
	}

	s.logger.Debug("Making Ollama chat request", "model", s.modelName, "message_count", len(messages))

	var content strings.Builder
	var final api.ChatResponse
	err := s.client.Chat(ctx, req, func(r api.ChatResponse) error {
		content.WriteString(r.Message.Content)
		if r.Done {
			final = r
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Ollama chat failed", "model", s.modelName, "error", err)
		return "", fmt.Errorf("ollama chat failed: %w", err)
	}
	if strings.TrimSpace(content.String()) == "" {
		return "", ErrEmptyResponse
	}

	s.logger.Debug("Ollama response received",
		"model", s.modelName,
		"prompt_tokens", final.PromptEvalCount,
		"completion_tokens", final.EvalCount)

	return content.String(), nil
}

// isModelReady checks if the specified model is available locally
func (s *OllamaService) isModelReady(ctx context.Context, modelName string) (bool, error) {
	list, err := s.client.List(ctx)
	if err != nil {
		return false, err
	}
	for _, m := range list.Models {
		if m.Name == modelName || strings.TrimSuffix(m.Name, ":latest") == modelName {
			return true, nil
		}
	}
	return false, nil
}

// waitForOllamaReady waits for the Ollama server to answer with retries
func (s *OllamaService) waitForOllamaReady(ctx context.Context) error {
	for i := 0; i < s.readyRetries; i++ {
		err := s.client.Heartbeat(ctx)
		if err == nil {
			s.logger.Info("Ollama service is ready")
			return nil
		}
		s.logger.Debug("Ollama not ready yet", "error", err, "attempt", i+1)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.retryDelay):
		}
	}

	return fmt.Errorf("ollama service did not become ready after %d attempts", s.readyRetries)
}
