package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/zackedds/no-rulez-web/pkg/chat"
)

// DeepSeekService implements LLMService for any OpenAI-compatible chat
// completions endpoint. DeepSeek is the default.
type DeepSeekService struct {
	client    *openai.Client
	modelName string
	baseURL   string
	logger    *slog.Logger
}

var _ LLMService = (*DeepSeekService)(nil)

func NewDeepSeekService(apiKey, baseURL, modelName string, timeout time.Duration, logger *slog.Logger) *DeepSeekService {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	return &DeepSeekService{
		client:    openai.NewClientWithConfig(cfg),
		modelName: modelName,
		baseURL:   cfg.BaseURL,
		logger:    logger,
	}
}

func (d *DeepSeekService) Name() string { return "deepseek" }

func (d *DeepSeekService) InitModel(ctx context.Context, modelName string) error {
	return nil
}

func (d *DeepSeekService) Chat(ctx context.Context, messages []chat.ChatMessage, opts chat.Options) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       d.modelName,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
		MaxTokens:   opts.MaxTokens,
		Temperature: float32(opts.Temperature),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	start := time.Now()
	resp, err := d.client.CreateChatCompletion(ctx, req)
	if err != nil {
		d.logger.Error("Chat completion failed", "model", d.modelName, "duration", time.Since(start), "error", err)
		return "", fmt.Errorf("deepseek chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}

	d.logger.Debug("Chat completion received",
		"model", d.modelName,
		"duration", time.Since(start),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	return resp.Choices[0].Message.Content, nil
}
