package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/zackedds/no-rulez-web/pkg/chat"
)

// GeminiService implements LLMService for Google Gemini
type GeminiService struct {
	client    *genai.Client
	modelName string
	timeout   time.Duration
	logger    *slog.Logger
}

var _ LLMService = (*GeminiService)(nil)

// NewGeminiService bounds every Chat call by timeout. The genai client owns its
// transport, so the limit is applied to the call context instead.
func NewGeminiService(ctx context.Context, apiKey, modelName string, timeout time.Duration, logger *slog.Logger) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiService{client: client, modelName: modelName, timeout: timeout, logger: logger}, nil
}

func (g *GeminiService) Name() string { return "gemini" }

func (g *GeminiService) InitModel(ctx context.Context, modelName string) error {
	return nil
}

func (g *GeminiService) Close() error {
	return g.client.Close()
}

// Chat builds a fresh model handle per call so per-call options never leak
// between concurrent requests.
func (g *GeminiService) Chat(ctx context.Context, messages []chat.ChatMessage, opts chat.Options) (string, error) {
	system, history, last, err := geminiConversation(messages)
	if err != nil {
		return "", err
	}

	model := g.client.GenerativeModel(g.modelName)
	model.SetTemperature(float32(opts.Temperature))
	if opts.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(opts.MaxTokens))
	}
	if system != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(system))
	}

	ctx, cancel := g.callContext(ctx)
	defer cancel()

	session := model.StartChat()
	session.History = history
	resp, err := session.SendMessage(ctx, genai.Text(last))
	if err != nil {
		g.logger.Error("Gemini request failed", "model", g.modelName, "error", err)
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}

	text := geminiText(resp)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (g *GeminiService) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

// geminiConversation maps chat messages onto Gemini's shape: system prompt
// out-of-band, prior turns as history, and the final user message to send.
func geminiConversation(messages []chat.ChatMessage) (string, []*genai.Content, string, error) {
	system, rest := chat.SplitSystem(messages)
	if len(rest) == 0 || rest[len(rest)-1].Role != chat.ChatRoleUser {
		return "", nil, "", fmt.Errorf("gemini conversation must end with a user message")
	}

	history := make([]*genai.Content, 0, len(rest)-1)
	for _, m := range rest[:len(rest)-1] {
		role := "user"
		if m.Role == chat.ChatRoleAgent {
			role = "model"
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}
	return system, history, rest[len(rest)-1].Content, nil
}

// geminiText concatenates the text parts of the first candidate.
func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}
