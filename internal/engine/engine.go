// Package engine resolves battle turns and keeps the shared game record in
// sync for both players.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/zackedds/no-rulez-web/internal/logger"
	"github.com/zackedds/no-rulez-web/internal/metrics"
	"github.com/zackedds/no-rulez-web/internal/services"
	"github.com/zackedds/no-rulez-web/internal/storage"
	"github.com/zackedds/no-rulez-web/pkg/chat"
	"github.com/zackedds/no-rulez-web/pkg/prompts"
	"github.com/zackedds/no-rulez-web/pkg/referee"
	"github.com/zackedds/no-rulez-web/pkg/textfilter"
)

const (
	TurnMaxTokens     = 1000
	RefereeMaxTokens  = 2000
	OpponentMaxTokens = 150

	// DefaultOpponentAction is used when the opponent model answers with nothing.
	DefaultOpponentAction = "I throw a rock"
)

var (
	ErrInvalidInput       = errors.New("missing or invalid fields")
	ErrInvalidCode        = errors.New("invalid game code")
	ErrRefereeUnavailable = errors.New("referee unavailable")
	ErrRefereeFumbled     = errors.New("referee fumbled: could not parse response")
	ErrCodeSpaceExhausted = storage.ErrCodeSpaceExhausted
	ErrImageUnavailable   = services.ErrImageNotConfigured
)

// Options carries the optional collaborators. Zero values are valid: no
// images, no metrics, no filtering.
type Options struct {
	Images        services.ImageService
	Metrics       *metrics.Metrics
	Tokens        *services.TokenCounter
	Catalog       *prompts.Catalog
	ContentRating string
	Now           func() time.Time
}

type Engine struct {
	store   *storage.GameStore
	llm     services.LLMService
	images  services.ImageService
	catalog *prompts.Catalog
	filter  *textfilter.ProfanityFilter
	metrics *metrics.Metrics
	tokens  *services.TokenCounter
	logger  *slog.Logger
	now     func() time.Time
}

func New(store *storage.GameStore, llm services.LLMService, logger *slog.Logger, opts Options) *Engine {
	e := &Engine{
		store:   store,
		llm:     llm,
		images:  opts.Images,
		catalog: opts.Catalog,
		metrics: opts.Metrics,
		tokens:  opts.Tokens,
		logger:  logger,
		now:     opts.Now,
	}
	if e.catalog == nil {
		e.catalog = prompts.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if textfilter.ShouldFilterContent(opts.ContentRating) {
		e.filter = textfilter.NewProfanityFilter()
	}
	return e
}

// Ping reports whether the game store is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	return e.store.Ping(ctx)
}

// ImagesEnabled reports whether an image service was configured.
func (e *Engine) ImagesEnabled() bool {
	return e.images != nil
}

// ask sends one request to the text-generation service.
// Any failure is reported as ErrRefereeUnavailable.
func (e *Engine) ask(ctx context.Context, messages []chat.ChatMessage, maxTokens int) (string, error) {
	provider := e.llm.Name()
	if e.tokens != nil {
		e.metrics.PromptTokens(provider, e.tokens.Count(messages))
	}

	start := time.Now()
	reply, err := e.llm.Chat(ctx, messages, chat.Options{
		MaxTokens:   maxTokens,
		Temperature: chat.DefaultTemperature,
	})
	e.metrics.RefereeCall(provider, time.Since(start), err)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRefereeUnavailable, err)
	}
	return reply, nil
}

// parse runs the response parser and records which strategy worked.
func (e *Engine) parse(reply string) (referee.Result, error) {
	res := referee.ParseResponse(reply)
	e.metrics.ParseStrategy(string(res.Strategy))
	if !res.OK() {
		e.logger.Warn("Referee response could not be parsed", "response_length", len(reply))
		return res, ErrRefereeFumbled
	}
	return res, nil
}

// clean applies the profanity filter when the content rating asks for it.
func (e *Engine) clean(s string) string {
	if e.filter == nil {
		return s
	}
	return e.filter.FilterText(s)
}

func (e *Engine) log(ctx context.Context) *slog.Logger {
	return logger.FromContext(ctx, e.logger)
}
