package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/zackedds/no-rulez-web/internal/services"
	"github.com/zackedds/no-rulez-web/pkg/state"
)

// illustrateTurn requests a scene image for a resolved turn. It never fails
// the turn: any problem yields a nil URL.
func (e *Engine) illustrateTurn(ctx context.Context, upd *state.StateUpdate) *string {
	if !upd.ImageSafe || strings.TrimSpace(upd.ImagePrompt) == "" {
		return nil
	}
	if e.images == nil {
		e.metrics.Image("skipped")
		return nil
	}

	url, err := e.images.Generate(ctx, upd.ImagePrompt)
	if err != nil {
		e.metrics.Image(imageOutcome(err))
		e.log(ctx).Warn("Scene image failed, continuing without it", "error", err)
		return nil
	}
	e.metrics.Image("generated")
	return &url
}

// Illustrate generates a standalone image in the house style.
func (e *Engine) Illustrate(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", ErrInvalidInput
	}
	if e.images == nil {
		return "", ErrImageUnavailable
	}

	url, err := e.images.Generate(ctx, e.catalog.StyledImagePrompt(prompt))
	if err != nil {
		e.metrics.Image(imageOutcome(err))
		return "", err
	}
	e.metrics.Image("generated")
	return url, nil
}

func imageOutcome(err error) string {
	switch {
	case errors.Is(err, services.ErrImageTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "failed"
	}
}
