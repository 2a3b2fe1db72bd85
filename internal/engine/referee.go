package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zackedds/no-rulez-web/internal/services"
	"github.com/zackedds/no-rulez-web/pkg/prompts"
	"github.com/zackedds/no-rulez-web/pkg/state"
	"github.com/zackedds/no-rulez-web/pkg/textfilter"
)

// RefereeRequest resolves one action against a client-held snapshot.
type RefereeRequest struct {
	State      state.Snapshot
	PlayerName string
	PlayerNum  int
	Action     string
}

// RefereeResult is the outcome of a stateless referee call.
type RefereeResult struct {
	Narrative string               `json:"narrative"`
	Scene     string               `json:"scene"`
	State     state.SnapshotResult `json:"state"`
}

// OpponentRequest asks the AI opponent for its next move.
type OpponentRequest struct {
	State     state.Snapshot
	AIName    string
	PlayerNum int
}

// Referee resolves an action for hot-seat play. Nothing is stored; the
// caller owns the state and sends it back next turn.
func (e *Engine) Referee(ctx context.Context, req RefereeRequest) (*RefereeResult, error) {
	action := textfilter.SanitizeAction(req.Action, textfilter.MaxRefereeActionLength)
	if action == "" || (req.PlayerNum != 1 && req.PlayerNum != 2) {
		return nil, ErrInvalidInput
	}
	name := textfilter.SanitizeName(req.PlayerName)
	gs := req.State.ToGameState(req.PlayerNum)

	messages, err := prompts.New().
		WithCatalog(e.catalog).
		WithGameState(gs).
		WithMode(prompts.ModeClassic).
		WithAction(req.PlayerNum, name, action).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build referee prompt: %w", err)
	}

	reply, err := e.ask(ctx, messages, RefereeMaxTokens)
	if err != nil {
		e.log(ctx).Error("Referee call failed", "error", err)
		return nil, err
	}
	parsed, err := e.parse(reply)
	if err != nil {
		return nil, err
	}

	p1, p2 := state.ClampHP(gs.P1HP, gs.P2HP, parsed.Update)
	return &RefereeResult{
		Narrative: e.clean(parsed.Narrative),
		Scene:     e.clean(parsed.Scene),
		State: state.SnapshotResult{
			P1HP:       p1,
			P2HP:       p2,
			Situation:  e.clean(parsed.Update.Situation),
			LastAction: e.clean(parsed.Update.LastAction),
		},
	}, nil
}

// Opponent asks the text-generation service to play one side.
func (e *Engine) Opponent(ctx context.Context, req OpponentRequest) (string, error) {
	if req.PlayerNum != 1 && req.PlayerNum != 2 {
		return "", ErrInvalidInput
	}
	aiName := textfilter.SanitizeName(req.AIName)

	messages, err := prompts.OpponentMessages(e.catalog, req.State, aiName, req.PlayerNum)
	if err != nil {
		return "", fmt.Errorf("failed to build opponent prompt: %w", err)
	}

	reply, err := e.ask(ctx, messages, OpponentMaxTokens)
	if err != nil && !errors.Is(err, services.ErrEmptyResponse) {
		e.log(ctx).Error("Opponent call failed", "error", err)
		return "", err
	}

	action := textfilter.StripQuotes(reply)
	if strings.TrimSpace(action) == "" {
		action = DefaultOpponentAction
	}
	return e.clean(action), nil
}
