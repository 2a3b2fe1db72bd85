package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/zackedds/no-rulez-web/internal/logger"
	"github.com/zackedds/no-rulez-web/internal/storage"
	"github.com/zackedds/no-rulez-web/pkg/prompts"
	"github.com/zackedds/no-rulez-web/pkg/state"
	"github.com/zackedds/no-rulez-web/pkg/textfilter"
)

// TurnRequest is one player's submitted action.
type TurnRequest struct {
	Code      string
	PlayerNum int
	Action    string
}

// Create starts a new game waiting for a second player.
func (e *Engine) Create(ctx context.Context, playerName string) (*state.GameState, error) {
	name := textfilter.SanitizeName(playerName)
	now := e.now()

	gs, err := e.store.Create(ctx, func(code string) *state.GameState {
		return state.NewGameState(code, name, now)
	})
	if err != nil {
		return nil, err
	}

	e.metrics.GameCreated()
	logger.WithGame(e.log(ctx), gs.Code).Info("Game created", "p1_name", name)
	return gs, nil
}

// Join seats the second player and activates the game.
func (e *Engine) Join(ctx context.Context, code, playerName string) (*state.GameState, error) {
	code = storage.NormalizeCode(code)
	if !storage.ValidCode(code) {
		return nil, ErrInvalidCode
	}

	gs, err := e.store.Load(ctx, code)
	if err != nil {
		return nil, err
	}
	if gs == nil {
		return nil, state.ErrGameNotFound
	}

	name := textfilter.SanitizeName(playerName)
	if err := gs.Join(name, e.now()); err != nil {
		return nil, err
	}
	if err := e.store.Save(ctx, gs); err != nil {
		return nil, err
	}

	e.metrics.GameJoined()
	logger.WithGame(e.log(ctx), code).Info("Player joined", "p2_name", name)
	return gs, nil
}

// SubmitTurn resolves one action against the stored record. Every rejection
// and every collaborator failure leaves the record untouched; only a fully
// resolved turn is written back.
func (e *Engine) SubmitTurn(ctx context.Context, req TurnRequest) (*state.GameState, error) {
	code := storage.NormalizeCode(req.Code)
	action := textfilter.SanitizeAction(req.Action, textfilter.MaxActionLength)
	if code == "" || (req.PlayerNum != 1 && req.PlayerNum != 2) || action == "" {
		e.metrics.Turn("rejected")
		return nil, ErrInvalidInput
	}
	log := logger.WithGame(e.log(ctx), code)

	gs, err := e.store.Load(ctx, code)
	if err != nil {
		return nil, err
	}
	if gs == nil {
		e.metrics.Turn("rejected")
		return nil, state.ErrGameNotFound
	}
	if err := gs.CheckTurn(req.PlayerNum); err != nil {
		e.metrics.Turn("rejected")
		log.Debug("Turn rejected", "player_num", req.PlayerNum, "reason", err)
		return nil, err
	}

	messages, err := prompts.New().
		WithCatalog(e.catalog).
		WithGameState(gs).
		WithMode(prompts.ModeOnline).
		WithAction(req.PlayerNum, gs.PlayerName(req.PlayerNum), action).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build referee prompt: %w", err)
	}

	reply, err := e.ask(ctx, messages, TurnMaxTokens)
	if err != nil {
		e.metrics.Turn("unavailable")
		log.Error("Referee call failed", "error", err)
		return nil, err
	}

	parsed, err := e.parse(reply)
	if err != nil {
		e.metrics.Turn("fumbled")
		return nil, err
	}

	upd := parsed.Update
	upd.Situation = e.clean(upd.Situation)
	upd.LastAction = e.clean(upd.LastAction)

	res := state.Resolution{
		Narrative: e.clean(parsed.Narrative),
		Scene:     e.clean(parsed.Scene),
		Update:    upd,
		ImageURL:  e.illustrateTurn(ctx, upd),
	}
	if err := gs.ApplyTurn(req.PlayerNum, action, res, e.now()); err != nil {
		return nil, err
	}
	if err := e.store.Save(ctx, gs); err != nil {
		return nil, err
	}

	e.metrics.Turn("resolved")
	if gs.Status == state.StatusFinished {
		e.metrics.GameFinished()
		log.Info("Game finished", "winner", gs.Winner(), "turn", gs.Turn)
	}
	log.Info("Turn resolved",
		"player_num", req.PlayerNum,
		"turn", gs.Turn,
		"p1_hp", gs.P1HP,
		"p2_hp", gs.P2HP,
		"strategy", parsed.Strategy,
		"image", gs.ImageURL != nil)
	return gs, nil
}

// Poll returns the record when it changed after since. A nil since always
// returns the record. changed is false when the caller is already current.
func (e *Engine) Poll(ctx context.Context, code string, since *float64) (gs *state.GameState, changed bool, err error) {
	code = storage.NormalizeCode(code)
	if code == "" {
		return nil, false, ErrInvalidInput
	}

	gs, err = e.store.Load(ctx, code)
	if err != nil {
		return nil, false, err
	}
	if gs == nil {
		return nil, false, state.ErrGameNotFound
	}
	if since != nil && !gs.ChangedSince(*since) {
		return nil, false, nil
	}
	return gs, true, nil
}

// IsRejection reports whether err is a domain rejection rather than a fault.
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrInvalidInput, ErrInvalidCode,
		state.ErrGameNotFound, state.ErrGameFull, state.ErrGameFinished,
		state.ErrGameNotActive, state.ErrNotYourTurn, state.ErrInvalidPlayer,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
