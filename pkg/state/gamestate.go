package state

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle phase of a game.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

const (
	MaxHP = 100
	MinHP = 0

	// MaxTextLength bounds situation and last_action so the prompt stays small.
	MaxTextLength = 280

	DefaultSituation  = "An open arena, untouched and waiting for chaos."
	DefaultLastAction = "None yet. This is the first move!"
)

var (
	ErrGameNotFound  = errors.New("game not found")
	ErrGameFull      = errors.New("game is already full")
	ErrGameFinished  = errors.New("game is already over")
	ErrGameNotActive = errors.New("game hasn't started yet")
	ErrNotYourTurn   = errors.New("not your turn")
	ErrInvalidPlayer = errors.New("player number must be 1 or 2")
)

// GameState is the authoritative record shared by both players of one game.
type GameState struct {
	Code          string  `json:"code"`
	P1Name        string  `json:"p1_name"`
	P2Name        *string `json:"p2_name"` // nil until someone joins
	P1HP          int     `json:"p1_hp"`
	P2HP          int     `json:"p2_hp"`
	Situation     string  `json:"situation"`
	LastAction    string  `json:"last_action"`
	Turn          int     `json:"turn"`
	CurrentPlayer int     `json:"current_player"`
	Status        Status  `json:"status"`

	// Presentation for the most recent turn.
	Narrative   *string `json:"narrative"`
	Scene       *string `json:"scene"`
	ImageSafe   bool    `json:"image_safe"`
	ImagePrompt string  `json:"image_prompt,omitempty"`
	ImageURL    *string `json:"image_url"`

	// Visual descriptions carried forward between turns.
	P1Look string `json:"p1_look,omitempty"`
	P2Look string `json:"p2_look,omitempty"`

	// Audit of the last mutation. LastUpdated is unix seconds.
	LastUpdated     float64 `json:"last_updated"`
	LastActor       int     `json:"last_actor,omitempty"`
	LastActorAction string  `json:"last_actor_action,omitempty"`
}

// Resolution is everything a resolved turn contributes to the record.
type Resolution struct {
	Narrative string
	Scene     string
	Update    *StateUpdate
	ImageURL  *string
}

// NewGameState creates a game waiting for its second player.
func NewGameState(code, p1Name string, now time.Time) *GameState {
	return &GameState{
		Code:          code,
		P1Name:        p1Name,
		P1HP:          MaxHP,
		P2HP:          MaxHP,
		Situation:     DefaultSituation,
		LastAction:    DefaultLastAction,
		Turn:          1,
		CurrentPlayer: 1,
		Status:        StatusWaiting,
		LastUpdated:   unixSeconds(now),
	}
}

// Join seats the second player and starts the game.
func (gs *GameState) Join(p2Name string, now time.Time) error {
	if gs.P2Name != nil {
		return ErrGameFull
	}
	name := p2Name
	gs.P2Name = &name
	gs.Status = StatusActive
	gs.touch(now)
	return nil
}

// CheckTurn reports whether playerNum may act now. Checks run in a fixed
// order so callers always see the most specific rejection.
func (gs *GameState) CheckTurn(playerNum int) error {
	if playerNum != 1 && playerNum != 2 {
		return ErrInvalidPlayer
	}
	switch gs.Status {
	case StatusFinished:
		return ErrGameFinished
	case StatusActive:
	default:
		return ErrGameNotActive
	}
	if gs.CurrentPlayer != playerNum {
		return ErrNotYourTurn
	}
	return nil
}

// PlayerName returns the display name for a seat, or the P1/P2 fallback.
func (gs *GameState) PlayerName(playerNum int) string {
	if playerNum == 2 {
		if gs.P2Name != nil && *gs.P2Name != "" {
			return *gs.P2Name
		}
		return "P2"
	}
	if gs.P1Name != "" {
		return gs.P1Name
	}
	return "P1"
}

// ApplyTurn commits one resolved action. The update's HP values are clamped
// against the current record before anything is written, so a failed
// CheckTurn or a nil update leaves the record untouched.
func (gs *GameState) ApplyTurn(playerNum int, action string, res Resolution, now time.Time) error {
	if err := gs.CheckTurn(playerNum); err != nil {
		return err
	}
	if res.Update == nil {
		return fmt.Errorf("no state update to apply")
	}
	upd := res.Update

	gs.P1HP, gs.P2HP = ClampHP(gs.P1HP, gs.P2HP, upd)
	gs.Situation = truncate(upd.Situation, MaxTextLength)
	gs.LastAction = truncate(upd.LastAction, MaxTextLength)

	narrative, scene := res.Narrative, res.Scene
	gs.Narrative = &narrative
	gs.Scene = &scene
	gs.ImageSafe = upd.ImageSafe
	gs.ImagePrompt = upd.ImagePrompt
	gs.ImageURL = res.ImageURL

	if upd.P1Look != "" {
		gs.P1Look = upd.P1Look
	}
	if upd.P2Look != "" {
		gs.P2Look = upd.P2Look
	}

	gs.LastActor = playerNum
	gs.LastActorAction = action
	gs.Turn++
	gs.CurrentPlayer = 3 - playerNum
	if gs.P1HP <= MinHP || gs.P2HP <= MinHP {
		gs.Status = StatusFinished
	}
	gs.touch(now)
	return nil
}

// Winner returns the winning seat of a finished game, or 0.
func (gs *GameState) Winner() int {
	if gs.Status != StatusFinished {
		return 0
	}
	switch {
	case gs.P1HP <= MinHP && gs.P2HP <= MinHP:
		return 0
	case gs.P2HP <= MinHP:
		return 1
	default:
		return 2
	}
}

// ChangedSince reports whether the record was mutated after since.
func (gs *GameState) ChangedSince(since float64) bool {
	return gs.LastUpdated > since
}

// touch moves LastUpdated forward, strictly, even if the wall clock did not.
func (gs *GameState) touch(now time.Time) {
	ts := unixSeconds(now)
	if ts <= gs.LastUpdated {
		ts = gs.LastUpdated + 1e-6
	}
	gs.LastUpdated = ts
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
