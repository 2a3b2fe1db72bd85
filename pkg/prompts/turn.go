package prompts

import (
	"fmt"
	"strings"

	"github.com/zackedds/no-rulez-web/pkg/state"
)

type turnData struct {
	P1Name     string
	P2Name     string
	P1HP       int
	P2HP       int
	Situation  string
	LastAction string
	Looks      string
	ActorName  string
	ActorNum   int
	Action     string
}

// TurnPrompt renders the user message for one action against the current state.
func (c *Catalog) TurnPrompt(gs *state.GameState, actorName string, actorNum int, action string) (string, error) {
	if gs == nil {
		return "", fmt.Errorf("gamestate is required")
	}
	data := turnData{
		P1Name:     gs.PlayerName(1),
		P2Name:     gs.PlayerName(2),
		P1HP:       gs.P1HP,
		P2HP:       gs.P2HP,
		Situation:  orDefault(gs.Situation, state.DefaultSituation),
		LastAction: orDefault(gs.LastAction, state.DefaultLastAction),
		Looks:      looks(gs),
		ActorName:  actorName,
		ActorNum:   actorNum,
		Action:     action,
	}
	return execute(c.turnTmpl, data)
}

type opponentData struct {
	Name         string
	OpponentName string
	MyHP         int
	TheirHP      int
	Situation    string
	LastAction   string
}

// OpponentPrompts renders the persona and the situation for the AI opponent
// sitting in seat playerNum.
func (c *Catalog) OpponentPrompts(snap state.Snapshot, aiName string, playerNum int) (system, user string, err error) {
	gs := snap.ToGameState(playerNum)
	other := 3 - playerNum

	data := opponentData{
		Name:         aiName,
		OpponentName: orDefault(snapName(snap, other), "Opponent"),
		MyHP:         hpFor(gs, playerNum),
		TheirHP:      hpFor(gs, other),
		Situation:    orDefault(snap.Situation, "An open arena."),
		LastAction:   orDefault(snap.LastAction, "Nothing yet. You go first!"),
	}

	if system, err = execute(c.opponentTmpl, data); err != nil {
		return "", "", fmt.Errorf("failed to render opponent persona: %w", err)
	}
	if user, err = execute(c.opponentTurnTmpl, data); err != nil {
		return "", "", fmt.Errorf("failed to render opponent turn: %w", err)
	}
	return system, user, nil
}

func snapName(snap state.Snapshot, playerNum int) string {
	if playerNum == 2 {
		return snap.P2Name
	}
	return snap.P1Name
}

func hpFor(gs *state.GameState, playerNum int) int {
	if playerNum == 2 {
		return gs.P2HP
	}
	return gs.P1HP
}

func looks(gs *state.GameState) string {
	var parts []string
	if gs.P1Look != "" {
		parts = append(parts, gs.PlayerName(1)+" looks like "+gs.P1Look)
	}
	if gs.P2Look != "" {
		parts = append(parts, gs.PlayerName(2)+" looks like "+gs.P2Look)
	}
	return strings.Join(parts, "; ")
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
