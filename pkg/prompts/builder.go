package prompts

import (
	"fmt"
	"strings"

	"github.com/zackedds/no-rulez-web/pkg/chat"
	"github.com/zackedds/no-rulez-web/pkg/state"
)

// Builder constructs the referee messages for one turn using a fluent interface.
type Builder struct {
	catalog   *Catalog
	gs        *state.GameState
	mode      Mode
	actorNum  int
	actorName string
	action    string
}

// New creates a builder backed by the embedded catalog in online mode.
func New() *Builder {
	return &Builder{
		catalog: Default(),
		mode:    ModeOnline,
	}
}

// WithCatalog overrides the instruction catalog.
func (b *Builder) WithCatalog(c *Catalog) *Builder {
	b.catalog = c
	return b
}

// WithGameState sets the state the action is resolved against.
func (b *Builder) WithGameState(gs *state.GameState) *Builder {
	b.gs = gs
	return b
}

// WithMode selects online or classic referee instructions.
func (b *Builder) WithMode(m Mode) *Builder {
	b.mode = m
	return b
}

// WithAction sets the acting seat and their sanitized action. An empty name
// falls back to the name stored in the game state.
func (b *Builder) WithAction(playerNum int, name, action string) *Builder {
	b.actorNum = playerNum
	b.actorName = name
	b.action = action
	return b
}

// Build returns the system and user messages for the referee.
func (b *Builder) Build() ([]chat.ChatMessage, error) {
	if b.catalog == nil {
		return nil, fmt.Errorf("prompt catalog is required")
	}
	if b.gs == nil {
		return nil, fmt.Errorf("gamestate is required")
	}
	if b.actorNum != 1 && b.actorNum != 2 {
		return nil, fmt.Errorf("acting player must be 1 or 2, got %d", b.actorNum)
	}
	if strings.TrimSpace(b.action) == "" {
		return nil, fmt.Errorf("action is required")
	}

	name := b.actorName
	if name == "" {
		name = b.gs.PlayerName(b.actorNum)
	}

	user, err := b.catalog.TurnPrompt(b.gs, name, b.actorNum, b.action)
	if err != nil {
		return nil, fmt.Errorf("error building turn prompt: %w", err)
	}

	return []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: b.catalog.RefereeSystem(b.mode)},
		{Role: chat.ChatRoleUser, Content: user},
	}, nil
}

// OpponentMessages returns the messages asking the AI opponent for its move.
func OpponentMessages(c *Catalog, snap state.Snapshot, aiName string, playerNum int) ([]chat.ChatMessage, error) {
	if playerNum != 1 && playerNum != 2 {
		return nil, fmt.Errorf("player number must be 1 or 2, got %d", playerNum)
	}
	system, user, err := c.OpponentPrompts(snap, aiName, playerNum)
	if err != nil {
		return nil, err
	}
	return []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: system},
		{Role: chat.ChatRoleUser, Content: user},
	}, nil
}
