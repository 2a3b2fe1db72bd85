package prompts

import (
	"strings"
	"testing"
	"time"

	"github.com/zackedds/no-rulez-web/pkg/chat"
	"github.com/zackedds/no-rulez-web/pkg/state"
)

func activeGame() *state.GameState {
	gs := state.NewGameState("123456", "Ari", time.Unix(1700000000, 0))
	_ = gs.Join("Bo", time.Unix(1700000001, 0))
	gs.P1HP = 73
	gs.P2HP = 41
	gs.Situation = "The floor is lava."
	gs.LastAction = "Bo summoned a duck."
	return gs
}

func TestDefaultCatalogLoads(t *testing.T) {
	c := Default()
	if c.ImageStyleSuffix == "" {
		t.Error("expected image style suffix")
	}
	for _, mode := range []Mode{ModeOnline, ModeClassic} {
		sys := c.RefereeSystem(mode)
		for _, marker := range []string{"===NARRATIVE===", "===SCENE===", "===STATE==="} {
			if !strings.Contains(sys, marker) {
				t.Errorf("%s referee instructions missing %s", mode, marker)
			}
		}
	}
	if !strings.Contains(c.RefereeSystem(ModeOnline), "image_safe") {
		t.Error("online instructions should ask for image_safe")
	}
	if strings.Contains(c.RefereeSystem(ModeClassic), "image_safe") {
		t.Error("classic instructions should not ask for image_safe")
	}
}

func TestTurnPrompt(t *testing.T) {
	gs := activeGame()
	got, err := Default().TurnPrompt(gs, "Ari", 1, "I throw a rock")
	if err != nil {
		t.Fatalf("TurnPrompt() error = %v", err)
	}

	wantLines := []string{
		"- Ari (Player 1): 73 HP",
		"- Bo (Player 2): 41 HP",
		"- Battlefield: The floor is lava.",
		"- Last action: Bo summoned a duck.",
		"NOW ACTING: Ari (Player 1)",
		"ACTION: I throw a rock",
		"HP values above are exact",
	}
	for _, want := range wantLines {
		if !strings.Contains(got, want) {
			t.Errorf("TurnPrompt() missing %q\n%s", want, got)
		}
	}
	if strings.Contains(got, "Looks:") {
		t.Error("Looks line should be omitted when no looks are known")
	}
}

func TestTurnPrompt_Defaults(t *testing.T) {
	gs := &state.GameState{P1HP: 100, P2HP: 100}
	got, err := Default().TurnPrompt(gs, "P1", 1, "wave")
	if err != nil {
		t.Fatalf("TurnPrompt() error = %v", err)
	}
	for _, want := range []string{"- P1 (Player 1): 100 HP", "- P2 (Player 2): 100 HP", state.DefaultSituation, state.DefaultLastAction} {
		if !strings.Contains(got, want) {
			t.Errorf("TurnPrompt() missing %q", want)
		}
	}
}

func TestTurnPrompt_Looks(t *testing.T) {
	gs := activeGame()
	gs.P2Look = "a grumpy wizard"
	got, err := Default().TurnPrompt(gs, "Bo", 2, "fireball")
	if err != nil {
		t.Fatalf("TurnPrompt() error = %v", err)
	}
	if !strings.Contains(got, "Looks: Bo looks like a grumpy wizard") {
		t.Errorf("expected looks line:\n%s", got)
	}
}

func TestBuilder_Build(t *testing.T) {
	gs := activeGame()
	msgs, err := New().WithGameState(gs).WithAction(2, "", "I eat the duck").Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("Build() returned %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != chat.ChatRoleSystem || msgs[1].Role != chat.ChatRoleUser {
		t.Errorf("roles = %s/%s", msgs[0].Role, msgs[1].Role)
	}
	if !strings.Contains(msgs[1].Content, "NOW ACTING: Bo (Player 2)") {
		t.Errorf("actor name should fall back to state:\n%s", msgs[1].Content)
	}
	if err := chat.Validate(msgs); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestBuilder_BuildErrors(t *testing.T) {
	gs := activeGame()
	tests := []struct {
		name    string
		builder *Builder
	}{
		{"missing gamestate", New().WithAction(1, "Ari", "x")},
		{"bad seat", New().WithGameState(gs).WithAction(3, "Ari", "x")},
		{"empty action", New().WithGameState(gs).WithAction(1, "Ari", "  ")},
		{"nil catalog", New().WithCatalog(nil).WithGameState(gs).WithAction(1, "Ari", "x")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.builder.Build(); err == nil {
				t.Error("Build() expected error")
			}
		})
	}
}

func TestOpponentMessages(t *testing.T) {
	hp := 30
	snap := state.Snapshot{P1Name: "Ari", P1HP: &hp}
	msgs, err := OpponentMessages(Default(), snap, "DeepSeek", 2)
	if err != nil {
		t.Fatalf("OpponentMessages() error = %v", err)
	}
	if !strings.Contains(msgs[0].Content, "You are DeepSeek") {
		t.Errorf("persona should name the AI:\n%s", msgs[0].Content)
	}
	for _, want := range []string{
		"You are DeepSeek (100 HP)",
		"Your opponent is Ari (30 HP)",
		"Battlefield: An open arena.",
		"Nothing yet. You go first!",
	} {
		if !strings.Contains(msgs[1].Content, want) {
			t.Errorf("opponent prompt missing %q\n%s", want, msgs[1].Content)
		}
	}

	if _, err := OpponentMessages(Default(), snap, "DeepSeek", 0); err == nil {
		t.Error("expected error for seat 0")
	}
}

func TestParse_MissingKey(t *testing.T) {
	if _, err := Parse([]byte("turn: hi\n")); err == nil {
		t.Error("Parse() should reject an incomplete catalog")
	}
	if _, err := Parse([]byte("referee_rules: [")); err == nil {
		t.Error("Parse() should reject invalid YAML")
	}
}

func TestStyledImagePrompt(t *testing.T) {
	c := Default()
	got := c.StyledImagePrompt("  a duck with a sword ")
	if !strings.HasPrefix(got, "a duck with a sword chaotic cartoon battle art") {
		t.Errorf("StyledImagePrompt() = %q", got)
	}
}
