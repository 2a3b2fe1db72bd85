package state

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func intPtr(v int) *int { return &v }

func newActiveGame(t *testing.T) *GameState {
	t.Helper()
	now := time.Unix(1700000000, 0)
	gs := NewGameState("123456", "Ari", now)
	if err := gs.Join("Bo", now.Add(time.Second)); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	return gs
}

func TestNewGameState(t *testing.T) {
	now := time.Unix(1700000000, 500_000_000)
	gs := NewGameState("042017", "Ari", now)

	if gs.Status != StatusWaiting {
		t.Errorf("Status = %q, want %q", gs.Status, StatusWaiting)
	}
	if gs.P2Name != nil {
		t.Errorf("P2Name = %v, want nil", *gs.P2Name)
	}
	if gs.P1HP != 100 || gs.P2HP != 100 {
		t.Errorf("HP = %d/%d, want 100/100", gs.P1HP, gs.P2HP)
	}
	if gs.Turn != 1 || gs.CurrentPlayer != 1 {
		t.Errorf("Turn/CurrentPlayer = %d/%d, want 1/1", gs.Turn, gs.CurrentPlayer)
	}
	if gs.Situation != DefaultSituation || gs.LastAction != DefaultLastAction {
		t.Errorf("placeholder text not set: %q / %q", gs.Situation, gs.LastAction)
	}
	if gs.Narrative != nil || gs.Scene != nil || gs.ImageURL != nil {
		t.Error("presentation fields should be nil before the first turn")
	}
	if gs.LastUpdated != 1700000000.5 {
		t.Errorf("LastUpdated = %v, want 1700000000.5", gs.LastUpdated)
	}
}

func TestGameState_JSONNulls(t *testing.T) {
	gs := NewGameState("123456", "Ari", time.Unix(1700000000, 0))
	data, err := json.Marshal(gs)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	for _, key := range []string{"p2_name", "narrative", "scene", "image_url"} {
		v, ok := raw[key]
		if !ok {
			t.Errorf("key %q missing from JSON", key)
			continue
		}
		if v != nil {
			t.Errorf("key %q = %v, want null", key, v)
		}
	}
}

func TestGameState_Join(t *testing.T) {
	now := time.Unix(1700000000, 0)
	gs := NewGameState("123456", "Ari", now)
	before := gs.LastUpdated

	if err := gs.Join("Bo", now); err != nil {
		t.Fatalf("Join() error = %v", err)
	}
	if gs.Status != StatusActive {
		t.Errorf("Status = %q, want active", gs.Status)
	}
	if gs.P2Name == nil || *gs.P2Name != "Bo" {
		t.Errorf("P2Name = %v, want Bo", gs.P2Name)
	}
	if gs.CurrentPlayer != 1 {
		t.Errorf("CurrentPlayer = %d, want 1", gs.CurrentPlayer)
	}
	if gs.LastUpdated <= before {
		t.Errorf("LastUpdated did not advance: %v <= %v", gs.LastUpdated, before)
	}

	if err := gs.Join("Cy", now); !errors.Is(err, ErrGameFull) {
		t.Errorf("second Join() error = %v, want ErrGameFull", err)
	}
	if *gs.P2Name != "Bo" {
		t.Errorf("P2Name changed to %q after rejected join", *gs.P2Name)
	}
}

func TestGameState_CheckTurn(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(gs *GameState)
		playerNum int
		want      error
	}{
		{name: "current player may act", playerNum: 1},
		{name: "other player rejected", playerNum: 2, want: ErrNotYourTurn},
		{name: "invalid seat", playerNum: 3, want: ErrInvalidPlayer},
		{
			name:      "waiting game rejected",
			setup:     func(gs *GameState) { gs.Status = StatusWaiting },
			playerNum: 1,
			want:      ErrGameNotActive,
		},
		{
			name:      "finished checked before turn ownership",
			setup:     func(gs *GameState) { gs.Status = StatusFinished },
			playerNum: 2,
			want:      ErrGameFinished,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gs := newActiveGame(t)
			if tt.setup != nil {
				tt.setup(gs)
			}
			err := gs.CheckTurn(tt.playerNum)
			if !errors.Is(err, tt.want) {
				t.Errorf("CheckTurn(%d) = %v, want %v", tt.playerNum, err, tt.want)
			}
		})
	}
}

func TestGameState_ApplyTurn(t *testing.T) {
	gs := newActiveGame(t)
	now := time.Unix(1700000100, 0)

	res := Resolution{
		Narrative: "Ari hurls a rock. Bo is bonked!",
		Scene:     "  o  ->  O",
		Update: &StateUpdate{
			P1HP:        intPtr(100),
			P2HP:        intPtr(85),
			Situation:   "Bo is seeing stars.",
			LastAction:  "Ari threw a rock.",
			ImageSafe:   true,
			ImagePrompt: "a cartoon rock flying",
			P1Look:      "tiny knight",
		},
	}
	if err := gs.ApplyTurn(1, "I throw a rock", res, now); err != nil {
		t.Fatalf("ApplyTurn() error = %v", err)
	}

	if gs.P1HP != 100 || gs.P2HP != 85 {
		t.Errorf("HP = %d/%d, want 100/85", gs.P1HP, gs.P2HP)
	}
	if gs.Turn != 2 || gs.CurrentPlayer != 2 {
		t.Errorf("Turn/CurrentPlayer = %d/%d, want 2/2", gs.Turn, gs.CurrentPlayer)
	}
	if gs.Status != StatusActive {
		t.Errorf("Status = %q, want active", gs.Status)
	}
	if gs.Narrative == nil || *gs.Narrative != res.Narrative {
		t.Errorf("Narrative not committed")
	}
	if gs.LastActor != 1 || gs.LastActorAction != "I throw a rock" {
		t.Errorf("audit = %d/%q", gs.LastActor, gs.LastActorAction)
	}
	if gs.P1Look != "tiny knight" {
		t.Errorf("P1Look = %q", gs.P1Look)
	}
	if gs.ImageURL != nil {
		t.Errorf("ImageURL = %v, want nil", *gs.ImageURL)
	}

	// Looks carry forward when the referee omits them.
	res2 := Resolution{Update: &StateUpdate{P1HP: intPtr(90)}}
	if err := gs.ApplyTurn(2, "I duck", res2, now); err != nil {
		t.Fatalf("second ApplyTurn() error = %v", err)
	}
	if gs.P1Look != "tiny knight" {
		t.Errorf("P1Look lost: %q", gs.P1Look)
	}
	if gs.Situation != "" {
		t.Errorf("missing situation should be empty, got %q", gs.Situation)
	}
}

func TestGameState_ApplyTurnRejectedLeavesStateUnchanged(t *testing.T) {
	gs := newActiveGame(t)
	before := *gs

	res := Resolution{Update: &StateUpdate{P1HP: intPtr(0), P2HP: intPtr(0)}}
	err := gs.ApplyTurn(2, "I cheat", res, time.Now())
	if !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("ApplyTurn() error = %v, want ErrNotYourTurn", err)
	}
	if gs.Turn != before.Turn || gs.CurrentPlayer != before.CurrentPlayer ||
		gs.P1HP != before.P1HP || gs.P2HP != before.P2HP || gs.LastUpdated != before.LastUpdated {
		t.Errorf("state mutated by rejected turn: %+v", gs)
	}

	if err := gs.ApplyTurn(1, "x", Resolution{}, time.Now()); err == nil {
		t.Error("ApplyTurn() with nil update should fail")
	}
	if gs.Turn != before.Turn {
		t.Error("nil update advanced the turn")
	}
}

func TestGameState_FinishedIsTerminal(t *testing.T) {
	gs := newActiveGame(t)
	gs.P2HP = 30
	now := time.Unix(1700000100, 0)

	res := Resolution{Update: &StateUpdate{P2HP: intPtr(-50)}}
	if err := gs.ApplyTurn(1, "Meteor", res, now); err != nil {
		t.Fatalf("ApplyTurn() error = %v", err)
	}
	if gs.P2HP != 0 {
		t.Errorf("P2HP = %d, want 0", gs.P2HP)
	}
	if gs.Status != StatusFinished {
		t.Fatalf("Status = %q, want finished", gs.Status)
	}
	if gs.Winner() != 1 {
		t.Errorf("Winner() = %d, want 1", gs.Winner())
	}

	for _, p := range []int{1, 2} {
		if err := gs.ApplyTurn(p, "again", res, now); !errors.Is(err, ErrGameFinished) {
			t.Errorf("ApplyTurn(%d) after finish = %v, want ErrGameFinished", p, err)
		}
	}
	if err := gs.Join("Late", now); !errors.Is(err, ErrGameFull) {
		t.Errorf("Join() after finish = %v, want ErrGameFull", err)
	}
	if gs.Status != StatusFinished {
		t.Errorf("Status left finished: %q", gs.Status)
	}
}

func TestGameState_LastUpdatedStrictlyIncreases(t *testing.T) {
	gs := newActiveGame(t)
	frozen := time.Unix(1600000000, 0) // earlier than the join timestamp
	prev := gs.LastUpdated

	for i := 0; i < 4; i++ {
		res := Resolution{Update: &StateUpdate{}}
		if err := gs.ApplyTurn(gs.CurrentPlayer, "wait", res, frozen); err != nil {
			t.Fatalf("ApplyTurn() error = %v", err)
		}
		if gs.LastUpdated <= prev {
			t.Fatalf("LastUpdated %v not greater than %v", gs.LastUpdated, prev)
		}
		if gs.ChangedSince(gs.LastUpdated) {
			t.Error("ChangedSince(LastUpdated) should be false")
		}
		if !gs.ChangedSince(prev) {
			t.Error("ChangedSince(previous) should be true")
		}
		prev = gs.LastUpdated
	}
}

func TestGameState_TruncatesLongText(t *testing.T) {
	gs := newActiveGame(t)
	long := make([]rune, MaxTextLength+50)
	for i := range long {
		long[i] = 'é'
	}
	res := Resolution{Update: &StateUpdate{Situation: string(long), LastAction: string(long)}}
	if err := gs.ApplyTurn(1, "x", res, time.Now()); err != nil {
		t.Fatalf("ApplyTurn() error = %v", err)
	}
	if n := len([]rune(gs.Situation)); n != MaxTextLength {
		t.Errorf("Situation length = %d, want %d", n, MaxTextLength)
	}
	if n := len([]rune(gs.LastAction)); n != MaxTextLength {
		t.Errorf("LastAction length = %d, want %d", n, MaxTextLength)
	}
}

func TestSnapshot_ToGameState(t *testing.T) {
	gs := Snapshot{P1HP: intPtr(150)}.ToGameState(2)
	if gs.P1Name != "P1" || gs.PlayerName(2) != "P2" {
		t.Errorf("names = %q/%q, want P1/P2", gs.P1Name, gs.PlayerName(2))
	}
	if gs.P1HP != 100 || gs.P2HP != 100 {
		t.Errorf("HP = %d/%d, want 100/100", gs.P1HP, gs.P2HP)
	}
	if gs.CheckTurn(2) != nil {
		t.Error("snapshot game should accept the named player")
	}
	if gs.Situation != DefaultSituation {
		t.Errorf("Situation = %q", gs.Situation)
	}
}

func TestSnapshot_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantP1  *int
		wantP2  *int
		wantErr bool
	}{
		{name: "integers", input: `{"p1_name":"Ari","p1_hp":85,"p2_hp":40}`, wantP1: intPtr(85), wantP2: intPtr(40)},
		{name: "floats", input: `{"p1_name":"Ari","p1_hp":85.0,"p2_hp":39.7}`, wantP1: intPtr(85), wantP2: intPtr(39)},
		{name: "numeric strings", input: `{"p1_name":"Ari","p1_hp":"85","p2_hp":" 40 "}`, wantP1: intPtr(85), wantP2: intPtr(40)},
		{name: "missing and null", input: `{"p1_name":"Ari","p2_hp":null}`},
		{name: "wrong types ignored", input: `{"p1_name":"Ari","p1_hp":"lots","p2_hp":[1]}`},
		{name: "not an object", input: `[1]`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Snapshot
			err := json.Unmarshal([]byte(tt.input), &s)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if s.P1Name != "Ari" {
				t.Errorf("P1Name = %q, want Ari", s.P1Name)
			}
			checkHP := func(label string, got, want *int) {
				switch {
				case want == nil && got != nil:
					t.Errorf("%s = %d, want nil", label, *got)
				case want != nil && (got == nil || *got != *want):
					t.Errorf("%s = %v, want %d", label, got, *want)
				}
			}
			checkHP("P1HP", s.P1HP, tt.wantP1)
			checkHP("P2HP", s.P2HP, tt.wantP2)
		})
	}
}
