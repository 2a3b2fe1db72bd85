package state

import "encoding/json"

// Snapshot is the client-held state used by the stateless referee, where the
// server keeps no record and both players share one screen.
type Snapshot struct {
	P1Name     string `json:"p1_name,omitempty"`
	P2Name     string `json:"p2_name,omitempty"`
	P1HP       *int   `json:"p1_hp,omitempty"`
	P2HP       *int   `json:"p2_hp,omitempty"`
	Situation  string `json:"situation,omitempty"`
	LastAction string `json:"last_action,omitempty"`
}

// UnmarshalJSON decodes HP the way referee updates are decoded, so floats and
// numeric strings are accepted and anything else counts as missing.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	type plain Snapshot
	var aux struct {
		plain
		P1HP json.RawMessage `json:"p1_hp"`
		P2HP json.RawMessage `json:"p2_hp"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*s = Snapshot(aux.plain)
	s.P1HP = lenientInt(aux.P1HP)
	s.P2HP = lenientInt(aux.P2HP)
	return nil
}

// SnapshotResult is the state half of a stateless referee response.
type SnapshotResult struct {
	P1HP       int    `json:"p1_hp"`
	P2HP       int    `json:"p2_hp"`
	Situation  string `json:"situation"`
	LastAction string `json:"last_action"`
}

// ToGameState fills defaults for anything the client left out. The result is
// active with the given player to move so the normal prompt and clamp paths
// apply unchanged.
func (s Snapshot) ToGameState(playerNum int) *GameState {
	gs := &GameState{
		P1Name:        s.P1Name,
		P1HP:          MaxHP,
		P2HP:          MaxHP,
		Situation:     s.Situation,
		LastAction:    s.LastAction,
		Turn:          1,
		CurrentPlayer: playerNum,
		Status:        StatusActive,
	}
	if gs.P1Name == "" {
		gs.P1Name = "P1"
	}
	p2 := s.P2Name
	if p2 == "" {
		p2 = "P2"
	}
	gs.P2Name = &p2
	if s.P1HP != nil {
		gs.P1HP = clampRange(*s.P1HP, MinHP, MaxHP)
	}
	if s.P2HP != nil {
		gs.P2HP = clampRange(*s.P2HP, MinHP, MaxHP)
	}
	if gs.Situation == "" {
		gs.Situation = DefaultSituation
	}
	if gs.LastAction == "" {
		gs.LastAction = DefaultLastAction
	}
	return gs
}
