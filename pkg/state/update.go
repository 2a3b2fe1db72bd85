package state

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// StateUpdate is the compact record the referee proposes after each action.
// HP fields are nil when the referee left them out; missing HP means unchanged.
type StateUpdate struct {
	P1HP        *int   `json:"p1_hp,omitempty"`
	P2HP        *int   `json:"p2_hp,omitempty"`
	Situation   string `json:"situation"`
	LastAction  string `json:"last_action"`
	ImageSafe   bool   `json:"image_safe,omitempty"`
	ImagePrompt string `json:"image_prompt,omitempty"`
	P1Look      string `json:"p1_look,omitempty"`
	P2Look      string `json:"p2_look,omitempty"`
}

// UnmarshalJSON accepts whatever the referee produced as long as the outer
// value is an object. Numbers may arrive as floats or numeric strings; fields
// of the wrong type are treated as missing rather than failing the decode.
func (u *StateUpdate) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("state update must be a JSON object")
	}

	*u = StateUpdate{
		P1HP:        lenientInt(raw["p1_hp"]),
		P2HP:        lenientInt(raw["p2_hp"]),
		Situation:   lenientString(raw["situation"]),
		LastAction:  lenientString(raw["last_action"]),
		ImagePrompt: lenientString(raw["image_prompt"]),
		P1Look:      lenientString(raw["p1_look"]),
		P2Look:      lenientString(raw["p2_look"]),
	}
	if v, ok := raw["image_safe"]; ok {
		var b bool
		if json.Unmarshal(v, &b) == nil {
			u.ImageSafe = b
		}
	}
	return nil
}

// HasHP reports whether the update carries at least one HP value.
func (u *StateUpdate) HasHP() bool {
	return u != nil && (u.P1HP != nil || u.P2HP != nil)
}

func lenientInt(v json.RawMessage) *int {
	if len(v) == 0 || strings.TrimSpace(string(v)) == "null" {
		return nil
	}
	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		var s string
		if json.Unmarshal(v, &s) != nil {
			return nil
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil
		}
		f = parsed
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	// keep far-out values representable; the clamp does the real bounding
	f = math.Max(math.Min(f, 1e9), -1e9)
	n := int(f)
	return &n
}

func lenientString(v json.RawMessage) string {
	if len(v) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return ""
	}
	return s
}
