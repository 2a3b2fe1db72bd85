package state

const (
	// MaxDamagePerTurn is the largest HP loss one action may cause.
	MaxDamagePerTurn = 40
	// MaxHealPerTurn is the largest HP gain one action may cause.
	MaxHealPerTurn = 20
)

// ClampHP bounds the proposed HP values in upd against the previous values.
// A missing field keeps the previous value. A present one is first limited
// to [old-40, old+20] and then to [0, 100].
func ClampHP(oldP1, oldP2 int, upd *StateUpdate) (int, int) {
	if upd == nil {
		return clampRange(oldP1, MinHP, MaxHP), clampRange(oldP2, MinHP, MaxHP)
	}
	return clampOne(oldP1, upd.P1HP), clampOne(oldP2, upd.P2HP)
}

func clampOne(old int, proposed *int) int {
	if proposed == nil {
		return clampRange(old, MinHP, MaxHP)
	}
	v := clampRange(*proposed, old-MaxDamagePerTurn, old+MaxHealPerTurn)
	return clampRange(v, MinHP, MaxHP)
}

func clampRange(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
