// Package referee extracts structured results from free-form referee output.
package referee

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/zackedds/no-rulez-web/pkg/state"
)

const (
	MarkerNarrative = "===NARRATIVE==="
	MarkerScene     = "===SCENE==="
	MarkerState     = "===STATE==="
)

// Strategy names which extraction step produced the state update.
type Strategy string

const (
	StrategyNone     Strategy = "none"
	StrategySection  Strategy = "section"
	StrategyLine     Strategy = "line"
	StrategyFallback Strategy = "fallback"
)

// Result is one parsed referee response. Update is nil when no structured
// update could be recovered; callers must treat that as a failed turn.
type Result struct {
	Narrative string
	Scene     string
	Update    *state.StateUpdate
	Strategy  Strategy
}

// OK reports whether a state update was recovered.
func (r Result) OK() bool {
	return r.Update != nil
}

var fallbackPattern = regexp.MustCompile(`\{[^{}]*"p1_hp"\s*:\s*\d+[^{}]*\}`)

type section int

const (
	sectionNone section = iota
	sectionNarrative
	sectionScene
	sectionState
)

// ParseResponse splits a referee response into its three sections and
// decodes the state update, falling back to progressively looser searches
// when the state section is malformed.
func ParseResponse(response string) Result {
	response = strings.ReplaceAll(response, "\r\n", "\n")

	var narrative, scene, stateText strings.Builder
	current := sectionNone

	for _, line := range strings.Split(response, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.Contains(trimmed, MarkerNarrative):
			current = sectionNarrative
		case strings.Contains(trimmed, MarkerScene):
			current = sectionScene
		case strings.Contains(trimmed, MarkerState):
			current = sectionState
		default:
			var b *strings.Builder
			switch current {
			case sectionNarrative:
				b = &narrative
			case sectionScene:
				b = &scene
			case sectionState:
				b = &stateText
			default:
				continue
			}
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}

	res := Result{
		Narrative: strings.TrimSpace(narrative.String()),
		Scene:     stripFences(strings.TrimSpace(scene.String())),
		Strategy:  StrategyNone,
	}
	res.Update, res.Strategy = extractUpdate(strings.TrimSpace(stateText.String()), response)
	return res
}

func extractUpdate(stateText, whole string) (*state.StateUpdate, Strategy) {
	if upd := decode(stateText); upd != nil {
		return upd, StrategySection
	}

	for _, line := range strings.Split(stateText, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "{") {
			continue
		}
		if upd := decode(line); upd != nil {
			return upd, StrategyLine
		}
	}

	if m := fallbackPattern.FindString(whole); m != "" {
		if upd := decode(m); upd != nil {
			return upd, StrategyFallback
		}
	}
	return nil, StrategyNone
}

func decode(text string) *state.StateUpdate {
	if text == "" {
		return nil
	}
	var upd state.StateUpdate
	if err := json.Unmarshal([]byte(text), &upd); err != nil {
		return nil
	}
	return &upd
}

// stripFences drops code-fence lines when the scene was wrapped in one.
func stripFences(scene string) string {
	if !strings.HasPrefix(scene, "```") {
		return scene
	}
	lines := strings.Split(scene, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "```") {
			continue
		}
		kept = append(kept, l)
	}
	return strings.Join(kept, "\n")
}
