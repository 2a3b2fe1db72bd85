package prompts

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var catalogYAML []byte

// Mode selects which referee instructions to use.
type Mode string

const (
	// ModeOnline is used for shared games; the referee also proposes an image.
	ModeOnline Mode = "online"
	// ModeClassic is used by the stateless referee; text and ASCII art only.
	ModeClassic Mode = "classic"
)

// Catalog holds every instruction text the engine sends to the referee.
type Catalog struct {
	RefereeRules         string `yaml:"referee_rules"`
	RefereeFormatOnline  string `yaml:"referee_format_online"`
	RefereeFormatClassic string `yaml:"referee_format_classic"`
	RefereeOutputRules   string `yaml:"referee_output_rules"`
	RefereeImageRules    string `yaml:"referee_image_rules"`
	Turn                 string `yaml:"turn"`
	Opponent             string `yaml:"opponent"`
	OpponentTurn         string `yaml:"opponent_turn"`
	ImageStyleSuffix     string `yaml:"image_style_suffix"`

	turnTmpl         *template.Template
	opponentTmpl     *template.Template
	opponentTurnTmpl *template.Template
}

var (
	defaultCatalog *Catalog
	defaultErr     error
	loadOnce       sync.Once
)

// Default returns the embedded catalog. It panics if the embedded file is
// broken, which can only happen at build time.
func Default() *Catalog {
	loadOnce.Do(func() {
		defaultCatalog, defaultErr = Parse(catalogYAML)
	})
	if defaultErr != nil {
		panic(fmt.Sprintf("prompts: embedded catalog: %v", defaultErr))
	}
	return defaultCatalog
}

// Parse loads a catalog from YAML and compiles its templates.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse prompt catalog: %w", err)
	}

	required := map[string]string{
		"referee_rules":         c.RefereeRules,
		"referee_format_online": c.RefereeFormatOnline,
		"turn":                  c.Turn,
		"opponent":              c.Opponent,
		"opponent_turn":         c.OpponentTurn,
	}
	for key, v := range required {
		if strings.TrimSpace(v) == "" {
			return nil, fmt.Errorf("prompt catalog is missing %q", key)
		}
	}

	var err error
	if c.turnTmpl, err = template.New("turn").Parse(c.Turn); err != nil {
		return nil, fmt.Errorf("failed to parse turn template: %w", err)
	}
	if c.opponentTmpl, err = template.New("opponent").Parse(c.Opponent); err != nil {
		return nil, fmt.Errorf("failed to parse opponent template: %w", err)
	}
	if c.opponentTurnTmpl, err = template.New("opponent_turn").Parse(c.OpponentTurn); err != nil {
		return nil, fmt.Errorf("failed to parse opponent turn template: %w", err)
	}
	return &c, nil
}

// RefereeSystem assembles the referee instructions for a mode.
func (c *Catalog) RefereeSystem(mode Mode) string {
	parts := []string{c.RefereeRules}
	if mode == ModeClassic && c.RefereeFormatClassic != "" {
		parts = append(parts, c.RefereeFormatClassic, c.RefereeOutputRules)
	} else {
		parts = append(parts, c.RefereeFormatOnline, c.RefereeOutputRules, c.RefereeImageRules)
	}

	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}

// StyledImagePrompt appends the house style to a free-form image prompt.
func (c *Catalog) StyledImagePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if c.ImageStyleSuffix == "" {
		return prompt
	}
	return prompt + " " + c.ImageStyleSuffix
}

func execute(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
