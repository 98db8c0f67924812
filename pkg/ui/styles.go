package ui

import (
	_ "embed"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// ColorDef is an adaptive color in styles.yaml
type ColorDef struct {
	Light string `yaml:"light"`
	Dark  string `yaml:"dark"`
}

// StyleDef is one named style in styles.yaml. Foreground and Background
// name an entry of the colors table or give a literal color.
type StyleDef struct {
	Bold         bool   `yaml:"bold,omitempty"`
	Italic       bool   `yaml:"italic,omitempty"`
	Foreground   string `yaml:"foreground,omitempty"`
	Background   string `yaml:"background,omitempty"`
	MarginBottom int    `yaml:"marginBottom,omitempty"`
	PaddingLeft  int    `yaml:"paddingLeft,omitempty"`
}

// StylesConfig is the parsed styles.yaml
type StylesConfig struct {
	Colors map[string]ColorDef `yaml:"colors"`
	Styles map[string]StyleDef `yaml:"styles"`
}

//go:embed styles.yaml
var embeddedStyles []byte

// styleRegistry maps semantic names to lipgloss styles
var styleRegistry = mustLoadStyles(embeddedStyles)

// LoadStyles parses a styles document into a registry
func LoadStyles(data []byte) (map[string]lipgloss.Style, error) {
	var cfg StylesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse styles: %w", err)
	}

	colors := make(map[string]lipgloss.TerminalColor, len(cfg.Colors))
	for name, def := range cfg.Colors {
		colors[name] = lipgloss.AdaptiveColor{Light: def.Light, Dark: def.Dark}
	}
	color := func(ref string) lipgloss.TerminalColor {
		if c, ok := colors[ref]; ok {
			return c
		}
		return lipgloss.Color(ref)
	}

	registry := make(map[string]lipgloss.Style, len(cfg.Styles))
	for name, def := range cfg.Styles {
		s := lipgloss.NewStyle().
			Bold(def.Bold).
			Italic(def.Italic).
			MarginBottom(def.MarginBottom).
			PaddingLeft(def.PaddingLeft)
		if def.Foreground != "" {
			s = s.Foreground(color(def.Foreground))
		}
		if def.Background != "" {
			s = s.Background(color(def.Background))
		}
		registry[name] = s
	}
	return registry, nil
}

func mustLoadStyles(data []byte) map[string]lipgloss.Style {
	registry, err := LoadStyles(data)
	if err != nil {
		panic(err)
	}
	return registry
}

// GetStyle returns the named style, or an unstyled one when unknown
func GetStyle(name string) lipgloss.Style {
	if s, ok := styleRegistry[name]; ok {
		return s
	}
	return lipgloss.NewStyle()
}
