package variation

import (
	_ "embed"
	"fmt"

	"github.com/BurntSushi/toml"
)

//go:embed config.toml
var rawConfig []byte

// FontPairing names a heading/body/accent font trio and the personality
// the pairing carries into the generated theme.
type FontPairing struct {
	Name        string `toml:"name" json:"name"`
	Heading     string `toml:"heading" json:"heading"`
	Body        string `toml:"body" json:"body"`
	Accent      string `toml:"accent" json:"accent,omitempty"`
	Personality string `toml:"personality" json:"personality,omitempty"`
}

// SizeScale is a named type ramp from h1 down to body copy.
type SizeScale struct {
	Name string `toml:"name" json:"name"`
	H1   string `toml:"h1" json:"h1"`
	H2   string `toml:"h2" json:"h2"`
	H3   string `toml:"h3" json:"h3"`
	Body string `toml:"body" json:"body"`
}

// HeroStyle describes one hero treatment an assembled theme can use.
type HeroStyle struct {
	Name         string `toml:"name" json:"name"`
	Structure    string `toml:"structure" json:"structure"`
	CTAPlacement string `toml:"cta_placement" json:"cta_placement"`
	VisualWeight string `toml:"visual_weight" json:"visual_weight"`
	Description  string `toml:"description" json:"description,omitempty"`
}

// ButtonStyle carries the CSS facts of one button treatment.
type ButtonStyle struct {
	Name         string `toml:"name" json:"name"`
	BorderRadius string `toml:"border_radius" json:"border_radius"`
	Padding      string `toml:"padding" json:"padding"`
	Shadow       string `toml:"shadow" json:"shadow"`
}

// CardStyle carries the CSS facts of one card treatment.
type CardStyle struct {
	Name         string `toml:"name" json:"name"`
	BorderRadius string `toml:"border_radius" json:"border_radius"`
	Shadow       string `toml:"shadow" json:"shadow"`
	Border       string `toml:"border" json:"border"`
}

type config struct {
	Colors     colorConfig      `toml:"colors"`
	Typography typographyConfig `toml:"typography"`
	Layout     layoutConfig     `toml:"layout"`
	Components componentConfig  `toml:"components"`
	Unique     uniqueConfig     `toml:"unique"`
}

type colorConfig struct {
	Methods    []string            `toml:"methods"`
	Industries map[string][]string `toml:"industries"`
}

type typographyConfig struct {
	Pairings []FontPairing `toml:"pairings"`
	Scales   []SizeScale   `toml:"scales"`
}

type layoutConfig struct {
	Arrangements []string    `toml:"arrangements"`
	Grids        []string    `toml:"grids"`
	Heroes       []HeroStyle `toml:"heroes"`
}

type componentConfig struct {
	Buttons []ButtonStyle `toml:"buttons"`
	Cards   []CardStyle   `toml:"cards"`
}

type uniqueConfig struct {
	Backgrounds  []string `toml:"backgrounds"`
	Decorations  []string `toml:"decorations"`
	Interactions []string `toml:"interactions"`
}

func loadConfig() (*config, error) {
	var cfg config
	if err := toml.Unmarshal(rawConfig, &cfg); err != nil {
		return nil, fmt.Errorf("parse variation config: %w", err)
	}
	for axis, n := range map[string]int{
		"colors.methods":      len(cfg.Colors.Methods),
		"colors.industries":   len(cfg.Colors.Industries),
		"typography.pairings": len(cfg.Typography.Pairings),
		"typography.scales":   len(cfg.Typography.Scales),
		"layout.arrangements": len(cfg.Layout.Arrangements),
		"layout.grids":        len(cfg.Layout.Grids),
		"layout.heroes":       len(cfg.Layout.Heroes),
		"components.buttons":  len(cfg.Components.Buttons),
		"components.cards":    len(cfg.Components.Cards),
		"unique.backgrounds":  len(cfg.Unique.Backgrounds),
		"unique.decorations":  len(cfg.Unique.Decorations),
		"unique.interactions": len(cfg.Unique.Interactions),
	} {
		if n == 0 {
			return nil, fmt.Errorf("variation config: axis %s is empty", axis)
		}
	}
	if _, ok := cfg.Colors.Industries["default"]; !ok {
		return nil, fmt.Errorf("variation config: colors.industries is missing the default palette")
	}
	for industry, colors := range cfg.Colors.Industries {
		if len(colors) == 0 {
			return nil, fmt.Errorf("variation config: industry %s has no base colors", industry)
		}
	}
	return &cfg, nil
}
