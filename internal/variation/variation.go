// Package variation generates design variations for template builds. A
// variation fixes every aesthetic axis of a theme before assembly: the
// color palette derived from an industry base color by a harmony method,
// a font pairing and size scale, hero and grid treatment, component
// styling and a few unique touches. Axis options live in an embedded
// TOML table so the design space can grow without code changes.
package variation

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Typography bundles the sampled font pairing and size scale with the
// stylesheet URL that loads the fonts.
type Typography struct {
	Fonts          FontPairing `json:"fonts"`
	Scale          SizeScale   `json:"scale"`
	GoogleFontsURL string      `json:"google_fonts_url"`
}

// Layout fixes the structural choices of a variation.
type Layout struct {
	Hero               HeroStyle `json:"hero"`
	SectionArrangement string    `json:"section_arrangement"`
	GridSystem         string    `json:"grid_system"`
}

// Components fixes the button and card treatments.
type Components struct {
	Buttons ButtonStyle `json:"buttons"`
	Cards   CardStyle   `json:"cards"`
}

// UniqueElements are the decorative touches that keep two otherwise
// similar variations from looking alike.
type UniqueElements struct {
	BackgroundPattern string `json:"background_pattern"`
	DecorativeElement string `json:"decorative_element"`
	InteractionStyle  string `json:"interaction_style"`
}

// Variation is the design variation artifact consumed by the template
// and theme stages.
type Variation struct {
	ID           string            `json:"variation_id"`
	GeneratedAt  time.Time         `json:"generated_at"`
	Industry     string            `json:"industry_context"`
	Palette      Palette           `json:"color_palette"`
	Typography   Typography        `json:"typography_scheme"`
	Layout       Layout            `json:"layout_structure"`
	Components   Components        `json:"component_styles"`
	Unique       UniqueElements    `json:"unique_elements"`
	CSSVariables map[string]string `json:"css_variables"`
	Personality  string            `json:"design_personality"`
}

// combinationKey identifies the visible identity of a variation. Two
// variations with the same key would read as the same design even if
// other axes differ.
func (v *Variation) combinationKey() string {
	return v.Palette.Primary + "_" + v.Typography.Fonts.Heading + "_" + v.Layout.Hero.Name
}

// WriteFile persists the variation to path, creating parent directories
// as needed.
func (v *Variation) WriteFile(path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode variation: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create variation directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write variation %s: %w", path, err)
	}
	return nil
}

// Load reads a variation artifact written by WriteFile.
func Load(path string) (*Variation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read variation %s: %w", path, err)
	}
	var v Variation
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse variation %s: %w", path, err)
	}
	if v.ID == "" {
		return nil, errors.New("variation is missing variation_id")
	}
	return &v, nil
}
