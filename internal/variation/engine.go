package variation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/themesmith/internal/logging"
	"github.com/fyrsmithlabs/themesmith/internal/spec"
)

const (
	// recentCombinationLimit bounds the memory of previously issued
	// combinations. Older keys age out and may be issued again.
	recentCombinationLimit = 64

	// sampleAttempts is how many times Generate redraws before giving
	// up on finding an unused combination.
	sampleAttempts = 8

	fallbackVariationID = "fallback_001"
)

// Engine samples design variations. It remembers the combinations it has
// issued recently so consecutive builds for similar requests do not come
// out looking identical. Safe for concurrent use.
type Engine struct {
	logger *logging.Logger
	cfg    *config

	mu     sync.Mutex
	recent map[string]struct{}
	order  []string
}

// NewEngine parses the embedded axis tables and returns a ready engine.
func NewEngine(logger *logging.Logger) (*Engine, error) {
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return &Engine{
		logger: logger,
		cfg:    cfg,
		recent: make(map[string]struct{}),
	}, nil
}

// Generate samples a variation for the spec. The seed fixes the random
// draws, so the same seed and spec produce the same design choices. When
// every attempt lands on a recently issued combination the deterministic
// fallback variation is returned instead of an error.
func (e *Engine) Generate(ctx context.Context, seed int64, s *spec.TemplateSpec) (*Variation, error) {
	if s == nil {
		return nil, errors.New("template spec is required")
	}
	rng := rand.New(rand.NewSource(seed))
	industry := detectIndustry(s)
	bases := e.industryBases(industry)

	for attempt := 0; attempt < sampleAttempts; attempt++ {
		v := e.sample(rng, industry, bases)
		if e.remember(v.combinationKey()) {
			e.logger.Debug(ctx, "design variation generated",
				zap.String("variation_id", v.ID),
				zap.String("industry", industry),
				zap.String("combination", v.combinationKey()),
				zap.Int("attempts", attempt+1),
			)
			return v, nil
		}
	}

	v := e.fallback(industry)
	e.logger.Warn(ctx, "variation combinations exhausted, using fallback",
		zap.String("industry", industry),
	)
	return v, nil
}

func (e *Engine) sample(rng *rand.Rand, industry string, bases []string) *Variation {
	palette := harmonize(pick(rng, e.cfg.Colors.Methods), pick(rng, bases))
	pairing := pick(rng, e.cfg.Typography.Pairings)
	scale := pick(rng, e.cfg.Typography.Scales)

	v := &Variation{
		ID:          newVariationID(rng),
		GeneratedAt: time.Now().UTC(),
		Industry:    industry,
		Palette:     palette,
		Typography: Typography{
			Fonts:          pairing,
			Scale:          scale,
			GoogleFontsURL: googleFontsURL(pairing),
		},
		Layout: Layout{
			Hero:               pick(rng, e.cfg.Layout.Heroes),
			SectionArrangement: pick(rng, e.cfg.Layout.Arrangements),
			GridSystem:         pick(rng, e.cfg.Layout.Grids),
		},
		Components: Components{
			Buttons: pick(rng, e.cfg.Components.Buttons),
			Cards:   pick(rng, e.cfg.Components.Cards),
		},
		Unique: UniqueElements{
			BackgroundPattern: pick(rng, e.cfg.Unique.Backgrounds),
			DecorativeElement: pick(rng, e.cfg.Unique.Decorations),
			InteractionStyle:  pick(rng, e.cfg.Unique.Interactions),
		},
	}
	v.CSSVariables = cssVariables(palette, pairing, scale)
	v.Personality = personality(palette, pairing)
	return v
}

// fallback builds the deterministic default variation from the first
// entry of every axis.
func (e *Engine) fallback(industry string) *Variation {
	pairing := e.cfg.Typography.Pairings[0]
	scale := e.cfg.Typography.Scales[0]
	palette := harmonize(e.cfg.Colors.Methods[0], e.industryBases(industry)[0])

	v := &Variation{
		ID:          fallbackVariationID,
		GeneratedAt: time.Now().UTC(),
		Industry:    industry,
		Palette:     palette,
		Typography: Typography{
			Fonts:          pairing,
			Scale:          scale,
			GoogleFontsURL: googleFontsURL(pairing),
		},
		Layout: Layout{
			Hero:               e.cfg.Layout.Heroes[0],
			SectionArrangement: e.cfg.Layout.Arrangements[0],
			GridSystem:         e.cfg.Layout.Grids[0],
		},
		Components: Components{
			Buttons: e.cfg.Components.Buttons[0],
			Cards:   e.cfg.Components.Cards[0],
		},
		Unique: UniqueElements{
			BackgroundPattern: e.cfg.Unique.Backgrounds[0],
			DecorativeElement: e.cfg.Unique.Decorations[0],
			InteractionStyle:  e.cfg.Unique.Interactions[0],
		},
	}
	v.CSSVariables = cssVariables(palette, pairing, scale)
	v.Personality = personality(palette, pairing)
	return v
}

// remember reports whether key is new, recording it when it is. The
// oldest key is evicted once the set exceeds recentCombinationLimit.
func (e *Engine) remember(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, seen := e.recent[key]; seen {
		return false
	}
	e.recent[key] = struct{}{}
	e.order = append(e.order, key)
	if len(e.order) > recentCombinationLimit {
		delete(e.recent, e.order[0])
		e.order = e.order[1:]
	}
	return true
}

func (e *Engine) industryBases(industry string) []string {
	if bases, ok := e.cfg.Colors.Industries[industry]; ok && len(bases) > 0 {
		return bases
	}
	return e.cfg.Colors.Industries["default"]
}

func pick[T any](rng *rand.Rand, items []T) T {
	return items[rng.Intn(len(items))]
}

func newVariationID(rng *rand.Rand) string {
	stamp := time.Now().UTC().Format("20060102_150405")
	return fmt.Sprintf("var_%s_%03d", stamp, 100+rng.Intn(900))
}

// detectIndustry maps the business facts of a spec onto an industry
// palette key. Multi word cues match as substrings; single words match
// whole words only, so a name like "Happy Paws" does not read as an app
// business.
func detectIndustry(s *spec.TemplateSpec) string {
	text := strings.ToLower(strings.Join([]string{
		s.Business.Type,
		s.Business.Name,
		s.Business.Description,
	}, " "))
	words := tokenize(text)

	switch {
	case matchesAny(text, words, "pc repair", "tech", "software", "saas", "app", "computer", "laptop"):
		return "tech"
	case matchesAny(text, words, "finance", "financial", "bank", "investment", "insurance", "accounting"):
		return "finance"
	case matchesAny(text, words, "health", "healthcare", "medical", "dental", "clinic", "wellness", "care"):
		return "healthcare"
	case matchesAny(text, words, "creative", "design", "art", "photography", "studio"):
		return "creative"
	default:
		return "corporate"
	}
}

func matchesAny(text string, words map[string]struct{}, cues ...string) bool {
	for _, cue := range cues {
		if strings.ContainsRune(cue, ' ') {
			if strings.Contains(text, cue) {
				return true
			}
			continue
		}
		if _, ok := words[cue]; ok {
			return true
		}
	}
	return false
}

func tokenize(text string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		words[w] = struct{}{}
	}
	return words
}

// cssVariables flattens a variation into the custom properties the
// stylesheet templates interpolate.
func cssVariables(p Palette, fonts FontPairing, scale SizeScale) map[string]string {
	return map[string]string{
		"--primary-color":   p.Primary,
		"--secondary-color": p.Secondary,
		"--accent-color":    p.Accent,
		"--neutral-light":   p.NeutralLight,
		"--neutral-dark":    p.NeutralDark,
		"--font-heading":    fonts.Heading,
		"--font-body":       fonts.Body,
		"--font-accent":     fonts.Accent,
		"--text-xl":         scale.H1,
		"--text-lg":         scale.H2,
		"--text-md":         scale.H3,
		"--text-base":       scale.Body,
	}
}

// personality summarizes a variation as a short comma separated phrase
// built from the primary hue band plus the leading trait of the font
// pairing.
func personality(p Palette, fonts FontPairing) string {
	var parts []string
	if h, _, _, err := hexToHSV(p.Primary); err == nil {
		switch {
		case h >= 0.5 && h <= 0.7:
			parts = append(parts, "professional")
		case h > 0.7 && h <= 0.9:
			parts = append(parts, "creative")
		case h <= 0.1 || h > 0.9:
			parts = append(parts, "energetic")
		}
	}
	if trait := strings.TrimSpace(strings.Split(fonts.Personality, ",")[0]); trait != "" {
		parts = append(parts, trait)
	}
	if len(parts) == 0 {
		return "balanced"
	}
	return strings.Join(parts, ", ")
}

// googleFontsURL builds one stylesheet request covering every distinct
// font in the pairing at the weights the templates use.
func googleFontsURL(fonts FontPairing) string {
	seen := make(map[string]struct{})
	var families []string
	for _, name := range []string{fonts.Heading, fonts.Body, fonts.Accent} {
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		families = append(families, "family="+strings.ReplaceAll(name, " ", "+")+":wght@300;400;500;600;700")
	}
	return "https://fonts.googleapis.com/css2?" + strings.Join(families, "&") + "&display=swap"
}
