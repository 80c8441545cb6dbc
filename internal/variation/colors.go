package variation

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Fixed roles shared by every palette regardless of harmony method.
const (
	neutralLightHex = "#f8fafc"
	neutralDarkHex  = "#1e293b"
	successHex      = "#10b981"
	warningHex      = "#f59e0b"
	errorHex        = "#ef4444"
)

const fallbackBaseHex = "#2563eb"

// Palette is the color set written into a variation artifact. Primary is
// always the sampled base color; secondary and accent are derived from it
// by the harmony method.
type Palette struct {
	Primary      string `json:"primary"`
	Secondary    string `json:"secondary"`
	Accent       string `json:"accent"`
	NeutralLight string `json:"neutral_light"`
	NeutralDark  string `json:"neutral_dark"`
	Success      string `json:"success"`
	Warning      string `json:"warning"`
	Error        string `json:"error"`
}

// harmonize derives a full palette from a base color using the named
// method. Unknown methods and unparseable base colors degrade to the
// monochromatic treatment of the fallback base rather than erroring,
// since a palette must always come out.
func harmonize(method, base string) Palette {
	h, s, v, err := hexToHSV(base)
	if err != nil {
		base = fallbackBaseHex
		h, s, v, _ = hexToHSV(base)
	}
	p := Palette{
		Primary:      strings.ToLower(base),
		NeutralLight: neutralLightHex,
		NeutralDark:  neutralDarkHex,
		Success:      successHex,
		Warning:      warningHex,
		Error:        errorHex,
	}
	switch method {
	case "complementary_harmony":
		p.Secondary = hsvToHex(h+0.5, s*0.8, v*0.9)
		p.Accent = hsvToHex(h+0.15, s*0.6, v*1.1)
	case "triadic_scheme":
		p.Secondary = hsvToHex(h+0.33, s*0.8, v*0.9)
		p.Accent = hsvToHex(h+0.66, s*0.7, v*0.95)
	case "analogous_palette":
		p.Secondary = hsvToHex(h+0.08, s*0.9, v*0.95)
		p.Accent = hsvToHex(h-0.08, s*0.7, v*1.05)
	default:
		p.Secondary = hsvToHex(h, s*0.6, v*0.8)
		p.Accent = hsvToHex(h, s*0.4, v*1.2)
	}
	return p
}

// hexToHSV parses a #rrggbb color into hue, saturation and value, each
// in [0, 1].
func hexToHSV(hex string) (h, s, v float64, err error) {
	raw := strings.TrimPrefix(hex, "#")
	if len(raw) != 6 {
		return 0, 0, 0, fmt.Errorf("invalid hex color %q", hex)
	}
	n, err := strconv.ParseUint(raw, 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid hex color %q", hex)
	}
	r := float64(n>>16&0xff) / 255
	g := float64(n>>8&0xff) / 255
	b := float64(n&0xff) / 255

	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	v = maxC
	if maxC == minC {
		return 0, 0, v, nil
	}
	s = (maxC - minC) / maxC
	rc := (maxC - r) / (maxC - minC)
	gc := (maxC - g) / (maxC - minC)
	bc := (maxC - b) / (maxC - minC)
	switch maxC {
	case r:
		h = bc - gc
	case g:
		h = 2 + rc - bc
	default:
		h = 4 + gc - rc
	}
	h = math.Mod(h/6, 1)
	if h < 0 {
		h++
	}
	return h, s, v, nil
}

// hsvToHex renders hue, saturation and value as a lowercase #rrggbb
// string. Hue wraps around the color wheel; saturation and value clamp
// to [0, 1] so harmony multipliers can safely push past the range.
func hsvToHex(h, s, v float64) string {
	h = math.Mod(h, 1)
	if h < 0 {
		h++
	}
	s = clamp01(s)
	v = clamp01(v)

	var r, g, b float64
	if s == 0 {
		r, g, b = v, v, v
	} else {
		i := int(h * 6)
		f := h*6 - float64(i)
		p := v * (1 - s)
		q := v * (1 - f*s)
		t := v * (1 - (1-f)*s)
		switch i % 6 {
		case 0:
			r, g, b = v, t, p
		case 1:
			r, g, b = q, v, p
		case 2:
			r, g, b = p, v, t
		case 3:
			r, g, b = p, q, v
		case 4:
			r, g, b = t, p, v
		default:
			r, g, b = v, p, q
		}
	}
	return fmt.Sprintf("#%02x%02x%02x", int(r*255), int(g*255), int(b*255))
}

func clamp01(x float64) float64 {
	return math.Min(1, math.Max(0, x))
}
