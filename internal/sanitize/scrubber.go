package sanitize

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/zricethezav/gitleaks/v8/detect"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/themesmith/internal/logging"
)

// DefaultRedaction replaces detected secrets when no marker is configured.
const DefaultRedaction = "[REDACTED]"

// Config configures the scrubber.
type Config struct {
	// Enabled controls whether scrubbing is active (default: true)
	Enabled bool `koanf:"enabled"`

	// AllowlistPath points at an optional TOML allowlist of known-safe values
	AllowlistPath string `koanf:"allowlist_path"`

	// Redaction is the replacement for detected secrets (default: "[REDACTED]")
	Redaction string `koanf:"redaction"`
}

// DefaultConfig returns a configuration with scrubbing enabled.
func DefaultConfig() *Config {
	return &Config{
		Enabled:   true,
		Redaction: DefaultRedaction,
	}
}

// Scrubber detects and redacts secrets in request text using the gitleaks
// default ruleset (800+ patterns). The detector and allowlist are built once
// at construction; Scrub and Check are safe for concurrent use.
type Scrubber struct {
	logger   *logging.Logger
	cfg      *Config
	detector *detect.Detector
	allow    *Allowlist
}

// New creates a scrubber. A nil config uses DefaultConfig.
func New(logger *logging.Logger, cfg *Config) (*Scrubber, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Redaction == "" {
		cfg.Redaction = DefaultRedaction
	}

	s := &Scrubber{logger: logger.Named("sanitize"), cfg: cfg}
	if !cfg.Enabled {
		return s, nil
	}

	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("create secret detector: %w", err)
	}
	s.detector = detector

	if cfg.AllowlistPath != "" {
		allow, err := LoadAllowlist(cfg.AllowlistPath)
		if err != nil {
			return nil, fmt.Errorf("load allowlist: %w", err)
		}
		s.allow = allow
	}
	return s, nil
}

// IsEnabled reports whether scrubbing is active.
func (s *Scrubber) IsEnabled() bool {
	return s.cfg.Enabled
}

// Scrub returns input with every detected secret replaced by the redaction
// marker. A disabled scrubber passes text through unchanged.
func (s *Scrubber) Scrub(ctx context.Context, input string) (string, error) {
	if s.detector == nil || input == "" {
		return input, nil
	}

	res := s.scan(input)
	if res.HasFindings() {
		s.logger.Info(ctx, "redacted secrets from request text",
			zap.Int("findings", res.TotalFindings),
			zap.Strings("rules", res.RuleIDs()),
			zap.Duration("scan_duration", res.Duration))
	}
	return res.Scrubbed, nil
}

// Check scans input without modifying anything and reports every finding
// alongside the scrubbed rendition. The CLI uses it for dry runs.
func (s *Scrubber) Check(ctx context.Context, input string) *Result {
	if s.detector == nil {
		return &Result{Original: input, Scrubbed: input}
	}

	res := s.scan(input)
	s.logger.Debug(ctx, "scrub check finished",
		zap.Int("findings", res.TotalFindings),
		zap.Duration("scan_duration", res.Duration))
	return res
}

// span marks a byte range of the input to redact.
type span struct {
	start, end int
}

func (s *Scrubber) scan(input string) *Result {
	started := time.Now()
	res := &Result{Original: input, Scrubbed: input}

	findings := s.detector.DetectString(input)
	if len(findings) == 0 {
		res.Duration = time.Since(started)
		return res
	}

	// DetectString reports line and column positions but no byte offsets, so
	// spans are recovered by locating the matched value in the input. Every
	// occurrence is redacted: a secret leaked once is leaked everywhere.
	offsets := make(map[string][]int)
	seen := make(map[string]int)
	var spans []span
	for _, f := range findings {
		secret := f.Secret
		if secret == "" {
			secret = f.Match
		}
		if secret == "" || s.allow.Allows(secret) {
			continue
		}

		offs, ok := offsets[secret]
		if !ok {
			offs = occurrences(input, secret)
			offsets[secret] = offs
			for _, off := range offs {
				spans = append(spans, span{start: off, end: off + len(secret)})
			}
		}
		if len(offs) == 0 {
			continue
		}

		// gitleaks emits one finding per occurrence, so the nth finding for
		// a value maps to its nth occurrence.
		nth := seen[secret]
		seen[secret]++
		if nth >= len(offs) {
			nth = len(offs) - 1
		}
		start := offs[nth]

		res.Findings = append(res.Findings, Finding{
			RuleID:      f.RuleID,
			Description: f.Description,
			StartIndex:  start,
			EndIndex:    start + len(secret),
			Line:        strings.Count(input[:start], "\n") + 1,
			Entropy:     f.Entropy,
		})
		if res.ByRule == nil {
			res.ByRule = make(map[string]int)
		}
		res.ByRule[f.RuleID]++
	}

	res.TotalFindings = len(res.Findings)
	if len(spans) > 0 {
		res.Scrubbed = redact(input, spans, s.cfg.Redaction)
	}
	res.Duration = time.Since(started)
	return res
}

// redact replaces each span with the redaction marker. Overlapping spans are
// merged first so nested matches do not splice each other's replacements,
// then replacements run back to front to keep earlier offsets valid.
func redact(input string, spans []span, marker string) string {
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	merged := make([]span, 0, len(spans))
	for _, sp := range spans {
		if n := len(merged); n > 0 && sp.start <= merged[n-1].end {
			if sp.end > merged[n-1].end {
				merged[n-1].end = sp.end
			}
			continue
		}
		merged = append(merged, sp)
	}

	out := input
	for i := len(merged) - 1; i >= 0; i-- {
		out = out[:merged[i].start] + marker + out[merged[i].end:]
	}
	return out
}

// occurrences returns the byte offset of every non-overlapping occurrence of
// value in input.
func occurrences(input, value string) []int {
	var offs []int
	from := 0
	for {
		i := strings.Index(input[from:], value)
		if i < 0 {
			return offs
		}
		offs = append(offs, from+i)
		from += i + len(value)
	}
}
