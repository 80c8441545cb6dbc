package sanitize

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

var (
	// ErrInvalidRegex indicates an allowlist pattern failed to compile.
	ErrInvalidRegex = errors.New("invalid regex pattern")

	// ErrInvalidTOML indicates an allowlist file could not be parsed.
	ErrInvalidTOML = errors.New("invalid TOML format")
)

// Allowlist lists values the detector must not treat as secrets, such as the
// sample keys customers paste into request documents.
type Allowlist struct {
	// Regexes are matched against the full detected value.
	Regexes []string `toml:"regexes"`

	// Stopwords suppress any detected value that contains one of them.
	Stopwords []string `toml:"stopwords"`

	compiled []*regexp.Regexp
}

// LoadAllowlist reads a TOML allowlist file with an [allowlist] table:
//
//	[allowlist]
//	regexes = ['''sample-key-[0-9]+''']
//	stopwords = ["EXAMPLE"]
//
// A missing file yields an empty allowlist so a configured path can be
// provisioned later. Invalid TOML or regex patterns fail fast.
func LoadAllowlist(path string) (*Allowlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Allowlist{}, nil
		}
		return nil, fmt.Errorf("read allowlist %s: %w", path, err)
	}
	a, err := parseAllowlist(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, path)
	}
	return a, nil
}

func parseAllowlist(data []byte) (*Allowlist, error) {
	var doc struct {
		Allowlist Allowlist `toml:"allowlist"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTOML, err)
	}

	a := doc.Allowlist
	a.compiled = make([]*regexp.Regexp, 0, len(a.Regexes))
	for _, pattern := range a.Regexes {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidRegex, pattern, err)
		}
		a.compiled = append(a.compiled, re)
	}
	return &a, nil
}

// Allows reports whether value is covered by the allowlist. A nil allowlist
// allows nothing.
func (a *Allowlist) Allows(value string) bool {
	if a == nil {
		return false
	}
	for _, re := range a.compiled {
		if re.MatchString(value) {
			return true
		}
	}
	for _, word := range a.Stopwords {
		if word != "" && strings.Contains(value, word) {
			return true
		}
	}
	return false
}
