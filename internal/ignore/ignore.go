// Package ignore parses ignore files that exclude request documents from
// the inputs directory.
package ignore

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileName is the ignore file the inputs watcher looks for.
const FileName = ".smithignore"

// Matcher excludes file names matched by ignore patterns. The zero value
// excludes nothing.
type Matcher struct {
	patterns []string
}

// Load reads the ignore file at path. A missing file yields an empty
// matcher.
func Load(path string) (*Matcher, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Matcher{}, nil
		}
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads ignore patterns, one per line. Blank lines and # comments
// are skipped.
func Parse(r io.Reader) (*Matcher, error) {
	m := &Matcher{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		pattern := parseLine(scanner.Text())
		if pattern == "" {
			continue
		}
		m.patterns = append(m.patterns, pattern)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// Match reports whether the base name of a file is excluded.
func (m *Matcher) Match(base string) bool {
	for _, pattern := range m.patterns {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// Len returns the number of loaded patterns.
func (m *Matcher) Len() int {
	return len(m.patterns)
}

// parseLine extracts the pattern from one ignore file line. Comments,
// blank lines, negations and malformed globs yield "".
func parseLine(line string) string {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return ""
	}

	// Negation patterns are not supported.
	if strings.HasPrefix(line, "!") {
		return ""
	}

	// The inputs directory is flat, so patterns match base names only.
	line = strings.TrimPrefix(line, "/")

	if _, err := filepath.Match(line, ""); err != nil {
		return ""
	}
	return line
}
