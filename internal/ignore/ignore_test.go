package ignore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected string
	}{
		{"empty line", "", ""},
		{"whitespace only", "   ", ""},
		{"comment", "# scratch files", ""},
		{"negation skipped", "!keep.md", ""},
		{"malformed glob skipped", "[.md", ""},
		{"simple glob", "draft-*.md", "draft-*.md"},
		{"plain name", "README.md", "README.md"},
		{"leading slash trimmed", "/notes.md", "notes.md"},
		{"padded", "  *.bak  ", "*.bak"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLine(tt.line))
		})
	}
}

func TestParse(t *testing.T) {
	content := `# work in progress
draft-*.md

README.md
!draft-final.md
`
	m, err := Parse(strings.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())

	assert.True(t, m.Match("draft-bakery.md"))
	assert.True(t, m.Match("README.md"))
	assert.False(t, m.Match("bakery.md"))
	assert.False(t, m.Match("draft-final.md"))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte("*.bak\n"), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.True(t, m.Match("request.bak"))
	assert.False(t, m.Match("request.md"))
}

func TestLoad_MissingFile(t *testing.T) {
	m, err := Load(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
	assert.False(t, m.Match("anything.md"))
}

func TestMatcher_ZeroValue(t *testing.T) {
	var m Matcher
	assert.False(t, m.Match("request.md"))
}
