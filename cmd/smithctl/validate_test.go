package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunValidate_FailsForIncompleteTheme(t *testing.T) {
	// An empty directory is missing every required theme file.
	err := runValidate(nil, []string{t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error(s)")
}

func TestRunValidate_MissingDirectory(t *testing.T) {
	err := runValidate(nil, []string{filepath.Join(t.TempDir(), "nope")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}
