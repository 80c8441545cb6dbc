package agents

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/themesmith/internal/pipeline"
)

func TestPackagerRun(t *testing.T) {
	pm := newTestManager(t)
	writeSpecArtifact(t, pm, agentsSpec())

	dir := filepath.Join(t.TempDir(), "theme")
	buildTestTheme(t, dir)
	writeValidationReport(t, pm, dir)

	agent, err := NewPackager(testLogger(), GitOptions{})
	require.NoError(t, err)
	res, err := agent.Run(context.Background(), pipeline.Input{
		PipelineID: pm.PipelineID(),
		TemplateID: pm.TemplateID(),
		Path:       dir,
		Paths:      pm,
	})
	require.NoError(t, err)
	assert.Equal(t, pipeline.ResultSuccess, res.Status)
	assert.Equal(t, "themesmith-tpl-0001", res.Metadata["slug"])
	assert.Equal(t, "Northern Roots Landscaping Theme", res.Metadata["theme"])
	assert.Equal(t, false, res.Metadata["committed"])
	assert.Greater(t, res.QualityScore, 0.0)

	pkgDir := res.OutputPath
	assert.FileExists(t, filepath.Join(pkgDir, "README.md"))
	assert.FileExists(t, filepath.Join(pkgDir, "CHANGELOG.md"))
	assert.FileExists(t, filepath.Join(pkgDir, "manifest.json"))
	assert.FileExists(t, filepath.Join(pkgDir, "themesmith-tpl-0001", "style.css"))
	assert.NoDirExists(t, filepath.Join(pkgDir, ".git"))

	readme, err := os.ReadFile(filepath.Join(pkgDir, "README.md"))
	require.NoError(t, err)
	content := string(readme)
	assert.Contains(t, content, "# Northern Roots Landscaping Theme")
	assert.Contains(t, content, "wp-content/themes/")
	assert.Contains(t, content, "Validation score")
	assert.Contains(t, content, "## License")

	data, err := os.ReadFile(filepath.Join(pkgDir, "manifest.json"))
	require.NoError(t, err)
	var manifest packageManifest
	require.NoError(t, json.Unmarshal(data, &manifest))
	assert.Equal(t, "tpl_0001", manifest.TemplateID)
	assert.Equal(t, "Northern Roots Landscaping Theme", manifest.Theme)
	assert.Len(t, manifest.Agents, 12)
	assert.Contains(t, manifest.Checksums, "themesmith-tpl-0001/functions.php")
	assert.Contains(t, manifest.Checksums, "CHANGELOG.md")
	assert.NotContains(t, manifest.Checksums, "manifest.json")
	assert.InDelta(t, res.QualityScore, manifest.QualityScores["validation"], 0.001)
}

func TestPackagerCommitsWhenGitEnabled(t *testing.T) {
	pm := newTestManager(t)
	writeSpecArtifact(t, pm, agentsSpec())

	dir := filepath.Join(t.TempDir(), "theme")
	buildTestTheme(t, dir)

	agent, err := NewPackager(testLogger(), GitOptions{
		Enabled:     true,
		AuthorName:  "Theme Bot",
		AuthorEmail: "bot@example.com",
	})
	require.NoError(t, err)
	res, err := agent.Run(context.Background(), pipeline.Input{
		PipelineID: pm.PipelineID(),
		TemplateID: pm.TemplateID(),
		Path:       dir,
		Paths:      pm,
	})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, true, res.Metadata["committed"])
	assert.DirExists(t, filepath.Join(res.OutputPath, ".git"))
}

// The threaded input is normally the refinement artifact; the packager
// follows its theme_path.
func TestPackagerResolvesArtifactInput(t *testing.T) {
	pm := newTestManager(t)
	writeSpecArtifact(t, pm, agentsSpec())

	dir := filepath.Join(t.TempDir(), "theme")
	buildTestTheme(t, dir)
	artifact := filepath.Join(t.TempDir(), "refinement.json")
	require.NoError(t, writeJSON(artifact, RefinementReport{
		TemplateID: pm.TemplateID(),
		Status:     "satisfied",
		ThemePath:  dir,
	}))

	agent, err := NewPackager(testLogger(), GitOptions{})
	require.NoError(t, err)
	res, err := agent.Run(context.Background(), pipeline.Input{
		PipelineID: pm.PipelineID(),
		TemplateID: pm.TemplateID(),
		Path:       artifact,
		Paths:      pm,
	})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(res.OutputPath, "themesmith-tpl-0001", "index.php"))
}

func TestThemeIdentityFallbacks(t *testing.T) {
	s := agentsSpec()
	dir := t.TempDir()

	slug, name := themeIdentity(dir, "tpl_0001", s)
	assert.Equal(t, "theme-tpl-0001", slug)
	assert.Equal(t, "Northern Roots Landscaping Theme", name)

	css := "/*\nTheme Name: Custom Name\nText Domain: custom-domain\n*/\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "style.css"), []byte(css), 0o644))
	slug, name = themeIdentity(dir, "tpl_0001", s)
	assert.Equal(t, "custom-domain", slug)
	assert.Equal(t, "Custom Name", name)
}
