package spec

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/themesmith/internal/logging"
)

func newTestLoader(t *testing.T) *Loader {
	t.Helper()
	l, err := NewLoader(logging.NewTestLogger().Logger)
	require.NoError(t, err)
	return l
}

func writeSpecFile(t *testing.T, dir, name string, s *TemplateSpec) string {
	t.Helper()
	loader := newTestLoader(t)
	path := filepath.Join(dir, name)
	require.NoError(t, loader.Save(context.Background(), path, s))
	return path
}

func TestNewLoaderRequiresLogger(t *testing.T) {
	_, err := NewLoader(nil)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	loader := newTestLoader(t)
	_, err := loader.Load(context.Background(), filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}

func TestLoadInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	loader := newTestLoader(t)
	_, err := loader.Load(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse spec")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	original := &TemplateSpec{
		TemplateID: "abc12345",
		SiteType:   SiteMultiPage,
		Business:   Business{Name: "Northern Roots", Type: "Landscaping", Phone: "(555) 123-4567"},
		Location:   Location{City: "Ramsey", State: "Minnesota"},
		Services:   []Service{{Name: "Landscape Design", Description: "Design work."}},
		Pages:      []Page{{Slug: "home", Title: "Home"}, {Slug: "services", Title: "Services"}},
		Navigation: []string{"Home", "Services"},
	}

	path := writeSpecFile(t, dir, "spec.json", original)

	loader := newTestLoader(t)
	got, err := loader.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, original, got)
}

func TestSaveValidation(t *testing.T) {
	loader := newTestLoader(t)
	path := filepath.Join(t.TempDir(), "spec.json")

	require.Error(t, loader.Save(context.Background(), path, nil))
	require.Error(t, loader.Save(context.Background(), path, &TemplateSpec{}))
}

func TestSaveDefaultsSiteType(t *testing.T) {
	dir := t.TempDir()
	path := writeSpecFile(t, dir, "spec.json", &TemplateSpec{TemplateID: "abc12345"})

	loader := newTestLoader(t)
	got, err := loader.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, SiteSinglePage, got.SiteType)
}

func TestLoadServesFromCacheUntilFileChanges(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on rewriting a file in place with preserved timestamps")
	}

	dir := t.TempDir()
	path := writeSpecFile(t, dir, "spec.json", &TemplateSpec{TemplateID: "aaaa1111"})

	loader := newTestLoader(t)
	ctx := context.Background()

	first, err := loader.Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "aaaa1111", first.TemplateID)

	info, err := os.Stat(path)
	require.NoError(t, err)

	// Rewrite the file with same-length content but restore size and
	// timestamps, so a reload can only notice if it skips the cache.
	replaced := []byte(jsonWithID("bbbb2222", info.Size()))
	require.NoError(t, os.WriteFile(path, replaced, 0o644))
	require.NoError(t, os.Chtimes(path, info.ModTime(), info.ModTime()))

	cached, err := loader.Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "aaaa1111", cached.TemplateID)

	// Bumping the modification time invalidates the entry.
	bumped := info.ModTime().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, bumped, bumped))

	fresh, err := loader.Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "bbbb2222", fresh.TemplateID)
}

// jsonWithID builds a spec document with the given template id, padded with
// spaces to exactly size bytes.
func jsonWithID(id string, size int64) string {
	doc := `{"template_id":"` + id + `","site_type":"single_page"}`
	for int64(len(doc)) < size {
		doc += " "
	}
	return doc[:size]
}

func TestLoadReturnsIndependentCopies(t *testing.T) {
	dir := t.TempDir()
	path := writeSpecFile(t, dir, "spec.json", &TemplateSpec{
		TemplateID: "abc12345",
		Services:   []Service{{Name: "Lawn Maintenance"}},
	})

	loader := newTestLoader(t)
	ctx := context.Background()

	first, err := loader.Load(ctx, path)
	require.NoError(t, err)
	first.Services[0].Name = "mutated"
	first.TemplateID = "mutated"

	second, err := loader.Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "abc12345", second.TemplateID)
	assert.Equal(t, "Lawn Maintenance", second.Services[0].Name)
}

func TestParse(t *testing.T) {
	s, err := Parse([]byte(`{"template_id":"abc12345"}`))
	require.NoError(t, err)
	assert.Equal(t, SiteSinglePage, s.SiteType)

	_, err = Parse([]byte(`{"template_id":"abc12345","site_type":"brochure"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid site type")
}
