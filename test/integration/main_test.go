// Package integration runs the real agent roster through the assembled
// service graph. Everything here works offline against a temporary
// workspace; suites that need external services guard themselves.
package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/fyrsmithlabs/themesmith/internal/config"
	"github.com/fyrsmithlabs/themesmith/internal/logging"
	"github.com/fyrsmithlabs/themesmith/internal/services"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const sampleRequest = `# Website Request: Harbor Light Bakery

Create a warm, inviting website for **Harbor Light Bakery**, a
neighborhood bakery in **Duluth, Minnesota**.

## Contact

- Phone: (218) 555-0178
- Email: hello@harborlight.example

## Services

- Artisan Breads: sourdough and rye baked daily
- Custom Cakes: weddings and birthdays
- Coffee Bar
`

// newTestRegistry builds the full service graph against a temporary
// workspace, with every external integration left disabled.
func newTestRegistry(t *testing.T) (services.Registry, string) {
	t.Helper()

	root := t.TempDir()
	cfg := &config.Config{
		Workspace: config.WorkspaceConfig{
			Root:     root,
			KeepDays: 14,
		},
	}

	reg, err := services.Build(context.Background(), cfg, logging.NewTestLogger().Logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Close() })

	return reg, root
}
