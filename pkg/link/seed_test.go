package link

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultControls(t *testing.T) {
	controls := DefaultControls()
	require.Len(t, controls, 6)

	refs := make(map[string]bool)
	for _, c := range controls {
		require.NotEmpty(t, c.Ref)
		require.NotEmpty(t, c.Name)
		require.NotEmpty(t, c.Keywords)
		require.Equal(t, "CAF", c.Framework)
		require.Equal(t, "v3", c.Version)
		refs[c.Ref] = true
	}
	require.True(t, refs["CAF-B2"])
	require.True(t, refs["CAF-D1"])
}

func TestLoadSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
controls:
  - ref: CUSTOM-1
    name: Custom Control
    description: A site-specific control.
    themes: custom
    keywords: [alpha, beta]
    framework: LOCAL
    version: v1
`), 0o644))

	controls, err := LoadSeed(path)
	require.NoError(t, err)
	require.Len(t, controls, 1)
	require.Equal(t, "CUSTOM-1", controls[0].Ref)
	require.Equal(t, []string{"alpha", "beta"}, controls[0].Keywords)
	require.Equal(t, "LOCAL", controls[0].Framework)
}

func TestLoadSeedRejectsMissingRef(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("controls:\n  - name: Unnamed\n"), 0o644))

	_, err := LoadSeed(path)
	require.Error(t, err)
}

func TestSeedIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, Seed(ctx, s, DefaultControls()))
	require.NoError(t, Seed(ctx, s, DefaultControls()))

	controls, err := s.ListControls(ctx)
	require.NoError(t, err)
	require.Len(t, controls, 6)
}
