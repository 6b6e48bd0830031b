package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ernie/mdl-tools/internal/assets"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func manifest(model string, paths ...string) *assets.Manifest {
	man := &assets.Manifest{Model: model}
	man.Files = append(man.Files, assets.ManifestEntry{Path: model, Kind: "model", Relation: "root"})
	for _, p := range paths {
		man.Files = append(man.Files, assets.ManifestEntry{Path: p, Kind: "texture", Relation: "indirect"})
	}
	return man
}

func TestCatalog(t *testing.T) {
	ctx := context.Background()

	t.Run("users and exclusive across two models", func(t *testing.T) {
		c := openTestCatalog(t)
		require.NoError(t, c.Record(ctx, manifest("models/a.mdl",
			"materials/shared.vtf", "materials/a.vtf")))
		require.NoError(t, c.Record(ctx, manifest("models/b.mdl",
			"materials/shared.vtf", "materials/b.vtf")))

		users, err := c.Users(ctx, "Materials/Shared.vtf")
		require.NoError(t, err)
		assert.Equal(t, []string{"models/a.mdl", "models/b.mdl"}, users)

		excl, err := c.Exclusive(ctx, "models/a.mdl")
		require.NoError(t, err)
		assert.Equal(t, []string{"materials/a.vtf", "models/a.mdl"}, excl)

		models, err := c.Models(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"models/a.mdl", "models/b.mdl"}, models)
	})

	t.Run("record replaces previous rows", func(t *testing.T) {
		c := openTestCatalog(t)
		require.NoError(t, c.Record(ctx, manifest("models/a.mdl", "materials/old.vtf")))
		require.NoError(t, c.Record(ctx, manifest("models/a.mdl", "materials/new.vtf")))

		users, err := c.Users(ctx, "materials/old.vtf")
		require.NoError(t, err)
		assert.Empty(t, users)

		users, err = c.Users(ctx, "materials/new.vtf")
		require.NoError(t, err)
		assert.Equal(t, []string{"models/a.mdl"}, users)
	})

	t.Run("reopen keeps data", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "catalog.db")
		c, err := Open(path)
		require.NoError(t, err)
		require.NoError(t, c.Record(ctx, manifest("models/a.mdl")))
		require.NoError(t, c.Close())

		c, err = Open(path)
		require.NoError(t, err)
		defer c.Close()
		models, err := c.Models(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"models/a.mdl"}, models)
	})
}
