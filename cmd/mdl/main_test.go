package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ernie/mdl-tools/internal/assets"
	"github.com/ernie/mdl-tools/internal/assets/mdltest"
)

func runCommand(t *testing.T, command string, cfg Config, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), command, cfg, args, &out, false))
	return out.String()
}

func lines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

func TestRunDeps(t *testing.T) {
	root := t.TempDir()
	mdlPath := mdltest.WriteBrickTree(t, root, true)
	vvd := mdltest.WriteFile(t, root, "models/props/m.vvd", []byte("IDSV"))

	t.Run("all", func(t *testing.T) {
		got := lines(runCommand(t, "deps", Config{}, mdlPath))
		assert.Equal(t, []string{
			mdlPath,
			vvd,
			filepath.Join(root, "materials", "models", "brick.vmt"),
			filepath.Join(root, "materials", "tile", "brick2.vtf"),
		}, got)
	})

	t.Run("direct only", func(t *testing.T) {
		got := lines(runCommand(t, "deps", Config{DirectOnly: true}, mdlPath))
		assert.Equal(t, []string{mdlPath, vvd}, got)
	})

	t.Run("no materials", func(t *testing.T) {
		got := lines(runCommand(t, "dependencies", Config{NoMaterials: true}, mdlPath))
		assert.Equal(t, []string{mdlPath, vvd}, got)
	})

	t.Run("wrong arity", func(t *testing.T) {
		err := run(context.Background(), "deps", Config{}, nil, &bytes.Buffer{}, false)
		assert.Error(t, err)
	})
}

func TestRunDot(t *testing.T) {
	root := t.TempDir()
	mdlPath := mdltest.WriteBrickTree(t, root, true)

	got := runCommand(t, "dot", Config{}, mdlPath)
	assert.True(t, strings.HasPrefix(got, "digraph {\n"))
	assert.Contains(t, got, "0 -> 1 [ ]")
	assert.Contains(t, got, "1 -> 2 [ ]")
	assert.Contains(t, got, "material "+filepath.Join(root, "materials", "models", "brick.vmt"))
}

func TestRunSkins(t *testing.T) {
	root := t.TempDir()
	mdlPath := mdltest.WriteFile(t, root, "models/crate.mdl", mdltest.Model{
		Name:     "crate.mdl",
		Textures: []string{"wood", "wood_dark"},
		Dirs:     []string{"models/"},
		Skins:    [][]uint16{{0}, {1}},
	}.Build())
	wood := mdltest.WriteFile(t, root, "materials/models/wood.vmt", []byte("VertexLitGeneric\n{\n}\n"))

	assert.Equal(t, "skin 0: wood\nskin 1: wood_dark\n", runCommand(t, "skins", Config{}, mdlPath))

	got := runCommand(t, "skins", Config{Paths: true}, mdlPath)
	assert.Equal(t, "skin 0:\n  0 wood: "+wood+"\nskin 1:\n  0 wood_dark: (missing)\n", got)
}

func TestRunManifestAndPack(t *testing.T) {
	root := t.TempDir()
	mdlPath := mdltest.WriteBrickTree(t, root, true)

	var man assets.Manifest
	require.NoError(t, json.Unmarshal([]byte(runCommand(t, "manifest", Config{}, mdlPath)), &man))
	assert.Equal(t, "models/props/m.mdl", man.Model)
	require.Len(t, man.Files, 3)

	saved := filepath.Join(t.TempDir(), "m.json.zst")
	assert.Empty(t, runCommand(t, "manifest", Config{Output: saved}, mdlPath))
	loaded, err := assets.LoadManifest(saved)
	require.NoError(t, err)
	assert.Equal(t, man.Files, loaded.Files)

	zipPath := filepath.Join(t.TempDir(), "m.zip")
	got := lines(runCommand(t, "pack", Config{Compression: assets.CompressZstd}, mdlPath, zipPath))
	assert.Equal(t, []string{
		"materials/models/brick.vmt",
		"materials/tile/brick2.vtf",
		"models/props/m.mdl",
	}, got)

	assert.Equal(t, "VTF\x00", runCommand(t, "cat", Config{}, zipPath, "Materials/Tile/Brick2.VTF"))
	err = run(context.Background(), "cat", Config{}, []string{zipPath, "missing.vtf"}, &bytes.Buffer{}, false)
	assert.Error(t, err)
}

func TestRunCatalog(t *testing.T) {
	root := t.TempDir()
	first := mdltest.WriteBrickTree(t, root, true)
	second := mdltest.WriteFile(t, root, "models/props/n.mdl", mdltest.Model{
		Name:     "props/n.mdl",
		Textures: []string{"brick"},
		Dirs:     []string{"models/"},
	}.Build())
	cfg := Config{CatalogPath: filepath.Join(t.TempDir(), "refs.db")}

	out := runCommand(t, "index", cfg, first, second, filepath.Join(root, "missing.mdl"))
	assert.Equal(t, "indexed 2 of 3 models into "+cfg.CatalogPath+"\n", out)

	assert.Equal(t, []string{"models/props/m.mdl", "models/props/n.mdl"},
		lines(runCommand(t, "models", cfg)))
	assert.Equal(t, []string{"models/props/m.mdl", "models/props/n.mdl"},
		lines(runCommand(t, "users", cfg, "materials/tile/brick2.vtf")))
	assert.Equal(t, []string{"models/props/m.mdl"},
		lines(runCommand(t, "exclusive", cfg, "models/props/m.mdl")))
}

func TestRunUnknownCommand(t *testing.T) {
	err := run(context.Background(), "frobnicate", Config{}, nil, &bytes.Buffer{}, false)
	assert.ErrorContains(t, err, `unknown command "frobnicate"`)
}
