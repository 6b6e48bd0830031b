package assets

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ernie/mdl-tools/internal/assets/mdltest"
)

func TestParseCompression(t *testing.T) {
	for in, want := range map[string]Compression{
		"":        CompressDeflate,
		"deflate": CompressDeflate,
		" ZSTD ":  CompressZstd,
		"store":   CompressStore,
	} {
		got, err := ParseCompression(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseCompression("lzma")
	assert.Error(t, err)
}

func TestWritePack(t *testing.T) {
	files := map[string][]byte{
		"models/m.mdl":               []byte("IDST"),
		"materials/models/brick.vmt": []byte("$basetexture brick"),
	}

	var buf bytes.Buffer
	require.NoError(t, WritePack(&buf, files, CompressDeflate))

	r, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, r.File, 2)
	assert.Equal(t, "materials/models/brick.vmt", r.File[0].Name)
	assert.Equal(t, "models/m.mdl", r.File[1].Name)
	assert.Equal(t, zip.Deflate, r.File[0].Method)
}

func TestPackDependencies(t *testing.T) {
	for _, c := range []Compression{CompressDeflate, CompressZstd, CompressStore} {
		t.Run(string(c), func(t *testing.T) {
			_, mdlPath := writeBrickModel(t, true)
			m, err := OpenModel(mdlPath, ResolveOptions{})
			require.NoError(t, err)
			g, err := m.Dependencies()
			require.NoError(t, err)

			out := filepath.Join(t.TempDir(), "m.zip")
			n, err := PackDependencies(out, m, g.Flatten(), c)
			require.NoError(t, err)
			assert.Equal(t, 3, n)

			entries, err := ListPack(out)
			require.NoError(t, err)
			var names []string
			for _, e := range entries {
				names = append(names, e.Name)
				assert.Equal(t, c.method(), e.Method)
			}
			assert.Equal(t, []string{
				"materials/models/brick.vmt",
				"materials/tile/brick2.vtf",
				"models/props/m.mdl",
			}, names)

			data, err := ReadFileFromPack(out, "Materials/Tile/Brick2.vtf")
			require.NoError(t, err)
			assert.Equal(t, []byte("VTF\x00"), data)
		})
	}
}

func TestPackDependenciesNameCollision(t *testing.T) {
	_, mdlPath := writeBrickModel(t, true)
	m, err := OpenModel(mdlPath, ResolveOptions{})
	require.NoError(t, err)

	elsewhere := t.TempDir()
	a := mdltest.WriteFile(t, elsewhere, "a/shared.vtf", []byte("a"))
	b := mdltest.WriteFile(t, elsewhere, "b/shared.vtf", []byte("b"))

	out := filepath.Join(t.TempDir(), "m.zip")
	_, err = PackDependencies(out, m, []Dependency{
		{Kind: KindModel, Path: mdlPath},
		{Kind: KindTexture, Path: a},
		{Kind: KindTexture, Path: b},
	}, CompressStore)
	assert.ErrorContains(t, err, "would both be packed as shared.vtf")
	assert.NoFileExists(t, out)
}

func TestReadFileFromPackMissing(t *testing.T) {
	out := filepath.Join(t.TempDir(), "empty.zip")
	require.NoError(t, WritePackFile(out, map[string][]byte{"a.txt": []byte("a")}, CompressStore))

	_, err := ReadFileFromPack(out, "b.txt")
	assert.Error(t, err)
	assert.Equal(t, uint16(zstd.ZipMethodWinZip), CompressZstd.method())
}
