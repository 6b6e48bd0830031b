// Package mdltest builds synthetic compiled model files for tests.
package mdltest

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	nameSize    = 64
	textureSize = 64

	// TableOffset is where the texture and skin table fields begin:
	// magic, version, checksum, name, then the skipped header block.
	TableOffset = 12 + nameSize + 128
)

// Model describes a synthetic MDL buffer.
type Model struct {
	Name     string
	Version  uint32
	Textures []string
	Dirs     []string
	Skins    [][]uint16 // [family][reference], as stored on disk
}

// Build lays out the header, the texture and directory tables, the skin
// table, and finally the strings they point at.
func (m Model) Build() []byte {
	le := binary.LittleEndian
	texOffset := TableOffset + 7*4
	dirOffset := texOffset + len(m.Textures)*textureSize
	skinOffset := dirOffset + len(m.Dirs)*4
	refs := 0
	if len(m.Skins) > 0 {
		refs = len(m.Skins[0])
	}
	stringsOffset := skinOffset + len(m.Skins)*refs*2

	buf := make([]byte, stringsOffset)
	copy(buf[0:4], "IDST")
	le.PutUint32(buf[4:], m.Version)
	le.PutUint32(buf[8:], 0xDEADBEEF)
	copy(buf[12:12+nameSize-1], m.Name)

	fields := []int{
		len(m.Textures), texOffset,
		len(m.Dirs), dirOffset,
		refs, len(m.Skins), skinOffset,
	}
	for i, v := range fields {
		le.PutUint32(buf[TableOffset+i*4:], uint32(v))
	}

	appendString := func(s string) int {
		pos := len(buf)
		buf = append(buf, s...)
		buf = append(buf, 0)
		return pos
	}
	for i, tex := range m.Textures {
		entry := texOffset + i*textureSize
		pos := appendString(tex)
		le.PutUint32(buf[entry:], uint32(pos-entry))
	}
	for i, dir := range m.Dirs {
		pos := appendString(dir)
		le.PutUint32(buf[dirOffset+i*4:], uint32(pos))
	}
	for f, family := range m.Skins {
		for r, idx := range family {
			le.PutUint16(buf[skinOffset+(f*refs+r)*2:], idx)
		}
	}
	return buf
}

// WriteFile creates path (and its parents) under dir with content and
// returns the full path.
func WriteFile(t *testing.T, dir, path string, content []byte) string {
	t.Helper()
	full := filepath.Join(dir, filepath.FromSlash(path))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, content, 0644))
	return full
}

// WriteBrickTree lays out <root>/models/props/m.mdl with one texture "brick"
// in directory "models/", materials/models/brick.vmt referencing
// tile/brick2, and, when withTexture is set, materials/tile/brick2.vtf.
func WriteBrickTree(t *testing.T, root string, withTexture bool) string {
	t.Helper()
	mdlPath := WriteFile(t, root, "models/props/m.mdl", Model{
		Name:     "props/m.mdl",
		Textures: []string{"brick"},
		Dirs:     []string{"models/"},
	}.Build())
	WriteFile(t, root, "materials/models/brick.vmt",
		[]byte("VertexLitGeneric\n{\n\t$basetexture \"tile/brick2\"\n}\n"))
	if withTexture {
		WriteFile(t, root, "materials/tile/brick2.vtf", []byte("VTF\x00"))
	}
	return mdlPath
}
