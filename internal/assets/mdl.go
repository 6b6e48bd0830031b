package assets

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	mdlMagic             = "IDST"
	mdlNameSize          = 64
	mdlSkippedHeaderSize = 128 // length 4 + 6 vectors 72 + flags 4 + 6 count/offset pairs 48; numtextures lands at 204
	mdlTextureSize       = 64
	mdlStringCap         = 256
)

var (
	// ErrInvalidHeader is returned when a buffer does not start with the MDL magic.
	ErrInvalidHeader = errors.New("file does not have a valid mdl header")
	// ErrSeekOutOfRange is returned when a table offset points outside the buffer.
	ErrSeekOutOfRange = errors.New("seek out of range")
)

// PartialModel is the subset of an MDL header needed to resolve dependencies.
type PartialModel struct {
	Name             string
	Version          uint32
	TextureNames     []string
	TextureDirs      []string
	SkinFamilyCount  int
	TextureSlotCount int
	Skins            []SkinVariant
}

// DecodeMDL decodes the texture tables and skin table of a compiled model.
func DecodeMDL(data []byte) (*PartialModel, error) {
	r := &mdlReader{data: data}

	magic, err := r.bytes(4)
	if err != nil {
		return nil, fmt.Errorf("read mdl magic: %w", err)
	}
	if string(magic) != mdlMagic {
		return nil, fmt.Errorf("%w: magic %q", ErrInvalidHeader, magic)
	}

	version, err := r.u32()
	if err != nil {
		return nil, fmt.Errorf("read mdl version: %w", err)
	}
	if _, err := r.u32(); err != nil {
		return nil, fmt.Errorf("read mdl checksum: %w", err)
	}
	name := r.cstring(mdlNameSize)

	if err := r.skip(mdlSkippedHeaderSize); err != nil {
		return nil, fmt.Errorf("skip mdl header: %w", err)
	}

	var hdr struct {
		TextureCount       uint32
		TextureOffset      uint32
		TextureDirCount    uint32
		TextureDirOffset   uint32
		SkinReferenceCount uint32
		SkinFamilyCount    uint32
		SkinReferenceIndex uint32
	}
	for _, field := range []*uint32{
		&hdr.TextureCount, &hdr.TextureOffset,
		&hdr.TextureDirCount, &hdr.TextureDirOffset,
		&hdr.SkinReferenceCount, &hdr.SkinFamilyCount, &hdr.SkinReferenceIndex,
	} {
		if *field, err = r.u32(); err != nil {
			return nil, fmt.Errorf("read mdl table header: %w", err)
		}
	}

	textureNames := make([]string, 0, min(hdr.TextureCount, 1024))
	for i := int64(0); i < int64(hdr.TextureCount); i++ {
		entry := int64(hdr.TextureOffset) + i*mdlTextureSize
		if err := r.seek(entry); err != nil {
			return nil, fmt.Errorf("seek texture %d: %w", i, err)
		}
		nameOffset, err := r.u32()
		if err != nil {
			return nil, fmt.Errorf("read texture %d name offset: %w", i, err)
		}
		if err := r.skip(int64(nameOffset) - 4); err != nil {
			return nil, fmt.Errorf("seek texture %d name: %w", i, err)
		}
		textureNames = append(textureNames, r.cstring(mdlStringCap))
	}

	textureDirs := make([]string, 0, min(hdr.TextureDirCount, 1024))
	for i := int64(0); i < int64(hdr.TextureDirCount); i++ {
		if err := r.seek(int64(hdr.TextureDirOffset) + i*4); err != nil {
			return nil, fmt.Errorf("seek texture dir %d: %w", i, err)
		}
		abs, err := r.u32()
		if err != nil {
			return nil, fmt.Errorf("read texture dir %d offset: %w", i, err)
		}
		if err := r.seek(int64(abs)); err != nil {
			return nil, fmt.Errorf("seek texture dir %d name: %w", i, err)
		}
		textureDirs = append(textureDirs, r.cstring(mdlStringCap))
	}

	model := &PartialModel{
		Name:         name,
		Version:      version,
		TextureNames: textureNames,
		TextureDirs:  textureDirs,
	}

	if hdr.SkinFamilyCount == 0 {
		return model, nil
	}

	table, err := readSkinTable(r, int64(hdr.SkinReferenceIndex), int(hdr.SkinReferenceCount), int(hdr.SkinFamilyCount))
	if err != nil {
		return nil, err
	}
	model.SkinFamilyCount = int(hdr.SkinFamilyCount)
	model.Skins = CompactSkins(table, model.SkinFamilyCount)
	if len(model.Skins) > 0 {
		model.TextureSlotCount = len(model.Skins[0])
	}
	return model, nil
}

// readSkinTable reads the family-major skin table and returns it indexed
// as table[reference][family].
func readSkinTable(r *mdlReader, offset int64, references, families int) ([][]uint16, error) {
	if err := r.seek(offset); err != nil {
		return nil, fmt.Errorf("seek skin table: %w", err)
	}
	if int64(references)*int64(families)*2 > int64(r.remaining()) {
		return nil, fmt.Errorf("read skin table: %d families of %d references: %w",
			families, references, io.ErrUnexpectedEOF)
	}

	table := make([][]uint16, references)
	for ref := range table {
		table[ref] = make([]uint16, families)
	}
	for family := 0; family < families; family++ {
		for ref := 0; ref < references; ref++ {
			v, err := r.u16()
			if err != nil {
				return nil, fmt.Errorf("read skin family %d reference %d: %w", family, ref, err)
			}
			table[ref][family] = v
		}
	}
	return table, nil
}

// mdlReader is a seekable little-endian cursor over an in-memory model.
type mdlReader struct {
	data []byte
	pos  int64
}

func (r *mdlReader) remaining() int {
	return len(r.data) - int(r.pos)
}

func (r *mdlReader) seek(pos int64) error {
	if pos < 0 || pos > int64(len(r.data)) {
		return fmt.Errorf("offset %d in %d bytes: %w", pos, len(r.data), ErrSeekOutOfRange)
	}
	r.pos = pos
	return nil
}

func (r *mdlReader) skip(n int64) error {
	return r.seek(r.pos + n)
}

func (r *mdlReader) bytes(n int) ([]byte, error) {
	if n > r.remaining() {
		return nil, io.ErrUnexpectedEOF
	}
	b := r.data[r.pos : r.pos+int64(n)]
	r.pos += int64(n)
	return b, nil
}

func (r *mdlReader) u32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *mdlReader) u16() (uint16, error) {
	b, err := r.bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// cstring consumes up to size bytes and returns the text before the first
// null. A field without a null decodes as "".
func (r *mdlReader) cstring(size int) string {
	n := min(size, r.remaining())
	b := r.data[r.pos : r.pos+int64(n)]
	r.pos += int64(n)
	return readNullTerminated(b)
}

// readNullTerminated returns the bytes before the first null, or "" if b
// holds none.
func readNullTerminated(b []byte) string {
	idx := bytes.IndexByte(b, 0)
	if idx < 0 {
		return ""
	}
	return string(b[:idx])
}
