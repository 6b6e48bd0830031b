package assets

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// Compression selects the zip method used by WritePack.
type Compression string

const (
	CompressDeflate Compression = "deflate"
	CompressZstd    Compression = "zstd"
	CompressStore   Compression = "store"
)

// ParseCompression maps a config or flag value onto a Compression.
func ParseCompression(s string) (Compression, error) {
	switch c := Compression(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return CompressDeflate, nil
	case CompressDeflate, CompressZstd, CompressStore:
		return c, nil
	}
	return "", fmt.Errorf("unknown compression %q", s)
}

func (c Compression) method() uint16 {
	switch c {
	case CompressZstd:
		return zstd.ZipMethodWinZip
	case CompressStore:
		return zip.Store
	}
	return zip.Deflate
}

// WritePackFile creates a zip file at outputPath holding files.
func WritePackFile(outputPath string, files map[string][]byte, c Compression) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outputPath, err)
	}
	if err := WritePack(f, files, c); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WritePack writes files as a zip to w. Entries are sorted for deterministic
// output.
func WritePack(w io.Writer, files map[string][]byte, c Compression) error {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zstd.ZipMethodWinZip, zstd.ZipCompressor())

	keys := make([]string, 0, len(files))
	for k := range files {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, name := range keys {
		header := &zip.FileHeader{
			Name:   name,
			Method: c.method(),
		}
		fw, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("create entry %s: %w", name, err)
		}
		if _, err := fw.Write(files[name]); err != nil {
			return fmt.Errorf("write entry %s: %w", name, err)
		}
	}

	return zw.Close()
}

// PackDependencies writes every dependency into a zip at outputPath, named by
// its path relative to the model's assets root. It returns the entry count.
// Two files that map to the same entry name are an error.
func PackDependencies(outputPath string, m *Model, deps []Dependency, c Compression) (int, error) {
	files := make(map[string][]byte, len(deps))
	sources := make(map[string]string, len(deps))
	for _, dep := range deps {
		name := m.RelativePath(dep.Path)
		if prev, ok := sources[name]; ok && prev != dep.Path {
			return 0, fmt.Errorf("%s and %s would both be packed as %s", prev, dep.Path, name)
		}
		sources[name] = dep.Path

		data, err := os.ReadFile(dep.Path)
		if err != nil {
			return 0, fmt.Errorf("read %s: %w", dep.Kind, err)
		}
		files[name] = data
	}

	if err := WritePackFile(outputPath, files, c); err != nil {
		return 0, fmt.Errorf("write pack: %w", err)
	}
	log.Printf("  %s: %d files", m.RelativePath(m.Path), len(files))
	return len(files), nil
}

// PackEntry describes one file inside a pack.
type PackEntry struct {
	Name   string
	Size   uint64
	Method uint16
}

// ListPack returns the entries of a pack in archive order.
func ListPack(path string) ([]PackEntry, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open pack %s: %w", path, err)
	}
	defer r.Close()

	entries := make([]PackEntry, 0, len(r.File))
	for _, f := range r.File {
		entries = append(entries, PackEntry{
			Name:   f.Name,
			Size:   f.UncompressedSize64,
			Method: f.Method,
		})
	}
	return entries, nil
}

// ReadFileFromPack reads a single file from a pack, matching names
// case-insensitively.
func ReadFileFromPack(packPath, name string) ([]byte, error) {
	r, err := zip.OpenReader(packPath)
	if err != nil {
		return nil, fmt.Errorf("open pack %s: %w", packPath, err)
	}
	defer r.Close()
	r.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())

	for _, f := range r.File {
		if strings.EqualFold(f.Name, name) {
			rc, err := f.Open()
			if err != nil {
				return nil, fmt.Errorf("open %s in %s: %w", name, packPath, err)
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("%s not found in %s", name, packPath)
}
