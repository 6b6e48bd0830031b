package assets

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/blake2b"

	"github.com/ernie/mdl-tools/internal/depgraph"
)

// Manifest records a model's resolved dependency set with content digests.
type Manifest struct {
	Model      string          `json:"model"`      // model path relative to AssetsRoot
	AssetsRoot string          `json:"assetsRoot"` // as seen when the manifest was built
	Files      []ManifestEntry `json:"files"`
}

// ManifestEntry is one file of a Manifest.
type ManifestEntry struct {
	Path     string `json:"path"`     // slash-separated, relative to the assets root
	Kind     string `json:"kind"`     // model, material, texture
	Relation string `json:"relation"` // root, direct, indirect
	Size     int64  `json:"size"`
	Digest   string `json:"blake2b"` // hex BLAKE2b-256 of the file contents
}

// BuildManifest hashes every file in g. Entries are sorted by path.
func BuildManifest(m *Model, g *DependencyGraph) (*Manifest, error) {
	man := &Manifest{
		Model:      m.RelativePath(m.Path),
		AssetsRoot: filepath.ToSlash(m.AssetsRoot()),
	}

	var walkErr error
	g.Walk(func(h, parent depgraph.Handle, rel Relation, dep Dependency) {
		if walkErr != nil {
			return
		}
		relation := rel.String()
		if parent < 0 {
			relation = "root"
		}
		size, digest, err := hashFile(dep.Path)
		if err != nil {
			walkErr = err
			return
		}
		man.Files = append(man.Files, ManifestEntry{
			Path:     m.RelativePath(dep.Path),
			Kind:     dep.Kind.String(),
			Relation: relation,
			Size:     size,
			Digest:   digest,
		})
	})
	if walkErr != nil {
		return nil, walkErr
	}

	sort.Slice(man.Files, func(i, j int) bool {
		return man.Files[i].Path < man.Files[j].Path
	})
	return man, nil
}

// TotalSize sums the sizes of all entries.
func (man *Manifest) TotalSize() int64 {
	var total int64
	for _, f := range man.Files {
		total += f.Size
	}
	return total
}

func hashFile(path string) (int64, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return 0, "", err
	}
	n, err := io.Copy(h, f)
	if err != nil {
		return 0, "", fmt.Errorf("hash %s: %w", path, err)
	}
	return n, hex.EncodeToString(h.Sum(nil)), nil
}

// RelativePath returns path relative to the model's assets root, with
// forward slashes. Files under an extra root are placed under materials/.
// Anything else keeps only its base name, so two such files can share a
// relative path; PackDependencies rejects that.
func (m *Model) RelativePath(path string) string {
	if rel, ok := relativeTo(m.AssetsRoot(), path); ok {
		return rel
	}
	for _, root := range m.opts.ExtraRoots {
		if rel, ok := relativeTo(root, path); ok {
			return "materials/" + rel
		}
	}
	return filepath.Base(path)
}

func relativeTo(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// LoadManifest loads a manifest from a JSON file. Paths ending in .zst are
// read as zstd-compressed JSON.
func LoadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("read manifest: %w", err)
		}
		defer dec.Close()
		r = dec
	}

	var m Manifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// Save writes the manifest to a JSON file, zstd-compressed when path ends
// in .zst.
func (man *Manifest) Save(path string) error {
	data, err := json.MarshalIndent(man, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if strings.HasSuffix(path, ".zst") {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return fmt.Errorf("compress manifest: %w", err)
		}
		data = enc.EncodeAll(data, nil)
		enc.Close()
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
