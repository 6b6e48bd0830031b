package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ernie/mdl-tools/internal/depgraph"
)

// AssetKind classifies a file in a model's dependency graph.
type AssetKind int

const (
	KindModel AssetKind = iota
	KindMaterial
	KindTexture
)

func (k AssetKind) String() string {
	switch k {
	case KindModel:
		return "model"
	case KindMaterial:
		return "material"
	case KindTexture:
		return "texture"
	}
	return fmt.Sprintf("AssetKind(%d)", int(k))
}

// Dependency is one file a model needs.
type Dependency struct {
	Kind AssetKind
	Path string
}

func (d Dependency) String() string {
	return d.Kind.String() + " " + d.Path
}

// Relation labels how a dependency was discovered.
type Relation int

const (
	// Direct dependencies share the model's file stem.
	Direct Relation = iota
	// Indirect dependencies were reached through texture and material references.
	Indirect
)

func (r Relation) String() string {
	if r == Direct {
		return "direct"
	}
	return "indirect"
}

// DependencyGraph is the graph produced by Model.Dependencies.
type DependencyGraph = depgraph.Graph[Dependency, Relation]

// ResolveOptions configures dependency discovery. The zero value searches
// only the model's own assets root on disk with the default material keys.
type ResolveOptions struct {
	Parser     *MaterialParser
	ExtraRoots []string // searched after <assets root>/materials
	Files      FileChecker
}

// Model is a decoded model file together with its location on disk.
type Model struct {
	Path    string
	Partial *PartialModel

	opts ResolveOptions
}

// OpenModel reads and decodes the model at path.
func OpenModel(path string, opts ResolveOptions) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	partial, err := DecodeMDL(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if opts.Parser == nil {
		opts.Parser = NewMaterialParser()
	}
	if opts.Files == nil {
		opts.Files = DiskFiles{}
	}
	return &Model{Path: path, Partial: partial, opts: opts}, nil
}

// AssetsRoot walks up from the model's directory once per path separator in
// the embedded model name, plus one.
func (m *Model) AssetsRoot() string {
	depth := strings.Count(strings.ReplaceAll(m.Partial.Name, "\\", "/"), "/") + 1
	root := filepath.Dir(m.Path)
	for i := 0; i < depth; i++ {
		root = filepath.Dir(root)
	}
	return root
}

// MaterialsDir is the materials directory under the assets root.
func (m *Model) MaterialsDir() string {
	return filepath.Join(m.AssetsRoot(), "materials")
}

func (m *Model) resolver() *PathResolver {
	roots := append([]string{m.MaterialsDir()}, m.opts.ExtraRoots...)
	return &PathResolver{Roots: roots, Files: m.opts.Files}
}

// Dependencies builds the model's dependency graph. Missing materials and
// textures are left out; unreadable files are errors.
func (m *Model) Dependencies() (*DependencyGraph, error) {
	g := depgraph.New[Dependency, Relation](Dependency{Kind: KindModel, Path: m.Path})

	siblings, err := m.siblingFiles()
	if err != nil {
		return nil, err
	}
	for _, path := range siblings {
		g.Insert(Dependency{Kind: KindModel, Path: path}, Direct)
	}

	resolver := m.resolver()
	seen := make(map[string]bool)
	for _, texName := range m.Partial.TextureNames {
		matPath, ok := resolver.Resolve(m.Partial.TextureDirs, texName, ".vmt")
		if !ok {
			continue
		}
		matNode := g.Insert(Dependency{Kind: KindMaterial, Path: matPath}, Indirect)

		desc, err := m.opts.Parser.ParseFile(matPath)
		if err != nil {
			return nil, err
		}
		for _, ref := range desc.Textures {
			texPath, ok := resolver.Resolve([]string{""}, ref, ".vtf")
			if !ok || seen[texPath] {
				continue
			}
			seen[texPath] = true
			g.InsertSub(matNode, Dependency{Kind: KindTexture, Path: texPath}, Indirect)
		}
	}
	return g, nil
}

// siblingFiles lists regular files next to the model whose name is the
// model's stem followed by a dot, compared case-insensitively.
func (m *Model) siblingFiles() ([]string, error) {
	dir := filepath.Dir(m.Path)
	base := filepath.Base(m.Path)
	prefix := strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base))) + "."

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list model directory: %w", err)
	}
	var out []string
	for _, e := range entries {
		if !e.Type().IsRegular() || e.Name() == base {
			continue
		}
		if strings.HasPrefix(strings.ToLower(e.Name()), prefix) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}

// SkinsWithMaterialNames maps every skin's slots to texture names.
func (m *Model) SkinsWithMaterialNames() [][]string {
	skins := make([][]string, len(m.Partial.Skins))
	for i, skin := range m.Partial.Skins {
		names := make([]string, len(skin))
		for slot, idx := range skin {
			if int(idx) < len(m.Partial.TextureNames) {
				names[slot] = m.Partial.TextureNames[idx]
			}
		}
		skins[i] = names
	}
	return skins
}

// MaterialSlot is one skin slot with its resolved material file, if any.
type MaterialSlot struct {
	Name  string
	Path  string
	Found bool
}

// SkinsWithMaterialPaths is SkinsWithMaterialNames with each name resolved
// against the material search path.
func (m *Model) SkinsWithMaterialPaths() [][]MaterialSlot {
	resolver := m.resolver()
	names := m.SkinsWithMaterialNames()
	skins := make([][]MaterialSlot, len(names))
	for i, skin := range names {
		slots := make([]MaterialSlot, len(skin))
		for j, name := range skin {
			path, ok := resolver.Resolve(m.Partial.TextureDirs, name, ".vmt")
			slots[j] = MaterialSlot{Name: name, Path: path, Found: ok}
		}
		skins[i] = slots
	}
	return skins
}
