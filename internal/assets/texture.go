package assets

import (
	"os"
	"path/filepath"
	"strings"
)

// FileChecker reports whether a path names an existing file.
type FileChecker interface {
	Exists(path string) bool
}

// DiskFiles checks paths against the local filesystem.
type DiskFiles struct{}

// Exists reports whether path is an existing regular file.
func (DiskFiles) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// PathResolver maps bare material and texture names onto files under a list
// of asset roots. Roots are searched in order, then directory prefixes in
// order; the first existing candidate wins. With no roots, candidates are
// the bare prefix+name+ext.
type PathResolver struct {
	Roots []string
	Files FileChecker
}

// Resolve returns the first existing root/prefix+name+ext. The asset-relative
// part is normalized to forward slashes and lower-cased. A name that already
// carries ext is not given it twice.
func (p *PathResolver) Resolve(dirs []string, name, ext string) (string, bool) {
	files := p.Files
	if files == nil {
		files = DiskFiles{}
	}
	if ext != "" && len(name) >= len(ext) && strings.EqualFold(name[len(name)-len(ext):], ext) {
		name = name[:len(name)-len(ext)]
	}

	roots := p.Roots
	if len(roots) == 0 {
		roots = []string{""}
	}
	for _, root := range roots {
		for _, dir := range dirs {
			candidate := filepath.Join(root, filepath.FromSlash(normalizeAssetPath(dir+name+ext)))
			if files.Exists(candidate) {
				return candidate, true
			}
		}
	}
	return "", false
}

// normalizeAssetPath converts backslashes to forward slashes and lower-cases p.
func normalizeAssetPath(p string) string {
	return strings.ToLower(strings.ReplaceAll(p, "\\", "/"))
}
