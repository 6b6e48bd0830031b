package assets

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// DefaultMaterialKeys are the material parameters that name textures.
var DefaultMaterialKeys = []string{
	"basetexture",
	"iris",
	"ambientoccltexture",
	"bumpmap",
	"phongexponenttexture",
	"detail",
	"selfillummask",
	"lightwarptexture",
	"envmap",
	"corneatexture",
}

var materialParamPattern = regexp.MustCompile(`(?m)"?\$(\w+)"?\s+(.*)$`)

// MaterialDescriptor holds the texture references found in a .vmt file.
type MaterialDescriptor struct {
	Textures []string
}

// MaterialParser extracts texture references from material descriptors. It
// holds no mutable state and may be shared.
type MaterialParser struct {
	keys map[string]bool
}

// NewMaterialParser returns a parser recognizing keys, or DefaultMaterialKeys
// when none are given. Keys match case-insensitively and without the $ sigil.
func NewMaterialParser(keys ...string) *MaterialParser {
	if len(keys) == 0 {
		keys = DefaultMaterialKeys
	}
	p := &MaterialParser{keys: make(map[string]bool, len(keys))}
	for _, k := range keys {
		p.keys[strings.ToLower(strings.TrimPrefix(k, "$"))] = true
	}
	return p
}

// ParseString extracts the deduplicated texture references from text.
// Backslashes in values are left as written.
func (p *MaterialParser) ParseString(text string) *MaterialDescriptor {
	desc := &MaterialDescriptor{}
	seen := make(map[string]bool)
	for _, m := range materialParamPattern.FindAllStringSubmatch(text, -1) {
		if !p.keys[strings.ToLower(m[1])] {
			continue
		}
		value := strings.TrimSpace(strings.Trim(strings.TrimSpace(m[2]), `"`))
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		desc.Textures = append(desc.Textures, value)
	}
	return desc
}

// Parse reads a whole material descriptor from r.
func (p *MaterialParser) Parse(r io.Reader) (*MaterialDescriptor, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read material: %w", err)
	}
	return p.ParseString(string(data)), nil
}

// ParseFile parses the material descriptor at path.
func (p *MaterialParser) ParseFile(path string) (*MaterialDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read material %s: %w", path, err)
	}
	return p.ParseString(string(data)), nil
}
