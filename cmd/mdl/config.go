package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/ernie/mdl-tools/internal/assets"
)

const (
	defaultConfigName  = "mdl.yaml"
	defaultCatalogName = "mdl-catalog.db"
)

// Config is the merged result of the config file, environment, and flags.
type Config struct {
	Roots        []string
	MaterialKeys []string
	CatalogPath  string
	Compression  assets.Compression

	// Per-command options.
	DirectOnly  bool
	NoMaterials bool
	Paths       bool
	Output      string
}

// fileConfig is the YAML layout of mdl.yaml.
type fileConfig struct {
	Roots        []string `yaml:"roots"`
	MaterialKeys []string `yaml:"material_keys"`
	Catalog      string   `yaml:"catalog"`
	Pack         struct {
		Compression string `yaml:"compression"`
	} `yaml:"pack"`
}

// LoadConfig parses args for command and layers flags over environment
// variables over the config file. It returns the remaining positional args.
func LoadConfig(command string, args []string) (Config, []string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, nil, fmt.Errorf("get cwd: %w", err)
	}

	flagSet := pflag.NewFlagSet(command, pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagConfig := flagSet.String("config", "", "path to config file (default $MDL_CONFIG or ./"+defaultConfigName+")")
	flagRoots := flagSet.StringSlice("root", nil, "extra materials directory to search (repeatable)")
	flagCatalog := flagSet.String("catalog", "", "path to the reference catalog database")
	flagCompression := flagSet.String("compression", "", "pack compression: deflate|zstd|store")
	flagDirectOnly := flagSet.Bool("direct-only", false, "keep only files sharing the model's name")
	flagNoMaterials := flagSet.Bool("no-materials", false, "drop materials and the textures they reference")
	flagPaths := flagSet.Bool("paths", false, "resolve skin materials to file paths")
	flagOutput := flagSet.StringP("output", "o", "", "output file")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			flagSet.SetOutput(os.Stdout)
			flagSet.PrintDefaults()
		}
		return Config{}, nil, err
	}

	configPath := *flagConfig
	explicit := configPath != ""
	if !explicit {
		if env := os.Getenv("MDL_CONFIG"); env != "" {
			configPath, explicit = env, true
		} else {
			configPath = filepath.Join(cwd, defaultConfigName)
		}
	}
	fc, err := loadConfigFile(configPath, explicit)
	if err != nil {
		return Config{}, nil, err
	}

	cfg := Config{
		Roots:        resolvePaths(fc.Roots, filepath.Dir(configPath)),
		MaterialKeys: fc.MaterialKeys,
		CatalogPath:  resolvePath(fc.Catalog, filepath.Dir(configPath)),
		DirectOnly:   *flagDirectOnly,
		NoMaterials:  *flagNoMaterials,
		Paths:        *flagPaths,
		Output:       strings.TrimSpace(*flagOutput),
	}

	if env := os.Getenv("MDL_ROOTS"); env != "" {
		cfg.Roots = resolvePaths(filepath.SplitList(env), cwd)
	}
	if env := os.Getenv("MDL_CATALOG"); env != "" {
		cfg.CatalogPath = resolvePath(env, cwd)
	}

	if flagSet.Changed("root") {
		cfg.Roots = resolvePaths(*flagRoots, cwd)
	}
	if flagSet.Changed("catalog") {
		cfg.CatalogPath = resolvePath(*flagCatalog, cwd)
	}
	if cfg.CatalogPath == "" {
		cfg.CatalogPath = filepath.Join(cwd, defaultCatalogName)
	}

	compression := fc.Pack.Compression
	if flagSet.Changed("compression") {
		compression = *flagCompression
	}
	if cfg.Compression, err = assets.ParseCompression(compression); err != nil {
		return Config{}, nil, err
	}

	if cfg.DirectOnly && cfg.NoMaterials {
		return Config{}, nil, errors.New("--direct-only and --no-materials are mutually exclusive")
	}

	return cfg, flagSet.Args(), nil
}

// loadConfigFile reads the YAML config at path. A missing file is only an
// error when the path was given explicitly.
func loadConfigFile(path string, explicit bool) (fileConfig, error) {
	var fc fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return fc, nil
		}
		return fc, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("parse config %s: %w", path, err)
	}
	return fc, nil
}

func resolvePaths(paths []string, base string) []string {
	var out []string
	for _, p := range paths {
		if p = resolvePath(p, base); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func resolvePath(path string, base string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return trimmed
	}
	if filepath.IsAbs(trimmed) {
		return trimmed
	}
	return filepath.Join(base, trimmed)
}

// resolveOptions builds the asset resolution options for cfg.
func (cfg Config) resolveOptions() assets.ResolveOptions {
	return assets.ResolveOptions{
		Parser:     assets.NewMaterialParser(cfg.MaterialKeys...),
		ExtraRoots: cfg.Roots,
	}
}
