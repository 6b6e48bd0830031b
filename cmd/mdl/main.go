// Command mdl lists, packs, and indexes the files a compiled model depends on.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/ernie/mdl-tools/internal/assets"
	"github.com/ernie/mdl-tools/internal/catalog"
)

const usage = `usage: mdl <command> [flags] args...

commands:
  deps <model.mdl>            list every file the model needs
  dot <model.mdl>             print the dependency graph in Graphviz format
  skins <model.mdl>           list material names per skin (--paths to resolve)
  manifest <model.mdl>        write a JSON manifest (-o file, .zst to compress)
  pack <model.mdl> <out.zip>  zip the model and its dependencies
  cat <pack.zip> <name>       print one file from a pack
  index <model.mdl>...        record models in the reference catalog
  models                      list every model in the reference catalog
  users <path>                list catalog models referencing an asset path
  exclusive <model path>      list catalog files used by only this model
`

func main() {
	log.SetFlags(0)

	if len(os.Args) < 2 || os.Args[1] == "-h" || os.Args[1] == "--help" {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]

	cfg, args, err := LoadConfig(command, os.Args[2:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatalf("mdl %s: %v", command, err)
	}

	tty := term.IsTerminal(int(os.Stdout.Fd()))
	if err := run(context.Background(), command, cfg, args, os.Stdout, tty); err != nil {
		log.Fatalf("mdl %s: %v", command, err)
	}
}

func run(ctx context.Context, command string, cfg Config, args []string, out io.Writer, tty bool) error {
	switch command {
	case "deps", "dependencies":
		return runDeps(cfg, args, out, tty)
	case "dot":
		return runDot(cfg, args, out)
	case "skins":
		return runSkins(cfg, args, out)
	case "manifest":
		return runManifest(cfg, args, out)
	case "pack":
		return runPack(cfg, args, out, tty)
	case "cat":
		return runCat(args, out)
	case "index":
		return runIndex(ctx, cfg, args, out)
	case "models":
		return runModels(ctx, cfg, args, out)
	case "users":
		return runUsers(ctx, cfg, args, out)
	case "exclusive":
		return runExclusive(ctx, cfg, args, out)
	}
	return fmt.Errorf("unknown command %q\n\n%s", command, usage)
}

func expectArgs(args []string, n int, what string) error {
	if len(args) != n {
		return fmt.Errorf("expected %s, got %d arguments", what, len(args))
	}
	return nil
}

// resolve opens the model and builds its filtered dependency graph.
func resolve(cfg Config, path string) (*assets.Model, *assets.DependencyGraph, error) {
	m, err := assets.OpenModel(path, cfg.resolveOptions())
	if err != nil {
		return nil, nil, err
	}
	g, err := m.Dependencies()
	if err != nil {
		return nil, nil, fmt.Errorf("resolve dependencies: %w", err)
	}
	switch {
	case cfg.DirectOnly:
		g.FilterRootEdges(func(r assets.Relation) bool { return r == assets.Direct })
	case cfg.NoMaterials:
		g.FilterRootDependencies(func(d assets.Dependency) bool { return d.Kind != assets.KindMaterial })
	}
	return m, g, nil
}

func runDeps(cfg Config, args []string, out io.Writer, tty bool) error {
	if err := expectArgs(args, 1, "one model path"); err != nil {
		return err
	}
	_, g, err := resolve(cfg, args[0])
	if err != nil {
		return err
	}
	return printDependencies(out, g, tty)
}

func runDot(cfg Config, args []string, out io.Writer) error {
	if err := expectArgs(args, 1, "one model path"); err != nil {
		return err
	}
	_, g, err := resolve(cfg, args[0])
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, g.Dot())
	return err
}

func runSkins(cfg Config, args []string, out io.Writer) error {
	if err := expectArgs(args, 1, "one model path"); err != nil {
		return err
	}
	m, err := assets.OpenModel(args[0], cfg.resolveOptions())
	if err != nil {
		return err
	}
	if cfg.Paths {
		printSkinPaths(out, m.SkinsWithMaterialPaths())
	} else {
		printSkinNames(out, m.SkinsWithMaterialNames())
	}
	return nil
}

func runManifest(cfg Config, args []string, out io.Writer) error {
	if err := expectArgs(args, 1, "one model path"); err != nil {
		return err
	}
	m, g, err := resolve(cfg, args[0])
	if err != nil {
		return err
	}
	man, err := assets.BuildManifest(m, g)
	if err != nil {
		return fmt.Errorf("build manifest: %w", err)
	}
	if cfg.Output == "" {
		return writeManifestJSON(out, man)
	}
	if err := man.Save(cfg.Output); err != nil {
		return err
	}
	log.Printf("Manifest saved to %s (%d files, %s)", cfg.Output, len(man.Files), humanize.Bytes(uint64(man.TotalSize())))
	return nil
}

func runPack(cfg Config, args []string, out io.Writer, tty bool) error {
	if err := expectArgs(args, 2, "a model path and an output zip"); err != nil {
		return err
	}
	m, g, err := resolve(cfg, args[0])
	if err != nil {
		return err
	}
	if _, err := assets.PackDependencies(args[1], m, g.Flatten(), cfg.Compression); err != nil {
		return err
	}
	entries, err := assets.ListPack(args[1])
	if err != nil {
		return err
	}
	printPackEntries(out, entries, tty)
	return nil
}

func runCat(args []string, out io.Writer) error {
	if err := expectArgs(args, 2, "a pack path and an entry name"); err != nil {
		return err
	}
	data, err := assets.ReadFileFromPack(args[0], args[1])
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}

func runIndex(ctx context.Context, cfg Config, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("expected at least one model path")
	}
	cat, err := catalog.Open(cfg.CatalogPath)
	if err != nil {
		return err
	}
	defer cat.Close()

	indexed := 0
	for _, path := range args {
		m, g, err := resolve(cfg, path)
		if err != nil {
			log.Printf("Warning: skipping %s: %v", path, err)
			continue
		}
		man, err := assets.BuildManifest(m, g)
		if err != nil {
			log.Printf("Warning: skipping %s: %v", path, err)
			continue
		}
		if err := cat.Record(ctx, man); err != nil {
			return fmt.Errorf("record %s: %w", path, err)
		}
		indexed++
	}
	fmt.Fprintf(out, "indexed %d of %d models into %s\n", indexed, len(args), cfg.CatalogPath)
	return nil
}

func runModels(ctx context.Context, cfg Config, args []string, out io.Writer) error {
	if err := expectArgs(args, 0, "no arguments"); err != nil {
		return err
	}
	return queryCatalog(cfg, out, func(cat *catalog.Catalog) ([]string, error) {
		return cat.Models(ctx)
	})
}

func runUsers(ctx context.Context, cfg Config, args []string, out io.Writer) error {
	if err := expectArgs(args, 1, "one asset path"); err != nil {
		return err
	}
	return queryCatalog(cfg, out, func(cat *catalog.Catalog) ([]string, error) {
		return cat.Users(ctx, args[0])
	})
}

func runExclusive(ctx context.Context, cfg Config, args []string, out io.Writer) error {
	if err := expectArgs(args, 1, "one model path as indexed"); err != nil {
		return err
	}
	return queryCatalog(cfg, out, func(cat *catalog.Catalog) ([]string, error) {
		return cat.Exclusive(ctx, args[0])
	})
}

func queryCatalog(cfg Config, out io.Writer, query func(*catalog.Catalog) ([]string, error)) error {
	cat, err := catalog.Open(cfg.CatalogPath)
	if err != nil {
		return err
	}
	defer cat.Close()

	lines, err := query(cat)
	if err != nil {
		return err
	}
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
	return nil
}
