package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/ernie/mdl-tools/internal/assets"
	"github.com/ernie/mdl-tools/internal/depgraph"
)

// printDependencies writes one path per line, breadth-first from the model.
// On a terminal it adds kind, relation, and size columns.
func printDependencies(out io.Writer, g *assets.DependencyGraph, tty bool) error {
	if !tty {
		g.Walk(func(_, _ depgraph.Handle, _ assets.Relation, dep assets.Dependency) {
			fmt.Fprintln(out, dep.Path)
		})
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	var total uint64
	count := 0
	g.Walk(func(_, parent depgraph.Handle, rel assets.Relation, dep assets.Dependency) {
		relation := rel.String()
		if parent < 0 {
			relation = "root"
		}
		size := "-"
		if info, err := os.Stat(dep.Path); err == nil {
			size = humanize.Bytes(uint64(info.Size()))
			total += uint64(info.Size())
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", dep.Kind, relation, size, dep.Path)
		count++
	})
	fmt.Fprintf(tw, "\t\t%s\t%d files\n", humanize.Bytes(total), count)
	return tw.Flush()
}

func printSkinNames(out io.Writer, skins [][]string) {
	for i, skin := range skins {
		fmt.Fprintf(out, "skin %d: %s\n", i, strings.Join(skin, ", "))
	}
}

func printSkinPaths(out io.Writer, skins [][]assets.MaterialSlot) {
	for i, skin := range skins {
		fmt.Fprintf(out, "skin %d:\n", i)
		for slot, m := range skin {
			path := "(missing)"
			if m.Found {
				path = m.Path
			}
			fmt.Fprintf(out, "  %d %s: %s\n", slot, m.Name, path)
		}
	}
}

func writeManifestJSON(out io.Writer, man *assets.Manifest) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(man)
}

func printPackEntries(out io.Writer, entries []assets.PackEntry, tty bool) {
	if !tty {
		for _, e := range entries {
			fmt.Fprintln(out, e.Name)
		}
		return
	}
	var total uint64
	for _, e := range entries {
		fmt.Fprintf(out, "%10s  %s\n", humanize.Bytes(e.Size), e.Name)
		total += e.Size
	}
	fmt.Fprintf(out, "%10s  %d files\n", humanize.Bytes(total), len(entries))
}
