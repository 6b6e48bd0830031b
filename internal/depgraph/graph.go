// Package depgraph implements a rooted directed graph stored in flat slices
// and addressed by integer handles.
package depgraph

import (
	"fmt"
	"strconv"
	"strings"
)

// Handle identifies a node inside the Graph that created it.
type Handle int

type node[N any] struct {
	value   N
	removed bool
}

type edge[E any] struct {
	from, to Handle
	label    E
	removed  bool
}

// Graph is a directed graph with a distinguished root. Every live node other
// than the root is reachable from the root.
type Graph[N, E any] struct {
	root  Handle
	nodes []node[N]
	edges []edge[E]
}

// New returns a graph holding only root.
func New[N, E any](root N) *Graph[N, E] {
	return &Graph[N, E]{
		root:  0,
		nodes: []node[N]{{value: root}},
	}
}

// Root returns the handle of the root node.
func (g *Graph[N, E]) Root() Handle {
	return g.root
}

// Insert adds n as a child of the root.
func (g *Graph[N, E]) Insert(n N, e E) Handle {
	return g.InsertSub(g.root, n, e)
}

// InsertSub adds n as a child of parent. It panics if parent is not a live
// node of g.
func (g *Graph[N, E]) InsertSub(parent Handle, n N, e E) Handle {
	if !g.live(parent) {
		panic(fmt.Sprintf("depgraph: invalid parent handle %d", parent))
	}
	h := Handle(len(g.nodes))
	g.nodes = append(g.nodes, node[N]{value: n})
	g.edges = append(g.edges, edge[E]{from: parent, to: h, label: e})
	return h
}

// Node returns the value stored at h.
func (g *Graph[N, E]) Node(h Handle) (N, bool) {
	if !g.live(h) {
		var zero N
		return zero, false
	}
	return g.nodes[h].value, true
}

// Len returns the number of live nodes, root included.
func (g *Graph[N, E]) Len() int {
	n := 0
	for _, nd := range g.nodes {
		if !nd.removed {
			n++
		}
	}
	return n
}

// Children returns the handles directly reachable from h in insertion order.
func (g *Graph[N, E]) Children(h Handle) []Handle {
	var out []Handle
	for _, e := range g.edges {
		if !e.removed && e.from == h {
			out = append(out, e.to)
		}
	}
	return out
}

// Walk visits every live node breadth-first from the root. parent is -1 for
// the root; label is the zero value there.
func (g *Graph[N, E]) Walk(fn func(h, parent Handle, label E, n N)) {
	adj := g.adjacency()
	var zero E
	fn(g.root, -1, zero, g.nodes[g.root].value)

	visited := make([]bool, len(g.nodes))
	visited[g.root] = true
	queue := []Handle{g.root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, ei := range adj[cur] {
			e := g.edges[ei]
			if visited[e.to] {
				continue
			}
			visited[e.to] = true
			fn(e.to, cur, e.label, g.nodes[e.to].value)
			queue = append(queue, e.to)
		}
	}
}

// FilterRootDependencies removes every child of the root whose value fails
// keep, then prunes nodes no longer reachable from the root.
func (g *Graph[N, E]) FilterRootDependencies(keep func(N) bool) {
	for i := range g.edges {
		e := &g.edges[i]
		if e.removed || e.from != g.root {
			continue
		}
		if !keep(g.nodes[e.to].value) {
			g.nodes[e.to].removed = true
			e.removed = true
		}
	}
	g.prune()
}

// FilterRootEdges removes every child of the root whose connecting edge
// label fails keep, then prunes nodes no longer reachable from the root.
func (g *Graph[N, E]) FilterRootEdges(keep func(E) bool) {
	for i := range g.edges {
		e := &g.edges[i]
		if e.removed || e.from != g.root {
			continue
		}
		if !keep(e.label) {
			g.nodes[e.to].removed = true
			e.removed = true
		}
	}
	g.prune()
}

// Flatten returns every live node value. Order is unspecified. The graph
// must not be used afterwards.
func (g *Graph[N, E]) Flatten() []N {
	out := make([]N, 0, len(g.nodes))
	for _, nd := range g.nodes {
		if !nd.removed {
			out = append(out, nd.value)
		}
	}
	g.nodes = nil
	g.edges = nil
	return out
}

// Dot renders the graph in Graphviz format. Nodes are labelled with their %v
// formatting; edges carry no label.
func (g *Graph[N, E]) Dot() string {
	var b strings.Builder
	b.WriteString("digraph {\n")
	for i, nd := range g.nodes {
		if nd.removed {
			continue
		}
		fmt.Fprintf(&b, "    %d [ label = %s ]\n", i, strconv.Quote(fmt.Sprint(nd.value)))
	}
	for _, e := range g.edges {
		if e.removed {
			continue
		}
		fmt.Fprintf(&b, "    %d -> %d [ ]\n", e.from, e.to)
	}
	b.WriteString("}\n")
	return b.String()
}

func (g *Graph[N, E]) live(h Handle) bool {
	return h >= 0 && int(h) < len(g.nodes) && !g.nodes[h].removed
}

// adjacency maps each node to the indices of its live outgoing edges.
func (g *Graph[N, E]) adjacency() [][]int {
	adj := make([][]int, len(g.nodes))
	for i, e := range g.edges {
		if e.removed {
			continue
		}
		adj[e.from] = append(adj[e.from], i)
	}
	return adj
}

// prune marks everything reachable from the root in one pass and removes
// the rest along with their edges.
func (g *Graph[N, E]) prune() {
	adj := g.adjacency()
	reached := make([]bool, len(g.nodes))
	reached[g.root] = true
	stack := []Handle{g.root}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, ei := range adj[cur] {
			to := g.edges[ei].to
			if !reached[to] && !g.nodes[to].removed {
				reached[to] = true
				stack = append(stack, to)
			}
		}
	}

	for i := range g.nodes {
		if !reached[i] {
			g.nodes[i].removed = true
		}
	}
	for i := range g.edges {
		e := &g.edges[i]
		if !reached[e.from] || !reached[e.to] {
			e.removed = true
		}
	}
}
