// Package graph implements the in-memory reasoning trace: a directed graph of
// short text nodes grown by merging completion-service fragments, partitioned
// by a bright cursor into an active prefix and a dim suffix.
package graph

import (
	"fmt"

	"github.com/mbucher/cotrace/internal/types"
)

// Graph is an ordered sequence of nodes plus a set of edges. Node ids are
// unique and strictly increasing in append order; they are never reused, even
// after pruning. A Graph has a single logical writer; callers serialize.
type Graph struct {
	nodes  []types.Node
	edges  []types.Edge
	nextID int
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{nextID: 1}
}

// FromLinear builds a graph whose nodes carry the given texts and kinds in
// order, connected by unlabeled edges i -> i+1. Used when re-expanding a
// stored session, which records order only.
func FromLinear(texts []string, kinds []types.NodeKind, refs []int64) *Graph {
	g := New()
	for i, text := range texts {
		kind := types.KindStep
		if i < len(kinds) {
			kind = types.NormalizeKind(kinds[i])
		}
		var ref int64
		if i < len(refs) {
			ref = refs[i]
		}
		id := g.nextID
		g.nextID++
		g.nodes = append(g.nodes, types.Node{ID: id, Kind: kind, Text: text, ContentRef: ref})
		if i > 0 {
			g.edges = append(g.edges, types.Edge{From: id - 1, To: id})
		}
	}
	return g
}

// FromParts rebuilds a graph from explicit nodes and edges, as when importing
// a trace file. Edges whose endpoints are missing are dropped; future ids
// continue past the maximum seen.
func FromParts(nodes []types.Node, edges []types.Edge) *Graph {
	g := New()
	present := make(map[int]bool, len(nodes))
	for _, n := range nodes {
		if n.ID <= 0 || present[n.ID] {
			continue
		}
		present[n.ID] = true
		g.nodes = append(g.nodes, types.Node{
			ID:         n.ID,
			Kind:       types.NormalizeKind(n.Kind),
			Text:       n.Text,
			ContentRef: n.ContentRef,
		})
		if n.ID >= g.nextID {
			g.nextID = n.ID + 1
		}
	}
	for _, e := range edges {
		if present[e.From] && present[e.To] {
			g.edges = append(g.edges, e)
		}
	}
	return g
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Nodes returns a copy of the node sequence in append order.
func (g *Graph) Nodes() []types.Node {
	out := make([]types.Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edges returns a copy of the edge set.
func (g *Graph) Edges() []types.Edge {
	out := make([]types.Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Node returns the node at append-order index i.
func (g *Graph) Node(i int) (types.Node, error) {
	if i < 0 || i >= len(g.nodes) {
		return types.Node{}, fmt.Errorf("node index %d out of range (length %d)", i, len(g.nodes))
	}
	return g.nodes[i], nil
}

// Append adds the fragment's nodes to the graph. Each node gets a fresh id
// continuing from the current maximum; fragment-local ids are remapped through
// a translation table, and edges whose endpoints are not in the table are
// dropped silently. If the graph was non-empty, one unlabeled connecting edge
// is added from the previous last node to the first new node. Returns the
// (first, last) new ids, or (0, 0) when the fragment has no nodes.
func (g *Graph) Append(nodes []types.Node, edges []types.Edge) (first, last int) {
	if len(nodes) == 0 {
		return 0, 0
	}

	prevLast := 0
	if len(g.nodes) > 0 {
		prevLast = g.nodes[len(g.nodes)-1].ID
	}

	remap := make(map[int]int, len(nodes))
	for _, n := range nodes {
		id := g.nextID
		g.nextID++
		remap[n.ID] = id
		g.nodes = append(g.nodes, types.Node{
			ID:   id,
			Kind: types.NormalizeKind(n.Kind),
			Text: n.Text,
		})
		if first == 0 {
			first = id
		}
		last = id
	}

	if prevLast != 0 {
		g.edges = append(g.edges, types.Edge{From: prevLast, To: first})
	}

	for _, e := range edges {
		from, okFrom := remap[e.From]
		to, okTo := remap[e.To]
		if !okFrom || !okTo {
			continue
		}
		g.edges = append(g.edges, types.Edge{From: from, To: to, Label: e.Label})
	}

	return first, last
}

// PruneToLength retains the first n nodes in append order and every edge whose
// both endpoints survive. n outside [0, length] is an error and leaves the
// graph unchanged. Future ids keep increasing from the historical maximum.
func (g *Graph) PruneToLength(n int) error {
	if n < 0 || n > len(g.nodes) {
		return fmt.Errorf("prune length %d out of range (length %d)", n, len(g.nodes))
	}
	if n == len(g.nodes) {
		return nil
	}

	kept := make(map[int]bool, n)
	for _, node := range g.nodes[:n] {
		kept[node.ID] = true
	}
	g.nodes = g.nodes[:n]

	edges := g.edges[:0]
	for _, e := range g.edges {
		if kept[e.From] && kept[e.To] {
			edges = append(edges, e)
		}
	}
	g.edges = edges
	return nil
}

// IsFullyBright reports whether the cursor covers the whole non-empty graph.
func (g *Graph) IsFullyBright(cursor int) bool {
	return len(g.nodes) > 0 && cursor >= len(g.nodes)
}

// AppendNodeText appends suffix to the node at index i and clears its content
// reference, since stored content is immutable.
func (g *Graph) AppendNodeText(i int, suffix string) error {
	if i < 0 || i >= len(g.nodes) {
		return fmt.Errorf("node index %d out of range (length %d)", i, len(g.nodes))
	}
	g.nodes[i].Text += suffix
	g.nodes[i].ContentRef = 0
	return nil
}

// BrightTexts returns the texts of the bright prefix, clamped to the graph.
func (g *Graph) BrightTexts(cursor int) []string {
	if cursor > len(g.nodes) {
		cursor = len(g.nodes)
	}
	if cursor < 0 {
		cursor = 0
	}
	out := make([]string, 0, cursor)
	for _, n := range g.nodes[:cursor] {
		out = append(out, n.Text)
	}
	return out
}

// Texts returns every node's text in append order.
func (g *Graph) Texts() []string {
	out := make([]string, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n.Text)
	}
	return out
}
