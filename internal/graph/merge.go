package graph

import (
	"strings"

	"github.com/mbucher/cotrace/internal/logging"
	"github.com/mbucher/cotrace/internal/types"
)

// FilterRedundant drops fragment nodes with blank text, and nodes whose text,
// case-insensitively, is a substring of any bright text or contains one. If
// the filter would remove every node, the original list is returned
// unchanged: an empty fragment must never silently replace a rejected one.
func FilterRedundant(nodes []types.Node, brightTexts []string) []types.Node {
	if len(nodes) == 0 {
		return nodes
	}

	lowered := make([]string, 0, len(brightTexts))
	for _, t := range brightTexts {
		lowered = append(lowered, strings.ToLower(t))
	}

	kept := make([]types.Node, 0, len(nodes))
	for _, n := range nodes {
		text := strings.ToLower(strings.TrimSpace(n.Text))
		if text == "" {
			continue
		}
		redundant := false
		for _, b := range lowered {
			if b == "" {
				continue
			}
			if strings.Contains(b, text) || strings.Contains(text, b) {
				redundant = true
				break
			}
		}
		if !redundant {
			kept = append(kept, n)
		}
	}

	if len(kept) == 0 {
		logging.Debug("graph", "redundancy filter would drop all %d nodes, keeping fragment", len(nodes))
		return nodes
	}
	return kept
}

// Merge filters the fragment against the bright texts, then appends what
// remains. Returns the count of nodes actually added; zero means the filtered
// fragment was empty and the graph is unchanged.
func Merge(g *Graph, frag types.Fragment, brightTexts []string) int {
	nodes := FilterRedundant(frag.Nodes, brightTexts)
	if len(nodes) == 0 {
		return 0
	}
	first, last := g.Append(nodes, frag.Edges)
	if first == 0 {
		return 0
	}
	return last - first + 1
}
