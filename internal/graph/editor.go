package graph

import (
	"fmt"

	"github.com/mbucher/cotrace/internal/types"
)

// State is a snapshot of the editor's (cursor, length) pair, published on
// every transition so observers never read a shared mutable cursor.
type State struct {
	Cursor int
	Length int
}

// Editor owns the bright cursor for one graph and applies the user-driven
// transitions. The cursor marks a prefix of active nodes; everything at or
// past it is dim. Fragment generation is the caller's job: long calls run off
// the owning goroutine and their results are applied here afterward.
type Editor struct {
	g      *Graph
	cursor int
	events chan State
}

// NewEditor wraps a graph with the initial cursor min(2, length).
func NewEditor(g *Graph) *Editor {
	cursor := 2
	if g.Len() < cursor {
		cursor = g.Len()
	}
	return &Editor{
		g:      g,
		cursor: cursor,
		events: make(chan State, 1),
	}
}

// Events yields the latest state after each transition. The channel holds one
// element; a stale snapshot is replaced rather than blocking the editor.
func (e *Editor) Events() <-chan State { return e.events }

func (e *Editor) publish() {
	s := State{Cursor: e.cursor, Length: e.g.Len()}
	select {
	case e.events <- s:
	default:
		select {
		case <-e.events:
		default:
		}
		select {
		case e.events <- s:
		default:
		}
	}
}

// Cursor returns the current bright cursor.
func (e *Editor) Cursor() int { return e.cursor }

// Graph returns the underlying graph.
func (e *Editor) Graph() *Graph { return e.g }

// IsFullyBright reports whether the cursor covers the whole non-empty graph.
// Growth is disabled in this state; the trace is ready to persist.
func (e *Editor) IsFullyBright() bool { return e.g.IsFullyBright(e.cursor) }

// BrightTexts returns the texts of the bright prefix.
func (e *Editor) BrightTexts() []string { return e.g.BrightTexts(e.cursor) }

// DimLast retreats the cursor by one, never below zero.
func (e *Editor) DimLast() {
	if e.cursor > 0 {
		e.cursor--
	}
	e.publish()
}

// CutFrom truncates the graph to length k-1, 1-indexed, and clamps the cursor.
// k must fall inside the bright prefix.
func (e *Editor) CutFrom(k int) error {
	if k < 1 || k > e.cursor {
		return fmt.Errorf("cut position %d out of bright range [1, %d]", k, e.cursor)
	}
	if err := e.g.PruneToLength(k - 1); err != nil {
		return err
	}
	if e.cursor > k-1 {
		e.cursor = k - 1
	}
	e.publish()
	return nil
}

// BeginReflect truncates the graph to its bright prefix, discarding the dim
// suffix, and returns the bright texts to seed the regeneration request.
// The caller fetches a fragment and applies it with CompleteReflect.
func (e *Editor) BeginReflect() ([]string, error) {
	if e.cursor <= 0 {
		return nil, fmt.Errorf("reflect requires at least one bright node")
	}
	if err := e.g.PruneToLength(e.cursor); err != nil {
		return nil, err
	}
	e.publish()
	return e.g.BrightTexts(e.cursor), nil
}

// CompleteReflect merges a regenerated fragment after BeginReflect. The
// cursor stays unchanged: the merged suffix becomes the new dim region, ready
// for subsequent continuation steps. Returns the count of nodes added.
func (e *Editor) CompleteReflect(frag types.Fragment) int {
	added := Merge(e.g, frag, e.BrightTexts())
	e.publish()
	return added
}

// ContinueGrowth merges a continuation fragment, then advances the cursor by
// exactly one node, regardless of how many nodes the fragment added. The
// cursor never passes the graph's length. Returns the count of nodes added.
func (e *Editor) ContinueGrowth(frag types.Fragment) (int, error) {
	if e.IsFullyBright() {
		return 0, fmt.Errorf("trace is fully bright, growth is disabled")
	}
	added := Merge(e.g, frag, e.BrightTexts())
	if e.cursor < e.g.Len() {
		e.cursor++
	}
	e.publish()
	return added, nil
}
