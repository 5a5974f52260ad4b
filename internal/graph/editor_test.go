package graph

import (
	"testing"

	"github.com/mbucher/cotrace/internal/types"
)

func editorWith(t *testing.T, texts ...string) *Editor {
	t.Helper()
	g := New()
	g.Append(stepNodes(texts...), nil)
	return NewEditor(g)
}

func TestNewEditorInitialCursor(t *testing.T) {
	if c := NewEditor(New()).Cursor(); c != 0 {
		t.Errorf("empty graph: expected cursor 0, got %d", c)
	}
	if c := editorWith(t, "a").Cursor(); c != 1 {
		t.Errorf("one node: expected cursor 1, got %d", c)
	}
	if c := editorWith(t, "a", "b", "c").Cursor(); c != 2 {
		t.Errorf("three nodes: expected cursor 2, got %d", c)
	}
}

func TestDimLastFloorsAtZero(t *testing.T) {
	e := editorWith(t, "a", "b")
	e.DimLast()
	if e.Cursor() != 1 {
		t.Fatalf("expected cursor 1, got %d", e.Cursor())
	}
	e.DimLast()
	e.DimLast()
	if e.Cursor() != 0 {
		t.Fatalf("cursor must not go below zero, got %d", e.Cursor())
	}
}

func TestCutFrom(t *testing.T) {
	e := editorWith(t, "a", "b", "c")
	// cursor is 2; cutting at 2 truncates to one node.
	if err := e.CutFrom(2); err != nil {
		t.Fatalf("cut failed: %v", err)
	}
	if e.Graph().Len() != 1 {
		t.Errorf("expected length 1, got %d", e.Graph().Len())
	}
	if e.Cursor() != 1 {
		t.Errorf("expected cursor clamped to 1, got %d", e.Cursor())
	}
}

func TestCutFromOutsideBrightRange(t *testing.T) {
	e := editorWith(t, "a", "b", "c")
	if err := e.CutFrom(0); err == nil {
		t.Error("cut at 0 should fail")
	}
	if err := e.CutFrom(3); err == nil {
		t.Error("cut past the bright cursor should fail")
	}
}

func TestContinueGrowthAdvancesByOne(t *testing.T) {
	e := editorWith(t, "a", "b", "c", "d")
	frag := types.Fragment{Nodes: stepNodes("e", "f", "g")}

	added, err := e.ContinueGrowth(frag)
	if err != nil {
		t.Fatalf("continue failed: %v", err)
	}
	if added != 3 {
		t.Errorf("expected 3 nodes merged, got %d", added)
	}
	// Cursor advances by exactly one no matter how many nodes arrived.
	if e.Cursor() != 3 {
		t.Errorf("expected cursor 3, got %d", e.Cursor())
	}
}

func TestContinueGrowthNeverPassesLength(t *testing.T) {
	e := editorWith(t, "a")
	// cursor 1 == length, fully bright: growth is disabled.
	if _, err := e.ContinueGrowth(types.Fragment{Nodes: stepNodes("b")}); err == nil {
		t.Fatal("fully bright trace must reject growth")
	}
}

func TestContinueGrowthReachesFullyBright(t *testing.T) {
	e := editorWith(t, "a", "b", "c")
	for !e.IsFullyBright() {
		if _, err := e.ContinueGrowth(types.Fragment{}); err != nil {
			t.Fatalf("continue failed: %v", err)
		}
		if e.Cursor() > e.Graph().Len() {
			t.Fatalf("cursor %d passed length %d", e.Cursor(), e.Graph().Len())
		}
	}
	if e.Cursor() != 3 {
		t.Errorf("expected cursor at length 3, got %d", e.Cursor())
	}
}

func TestReflectPrunesDimAndKeepsCursor(t *testing.T) {
	e := editorWith(t, "a", "b", "c", "d")
	// cursor 2: nodes c, d are dim and must go.
	bright, err := e.BeginReflect()
	if err != nil {
		t.Fatalf("begin reflect failed: %v", err)
	}
	if len(bright) != 2 || bright[0] != "a" || bright[1] != "b" {
		t.Fatalf("unexpected bright texts: %v", bright)
	}
	if e.Graph().Len() != 2 {
		t.Fatalf("dim suffix should be pruned, length %d", e.Graph().Len())
	}

	added := e.CompleteReflect(types.Fragment{Nodes: stepNodes("x", "y")})
	if added != 2 {
		t.Errorf("expected 2 nodes merged, got %d", added)
	}
	if e.Cursor() != 2 {
		t.Errorf("reflect must not move the cursor, got %d", e.Cursor())
	}
	if e.IsFullyBright() {
		t.Error("merged suffix should be dim")
	}
}

func TestReflectRequiresBrightNodes(t *testing.T) {
	e := NewEditor(New())
	if _, err := e.BeginReflect(); err == nil {
		t.Error("reflect on an empty bright prefix should fail")
	}
}

func TestEditorPublishesLatestState(t *testing.T) {
	e := editorWith(t, "a", "b", "c")
	e.DimLast()
	e.DimLast()

	select {
	case s := <-e.Events():
		// Only the latest snapshot is retained.
		if s.Cursor != 0 || s.Length != 3 {
			t.Errorf("unexpected state %+v", s)
		}
	default:
		t.Fatal("expected a buffered state event")
	}
}
