package session

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/mbucher/cotrace/internal/completion"
	"github.com/mbucher/cotrace/internal/config"
	"github.com/mbucher/cotrace/internal/graph"
	"github.com/mbucher/cotrace/internal/store"
	"github.com/mbucher/cotrace/internal/types"
)

// scriptService replays queued replies in order, repeating the last one.
type scriptService struct {
	replies []string
	calls   int
}

func (s *scriptService) Complete(ctx context.Context, messages []types.Message) (string, string, error) {
	s.calls++
	if len(s.replies) == 0 {
		return "", "", fmt.Errorf("no scripted reply")
	}
	reply := s.replies[0]
	if len(s.replies) > 1 {
		s.replies = s.replies[1:]
	}
	return reply, "", nil
}

func (s *scriptService) Name() string { return "script" }

func fragmentReply(texts ...string) string {
	var nodes, edges []string
	for i, t := range texts {
		nodes = append(nodes, fmt.Sprintf(`{"id":%d,"kind":"step","text":"%s"}`, i+1, t))
		if i > 0 {
			edges = append(edges, fmt.Sprintf(`{"from":%d,"to":%d,"label":""}`, i, i+1))
		}
	}
	return fmt.Sprintf("---FLOWCHART-JSON---\n{\"nodes\":[%s],\"edges\":[%s]}\n---END---",
		strings.Join(nodes, ","), strings.Join(edges, ","))
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Label.FormatMode = "raw"
	return cfg
}

func newTestSession(t *testing.T, svc completion.Service, withStore bool) (*Session, *store.DB) {
	t.Helper()
	var db *store.DB
	if withStore {
		var err error
		db, err = store.Open(t.TempDir())
		if err != nil {
			t.Fatalf("failed to open store: %v", err)
		}
		t.Cleanup(func() { db.Close() })
	}
	return New(svc, db, testConfig(), completion.ModeDeepSeek), db
}

func TestSeedFromReasoningViaFragment(t *testing.T) {
	svc := &scriptService{replies: []string{fragmentReply("parse input", "validate", "store")}}
	sess, _ := newTestSession(t, svc, false)

	added, err := sess.SeedFromReasoning(context.Background(), "some reasoning")
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if added != 3 {
		t.Fatalf("expected 3 nodes, got %d", added)
	}
	if c := sess.Editor().Cursor(); c != 2 {
		t.Fatalf("initial cursor should be min(2, length), got %d", c)
	}
}

func TestSeedFromReasoningFallsBackToSteps(t *testing.T) {
	// Service produces no fragment; the reasoning text is segmented instead.
	svc := &scriptService{replies: []string{"no json here"}}
	sess, _ := newTestSession(t, svc, false)

	added, err := sess.SeedFromReasoning(context.Background(), "First step here. Second step follows. Third wraps up.")
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if added != 3 {
		t.Fatalf("expected 3 segmented steps, got %d", added)
	}
}

func TestContinueGrowthAdvancesCursor(t *testing.T) {
	svc := &scriptService{replies: []string{
		fragmentReply("a", "b", "c"),
		fragmentReply("d"),
	}}
	sess, _ := newTestSession(t, svc, false)
	if _, err := sess.SeedFromReasoning(context.Background(), "seed"); err != nil {
		t.Fatal(err)
	}

	added, err := sess.ContinueGrowth(context.Background(), "")
	if err != nil {
		t.Fatalf("continue failed: %v", err)
	}
	if added != 1 {
		t.Fatalf("expected 1 node merged, got %d", added)
	}
	if c := sess.Editor().Cursor(); c != 3 {
		t.Fatalf("cursor should advance by one to 3, got %d", c)
	}
}

func TestReflectKeepsCursor(t *testing.T) {
	svc := &scriptService{replies: []string{
		fragmentReply("a", "b", "c", "d"),
		fragmentReply("regenerated tail"),
	}}
	sess, _ := newTestSession(t, svc, false)
	if _, err := sess.SeedFromReasoning(context.Background(), "seed"); err != nil {
		t.Fatal(err)
	}

	added, err := sess.Reflect(context.Background(), "")
	if err != nil {
		t.Fatalf("reflect failed: %v", err)
	}
	if added != 1 {
		t.Fatalf("expected 1 regenerated node, got %d", added)
	}
	ed := sess.Editor()
	if ed.Cursor() != 2 {
		t.Fatalf("reflect must not move the cursor, got %d", ed.Cursor())
	}
	if ed.Graph().Len() != 3 {
		t.Fatalf("expected bright prefix (2) plus regenerated tail (1), got %d", ed.Graph().Len())
	}
}

func TestFlushOnFullyBright(t *testing.T) {
	svc := &scriptService{replies: []string{
		fragmentReply("only", "pair"),
		"no fragment", // continuation produces nothing, cursor still advances
	}}
	sess, db := newTestSession(t, svc, true)
	if _, err := sess.SeedFromReasoning(context.Background(), "seed"); err != nil {
		t.Fatal(err)
	}
	// Cursor 2 of 2: already fully bright? Seed leaves cursor at min(2, 2)=2,
	// so the first growth attempt is rejected and the flush happens via Reflect.
	if !sess.IsFullyBright() {
		t.Fatal("two-node trace should open fully bright")
	}

	if _, err := sess.Reflect(context.Background(), ""); err != nil {
		t.Fatalf("reflect failed: %v", err)
	}

	sessions, err := db.Sessions()
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("fully bright trace should be flushed once, got %d sessions", len(sessions))
	}
	labels, err := db.Labels()
	if err != nil {
		t.Fatalf("list labels: %v", err)
	}
	if len(labels) != 1 || labels[0].SessionID != sessions[0].ID {
		t.Fatalf("expected one label for the flushed session, got %+v", labels)
	}
	if strings.TrimSpace(labels[0].LabelText) == "" {
		t.Error("label text should not be empty")
	}
}

func TestRefineLastBright(t *testing.T) {
	svc := &scriptService{replies: []string{fragmentReply("a", "b", "c")}}
	sess, _ := newTestSession(t, svc, false)
	if _, err := sess.SeedFromReasoning(context.Background(), "seed"); err != nil {
		t.Fatal(err)
	}

	if err := sess.RefineLastBright("user clarified the constraint"); err != nil {
		t.Fatalf("refine failed: %v", err)
	}
	// Cursor is 2, so node index 1 gets the update.
	n, _ := sess.Editor().Graph().Node(1)
	if !strings.Contains(n.Text, "user clarified the constraint") {
		t.Fatalf("refinement not applied: %q", n.Text)
	}
	if n.ContentRef != 0 {
		t.Error("refined node must drop its content reference")
	}

	if err := sess.RefineLastBright("   "); err == nil {
		t.Error("blank refinement should fail")
	}
}

func TestRefineLastBrightCapsLength(t *testing.T) {
	svc := &scriptService{replies: []string{fragmentReply("a")}}
	sess, _ := newTestSession(t, svc, false)
	if _, err := sess.SeedFromReasoning(context.Background(), "seed"); err != nil {
		t.Fatal(err)
	}

	long := strings.Repeat("x", 3000)
	if err := sess.RefineLastBright(long); err != nil {
		t.Fatalf("refine failed: %v", err)
	}
	n, _ := sess.Editor().Graph().Node(0)
	if len([]rune(n.Text)) > refineLimit+len("a\n\n[update] ") {
		t.Fatalf("refinement should be capped at %d runes, node is %d", refineLimit, len([]rune(n.Text)))
	}
}

func TestLoadGraphResetsCursor(t *testing.T) {
	sess, _ := newTestSession(t, &scriptService{}, false)
	g := graph.FromLinear([]string{"a", "b", "c", "d"}, nil, nil)
	sess.LoadGraph(g, nil)
	if c := sess.Editor().Cursor(); c != 2 {
		t.Fatalf("loaded graph should open at cursor min(2, length), got %d", c)
	}
}
