// Package session orchestrates one live trace: it owns the graph editor,
// the conversation history, and the flush-to-store step that fires when the
// trace becomes fully bright. All operations on one Session are serialized
// by its mutex; completion calls happen while it is held, so callers run
// long operations off their UI goroutine.
package session

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/mbucher/cotrace/internal/completion"
	"github.com/mbucher/cotrace/internal/config"
	"github.com/mbucher/cotrace/internal/extract"
	"github.com/mbucher/cotrace/internal/graph"
	"github.com/mbucher/cotrace/internal/label"
	"github.com/mbucher/cotrace/internal/logging"
	"github.com/mbucher/cotrace/internal/store"
	"github.com/mbucher/cotrace/internal/types"
)

// refineLimit caps the text appended to a node by one interaction update.
const refineLimit = 2000

// Session is one evolving trace plus its conversation.
type Session struct {
	mu sync.Mutex

	svc    completion.Service
	db     *store.DB // nil disables persistence
	cfg    config.Config
	mode   completion.Mode
	editor *graph.Editor

	messages []types.Message
	rng      *rand.Rand
	flushed  bool
}

// New creates a session with an empty graph.
func New(svc completion.Service, db *store.DB, cfg config.Config, mode completion.Mode) *Session {
	return &Session{
		svc:    svc,
		db:     db,
		cfg:    cfg,
		mode:   mode,
		editor: graph.NewEditor(graph.New()),
		rng:    rand.New(rand.NewSource(rand.Int63())),
	}
}

// LoadGraph replaces the session's graph, resetting the cursor to min(2, length).
func (s *Session) LoadGraph(g *graph.Graph, messages []types.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editor = graph.NewEditor(g)
	s.messages = messages
	s.flushed = false
}

// Editor returns the editor. Callers must not mutate it while session
// operations are in flight.
func (s *Session) Editor() *graph.Editor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor
}

// Messages returns a copy of the conversation so far.
func (s *Session) Messages() []types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// SeedFromReasoning starts a fresh trace from a blob of reasoning text. The
// completion service is asked to structure it as a fragment; if it produces
// none, the text is segmented into plain step nodes instead.
func (s *Session) SeedFromReasoning(ctx context.Context, reasoning string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	frag, ok := s.requestFragment(ctx, fragmentFromReasoningPrompt(reasoning))
	if !ok {
		frag, ok = fragmentFromSteps(reasoning)
	}
	if !ok {
		return 0, fmt.Errorf("no trace steps could be extracted")
	}

	g := graph.New()
	added := graph.Merge(g, frag, nil)
	s.editor = graph.NewEditor(g)
	s.flushed = false
	return added, nil
}

// Ask answers a user question from the bright chain without touching the
// graph. The exchange is recorded in the conversation history.
func (s *Session) Ask(ctx context.Context, userText string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prompt := answerPrompt(s.editor.BrightTexts(), userText)
	content, _, err := s.svc.Complete(ctx, []types.Message{{Role: "user", Content: prompt}})
	if err != nil {
		return "", err
	}
	answer := extract.StripFragmentBlock(content)
	s.messages = append(s.messages,
		types.Message{Role: "user", Content: userText},
		types.Message{Role: "assistant", Content: answer},
	)
	return answer, nil
}

// Reflect discards the dim suffix and regenerates it: the graph is pruned to
// its bright prefix, one new fragment is requested, and the result is merged
// with the cursor unchanged. Whether the request is seeded with the bright
// node texts or with conversation text only is a Bernoulli draw on the
// configured probability, independent per call.
func (s *Session) Reflect(ctx context.Context, supplement string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	brightTexts, err := s.editor.BeginReflect()
	if err != nil {
		return 0, err
	}

	useBright := s.rng.Intn(100) < s.cfg.ReflectBrightProb
	var seed string
	if useBright {
		seed = strings.Join(brightTexts, "\n")
	} else {
		seed = conversationText(s.messages)
	}

	frag, ok := s.requestFragment(ctx, continuationPrompt(seed, supplement))
	if !ok {
		// No fragment produced; the bright prefix stands alone.
		s.maybeFlush(ctx)
		return 0, nil
	}
	added := s.editor.CompleteReflect(frag)
	s.maybeFlush(ctx)
	return added, nil
}

// ContinueGrowth requests one continuation fragment, merges it, and advances
// the bright cursor by one. Disabled once the trace is fully bright.
func (s *Session) ContinueGrowth(ctx context.Context, supplement string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.editor.IsFullyBright() {
		return 0, fmt.Errorf("trace is fully bright, growth is disabled")
	}

	seed := strings.Join(s.editor.BrightTexts(), "\n")
	frag, ok := s.requestFragment(ctx, continuationPrompt(seed, supplement))
	if !ok {
		frag = types.Fragment{}
	}
	added, err := s.editor.ContinueGrowth(frag)
	if err != nil {
		return 0, err
	}
	s.maybeFlush(ctx)
	return added, nil
}

// DimLast retreats the bright cursor by one.
func (s *Session) DimLast() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editor.DimLast()
}

// CutFrom truncates the trace at the 1-indexed bright position k.
func (s *Session) CutFrom(k int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor.CutFrom(k)
}

// RefineLastBright appends interaction feedback to the last bright node.
// Content is capped and the node's content reference is cleared so the next
// save re-dedups it.
func (s *Session) RefineLastBright(content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	content = strings.TrimSpace(content)
	if content == "" {
		return fmt.Errorf("empty refinement")
	}
	if runes := []rune(content); len(runes) > refineLimit {
		content = string(runes[:refineLimit])
	}

	cursor := s.editor.Cursor()
	if cursor <= 0 {
		return fmt.Errorf("no bright node to refine")
	}
	idx := cursor - 1
	if n := s.editor.Graph().Len(); idx >= n {
		idx = n - 1
	}
	return s.editor.Graph().AppendNodeText(idx, "\n\n[update] "+content)
}

// IsFullyBright reports whether the whole trace is active.
func (s *Session) IsFullyBright() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor.IsFullyBright()
}

// maybeFlush persists the trace once it turns fully bright: the graph goes
// through the content and session stores, and a retrieval label is derived
// and stored. Called with the mutex held. Store failures are logged, not
// fatal; the in-memory trace is unchanged either way.
func (s *Session) maybeFlush(ctx context.Context) {
	if s.db == nil || s.flushed || !s.editor.IsFullyBright() {
		return
	}

	g := s.editor.Graph()
	raw := label.BuildRaw(g.Texts(), s.cfg.Label)
	labelText := label.ApplyFormat(ctx, raw, s.cfg.Label, s.svc)

	sessionID, err := s.db.SaveSession(string(s.mode), s.svc.Name(), raw, g)
	if err != nil {
		logging.Warn("session", "flush failed: %v", err)
		return
	}
	if _, err := s.db.InsertLabel(sessionID, labelText); err != nil {
		logging.Warn("session", "label insert failed: %v", err)
		return
	}
	s.flushed = true
	logging.Info("session", "trace flushed as session %d (%d nodes): %s",
		sessionID, g.Len(), logging.Truncate(labelText, 80))
}

// requestFragment runs one completion call and parses a fragment from the
// reply body, then from the reasoning text. A reply with substantial
// reasoning but no fragment gets one regeneration attempt from that
// reasoning. Failure is "no fragment produced", never an error.
func (s *Session) requestFragment(ctx context.Context, prompt string) (types.Fragment, bool) {
	content, reasoning, err := s.svc.Complete(ctx, []types.Message{{Role: "user", Content: prompt}})
	if err != nil {
		logging.Debug("session", "fragment request failed: %v", err)
		return types.Fragment{}, false
	}

	if frag, ok := graph.ParseFragment(content); ok {
		return frag, true
	}
	if frag, ok := graph.ParseFragment(reasoning); ok {
		return frag, true
	}

	if len(strings.TrimSpace(reasoning)) > 50 {
		content, _, err = s.svc.Complete(ctx, []types.Message{{
			Role:    "user",
			Content: fragmentFromReasoningPrompt(reasoning),
		}})
		if err == nil {
			if frag, ok := graph.ParseFragment(content); ok {
				return frag, true
			}
		}
	}
	return types.Fragment{}, false
}

// fragmentFromSteps builds a linear fragment by segmenting text into steps.
func fragmentFromSteps(text string) (types.Fragment, bool) {
	steps := extract.Steps(text)
	if len(steps) == 0 {
		return types.Fragment{}, false
	}
	var frag types.Fragment
	for i, s := range steps {
		frag.Nodes = append(frag.Nodes, types.Node{ID: i + 1, Kind: types.KindStep, Text: s})
		if i > 0 {
			frag.Edges = append(frag.Edges, types.Edge{From: i, To: i + 1})
		}
	}
	return frag, true
}

func conversationText(messages []types.Message) string {
	var b strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return b.String()
}
