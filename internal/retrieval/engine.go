// Package retrieval resolves a free-text query to a saved session. The AI
// pass runs first under a hard timeout; the deterministic substring fallback
// takes over when it fails, times out, or returns garbage.
package retrieval

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mbucher/cotrace/internal/completion"
	"github.com/mbucher/cotrace/internal/logging"
	"github.com/mbucher/cotrace/internal/types"
)

const minTimeout = 5 * time.Second

// Engine matches queries against stored retrieval labels.
type Engine struct {
	svc     completion.Service // nil disables the AI pass
	timeout time.Duration
}

// New creates an engine. Timeouts below five seconds are raised to five.
func New(svc completion.Service, timeout time.Duration) *Engine {
	if timeout < minTimeout {
		timeout = minTimeout
	}
	return &Engine{svc: svc, timeout: timeout}
}

// MatchQuery resolves query to a session id, or 0 for no match. Labels are
// consulted in stored order; all tie-breaks favor the earlier label. The AI
// pass is authoritative when it answers in time, including an answer of 0.
func (e *Engine) MatchQuery(ctx context.Context, query string, labels []types.LabelRow) int64 {
	query = strings.TrimSpace(query)
	if query == "" || len(labels) == 0 {
		return 0
	}

	if e.svc != nil {
		if id, ok := e.matchAI(ctx, query, labels); ok {
			return id
		}
	}
	return matchFallback(query, labels)
}

type aiResult struct {
	id  int64
	err error
}

// matchAI asks the completion service to pick a session id. The call runs on
// its own goroutine with a buffered result channel; on timeout it is
// abandoned, not cancelled, and a late result is discarded. A call that
// succeeds is authoritative even when the reply is unusable: that resolves to
// a final 0, never to the substring fallback.
func (e *Engine) matchAI(ctx context.Context, query string, labels []types.LabelRow) (int64, bool) {
	prompt := buildMatchPrompt(query, labels)

	resultCh := make(chan aiResult, 1)
	go func() {
		content, _, err := e.svc.Complete(ctx, []types.Message{{Role: "user", Content: prompt}})
		if err != nil {
			resultCh <- aiResult{err: err}
			return
		}
		resultCh <- aiResult{id: parseSessionID(content, labels)}
	}()

	select {
	case r := <-resultCh:
		if r.err != nil {
			logging.Debug("retrieval", "ai match failed: %v", r.err)
			return 0, false
		}
		return r.id, true
	case <-time.After(e.timeout):
		logging.Debug("retrieval", "ai match timed out after %s", e.timeout)
		return 0, false
	}
}

func buildMatchPrompt(query string, labels []types.LabelRow) string {
	var b strings.Builder
	b.WriteString("You are matching a user query against saved reasoning-trace labels.\n")
	b.WriteString("Labels (index, session id, text):\n")
	for i, l := range labels {
		fmt.Fprintf(&b, "%d. session %d: %s\n", i+1, l.SessionID, l.LabelText)
	}
	fmt.Fprintf(&b, "\nQuery: %s\n\n", query)
	b.WriteString("Reply with the single best matching session id as a bare integer, or 0 if none match. No other text.")
	return b.String()
}

var intPattern = regexp.MustCompile(`-?\d+`)

// parseSessionID scans every integer in the reply and returns the first that
// names a known session. A reply with no usable integer is a no-match, 0.
func parseSessionID(reply string, labels []types.LabelRow) int64 {
	for _, m := range intPattern.FindAllString(reply, -1) {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		for _, l := range labels {
			if l.SessionID == id {
				return id
			}
		}
	}
	return 0
}

// matchFallback is the deterministic path: exact case-insensitive containment
// first, then the longest contiguous substring of the query found in any
// label. Ties break to the label stored first (strict greater-than).
func matchFallback(query string, labels []types.LabelRow) int64 {
	lowered := strings.ToLower(query)
	for _, l := range labels {
		if strings.Contains(strings.ToLower(l.LabelText), lowered) {
			return l.SessionID
		}
	}

	best := 0
	var bestID int64
	for _, l := range labels {
		n := longestSharedRun(lowered, strings.ToLower(l.LabelText))
		if n > best {
			best = n
			bestID = l.SessionID
		}
	}
	return bestID
}

// longestSharedRun returns the length in runes of the longest contiguous
// substring of query that appears anywhere in label. Candidate lengths run
// from min(len(query), len(label)) down to 1; offsets left to right.
func longestSharedRun(query, label string) int {
	q := []rune(query)
	max := len(q)
	if n := len([]rune(label)); n < max {
		max = n
	}
	for length := max; length > 0; length-- {
		for start := 0; start+length <= len(q); start++ {
			if strings.Contains(label, string(q[start:start+length])) {
				return length
			}
		}
	}
	return 0
}
