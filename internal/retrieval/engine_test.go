package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/mbucher/cotrace/internal/types"
)

// fakeService scripts one completion reply, optionally after a delay.
type fakeService struct {
	reply string
	err   error
	delay time.Duration
	calls int
}

func (f *fakeService) Complete(ctx context.Context, messages []types.Message) (string, string, error) {
	f.calls++
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.reply, "", f.err
}

func (f *fakeService) Name() string { return "fake" }

func labelRows(texts ...string) []types.LabelRow {
	rows := make([]types.LabelRow, 0, len(texts))
	for i, t := range texts {
		rows = append(rows, types.LabelRow{ID: int64(i + 1), SessionID: int64(i + 1), LabelText: t})
	}
	return rows
}

func TestMatchQueryExactContainmentFallback(t *testing.T) {
	// AI pass disabled: the deterministic path must find the containing label.
	e := New(nil, 5*time.Second)
	labels := labelRows("讨论机器学习算法与实现", "讨论深度学习")

	if got := e.MatchQuery(context.Background(), "机器学习", labels); got != 1 {
		t.Fatalf("expected session 1 via containment, got %d", got)
	}
}

func TestMatchQueryLongestSubstring(t *testing.T) {
	e := New(nil, 5*time.Second)
	labels := labelRows("讨论卷积网络", "讨论循环网络结构")

	// No label contains the full query; both share the two-rune run 网络.
	// The tie breaks to the first stored label.
	if got := e.MatchQuery(context.Background(), "神经网络", labels); got != 1 {
		t.Fatalf("expected tie to resolve to session 1, got %d", got)
	}
}

func TestMatchQueryLongerRunWins(t *testing.T) {
	e := New(nil, 5*time.Second)
	labels := labelRows("讨论网络", "讨论神经网络模型")

	// Label 2 shares the four-rune run 神经网络, label 1 only 网络.
	if got := e.MatchQuery(context.Background(), "神经网络训练", labels); got != 2 {
		t.Fatalf("expected the longer run to win, got %d", got)
	}
}

func TestMatchQueryNoMatch(t *testing.T) {
	e := New(nil, 5*time.Second)
	if got := e.MatchQuery(context.Background(), "xyz", labelRows("讨论机器学习")); got != 0 {
		t.Fatalf("expected 0 for no shared substring, got %d", got)
	}
	if got := e.MatchQuery(context.Background(), "", labelRows("a")); got != 0 {
		t.Fatalf("empty query must return 0, got %d", got)
	}
	if got := e.MatchQuery(context.Background(), "a", nil); got != 0 {
		t.Fatalf("no labels must return 0, got %d", got)
	}
}

func TestMatchQueryAIAnswerIsFinal(t *testing.T) {
	svc := &fakeService{reply: "2"}
	e := New(svc, 5*time.Second)
	labels := labelRows("讨论机器学习算法与实现", "讨论深度学习")

	// Containment would pick 1, but a timely AI answer wins.
	if got := e.MatchQuery(context.Background(), "机器学习", labels); got != 2 {
		t.Fatalf("expected AI answer 2 to be final, got %d", got)
	}
}

func TestMatchQueryAIZeroIsFinal(t *testing.T) {
	svc := &fakeService{reply: "0"}
	e := New(svc, 5*time.Second)
	labels := labelRows("讨论机器学习算法与实现")

	// The AI saying "no match" is authoritative; no fallback runs.
	if got := e.MatchQuery(context.Background(), "机器学习", labels); got != 0 {
		t.Fatalf("expected AI 0 to stand, got %d", got)
	}
}

func TestMatchQueryAIErrorFallsBack(t *testing.T) {
	svc := &fakeService{err: context.DeadlineExceeded}
	e := New(svc, 5*time.Second)
	labels := labelRows("讨论机器学习算法与实现")

	if got := e.MatchQuery(context.Background(), "机器学习", labels); got != 1 {
		t.Fatalf("expected fallback containment match, got %d", got)
	}
}

func TestMatchQueryUnusableAIReplyIsFinalZero(t *testing.T) {
	// A call that succeeds but gives nothing usable is still authoritative:
	// it resolves to 0, even though the substring fallback would match.
	labels := labelRows("讨论机器学习算法与实现")
	replies := []string{
		"I cannot pick a session for this query.",
		"best match is 77", // unknown session id
	}
	for _, reply := range replies {
		e := New(&fakeService{reply: reply}, 5*time.Second)
		if got := e.MatchQuery(context.Background(), "机器学习", labels); got != 0 {
			t.Errorf("reply %q: expected final 0, got %d", reply, got)
		}
	}
}

func TestMatchQueryTimeoutAbandonsAI(t *testing.T) {
	// Timeout floor is 5s, so use a reply slower than that.
	svc := &fakeService{reply: "2", delay: 6 * time.Second}
	e := New(svc, time.Second)
	labels := labelRows("讨论机器学习算法与实现", "讨论深度学习")

	start := time.Now()
	got := e.MatchQuery(context.Background(), "机器学习", labels)
	elapsed := time.Since(start)

	// Late AI result is discarded; fallback containment picked session 1.
	if got != 1 {
		t.Fatalf("expected fallback result after timeout, got %d", got)
	}
	if elapsed >= 6*time.Second {
		t.Fatalf("call should be abandoned at the timeout, took %s", elapsed)
	}
}

func TestNewEnforcesMinimumTimeout(t *testing.T) {
	e := New(nil, time.Second)
	if e.timeout != 5*time.Second {
		t.Fatalf("timeouts below 5s must be raised, got %s", e.timeout)
	}
}

func TestParseSessionID(t *testing.T) {
	labels := labelRows("a", "b")
	if id := parseSessionID("  2 ", labels); id != 2 {
		t.Errorf("expected 2, got %d", id)
	}
	if id := parseSessionID("0", labels); id != 0 {
		t.Errorf("expected 0, got %d", id)
	}
	if id := parseSessionID("no numbers here", labels); id != 0 {
		t.Errorf("reply without an integer should be 0, got %d", id)
	}
	if id := parseSessionID("9", labels); id != 0 {
		t.Errorf("unknown session id should be 0, got %d", id)
	}
	// Every integer is scanned, not just the first.
	if id := parseSessionID("ranked 77 then session 2", labels); id != 2 {
		t.Errorf("expected the first known id 2, got %d", id)
	}
}

func TestLongestSharedRun(t *testing.T) {
	if n := longestSharedRun("神经网络", "讨论卷积网络"); n != 2 {
		t.Errorf("expected run length 2 (网络), got %d", n)
	}
	if n := longestSharedRun("abc", "xyz"); n != 0 {
		t.Errorf("expected 0, got %d", n)
	}
	if n := longestSharedRun("hello", "say hello there"); n != 5 {
		t.Errorf("expected full containment length 5, got %d", n)
	}
}
