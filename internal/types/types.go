package types

import "time"

// NodeKind classifies a reasoning node. The kind doubles as a rendering hint
// (rectangle / diamond / rounded) for clients, but the engine only cares that
// it is part of the content identity.
type NodeKind string

const (
	KindStep     NodeKind = "step"     // ordinary reasoning step
	KindDecision NodeKind = "decision" // branch point, may have several outgoing edges
	KindTerminal NodeKind = "terminal" // start or end of a chain
)

// Valid reports whether k is one of the known kinds.
func (k NodeKind) Valid() bool {
	return k == KindStep || k == KindDecision || k == KindTerminal
}

// NormalizeKind maps unknown or empty kinds to KindStep.
func NormalizeKind(k NodeKind) NodeKind {
	if k.Valid() {
		return k
	}
	return KindStep
}

// Node is a single reasoning step in a trace graph. IDs are positive, unique
// within a graph and strictly increasing in append order; they are never
// reused, even after pruning.
type Node struct {
	ID   int      `json:"id"`
	Kind NodeKind `json:"kind"`
	Text string   `json:"text"`

	// ContentRef points at the content store row this node was loaded from.
	// Zero means "not stored yet". Any text mutation clears it, since stored
	// content is immutable.
	ContentRef int64 `json:"content_ref,omitempty"`
}

// Edge connects two nodes by id. A node may have several outgoing edges
// (branching from decision nodes).
type Edge struct {
	From  int    `json:"from"`
	To    int    `json:"to"`
	Label string `json:"label,omitempty"`
}

// Fragment is a small candidate graph proposed by the completion service to
// extend an existing trace. Node ids are local to the fragment and are
// remapped on merge.
type Fragment struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Message is one turn of a completion-service conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TraceFile is the on-disk export format for a trace plus its conversation.
// CallSequence records node ids in append order (the reasoning skeleton).
type TraceFile struct {
	Version      int       `json:"version"`
	UpdatedAt    time.Time `json:"updated_at"`
	CallSequence []int     `json:"call_sequence"`
	Nodes        []Node    `json:"nodes"`
	Edges        []Edge    `json:"edges"`
	Messages     []Message `json:"messages"`
}

// LabelRow is one stored retrieval label, in stored (id) order.
type LabelRow struct {
	ID        int64
	SessionID int64
	LabelText string
}
