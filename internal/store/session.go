package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mbucher/cotrace/internal/graph"
	"github.com/mbucher/cotrace/internal/types"
)

// SessionInfo summarizes one saved session.
type SessionInfo struct {
	ID        int64
	Mode      string
	ModelName string
	Summary   string
	NodeCount int
}

// SaveSession persists a graph as an ordered content-id sequence. Nodes that
// still carry a content reference from load reuse it; mutated or new nodes go
// through GetOrInsertContent. Edge topology is not recorded.
func (s *DB) SaveSession(mode, modelName, summary string, g *graph.Graph) (int64, error) {
	nodes := g.Nodes()
	if len(nodes) == 0 {
		return 0, fmt.Errorf("cannot save an empty trace")
	}
	if r := []rune(summary); len(r) > 500 {
		summary = string(r[:500])
	}

	ids := make([]int64, 0, len(nodes))
	for _, n := range nodes {
		id := n.ContentRef
		if id == 0 {
			var err error
			id, err = s.GetOrInsertContent(n.Text, types.NormalizeKind(n.Kind))
			if err != nil {
				return 0, err
			}
		}
		ids = append(ids, id)
	}

	seq, err := json.Marshal(ids)
	if err != nil {
		return 0, fmt.Errorf("failed to encode node sequence: %w", err)
	}

	res, err := s.db.Exec(
		"INSERT INTO session (mode, model_name, summary, node_sequence) VALUES (?, ?, ?, ?)",
		mode, modelName, summary, string(seq),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert session: %w", err)
	}
	sessionID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read session id: %w", err)
	}
	return sessionID, nil
}

// LoadSession rebuilds a session's graph. The stored record holds order only,
// so the result is a strict linear chain: node i connects to node i+1 with no
// labels and no branching. This is a lossy inverse of SaveSession.
func (s *DB) LoadSession(sessionID int64) (*graph.Graph, error) {
	var seq string
	err := s.db.QueryRow("SELECT node_sequence FROM session WHERE id = ?", sessionID).Scan(&seq)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session %d not found", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %d: %w", sessionID, err)
	}

	var ids []int64
	if err := json.Unmarshal([]byte(seq), &ids); err != nil {
		return nil, fmt.Errorf("failed to decode node sequence for session %d: %w", sessionID, err)
	}

	texts := make([]string, 0, len(ids))
	kinds := make([]types.NodeKind, 0, len(ids))
	for _, id := range ids {
		text, kind, err := s.Content(id)
		if err != nil {
			return nil, err
		}
		texts = append(texts, text)
		kinds = append(kinds, kind)
	}
	return graph.FromLinear(texts, kinds, ids), nil
}

// Session returns metadata for one saved session.
func (s *DB) Session(sessionID int64) (SessionInfo, error) {
	var info SessionInfo
	var seq string
	err := s.db.QueryRow(
		"SELECT id, mode, model_name, summary, node_sequence FROM session WHERE id = ?",
		sessionID,
	).Scan(&info.ID, &info.Mode, &info.ModelName, &info.Summary, &seq)
	if err == sql.ErrNoRows {
		return info, fmt.Errorf("session %d not found", sessionID)
	}
	if err != nil {
		return info, fmt.Errorf("failed to load session %d: %w", sessionID, err)
	}

	var ids []int64
	if err := json.Unmarshal([]byte(seq), &ids); err == nil {
		info.NodeCount = len(ids)
	}
	return info, nil
}

// Sessions lists all saved sessions in id order.
func (s *DB) Sessions() ([]SessionInfo, error) {
	rows, err := s.db.Query("SELECT id, mode, model_name, summary, node_sequence FROM session ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		var info SessionInfo
		var seq string
		if err := rows.Scan(&info.ID, &info.Mode, &info.ModelName, &info.Summary, &seq); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		var ids []int64
		if err := json.Unmarshal([]byte(seq), &ids); err == nil {
			info.NodeCount = len(ids)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}
