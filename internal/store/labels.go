package store

import (
	"fmt"

	"github.com/mbucher/cotrace/internal/types"
)

// InsertLabel stores a retrieval label for a session.
func (s *DB) InsertLabel(sessionID int64, labelText string) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO retrieval_label (session_id, label_text) VALUES (?, ?)",
		sessionID, labelText,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert label: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read label id: %w", err)
	}
	return id, nil
}

// Labels returns every retrieval label in stored (id) order. Retrieval
// tie-breaks depend on this order being stable.
func (s *DB) Labels() ([]types.LabelRow, error) {
	rows, err := s.db.Query("SELECT id, session_id, label_text FROM retrieval_label ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list labels: %w", err)
	}
	defer rows.Close()

	var out []types.LabelRow
	for rows.Next() {
		var r types.LabelRow
		if err := rows.Scan(&r.ID, &r.SessionID, &r.LabelText); err != nil {
			return nil, fmt.Errorf("failed to scan label: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
