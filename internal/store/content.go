package store

import (
	"database/sql"
	"fmt"

	"github.com/mbucher/cotrace/internal/types"
)

// GetOrInsertContent returns the id of the content row matching (text, kind)
// exactly, inserting one if absent. No normalization, no case folding.
// Sequential calls with identical arguments return the same id. Concurrent
// callers with identical content may race the lookup and insert duplicate
// rows; dedup is best-effort, not a uniqueness guarantee.
func (s *DB) GetOrInsertContent(text string, kind types.NodeKind) (int64, error) {
	var id int64
	err := s.db.QueryRow(
		"SELECT id FROM content WHERE text = ? AND kind = ? ORDER BY id LIMIT 1",
		text, string(kind),
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to look up content: %w", err)
	}

	res, err := s.db.Exec("INSERT INTO content (text, kind) VALUES (?, ?)", text, string(kind))
	if err != nil {
		return 0, fmt.Errorf("failed to insert content: %w", err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read content id: %w", err)
	}
	return id, nil
}

// Content returns the text and kind stored under id.
func (s *DB) Content(id int64) (string, types.NodeKind, error) {
	var text, kind string
	err := s.db.QueryRow("SELECT text, kind FROM content WHERE id = ?", id).Scan(&text, &kind)
	if err == sql.ErrNoRows {
		return "", "", fmt.Errorf("content %d not found", id)
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to load content %d: %w", id, err)
	}
	return text, types.NodeKind(kind), nil
}
