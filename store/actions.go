package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Action is one approve or reject sent to the board.
type Action struct {
	ID        string
	Queue     string
	ItemID    string
	Action    string
	OK        bool
	Error     string
	CreatedAt time.Time
}

// RecordAction appends a to the journal, filling ID and CreatedAt when empty.
func (s *SQLiteStore) RecordAction(ctx context.Context, a Action) (Action, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO actions (id, queue, item_id, action, ok, error, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		a.ID, a.Queue, a.ItemID, a.Action, a.OK, a.Error, a.CreatedAt,
	)
	if err != nil {
		return a, fmt.Errorf("record action: %w", err)
	}
	return a, nil
}

// ListActions returns the newest actions first. limit <= 0 means 50.
func (s *SQLiteStore) ListActions(ctx context.Context, limit int) ([]Action, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, queue, item_id, action, ok, error, created_at FROM actions ORDER BY created_at DESC, rowid DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	var out []Action
	for rows.Next() {
		var a Action
		if err := rows.Scan(&a.ID, &a.Queue, &a.ItemID, &a.Action, &a.OK, &a.Error, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
