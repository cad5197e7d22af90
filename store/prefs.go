package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Pref is the last browsing position of one queue.
type Pref struct {
	Queue     string
	Mode      string
	Page      int
	UpdatedAt time.Time
}

// SavePref upserts the position for p.Queue.
func (s *SQLiteStore) SavePref(ctx context.Context, p Pref) error {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	if p.Page < 1 {
		p.Page = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prefs (queue, mode, page, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(queue) DO UPDATE SET
			mode = excluded.mode,
			page = excluded.page,
			updated_at = excluded.updated_at`,
		p.Queue, p.Mode, p.Page, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save pref %s: %w", p.Queue, err)
	}
	return nil
}

// LoadPref returns the saved position for queue, or ErrNotFound.
func (s *SQLiteStore) LoadPref(ctx context.Context, queue string) (Pref, error) {
	p := Pref{Queue: queue}
	err := s.db.QueryRowContext(ctx,
		"SELECT mode, page, updated_at FROM prefs WHERE queue = ?", queue,
	).Scan(&p.Mode, &p.Page, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Pref{}, ErrNotFound
	}
	if err != nil {
		return Pref{}, fmt.Errorf("load pref %s: %w", queue, err)
	}
	return p, nil
}
