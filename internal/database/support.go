package database

import (
	"context"
	"fmt"
	"time"

	"clinicbook/internal/models"
)

// AddSupportInteraction appends one entry to the support history.
func (db *DB) AddSupportInteraction(ctx context.Context, s *models.SupportInteraction) error {
	now := time.Now()
	result, err := db.ExecContext(ctx, `
		INSERT INTO support_history (type, content, status, created_at)
		VALUES (?, ?, ?, ?)`,
		s.Type, s.Content, s.Status, now,
	)
	if err != nil {
		return fmt.Errorf("insert support interaction: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last id: %w", err)
	}

	s.ID = id
	s.CreatedAt = now
	return nil
}

// ListSupportHistory returns the whole support history, oldest first.
func (db *DB) ListSupportHistory(ctx context.Context) ([]models.SupportInteraction, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, type, content, status, created_at
		FROM support_history ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list support history: %w", err)
	}
	defer rows.Close()

	history := make([]models.SupportInteraction, 0)
	for rows.Next() {
		var s models.SupportInteraction
		if err := rows.Scan(&s.ID, &s.Type, &s.Content, &s.Status, &s.CreatedAt); err != nil {
			return nil, err
		}
		history = append(history, s)
	}
	return history, rows.Err()
}

// ClearSupportHistory removes all support interactions.
func (db *DB) ClearSupportHistory(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `DELETE FROM support_history`)
	return err
}
