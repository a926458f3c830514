package database

import (
	"context"
	"fmt"
	"time"

	"github.com/wdallo/libraryApp-sub000/internal/models"
)

func (db *DB) InsertActivity(ctx context.Context, a *models.Activity) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO activities (reservation_id, status, actor, message, created_at)
              VALUES (?, ?, ?, ?, ?)`
	result, err := db.ExecContext(ctx, query, a.ReservationID, a.Status, a.Actor, a.Message, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	a.ID = id
	return nil
}

func (db *DB) ListActivities(ctx context.Context, limit int) ([]*models.Activity, error) {
	query := `SELECT id, reservation_id, status, actor, message, created_at
              FROM activities ORDER BY id DESC LIMIT ?`
	rows, err := db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	var activities []*models.Activity
	for rows.Next() {
		var a models.Activity
		if err := rows.Scan(&a.ID, &a.ReservationID, &a.Status, &a.Actor, &a.Message, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		activities = append(activities, &a)
	}
	return activities, rows.Err()
}

// PruneActivities keeps the newest `keep` entries and deletes the rest.
func (db *DB) PruneActivities(ctx context.Context, keep int) error {
	query := `DELETE FROM activities WHERE id NOT IN (
                  SELECT id FROM activities ORDER BY id DESC LIMIT ?)`
	_, err := db.ExecContext(ctx, query, keep)
	if err != nil {
		return fmt.Errorf("failed to prune activities: %w", err)
	}
	return nil
}
