package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/wdallo/libraryApp-sub000/internal/domain"
	"github.com/wdallo/libraryApp-sub000/internal/models"
)

// CreateOrUpdateUser upserts the caller-supplied identity. Identity is
// trusted input here; authentication happens upstream.
func (db *DB) CreateOrUpdateUser(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	query := `INSERT INTO users (id, name, email, is_admin, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                  name = excluded.name,
                  email = CASE WHEN excluded.email != '' THEN excluded.email ELSE email END,
                  is_admin = excluded.is_admin,
                  updated_at = excluded.updated_at`

	_, err := db.ExecContext(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.IsAdmin,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

func (db *DB) GetUser(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT id, name, email, is_admin, created_at, updated_at FROM users WHERE id = ?`

	var user models.User
	err := db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.IsAdmin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}
