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

const bookColumns = `id, title, author, category, total_quantity, available_quantity, created_at, updated_at`

func scanBook(row interface{ Scan(...interface{}) error }) (*models.Book, error) {
	var b models.Book
	err := row.Scan(
		&b.ID, &b.Title, &b.Author, &b.Category,
		&b.TotalQuantity, &b.AvailableQuantity,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (db *DB) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE id = ?`
	book, err := scanBook(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrBookNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return book, nil
}

func (db *DB) ListBooks(ctx context.Context) ([]*models.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books ORDER BY title, id`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	var books []*models.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// UpsertBook inserts or refreshes a catalog book. On update the available
// count is shifted by the change in total so copies already checked out stay
// checked out.
func (db *DB) UpsertBook(ctx context.Context, book *models.Book) error {
	now := time.Now().UTC()
	query := `INSERT INTO books (id, title, author, category, total_quantity, available_quantity, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                  title = excluded.title,
                  author = excluded.author,
                  category = excluded.category,
                  available_quantity = MAX(0, available_quantity + (excluded.total_quantity - total_quantity)),
                  total_quantity = excluded.total_quantity,
                  updated_at = excluded.updated_at`

	_, err := db.ExecContext(ctx, query,
		book.ID,
		book.Title,
		book.Author,
		book.Category,
		book.TotalQuantity,
		book.TotalQuantity, // new books start with every copy available
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert book: %w", err)
	}
	return nil
}

// IncrementAvailable returns one copy to the shelf. The guard against
// exceeding total_quantity is part of the statement, not a prior read.
func (db *DB) IncrementAvailable(ctx context.Context, bookID int64) error {
	return incrementAvailableExec(ctx, db.DB, bookID)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func incrementAvailableExec(ctx context.Context, q execer, bookID int64) error {
	query := `UPDATE books SET available_quantity = available_quantity + 1, updated_at = ?
              WHERE id = ? AND available_quantity < total_quantity`
	result, err := q.ExecContext(ctx, query, time.Now().UTC(), bookID)
	if err != nil {
		return fmt.Errorf("failed to increment available quantity: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		var one int
		err := q.QueryRowContext(ctx, `SELECT 1 FROM books WHERE id = ?`, bookID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrBookNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check book: %w", err)
		}
		return domain.ErrInventoryOverflow
	}
	return nil
}

// decrementAvailableExec takes one copy off the shelf; fails when none are
// free. Runs inside the reservation transaction.
func decrementAvailableExec(ctx context.Context, q execer, bookID int64) error {
	query := `UPDATE books SET available_quantity = available_quantity - 1, updated_at = ?
              WHERE id = ? AND available_quantity > 0`
	result, err := q.ExecContext(ctx, query, time.Now().UTC(), bookID)
	if err != nil {
		return fmt.Errorf("failed to decrement available quantity: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		var one int
		err := q.QueryRowContext(ctx, `SELECT 1 FROM books WHERE id = ?`, bookID).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrBookNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check book: %w", err)
		}
		return domain.ErrNoCopiesAvailable
	}
	return nil
}
