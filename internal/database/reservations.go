package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wdallo/libraryApp-sub000/internal/domain"
	"github.com/wdallo/libraryApp-sub000/internal/models"
)

const reservationColumns = `id, book_id, book_title, user_id, user_name, status,
       due_date, extensions_used, created_at, updated_at, version`

func scanReservation(row interface{ Scan(...interface{}) error }) (*models.Reservation, error) {
	var r models.Reservation
	err := row.Scan(
		&r.ID, &r.BookID, &r.BookTitle, &r.UserID, &r.UserName, &r.Status,
		&r.DueDate, &r.ExtensionsUsed, &r.CreatedAt, &r.UpdatedAt, &r.Version,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateReservation inserts the reservation record and takes the inventory
// hold in a single transaction. The insert goes first so that a holder
// retrying against a fully-held book hits the open-pair constraint, not the
// copy-count guard; the decrement is conditional on a free copy. Either
// failure rolls back the whole operation.
func (db *DB) CreateReservation(ctx context.Context, r *models.Reservation) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	query := `INSERT INTO reservations (
                book_id, book_title, user_id, user_name, status,
                due_date, extensions_used, created_at, updated_at, version
            ) VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?, 1)`
	result, err := tx.ExecContext(ctx, query,
		r.BookID,
		r.BookTitle,
		r.UserID,
		r.UserName,
		r.Status,
		r.DueDate,
		now,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyReserved
		}
		return fmt.Errorf("failed to insert reservation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	if err := decrementAvailableExec(ctx, tx, r.BookID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reservation: %w", err)
	}

	r.ID = id
	r.ExtensionsUsed = 0
	r.CreatedAt = now
	r.UpdatedAt = now
	r.Version = 1
	return nil
}

func (db *DB) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	r, err := scanReservation(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrReservationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return r, nil
}

func (db *DB) GetExtensions(ctx context.Context, reservationID int64) ([]models.Extension, error) {
	query := `SELECT id, reservation_id, extended_at, previous_due, new_due
              FROM reservation_extensions WHERE reservation_id = ? ORDER BY id`
	rows, err := db.QueryContext(ctx, query, reservationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get extensions: %w", err)
	}
	defer rows.Close()

	var extensions []models.Extension
	for rows.Next() {
		var e models.Extension
		if err := rows.Scan(&e.ID, &e.ReservationID, &e.ExtendedAt, &e.PreviousDue, &e.NewDue); err != nil {
			return nil, fmt.Errorf("failed to scan extension: %w", err)
		}
		extensions = append(extensions, e)
	}
	return extensions, rows.Err()
}

func statusPlaceholders(from []string) (string, []interface{}) {
	marks := make([]string, len(from))
	args := make([]interface{}, len(from))
	for i, s := range from {
		marks[i] = "?"
		args[i] = s
	}
	return strings.Join(marks, ", "), args
}

// UpdateReservationStatus moves a reservation from one of the given statuses
// to another as a conditional write: the current status and version are part
// of the WHERE clause, so a transition not listed in the state machine never
// commits.
func (db *DB) UpdateReservationStatus(ctx context.Context, id, version int64, from []string, to string) error {
	return db.updateStatusExec(ctx, db.DB, id, version, from, to)
}

func (db *DB) updateStatusExec(ctx context.Context, q execer, id, version int64, from []string, to string) error {
	marks, fromArgs := statusPlaceholders(from)
	query := fmt.Sprintf(`UPDATE reservations SET status = ?, version = version + 1, updated_at = ?
              WHERE id = ? AND version = ? AND status IN (%s)`, marks)

	args := append([]interface{}{to, time.Now().UTC(), id, version}, fromArgs...)
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update reservation status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return db.classifyStatusConflict(ctx, q, id, from)
	}
	return nil
}

// classifyStatusConflict distinguishes why a conditional update matched no
// rows: missing record, wrong state, or a lost version race.
func (db *DB) classifyStatusConflict(ctx context.Context, q execer, id int64, from []string) error {
	var status string
	err := q.QueryRowContext(ctx, `SELECT status FROM reservations WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrReservationNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check reservation: %w", err)
	}
	for _, s := range from {
		if s == status {
			return domain.ErrConcurrentModification
		}
	}
	return domain.ErrInvalidStatus
}

// TransitionWithIncrement pairs a status transition with the inventory
// increment that releases the copy. Both happen or neither does.
func (db *DB) TransitionWithIncrement(ctx context.Context, id, version int64, from []string, to string, bookID int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := db.updateStatusExec(ctx, tx, id, version, from, to); err != nil {
		return err
	}
	if err := incrementAvailableExec(ctx, tx, bookID); err != nil {
		return err
	}

	return tx.Commit()
}

// ExtendReservation postpones the due date by extensionDays calendar days,
// bumps the extension counter, and appends a history entry atomically. The
// guards (active status, counter below cap, version) live in the UPDATE.
func (db *DB) ExtendReservation(ctx context.Context, id, version int64, maxExtensions, extensionDays int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var previousDue time.Time
	err = tx.QueryRowContext(ctx, `SELECT due_date FROM reservations WHERE id = ?`, id).Scan(&previousDue)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrReservationNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read due date: %w", err)
	}

	now := time.Now().UTC()
	newDue := previousDue.AddDate(0, 0, extensionDays)

	query := `UPDATE reservations
              SET due_date = ?, extensions_used = extensions_used + 1, version = version + 1, updated_at = ?
              WHERE id = ? AND version = ? AND status = ? AND extensions_used < ?`
	result, err := tx.ExecContext(ctx, query, newDue, now, id, version, models.StatusActive, maxExtensions)
	if err != nil {
		return fmt.Errorf("failed to extend reservation: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return db.classifyExtendConflict(ctx, tx, id, int64(maxExtensions))
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO reservation_extensions (reservation_id, extended_at, previous_due, new_due) VALUES (?, ?, ?, ?)`,
		id, now, previousDue, newDue,
	)
	if err != nil {
		return fmt.Errorf("failed to record extension: %w", err)
	}

	return tx.Commit()
}

func (db *DB) classifyExtendConflict(ctx context.Context, q execer, id, maxExtensions int64) error {
	var status string
	var used int64
	err := q.QueryRowContext(ctx, `SELECT status, extensions_used FROM reservations WHERE id = ?`, id).Scan(&status, &used)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrReservationNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check reservation: %w", err)
	}
	if status != models.StatusActive {
		return domain.ErrInvalidStatus
	}
	if used >= maxExtensions {
		return domain.ErrExtensionLimit
	}
	return domain.ErrConcurrentModification
}

func (db *DB) ListUserReservations(ctx context.Context, userID int64, limit, offset int) ([]*models.Reservation, int64, error) {
	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reservations WHERE user_id = ?`, userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count user reservations: %w", err)
	}

	query := `SELECT ` + reservationColumns + ` FROM reservations
              WHERE user_id = ? ORDER BY updated_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list user reservations: %w", err)
	}
	defer rows.Close()

	reservations, err := collectReservations(rows)
	if err != nil {
		return nil, 0, err
	}
	return reservations, total, nil
}

// ListReservations returns reservations filtered by status, newest-updated
// first. The filter accepts the stored statuses plus "overdue", which is
// computed against the clock rather than read from a column.
func (db *DB) ListReservations(ctx context.Context, statusFilter string, limit, offset int) ([]*models.Reservation, int64, error) {
	var where string
	var args []interface{}

	switch statusFilter {
	case "":
		where = ""
	case models.StatusOverdue:
		where = `WHERE status = ? AND due_date < ?`
		args = append(args, models.StatusActive, time.Now().UTC())
	default:
		where = `WHERE status = ?`
		args = append(args, statusFilter)
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM reservations ` + where
	if err := db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count reservations: %w", err)
	}

	query := `SELECT ` + reservationColumns + ` FROM reservations ` + where +
		` ORDER BY updated_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reservations: %w", err)
	}
	defer rows.Close()

	reservations, err := collectReservations(rows)
	if err != nil {
		return nil, 0, err
	}
	return reservations, total, nil
}

func collectReservations(rows *sql.Rows) ([]*models.Reservation, error) {
	var reservations []*models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservations = append(reservations, r)
	}
	return reservations, rows.Err()
}
