package models

import "time"

// Reservation statuses. Overdue is never stored; it is derived from the due
// date on read (see Reservation.IsOverdue).
const (
	StatusPending       = "pending"
	StatusActive        = "active"
	StatusCancelled     = "cancelled"
	StatusPendingReturn = "pending_return"
	StatusReturned      = "returned"

	// StatusOverdue is accepted as a list filter only.
	StatusOverdue = "overdue"
)

type Reservation struct {
	ID             int64       `json:"id"`
	BookID         int64       `json:"book_id"`
	BookTitle      string      `json:"book_title"`
	UserID         int64       `json:"user_id"`
	UserName       string      `json:"user_name"`
	Status         string      `json:"status"`
	DueDate        time.Time   `json:"due_date"`
	ExtensionsUsed int64       `json:"extensions_used"`
	Extensions     []Extension `json:"extensions,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
	Version        int64       `json:"version"`
}

// Extension records one due-date postponement.
type Extension struct {
	ID            int64     `json:"id"`
	ReservationID int64     `json:"reservation_id"`
	ExtendedAt    time.Time `json:"extended_at"`
	PreviousDue   time.Time `json:"previous_due"`
	NewDue        time.Time `json:"new_due"`
}

// IsOverdue reports whether the reservation is active with a due date in the
// past. Overdue is computed against the clock, never persisted.
func (r *Reservation) IsOverdue(now time.Time) bool {
	return r.Status == StatusActive && r.DueDate.Before(now)
}

// IsTerminal reports whether the reservation no longer holds a copy.
func IsTerminal(status string) bool {
	return status == StatusCancelled || status == StatusReturned
}

// ValidStatus reports whether s is one of the stored statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusActive, StatusCancelled, StatusPendingReturn, StatusReturned:
		return true
	}
	return false
}
