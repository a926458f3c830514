package domain

import "errors"

// Guard failures the reservation engine can return. The HTTP layer maps these
// to stable status codes; messages for callers are attached at the call site.
var (
	ErrBookNotFound        = errors.New("book not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrNoCopiesAvailable: every copy of the book is checked out or held.
	ErrNoCopiesAvailable = errors.New("no copies available")

	// ErrAlreadyReserved: the user already holds a non-terminal reservation
	// for this book.
	ErrAlreadyReserved = errors.New("book already reserved")

	ErrNotOwner      = errors.New("reservation belongs to another user")
	ErrInvalidStatus = errors.New("operation not valid for current status")

	// ErrExtensionLimit: the extension cap has been reached.
	ErrExtensionLimit = errors.New("extension limit exceeded")

	// ErrInventoryOverflow: an increment would push available over total.
	ErrInventoryOverflow = errors.New("all copies already available")

	ErrConcurrentModification = errors.New("reservation was modified concurrently")
)
