package domain

import (
	"context"
	"time"

	"github.com/wdallo/libraryApp-sub000/internal/models"
)

type Repository interface {
	// Books.
	GetBook(ctx context.Context, id int64) (*models.Book, error)
	ListBooks(ctx context.Context) ([]*models.Book, error)
	UpsertBook(ctx context.Context, book *models.Book) error
	IncrementAvailable(ctx context.Context, bookID int64) error

	// Reservations. CreateReservation performs the availability decrement and
	// the insert in one transaction.
	CreateReservation(ctx context.Context, r *models.Reservation) error
	GetReservation(ctx context.Context, id int64) (*models.Reservation, error)
	GetExtensions(ctx context.Context, reservationID int64) ([]models.Extension, error)
	UpdateReservationStatus(ctx context.Context, id, version int64, from []string, to string) error
	TransitionWithIncrement(ctx context.Context, id, version int64, from []string, to string, bookID int64) error
	ExtendReservation(ctx context.Context, id, version int64, maxExtensions, extensionDays int) error
	ListUserReservations(ctx context.Context, userID int64, limit, offset int) ([]*models.Reservation, int64, error)
	ListReservations(ctx context.Context, statusFilter string, limit, offset int) ([]*models.Reservation, int64, error)

	// Users.
	GetUser(ctx context.Context, id int64) (*models.User, error)
	CreateOrUpdateUser(ctx context.Context, user *models.User) error

	// Activity feed.
	InsertActivity(ctx context.Context, a *models.Activity) error
	ListActivities(ctx context.Context, limit int) ([]*models.Activity, error)
	PruneActivities(ctx context.Context, keep int) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// AvailabilityCache keeps short-lived copy-count snapshots and the
// per-user reservation rate limit counters.
type AvailabilityCache interface {
	GetAvailability(ctx context.Context, bookID int64) (*models.Availability, error)
	SetAvailability(ctx context.Context, av *models.Availability) error
	Invalidate(ctx context.Context, bookID int64) error
	CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error)
}

// Page is a paginated reservation listing.
type Page struct {
	Items      []*models.Reservation `json:"items"`
	TotalCount int64                 `json:"total_count"`
}

type ReservationService interface {
	Reserve(ctx context.Context, bookID, userID int64) (*models.Reservation, error)
	Approve(ctx context.Context, id, adminID int64) (*models.Reservation, error)
	Reject(ctx context.Context, id, adminID int64) (*models.Reservation, error)
	Cancel(ctx context.Context, id, userID int64) (*models.Reservation, error)
	Extend(ctx context.Context, id, userID int64) (*models.Reservation, error)
	RequestReturn(ctx context.Context, id, userID int64) (*models.Reservation, error)
	ApproveReturn(ctx context.Context, id, adminID int64) (*models.Reservation, error)
	ReturnDirect(ctx context.Context, id, userID int64) (*models.Reservation, error)
	ListForUser(ctx context.Context, userID int64, page, pageSize int) (*Page, error)
	ListAll(ctx context.Context, statusFilter string, page, pageSize int) (*Page, error)
}

type BookService interface {
	GetBook(ctx context.Context, id int64) (*models.Book, error)
	ListBooks(ctx context.Context) ([]*models.Book, error)
	GetAvailability(ctx context.Context, bookID int64) (*models.Availability, error)
}

type UserService interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	EnsureUser(ctx context.Context, id int64, name string) (*models.User, error)
}
