package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wdallo/libraryApp-sub000/internal/config"
	"github.com/wdallo/libraryApp-sub000/internal/domain"
	"github.com/wdallo/libraryApp-sub000/internal/events"
	"github.com/wdallo/libraryApp-sub000/internal/metrics"
	"github.com/wdallo/libraryApp-sub000/internal/models"

	"github.com/rs/zerolog"
)

// ReservationService drives the reservation state machine. Every transition
// is a conditional write in the store; guards that fail commit nothing.
type ReservationService struct {
	repo   domain.Repository
	bus    domain.EventPublisher
	cache  domain.AvailabilityCache
	policy config.ReservationsConfig
	logger *zerolog.Logger
}

func NewReservationService(
	repo domain.Repository,
	bus domain.EventPublisher,
	cache domain.AvailabilityCache,
	policy config.ReservationsConfig,
	logger *zerolog.Logger,
) *ReservationService {
	if policy.LoanDays <= 0 {
		policy.LoanDays = models.DefaultLoanDays
	}
	if policy.ExtensionDays <= 0 {
		policy.ExtensionDays = models.DefaultExtensionDays
	}
	return &ReservationService{
		repo:   repo,
		bus:    bus,
		cache:  cache,
		policy: policy,
		logger: logger,
	}
}

// Reserve places a hold on one copy of the book. The copy-count decrement
// and the reservation insert are one transaction; duplicate open
// reservations for the (book, user) pair are rejected by the store.
func (s *ReservationService) Reserve(ctx context.Context, bookID, userID int64) (*models.Reservation, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		metrics.IncReservation("reserve", outcome(err))
		return nil, err
	}

	book, err := s.repo.GetBook(ctx, bookID)
	if err != nil {
		metrics.IncReservation("reserve", outcome(err))
		return nil, err
	}

	status := models.StatusPending
	eventType := events.EventReservationRequested
	if s.policy.AutoApprove {
		status = models.StatusActive
		eventType = events.EventReservationApproved
	}

	reservation := &models.Reservation{
		BookID:    book.ID,
		BookTitle: book.Title,
		UserID:    user.ID,
		UserName:  user.Name,
		Status:    status,
		DueDate:   time.Now().UTC().AddDate(0, 0, s.policy.LoanDays),
	}

	if err := s.repo.CreateReservation(ctx, reservation); err != nil {
		metrics.IncReservation("reserve", outcome(err))
		return nil, err
	}

	s.invalidate(ctx, book.ID)
	s.publishEvent(eventType, reservation, user.Name, user.ID)
	metrics.IncReservation("reserve", "ok")

	s.logger.Info().
		Int64("reservation_id", reservation.ID).
		Int64("book_id", book.ID).
		Int64("user_id", user.ID).
		Str("status", status).
		Time("due_date", reservation.DueDate).
		Msg("reservation created")

	return reservation, nil
}

// Approve moves a pending reservation to active. Admin only; the HTTP layer
// has already established the caller's role.
func (s *ReservationService) Approve(ctx context.Context, id, adminID int64) (*models.Reservation, error) {
	reservation, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		metrics.IncReservation("approve", outcome(err))
		return nil, err
	}

	err = s.repo.UpdateReservationStatus(ctx, id, reservation.Version,
		[]string{models.StatusPending}, models.StatusActive)
	if err != nil {
		metrics.IncReservation("approve", outcome(err))
		return nil, err
	}

	updated, err := s.reload(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publishEvent(events.EventReservationApproved, updated, s.actorName(ctx, adminID), adminID)
	metrics.IncReservation("approve", "ok")
	return updated, nil
}

// Reject cancels a pending reservation and releases its copy.
func (s *ReservationService) Reject(ctx context.Context, id, adminID int64) (*models.Reservation, error) {
	reservation, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		metrics.IncReservation("reject", outcome(err))
		return nil, err
	}

	err = s.repo.TransitionWithIncrement(ctx, id, reservation.Version,
		[]string{models.StatusPending}, models.StatusCancelled, reservation.BookID)
	if err != nil {
		metrics.IncReservation("reject", outcome(err))
		return nil, err
	}

	s.invalidate(ctx, reservation.BookID)
	updated, err := s.reload(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publishEvent(events.EventReservationRejected, updated, s.actorName(ctx, adminID), adminID)
	metrics.IncReservation("reject", "ok")
	return updated, nil
}

// Cancel lets the owner withdraw a reservation that is still pending.
func (s *ReservationService) Cancel(ctx context.Context, id, userID int64) (*models.Reservation, error) {
	reservation, err := s.ownedReservation(ctx, id, userID)
	if err != nil {
		metrics.IncReservation("cancel", outcome(err))
		return nil, err
	}

	err = s.repo.TransitionWithIncrement(ctx, id, reservation.Version,
		[]string{models.StatusPending}, models.StatusCancelled, reservation.BookID)
	if err != nil {
		metrics.IncReservation("cancel", outcome(err))
		return nil, err
	}

	s.invalidate(ctx, reservation.BookID)
	updated, err := s.reload(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publishEvent(events.EventReservationCancelled, updated, reservation.UserName, userID)
	metrics.IncReservation("cancel", "ok")
	return updated, nil
}

// Extend postpones the due date by the configured number of calendar days,
// at most MaxExtensions times. Due date, counter, and history move together.
func (s *ReservationService) Extend(ctx context.Context, id, userID int64) (*models.Reservation, error) {
	reservation, err := s.ownedReservation(ctx, id, userID)
	if err != nil {
		metrics.IncReservation("extend", outcome(err))
		return nil, err
	}

	err = s.repo.ExtendReservation(ctx, id, reservation.Version, s.policy.MaxExtensions, s.policy.ExtensionDays)
	if err != nil {
		metrics.IncReservation("extend", outcome(err))
		return nil, err
	}

	updated, err := s.reload(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publishEvent(events.EventReservationExtended, updated, reservation.UserName, userID)
	metrics.IncReservation("extend", "ok")
	return updated, nil
}

// RequestReturn marks an active reservation as awaiting return confirmation.
// The copy stays checked out until an admin approves receipt.
func (s *ReservationService) RequestReturn(ctx context.Context, id, userID int64) (*models.Reservation, error) {
	reservation, err := s.ownedReservation(ctx, id, userID)
	if err != nil {
		metrics.IncReservation("request_return", outcome(err))
		return nil, err
	}

	err = s.repo.UpdateReservationStatus(ctx, id, reservation.Version,
		[]string{models.StatusActive}, models.StatusPendingReturn)
	if err != nil {
		metrics.IncReservation("request_return", outcome(err))
		return nil, err
	}

	updated, err := s.reload(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publishEvent(events.EventReturnRequested, updated, reservation.UserName, userID)
	metrics.IncReservation("request_return", "ok")
	return updated, nil
}

// ApproveReturn confirms receipt of the copy and puts it back on the shelf.
// This is the only increment on the return-request path.
func (s *ReservationService) ApproveReturn(ctx context.Context, id, adminID int64) (*models.Reservation, error) {
	reservation, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		metrics.IncReservation("approve_return", outcome(err))
		return nil, err
	}

	err = s.repo.TransitionWithIncrement(ctx, id, reservation.Version,
		[]string{models.StatusPendingReturn}, models.StatusReturned, reservation.BookID)
	if err != nil {
		metrics.IncReservation("approve_return", outcome(err))
		return nil, err
	}

	s.invalidate(ctx, reservation.BookID)
	updated, err := s.reload(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publishEvent(events.EventReturnApproved, updated, s.actorName(ctx, adminID), adminID)
	metrics.IncReservation("approve_return", "ok")
	return updated, nil
}

// ReturnDirect returns an active reservation in one step, skipping the
// pending_return confirmation. Kept for clients of the old return flow.
func (s *ReservationService) ReturnDirect(ctx context.Context, id, userID int64) (*models.Reservation, error) {
	reservation, err := s.ownedReservation(ctx, id, userID)
	if err != nil {
		metrics.IncReservation("return_direct", outcome(err))
		return nil, err
	}

	err = s.repo.TransitionWithIncrement(ctx, id, reservation.Version,
		[]string{models.StatusActive}, models.StatusReturned, reservation.BookID)
	if err != nil {
		metrics.IncReservation("return_direct", outcome(err))
		return nil, err
	}

	s.invalidate(ctx, reservation.BookID)
	updated, err := s.reload(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publishEvent(events.EventReservationReturned, updated, reservation.UserName, userID)
	metrics.IncReservation("return_direct", "ok")
	return updated, nil
}

func (s *ReservationService) ListForUser(ctx context.Context, userID int64, page, pageSize int) (*domain.Page, error) {
	limit, offset := clampPage(page, pageSize)
	items, total, err := s.repo.ListUserReservations(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return &domain.Page{Items: items, TotalCount: total}, nil
}

func (s *ReservationService) ListAll(ctx context.Context, statusFilter string, page, pageSize int) (*domain.Page, error) {
	if statusFilter != "" && statusFilter != models.StatusOverdue && !models.ValidStatus(statusFilter) {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidStatus, statusFilter)
	}

	limit, offset := clampPage(page, pageSize)
	items, total, err := s.repo.ListReservations(ctx, statusFilter, limit, offset)
	if err != nil {
		return nil, err
	}
	return &domain.Page{Items: items, TotalCount: total}, nil
}

// ownedReservation loads a reservation and enforces ownership before any
// mutation is attempted.
func (s *ReservationService) ownedReservation(ctx context.Context, id, userID int64) (*models.Reservation, error) {
	reservation, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if reservation.UserID != userID {
		return nil, domain.ErrNotOwner
	}
	return reservation, nil
}

// reload fetches the post-transition record with its extension history.
func (s *ReservationService) reload(ctx context.Context, id int64) (*models.Reservation, error) {
	reservation, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	extensions, err := s.repo.GetExtensions(ctx, id)
	if err != nil {
		return nil, err
	}
	reservation.Extensions = extensions
	return reservation, nil
}

func (s *ReservationService) invalidate(ctx context.Context, bookID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, bookID); err != nil {
		s.logger.Warn().Err(err).Int64("book_id", bookID).Msg("availability cache invalidation failed")
	}
}

func (s *ReservationService) publishEvent(eventType string, r *models.Reservation, actor string, actorID int64) {
	if s.bus == nil {
		return
	}

	payload := events.ReservationEventPayload{
		ReservationID: r.ID,
		BookID:        r.BookID,
		BookTitle:     r.BookTitle,
		UserID:        r.UserID,
		UserName:      r.UserName,
		Status:        r.Status,
		DueDate:       r.DueDate,
		Actor:         actor,
		ActorID:       actorID,
	}

	if err := s.bus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("reservation_id", r.ID).Msg("publish event error")
	}
}

// actorName resolves an admin's display name for the audit trail.
func (s *ReservationService) actorName(ctx context.Context, adminID int64) string {
	user, err := s.repo.GetUser(ctx, adminID)
	if err != nil || user.Name == "" {
		return ""
	}
	return user.Name
}

func clampPage(page, pageSize int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = models.DefaultPageSize
	}
	if pageSize > models.MaxPageSize {
		pageSize = models.MaxPageSize
	}
	return pageSize, (page - 1) * pageSize
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrBookNotFound), errors.Is(err, domain.ErrReservationNotFound), errors.Is(err, domain.ErrUserNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrNoCopiesAvailable):
		return "no_copies"
	case errors.Is(err, domain.ErrAlreadyReserved):
		return "duplicate"
	case errors.Is(err, domain.ErrNotOwner):
		return "forbidden"
	case errors.Is(err, domain.ErrInvalidStatus):
		return "invalid_status"
	case errors.Is(err, domain.ErrExtensionLimit):
		return "limit_exceeded"
	case errors.Is(err, domain.ErrConcurrentModification):
		return "conflict"
	default:
		return "error"
	}
}
