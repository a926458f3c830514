package service

import (
	"fmt"
	"time"

	"github.com/wdallo/libraryApp-sub000/internal/events"
	"github.com/wdallo/libraryApp-sub000/internal/models"
)

// Fallbacks for referential gaps: a reservation may outlive its user or
// book record, and admin actions may carry no resolvable name. The
// projection degrades to placeholders instead of failing.
const (
	unknownUser  = "Unknown User"
	unknownBook  = "Unknown Book"
	defaultAdmin = "Admin"
)

// ActivityService turns reservation events into display-ready activity
// entries. It is a pure projection: no state, no I/O.
type ActivityService struct{}

func NewActivityService() *ActivityService {
	return &ActivityService{}
}

// Entry builds one activity feed entry from an event. Message templates are
// keyed by the reservation status the event left behind; the event type
// disambiguates transitions that land on the same status.
func (s *ActivityService) Entry(eventType string, p events.ReservationEventPayload) models.Activity {
	user := p.UserName
	if user == "" {
		user = unknownUser
	}
	book := p.BookTitle
	if book == "" {
		book = unknownBook
	}
	actor := p.Actor
	if actor == "" {
		actor = defaultAdmin
	}

	var message string
	switch {
	case eventType == events.EventReservationExtended:
		message = fmt.Sprintf("%s extended the loan of %q until %s", user, book, p.DueDate.Format("2006-01-02"))
	case eventType == events.EventReservationReturned:
		message = fmt.Sprintf("%s returned %q", user, book)
	case eventType == events.EventReservationCancelled:
		message = fmt.Sprintf("%s cancelled the reservation of %q", user, book)
	case p.Status == models.StatusPending:
		message = fmt.Sprintf("%s requested %q", user, book)
	case p.Status == models.StatusActive:
		message = fmt.Sprintf("reservation of %q for %s approved by %s", book, user, actor)
	case p.Status == models.StatusCancelled:
		message = fmt.Sprintf("reservation of %q for %s rejected by %s", book, user, actor)
	case p.Status == models.StatusPendingReturn:
		message = fmt.Sprintf("%s requested return of %q", user, book)
	case p.Status == models.StatusReturned:
		message = fmt.Sprintf("return of %q by %s approved by %s", book, user, actor)
	default:
		message = fmt.Sprintf("reservation of %q for %s changed to %s", book, user, p.Status)
	}

	return models.Activity{
		ReservationID: p.ReservationID,
		Status:        p.Status,
		Actor:         actor,
		Message:       message,
		CreatedAt:     time.Now().UTC(),
	}
}
