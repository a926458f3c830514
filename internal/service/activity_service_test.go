package service

import (
	"testing"
	"time"

	"github.com/wdallo/libraryApp-sub000/internal/events"
	"github.com/wdallo/libraryApp-sub000/internal/models"

	"github.com/stretchr/testify/assert"
)

func payload(status string) events.ReservationEventPayload {
	return events.ReservationEventPayload{
		ReservationID: 7,
		BookID:        1,
		BookTitle:     "The Go Programming Language",
		UserID:        10,
		UserName:      "Alice",
		Status:        status,
		DueDate:       time.Date(2026, 9, 13, 0, 0, 0, 0, time.UTC),
		Actor:         "Librarian",
	}
}

func TestActivityEntry_Messages(t *testing.T) {
	svc := NewActivityService()

	tests := []struct {
		name      string
		eventType string
		status    string
		want      string
	}{
		{
			name:      "requested",
			eventType: events.EventReservationRequested,
			status:    models.StatusPending,
			want:      `Alice requested "The Go Programming Language"`,
		},
		{
			name:      "approved",
			eventType: events.EventReservationApproved,
			status:    models.StatusActive,
			want:      `reservation of "The Go Programming Language" for Alice approved by Librarian`,
		},
		{
			name:      "rejected",
			eventType: events.EventReservationRejected,
			status:    models.StatusCancelled,
			want:      `reservation of "The Go Programming Language" for Alice rejected by Librarian`,
		},
		{
			name:      "cancelled by owner",
			eventType: events.EventReservationCancelled,
			status:    models.StatusCancelled,
			want:      `Alice cancelled the reservation of "The Go Programming Language"`,
		},
		{
			name:      "extended",
			eventType: events.EventReservationExtended,
			status:    models.StatusActive,
			want:      `Alice extended the loan of "The Go Programming Language" until 2026-09-13`,
		},
		{
			name:      "return requested",
			eventType: events.EventReturnRequested,
			status:    models.StatusPendingReturn,
			want:      `Alice requested return of "The Go Programming Language"`,
		},
		{
			name:      "return approved",
			eventType: events.EventReturnApproved,
			status:    models.StatusReturned,
			want:      `return of "The Go Programming Language" by Alice approved by Librarian`,
		},
		{
			name:      "direct return",
			eventType: events.EventReservationReturned,
			status:    models.StatusReturned,
			want:      `Alice returned "The Go Programming Language"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := svc.Entry(tt.eventType, payload(tt.status))
			assert.Equal(t, tt.want, entry.Message)
			assert.Equal(t, int64(7), entry.ReservationID)
			assert.Equal(t, tt.status, entry.Status)
		})
	}
}

func TestActivityEntry_Fallbacks(t *testing.T) {
	svc := NewActivityService()

	p := events.ReservationEventPayload{
		ReservationID: 7,
		Status:        models.StatusActive,
	}
	entry := svc.Entry(events.EventReservationApproved, p)

	assert.Equal(t, `reservation of "Unknown Book" for Unknown User approved by Admin`, entry.Message)
	assert.Equal(t, "Admin", entry.Actor)
}

func TestActivityEntry_UnknownStatus(t *testing.T) {
	svc := NewActivityService()

	p := payload("archived")
	entry := svc.Entry("reservation_archived", p)
	assert.Equal(t, `reservation of "The Go Programming Language" for Alice changed to archived`, entry.Message)
}
