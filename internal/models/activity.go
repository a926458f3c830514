package models

import "time"

// Activity is one display-ready entry of the admin activity feed.
type Activity struct {
	ID            int64     `json:"id"`
	ReservationID int64     `json:"reservation_id"`
	Status        string    `json:"status"`
	Actor         string    `json:"actor"`
	Message       string    `json:"message"`
	CreatedAt     time.Time `json:"created_at"`
}
