// Package queue defines message payloads exchanged over the message broker.
package queue

import "time"

// Queue names.  Each event type has its own durable queue and is
// published to it through the default exchange.
const (
	QueueBookingConfirmed = "booking.confirmed"
	QueueBookingCancelled = "booking.cancelled"
)

// BookingEvent is published after a booking transaction commits.  It
// carries enough information for downstream consumers to log, notify or
// trigger analytics without querying the primary database.
type BookingEvent struct {
	Type       string    `json:"type"` // one of the queue names above
	BookingID  uint64    `json:"booking_id"`
	UserID     uint64    `json:"user_id"`
	ShowtimeID uint64    `json:"showtime_id"`
	MovieID    uint64    `json:"movie_id"`
	MovieTitle string    `json:"movie_title"`
	HallID     *uint64   `json:"hall_id,omitempty"`
	Seats      int       `json:"seats"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Queues lists every queue the publisher and consumer declare.
func Queues() []string {
	return []string{QueueBookingConfirmed, QueueBookingCancelled}
}
