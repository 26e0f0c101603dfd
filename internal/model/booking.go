package model

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	// BookingConfirmed is the status written for every new booking.
	BookingConfirmed BookingStatus = "confirmed"
	// BookingCompleted is accepted from storage and treated exactly like
	// BookingConfirmed.  It is never written.
	BookingCompleted BookingStatus = "completed"
	// BookingCancelled is terminal.  Cancelled bookings hold no seats.
	BookingCancelled BookingStatus = "cancelled"
)

// HoldsSeats reports whether a booking in this status still occupies
// seats on its showtime.
func (s BookingStatus) HoldsSeats() bool {
	return s != BookingCancelled
}

// Valid reports whether s is one of the known statuses.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingConfirmed, BookingCompleted, BookingCancelled:
		return true
	}
	return false
}

// Booking records a user's reservation of a number of seats on a
// showtime.  Bookings reference users and showtimes by ID only.
//
// Fields:
//  ID         – primary key identifier.
//  UserID     – user who made the booking.
//  ShowtimeID – showtime being booked.
//  Seats      – number of seats (always positive).
//  Status     – confirmed, completed or cancelled.
//  CreatedAt  – booking time.
//  UpdatedAt  – last status change.
type Booking struct {
	ID         uint64        `json:"id"`           // bookings.id
	UserID     uint64        `json:"user_id"`      // bookings.user_id
	ShowtimeID uint64        `json:"showtime_id"`  // bookings.showtime_id
	Seats      int           `json:"seats"`        // bookings.seats
	Status     BookingStatus `json:"status"`       // bookings.status
	CreatedAt  time.Time     `json:"booking_time"` // bookings.created_at
	UpdatedAt  time.Time     `json:"updated_at"`   // bookings.updated_at
}
