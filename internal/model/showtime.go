package model

import "time"

// Showtime represents a scheduled screening of a movie, optionally in a
// particular hall.  EndTime is always StartTime plus the movie's
// duration at the time the showtime was last created or updated.  The
// showtime owns its seat counters; Version is bumped on every counter
// write and is used as a compare-and-swap guard.
//
// Fields:
//  ID             – primary key identifier.
//  MovieID        – movie being screened.
//  HallID         – hall where the screening takes place (nil when
//                   scheduling is not hall-scoped).
//  StartTime      – when the showtime begins (UTC).
//  EndTime        – when the showtime ends (UTC).
//  TotalSeats     – seat capacity.
//  AvailableSeats – seats not held by any booking.
//  Version        – optimistic concurrency counter.
//  IsActive       – soft-delete flag.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Showtime struct {
	ID             uint64    `json:"id"`                // showtimes.id
	MovieID        uint64    `json:"movie_id"`          // showtimes.movie_id
	HallID         *uint64   `json:"hall_id,omitempty"` // showtimes.hall_id (nullable)
	StartTime      time.Time `json:"start_time"`        // showtimes.start_time
	EndTime        time.Time `json:"end_time"`          // showtimes.end_time
	TotalSeats     int       `json:"total_seats"`       // showtimes.total_seats
	AvailableSeats int       `json:"available_seats"`   // showtimes.available_seats
	Version        uint64    `json:"-"`                 // showtimes.version
	IsActive       bool      `json:"is_active"`         // showtimes.is_active
	CreatedAt      time.Time `json:"created_at"`        // showtimes.created_at
	UpdatedAt      time.Time `json:"updated_at"`        // showtimes.updated_at
}

// BookedSeats returns the number of seats currently held by bookings.
func (s Showtime) BookedSeats() int {
	return s.TotalSeats - s.AvailableSeats
}

// HasEnded reports whether the showtime finished strictly before now.
func (s Showtime) HasEnded(now time.Time) bool {
	return now.After(s.EndTime)
}
