// Package service holds the booking engine: catalog rules, the
// scheduling validator, seat inventory transactions, the booking
// lifecycle and the deactivation guards.  Every operation that touches
// seat counters runs in one transaction holding the showtime row lock.
package service

import (
	"errors"
	"fmt"
	"time"
)

// Error classes.  Handlers map these with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInsufficientSeats = errors.New("not enough seats available")
	ErrAlreadyCancelled  = errors.New("booking is already cancelled")
	ErrAlreadyEnded      = errors.New("showtime has already ended")
	ErrLockoutWindow     = errors.New("booking can no longer be cancelled this close to the showtime")
	ErrNotYetCompleted   = errors.New("an active booking can only be deleted after its showtime has ended")
	ErrDataIntegrity     = errors.New("data integrity fault")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
)

// Not-found errors per resource.
var (
	ErrMovieNotFound    = fmt.Errorf("movie %w", ErrNotFound)
	ErrShowtimeNotFound = fmt.Errorf("showtime %w", ErrNotFound)
	ErrBookingNotFound  = fmt.Errorf("booking %w", ErrNotFound)
	ErrHallNotFound     = fmt.Errorf("hall %w", ErrNotFound)
)

// Conflicts.
var (
	ErrTitleTaken          = fmt.Errorf("%w: an active movie with this title already exists", ErrConflict)
	ErrScheduleConflict    = fmt.Errorf("%w: showtime overlaps an existing showtime", ErrConflict)
	ErrCapacityBelowBooked = fmt.Errorf("%w: total seats cannot be lower than booked seats", ErrConflict)
	ErrHasActiveBookings   = fmt.Errorf("%w: there are active bookings", ErrConflict)
	ErrShowtimeInUse       = fmt.Errorf("%w: showtime must be inactive or ended and have no bookings", ErrConflict)
	ErrConcurrentUpdate    = fmt.Errorf("%w: showtime was modified concurrently, retry", ErrConflict)
	ErrUserExists          = fmt.Errorf("%w: username or email already registered", ErrConflict)
	ErrHallExists          = fmt.Errorf("%w: hall name already exists", ErrConflict)
)

// Authentication failures.
var (
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	ErrInactiveUser       = fmt.Errorf("%w: inactive user", ErrForbidden)
)

// ScheduleConflictError names the showtime a proposal collided with.
type ScheduleConflictError struct {
	ShowtimeID uint64
	Start      time.Time
	End        time.Time
}

func (e *ScheduleConflictError) Error() string {
	return fmt.Sprintf("%s: showtime %d from %s to %s",
		ErrScheduleConflict, e.ShowtimeID, e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
}

func (e *ScheduleConflictError) Unwrap() error { return ErrScheduleConflict }

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
