// Package inventory implements the seat counters owned by a single
// showtime.  Seats values are immutable: every operation returns the
// resulting counters and leaves the receiver untouched, so a failed
// operation never changes state.
package inventory

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCapacity is returned when a total seat count is not positive.
	ErrInvalidCapacity = errors.New("total seats must be positive")
	// ErrInvalidSeatCount is returned when a reserve or release amount is not positive.
	ErrInvalidSeatCount = errors.New("seat count must be positive")
	// ErrInsufficientSeats is returned when a reservation asks for more seats than are available.
	ErrInsufficientSeats = errors.New("insufficient seats available")
	// ErrCapacityBelowBooked is returned when a resize would leave fewer seats than are booked.
	ErrCapacityBelowBooked = errors.New("total seats cannot be lower than booked seats")
	// ErrReleaseOverflow signals that releasing seats would push available
	// above total.  It always indicates a bookkeeping bug elsewhere.
	ErrReleaseOverflow = errors.New("release would exceed total seats")
)

// Seats is the total/available pair of a showtime.
type Seats struct {
	Total     int
	Available int
}

// Initialize returns counters for a fresh showtime with every seat available.
func Initialize(total int) (Seats, error) {
	if total <= 0 {
		return Seats{}, ErrInvalidCapacity
	}
	return Seats{Total: total, Available: total}, nil
}

// Booked returns the number of seats held by bookings.
func (s Seats) Booked() int {
	return s.Total - s.Available
}

// Valid reports whether 0 <= Available <= Total and Total > 0.
func (s Seats) Valid() bool {
	return s.Total > 0 && s.Available >= 0 && s.Available <= s.Total
}

// Reserve takes n seats.
func (s Seats) Reserve(n int) (Seats, error) {
	if n <= 0 {
		return s, ErrInvalidSeatCount
	}
	if s.Available < n {
		return s, ErrInsufficientSeats
	}
	return Seats{Total: s.Total, Available: s.Available - n}, nil
}

// Release gives n seats back.  Overflow is not clamped.
func (s Seats) Release(n int) (Seats, error) {
	if n <= 0 {
		return s, ErrInvalidSeatCount
	}
	if s.Available+n > s.Total {
		return s, fmt.Errorf("%w: available=%d release=%d total=%d", ErrReleaseOverflow, s.Available, n, s.Total)
	}
	return Seats{Total: s.Total, Available: s.Available + n}, nil
}

// Resize changes capacity while keeping the booked count fixed.
func (s Seats) Resize(newTotal int) (Seats, error) {
	if newTotal <= 0 {
		return s, ErrInvalidCapacity
	}
	available := newTotal - s.Booked()
	if available < 0 {
		return s, ErrCapacityBelowBooked
	}
	return Seats{Total: newTotal, Available: available}, nil
}
