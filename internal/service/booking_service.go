package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/movie-booking/internal/inventory"
	"github.com/iliyamo/movie-booking/internal/model"
	"github.com/iliyamo/movie-booking/internal/queue"
	"github.com/iliyamo/movie-booking/internal/repository"
)

// BookingPolicy holds the booking rules that are configuration.
type BookingPolicy struct {
	// CancelLockout forbids cancellation when the showtime starts within
	// this window.
	CancelLockout time.Duration
	// MaxSeatsPerBooking caps a single booking; 0 means no cap.
	MaxSeatsPerBooking int
}

// BookingService implements the booking lifecycle on top of the seat
// inventory.  Every seat mutation holds the in-process lock of the
// showtime and its row lock for the whole transaction, then writes the
// counters back with a version check.
type BookingService struct {
	db        *sql.DB
	movies    *repository.MovieRepo
	showtimes *repository.ShowtimeRepo
	bookings  *repository.BookingRepo
	locks     *inventory.Locks
	events    EventPublisher
	policy    BookingPolicy
	clock     Clock
}

// NewBookingService wires the booking lifecycle.  locks must be the same
// table the ShowtimeService uses.  events may be nil.
func NewBookingService(
	movies *repository.MovieRepo,
	showtimes *repository.ShowtimeRepo,
	bookings *repository.BookingRepo,
	locks *inventory.Locks,
	events EventPublisher,
	policy BookingPolicy,
	clock Clock,
) *BookingService {
	if movies == nil || showtimes == nil || bookings == nil {
		panic("nil repository passed to NewBookingService")
	}
	if locks == nil {
		locks = inventory.NewLocks()
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &BookingService{
		db:        bookings.DB(),
		movies:    movies,
		showtimes: showtimes,
		bookings:  bookings,
		locks:     locks,
		events:    events,
		policy:    policy,
		clock:     clock,
	}
}

// Create reserves seats on a showtime for userID.  The showtime must be
// active, belong to an active movie and not have ended.
func (s *BookingService) Create(ctx context.Context, userID, showtimeID uint64, seats int) (*model.Booking, error) {
	if seats <= 0 {
		return nil, invalid("seats must be greater than 0")
	}
	if s.policy.MaxSeatsPerBooking > 0 && seats > s.policy.MaxSeatsPerBooking {
		return nil, invalid("at most %d seats per booking", s.policy.MaxSeatsPerBooking)
	}

	unlock := s.locks.Lock(showtimeID)
	defer unlock()

	now := s.clock.Now()
	var (
		b  *model.Booking
		st *model.Showtime
		m  *model.Movie
	)
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		st, err = s.showtimes.GetForUpdateTx(ctx, tx, showtimeID)
		if err != nil {
			return showtimeErr(err)
		}
		if !st.IsActive {
			return ErrShowtimeNotFound
		}
		m, err = s.movies.GetTx(ctx, tx, st.MovieID)
		if err != nil {
			if errors.Is(err, repository.ErrMovieNotFound) {
				return ErrShowtimeNotFound
			}
			return err
		}
		if !m.IsActive {
			return ErrShowtimeNotFound
		}
		if st.HasEnded(now) {
			return ErrAlreadyEnded
		}

		cur := inventory.Seats{Total: st.TotalSeats, Available: st.AvailableSeats}
		if !cur.Valid() {
			return integrityFault(st, "stored seat counters out of range")
		}
		next, err := cur.Reserve(seats)
		if err != nil {
			return ErrInsufficientSeats
		}
		if err := s.showtimes.UpdateSeatsTx(ctx, tx, st, next.Total, next.Available, now); err != nil {
			return versionErr(err)
		}

		b = &model.Booking{
			UserID:     userID,
			ShowtimeID: showtimeID,
			Seats:      seats,
			Status:     model.BookingConfirmed,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		return s.bookings.CreateTx(ctx, tx, b)
	})
	// The seat counters are committed; nothing below needs the lock.
	unlock()
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"booking_id":      b.ID,
		"user_id":         userID,
		"showtime_id":     showtimeID,
		"seats":           seats,
		"available_seats": st.AvailableSeats,
	}).Info("booking created")
	publish(ctx, s.events, bookingEvent(queue.QueueBookingConfirmed, b, st, m, now))
	return b, nil
}

// Cancel returns the seats of a booking to its showtime.  Only the owner
// or an admin may cancel, and not once the showtime starts within the
// lockout window.
func (s *BookingService) Cancel(ctx context.Context, who Identity, bookingID uint64) (*model.Booking, error) {
	peek, err := s.owned(ctx, who, bookingID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(peek.ShowtimeID)
	defer unlock()

	now := s.clock.Now()
	var (
		b  *model.Booking
		st *model.Showtime
	)
	err = inTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		if st, err = s.showtimes.GetForUpdateTx(ctx, tx, peek.ShowtimeID); err != nil {
			return showtimeErr(err)
		}
		if b, err = s.bookings.GetForUpdateTx(ctx, tx, bookingID); err != nil {
			return bookingErr(err)
		}
		if !who.IsAdmin && b.UserID != who.UserID {
			return ErrBookingNotFound
		}
		if b.Status == model.BookingCancelled {
			return ErrAlreadyCancelled
		}
		if st.StartTime.Sub(now) <= s.policy.CancelLockout {
			return ErrLockoutWindow
		}

		cur := inventory.Seats{Total: st.TotalSeats, Available: st.AvailableSeats}
		next, err := cur.Release(b.Seats)
		if err != nil {
			logrus.WithError(err).WithField("booking_id", b.ID).Error("seat release rejected")
			return integrityFault(st, "release would exceed total seats")
		}
		if err := s.showtimes.UpdateSeatsTx(ctx, tx, st, next.Total, next.Available, now); err != nil {
			return versionErr(err)
		}
		if err := s.bookings.UpdateStatusTx(ctx, tx, b.ID, model.BookingCancelled, now); err != nil {
			return bookingErr(err)
		}
		b.Status, b.UpdatedAt = model.BookingCancelled, now
		return nil
	})
	unlock()
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"booking_id":      b.ID,
		"showtime_id":     st.ID,
		"seats":           b.Seats,
		"available_seats": st.AvailableSeats,
		"by_admin":        who.IsAdmin && b.UserID != who.UserID,
	}).Info("booking cancelled")
	// The movie is only needed for the event payload.
	m, err := s.movies.GetByID(ctx, st.MovieID)
	if err != nil {
		logrus.WithError(err).WithField("movie_id", st.MovieID).Debug("movie lookup for cancel event failed")
	}
	publish(ctx, s.events, bookingEvent(queue.QueueBookingCancelled, b, st, m, now))
	return b, nil
}

// Delete removes a booking row.  A booking still holding seats can only
// be deleted once its showtime has ended.  Seats are never returned to
// the showtime by a deletion.
func (s *BookingService) Delete(ctx context.Context, who Identity, bookingID uint64) error {
	peek, err := s.owned(ctx, who, bookingID)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(peek.ShowtimeID)
	defer unlock()

	now := s.clock.Now()
	var b *model.Booking
	err = inTx(ctx, s.db, func(tx *sql.Tx) error {
		st, err := s.showtimes.GetForUpdateTx(ctx, tx, peek.ShowtimeID)
		if err != nil {
			return showtimeErr(err)
		}
		if b, err = s.bookings.GetForUpdateTx(ctx, tx, bookingID); err != nil {
			return bookingErr(err)
		}
		if !who.IsAdmin && b.UserID != who.UserID {
			return ErrBookingNotFound
		}
		if b.Status.HoldsSeats() && now.Before(st.EndTime) {
			return ErrNotYetCompleted
		}
		return bookingErr(s.bookings.DeleteTx(ctx, tx, bookingID))
	})
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"booking_id":  bookingID,
		"showtime_id": b.ShowtimeID,
		"status":      b.Status,
		"seats":       b.Seats,
	}).Info("booking deleted")
	return nil
}

// List returns every booking for admins and the caller's own bookings
// otherwise, newest first.
func (s *BookingService) List(ctx context.Context, who Identity, p Page) ([]model.Booking, error) {
	p, err := p.Normalize()
	if err != nil {
		return nil, err
	}
	var userID *uint64
	if !who.IsAdmin {
		userID = &who.UserID
	}
	return s.bookings.List(ctx, userID, p.Skip, p.Limit)
}

// owned reads a booking without locking and applies the ownership rule,
// so the showtime lock can be taken before the booking row is locked.
func (s *BookingService) owned(ctx context.Context, who Identity, bookingID uint64) (*model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, bookingErr(err)
	}
	if !who.IsAdmin && b.UserID != who.UserID {
		return nil, ErrBookingNotFound
	}
	return b, nil
}

func bookingErr(err error) error {
	if errors.Is(err, repository.ErrBookingNotFound) {
		return ErrBookingNotFound
	}
	return err
}

func bookingEvent(kind string, b *model.Booking, st *model.Showtime, m *model.Movie, at time.Time) queue.BookingEvent {
	ev := queue.BookingEvent{
		Type:       kind,
		BookingID:  b.ID,
		UserID:     b.UserID,
		ShowtimeID: st.ID,
		MovieID:    st.MovieID,
		HallID:     st.HallID,
		Seats:      b.Seats,
		StartTime:  st.StartTime,
		EndTime:    st.EndTime,
		OccurredAt: at,
	}
	if m != nil {
		ev.MovieTitle = m.Title
	}
	return ev
}

