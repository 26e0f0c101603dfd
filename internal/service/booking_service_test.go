package service

import (
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-booking/internal/inventory"
	"github.com/iliyamo/movie-booking/internal/model"
	"github.com/iliyamo/movie-booking/internal/queue"
)

var heat = model.Movie{ID: 3, Title: "Heat", DurationMin: 120, Genre: "crime", IsActive: true}

// upcoming returns an active showtime of heat starting in `in`.
func upcoming(in time.Duration, total, available int) model.Showtime {
	start := now.Add(in)
	return model.Showtime{
		ID: 9, MovieID: heat.ID, HallID: u64(1),
		StartTime: start, EndTime: start.Add(heat.Duration()),
		TotalSeats: total, AvailableSeats: available, Version: 4, IsActive: true,
	}
}

func (f *fixture) expectBookingInsert(id int64) {
	f.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WithArgs(uint64(5), uint64(9), sqlmock.AnyArg(), "confirmed", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(id, 1))
}

func TestBookingCreateReservesSeats(t *testing.T) {
	f := newFixture(t, hallScoped())
	st := upcoming(2*time.Hour, 50, 50)

	f.mock.ExpectBegin()
	f.expectShowtimeLock(st)
	f.mock.ExpectQuery(qMovieGet).WithArgs(heat.ID).WillReturnRows(movieRow(heat))
	f.expectSeatWrite(st, 50, 47)
	f.expectBookingInsert(21)
	f.mock.ExpectCommit()

	b, err := f.bookings.Create(ctx, 5, 9, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(21), b.ID)
	assert.Equal(t, model.BookingConfirmed, b.Status)
	assert.Equal(t, 3, b.Seats)

	evs := f.events.all()
	require.Len(t, evs, 1)
	assert.Equal(t, queue.QueueBookingConfirmed, evs[0].Type)
	assert.Equal(t, "Heat", evs[0].MovieTitle)
	assert.Equal(t, uint64(21), evs[0].BookingID)
	assert.Equal(t, st.StartTime, evs[0].StartTime)
}

func TestBookingCreatePublishFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, hallScoped())
	f.events.err = errors.New("broker down")
	st := upcoming(2*time.Hour, 50, 50)

	f.mock.ExpectBegin()
	f.expectShowtimeLock(st)
	f.mock.ExpectQuery(qMovieGet).WillReturnRows(movieRow(heat))
	f.expectSeatWrite(st, 50, 49)
	f.expectBookingInsert(22)
	f.mock.ExpectCommit()

	_, err := f.bookings.Create(ctx, 5, 9, 1)
	assert.NoError(t, err)
}

func TestBookingCreateRejections(t *testing.T) {
	inactiveMovie := heat
	inactiveMovie.IsActive = false

	cases := []struct {
		name  string
		st    model.Showtime
		movie *model.Movie
		seats int
		want  error
	}{
		{"inactive showtime", func() model.Showtime { s := upcoming(time.Hour, 50, 50); s.IsActive = false; return s }(), nil, 1, ErrShowtimeNotFound},
		{"inactive movie", upcoming(time.Hour, 50, 50), &inactiveMovie, 1, ErrShowtimeNotFound},
		{"ended", upcoming(-3*time.Hour, 50, 50), &heat, 1, ErrAlreadyEnded},
		{"insufficient", upcoming(time.Hour, 50, 2), &heat, 3, ErrInsufficientSeats},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, hallScoped())
			f.mock.ExpectBegin()
			f.expectShowtimeLock(tc.st)
			if tc.movie != nil {
				f.mock.ExpectQuery(qMovieGet).WillReturnRows(movieRow(*tc.movie))
			}
			f.mock.ExpectRollback()

			_, err := f.bookings.Create(ctx, 5, 9, tc.seats)
			assert.ErrorIs(t, err, tc.want)
			assert.Empty(t, f.events.all())
		})
	}
}

func TestBookingCreateSeatBounds(t *testing.T) {
	f := newFixture(t, hallScoped())
	for _, seats := range []int{0, -1, 11} {
		_, err := f.bookings.Create(ctx, 5, 9, seats)
		assert.ErrorIs(t, err, ErrInvalidInput, "seats=%d", seats)
	}
}

func TestBookingCreateMissingShowtime(t *testing.T) {
	f := newFixture(t, hallScoped())
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(qShowtimeLock).WithArgs(uint64(9)).WillReturnRows(noRows(showtimeCols))
	f.mock.ExpectRollback()

	_, err := f.bookings.Create(ctx, 5, 9, 1)
	assert.ErrorIs(t, err, ErrShowtimeNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBookingCreateVersionConflict(t *testing.T) {
	f := newFixture(t, hallScoped())
	st := upcoming(time.Hour, 50, 50)

	f.mock.ExpectBegin()
	f.expectShowtimeLock(st)
	f.mock.ExpectQuery(qMovieGet).WillReturnRows(movieRow(heat))
	f.mock.ExpectExec(qSeats).WillReturnResult(sqlmock.NewResult(0, 0))
	f.mock.ExpectRollback()

	_, err := f.bookings.Create(ctx, 5, 9, 1)
	assert.ErrorIs(t, err, ErrConcurrentUpdate)
}

// Two bookings race for the last seat.  The seat lock serializes them so
// the second transaction reads the counter the first one wrote.
func TestBookingLastSeatRace(t *testing.T) {
	f := newFixture(t, hallScoped())
	last := upcoming(time.Hour, 50, 1)
	sold := last
	sold.AvailableSeats, sold.Version = 0, last.Version+1

	f.mock.ExpectBegin()
	f.expectShowtimeLock(last)
	f.mock.ExpectQuery(qMovieGet).WillReturnRows(movieRow(heat))
	f.expectSeatWrite(last, 50, 0)
	f.expectBookingInsert(30)
	f.mock.ExpectCommit()

	f.mock.ExpectBegin()
	f.expectShowtimeLock(sold)
	f.mock.ExpectQuery(qMovieGet).WillReturnRows(movieRow(heat))
	f.mock.ExpectRollback()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.bookings.Create(ctx, 5, 9, 1)
		}(i)
	}
	wg.Wait()

	var ok, short int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrInsufficientSeats):
			short++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, short)
}

func (f *fixture) expectCancelPrelude(b model.Booking, st model.Showtime) {
	f.mock.ExpectQuery(qBookingGet).WithArgs(b.ID).WillReturnRows(bookingRow(b))
	f.mock.ExpectBegin()
	f.expectShowtimeLock(st)
	f.mock.ExpectQuery(qBookingLock).WithArgs(b.ID).WillReturnRows(bookingRow(b))
}

func TestBookingCancelLockout(t *testing.T) {
	me := Identity{UserID: 5, IsActive: true}
	b := model.Booking{ID: 21, UserID: 5, ShowtimeID: 9, Seats: 3, Status: model.BookingConfirmed}

	t.Run("29 minutes before start", func(t *testing.T) {
		f := newFixture(t, hallScoped())
		f.expectCancelPrelude(b, upcoming(29*time.Minute, 50, 47))
		f.mock.ExpectRollback()

		_, err := f.bookings.Cancel(ctx, me, b.ID)
		assert.ErrorIs(t, err, ErrLockoutWindow)
	})

	t.Run("exactly at the lockout", func(t *testing.T) {
		f := newFixture(t, hallScoped())
		f.expectCancelPrelude(b, upcoming(30*time.Minute, 50, 47))
		f.mock.ExpectRollback()

		_, err := f.bookings.Cancel(ctx, me, b.ID)
		assert.ErrorIs(t, err, ErrLockoutWindow)
	})

	t.Run("31 minutes before start", func(t *testing.T) {
		f := newFixture(t, hallScoped())
		st := upcoming(31*time.Minute, 50, 47)
		f.expectCancelPrelude(b, st)
		f.expectSeatWrite(st, 50, 50)
		f.mock.ExpectExec(qBookingStatus).WithArgs("cancelled", sqlmock.AnyArg(), b.ID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		f.mock.ExpectCommit()
		f.mock.ExpectQuery(qMovieGet).WithArgs(heat.ID).WillReturnRows(movieRow(heat))

		got, err := f.bookings.Cancel(ctx, me, b.ID)
		require.NoError(t, err)
		assert.Equal(t, model.BookingCancelled, got.Status)

		evs := f.events.all()
		require.Len(t, evs, 1)
		assert.Equal(t, queue.QueueBookingCancelled, evs[0].Type)
		assert.Equal(t, 3, evs[0].Seats)
	})
}

func TestBookingCancelRejections(t *testing.T) {
	st := upcoming(2*time.Hour, 50, 47)

	t.Run("already cancelled", func(t *testing.T) {
		f := newFixture(t, hallScoped())
		b := model.Booking{ID: 21, UserID: 5, ShowtimeID: 9, Seats: 3, Status: model.BookingCancelled}
		f.expectCancelPrelude(b, st)
		f.mock.ExpectRollback()

		_, err := f.bookings.Cancel(ctx, Identity{UserID: 5}, b.ID)
		assert.ErrorIs(t, err, ErrAlreadyCancelled)
	})

	t.Run("not the owner", func(t *testing.T) {
		f := newFixture(t, hallScoped())
		b := model.Booking{ID: 21, UserID: 6, ShowtimeID: 9, Seats: 3, Status: model.BookingConfirmed}
		f.mock.ExpectQuery(qBookingGet).WithArgs(b.ID).WillReturnRows(bookingRow(b))

		_, err := f.bookings.Cancel(ctx, Identity{UserID: 5}, b.ID)
		assert.ErrorIs(t, err, ErrBookingNotFound)
	})

	t.Run("missing", func(t *testing.T) {
		f := newFixture(t, hallScoped())
		f.mock.ExpectQuery(qBookingGet).WillReturnRows(noRows(bookingCols))

		_, err := f.bookings.Cancel(ctx, Identity{UserID: 5}, 99)
		assert.ErrorIs(t, err, ErrBookingNotFound)
	})

	t.Run("release overflow", func(t *testing.T) {
		f := newFixture(t, hallScoped())
		b := model.Booking{ID: 21, UserID: 5, ShowtimeID: 9, Seats: 5, Status: model.BookingConfirmed}
		f.expectCancelPrelude(b, upcoming(2*time.Hour, 50, 48))
		f.mock.ExpectRollback()

		_, err := f.bookings.Cancel(ctx, Identity{UserID: 5}, b.ID)
		assert.ErrorIs(t, err, ErrDataIntegrity)
		assert.Empty(t, f.events.all())
	})
}

// lockHeld reports whether key stays locked for a short while.
func lockHeld(l *inventory.Locks, key uint64) bool {
	acquired := make(chan func(), 1)
	go func() { acquired <- l.Lock(key) }()
	select {
	case unlock := <-acquired:
		unlock()
		return false
	case <-time.After(200 * time.Millisecond):
		go func() { (<-acquired)() }()
		return true
	}
}

func TestBookingEventsPublishedWithoutSeatLock(t *testing.T) {
	f := newFixture(t, hallScoped())
	var held []bool
	f.events.onPublish = func(ev queue.BookingEvent) {
		held = append(held, lockHeld(f.locks, ev.ShowtimeID))
	}
	st := upcoming(2*time.Hour, 50, 50)

	f.mock.ExpectBegin()
	f.expectShowtimeLock(st)
	f.mock.ExpectQuery(qMovieGet).WillReturnRows(movieRow(heat))
	f.expectSeatWrite(st, 50, 47)
	f.expectBookingInsert(21)
	f.mock.ExpectCommit()
	b, err := f.bookings.Create(ctx, 5, 9, 3)
	require.NoError(t, err)

	booked := upcoming(2*time.Hour, 50, 47)
	f.expectCancelPrelude(*b, booked)
	f.expectSeatWrite(booked, 50, 50)
	f.mock.ExpectExec(qBookingStatus).WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()
	f.mock.ExpectQuery(qMovieGet).WillReturnRows(movieRow(heat))
	_, err = f.bookings.Cancel(ctx, Identity{UserID: 5, IsActive: true}, b.ID)
	require.NoError(t, err)

	assert.Equal(t, []bool{false, false}, held)
}

func TestBookingCancelEventWithoutMovie(t *testing.T) {
	f := newFixture(t, hallScoped())
	st := upcoming(2*time.Hour, 50, 47)
	b := model.Booking{ID: 21, UserID: 5, ShowtimeID: 9, Seats: 3, Status: model.BookingConfirmed}
	f.expectCancelPrelude(b, st)
	f.expectSeatWrite(st, 50, 50)
	f.mock.ExpectExec(qBookingStatus).WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()
	f.mock.ExpectQuery(qMovieGet).WillReturnError(errors.New("connection reset"))

	got, err := f.bookings.Cancel(ctx, Identity{UserID: 5, IsActive: true}, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, got.Status)

	evs := f.events.all()
	require.Len(t, evs, 1)
	assert.Empty(t, evs[0].MovieTitle)
}

func TestBookingCancelByAdmin(t *testing.T) {
	f := newFixture(t, hallScoped())
	st := upcoming(2*time.Hour, 50, 47)
	b := model.Booking{ID: 21, UserID: 6, ShowtimeID: 9, Seats: 3, Status: model.BookingConfirmed}
	f.expectCancelPrelude(b, st)
	f.expectSeatWrite(st, 50, 50)
	f.mock.ExpectExec(qBookingStatus).WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()
	f.mock.ExpectQuery(qMovieGet).WillReturnRows(movieRow(heat))

	_, err := f.bookings.Cancel(ctx, Identity{UserID: 1, IsAdmin: true}, b.ID)
	assert.NoError(t, err)
}

func TestBookingDelete(t *testing.T) {
	me := Identity{UserID: 5}

	t.Run("active before end", func(t *testing.T) {
		f := newFixture(t, hallScoped())
		b := model.Booking{ID: 21, UserID: 5, ShowtimeID: 9, Seats: 3, Status: model.BookingConfirmed}
		f.expectCancelPrelude(b, upcoming(-time.Hour, 50, 47)) // started, not ended
		f.mock.ExpectRollback()

		assert.ErrorIs(t, f.bookings.Delete(ctx, me, b.ID), ErrNotYetCompleted)
	})

	t.Run("completed status before end", func(t *testing.T) {
		f := newFixture(t, hallScoped())
		b := model.Booking{ID: 21, UserID: 5, ShowtimeID: 9, Seats: 3, Status: model.BookingCompleted}
		f.expectCancelPrelude(b, upcoming(time.Hour, 50, 47))
		f.mock.ExpectRollback()

		assert.ErrorIs(t, f.bookings.Delete(ctx, me, b.ID), ErrNotYetCompleted)
	})

	t.Run("after end keeps seats", func(t *testing.T) {
		f := newFixture(t, hallScoped())
		b := model.Booking{ID: 21, UserID: 5, ShowtimeID: 9, Seats: 3, Status: model.BookingConfirmed}
		f.expectCancelPrelude(b, upcoming(-3*time.Hour, 50, 47))
		// No showtime write: deletion never restores seats.
		f.mock.ExpectExec(regexp.QuoteMeta("DELETE FROM bookings")).WithArgs(b.ID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		f.mock.ExpectCommit()

		assert.NoError(t, f.bookings.Delete(ctx, me, b.ID))
	})

	t.Run("cancelled before end", func(t *testing.T) {
		f := newFixture(t, hallScoped())
		b := model.Booking{ID: 21, UserID: 5, ShowtimeID: 9, Seats: 3, Status: model.BookingCancelled}
		f.expectCancelPrelude(b, upcoming(time.Hour, 50, 50))
		f.mock.ExpectExec(regexp.QuoteMeta("DELETE FROM bookings")).WillReturnResult(sqlmock.NewResult(0, 1))
		f.mock.ExpectCommit()

		assert.NoError(t, f.bookings.Delete(ctx, me, b.ID))
	})
}

func TestBookingList(t *testing.T) {
	b := model.Booking{ID: 21, UserID: 5, ShowtimeID: 9, Seats: 3, Status: model.BookingConfirmed}

	f := newFixture(t, hallScoped())
	f.mock.ExpectQuery(regexp.QuoteMeta("WHERE b.user_id = ?")).
		WithArgs(uint64(5), 100, 0).WillReturnRows(bookingRow(b))
	got, err := f.bookings.List(ctx, Identity{UserID: 5}, Page{})
	require.NoError(t, err)
	require.Len(t, got, 1)

	f.mock.ExpectQuery(regexp.QuoteMeta("FROM bookings b ORDER BY")).
		WithArgs(20, 40).WillReturnRows(bookingRow(b))
	_, err = f.bookings.List(ctx, Identity{UserID: 1, IsAdmin: true}, Page{Skip: 40, Limit: 20})
	require.NoError(t, err)
}
