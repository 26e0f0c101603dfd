package service

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-booking/internal/queue"
)

var qMovieInsert = regexp.QuoteMeta("INSERT INTO movies")

func TestMovieCreate(t *testing.T) {
	t.Run("trims and stores", func(t *testing.T) {
		f := newFixture(t, hallScoped())
		f.mock.ExpectBegin()
		f.mock.ExpectQuery(qTitle).WithArgs("Heat", uint64(0)).WillReturnRows(noRows(movieCols))
		f.mock.ExpectExec(qMovieInsert).
			WithArgs("Heat", nil, 120, "crime", true, now, now).
			WillReturnResult(sqlmock.NewResult(3, 1))
		f.mock.ExpectCommit()

		m, err := f.movies.Create(ctx, MovieInput{Title: "  Heat ", DurationMin: 120, Genre: "crime"})
		require.NoError(t, err)
		assert.Equal(t, uint64(3), m.ID)
		assert.True(t, m.IsActive)
	})

	t.Run("title taken ignoring case", func(t *testing.T) {
		f := newFixture(t, hallScoped())
		f.mock.ExpectBegin()
		f.mock.ExpectQuery(qTitle).WithArgs("HEAT", uint64(0)).WillReturnRows(movieRow(heat))
		f.mock.ExpectRollback()

		_, err := f.movies.Create(ctx, MovieInput{Title: "HEAT", DurationMin: 120})
		assert.ErrorIs(t, err, ErrTitleTaken)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("unique index race", func(t *testing.T) {
		f := newFixture(t, hallScoped())
		f.mock.ExpectBegin()
		f.mock.ExpectQuery(qTitle).WillReturnRows(noRows(movieCols))
		f.mock.ExpectExec(qMovieInsert).WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
		f.mock.ExpectRollback()

		_, err := f.movies.Create(ctx, MovieInput{Title: "Heat", DurationMin: 120})
		assert.ErrorIs(t, err, ErrTitleTaken)
	})
}

func TestMovieUpdate(t *testing.T) {
	t.Run("title check excludes itself", func(t *testing.T) {
		f := newFixture(t, hallScoped())
		f.mock.ExpectBegin()
		f.mock.ExpectQuery(qMovieLock).WithArgs(heat.ID).WillReturnRows(movieRow(heat))
		f.mock.ExpectQuery(qTitle).WithArgs("heat", heat.ID).WillReturnRows(noRows(movieCols))
		f.mock.ExpectExec(regexp.QuoteMeta("UPDATE movies SET title = ?")).
			WithArgs("heat", nil, 130, "crime", now, heat.ID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		f.mock.ExpectCommit()

		m, err := f.movies.Update(ctx, heat.ID, MovieInput{Title: "heat", DurationMin: 130, Genre: "crime"})
		require.NoError(t, err)
		assert.Equal(t, 130, m.DurationMin)
	})

	t.Run("inactive movie", func(t *testing.T) {
		f := newFixture(t, hallScoped())
		gone := heat
		gone.IsActive = false
		f.mock.ExpectBegin()
		f.mock.ExpectQuery(qMovieLock).WillReturnRows(movieRow(gone))
		f.mock.ExpectRollback()

		_, err := f.movies.Update(ctx, heat.ID, MovieInput{Title: "Heat", DurationMin: 120})
		assert.ErrorIs(t, err, ErrMovieNotFound)
	})
}

func TestMovieDeactivate(t *testing.T) {
	qLockShowtimes := regexp.QuoteMeta("WHERE s.movie_id = ? ORDER BY s.id FOR UPDATE")
	qHolding := regexp.QuoteMeta("JOIN showtimes s ON s.id = b.showtime_id WHERE s.movie_id = ? AND b.status <> ?")

	t.Run("refused with upcoming bookings", func(t *testing.T) {
		f := newFixture(t, hallScoped())
		f.mock.ExpectBegin()
		f.mock.ExpectQuery(qMovieLock).WillReturnRows(movieRow(heat))
		f.mock.ExpectQuery(qLockShowtimes).WithArgs(heat.ID).WillReturnRows(showtimeRows(upcoming(time.Hour, 50, 47)))
		f.mock.ExpectQuery(qHolding).WithArgs(heat.ID, "cancelled").WillReturnRows(count(1))
		f.mock.ExpectRollback()

		_, err := f.movies.Deactivate(ctx, heat.ID)
		assert.ErrorIs(t, err, ErrHasActiveBookings)
	})

	t.Run("refused with bookings on an ended showtime", func(t *testing.T) {
		f := newFixture(t, hallScoped())
		f.mock.ExpectBegin()
		f.mock.ExpectQuery(qMovieLock).WillReturnRows(movieRow(heat))
		f.mock.ExpectQuery(qLockShowtimes).WithArgs(heat.ID).WillReturnRows(showtimeRows(upcoming(-24*time.Hour, 50, 48)))
		f.mock.ExpectQuery(qHolding + "$").WithArgs(heat.ID, "cancelled").WillReturnRows(count(1))
		f.mock.ExpectRollback()

		_, err := f.movies.Deactivate(ctx, heat.ID)
		assert.ErrorIs(t, err, ErrHasActiveBookings)
	})

	t.Run("allowed otherwise", func(t *testing.T) {
		f := newFixture(t, hallScoped())
		f.mock.ExpectBegin()
		f.mock.ExpectQuery(qMovieLock).WillReturnRows(movieRow(heat))
		f.mock.ExpectQuery(qLockShowtimes).WillReturnRows(showtimeRows())
		f.mock.ExpectQuery(qHolding).WillReturnRows(count(0))
		f.mock.ExpectExec(regexp.QuoteMeta("UPDATE movies SET is_active = ?")).
			WithArgs(false, now, heat.ID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		f.mock.ExpectCommit()

		m, err := f.movies.Deactivate(ctx, heat.ID)
		require.NoError(t, err)
		assert.False(t, m.IsActive)
	})

	t.Run("missing", func(t *testing.T) {
		f := newFixture(t, hallScoped())
		f.mock.ExpectBegin()
		f.mock.ExpectQuery(qMovieLock).WillReturnRows(noRows(movieCols))
		f.mock.ExpectRollback()

		_, err := f.movies.Deactivate(ctx, 77)
		assert.ErrorIs(t, err, ErrMovieNotFound)
	})
}

func TestMovieGetHidesInactive(t *testing.T) {
	f := newFixture(t, hallScoped())
	gone := heat
	gone.IsActive = false
	f.mock.ExpectQuery(qMovieGet).WillReturnRows(movieRow(gone))

	_, err := f.movies.Get(ctx, heat.ID)
	assert.ErrorIs(t, err, ErrMovieNotFound)
}

// Movie, showtime, booking and cancellation in sequence, with each step
// reading back what the previous one wrote.
func TestEndToEndBookingRoundTrip(t *testing.T) {
	f := newFixture(t, hallScoped())
	start := now.Add(24 * time.Hour)

	// create movie(duration=120)
	f.mock.ExpectBegin()
	f.mock.ExpectQuery(qTitle).WillReturnRows(noRows(movieCols))
	f.mock.ExpectExec(qMovieInsert).WillReturnResult(sqlmock.NewResult(3, 1))
	f.mock.ExpectCommit()
	m, err := f.movies.Create(ctx, MovieInput{Title: "Heat", DurationMin: 120, Genre: "crime"})
	require.NoError(t, err)

	// create showtime(total_seats=50, start=T)
	f.mock.ExpectBegin()
	f.expectValidate(*m, u64(1))
	f.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO showtimes")).WillReturnResult(sqlmock.NewResult(9, 1))
	f.mock.ExpectCommit()
	st, err := f.showtimes.Create(ctx, ShowtimeInput{MovieID: m.ID, HallID: u64(1), StartTime: start, TotalSeats: 50})
	require.NoError(t, err)
	assert.Equal(t, start.Add(120*time.Minute), st.EndTime)
	assert.Equal(t, 50, st.AvailableSeats)

	// book 3 seats
	f.mock.ExpectBegin()
	f.expectShowtimeLock(*st)
	f.mock.ExpectQuery(qMovieGet).WillReturnRows(movieRow(*m))
	f.expectSeatWrite(*st, 50, 47)
	f.expectBookingInsert(21)
	f.mock.ExpectCommit()
	b, err := f.bookings.Create(ctx, 5, st.ID, 3)
	require.NoError(t, err)

	afterBooking := *st
	afterBooking.AvailableSeats, afterBooking.Version = 47, st.Version+1

	// cancel booking
	f.mock.ExpectQuery(qBookingGet).WillReturnRows(bookingRow(*b))
	f.mock.ExpectBegin()
	f.expectShowtimeLock(afterBooking)
	f.mock.ExpectQuery(qBookingLock).WillReturnRows(bookingRow(*b))
	f.expectSeatWrite(afterBooking, 50, 50)
	f.mock.ExpectExec(qBookingStatus).WillReturnResult(sqlmock.NewResult(0, 1))
	f.mock.ExpectCommit()
	f.mock.ExpectQuery(qMovieGet).WillReturnRows(movieRow(*m))
	_, err = f.bookings.Cancel(ctx, Identity{UserID: 5, IsActive: true}, b.ID)
	require.NoError(t, err)

	evs := f.events.all()
	require.Len(t, evs, 2)
	assert.Equal(t, queue.QueueBookingConfirmed, evs[0].Type)
	assert.Equal(t, queue.QueueBookingCancelled, evs[1].Type)
}

func TestMovieSearch(t *testing.T) {
	f := newFixture(t, hallScoped())
	f.mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM movies WHERE is_active = 1 AND LOWER(title) LIKE ?")).
		WithArgs("%heat%").
		WillReturnRows(count(1))
	f.mock.ExpectQuery(regexp.QuoteMeta("ORDER BY title, id LIMIT ? OFFSET ?")).
		WithArgs("%heat%", 100, 0).
		WillReturnRows(movieRow(heat))

	res, err := f.movies.Search(ctx, MovieSearch{Title: "Heat"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Total)
	require.Len(t, res.Items, 1)
	assert.Equal(t, heat.ID, res.Items[0].ID)

	_, err = f.movies.Search(ctx, MovieSearch{Page: Page{Limit: 101}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
