package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/movie-booking/internal/model"
)

// ErrBookingNotFound indicates that a booking was not located in the DB.
var ErrBookingNotFound = errors.New("booking not found")

const bookingColumns = `b.id, b.user_id, b.showtime_id, b.seats, b.status, b.created_at, b.updated_at`

// BookingRepo manages persistence for bookings.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo constructs a BookingRepo with the given DB handle.
func NewBookingRepo(db *sql.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

// DB exposes the underlying sql.DB.
func (r *BookingRepo) DB() *sql.DB {
	return r.db
}

func scanBooking(s scanner) (*model.Booking, error) {
	var b model.Booking
	var status string
	if err := s.Scan(&b.ID, &b.UserID, &b.ShowtimeID, &b.Seats, &status, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.Status = model.BookingStatus(status)
	return &b, nil
}

// CreateTx inserts a booking inside tx and assigns the generated ID.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings (user_id, showtime_id, seats, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, b.UserID, b.ShowtimeID, b.Seats, string(b.Status), b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

func getBooking(ctx context.Context, q querier, query string, id uint64) (*model.Booking, error) {
	b, err := scanBooking(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return b, nil
}

// GetByID reads a booking without locking it.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	return getBooking(ctx, r.db, `SELECT `+bookingColumns+` FROM bookings b WHERE b.id = ?`, id)
}

// GetForUpdateTx retrieves a booking and locks its row until tx ends.
func (r *BookingRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
	return getBooking(ctx, tx, `SELECT `+bookingColumns+` FROM bookings b WHERE b.id = ? FOR UPDATE`, id)
}

// UpdateStatusTx sets the status of a booking.
func (r *BookingRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.BookingStatus, at time.Time) error {
	res, err := tx.ExecContext(ctx, `UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?`, string(status), at, id)
	if err != nil {
		return err
	}
	return expectOne(res, ErrBookingNotFound)
}

// DeleteTx removes a booking row.  Seat counters are not touched.
func (r *BookingRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOne(res, ErrBookingNotFound)
}

// List returns bookings newest first.  userID nil lists every user's
// bookings.
func (r *BookingRepo) List(ctx context.Context, userID *uint64, offset, limit int) ([]model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings b`
	var args []any
	if userID != nil {
		q += ` WHERE b.user_id = ?`
		args = append(args, *userID)
	}
	q += ` ORDER BY b.created_at DESC, b.id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByShowtimeTx counts bookings on a showtime.  With holdingOnly
// cancelled bookings are ignored.
func (r *BookingRepo) CountByShowtimeTx(ctx context.Context, tx *sql.Tx, showtimeID uint64, holdingOnly bool) (int, error) {
	q := `SELECT COUNT(*) FROM bookings WHERE showtime_id = ?`
	args := []any{showtimeID}
	if holdingOnly {
		q += ` AND status <> ?`
		args = append(args, string(model.BookingCancelled))
	}
	var n int
	if err := tx.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// CountHoldingByMovieTx counts seat-holding bookings on any showtime of
// a movie, ended or not.
func (r *BookingRepo) CountHoldingByMovieTx(ctx context.Context, tx *sql.Tx, movieID uint64) (int, error) {
	const q = `SELECT COUNT(*) FROM bookings b
               JOIN showtimes s ON s.id = b.showtime_id
               WHERE s.movie_id = ? AND b.status <> ?`
	var n int
	if err := tx.QueryRowContext(ctx, q, movieID, string(model.BookingCancelled)).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
