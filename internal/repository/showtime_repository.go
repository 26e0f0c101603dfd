package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/movie-booking/internal/model"
)

// ErrShowtimeNotFound indicates that a showtime was not located in the DB.
var ErrShowtimeNotFound = errors.New("showtime not found")

const showtimeColumns = `s.id, s.movie_id, s.hall_id, s.start_time, s.end_time, s.total_seats, s.available_seats, s.version, s.is_active, s.created_at, s.updated_at`

// ShowtimeRepo manages persistence for showtimes and their seat counters.
type ShowtimeRepo struct {
	db *sql.DB
}

// NewShowtimeRepo constructs a ShowtimeRepo with the given DB handle.
func NewShowtimeRepo(db *sql.DB) *ShowtimeRepo {
	return &ShowtimeRepo{db: db}
}

// DB exposes the underlying sql.DB.
func (r *ShowtimeRepo) DB() *sql.DB {
	return r.db
}

// ShowtimeFilter narrows List.
type ShowtimeFilter struct {
	MovieID         *uint64
	IncludeInactive bool // also return inactive showtimes and showtimes of inactive movies
	Offset          int
	Limit           int
}

func scanShowtime(s scanner) (*model.Showtime, error) {
	var st model.Showtime
	var hall sql.NullInt64
	if err := s.Scan(
		&st.ID, &st.MovieID, &hall, &st.StartTime, &st.EndTime,
		&st.TotalSeats, &st.AvailableSeats, &st.Version, &st.IsActive, &st.CreatedAt, &st.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if hall.Valid {
		id := uint64(hall.Int64)
		st.HallID = &id
	}
	return &st, nil
}

func getShowtime(ctx context.Context, q querier, query string, args ...any) (*model.Showtime, error) {
	st, err := scanShowtime(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowtimeNotFound
		}
		return nil, err
	}
	return st, nil
}

func collectShowtimes(rows *sql.Rows) ([]model.Showtime, error) {
	defer rows.Close()
	out := make([]model.Showtime, 0)
	for rows.Next() {
		st, err := scanShowtime(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateTx inserts a new showtime inside tx and assigns the generated ID.
func (r *ShowtimeRepo) CreateTx(ctx context.Context, tx *sql.Tx, st *model.Showtime) error {
	const q = `INSERT INTO showtimes
               (movie_id, hall_id, start_time, end_time, total_seats, available_seats, version, is_active, created_at, updated_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q,
		st.MovieID, st.HallID, st.StartTime, st.EndTime, st.TotalSeats, st.AvailableSeats,
		st.Version, st.IsActive, st.CreatedAt, st.UpdatedAt,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	st.ID = uint64(id)
	return nil
}

// GetByID retrieves a showtime regardless of its active flag.
func (r *ShowtimeRepo) GetByID(ctx context.Context, id uint64) (*model.Showtime, error) {
	return getShowtime(ctx, r.db, `SELECT `+showtimeColumns+` FROM showtimes s WHERE s.id = ?`, id)
}

// GetForUpdateTx retrieves a showtime and locks its row until tx ends.
// Every read-modify-write of the seat counters starts here.
func (r *ShowtimeRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Showtime, error) {
	return getShowtime(ctx, tx, `SELECT `+showtimeColumns+` FROM showtimes s WHERE s.id = ? FOR UPDATE`, id)
}

// LockByMovieTx locks every showtime row of a movie and returns them.
func (r *ShowtimeRepo) LockByMovieTx(ctx context.Context, tx *sql.Tx, movieID uint64) ([]model.Showtime, error) {
	rows, err := tx.QueryContext(ctx, `SELECT `+showtimeColumns+` FROM showtimes s WHERE s.movie_id = ? ORDER BY s.id FOR UPDATE`, movieID)
	if err != nil {
		return nil, err
	}
	return collectShowtimes(rows)
}

// FindCandidatesTx returns active showtimes whose buffered window can
// touch [start, end).  hallID nil scans every hall.  The predicate is a
// superset filter; the caller applies the exact conflict rules.
func (r *ShowtimeRepo) FindCandidatesTx(ctx context.Context, tx *sql.Tx, hallID *uint64, start, end time.Time, buffer time.Duration, excludeID uint64) ([]model.Showtime, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + showtimeColumns + ` FROM showtimes s
               WHERE s.is_active = 1 AND s.id <> ? AND s.start_time <= ? AND s.end_time >= ?`)
	args := []any{excludeID, end.Add(buffer), start.Add(-buffer)}
	if hallID != nil {
		b.WriteString(` AND s.hall_id = ?`)
		args = append(args, *hallID)
	}
	b.WriteString(` ORDER BY s.start_time FOR UPDATE`)

	rows, err := tx.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	return collectShowtimes(rows)
}

// UpdateSeatsTx writes new counters if the row is still at st.Version
// and bumps the version.  ErrVersionConflict means another writer got
// there first.
func (r *ShowtimeRepo) UpdateSeatsTx(ctx context.Context, tx *sql.Tx, st *model.Showtime, total, available int, at time.Time) error {
	const q = `UPDATE showtimes
               SET total_seats = ?, available_seats = ?, version = version + 1, updated_at = ?
               WHERE id = ? AND version = ?`
	res, err := tx.ExecContext(ctx, q, total, available, at, st.ID, st.Version)
	if err != nil {
		return err
	}
	if err := expectOne(res, ErrVersionConflict); err != nil {
		return err
	}
	st.TotalSeats, st.AvailableSeats, st.UpdatedAt = total, available, at
	st.Version++
	return nil
}

// UpdateScheduleTx writes movie, hall and time window of st, guarded by
// st.Version like UpdateSeatsTx.
func (r *ShowtimeRepo) UpdateScheduleTx(ctx context.Context, tx *sql.Tx, st *model.Showtime, at time.Time) error {
	const q = `UPDATE showtimes
               SET movie_id = ?, hall_id = ?, start_time = ?, end_time = ?, version = version + 1, updated_at = ?
               WHERE id = ? AND version = ?`
	res, err := tx.ExecContext(ctx, q, st.MovieID, st.HallID, st.StartTime, st.EndTime, at, st.ID, st.Version)
	if err != nil {
		return err
	}
	if err := expectOne(res, ErrVersionConflict); err != nil {
		return err
	}
	st.UpdatedAt = at
	st.Version++
	return nil
}

// SetActiveTx flips the soft-delete flag.
func (r *ShowtimeRepo) SetActiveTx(ctx context.Context, tx *sql.Tx, id uint64, active bool, at time.Time) error {
	res, err := tx.ExecContext(ctx, `UPDATE showtimes SET is_active = ?, updated_at = ? WHERE id = ?`, active, at, id)
	if err != nil {
		return err
	}
	return expectOne(res, ErrShowtimeNotFound)
}

// DeleteTx removes the showtime row.
func (r *ShowtimeRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM showtimes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOne(res, ErrShowtimeNotFound)
}

// List returns showtimes ordered by start time.  Unless
// IncludeInactive is set only active showtimes of active movies are
// returned.
func (r *ShowtimeRepo) List(ctx context.Context, f ShowtimeFilter) ([]model.Showtime, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + showtimeColumns + ` FROM showtimes s JOIN movies m ON m.id = s.movie_id WHERE 1 = 1`)
	var args []any
	if !f.IncludeInactive {
		b.WriteString(` AND s.is_active = 1 AND m.is_active = 1`)
	}
	if f.MovieID != nil {
		b.WriteString(` AND s.movie_id = ?`)
		args = append(args, *f.MovieID)
	}
	b.WriteString(` ORDER BY s.start_time, s.id LIMIT ? OFFSET ?`)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	return collectShowtimes(rows)
}
