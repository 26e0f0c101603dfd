package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/movie-booking/internal/model"
)

// ErrMovieNotFound indicates that a movie was not located in the DB.
var ErrMovieNotFound = errors.New("movie not found")

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const movieColumns = `id, title, description, duration_min, genre, is_active, created_at, updated_at`

// MovieRepo manages persistence for movies.
type MovieRepo struct {
	db *sql.DB
}

// NewMovieRepo constructs a MovieRepo with the given DB handle.
func NewMovieRepo(db *sql.DB) *MovieRepo {
	return &MovieRepo{db: db}
}

// DB exposes the underlying sql.DB so callers can begin transactions
// spanning multiple repositories.
func (r *MovieRepo) DB() *sql.DB {
	return r.db
}

func scanMovie(s scanner) (*model.Movie, error) {
	var m model.Movie
	var desc sql.NullString
	if err := s.Scan(&m.ID, &m.Title, &desc, &m.DurationMin, &m.Genre, &m.IsActive, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	if desc.Valid {
		m.Description = &desc.String
	}
	return &m, nil
}

func getMovie(ctx context.Context, q querier, query string, args ...any) (*model.Movie, error) {
	m, err := scanMovie(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMovieNotFound
		}
		return nil, err
	}
	return m, nil
}

// CreateTx inserts a new movie inside tx and assigns the generated ID.
// A title clash with another active movie yields ErrDuplicate.
func (r *MovieRepo) CreateTx(ctx context.Context, tx *sql.Tx, m *model.Movie) error {
	const q = `INSERT INTO movies (title, description, duration_min, genre, is_active, created_at, updated_at)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, m.Title, m.Description, m.DurationMin, m.Genre, m.IsActive, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	return nil
}

// GetByID retrieves a movie regardless of its active flag.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (*model.Movie, error) {
	return getMovie(ctx, r.db, `SELECT `+movieColumns+` FROM movies WHERE id = ?`, id)
}

// GetTx reads a movie inside tx without locking it.
func (r *MovieRepo) GetTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Movie, error) {
	return getMovie(ctx, tx, `SELECT `+movieColumns+` FROM movies WHERE id = ?`, id)
}

// GetForUpdateTx retrieves a movie and locks its row until tx ends.
func (r *MovieRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Movie, error) {
	return getMovie(ctx, tx, `SELECT `+movieColumns+` FROM movies WHERE id = ? FOR UPDATE`, id)
}

// FindActiveByTitleTx looks up an active movie whose title matches
// case-insensitively, ignoring excludeID.  ErrMovieNotFound means the
// title is free.
func (r *MovieRepo) FindActiveByTitleTx(ctx context.Context, tx *sql.Tx, title string, excludeID uint64) (*model.Movie, error) {
	const q = `SELECT ` + movieColumns + ` FROM movies
               WHERE is_active = 1 AND LOWER(title) = LOWER(?) AND id <> ?
               LIMIT 1`
	return getMovie(ctx, tx, q, title, excludeID)
}

// ListActive returns active movies ordered by ID.
func (r *MovieRepo) ListActive(ctx context.Context, offset, limit int) ([]model.Movie, error) {
	const q = `SELECT ` + movieColumns + ` FROM movies WHERE is_active = 1 ORDER BY id LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Movie, 0)
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateTx writes the editable fields of m.
func (r *MovieRepo) UpdateTx(ctx context.Context, tx *sql.Tx, m *model.Movie) error {
	const q = `UPDATE movies SET title = ?, description = ?, duration_min = ?, genre = ?, updated_at = ?
               WHERE id = ?`
	res, err := tx.ExecContext(ctx, q, m.Title, m.Description, m.DurationMin, m.Genre, m.UpdatedAt, m.ID)
	if err != nil {
		return translate(err)
	}
	return expectOne(res, ErrMovieNotFound)
}

// SetActiveTx flips the soft-delete flag.  Reactivation may hit
// ErrDuplicate if another active movie took the title meanwhile.
func (r *MovieRepo) SetActiveTx(ctx context.Context, tx *sql.Tx, id uint64, active bool, at time.Time) error {
	res, err := tx.ExecContext(ctx, `UPDATE movies SET is_active = ?, updated_at = ? WHERE id = ?`, active, at, id)
	if err != nil {
		return translate(err)
	}
	return expectOne(res, ErrMovieNotFound)
}

// expectOne returns notFound when res matched no row.  The DSN sets
// clientFoundRows, so an UPDATE that leaves values unchanged still counts.
func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
