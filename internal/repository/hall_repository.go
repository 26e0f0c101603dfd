package repository // repository holds data access logic for domain entities

import (
	"context"      // context is used to manage deadlines and cancellation
	"database/sql" // sql provides DB primitives
	"errors"       // errors package allows sentinel error definitions

	"github.com/iliyamo/movie-booking/internal/model"
)

// ErrHallNotFound is returned when a hall lookup fails.
var ErrHallNotFound = errors.New("hall not found")

// HallRepo provides methods to create, list and lock halls.
type HallRepo struct {
	db *sql.DB // db is the underlying database connection
}

// NewHallRepo constructs a HallRepo with the given DB handle.
func NewHallRepo(db *sql.DB) *HallRepo {
	return &HallRepo{db: db}
}

// Create inserts a new hall.  A duplicate name yields ErrDuplicate.
// After insert the ID field of the hall will be set.
func (r *HallRepo) Create(ctx context.Context, h *model.Hall) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO halls (name, is_active, created_at) VALUES (?, ?, ?)`,
		h.Name, h.IsActive, h.CreatedAt)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)
	return nil
}

// LockTx retrieves a hall and locks its row until tx ends.  Showtime
// scheduling in a hall holds this lock so two overlapping showtimes
// cannot pass the conflict check concurrently.
func (r *HallRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Hall, error) {
	var h model.Hall
	err := tx.QueryRowContext(ctx,
		`SELECT id, name, is_active, created_at FROM halls WHERE id = ? FOR UPDATE`, id,
	).Scan(&h.ID, &h.Name, &h.IsActive, &h.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrHallNotFound
		}
		return nil, err
	}
	return &h, nil
}

// List returns every hall ordered by name.
func (r *HallRepo) List(ctx context.Context) ([]model.Hall, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, is_active, created_at FROM halls ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Hall, 0)
	for rows.Next() {
		var h model.Hall
		if err := rows.Scan(&h.ID, &h.Name, &h.IsActive, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
