package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/movie-booking/internal/model"
)

// ErrUserNotFound is returned when a user lookup fails.
var ErrUserNotFound = errors.New("user not found")

const userColumns = `id, username, email, full_name, password_hash, is_admin, is_active, created_at`

type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) get(ctx context.Context, where string, arg any) (*model.User, error) {
	var u model.User
	err := r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+where+" LIMIT 1", arg,
	).Scan(&u.ID, &u.Username, &u.Email, &u.FullName, &u.PasswordHash, &u.IsAdmin, &u.IsActive, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Create inserts u and assigns its ID.  Username and email are
// normalized; a clash on either yields ErrDuplicate.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Username = strings.TrimSpace(u.Username)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (username, email, full_name, password_hash, is_admin, is_active, created_at) VALUES (?,?,?,?,?,?,?)",
		u.Username, u.Email, u.FullName, u.PasswordHash, u.IsAdmin, u.IsActive, u.CreatedAt)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

// GetByUsername fetches a user by username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.get(ctx, "username=?", strings.TrimSpace(username))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return r.get(ctx, "id=?", id)
}

// Promote grants admin rights and reactivates the account.
func (r *UserRepo) Promote(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "UPDATE users SET is_admin=1, is_active=1 WHERE id=?", id)
	if err != nil {
		return err
	}
	return expectOne(res, ErrUserNotFound)
}
