package service

import (
	"context"
	"database/sql"
	"time"
)

// Clock supplies the current time.  All temporal rules compare against
// a single Now taken at the start of an operation.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Page bounds a listing.
type Page struct {
	Skip  int
	Limit int
}

const (
	DefaultLimit = 100
	MaxLimit     = 100
)

// Normalize applies the default limit and rejects out-of-range values.
func (p Page) Normalize() (Page, error) {
	if p.Skip < 0 {
		return p, invalid("skip must not be negative")
	}
	if p.Limit == 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit < 1 || p.Limit > MaxLimit {
		return p, invalid("limit must be between 1 and %d", MaxLimit)
	}
	return p, nil
}

// Identity is the authenticated caller as resolved from a token.
type Identity struct {
	UserID   uint64
	IsAdmin  bool
	IsActive bool
}

// inTx runs fn inside a transaction and commits when it returns nil.
func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
