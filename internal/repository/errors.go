// Package repository defines the MySQL data access for movies,
// showtimes, bookings, halls and users.  Lookups translate
// sql.ErrNoRows into a per-table not-found sentinel; the sentinels
// below are shared across repositories so higher layers can tell
// the failure scenarios apart.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrDuplicate is returned when an insert or update violates a unique
// key (MySQL error 1062).  Services translate it into a conflict.
var ErrDuplicate = errors.New("duplicate entry")

// ErrVersionConflict is returned when a compare-and-swap update found
// the row at a different version than the caller read.  The caller
// should abort its transaction.
var ErrVersionConflict = errors.New("row version changed")

const mysqlDuplicateEntry = 1062

// translate maps driver errors onto the sentinels above.
func translate(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		return ErrDuplicate
	}
	return err
}
