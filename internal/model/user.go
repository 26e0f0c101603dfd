package model

import "time"

// User represents an application user record as stored in the
// `users` table.  Administrators manage the catalog; every other
// user may only book and manage their own bookings.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Username     – unique login name.
//  Email        – unique email address.
//  FullName     – optional display name.
//  PasswordHash – bcrypt hashed password.
//  IsAdmin      – whether the user may manage the catalog.
//  IsActive     – whether the account is active.
//  CreatedAt    – timestamp of creation.
type User struct {
	ID           uint64    `json:"id"`         // users.id
	Username     string    `json:"username"`   // users.username
	Email        string    `json:"email"`      // users.email
	FullName     string    `json:"full_name"`  // users.full_name
	PasswordHash string    `json:"-"`          // users.password_hash
	IsAdmin      bool      `json:"is_admin"`   // users.is_admin
	IsActive     bool      `json:"is_active"`  // users.is_active
	CreatedAt    time.Time `json:"created_at"` // users.created_at
}

// Role returns the role name carried in access tokens and checked by
// role middleware.
func (u User) Role() string {
	if u.IsAdmin {
		return RoleAdmin
	}
	return RoleCustomer
}

// Role names.
const (
	RoleAdmin    = "ADMIN"
	RoleCustomer = "CUSTOMER"
)
