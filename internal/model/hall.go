package model

import "time"

// Hall represents a screening room.  When scheduling is hall-scoped,
// showtimes in the same hall must not overlap.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – unique hall name.
//  IsActive  – whether new showtimes may be scheduled in the hall.
//  CreatedAt – creation timestamp.
type Hall struct {
	ID        uint64    `json:"id"`         // halls.id
	Name      string    `json:"name"`       // halls.name
	IsActive  bool      `json:"is_active"`  // halls.is_active
	CreatedAt time.Time `json:"created_at"` // halls.created_at
}
