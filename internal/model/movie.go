package model

import "time"

// Movie represents a film in the catalog.  Titles are unique among
// active movies, compared case-insensitively.  Movies are never
// hard-deleted; deactivation clears IsActive.
//
// Fields:
//  ID          – primary key identifier.
//  Title       – display title.
//  Description – optional synopsis.
//  DurationMin – running time in minutes (always positive).
//  Genre       – free-form genre label.
//  IsActive    – soft-delete flag.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Movie struct {
	ID          uint64    `json:"id"`                    // movies.id
	Title       string    `json:"title"`                 // movies.title
	Description *string   `json:"description,omitempty"` // movies.description (nullable)
	DurationMin int       `json:"duration"`              // movies.duration_min
	Genre       string    `json:"genre"`                 // movies.genre
	IsActive    bool      `json:"is_active"`             // movies.is_active
	CreatedAt   time.Time `json:"created_at"`            // movies.created_at
	UpdatedAt   time.Time `json:"updated_at"`            // movies.updated_at
}

// Duration returns the running time as a time.Duration.
func (m Movie) Duration() time.Duration {
	return time.Duration(m.DurationMin) * time.Minute
}
