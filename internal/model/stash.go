package model

import "time"

// Stash is the item economy of a single course.
type Stash struct {
	ID              int64     `json:"id"`
	CourseID        int64     `json:"course_id"`
	Name            string    `json:"name"`
	Enabled         bool      `json:"enabled"`
	SwappingEnabled bool      `json:"swapping_enabled"`
	CreatedAt       time.Time `json:"created_at"`
}

// Scope identifies the course and stash an operation runs against.
type Scope struct {
	CourseID int64
	StashID  int64
}
