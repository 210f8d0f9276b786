package model

import "time"

// Business is the tenant an ADMIN user and their planning data belong to.
// The slug is derived from the name and salted with a timestamp so it is
// globally unique even when two businesses share a name.
type Business struct {
	ID        uint64    // businesses.id
	Name      string    // businesses.name
	Slug      string    // businesses.slug (unique)
	CreatedAt time.Time // businesses.created_at
	UpdatedAt time.Time // businesses.updated_at
}
