package model

import "time"

// Roles accepted by the platform. The set is closed: values outside it are
// rejected at the transport boundary rather than coerced.
const (
	RoleAdmin  = "ADMIN"
	RoleClient = "CLIENT"
)

// ValidRole reports whether s is a member of the closed role set.
func ValidRole(s string) bool {
	return s == RoleAdmin || s == RoleClient
}

// User represents an application user record as stored in the `users`
// table. Emails are persisted lowercase and are unique. ADMIN users carry
// a BusinessID referencing the tenant created alongside them at
// registration; CLIENT users have none.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email (lowercase, unique)
	PasswordHash string    // users.password_hash (bcrypt)
	Role         string    // users.role (ADMIN | CLIENT)
	BusinessID   *uint64   // users.business_id (nullable)
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
