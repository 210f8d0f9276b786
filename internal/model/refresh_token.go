package model

import "time"

// RefreshToken models an entry in the `refresh_tokens` table. The record id
// is a UUID that is also embedded as a claim inside the signed refresh
// token, letting the two be correlated on redemption. Only a SHA-256 hash
// of the signed token string is stored; the bearer credential cannot be
// reconstructed from the row.
//
// A record is single-use: the first successful refresh (or a logout) sets
// RevokedAt and no transition ever clears it. Rows are never deleted and
// serve as an audit trail.
type RefreshToken struct {
	ID        string     // refresh_tokens.id (UUID)
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash (SHA-256 hex)
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (null while active)
	CreatedAt time.Time  // refresh_tokens.created_at
}
