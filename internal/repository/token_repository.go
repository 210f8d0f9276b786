package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/vowsuite/vowsuite-api/internal/model"
)

// TokenRepo persists refresh-token records. Rows are revoked, never
// deleted; the table doubles as an audit trail of issued sessions.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// Create inserts a refresh-token record.
func (r *TokenRepo) Create(ctx context.Context, id string, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at) VALUES (?,?,?,?)",
		id, userID, tokenHash, exp)
	return err
}

// GetByID fetches a refresh-token record by id.
func (r *TokenRepo) GetByID(ctx context.Context, id string) (model.RefreshToken, error) {
	var (
		t       model.RefreshToken
		revoked sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,user_id,token_hash,expires_at,revoked_at,created_at FROM refresh_tokens WHERE id=? LIMIT 1",
		id).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &revoked, &t.CreatedAt)
	if err != nil {
		return model.RefreshToken{}, err
	}
	if revoked.Valid {
		t.RevokedAt = &revoked.Time
	}
	return t, nil
}

// Revoke marks a record as revoked and reports whether this call performed
// the transition. The revoked_at IS NULL guard makes the update the
// serialization point for concurrent refreshes: exactly one caller sees
// true, every other sees false.
func (r *TokenRepo) Revoke(ctx context.Context, id string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=NOW() WHERE id=? AND revoked_at IS NULL", id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
