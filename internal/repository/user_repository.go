package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/vowsuite/vowsuite-api/internal/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userCols = "id,email,password_hash,role,business_id,created_at,updated_at"

// CreateTx inserts a user inside the caller's transaction and returns its
// id. businessID is nil for CLIENT users.
func (r *UserRepo) CreateTx(ctx context.Context, tx *sql.Tx, email, passwordHash, role string, businessID *uint64) (uint64, error) {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role, business_id) VALUES (?,?,?,?)",
		email, passwordHash, role, businessID)
	if err != nil {
		// MySQL 1062 = duplicate key, the unique index on email
		if strings.Contains(err.Error(), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id))
}

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	var (
		u   model.User
		bid sql.NullInt64
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &bid, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	if bid.Valid {
		v := uint64(bid.Int64)
		u.BusinessID = &v
	}
	return u, nil
}
