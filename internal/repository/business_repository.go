package repository

import (
	"context"
	"database/sql"

	"github.com/vowsuite/vowsuite-api/internal/model"
)

type BusinessRepo struct{ DB *sql.DB }

func NewBusinessRepo(db *sql.DB) *BusinessRepo { return &BusinessRepo{DB: db} }

// CreateTx inserts a business inside the caller's transaction and returns
// its id. Registration creates the business and its ADMIN user in the same
// transaction so a partial write is never observable.
func (r *BusinessRepo) CreateTx(ctx context.Context, tx *sql.Tx, name, slug string) (uint64, error) {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO businesses (name, slug) VALUES (?,?)", name, slug)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches a business by id.
func (r *BusinessRepo) GetByID(ctx context.Context, id uint64) (model.Business, error) {
	var b model.Business
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,name,slug,created_at,updated_at FROM businesses WHERE id=? LIMIT 1",
		id).Scan(&b.ID, &b.Name, &b.Slug, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}
