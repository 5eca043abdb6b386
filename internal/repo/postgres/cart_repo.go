package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagnosis/bistro-api/internal/domain"
)

type CartsRepo interface {
	Insert(ctx context.Context, e *domain.CartEntry) (domain.InsertResult, error)
	ListByEmail(ctx context.Context, email string) ([]domain.CartEntry, error)
	DeleteByID(ctx context.Context, id string) (domain.DeleteResult, error)
	DeleteByIDs(ctx context.Context, ids []string) (domain.DeleteResult, error)
}

type CartsRepoImpl struct{ pool *pgxpool.Pool }

func NewCartsRepo(pool *pgxpool.Pool) *CartsRepoImpl { return &CartsRepoImpl{pool: pool} }

const cartCols = `id, email, menu_id, name, image, price, created_at`

func (r *CartsRepoImpl) Insert(ctx context.Context, e *domain.CartEntry) (domain.InsertResult, error) {
	const q = `
INSERT INTO cart_entries (id, email, menu_id, name, image, price)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING created_at`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := r.pool.QueryRow(ctx, q, e.ID, e.Email, e.MenuID, e.Name, e.Image, e.Price).Scan(&e.CreatedAt); err != nil {
		return domain.InsertResult{}, err
	}
	return domain.Inserted(e.ID), nil
}

func (r *CartsRepoImpl) ListByEmail(ctx context.Context, email string) ([]domain.CartEntry, error) {
	const q = `SELECT ` + cartCols + ` FROM cart_entries WHERE email=$1 ORDER BY created_at`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.CartEntry{}
	for rows.Next() {
		var e domain.CartEntry
		if err := rows.Scan(&e.ID, &e.Email, &e.MenuID, &e.Name, &e.Image, &e.Price, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *CartsRepoImpl) DeleteByID(ctx context.Context, id string) (domain.DeleteResult, error) {
	const q = `DELETE FROM cart_entries WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return domain.DeleteResult{}, err
	}
	return domain.DeleteResult{Acknowledged: true, DeletedCount: tag.RowsAffected()}, nil
}

// DeleteByIDs removes every entry whose id is in ids with one statement.
// Ids that no longer exist are skipped, so repeating the call is harmless.
func (r *CartsRepoImpl) DeleteByIDs(ctx context.Context, ids []string) (domain.DeleteResult, error) {
	if len(ids) == 0 {
		return domain.DeleteResult{Acknowledged: true}, nil
	}
	const q = `DELETE FROM cart_entries WHERE id = ANY($1)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q, ids)
	if err != nil {
		return domain.DeleteResult{}, err
	}
	return domain.DeleteResult{Acknowledged: true, DeletedCount: tag.RowsAffected()}, nil
}

var _ CartsRepo = (*CartsRepoImpl)(nil)
