package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagnosis/bistro-api/internal/domain"
)

type PaymentsRepo interface {
	Insert(ctx context.Context, p *domain.Payment) (domain.InsertResult, error)
	ListByEmail(ctx context.Context, email string) ([]domain.Payment, error)
}

type PaymentsRepoImpl struct{ pool *pgxpool.Pool }

func NewPaymentsRepo(pool *pgxpool.Pool) *PaymentsRepoImpl { return &PaymentsRepoImpl{pool: pool} }

func (r *PaymentsRepoImpl) Insert(ctx context.Context, p *domain.Payment) (domain.InsertResult, error) {
	const q = `
INSERT INTO payments (id, email, price, transaction_id, cart_ids, menu_item_ids, status, paid_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if _, err := r.pool.Exec(ctx, q,
		p.ID, p.Email, p.Price, p.TransactionID, p.CartIDs, p.MenuItemIDs, p.Status, p.Date,
	); err != nil {
		return domain.InsertResult{}, err
	}
	return domain.Inserted(p.ID), nil
}

func (r *PaymentsRepoImpl) ListByEmail(ctx context.Context, email string) ([]domain.Payment, error) {
	const q = `
SELECT id, email, price, transaction_id, cart_ids, menu_item_ids, status, paid_at
FROM payments WHERE email=$1 ORDER BY paid_at DESC`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Payment{}
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(&p.ID, &p.Email, &p.Price, &p.TransactionID, &p.CartIDs, &p.MenuItemIDs, &p.Status, &p.Date); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

var _ PaymentsRepo = (*PaymentsRepoImpl)(nil)
