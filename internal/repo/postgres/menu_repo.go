package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagnosis/bistro-api/internal/domain"
)

type MenuRepo interface {
	List(ctx context.Context) ([]domain.MenuItem, error)
	GetByID(ctx context.Context, id string) (*domain.MenuItem, error)
	Insert(ctx context.Context, item *domain.MenuItem) (domain.InsertResult, error)
	Update(ctx context.Context, id string, in domain.MenuItemInput) (domain.UpdateResult, error)
	DeleteByID(ctx context.Context, id string) (domain.DeleteResult, error)
}

type MenuRepoImpl struct{ pool *pgxpool.Pool }

func NewMenuRepo(pool *pgxpool.Pool) *MenuRepoImpl { return &MenuRepoImpl{pool: pool} }

const menuCols = `id, name, recipe, image, category, price`

func scanMenuItem(row pgx.Row) (*domain.MenuItem, error) {
	var m domain.MenuItem
	if err := row.Scan(&m.ID, &m.Name, &m.Recipe, &m.Image, &m.Category, &m.Price); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MenuRepoImpl) List(ctx context.Context) ([]domain.MenuItem, error) {
	const q = `SELECT ` + menuCols + ` FROM menu_items ORDER BY category, name`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.MenuItem{}
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (r *MenuRepoImpl) GetByID(ctx context.Context, id string) (*domain.MenuItem, error) {
	const q = `SELECT ` + menuCols + ` FROM menu_items WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	m, err := scanMenuItem(r.pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

func (r *MenuRepoImpl) Insert(ctx context.Context, item *domain.MenuItem) (domain.InsertResult, error) {
	const q = `INSERT INTO menu_items (` + menuCols + `) VALUES ($1,$2,$3,$4,$5,$6)`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if _, err := r.pool.Exec(ctx, q, item.ID, item.Name, item.Recipe, item.Image, item.Category, item.Price); err != nil {
		return domain.InsertResult{}, err
	}
	return domain.Inserted(item.ID), nil
}

// Update overwrites name, category, price, recipe and image. A missing id matches nothing.
func (r *MenuRepoImpl) Update(ctx context.Context, id string, in domain.MenuItemInput) (domain.UpdateResult, error) {
	const q = `
UPDATE menu_items SET name=$2, category=$3, price=$4, recipe=$5, image=$6
WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q, id, in.Name, in.Category, in.Price, in.Recipe, in.Image)
	if err != nil {
		return domain.UpdateResult{}, err
	}
	n := tag.RowsAffected()
	return domain.UpdateResult{Acknowledged: true, MatchedCount: n, ModifiedCount: n}, nil
}

func (r *MenuRepoImpl) DeleteByID(ctx context.Context, id string) (domain.DeleteResult, error) {
	const q = `DELETE FROM menu_items WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return domain.DeleteResult{}, err
	}
	return domain.DeleteResult{Acknowledged: true, DeletedCount: tag.RowsAffected()}, nil
}

var _ MenuRepo = (*MenuRepoImpl)(nil)
