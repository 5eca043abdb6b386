package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diagnosis/bistro-api/internal/domain"
)

type UsersRepo interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	InsertIfAbsent(ctx context.Context, u *domain.User) (bool, error)
	PromoteToAdmin(ctx context.Context, id string) (domain.UpdateResult, error)
	DeleteByID(ctx context.Context, id string) (domain.DeleteResult, error)
	List(ctx context.Context) ([]domain.User, error)
}

type UsersRepoImpl struct{ pool *pgxpool.Pool }

func NewUsersRepo(pool *pgxpool.Pool) *UsersRepoImpl { return &UsersRepoImpl{pool: pool} }

const userCols = `id, name, email, photo_url, role, created_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PhotoURL, &u.Role, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UsersRepoImpl) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE email=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	u, err := scanUser(r.pool.QueryRow(ctx, q, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// InsertIfAbsent relies on the unique email index, so two concurrent signups
// for one address still produce a single row.
func (r *UsersRepoImpl) InsertIfAbsent(ctx context.Context, u *domain.User) (bool, error) {
	const q = `
INSERT INTO users (id, name, email, photo_url, role)
VALUES ($1,$2,$3,$4,'')
ON CONFLICT (email) DO NOTHING
RETURNING created_at`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	err := r.pool.QueryRow(ctx, q, u.ID, u.Name, u.Email, u.PhotoURL).Scan(&u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *UsersRepoImpl) PromoteToAdmin(ctx context.Context, id string) (domain.UpdateResult, error) {
	const matchQ = `SELECT role FROM users WHERE id=$1`
	const q = `UPDATE users SET role='admin' WHERE id=$1 AND role <> 'admin'`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var role string
	err := r.pool.QueryRow(ctx, matchQ, id).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.UpdateResult{Acknowledged: true}, nil
	}
	if err != nil {
		return domain.UpdateResult{}, err
	}

	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return domain.UpdateResult{}, err
	}
	return domain.UpdateResult{Acknowledged: true, MatchedCount: 1, ModifiedCount: tag.RowsAffected()}, nil
}

func (r *UsersRepoImpl) DeleteByID(ctx context.Context, id string) (domain.DeleteResult, error) {
	const q = `DELETE FROM users WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return domain.DeleteResult{}, err
	}
	return domain.DeleteResult{Acknowledged: true, DeletedCount: tag.RowsAffected()}, nil
}

func (r *UsersRepoImpl) List(ctx context.Context) ([]domain.User, error) {
	const q = `SELECT ` + userCols + ` FROM users ORDER BY created_at`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

var _ UsersRepo = (*UsersRepoImpl)(nil)
