package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// IdempotencyRepo holds key reservations and cached response bodies for replayed POSTs.
type IdempotencyRepo struct {
	client goredis.Cmdable
}

func NewIdempotencyRepo(client goredis.Cmdable) *IdempotencyRepo {
	return &IdempotencyRepo{client: client}
}

// Get returns "" when the key is unknown or expired.
func (r *IdempotencyRepo) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", nil
	}
	return v, err
}

// Reserve claims key for the first caller; later callers get false.
func (r *IdempotencyRepo) Reserve(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return r.client.SetNX(ctx, key, value, ttl).Result()
}

func (r *IdempotencyRepo) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *IdempotencyRepo) Release(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return r.client.Del(ctx, key).Err()
}

// Connect parses a redis:// URL and verifies the server answers.
func Connect(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
