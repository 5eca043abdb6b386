package redis

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// fakeCmdable answers Get/Set/SetNX/Del from a map; other methods panic if reached.
type fakeCmdable struct {
	goredis.Cmdable
	data map[string]string
	ttls map[string]time.Duration
}

func (f *fakeCmdable) Get(ctx context.Context, key string) *goredis.StringCmd {
	cmd := goredis.NewStringCmd(ctx, "get", key)
	if v, ok := f.data[key]; ok {
		cmd.SetVal(v)
	} else {
		cmd.SetErr(goredis.Nil)
	}
	return cmd
}

func (f *fakeCmdable) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) *goredis.BoolCmd {
	cmd := goredis.NewBoolCmd(ctx, "setnx", key, value)
	if _, ok := f.data[key]; ok {
		cmd.SetVal(false)
		return cmd
	}
	f.data[key] = value.(string)
	f.ttls[key] = ttl
	cmd.SetVal(true)
	return cmd
}

func (f *fakeCmdable) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) *goredis.StatusCmd {
	cmd := goredis.NewStatusCmd(ctx, "set", key, value)
	f.data[key] = value.(string)
	f.ttls[key] = ttl
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeCmdable) Del(ctx context.Context, keys ...string) *goredis.IntCmd {
	cmd := goredis.NewIntCmd(ctx, "del")
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func TestIdempotencyRepo_GetMissingIsEmpty(t *testing.T) {
	repo := NewIdempotencyRepo(&fakeCmdable{data: map[string]string{}, ttls: map[string]time.Duration{}})

	v, err := repo.Get(context.Background(), "idempotency:x")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if v != "" {
		t.Errorf("Get() = %q, want empty", v)
	}
}

func TestIdempotencyRepo_ReserveFirstCallerWins(t *testing.T) {
	fake := &fakeCmdable{data: map[string]string{}, ttls: map[string]time.Duration{}}
	repo := NewIdempotencyRepo(fake)
	ctx := context.Background()

	ok, err := repo.Reserve(ctx, "k", "pending:a", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first Reserve() = %v, %v; want true", ok, err)
	}
	ok, err = repo.Reserve(ctx, "k", "pending:b", time.Minute)
	if err != nil || ok {
		t.Fatalf("second Reserve() = %v, %v; want false", ok, err)
	}

	if v, _ := repo.Get(ctx, "k"); v != "pending:a" {
		t.Errorf("Get() = %q, want pending:a", v)
	}
}

func TestIdempotencyRepo_SetOverwritesReservation(t *testing.T) {
	fake := &fakeCmdable{data: map[string]string{}, ttls: map[string]time.Duration{}}
	repo := NewIdempotencyRepo(fake)
	ctx := context.Background()

	_, _ = repo.Reserve(ctx, "k", "pending:a", time.Minute)
	if err := repo.Set(ctx, "k", "done:a:{}", time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if v, _ := repo.Get(ctx, "k"); v != "done:a:{}" {
		t.Errorf("Get() = %q", v)
	}
	if fake.ttls["k"] != time.Hour {
		t.Errorf("ttl = %v, want 1h", fake.ttls["k"])
	}

	if err := repo.Release(ctx, "k"); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if v, _ := repo.Get(ctx, "k"); v != "" {
		t.Errorf("Get() after Release = %q, want empty", v)
	}
}
