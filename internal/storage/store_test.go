package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type kv interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
}

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisStore(rdb, ttl), mr
}

func TestStores(t *testing.T) {
	rs, _ := newRedisStore(t, 0)
	stores := map[string]kv{
		"memory": NewMemoryStore(),
		"redis":  rs,
	}

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
			}

			if err := s.Set(ctx, "a", []byte("one")); err != nil {
				t.Fatalf("Set: %v", err)
			}
			if err := s.Set(ctx, "b", []byte("two")); err != nil {
				t.Fatalf("Set: %v", err)
			}

			got, err := s.Get(ctx, "a")
			if err != nil || string(got) != "one" {
				t.Fatalf("Get(a) = %q, %v", got, err)
			}

			if err := s.Delete(ctx, "a", "b"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := s.Get(ctx, "b"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get(b) after delete error = %v", err)
			}
			if err := s.Delete(ctx); err != nil {
				t.Fatalf("Delete with no keys: %v", err)
			}
		})
	}
}

func TestRedisStoreTTL(t *testing.T) {
	s, mr := newRedisStore(t, time.Hour)
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if ttl := mr.TTL("k"); ttl != time.Hour {
		t.Fatalf("TTL = %v, want 1h", ttl)
	}

	mr.FastForward(2 * time.Hour)
	if _, err := s.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after expiry error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	buf := []byte("abc")
	_ = s.Set(ctx, "k", buf)
	buf[0] = 'z'

	got, _ := s.Get(ctx, "k")
	if string(got) != "abc" {
		t.Fatalf("stored value aliased caller buffer: %q", got)
	}
}
