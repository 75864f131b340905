package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/iho/factoryledger/internal/usecase"
)

// newMiniredisClient returns a client bound to an in-process server that is torn
// down with the test.
func newMiniredisClient(t *testing.T) (*goredis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

func TestSnapshotCacheVersionStartsAtZero(t *testing.T) {
	client, mr := newMiniredisClient(t)
	defer mr.Close()

	cache := NewSnapshotCache(client, time.Minute)
	ctx := context.Background()

	v, err := cache.Version(ctx)
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if v != 0 {
		t.Fatalf("expected version 0, got %d", v)
	}

	bumped, err := cache.Bump(ctx)
	if err != nil {
		t.Fatalf("bump failed: %v", err)
	}
	if bumped != 1 {
		t.Fatalf("expected version 1 after bump, got %d", bumped)
	}

	v, err = cache.Version(ctx)
	if err != nil || v != 1 {
		t.Fatalf("expected version 1, got v=%d err=%v", v, err)
	}
}

func TestSnapshotCacheStoreAndLoad(t *testing.T) {
	client, mr := newMiniredisClient(t)
	defer mr.Close()

	cache := NewSnapshotCache(client, time.Minute)
	ctx := context.Background()

	if err := cache.Store(ctx, 3, []byte(`{"Positions":[]}`)); err != nil {
		t.Fatalf("store failed: %v", err)
	}

	data, err := cache.Load(ctx, 3)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if string(data) != `{"Positions":[]}` {
		t.Fatalf("unexpected snapshot %s", data)
	}

	if ttl := mr.TTL("stock:snapshot:3"); ttl != time.Minute {
		t.Fatalf("expected 1m TTL, got %s", ttl)
	}
}

func TestSnapshotCacheMiss(t *testing.T) {
	client, mr := newMiniredisClient(t)
	defer mr.Close()

	cache := NewSnapshotCache(client, 0)
	ctx := context.Background()

	if err := cache.Store(ctx, 1, []byte("old")); err != nil {
		t.Fatalf("store failed: %v", err)
	}

	if _, err := cache.Load(ctx, 2); !errors.Is(err, usecase.ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}

	mr.FastForward(usecase.SnapshotTTL + time.Second)
	if _, err := cache.Load(ctx, 1); !errors.Is(err, usecase.ErrCacheMiss) {
		t.Fatalf("expected expired snapshot to miss, got %v", err)
	}
}

func TestSnapshotCacheUnavailable(t *testing.T) {
	client, mr := newMiniredisClient(t)

	cache := NewSnapshotCache(client, time.Minute)
	mr.Close()

	if _, err := cache.Version(context.Background()); err == nil {
		t.Fatalf("expected error from closed server")
	}
}
