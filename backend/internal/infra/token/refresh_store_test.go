package token

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newMiniredisClient(t *testing.T) *redis.Client {
	t.Helper()

	srv := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: srv.Addr()})
}

func TestRedisRefreshTokenStoreRoundTrip(t *testing.T) {
	client := newMiniredisClient(t)
	store := NewRedisRefreshTokenStore(client, "")
	ctx := context.Background()

	if err := store.Save(ctx, 42, "jti-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("save: %v", err)
	}

	ok, err := store.Exists(ctx, 42, "jti-1")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !ok {
		t.Fatal("expected token to exist after save")
	}

	// 不同用户拿不到别人的 jti
	ok, err = store.Exists(ctx, 43, "jti-1")
	if err != nil {
		t.Fatalf("exists other user: %v", err)
	}
	if ok {
		t.Fatal("token must be scoped to its user")
	}

	if err := store.Delete(ctx, 42, "jti-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	ok, err = store.Exists(ctx, 42, "jti-1")
	if err != nil {
		t.Fatalf("exists after delete: %v", err)
	}
	if ok {
		t.Fatal("token must be gone after delete")
	}
}

func TestRedisRefreshTokenStoreExpiredTokenGetsMinimalTTL(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	store := NewRedisRefreshTokenStore(client, "")
	ctx := context.Background()

	if err := store.Save(ctx, 7, "jti-old", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("save: %v", err)
	}

	srv.FastForward(2 * time.Second)

	ok, err := store.Exists(ctx, 7, "jti-old")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if ok {
		t.Fatal("expired token must not survive")
	}
}

func TestMemoryRefreshTokenStoreExpiry(t *testing.T) {
	store := NewMemoryRefreshTokenStore()
	ctx := context.Background()

	if err := store.Save(ctx, 1, "live", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("save live: %v", err)
	}
	if err := store.Save(ctx, 1, "dead", time.Now().Add(-time.Second)); err != nil {
		t.Fatalf("save dead: %v", err)
	}

	if ok, _ := store.Exists(ctx, 1, "live"); !ok {
		t.Fatal("live token should exist")
	}
	if ok, _ := store.Exists(ctx, 1, "dead"); ok {
		t.Fatal("expired token should be dropped lazily")
	}
}
