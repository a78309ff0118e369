package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisLimiterBlocksOverLimit(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	limiter := NewRedisLimiter(client, "test")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := limiter.Allow(ctx, "ip:1.2.3.4", 3, time.Minute)
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !res.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
	}

	res, err := limiter.Allow(ctx, "ip:1.2.3.4", 3, time.Minute)
	if err != nil {
		t.Fatalf("allow over limit: %v", err)
	}
	if res.Allowed {
		t.Fatal("fourth request should be blocked")
	}
	if res.RetryAfter <= 0 {
		t.Fatalf("expected positive retry-after, got %v", res.RetryAfter)
	}
}

func TestRedisLimiterWindowReset(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	limiter := NewRedisLimiter(client, "test")
	ctx := context.Background()

	if res, err := limiter.Allow(ctx, "k", 1, time.Second); err != nil || !res.Allowed {
		t.Fatalf("first request: allowed=%v err=%v", res.Allowed, err)
	}
	if res, err := limiter.Allow(ctx, "k", 1, time.Second); err != nil || res.Allowed {
		t.Fatalf("second request should block: allowed=%v err=%v", res.Allowed, err)
	}

	srv.FastForward(2 * time.Second)

	if res, err := limiter.Allow(ctx, "k", 1, time.Second); err != nil || !res.Allowed {
		t.Fatalf("request after window should pass: allowed=%v err=%v", res.Allowed, err)
	}
}

func TestMemoryLimiterIndependentKeys(t *testing.T) {
	limiter := NewMemoryLimiter()
	ctx := context.Background()

	if res, _ := limiter.Allow(ctx, "a", 1, time.Minute); !res.Allowed {
		t.Fatal("first request on key a should pass")
	}
	if res, _ := limiter.Allow(ctx, "a", 1, time.Minute); res.Allowed {
		t.Fatal("second request on key a should block")
	}
	if res, _ := limiter.Allow(ctx, "b", 1, time.Minute); !res.Allowed {
		t.Fatal("key b must not share key a's counter")
	}
}
