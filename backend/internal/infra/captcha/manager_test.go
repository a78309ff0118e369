package captcha

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestManager(t *testing.T, opts Options) (*Manager, *redis.Client) {
	t.Helper()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	return NewManager(client, nil, opts), client
}

func TestGenerateAndVerifyRoundTrip(t *testing.T) {
	m, client := newTestManager(t, Options{Prefix: "test-captcha", TTL: time.Minute})
	ctx := context.Background()

	id, b64, _, err := m.Generate(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if id == "" || !strings.HasPrefix(b64, "data:image/") {
		t.Fatalf("unexpected captcha output: id=%q b64 prefix=%q", id, b64[:min(len(b64), 20)])
	}

	answer, err := client.Get(ctx, "test-captcha:"+id).Result()
	if err != nil {
		t.Fatalf("read stored answer: %v", err)
	}

	if err := m.Verify(ctx, id, answer); err != nil {
		t.Fatalf("verify with correct answer: %v", err)
	}

	// 验证成功后答案即删除，二次校验按过期处理
	if err := m.Verify(ctx, id, answer); !errors.Is(err, ErrCaptchaNotFound) {
		t.Fatalf("expected ErrCaptchaNotFound on reuse, got %v", err)
	}
}

func TestVerifyWrongAnswerConsumesCaptcha(t *testing.T) {
	m, client := newTestManager(t, Options{TTL: time.Minute})
	ctx := context.Background()

	id, _, _, err := m.Generate(ctx, "10.0.0.2")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if err := m.Verify(ctx, id, "definitely-wrong"); !errors.Is(err, ErrCaptchaMismatch) {
		t.Fatalf("expected ErrCaptchaMismatch, got %v", err)
	}

	// 失败同样消耗验证码，防止暴力枚举
	if _, err := client.Get(ctx, "captcha:"+id).Result(); !errors.Is(err, redis.Nil) {
		t.Fatalf("captcha should be consumed after failed verify, got %v", err)
	}
}

func TestGenerateRateLimitPerIP(t *testing.T) {
	m, _ := newTestManager(t, Options{TTL: time.Minute, RateLimitPerMin: 2, RateLimitWindow: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, _, _, err := m.Generate(ctx, "10.0.0.3"); err != nil {
			t.Fatalf("generate %d: %v", i, err)
		}
	}

	if _, _, _, err := m.Generate(ctx, "10.0.0.3"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}

	// 其他 IP 不受影响
	if _, _, _, err := m.Generate(ctx, "10.0.0.4"); err != nil {
		t.Fatalf("other ip should not be limited: %v", err)
	}
}
