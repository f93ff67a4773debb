package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func newRedisTestLimiter(t *testing.T, cfg *Config) *RedisLimiter {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set, skipping Redis tests")
	}

	l, err := NewRedisLimiter(cfg, &redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_TEST_PASSWORD"),
	})
	if err != nil {
		t.Fatalf("NewRedisLimiter() error = %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestRedisLimiter_WeightedCost(t *testing.T) {
	l := newRedisTestLimiter(t, &Config{Requests: 10, Window: time.Minute})
	ctx := context.Background()
	key := "test-weighted"

	_ = l.Reset(ctx, key)
	t.Cleanup(func() { _ = l.Reset(ctx, key) })

	if allowed, err := l.AllowN(ctx, key, 7); err != nil || !allowed {
		t.Fatalf("AllowN(7) = %v, %v; want allowed", allowed, err)
	}
	if allowed, _ := l.AllowN(ctx, key, 4); allowed {
		t.Error("cost 4 should not fit into remaining 3")
	}

	info, err := l.GetInfo(ctx, key)
	if err != nil {
		t.Fatalf("GetInfo() error = %v", err)
	}
	if info.Limit != 10 || info.Remaining != 3 {
		t.Errorf("GetInfo() = %+v, want limit 10 remaining 3", info)
	}
}

func TestNewRedisLimiter_Unreachable(t *testing.T) {
	_, err := NewRedisLimiter(DefaultConfig(), &redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("expected ping error for unreachable redis")
	}
}
