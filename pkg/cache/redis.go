package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"production/pkg/logger"
)

// RedisCache - Redis реализация кэша.
// Все команды идут через автоматический выключатель: при массовых отказах
// Redis кэш временно отвечает ошибкой сразу, не дожидаясь таймаутов.
type RedisCache struct {
	client     redis.UniversalClient
	cb         *gobreaker.CircuitBreaker
	defaultTTL time.Duration
}

// NewRedisCache подключается к Redis и проверяет соединение
func NewRedisCache(opts *Options) (*RedisCache, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	poolSize := opts.RedisPoolSize
	if poolSize <= 0 {
		poolSize = 10
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.RedisAddr,
		Password: opts.RedisPassword,
		DB:       opts.RedisDB,
		PoolSize: poolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return newRedisCache(client, opts), nil
}

// NewRedisCacheFromClient оборачивает готовый клиент (кластер, sentinel, тесты)
func NewRedisCacheFromClient(client redis.UniversalClient, opts *Options) *RedisCache {
	if opts == nil {
		opts = DefaultOptions()
	}
	return newRedisCache(client, opts)
}

func newRedisCache(client redis.UniversalClient, opts *Options) *RedisCache {
	timeout := opts.BreakerTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "redis-analysis-cache",
		Timeout: timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
		// Промах - нормальный ответ Redis, а не отказ
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrKeyNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Log.Warn("Cache circuit breaker state changed",
				"name", name, "from", from.String(), "to", to.String())
		},
	})

	return &RedisCache{
		client:     client,
		cb:         cb,
		defaultTTL: opts.DefaultTTL,
	}
}

// BreakerState возвращает состояние выключателя (closed, half-open, open)
func (c *RedisCache) BreakerState() string {
	return c.cb.State().String()
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := c.cb.Execute(func() (interface{}, error) {
		val, err := c.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, ErrKeyNotFound
		}
		return val, err
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, c.client.Set(ctx, key, value, ttl).Err()
	})
	return err
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	_, err := c.cb.Execute(func() (interface{}, error) {
		return nil, c.client.Del(ctx, key).Err()
	})
	return err
}

// DeleteByPattern обходит ключи через SCAN, чтобы не блокировать Redis командой KEYS
func (c *RedisCache) DeleteByPattern(ctx context.Context, pattern string) (int64, error) {
	v, err := c.cb.Execute(func() (interface{}, error) {
		var deleted int64
		iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
		batch := make([]string, 0, 100)

		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			n, err := c.client.Del(ctx, batch...).Result()
			deleted += n
			batch = batch[:0]
			return err
		}

		for iter.Next(ctx) {
			batch = append(batch, iter.Val())
			if len(batch) == cap(batch) {
				if err := flush(); err != nil {
					return deleted, err
				}
			}
		}
		if err := iter.Err(); err != nil {
			return deleted, err
		}
		return deleted, flush()
	})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

func (c *RedisCache) Stats(ctx context.Context) (*Stats, error) {
	info, err := c.client.Info(ctx, "stats", "memory").Result()
	if err != nil {
		return nil, err
	}

	stats := &Stats{Backend: BackendRedis}
	for _, line := range strings.Split(info, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "keyspace_hits:"):
			parseStatLine(line, "keyspace_hits:%d", &stats.Hits)
		case strings.HasPrefix(line, "keyspace_misses:"):
			parseStatLine(line, "keyspace_misses:%d", &stats.Misses)
		case strings.HasPrefix(line, "used_memory:"):
			parseStatLine(line, "used_memory:%d", &stats.MemoryBytes)
		}
	}

	if dbSize, err := c.client.DBSize(ctx).Result(); err == nil {
		stats.TotalKeys = dbSize
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats, nil
}

// parseStatLine - статистика не критична, ошибка разбора оставляет ноль
func parseStatLine(line, format string, target *int64) {
	_, _ = fmt.Sscanf(line, format, target)
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
