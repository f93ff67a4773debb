package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"production/pkg/config"
)

const redisKeyPrefix = "ratelimit:"

// slidingWindowScript атомарно проверяет и списывает стоимость.
// Каждый элемент ZSET - один запрос, стоимость хранится в члене.
var slidingWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local limit = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])
	local cost = tonumber(ARGV[4])
	local member = ARGV[5]

	redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)

	local used = 0
	for _, m in ipairs(redis.call('ZRANGE', key, 0, -1)) do
		used = used + tonumber(string.match(m, '^(%d+):'))
	end

	if used + cost <= limit then
		redis.call('ZADD', key, now, cost .. ':' .. member)
		redis.call('PEXPIRE', key, window + 1000)
		return {1, limit - used - cost}
	end

	return {0, limit - used}
`)

// RedisLimiter распределённый sliding window на Redis
type RedisLimiter struct {
	client *redis.Client
	config *Config
	seq    func() string
}

// RedisOptions строит параметры подключения из настроек кэша
func RedisOptions(cfg *config.CacheConfig) *redis.Options {
	return &redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// NewRedisLimiter создаёт Redis лимитер и проверяет соединение
func NewRedisLimiter(cfg *Config, opts *redis.Options) (*RedisLimiter, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisLimiter{
		client: client,
		config: cfg,
		seq: func() string {
			return strconv.FormatInt(time.Now().UnixNano(), 36)
		},
	}, nil
}

func (l *RedisLimiter) AllowN(ctx context.Context, key string, n int) (bool, error) {
	now := time.Now().UnixMilli()
	window := l.config.Window.Milliseconds()

	result, err := slidingWindowScript.Run(ctx, l.client, []string{redisKeyPrefix + key},
		l.config.Requests, window, now, n, l.seq()).Slice()
	if err != nil {
		return false, fmt.Errorf("redis script error: %w", err)
	}

	if len(result) == 0 {
		return false, fmt.Errorf("unexpected empty result from redis script")
	}

	allowed, ok := result[0].(int64)
	if !ok {
		return false, fmt.Errorf("unexpected result type from redis script")
	}

	return allowed == 1, nil
}

func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, redisKeyPrefix+key).Err()
}

func (l *RedisLimiter) GetInfo(ctx context.Context, key string) (*LimitInfo, error) {
	now := time.Now()
	windowStart := now.Add(-l.config.Window).UnixMilli()

	members, err := l.client.ZRangeByScoreWithScores(ctx, redisKeyPrefix+key, &redis.ZRangeBy{
		Min: strconv.FormatInt(windowStart, 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, err
	}

	used := 0
	for _, m := range members {
		used += memberCost(m.Member)
	}

	info := &LimitInfo{
		Limit:     l.config.Requests,
		Remaining: max(l.config.Requests-used, 0),
		ResetAt:   now.Add(l.config.Window),
	}
	if len(members) > 0 {
		info.ResetAt = time.UnixMilli(int64(members[0].Score)).Add(l.config.Window)
		if info.Remaining == 0 {
			info.RetryAfter = info.ResetAt.Sub(now)
		}
	}
	return info, nil
}

func (l *RedisLimiter) Close() error {
	return l.client.Close()
}

// memberCost извлекает стоимость из члена вида "<cost>:<seq>"
func memberCost(member any) int {
	s, ok := member.(string)
	if !ok {
		return 1
	}
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			if n, err := strconv.Atoi(s[:i]); err == nil {
				return n
			}
			break
		}
	}
	return 1
}
