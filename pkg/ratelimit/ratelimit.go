package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"production/pkg/config"
)

// Стандартные ошибки
var (
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrLimiterClosed     = errors.New("limiter is closed")
)

// Стратегии
const (
	StrategySlidingWindow = "sliding_window"
	StrategyTokenBucket   = "token_bucket"
)

// Limiter ограничивает расход единиц стоимости по ключу клиента
type Limiter interface {
	// AllowN списывает n единиц, если они есть в окне
	AllowN(ctx context.Context, key string, n int) (bool, error)

	// Reset сбрасывает лимит для ключа
	Reset(ctx context.Context, key string) error

	// GetInfo возвращает информацию о текущем состоянии
	GetInfo(ctx context.Context, key string) (*LimitInfo, error)

	Close() error
}

// LimitInfo информация о состоянии лимита
type LimitInfo struct {
	Limit      int           `json:"limit"`
	Remaining  int           `json:"remaining"`
	ResetAt    time.Time     `json:"reset_at"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

// Config конфигурация лимитера
type Config struct {
	// Requests - единиц стоимости за окно
	Requests int
	Window   time.Duration
	Strategy string
	// BurstSize - запас сверх Requests для token bucket
	BurstSize       int
	CleanupInterval time.Duration
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		Requests:        600,
		Window:          time.Minute,
		Strategy:        StrategySlidingWindow,
		BurstSize:       50,
		CleanupInterval: 5 * time.Minute,
	}
}

// FromConfig переносит настройки из конфигурации сервиса
func FromConfig(cfg *config.RateLimitConfig) *Config {
	c := DefaultConfig()
	if cfg.Requests > 0 {
		c.Requests = cfg.Requests
	}
	if cfg.Window > 0 {
		c.Window = cfg.Window
	}
	if cfg.Strategy != "" {
		c.Strategy = cfg.Strategy
	}
	if cfg.BurstSize >= 0 {
		c.BurstSize = cfg.BurstSize
	}
	if cfg.CleanupInterval > 0 {
		c.CleanupInterval = cfg.CleanupInterval
	}
	return c
}

// New создаёт лимитер: redis использует адрес из настроек кэша
func New(cfg *config.RateLimitConfig, cacheCfg *config.CacheConfig) (Limiter, error) {
	c := FromConfig(cfg)
	switch cfg.Backend {
	case "redis":
		return NewRedisLimiter(c, RedisOptions(cacheCfg))
	case "memory", "":
		return NewMemoryLimiter(c), nil
	default:
		return nil, fmt.Errorf("unsupported rate limit backend: %s", cfg.Backend)
	}
}

// Ключи клиента
const (
	KeyIP          = "ip"
	KeyProcedure   = "procedure"
	KeyIPProcedure = "ip_procedure"
)

// Key строит ключ лимита по способу keyFunc
func Key(keyFunc, clientIP, procedure string) string {
	if clientIP == "" {
		clientIP = "unknown"
	}
	switch keyFunc {
	case KeyProcedure:
		return procedure
	case KeyIPProcedure:
		return clientIP + ":" + procedure
	default:
		return clientIP
	}
}
