// Package cache - кэш результатов анализа чувствительности.
// Две реализации: in-memory (LRU) и Redis с автоматическим выключателем.
package cache

import (
	"context"
	"errors"
	"time"

	"production/pkg/config"
)

// Типы хранилищ
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

var (
	// ErrKeyNotFound - ключ отсутствует или истёк
	ErrKeyNotFound = errors.New("key not found")
	// ErrCacheClosed - операция над закрытым кэшем
	ErrCacheClosed = errors.New("cache is closed")
)

// Cache - хранилище байтовых значений с TTL
type Cache interface {
	// Get возвращает ErrKeyNotFound, если ключа нет
	Get(ctx context.Context, key string) ([]byte, error)
	// Set сохраняет значение; ttl <= 0 означает TTL по умолчанию
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// DeleteByPattern удаляет ключи по glob-шаблону (поддерживается только '*')
	DeleteByPattern(ctx context.Context, pattern string) (int64, error)
	Stats(ctx context.Context) (*Stats, error)
	Close() error
}

// Stats - статистика кэша
type Stats struct {
	TotalKeys   int64   `json:"totalKeys"`
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	HitRate     float64 `json:"hitRate"`
	MemoryBytes int64   `json:"memoryBytes"`
	Backend     string  `json:"backend"`
}

// Options - параметры создания кэша
type Options struct {
	Backend    string
	DefaultTTL time.Duration

	// memory
	MaxEntries      int
	CleanupInterval time.Duration

	// redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int
	// BreakerTimeout - время в состоянии open до пробного запроса
	BreakerTimeout time.Duration
}

// DefaultOptions возвращает параметры по умолчанию
func DefaultOptions() *Options {
	return &Options{
		Backend:         BackendMemory,
		DefaultTTL:      10 * time.Minute,
		MaxEntries:      1000,
		CleanupInterval: time.Minute,
		RedisAddr:       "localhost:6379",
		RedisPoolSize:   10,
		BreakerTimeout:  30 * time.Second,
	}
}

// FromConfig создаёт опции из конфигурации
func FromConfig(cfg *config.CacheConfig) *Options {
	opts := DefaultOptions()
	opts.Backend = cfg.Driver
	if cfg.DefaultTTL > 0 {
		opts.DefaultTTL = cfg.DefaultTTL
	}
	if cfg.MaxEntries > 0 {
		opts.MaxEntries = cfg.MaxEntries
	}
	opts.RedisAddr = cfg.Address()
	opts.RedisPassword = cfg.Password
	opts.RedisDB = cfg.DB
	return opts
}

// New создаёт кэш; неизвестное хранилище - memory
func New(opts *Options) (Cache, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	switch opts.Backend {
	case BackendRedis:
		return NewRedisCache(opts)
	default:
		return NewMemoryCache(opts), nil
	}
}
