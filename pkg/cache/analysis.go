package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sensitivityv1 "production/pkg/api/sensitivity/v1"
	"production/pkg/lp"
)

// AnalysisCache - кэш результатов анализа чувствительности.
// Ключ строится по канонической форме модели и имени решателя.
type AnalysisCache struct {
	cache       Cache
	defaultTTL  time.Duration
	optionsHash string
}

// NewAnalysisCache создаёт кэш результатов анализа
func NewAnalysisCache(cache Cache, defaultTTL time.Duration) *AnalysisCache {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	return &AnalysisCache{
		cache:      cache,
		defaultTTL: defaultTTL,
	}
}

// WithOptionsHash возвращает кэш, различающий результаты по параметрам поиска
func (ac *AnalysisCache) WithOptionsHash(hash string) *AnalysisCache {
	out := *ac
	out.optionsHash = hash
	return &out
}

func (ac *AnalysisCache) key(model *lp.Model, solver string) string {
	return BuildAnalysisKeyWithOptions(ModelHash(model), solver, ac.optionsHash)
}

// Get возвращает сохранённый анализ; found == false при промахе
func (ac *AnalysisCache) Get(ctx context.Context, model *lp.Model, solver string) (*sensitivityv1.AnalysisResult, bool, error) {
	key := ac.key(model, solver)

	data, err := ac.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var result sensitivityv1.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		// Повреждённая запись - удаляем и считаем промахом
		_ = ac.cache.Delete(ctx, key) //nolint:errcheck // best effort cleanup
		return nil, false, nil
	}

	result.Cached = true
	return &result, true, nil
}

// Set сохраняет анализ; ttl <= 0 - TTL по умолчанию
func (ac *AnalysisCache) Set(ctx context.Context, model *lp.Model, solver string, result *sensitivityv1.AnalysisResult, ttl time.Duration) error {
	if result == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = ac.defaultTTL
	}

	stored := *result
	stored.Cached = false

	data, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	return ac.cache.Set(ctx, ac.key(model, solver), data, ttl)
}

// Invalidate удаляет анализы модели для всех решателей
func (ac *AnalysisCache) Invalidate(ctx context.Context, model *lp.Model) error {
	_, err := ac.cache.DeleteByPattern(ctx, fmt.Sprintf("analysis:*:%s*", ModelHash(model)))
	return err
}

// InvalidateAll удаляет все анализы
func (ac *AnalysisCache) InvalidateAll(ctx context.Context) (int64, error) {
	return ac.cache.DeleteByPattern(ctx, "analysis:*")
}

// Stats возвращает статистику нижележащего кэша
func (ac *AnalysisCache) Stats(ctx context.Context) (*Stats, error) {
	return ac.cache.Stats(ctx)
}
