package metrics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CacheSnapshot - состояние кэша анализов на момент сбора
type CacheSnapshot struct {
	Keys   int64
	Hits   int64
	Misses int64
}

// StateSource - источники значений, читаемых при каждом сборе метрик.
// Nil-функция отключает соответствующие метрики.
type StateSource struct {
	StoredAnalyses func(ctx context.Context) (int64, error)
	Cache          func(ctx context.Context) (CacheSnapshot, error)
}

// StateCollector отдаёт состояние хранилища и кэша. Значения читаются
// при scrape, ошибка источника пропускает метрику.
type StateCollector struct {
	source  StateSource
	timeout time.Duration

	stored      *prometheus.Desc
	cacheKeys   *prometheus.Desc
	cacheHits   *prometheus.Desc
	cacheMisses *prometheus.Desc
}

// NewStateCollector создаёт коллектор состояния
func NewStateCollector(namespace, subsystem string, source StateSource) *StateCollector {
	return &StateCollector{
		source:  source,
		timeout: 2 * time.Second,
		stored: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "stored_analyses"),
			"Number of analyses in history",
			nil, nil,
		),
		cacheKeys: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "cache_entries"),
			"Number of cached analyses",
			nil, nil,
		),
		cacheHits: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "cache_backend_hits_total"),
			"Hits reported by the cache backend",
			nil, nil,
		),
		cacheMisses: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, subsystem, "cache_backend_misses_total"),
			"Misses reported by the cache backend",
			nil, nil,
		),
	}
}

// RegisterState регистрирует коллектор состояния в реестре по умолчанию.
// Повторная регистрация не считается ошибкой.
func RegisterState(namespace, subsystem string, source StateSource) error {
	err := prometheus.Register(NewStateCollector(namespace, subsystem, source))
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		return nil
	}
	return err
}

// Describe implements prometheus.Collector
func (c *StateCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.stored
	ch <- c.cacheKeys
	ch <- c.cacheHits
	ch <- c.cacheMisses
}

// Collect implements prometheus.Collector
func (c *StateCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if c.source.StoredAnalyses != nil {
		if n, err := c.source.StoredAnalyses(ctx); err == nil {
			ch <- prometheus.MustNewConstMetric(c.stored, prometheus.GaugeValue, float64(n))
		}
	}

	if c.source.Cache != nil {
		if snap, err := c.source.Cache(ctx); err == nil {
			ch <- prometheus.MustNewConstMetric(c.cacheKeys, prometheus.GaugeValue, float64(snap.Keys))
			ch <- prometheus.MustNewConstMetric(c.cacheHits, prometheus.CounterValue, float64(snap.Hits))
			ch <- prometheus.MustNewConstMetric(c.cacheMisses, prometheus.CounterValue, float64(snap.Misses))
		}
	}
}

// RequestTracker отслеживает активные RPC по процедурам
type RequestTracker struct {
	mu       sync.Mutex
	active   map[string]int
	inFlight prometheus.Gauge
}

// NewRequestTracker создаёт новый трекер запросов
func NewRequestTracker(inFlight prometheus.Gauge) *RequestTracker {
	return &RequestTracker{
		active:   make(map[string]int),
		inFlight: inFlight,
	}
}

// Start отмечает начало запроса
func (t *RequestTracker) Start(procedure string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.active[procedure]++
	t.inFlight.Inc()
}

// End отмечает завершение запроса
func (t *RequestTracker) End(procedure string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active[procedure] > 0 {
		t.active[procedure]--
		t.inFlight.Dec()
	}
}

// Active возвращает число активных запросов процедуры
func (t *RequestTracker) Active(procedure string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active[procedure]
}
