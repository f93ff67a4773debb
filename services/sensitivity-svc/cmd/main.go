// Package main is the entry point for the sensitivity-svc microservice.
//
// sensitivity-svc solves small production-planning linear programs
// (2 to 4 products, a handful of resource constraints) and reports how
// far each resource level can move before the current plan stops being
// feasible. The API is served over Connect (JSON over HTTP/1.1 or h2c).
//
// # Service Overview
//
//	Solve             - optimal plan, profit and shadow prices
//	Analyze           - Solve plus feasibility ranges for every constraint
//	EvaluateScenario  - profit impact of a set of resource changes
//	GetAnalysis       - stored analysis by id
//	ListAnalyses      - analysis history with filters
//	DeleteAnalysis    - remove an analysis from history
//	ExportReport      - csv, markdown, json, xlsx or pdf report
//
// # Configuration
//
// Configuration is loaded with the following priority (highest to lowest):
//  1. Environment variables (prefix: PRODUCTION_)
//  2. Config files (config.yaml, config/config.yaml, /etc/production/config.yaml)
//  3. Default values
//
// Key options:
//
//	PRODUCTION_HTTP_PORT              - HTTP port (default: 8080)
//	PRODUCTION_LOG_LEVEL              - debug, info, warn, error (default: info)
//	PRODUCTION_DATABASE_ENABLED       - store history in PostgreSQL (default: false)
//	PRODUCTION_CACHE_ENABLED          - cache analyses (default: true)
//	PRODUCTION_CACHE_DRIVER           - memory, redis (default: memory)
//	PRODUCTION_ANALYSIS_SOLVER        - tableau, gonum (default: tableau)
//	PRODUCTION_ANALYSIS_WORKERS       - parallel ranging workers
//	PRODUCTION_TRACING_ENABLED        - OpenTelemetry export (default: false)
//	PRODUCTION_METRICS_PORT           - Prometheus port (default: 9090)
//
// # Endpoints
//
//	POST /production.sensitivity.v1.SensitivityService/*  - Connect RPC
//	GET  /health                                           - liveness
//	GET  /ready                                            - readiness (database)
//	GET  /metrics                                          - Prometheus
//	GET  /swagger/                                         - Swagger UI
//
// # Graceful Shutdown
//
// On SIGINT or SIGTERM the server stops accepting connections, waits for
// in-flight requests (up to http.shutdown_timeout), then closes the cache,
// the database pool and flushes traces.
//
// # API Usage Example
//
//	curl -s -H 'Content-Type: application/json' -d '{
//	  "problem": {
//	    "numVars": 2,
//	    "objective": [3, 5],
//	    "constraints": [
//	      {"coefficients": [1, 0], "relation": "<=", "rhs": 4},
//	      {"coefficients": [0, 2], "relation": "<=", "rhs": 12},
//	      {"coefficients": [3, 2], "relation": "<=", "rhs": 18}
//	    ]
//	  }
//	}' localhost:8080/production.sensitivity.v1.SensitivityService/Analyze
package main

import (
	"context"
	"log"

	"production/pkg/cache"
	"production/pkg/config"
	"production/pkg/logger"
	"production/pkg/metrics"
	"production/pkg/ratelimit"
	"production/pkg/server"
	"production/services/sensitivity-svc/internal/repository"
	"production/services/sensitivity-svc/internal/service"
	"production/services/sensitivity-svc/internal/transport"
)

func main() {
	// =========================================================================
	// Configuration Loading
	// =========================================================================
	cfg, err := config.LoadWithServiceDefaults("sensitivity-svc", 8080)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger.InitWithConfig(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	ctx := context.Background()

	// =========================================================================
	// Metrics
	// =========================================================================
	m := metrics.InitMetrics(cfg.Metrics.Namespace, cfg.Metrics.Subsystem)

	// =========================================================================
	// Storage
	// =========================================================================
	//
	// При выключенной базе история хранится в памяти процесса.
	store, err := repository.NewStore(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("failed to init storage", "error", err)
	}
	if cfg.IsProduction() && !cfg.Database.Enabled {
		logger.Log.Warn("Database disabled, analysis history will not survive restarts")
	}

	// =========================================================================
	// Cache
	// =========================================================================
	//
	// Кэш необязателен: при ошибке сервис работает без него.
	var analysisCache *cache.AnalysisCache
	var baseCache cache.Cache
	if cfg.Cache.Enabled {
		baseCache, err = cache.New(cache.FromConfig(&cfg.Cache))
		if err != nil {
			logger.Log.Warn("Failed to create cache, continuing without cache", "error", err)
			baseCache = nil
		} else {
			analysisCache = cache.NewAnalysisCache(baseCache, cfg.Cache.DefaultTTL)
			logger.Log.Info("Analysis cache initialized",
				"driver", cfg.Cache.Driver,
				"ttl", cfg.Cache.DefaultTTL,
			)
		}
	}

	// Состояние истории и кэша читается при каждом scrape
	state := metrics.StateSource{
		StoredAnalyses: func(ctx context.Context) (int64, error) {
			_, total, err := store.Analyses.List(ctx, &repository.ListOptions{Limit: 1})
			return total, err
		},
	}
	if baseCache != nil {
		state.Cache = func(ctx context.Context) (metrics.CacheSnapshot, error) {
			st, err := baseCache.Stats(ctx)
			if err != nil {
				return metrics.CacheSnapshot{}, err
			}
			return metrics.CacheSnapshot{Keys: st.TotalKeys, Hits: st.Hits, Misses: st.Misses}, nil
		}
	}
	if err := metrics.RegisterState(cfg.Metrics.Namespace, cfg.Metrics.Subsystem, state); err != nil {
		logger.Log.Warn("Failed to register state metrics", "error", err)
	}

	// =========================================================================
	// Rate Limiting
	// =========================================================================
	//
	// Лимит считается в единицах стоимости: Analyze по задаче с N
	// ограничениями стоит N+1. Redis-бэкенд берёт адрес из настроек кэша.
	var limiter ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter, err = ratelimit.New(&cfg.RateLimit, &cfg.Cache)
		if err != nil {
			logger.Log.Warn("Failed to create rate limiter, continuing without it", "error", err)
			limiter = nil
		}
	}

	// =========================================================================
	// Service and Router
	// =========================================================================
	svc := service.NewSensitivityService(cfg.App.Version, cfg.Analysis, cfg.Report, service.Dependencies{
		Repository: store.Analyses,
		Cache:      analysisCache,
		Metrics:    m,
	})

	router := transport.NewRouter(svc, transport.RouterOptions{
		Config:  cfg,
		Metrics: m,
		Limiter: limiter,
		Checks: map[string]transport.ReadinessCheck{
			"database": store.Ping,
		},
	})

	srv := server.New(cfg, router)
	srv.OnShutdown(func(context.Context) error {
		store.Close()
		return nil
	})
	if baseCache != nil {
		srv.OnShutdown(func(context.Context) error {
			return baseCache.Close()
		})
	}
	if limiter != nil {
		srv.OnShutdown(func(context.Context) error {
			return limiter.Close()
		})
	}

	logger.Info("Starting sensitivity service",
		"port", cfg.HTTP.Port,
		"environment", cfg.App.Environment,
		"version", cfg.App.Version,
		"solver", cfg.Analysis.Solver,
		"storage", storageName(cfg),
		"cache_enabled", analysisCache != nil,
		"rate_limit", limiter != nil,
	)

	if err := srv.Run(); err != nil {
		logger.Fatal("server failed", "error", err)
	}
}

func storageName(cfg *config.Config) string {
	if cfg.Database.Enabled && cfg.Database.Driver != repository.StorageMemory {
		return repository.StoragePostgres
	}
	return repository.StorageMemory
}
