package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"connectrpc.com/connect"

	"production/gen/openapi"
	"production/pkg/api/sensitivity/v1/sensitivityv1connect"
	"production/pkg/config"
	"production/pkg/logger"
	"production/pkg/metrics"
	"production/pkg/ratelimit"
	"production/pkg/swagger"
	"production/pkg/telemetry"
	"production/services/sensitivity-svc/internal/service"
)

// ReadinessCheck проверяет зависимость сервиса (БД, кэш)
type ReadinessCheck func(ctx context.Context) error

// RouterOptions - параметры маршрутизатора
type RouterOptions struct {
	Config  *config.Config
	Metrics *metrics.Metrics
	// Limiter - ограничение частоты; nil отключает
	Limiter ratelimit.Limiter
	// Checks выполняются в /ready; ключ - имя зависимости
	Checks map[string]ReadinessCheck
}

// NewRouter собирает HTTP маршруты: Connect сервис, health, ready, metrics, swagger
func NewRouter(svc *service.SensitivityService, opts RouterOptions) http.Handler {
	cfg := opts.Config

	chain := []connect.Interceptor{
		telemetry.UnaryInterceptor(),
		NewLoggingInterceptor(),
		NewMetricsInterceptor(opts.Metrics),
	}
	if opts.Limiter != nil {
		chain = append(chain, NewRateLimitInterceptor(opts.Limiter, cfg.RateLimit.KeyFunc))
	}
	chain = append(chain, NewTimeoutInterceptor(cfg.HTTP.RequestTimeout))

	mux := http.NewServeMux()
	path, handler := sensitivityv1connect.NewSensitivityServiceHandler(NewHandler(svc), connect.WithInterceptors(chain...))
	mux.Handle(path, handler)

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"service": cfg.App.Name,
			"version": svc.Version(),
		})
	})
	mux.HandleFunc("/ready", readyHandler(opts.Checks))

	if cfg.Metrics.Enabled {
		metricsPath := cfg.Metrics.Path
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		mux.Handle(metricsPath, metrics.Handler())
	}

	if cfg.Swagger.Enabled {
		spec, err := openapi.Spec(svc.Version())
		if err != nil {
			logger.Log.Warn("Failed to load OpenAPI spec", "error", err)
		} else {
			swagger.RegisterRoutes(mux, swagger.FromConfig(cfg.Swagger), spec)
		}
	}

	var h http.Handler = mux
	if cfg.HTTP.CORS.Enabled {
		h = CORS(cfg.HTTP.CORS)(h)
	}
	return h
}

func readyHandler(checks map[string]ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}

		state := "ready"
		if status != http.StatusOK {
			state = "not_ready"
		}
		writeJSON(w, status, map[string]any{"status": state, "checks": results})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Debug("Failed to write response", "error", err)
	}
}
