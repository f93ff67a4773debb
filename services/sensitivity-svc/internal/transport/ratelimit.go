package transport

import (
	"context"
	"net"
	"strconv"
	"strings"

	"connectrpc.com/connect"

	sensitivityv1 "production/pkg/api/sensitivity/v1"
	"production/pkg/apperror"
	"production/pkg/logger"
	"production/pkg/ratelimit"
)

// NewRateLimitInterceptor ограничивает расход по клиенту. Стоимость запроса
// зависит от объёма работы: Analyze решает по задаче на каждый шаг поиска
// для каждого ограничения.
func NewRateLimitInterceptor(limiter ratelimit.Limiter, keyFunc string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			procedure := req.Spec().Procedure
			key := ratelimit.Key(keyFunc, clientIP(req), procedure)
			cost := requestCost(req.Any())

			allowed, err := limiter.AllowN(ctx, key, cost)
			if err != nil {
				// fail open
				logger.Log.Warn("Rate limit check failed", "error", err, "key", key)
				return next(ctx, req)
			}
			if allowed {
				return next(ctx, req)
			}

			logger.Log.Warn("Rate limit exceeded", "key", key, "cost", cost)

			cerr, _ := apperror.ToConnect(apperror.Newf(apperror.CodeRateLimited,
				"rate limit exceeded for %s", procedure)).(*connect.Error)
			if info, infoErr := limiter.GetInfo(ctx, key); infoErr == nil {
				cerr.Meta().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
				cerr.Meta().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
				if info.RetryAfter > 0 {
					cerr.Meta().Set("Retry-After", strconv.Itoa(int(info.RetryAfter.Seconds()+0.999)))
				}
			}
			return nil, cerr
		}
	}
}

// requestCost - единицы лимита на запрос
func requestCost(msg any) int {
	switch m := msg.(type) {
	case *sensitivityv1.AnalyzeRequest:
		return 1 + len(m.Problem.Constraints)
	case *sensitivityv1.EvaluateScenarioRequest:
		if m.Problem != nil {
			return 1 + len(m.Problem.Constraints)
		}
	case *sensitivityv1.ExportReportRequest:
		if m.Problem != nil {
			return 1 + len(m.Problem.Constraints)
		}
	}
	return 1
}

// clientIP - первый адрес X-Forwarded-For, X-Real-IP или адрес соединения
func clientIP(req connect.AnyRequest) string {
	if xff := req.Header().Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := req.Header().Get("X-Real-IP"); ip != "" {
		return ip
	}
	addr := req.Peer().Addr
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
