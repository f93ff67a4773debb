package transport

import (
	"context"
	"errors"
	"time"

	"connectrpc.com/connect"

	"production/pkg/logger"
	"production/pkg/metrics"
)

// NewLoggingInterceptor логирует запросы. ID запроса берётся из заголовка
// X-Request-ID либо генерируется и возвращается клиенту.
func NewLoggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			requestID := req.Header().Get(RequestIDHeader)
			if requestID == "" {
				requestID = GenerateRequestID()
			}
			ctx = WithRequestID(ctx, requestID)

			start := time.Now()
			procedure := req.Spec().Procedure

			resp, err := next(ctx, req)

			duration := time.Since(start)
			log := logger.FromContext(ctx)

			if err != nil {
				var cerr *connect.Error
				if errors.As(err, &cerr) {
					cerr.Meta().Set(RequestIDHeader, requestID)
				}
				log.Error("Request failed",
					"method", procedure,
					"code", connect.CodeOf(err).String(),
					"duration_ms", duration.Milliseconds(),
					"error", err,
				)
				return nil, err
			}

			resp.Header().Set(RequestIDHeader, requestID)
			log.Info("Request completed",
				"method", procedure,
				"duration_ms", duration.Milliseconds(),
			)
			return resp, nil
		}
	}
}

// NewMetricsInterceptor собирает метрики RPC и число активных запросов
func NewMetricsInterceptor(m *metrics.Metrics) connect.UnaryInterceptorFunc {
	if m == nil {
		m = metrics.Get()
	}
	tracker := metrics.NewRequestTracker(m.RPCRequestsInFlight)

	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			procedure := req.Spec().Procedure
			tracker.Start(procedure)
			defer tracker.End(procedure)

			start := time.Now()
			resp, err := next(ctx, req)

			code := "ok"
			if err != nil {
				code = connect.CodeOf(err).String()
			}
			m.RecordRPCRequest(procedure, code, time.Since(start))

			return resp, err
		}
	}
}

// NewTimeoutInterceptor ограничивает время обработки запроса.
// Меньший таймаут клиента (Connect-Timeout-Ms) сохраняется.
func NewTimeoutInterceptor(timeout time.Duration) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		if timeout <= 0 {
			return next
		}
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return next(ctx, req)
		}
	}
}
