package transport

import (
	"context"

	"github.com/google/uuid"

	"production/pkg/logger"
)

// RequestIDHeader - заголовок идентификатора запроса
const RequestIDHeader = "X-Request-ID"

// GetRequestID извлекает request_id из контекста
func GetRequestID(ctx context.Context) string {
	return logger.RequestIDFromContext(ctx)
}

// WithRequestID добавляет request_id в контекст; логи сервиса и движка
// подхватывают его через logger.FromContext
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return logger.ContextWithRequestID(ctx, requestID)
}

// GenerateRequestID генерирует уникальный ID запроса
func GenerateRequestID() string {
	return uuid.NewString()
}
