package client

import (
	"context"
	"time"

	"connectrpc.com/connect"
	"github.com/cenkalti/backoff/v5"
)

// retryableCodes - коды, при которых запрос повторяется
var retryableCodes = map[connect.Code]bool{
	connect.CodeUnavailable: true,
	connect.CodeAborted:     true,
}

// linearBackOff увеличивает паузу на step после каждой попытки
type linearBackOff struct {
	step    time.Duration
	attempt int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return time.Duration(b.attempt) * b.step
}

func (b *linearBackOff) Reset() { b.attempt = 0 }

// NewRetryInterceptor повторяет унарные вызовы с линейной задержкой
func NewRetryInterceptor(maxRetries int, step time.Duration) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		if maxRetries <= 0 {
			return next
		}
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			op := func() (connect.AnyResponse, error) {
				resp, err := next(ctx, req)
				if err != nil && !retryableCodes[connect.CodeOf(err)] {
					return nil, backoff.Permanent(err)
				}
				return resp, err
			}
			return backoff.Retry(ctx, op,
				backoff.WithBackOff(&linearBackOff{step: step}),
				backoff.WithMaxTries(uint(maxRetries+1)),
			)
		}
	}
}
