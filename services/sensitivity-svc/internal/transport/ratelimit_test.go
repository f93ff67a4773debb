package transport

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sensitivityv1 "production/pkg/api/sensitivity/v1"
	"production/pkg/api/sensitivity/v1/sensitivityv1connect"
	"production/pkg/apperror"
	"production/pkg/lp"
	"production/pkg/ratelimit"
	"production/services/sensitivity-svc/internal/repository"
	"production/services/sensitivity-svc/internal/service"
)

func TestRouter_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.KeyFunc = ratelimit.KeyIP

	limiter := ratelimit.NewMemoryLimiter(&ratelimit.Config{Requests: 5, Window: time.Minute})
	t.Cleanup(func() { _ = limiter.Close() })

	svc := service.NewSensitivityService("test", cfg.Analysis, cfg.Report, service.Dependencies{
		Repository: repository.NewMemoryAnalysisRepository(),
	})
	srv := httptest.NewServer(NewRouter(svc, RouterOptions{Config: cfg, Limiter: limiter}))
	t.Cleanup(srv.Close)
	client := sensitivityv1connect.NewSensitivityServiceClient(srv.Client(), srv.URL)
	ctx := context.Background()

	// Analyze на 3 ограничениях стоит 4 единицы из 5
	_, err := client.Analyze(ctx, connect.NewRequest(&sensitivityv1.AnalyzeRequest{Problem: wyndorProblem(), SkipPersist: true}))
	require.NoError(t, err)

	_, err = client.Solve(ctx, connect.NewRequest(&sensitivityv1.SolveRequest{Problem: wyndorProblem()}))
	require.NoError(t, err)

	_, err = client.Solve(ctx, connect.NewRequest(&sensitivityv1.SolveRequest{Problem: wyndorProblem()}))
	require.Error(t, err)

	var cerr *connect.Error
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, connect.CodeResourceExhausted, cerr.Code())
	assert.Equal(t, "5", cerr.Meta().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", cerr.Meta().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, cerr.Meta().Get("Retry-After"))
	assert.Equal(t, apperror.CodeRateLimited, apperror.FromConnect(err).Code)
}

func TestRequestCost(t *testing.T) {
	p := wyndorProblem()

	assert.Equal(t, 4, requestCost(&sensitivityv1.AnalyzeRequest{Problem: p}))
	assert.Equal(t, 4, requestCost(&sensitivityv1.EvaluateScenarioRequest{Problem: &p}))
	assert.Equal(t, 1, requestCost(&sensitivityv1.EvaluateScenarioRequest{AnalysisID: "a"}))
	assert.Equal(t, 4, requestCost(&sensitivityv1.ExportReportRequest{Problem: &p}))
	assert.Equal(t, 1, requestCost(&sensitivityv1.SolveRequest{Problem: lp.Problem{}}))
}

// failingLimiter имитирует недоступный Redis
type failingLimiter struct{ ratelimit.Limiter }

func (failingLimiter) AllowN(context.Context, string, int) (bool, error) {
	return false, errors.New("redis: connection refused")
}

func TestRateLimitInterceptor_FailOpen(t *testing.T) {
	interceptor := NewRateLimitInterceptor(failingLimiter{}, ratelimit.KeyIP)
	called := false
	next := connect.UnaryFunc(func(context.Context, connect.AnyRequest) (connect.AnyResponse, error) {
		called = true
		return connect.NewResponse(&sensitivityv1.SolveResponse{}), nil
	})

	_, err := interceptor(next)(context.Background(), connect.NewRequest(&sensitivityv1.SolveRequest{}))
	require.NoError(t, err)
	assert.True(t, called)
}
