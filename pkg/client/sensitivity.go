// pkg/client/sensitivity.go
package client

import (
	"context"
	"net/http"
	"time"

	"connectrpc.com/connect"

	sensitivityv1 "production/pkg/api/sensitivity/v1"
	"production/pkg/api/sensitivity/v1/sensitivityv1connect"
	"production/pkg/apperror"
	"production/pkg/telemetry"
)

// Config конфигурация клиента sensitivity-svc
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	// RequestID передаётся в X-Request-ID, если задан
	RequestID string
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		BaseURL:      "http://localhost:8080",
		Timeout:      30 * time.Second,
		MaxRetries:   3,
		RetryBackoff: 100 * time.Millisecond,
	}
}

// SensitivityClient клиент для sensitivity-svc
type SensitivityClient struct {
	client    sensitivityv1connect.SensitivityServiceClient
	requestID string
}

// New создаёт клиента. httpClient может быть nil.
func New(cfg *Config, httpClient *http.Client) *SensitivityClient {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &SensitivityClient{
		client: sensitivityv1connect.NewSensitivityServiceClient(
			httpClient,
			cfg.BaseURL,
			connect.WithInterceptors(
				telemetry.UnaryInterceptor(),
				NewRetryInterceptor(cfg.MaxRetries, cfg.RetryBackoff),
			),
		),
		requestID: cfg.RequestID,
	}
}

// Solve решает задачу без анализа диапазонов
func (c *SensitivityClient) Solve(ctx context.Context, req *sensitivityv1.SolveRequest) (*sensitivityv1.SolveResponse, error) {
	resp, err := c.client.Solve(ctx, newRequest(c, req))
	return unwrap(resp, err)
}

// Analyze выполняет полный анализ чувствительности
func (c *SensitivityClient) Analyze(ctx context.Context, req *sensitivityv1.AnalyzeRequest) (*sensitivityv1.AnalysisResult, error) {
	resp, err := unwrap(c.client.Analyze(ctx, newRequest(c, req)))
	if err != nil {
		return nil, err
	}
	return resp.Analysis, nil
}

// EvaluateScenario оценивает набор изменений правых частей
func (c *SensitivityClient) EvaluateScenario(ctx context.Context, req *sensitivityv1.EvaluateScenarioRequest) (*sensitivityv1.ScenarioResult, error) {
	resp, err := unwrap(c.client.EvaluateScenario(ctx, newRequest(c, req)))
	if err != nil {
		return nil, err
	}
	return resp.Scenario, nil
}

// GetAnalysis возвращает сохранённый анализ
func (c *SensitivityClient) GetAnalysis(ctx context.Context, id string) (*sensitivityv1.AnalysisResult, error) {
	resp, err := unwrap(c.client.GetAnalysis(ctx, newRequest(c, &sensitivityv1.GetAnalysisRequest{ID: id})))
	if err != nil {
		return nil, err
	}
	return resp.Analysis, nil
}

// ListAnalyses возвращает страницу истории
func (c *SensitivityClient) ListAnalyses(ctx context.Context, req *sensitivityv1.ListAnalysesRequest) (*sensitivityv1.ListAnalysesResponse, error) {
	return unwrap(c.client.ListAnalyses(ctx, newRequest(c, req)))
}

// DeleteAnalysis удаляет анализ из истории
func (c *SensitivityClient) DeleteAnalysis(ctx context.Context, id string) (bool, error) {
	resp, err := unwrap(c.client.DeleteAnalysis(ctx, newRequest(c, &sensitivityv1.DeleteAnalysisRequest{ID: id})))
	if err != nil {
		return false, err
	}
	return resp.Deleted, nil
}

// ExportReport формирует отчёт
func (c *SensitivityClient) ExportReport(ctx context.Context, req *sensitivityv1.ExportReportRequest) (*sensitivityv1.ExportReportResponse, error) {
	return unwrap(c.client.ExportReport(ctx, newRequest(c, req)))
}

func newRequest[T any](c *SensitivityClient, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	if c.requestID != "" {
		req.Header().Set("X-Request-ID", c.requestID)
	}
	return req
}

// unwrap достаёт сообщение и переводит ошибку Connect в apperror
func unwrap[T any](resp *connect.Response[T], err error) (*T, error) {
	if err != nil {
		return nil, apperror.FromConnect(err)
	}
	return resp.Msg, nil
}
