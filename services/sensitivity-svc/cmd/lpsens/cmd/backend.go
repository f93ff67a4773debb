package cmd

import (
	"context"
	"fmt"
	"time"

	sensitivityv1 "production/pkg/api/sensitivity/v1"
	"production/pkg/client"
	"production/pkg/config"
	"production/services/sensitivity-svc/internal/service"
)

// backend - общий интерфейс встроенного решателя и удалённого сервиса
type backend interface {
	Solve(ctx context.Context, req *sensitivityv1.SolveRequest) (*sensitivityv1.SolveResponse, error)
	Analyze(ctx context.Context, req *sensitivityv1.AnalyzeRequest) (*sensitivityv1.AnalysisResult, error)
	EvaluateScenario(ctx context.Context, req *sensitivityv1.EvaluateScenarioRequest) (*sensitivityv1.ScenarioResult, error)
	ExportReport(ctx context.Context, req *sensitivityv1.ExportReportRequest) (*sensitivityv1.ExportReportResponse, error)
}

// localBackend вызывает сервис в процессе, без истории и кэша
type localBackend struct {
	svc *service.SensitivityService
}

func (b localBackend) Solve(ctx context.Context, req *sensitivityv1.SolveRequest) (*sensitivityv1.SolveResponse, error) {
	return b.svc.Solve(ctx, req)
}

func (b localBackend) Analyze(ctx context.Context, req *sensitivityv1.AnalyzeRequest) (*sensitivityv1.AnalysisResult, error) {
	resp, err := b.svc.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Analysis, nil
}

func (b localBackend) EvaluateScenario(ctx context.Context, req *sensitivityv1.EvaluateScenarioRequest) (*sensitivityv1.ScenarioResult, error) {
	resp, err := b.svc.EvaluateScenario(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Scenario, nil
}

func (b localBackend) ExportReport(ctx context.Context, req *sensitivityv1.ExportReportRequest) (*sensitivityv1.ExportReportResponse, error) {
	return b.svc.ExportReport(ctx, req)
}

// loadConfig читает конфигурацию сервиса (файлы и PRODUCTION_*), чтобы
// встроенный решатель работал с теми же лимитами
func (o *options) loadConfig() (*config.Config, error) {
	var loaderOpts []config.LoaderOption
	if o.configFile != "" {
		loaderOpts = append(loaderOpts, config.WithConfigPaths(o.configFile))
	}
	cfg, err := config.NewLoader(loaderOpts...).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// open возвращает backend и конфигурацию отчётов
func (o *options) open() (backend, config.ReportConfig, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, config.ReportConfig{}, err
	}
	rc := cfg.Report
	if o.currency != "" {
		rc.Currency = o.currency
	}

	if o.remote != "" {
		return client.New(&client.Config{
			BaseURL:      o.remote,
			Timeout:      o.timeout,
			MaxRetries:   3,
			RetryBackoff: 200 * time.Millisecond,
			RequestID:    o.requestID,
		}, nil), rc, nil
	}

	analysisCfg := cfg.Analysis
	analysisCfg.Persist = false
	svc := service.NewSensitivityService(version, analysisCfg, rc, service.Dependencies{})
	return localBackend{svc: svc}, rc, nil
}
