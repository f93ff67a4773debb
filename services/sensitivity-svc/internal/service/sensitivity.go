package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	sensitivityv1 "production/pkg/api/sensitivity/v1"
	"production/pkg/apperror"
	"production/pkg/cache"
	"production/pkg/config"
	"production/pkg/logger"
	"production/pkg/lp"
	"production/pkg/metrics"
	"production/pkg/telemetry"
	"production/services/sensitivity-svc/internal/engine"
	"production/services/sensitivity-svc/internal/report"
	"production/services/sensitivity-svc/internal/repository"
)

// Dependencies - необязательные зависимости сервиса
type Dependencies struct {
	// Repository - история анализов; nil отключает RPC истории
	Repository repository.AnalysisRepository
	// Cache - кэш результатов; nil отключает кэширование
	Cache   *cache.AnalysisCache
	Metrics *metrics.Metrics
}

// SensitivityService - решение задач и анализ чувствительности правых частей
type SensitivityService struct {
	version   string
	cfg       config.AnalysisConfig
	reportCfg config.ReportConfig
	search    engine.SearchOptions

	repo    repository.AnalysisRepository
	cache   *cache.AnalysisCache
	metrics *metrics.Metrics
}

// NewSensitivityService создаёт сервис
func NewSensitivityService(version string, cfg config.AnalysisConfig, reportCfg config.ReportConfig, deps Dependencies) *SensitivityService {
	search := engine.SearchOptions{
		ExpansionProbes:     cfg.ExpansionProbes,
		BisectionIterations: cfg.BisectionIterations,
		InitialStep:         cfg.InitialStep,
	}

	m := deps.Metrics
	if m == nil {
		m = metrics.Get()
	}

	s := &SensitivityService{
		version:   version,
		cfg:       cfg,
		reportCfg: reportCfg,
		search:    search,
		repo:      deps.Repository,
		metrics:   m,
	}
	if deps.Cache != nil {
		// Результаты с разными параметрами поиска не смешиваются
		optsKey := fmt.Sprintf("%d:%d:%g", search.ExpansionProbes, search.BisectionIterations, search.InitialStep)
		s.cache = deps.Cache.WithOptionsHash(cache.ShortHash([]byte(optsKey)))
	}
	return s
}

// Version возвращает версию сервиса
func (s *SensitivityService) Version() string {
	return s.version
}

// HistoryEnabled сообщает, подключено ли хранилище истории
func (s *SensitivityService) HistoryEnabled() bool {
	return s.repo != nil
}

// ============================================================
// Solve / Analyze
// ============================================================

// Solve решает задачу без поиска диапазонов
func (s *SensitivityService) Solve(ctx context.Context, req *sensitivityv1.SolveRequest) (*sensitivityv1.SolveResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "SensitivityService.Solve")
	defer span.End()

	if err := validateRequest(req); err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	model, err := s.buildModel(req.Problem)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}
	span.SetAttributes(telemetry.ModelAttributes(model.NumVars(), model.NumConstraints())...)

	solver, err := s.newSolver(req.Solver)
	if err != nil {
		return nil, err
	}

	solveCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	res, err := solver.Solve(solveCtx, model)
	if err != nil {
		if ctxErr := solveCtx.Err(); ctxErr != nil {
			err = contextError(ctxErr)
			telemetry.SetError(ctx, err)
			return nil, err
		}
		res = &lp.Result{Status: lp.StatusUndefined, Message: err.Error()}
	}
	elapsed := time.Since(start)

	resp := toSolveResponse(res, solver.Name())
	resp.DurationMs = durationMs(elapsed)

	span.SetAttributes(telemetry.SolveAttributes(solver.Name(), resp.Status, resp.Iterations, resp.Objective)...)
	if res.Status == lp.StatusOptimal {
		s.metrics.RecordProfit(solver.Name(), resp.Objective)
	}
	return resp, nil
}

// Analyze решает задачу, находит оценки и диапазоны по всем ограничениям.
// Неоптимальный статус возвращается как результат без диапазонов, не как ошибка.
func (s *SensitivityService) Analyze(ctx context.Context, req *sensitivityv1.AnalyzeRequest) (*sensitivityv1.AnalyzeResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "SensitivityService.Analyze")
	defer span.End()

	if err := validateRequest(req); err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	model, err := s.buildModel(req.Problem)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}
	solver, err := s.newSolver(req.Solver)
	if err != nil {
		return nil, err
	}

	persist := s.cfg.Persist && !req.SkipPersist && s.repo != nil
	result, err := s.analyze(ctx, model, solver, req.Name, persist)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}
	// Сохранённая запись из кэша отдаётся под своим именем, как в GetAnalysis
	if req.Name != "" && result.ID == "" {
		result.Name = req.Name
	}
	return &sensitivityv1.AnalyzeResponse{Analysis: result}, nil
}

// analyze выполняет анализ с учётом кэша и сохраняет результат в историю
func (s *SensitivityService) analyze(ctx context.Context, model *lp.Model, solver lp.Solver, name string, persist bool) (*sensitivityv1.AnalysisResult, error) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(telemetry.ModelAttributes(model.NumVars(), model.NumConstraints())...)

	if s.cache != nil {
		cached, found, err := s.cache.Get(ctx, model, solver.Name())
		if err != nil {
			logger.Log.Warn("Analysis cache read failed", "error", err)
		}
		s.metrics.RecordCache(found)
		if found {
			cached.Cached = true
			// Запись могла попасть в кэш без сохранения (сценарий по задаче)
			if persist && cached.ID == "" {
				cached.Name = name
				if err := s.persist(ctx, cached); err != nil {
					logger.Log.Warn("Failed to persist analysis", "error", err)
				} else if err := s.cache.Set(ctx, model, solver.Name(), cached, 0); err != nil {
					logger.Log.Warn("Failed to cache analysis", "error", err)
				}
			}
			telemetry.AddEvent(ctx, "cache_hit", attribute.String(telemetry.AttrAnalysisID, cached.ID))
			span.SetAttributes(attribute.Bool(telemetry.AttrCacheHit, true))
			return cached, nil
		}
	}

	analyzeCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	analysis, err := engine.NewAnalyzer(solver,
		engine.WithWorkers(s.cfg.Workers),
		engine.WithSearchOptions(s.search),
	).Analyze(analyzeCtx, model)
	if err != nil {
		return nil, serviceError(err)
	}
	s.recordAnalysis(analysis)

	result := toAnalysisResult(analysis)
	result.Name = name
	result.CreatedAt = time.Now().UTC()

	if persist {
		if err := s.persist(ctx, result); err != nil {
			// История вторична: анализ возвращается и без сохранения
			logger.Log.Warn("Failed to persist analysis", "error", err)
			telemetry.RecordError(ctx, err)
		}
	}

	valid, invalid, failed := analysis.ProbeCounts()
	span.SetAttributes(telemetry.AnalysisAttributes(result.ID, len(result.Ranges), valid+invalid+failed, failed, false)...)

	// Undefined может быть временным сбоем решателя, такой результат не кэшируется
	if s.cache != nil && analysis.Status != lp.StatusUndefined {
		if err := s.cache.Set(ctx, model, solver.Name(), result, 0); err != nil {
			logger.Log.Warn("Failed to cache analysis", "error", err)
		}
	}
	return result, nil
}

func (s *SensitivityService) persist(ctx context.Context, result *sensitivityv1.AnalysisResult) error {
	rec, err := toRecord(result)
	if err != nil {
		return err
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return err
	}
	result.ID = rec.ID
	result.CreatedAt = rec.CreatedAt

	logger.WithAnalysisID(ctx, rec.ID).Info("Analysis saved",
		"status", rec.Status,
		"solver", rec.Solver,
		"constraints", rec.NumConstraints,
	)
	return nil
}

func (s *SensitivityService) recordAnalysis(a *engine.Analysis) {
	constraints := 0
	if a.Model != nil {
		constraints = a.Model.NumConstraints()
	}
	s.metrics.RecordAnalysis(a.Solver, a.Status.String(), a.Duration, constraints)

	if profit, ok := a.BaselineProfit(); ok {
		s.metrics.RecordProfit(a.Solver, profit)
	}
	valid, invalid, failed := a.ProbeCounts()
	s.metrics.RecordProbes(a.Solver, valid, invalid, failed)

	for _, r := range a.Ranges {
		if r.Increase.Unbounded {
			s.metrics.RecordUnbounded(engine.Increase.String())
		}
		if r.Decrease.Unbounded {
			s.metrics.RecordUnbounded(engine.Decrease.String())
		}
	}
}

// ============================================================
// Scenario
// ============================================================

// EvaluateScenario оценивает изменения правых частей по сохранённому или новому анализу
func (s *SensitivityService) EvaluateScenario(ctx context.Context, req *sensitivityv1.EvaluateScenarioRequest) (*sensitivityv1.EvaluateScenarioResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "SensitivityService.EvaluateScenario")
	defer span.End()

	if err := validateRequest(req); err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	result, err := s.resolveAnalysis(ctx, req.AnalysisID, req.Problem, req.Solver)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	scenario, err := s.evaluate(result, req.Deltas)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	span.SetAttributes(telemetry.ScenarioAttributes(len(scenario.PerConstraint), scenario.AllFeasible)...)
	return &sensitivityv1.EvaluateScenarioResponse{Scenario: scenario}, nil
}

func (s *SensitivityService) evaluate(result *sensitivityv1.AnalysisResult, deltas map[string]float64) (*sensitivityv1.ScenarioResult, error) {
	model, err := buildStoredModel(result.Problem)
	if err != nil {
		return nil, err
	}
	analysis, err := toEngineAnalysis(result, model)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternal, "stored analysis is corrupted")
	}

	rep, err := engine.EvaluateScenario(analysis, engine.ScenarioDelta(deltas))
	if err != nil {
		return nil, err
	}
	s.metrics.RecordScenario(rep.AllFeasible)
	return toScenarioResult(rep, result.ID), nil
}

// resolveAnalysis берёт анализ из истории по ID либо выполняет его для задачи
func (s *SensitivityService) resolveAnalysis(ctx context.Context, id string, problem *lp.Problem, solverName string) (*sensitivityv1.AnalysisResult, error) {
	if id != "" {
		return s.load(ctx, id)
	}

	model, err := s.buildModel(*problem)
	if err != nil {
		return nil, err
	}
	solver, err := s.newSolver(solverName)
	if err != nil {
		return nil, err
	}
	return s.analyze(ctx, model, solver, "", false)
}

// ============================================================
// History
// ============================================================

// GetAnalysis возвращает сохранённый анализ
func (s *SensitivityService) GetAnalysis(ctx context.Context, req *sensitivityv1.GetAnalysisRequest) (*sensitivityv1.GetAnalysisResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "SensitivityService.GetAnalysis")
	defer span.End()

	if err := validateRequest(req); err != nil {
		return nil, err
	}
	result, err := s.load(ctx, req.ID)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}
	return &sensitivityv1.GetAnalysisResponse{Analysis: result}, nil
}

// ListAnalyses возвращает страницу истории, новые анализы первыми
func (s *SensitivityService) ListAnalyses(ctx context.Context, req *sensitivityv1.ListAnalysesRequest) (*sensitivityv1.ListAnalysesResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "SensitivityService.ListAnalyses")
	defer span.End()

	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if s.repo == nil {
		return nil, errHistoryDisabled
	}

	items, total, err := s.repo.List(ctx, &repository.ListOptions{
		Limit:  req.Limit,
		Offset: req.Offset,
		Status: req.Status,
		Solver: req.Solver,
	})
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, apperror.Wrap(err, apperror.CodeInternal, "failed to list analyses")
	}

	resp := &sensitivityv1.ListAnalysesResponse{
		Analyses: make([]sensitivityv1.AnalysisSummary, len(items)),
		Total:    total,
	}
	for i, item := range items {
		resp.Analyses[i] = toSummary(item)
	}
	return resp, nil
}

// DeleteAnalysis удаляет анализ и соответствующую запись кэша
func (s *SensitivityService) DeleteAnalysis(ctx context.Context, req *sensitivityv1.DeleteAnalysisRequest) (*sensitivityv1.DeleteAnalysisResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "SensitivityService.DeleteAnalysis")
	defer span.End()

	if err := validateRequest(req); err != nil {
		return nil, err
	}
	result, err := s.load(ctx, req.ID)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	if err := s.repo.Delete(ctx, req.ID); err != nil {
		if errors.Is(err, repository.ErrAnalysisNotFound) {
			return nil, notFound(req.ID)
		}
		telemetry.SetError(ctx, err)
		return nil, apperror.Wrap(err, apperror.CodeInternal, "failed to delete analysis")
	}

	if s.cache != nil {
		if model, err := buildStoredModel(result.Problem); err == nil {
			if err := s.cache.Invalidate(ctx, model); err != nil {
				logger.Log.Warn("Failed to invalidate analysis cache", "error", err)
			}
		}
	}

	logger.WithAnalysisID(ctx, req.ID).Info("Analysis deleted")
	return &sensitivityv1.DeleteAnalysisResponse{Deleted: true}, nil
}

var errHistoryDisabled = apperror.New(apperror.CodeUnavailable, "analysis history is disabled")

func notFound(id string) error {
	return apperror.NewWithField(apperror.CodeNotFound, fmt.Sprintf("analysis %s not found", id), "id")
}

func (s *SensitivityService) load(ctx context.Context, id string) (*sensitivityv1.AnalysisResult, error) {
	if s.repo == nil {
		return nil, errHistoryDisabled
	}
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAnalysisNotFound) {
			return nil, notFound(id)
		}
		return nil, apperror.Wrap(err, apperror.CodeInternal, "failed to load analysis")
	}
	result, err := fromRecord(rec)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternal, "stored analysis is corrupted")
	}
	return result, nil
}

// ============================================================
// Reports
// ============================================================

// ExportReport формирует отчёт по анализу и, если задан, по сценарию
func (s *SensitivityService) ExportReport(ctx context.Context, req *sensitivityv1.ExportReportRequest) (*sensitivityv1.ExportReportResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "SensitivityService.ExportReport")
	defer span.End()

	if err := validateRequest(req); err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	formatName := req.Format
	if formatName == "" {
		formatName = s.reportCfg.DefaultFormat
	}
	format, err := report.ParseFormat(formatName)
	if err != nil {
		return nil, err
	}
	gen, err := report.New(format, s.reportCfg)
	if err != nil {
		return nil, err
	}

	result, err := s.resolveAnalysis(ctx, req.AnalysisID, req.Problem, req.Solver)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	data := report.NewData(s.reportCfg, result)
	data.Title = req.Title
	if len(req.Scenario) > 0 {
		scenario, err := s.evaluate(result, req.Scenario)
		if err != nil {
			telemetry.SetError(ctx, err)
			return nil, err
		}
		data.Scenario = scenario
	}

	content, err := gen.Generate(ctx, data)
	s.metrics.RecordReport(string(format), err == nil)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, apperror.Wrap(err, apperror.CodeInternal, "failed to generate report")
	}

	span.SetAttributes(telemetry.ReportAttributes(string(format), len(content))...)
	return &sensitivityv1.ExportReportResponse{
		Format:      string(format),
		Filename:    report.Filename(data, gen),
		ContentType: gen.ContentType(),
		Content:     content,
	}, nil
}

// ============================================================
// Helpers
// ============================================================

func (s *SensitivityService) buildModel(p lp.Problem) (*lp.Model, error) {
	return p.Build(
		lp.WithVariableRange(s.cfg.MinVariables, s.cfg.MaxVariables),
		lp.WithMaxConstraints(s.cfg.MaxConstraints),
	)
}

// buildStoredModel собирает модель сохранённого анализа без ограничений размера:
// лимиты конфигурации могли измениться после сохранения
func buildStoredModel(p lp.Problem) (*lp.Model, error) {
	model, err := p.Build(lp.WithVariableRange(1, 0), lp.WithMaxConstraints(0))
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternal, "stored problem is invalid")
	}
	return model, nil
}

func (s *SensitivityService) newSolver(name string) (lp.Solver, error) {
	if name == "" {
		name = s.cfg.Solver
	}
	solver, err := lp.NewSolver(name, lp.WithMaxIterations(s.cfg.MaxIterations))
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInvalidArgument, err.Error()).WithField("solver")
	}
	return solver, nil
}

func (s *SensitivityService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, s.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.Wrap(err, apperror.CodeTimeout, "analysis timed out")
	}
	return apperror.Wrap(err, apperror.CodeCanceled, "analysis canceled")
}

// serviceError приводит ошибку движка к ошибке приложения
func serviceError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return contextError(err)
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperror.Wrap(err, apperror.CodeInternal, "analysis failed")
}

func durationMs(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
