// services/sensitivity-svc/internal/engine/analyzer.go
package engine

import (
	"context"
	"time"

	"github.com/sourcegraph/conc/pool"

	"production/pkg/apperror"
	"production/pkg/logger"
	"production/pkg/lp"
)

// Analysis - базовое решение, оценки и диапазоны допустимости.
// Для неоптимального статуса Ranges пуст, Solution == nil.
type Analysis struct {
	Model        *lp.Model
	Status       lp.Status
	Solution     *lp.Solution
	ShadowPrices ShadowPrices
	Ranges       map[string]Range
	Traces       []SearchTrace
	Solver       string
	Message      string
	Duration     time.Duration
}

// BaselineProfit возвращает оптимальную прибыль, если она определена
func (a *Analysis) BaselineProfit() (float64, bool) {
	if a == nil || a.Status != lp.StatusOptimal || a.Solution == nil {
		return 0, false
	}
	return a.Solution.Objective, true
}

// OrderedRanges возвращает диапазоны в порядке ограничений
func (a *Analysis) OrderedRanges() []Range {
	out := make([]Range, 0, len(a.Ranges))
	if a.Model == nil {
		return out
	}
	for _, label := range a.Model.Labels() {
		if r, ok := a.Ranges[label]; ok {
			out = append(out, r)
		}
	}
	return out
}

// ProbeCounts суммирует пробы по всем поискам
func (a *Analysis) ProbeCounts() (valid, invalid, failed int) {
	for _, t := range a.Traces {
		valid += t.ValidProbes
		failed += t.FailedProbes
		invalid += t.Probes - t.ValidProbes - t.FailedProbes
	}
	return valid, invalid, failed
}

// Analyzer связывает решатель, извлечение оценок и поиск диапазонов
type Analyzer struct {
	solver  lp.Solver
	search  *RangeSearch
	workers int
}

// AnalyzerOption настраивает анализатор
type AnalyzerOption func(*Analyzer)

// WithWorkers задаёт число параллельных поисков; 1 - последовательно
func WithWorkers(n int) AnalyzerOption {
	return func(a *Analyzer) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithSearchOptions задаёт параметры поиска диапазонов
func WithSearchOptions(opts SearchOptions) AnalyzerOption {
	return func(a *Analyzer) {
		a.search = NewRangeSearch(a.solver, opts)
	}
}

// NewAnalyzer создаёт анализатор
func NewAnalyzer(solver lp.Solver, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		solver:  solver,
		workers: 4,
	}
	a.search = NewRangeSearch(solver, DefaultSearchOptions())
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Solver возвращает используемый решатель
func (a *Analyzer) Solver() lp.Solver {
	return a.solver
}

// Analyze решает модель и для оптимального решения вычисляет диапазоны по всем ограничениям.
// Неоптимальный статус не считается ошибкой: анализ возвращается без диапазонов.
func (a *Analyzer) Analyze(ctx context.Context, model *lp.Model) (*Analysis, error) {
	if model == nil {
		return nil, apperror.ErrNilModel
	}
	start := time.Now()

	analysis := &Analysis{
		Model:  model,
		Status: lp.StatusUndefined,
		Ranges: map[string]Range{},
		Solver: a.solver.Name(),
	}

	res, err := a.solver.Solve(ctx, model)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Log.Warn("Baseline solve failed", "solver", a.solver.Name(), "error", err)
		analysis.Message = err.Error()
		analysis.Duration = time.Since(start)
		return analysis, nil
	}

	analysis.Status = res.Status
	analysis.Message = res.Message
	prices, err := ExtractShadowPrices(res)
	if err != nil {
		// Infeasible/Unbounded: чувствительность не определена
		analysis.Duration = time.Since(start)
		return analysis, nil
	}
	analysis.Solution = res.Solution
	analysis.ShadowPrices = prices

	ranges, traces, err := a.searchAll(ctx, model, res.Solution.Dual)
	if err != nil {
		return nil, err
	}
	analysis.Ranges = ranges
	analysis.Traces = traces
	analysis.Duration = time.Since(start)

	logger.Log.Debug("Sensitivity analysis completed",
		"constraints", model.NumConstraints(),
		"objective", res.Solution.Objective,
		"duration", analysis.Duration,
	)
	return analysis, nil
}

// searchAll запускает 2·m независимых поисков на ограниченном пуле.
// Каждый поиск пишет только в свой слот, модель не изменяется.
func (a *Analyzer) searchAll(ctx context.Context, model *lp.Model, duals []float64) (map[string]Range, []SearchTrace, error) {
	m := model.NumConstraints()
	directions := []Direction{Increase, Decrease}

	limits := make([]Limit, 2*m)
	traces := make([]SearchTrace, 2*m)

	p := pool.New().WithMaxGoroutines(a.workers).WithContext(ctx).WithCancelOnError().WithFirstError()
	for i := 0; i < m; i++ {
		for d, dir := range directions {
			slot := 2*i + d
			p.Go(func(ctx context.Context) error {
				limit, trace, err := a.search.Search(ctx, model, i, duals[i], dir)
				limits[slot], traces[slot] = limit, trace
				return err
			})
		}
	}
	if err := p.Wait(); err != nil {
		return nil, nil, err
	}

	ranges := make(map[string]Range, m)
	for i := 0; i < m; i++ {
		label := lp.ConstraintLabel(i)
		ranges[label] = Range{
			Label:       label,
			Index:       i,
			CurrentRHS:  model.RHS(i),
			ShadowPrice: duals[i],
			Increase:    limits[2*i],
			Decrease:    limits[2*i+1],
		}
	}
	return ranges, traces, nil
}
