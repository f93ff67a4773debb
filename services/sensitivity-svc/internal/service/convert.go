package service

import (
	"encoding/json"
	"fmt"

	sensitivityv1 "production/pkg/api/sensitivity/v1"
	"production/pkg/lp"
	"production/services/sensitivity-svc/internal/engine"
	"production/services/sensitivity-svc/internal/repository"
)

func toAPILimit(l engine.Limit) sensitivityv1.Limit {
	return sensitivityv1.Limit{Value: l.Value, Unbounded: l.Unbounded}
}

func fromAPILimit(l sensitivityv1.Limit) engine.Limit {
	if l.Unbounded {
		return engine.NoLimit
	}
	return engine.Finite(l.Value)
}

func toVariables(sol *lp.Solution) []sensitivityv1.VariableValue {
	out := make([]sensitivityv1.VariableValue, len(sol.Primal))
	for j, v := range sol.Primal {
		out[j] = sensitivityv1.VariableValue{Name: lp.VariableName(j), Value: v}
	}
	return out
}

func toShadowPrices(sol *lp.Solution) []sensitivityv1.ShadowPrice {
	out := make([]sensitivityv1.ShadowPrice, len(sol.Dual))
	for i, v := range sol.Dual {
		out[i] = sensitivityv1.ShadowPrice{Label: lp.ConstraintLabel(i), Value: v}
	}
	return out
}

// toSolveResponse конвертирует результат решателя
func toSolveResponse(res *lp.Result, solver string) *sensitivityv1.SolveResponse {
	resp := &sensitivityv1.SolveResponse{
		Status:     res.Status.String(),
		Iterations: res.Iterations,
		Solver:     solver,
		Message:    res.Message,
	}
	if sol, ok := res.Optimal(); ok {
		resp.Objective = sol.Objective
		resp.Variables = toVariables(sol)
		resp.ShadowPrices = toShadowPrices(sol)
	}
	return resp
}

// toAnalysisResult конвертирует анализ движка в сообщение API
func toAnalysisResult(a *engine.Analysis) *sensitivityv1.AnalysisResult {
	out := &sensitivityv1.AnalysisResult{
		Solver:     a.Solver,
		Status:     a.Status.String(),
		Message:    a.Message,
		Ranges:     []sensitivityv1.RangeResult{},
		Problem:    a.Model.Problem(),
		DurationMs: float64(a.Duration.Microseconds()) / 1000,
	}
	if a.Solution == nil {
		return out
	}

	out.Objective = a.Solution.Objective
	out.Variables = toVariables(a.Solution)
	out.ShadowPrices = toShadowPrices(a.Solution)

	probes := make(map[string][2]int, len(a.Traces))
	for _, t := range a.Traces {
		p := probes[t.Label]
		p[0] += t.Probes
		p[1] += t.FailedProbes
		probes[t.Label] = p
	}

	for _, r := range a.OrderedRanges() {
		p := probes[r.Label]
		out.Ranges = append(out.Ranges, sensitivityv1.RangeResult{
			Label:         r.Label,
			CurrentRHS:    r.CurrentRHS,
			ShadowPrice:   r.ShadowPrice,
			IncreaseLimit: toAPILimit(r.Increase),
			DecreaseLimit: toAPILimit(r.Decrease),
			Interval:      r.Interval(),
			Probes:        p[0],
			FailedProbes:  p[1],
		})
	}
	return out
}

// toEngineAnalysis восстанавливает анализ движка из сохранённого результата.
// Решение не пересчитывается: сценарий оценивается по сохранённым диапазонам.
func toEngineAnalysis(r *sensitivityv1.AnalysisResult, model *lp.Model) (*engine.Analysis, error) {
	status, err := lp.ParseStatus(r.Status)
	if err != nil {
		return nil, err
	}

	a := &engine.Analysis{
		Model:   model,
		Status:  status,
		Ranges:  make(map[string]engine.Range, len(r.Ranges)),
		Solver:  r.Solver,
		Message: r.Message,
	}
	if status != lp.StatusOptimal {
		return a, nil
	}

	sol := &lp.Solution{
		Objective: r.Objective,
		Primal:    make([]float64, len(r.Variables)),
		Dual:      make([]float64, len(r.ShadowPrices)),
	}
	for j, v := range r.Variables {
		sol.Primal[j] = v.Value
	}
	a.ShadowPrices = make(engine.ShadowPrices, len(r.ShadowPrices))
	for i, p := range r.ShadowPrices {
		sol.Dual[i] = p.Value
		a.ShadowPrices[p.Label] = p.Value
	}
	a.Solution = sol

	for _, rr := range r.Ranges {
		idx, ok := lp.ParseConstraintLabel(rr.Label)
		if !ok {
			return nil, fmt.Errorf("stored range has invalid label %q", rr.Label)
		}
		a.Ranges[rr.Label] = engine.Range{
			Label:       rr.Label,
			Index:       idx,
			CurrentRHS:  rr.CurrentRHS,
			ShadowPrice: rr.ShadowPrice,
			Increase:    fromAPILimit(rr.IncreaseLimit),
			Decrease:    fromAPILimit(rr.DecreaseLimit),
		}
	}
	return a, nil
}

// toScenarioResult конвертирует оценку сценария
func toScenarioResult(rep *engine.ScenarioReport, analysisID string) *sensitivityv1.ScenarioResult {
	out := &sensitivityv1.ScenarioResult{
		AnalysisID:     analysisID,
		PerConstraint:  make([]sensitivityv1.ScenarioImpact, len(rep.PerConstraint)),
		AllFeasible:    rep.AllFeasible,
		TotalImpact:    rep.TotalImpact,
		BaselineProfit: rep.BaselineProfit,
		NewProfit:      rep.NewProfit,
	}
	for i, c := range rep.PerConstraint {
		out.PerConstraint[i] = sensitivityv1.ScenarioImpact{
			Label:       c.Label,
			Delta:       c.Delta,
			Direction:   c.Direction,
			Limit:       toAPILimit(c.Limit),
			Feasible:    c.Feasible,
			ShadowPrice: c.ShadowPrice,
			Impact:      c.Impact,
			NewRHS:      c.NewRHS,
			Formula:     c.Formula(),
		}
	}
	return out
}

// toRecord готовит запись истории
func toRecord(r *sensitivityv1.AnalysisResult) (*repository.Analysis, error) {
	problem, err := json.Marshal(r.Problem)
	if err != nil {
		return nil, fmt.Errorf("marshal problem: %w", err)
	}
	result, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}

	rec := &repository.Analysis{
		Name:           r.Name,
		Solver:         r.Solver,
		Status:         r.Status,
		Message:        r.Message,
		Objective:      r.Objective,
		NumVars:        len(r.Problem.Objective),
		NumConstraints: len(r.Problem.Constraints),
		DurationMs:     r.DurationMs,
		Problem:        problem,
		Result:         result,
		Ranges:         make([]repository.RangeRow, len(r.Ranges)),
	}
	for i, rr := range r.Ranges {
		rec.Ranges[i] = repository.RangeRow{
			Position:    i,
			Label:       rr.Label,
			CurrentRHS:  rr.CurrentRHS,
			ShadowPrice: rr.ShadowPrice,
			Increase:    limitPtr(rr.IncreaseLimit),
			Decrease:    limitPtr(rr.DecreaseLimit),
		}
	}
	return rec, nil
}

func limitPtr(l sensitivityv1.Limit) *float64 {
	if l.Unbounded {
		return nil
	}
	v := l.Value
	return &v
}

// fromRecord восстанавливает результат из записи истории
func fromRecord(rec *repository.Analysis) (*sensitivityv1.AnalysisResult, error) {
	var r sensitivityv1.AnalysisResult
	if err := json.Unmarshal(rec.Result, &r); err != nil {
		return nil, fmt.Errorf("decode stored analysis %s: %w", rec.ID, err)
	}
	r.ID = rec.ID
	r.Name = rec.Name
	r.CreatedAt = rec.CreatedAt
	r.Cached = false
	if len(rec.Ranges) > 0 {
		r.Ranges = fromRangeRows(rec.Ranges, r.Ranges)
	}
	return &r, nil
}

// fromRangeRows собирает диапазоны из строк analysis_ranges;
// счётчики проб в таблице не хранятся и берутся из JSON результата
func fromRangeRows(rows []repository.RangeRow, stored []sensitivityv1.RangeResult) []sensitivityv1.RangeResult {
	byLabel := make(map[string]sensitivityv1.RangeResult, len(stored))
	for _, rr := range stored {
		byLabel[rr.Label] = rr
	}

	out := make([]sensitivityv1.RangeResult, len(rows))
	for i, row := range rows {
		er := engine.Range{
			Label:       row.Label,
			CurrentRHS:  row.CurrentRHS,
			ShadowPrice: row.ShadowPrice,
			Increase:    limitFromPtr(row.Increase),
			Decrease:    limitFromPtr(row.Decrease),
		}
		prev := byLabel[row.Label]
		out[i] = sensitivityv1.RangeResult{
			Label:         er.Label,
			CurrentRHS:    er.CurrentRHS,
			ShadowPrice:   er.ShadowPrice,
			IncreaseLimit: toAPILimit(er.Increase),
			DecreaseLimit: toAPILimit(er.Decrease),
			Interval:      er.Interval(),
			Probes:        prev.Probes,
			FailedProbes:  prev.FailedProbes,
		}
	}
	return out
}

func limitFromPtr(v *float64) engine.Limit {
	if v == nil {
		return engine.NoLimit
	}
	return engine.Finite(*v)
}

func toSummary(s *repository.Summary) sensitivityv1.AnalysisSummary {
	return sensitivityv1.AnalysisSummary{
		ID:             s.ID,
		Name:           s.Name,
		Solver:         s.Solver,
		Status:         s.Status,
		Objective:      s.Objective,
		NumVars:        s.NumVars,
		NumConstraints: s.NumConstraints,
		CreatedAt:      s.CreatedAt,
	}
}
