// services/sensitivity-svc/internal/engine/scenario.go
package engine

import (
	"fmt"
	"math"
	"sort"

	"production/pkg/apperror"
	"production/pkg/lp"
)

// ScenarioDelta - предлагаемые изменения правых частей по меткам
type ScenarioDelta map[string]float64

// ConstraintImpact - оценка одного изменения
type ConstraintImpact struct {
	Label       string  `json:"label"`
	Index       int     `json:"index"`
	Delta       float64 `json:"delta"`
	Direction   string  `json:"direction"`
	Limit       Limit   `json:"limit"`
	Feasible    bool    `json:"feasible"`
	ShadowPrice float64 `json:"shadowPrice"`
	Impact      float64 `json:"impact"`
	NewRHS      float64 `json:"newRhs"`
}

// Formula - запись вида "+10.00 (2.00 * 5.00)"
func (c ConstraintImpact) Formula() string {
	return fmt.Sprintf("%+.2f (%.2f * %.2f)", c.Impact, c.ShadowPrice, c.Delta)
}

// ScenarioReport - результат оценки сценария.
// Суммирование независимых влияний - приближение первого порядка:
// совместное изменение нескольких ограничений может сменить базис.
type ScenarioReport struct {
	PerConstraint  []ConstraintImpact `json:"perConstraint"`
	AllFeasible    bool               `json:"allFeasible"`
	TotalImpact    float64            `json:"totalImpact"`
	BaselineProfit float64            `json:"baselineProfit"`
	NewProfit      float64            `json:"newProfit"`
}

// Infeasible возвращает изменения, выходящие за диапазон
func (r *ScenarioReport) Infeasible() []ConstraintImpact {
	var out []ConstraintImpact
	for _, c := range r.PerConstraint {
		if !c.Feasible {
			out = append(out, c)
		}
	}
	return out
}

// EvaluateScenario оценивает изменения правых частей по готовому анализу.
// Нулевые изменения пропускаются; влияние считается для каждого изменения,
// даже если оно вне диапазона. Анализ не изменяется.
func EvaluateScenario(analysis *Analysis, deltas ScenarioDelta) (*ScenarioReport, error) {
	if analysis == nil {
		return nil, apperror.ErrNilAnalysis
	}

	baseline, ok := analysis.BaselineProfit()
	if !ok {
		switch analysis.Status {
		case lp.StatusInfeasible:
			return nil, apperror.ErrInfeasible
		case lp.StatusUnbounded:
			return nil, apperror.ErrUnbounded
		default:
			return nil, apperror.New(apperror.CodeSolverFailure, "baseline has no optimal solution")
		}
	}

	impacts := make([]ConstraintImpact, 0, len(deltas))
	for label, delta := range deltas {
		r, known := analysis.Ranges[label]
		if !known {
			return nil, apperror.NewWithField(apperror.CodeUnknownConstraint,
				fmt.Sprintf("unknown constraint %q", label), label)
		}
		if math.IsNaN(delta) || math.IsInf(delta, 0) {
			return nil, apperror.NewWithField(apperror.CodeNonFiniteValue, "delta is not finite", label)
		}
		if delta == 0 {
			continue
		}

		dir := Increase
		if delta < 0 {
			dir = Decrease
		}
		limit := r.Limit(dir)

		impacts = append(impacts, ConstraintImpact{
			Label:       label,
			Index:       r.Index,
			Delta:       delta,
			Direction:   dir.String(),
			Limit:       limit,
			Feasible:    limit.Allows(delta),
			ShadowPrice: r.ShadowPrice,
			Impact:      r.ShadowPrice * delta,
			NewRHS:      r.CurrentRHS + delta,
		})
	}

	sort.Slice(impacts, func(i, j int) bool {
		return impacts[i].Index < impacts[j].Index
	})

	report := &ScenarioReport{
		PerConstraint:  impacts,
		AllFeasible:    true,
		BaselineProfit: baseline,
	}
	for _, c := range impacts {
		report.TotalImpact += c.Impact
		report.AllFeasible = report.AllFeasible && c.Feasible
	}
	report.NewProfit = baseline + report.TotalImpact

	return report, nil
}
