// services/sensitivity-svc/internal/engine/scenario_test.go
package engine

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"production/pkg/apperror"
	"production/pkg/lp"
)

func analyzeWyndor(t *testing.T) *Analysis {
	t.Helper()
	analysis, err := NewAnalyzer(lp.NewTableauSolver()).Analyze(context.Background(), wyndorModel(t))
	require.NoError(t, err)
	return analysis
}

func TestEvaluateScenario_WithinRange(t *testing.T) {
	analysis := analyzeWyndor(t)

	report, err := EvaluateScenario(analysis, ScenarioDelta{"R2": 2, "R3": -3})
	require.NoError(t, err)

	require.Len(t, report.PerConstraint, 2)
	assert.Equal(t, "R2", report.PerConstraint[0].Label)
	assert.Equal(t, "R3", report.PerConstraint[1].Label)
	assert.Equal(t, "decrease", report.PerConstraint[1].Direction)

	assert.True(t, report.AllFeasible)
	assert.InDelta(t, 1.5*2+1.0*(-3), report.TotalImpact, lp.Epsilon)
	assert.InDelta(t, 36.0, report.BaselineProfit, lp.Epsilon)
	assert.InDelta(t, 36.0, report.NewProfit, lp.Epsilon)
	assert.Empty(t, report.Infeasible())
}

func TestEvaluateScenario_OutOfRange(t *testing.T) {
	analysis := analyzeWyndor(t)

	report, err := EvaluateScenario(analysis, ScenarioDelta{"R2": 10})
	require.NoError(t, err)

	require.Len(t, report.PerConstraint, 1)
	c := report.PerConstraint[0]
	assert.False(t, c.Feasible)
	assert.False(t, report.AllFeasible)
	// влияние считается и для изменения вне диапазона
	assert.InDelta(t, 15.0, c.Impact, lp.Epsilon)
	assert.InDelta(t, 22.0, c.NewRHS, lp.Epsilon)
	assert.Len(t, report.Infeasible(), 1)
}

func TestEvaluateScenario_UnboundedDirection(t *testing.T) {
	analysis := analyzeWyndor(t)

	report, err := EvaluateScenario(analysis, ScenarioDelta{"R1": 1e6})
	require.NoError(t, err)
	assert.True(t, report.AllFeasible)
	assert.True(t, report.PerConstraint[0].Limit.Unbounded)
	assert.InDelta(t, 0.0, report.TotalImpact, lp.Epsilon)
}

func TestEvaluateScenario_SkipsZeroDeltas(t *testing.T) {
	analysis := analyzeWyndor(t)

	report, err := EvaluateScenario(analysis, ScenarioDelta{"R1": 0, "R3": 0})
	require.NoError(t, err)
	assert.Empty(t, report.PerConstraint)
	assert.True(t, report.AllFeasible)
	assert.Equal(t, report.BaselineProfit, report.NewProfit)
}

func TestEvaluateScenario_MatchesResolve(t *testing.T) {
	m := wyndorModel(t)
	analysis := analyzeWyndor(t)

	report, err := EvaluateScenario(analysis, ScenarioDelta{"R3": 4})
	require.NoError(t, err)
	require.True(t, report.AllFeasible)

	changed, err := m.WithRHS(2, m.RHS(2)+4)
	require.NoError(t, err)
	res, err := lp.NewTableauSolver().Solve(context.Background(), changed)
	require.NoError(t, err)
	sol, ok := res.Optimal()
	require.True(t, ok)

	// внутри диапазона линейная оценка точна
	assert.InDelta(t, sol.Objective, report.NewProfit, lp.Epsilon)
}

func TestEvaluateScenario_Formula(t *testing.T) {
	c := ConstraintImpact{Delta: 5, ShadowPrice: 2, Impact: 10}
	assert.Equal(t, "+10.00 (2.00 * 5.00)", c.Formula())

	c = ConstraintImpact{Delta: -2, ShadowPrice: 1.5, Impact: -3}
	assert.Equal(t, "-3.00 (1.50 * -2.00)", c.Formula())
}

func TestEvaluateScenario_Errors(t *testing.T) {
	analysis := analyzeWyndor(t)

	_, err := EvaluateScenario(nil, ScenarioDelta{"R1": 1})
	assert.Equal(t, apperror.CodeNilInput, apperror.Code(err))

	_, err = EvaluateScenario(analysis, ScenarioDelta{"R9": 1})
	assert.Equal(t, apperror.CodeUnknownConstraint, apperror.Code(err))

	_, err = EvaluateScenario(analysis, ScenarioDelta{"R1": math.NaN()})
	assert.Equal(t, apperror.CodeNonFiniteValue, apperror.Code(err))

	infeasible, err := NewAnalyzer(lp.NewTableauSolver()).Analyze(context.Background(), infeasibleModel(t))
	require.NoError(t, err)
	_, err = EvaluateScenario(infeasible, ScenarioDelta{"R1": 1})
	assert.Equal(t, apperror.CodeInfeasible, apperror.Code(err))

	_, err = EvaluateScenario(&Analysis{Status: lp.StatusUndefined}, nil)
	assert.Equal(t, apperror.CodeSolverFailure, apperror.Code(err))
}

func TestEvaluateScenario_DoesNotMutateAnalysis(t *testing.T) {
	analysis := analyzeWyndor(t)
	before := analysis.OrderedRanges()

	_, err := EvaluateScenario(analysis, ScenarioDelta{"R2": 3, "R3": -8})
	require.NoError(t, err)
	assert.Equal(t, before, analysis.OrderedRanges())
}
