package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sensitivityv1 "production/pkg/api/sensitivity/v1"
	"production/pkg/lp"
	"production/services/sensitivity-svc/internal/engine"
)

func wyndorEngineAnalysis(t *testing.T) *engine.Analysis {
	t.Helper()
	model, err := wyndorProblem().Build()
	require.NoError(t, err)
	a, err := engine.NewAnalyzer(lp.NewTableauSolver()).Analyze(context.Background(), model)
	require.NoError(t, err)
	return a
}

func TestToAnalysisResult(t *testing.T) {
	a := wyndorEngineAnalysis(t)
	r := toAnalysisResult(a)

	assert.Equal(t, "Optimal", r.Status)
	assert.Equal(t, "tableau", r.Solver)
	assert.Equal(t, wyndorProblem(), r.Problem)
	require.Len(t, r.Variables, 2)
	require.Len(t, r.ShadowPrices, 3)
	require.Len(t, r.Ranges, 3)

	total := 0
	for i, rr := range r.Ranges {
		assert.Equal(t, lp.ConstraintLabel(i), rr.Label)
		assert.NotEmpty(t, rr.Interval)
		total += rr.Probes
	}
	valid, invalid, failed := a.ProbeCounts()
	assert.Equal(t, valid+invalid+failed, total)
	assert.True(t, r.Ranges[0].IncreaseLimit.Unbounded)
}

func TestToAnalysisResult_NonOptimal(t *testing.T) {
	model, err := infeasibleProblem().Build()
	require.NoError(t, err)
	a, err := engine.NewAnalyzer(lp.NewTableauSolver()).Analyze(context.Background(), model)
	require.NoError(t, err)

	r := toAnalysisResult(a)
	assert.Equal(t, "Infeasible", r.Status)
	assert.NotNil(t, r.Ranges)
	assert.Empty(t, r.Ranges)
	assert.Nil(t, r.Variables)
}

func TestToEngineAnalysis_RoundTrip(t *testing.T) {
	a := wyndorEngineAnalysis(t)
	r := toAnalysisResult(a)

	back, err := toEngineAnalysis(r, a.Model)
	require.NoError(t, err)

	assert.Equal(t, a.Status, back.Status)
	assert.Equal(t, a.ShadowPrices, back.ShadowPrices)
	for label, want := range a.Ranges {
		got, ok := back.Ranges[label]
		require.True(t, ok, label)
		assert.Equal(t, want.Index, got.Index)
		assert.Equal(t, want.Increase, got.Increase, label)
		assert.Equal(t, want.Decrease, got.Decrease, label)
	}

	// Сценарий по восстановленному анализу совпадает со сценарием по исходному
	deltas := engine.ScenarioDelta{"R2": 3, "R3": -1}
	want, err := engine.EvaluateScenario(a, deltas)
	require.NoError(t, err)
	got, err := engine.EvaluateScenario(back, deltas)
	require.NoError(t, err)
	assert.Equal(t, want.NewProfit, got.NewProfit)
	assert.Equal(t, want.AllFeasible, got.AllFeasible)
}

func TestToEngineAnalysis_InvalidStored(t *testing.T) {
	model, err := wyndorProblem().Build()
	require.NoError(t, err)

	_, err = toEngineAnalysis(&sensitivityv1.AnalysisResult{Status: "Solved"}, model)
	assert.Error(t, err)

	_, err = toEngineAnalysis(&sensitivityv1.AnalysisResult{
		Status: "Optimal",
		Ranges: []sensitivityv1.RangeResult{{Label: "C1"}},
	}, model)
	assert.Error(t, err)
}

func TestRecordRoundTrip(t *testing.T) {
	r := toAnalysisResult(wyndorEngineAnalysis(t))
	r.Name = "wyndor"
	r.Cached = true

	rec, err := toRecord(r)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.NumVars)
	assert.Equal(t, 3, rec.NumConstraints)
	require.Len(t, rec.Ranges, 3)
	assert.Nil(t, rec.Ranges[0].Increase, "unbounded limit is stored as NULL")
	require.NotNil(t, rec.Ranges[1].Increase)

	rec.ID = "4f1c2a9e-0000-4000-8000-000000000001"
	rec.CreatedAt = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	back, err := fromRecord(rec)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, back.ID)
	assert.Equal(t, rec.CreatedAt, back.CreatedAt)
	assert.False(t, back.Cached)
	assert.Equal(t, r.Ranges, back.Ranges)
	assert.Equal(t, r.Problem, back.Problem)
}

func TestFromRecord_RangesFromTable(t *testing.T) {
	r := toAnalysisResult(wyndorEngineAnalysis(t))
	rec, err := toRecord(r)
	require.NoError(t, err)
	rec.ID = "4f1c2a9e-0000-4000-8000-000000000002"

	// Строки analysis_ranges приоритетнее копии в JSON результата
	inc := 1.5
	rec.Ranges[1].Increase = &inc
	rec.Ranges[2].Decrease = nil

	back, err := fromRecord(rec)
	require.NoError(t, err)
	require.Len(t, back.Ranges, 3)

	assert.Equal(t, sensitivityv1.Limit{Value: 1.5}, back.Ranges[1].IncreaseLimit)
	assert.True(t, back.Ranges[2].DecreaseLimit.Unbounded)
	assert.Regexp(t, `^\[-Inf;`, back.Ranges[2].Interval)
	assert.Equal(t, r.Ranges[1].Probes, back.Ranges[1].Probes)
	assert.Equal(t, r.Ranges[0], back.Ranges[0])
}

func TestFromRecord_WithoutRangeRows(t *testing.T) {
	r := toAnalysisResult(wyndorEngineAnalysis(t))
	rec, err := toRecord(r)
	require.NoError(t, err)
	rec.Ranges = nil

	back, err := fromRecord(rec)
	require.NoError(t, err)
	assert.Equal(t, r.Ranges, back.Ranges)
}

func TestToScenarioResult(t *testing.T) {
	a := wyndorEngineAnalysis(t)
	rep, err := engine.EvaluateScenario(a, engine.ScenarioDelta{"R3": 2})
	require.NoError(t, err)

	s := toScenarioResult(rep, "id-1")
	assert.Equal(t, "id-1", s.AnalysisID)
	require.Len(t, s.PerConstraint, 1)
	assert.Equal(t, "+2.00 (1.00 * 2.00)", s.PerConstraint[0].Formula)
	assert.InDelta(t, 38.0, s.NewProfit, lp.Epsilon)
}
