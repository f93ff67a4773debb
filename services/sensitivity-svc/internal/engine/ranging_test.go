// services/sensitivity-svc/internal/engine/ranging_test.go
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"production/pkg/apperror"
	"production/pkg/lp"
)

// ============================================================
// LIMIT
// ============================================================

func TestLimit_Allows(t *testing.T) {
	l := Finite(2)
	assert.True(t, l.Allows(2))
	assert.True(t, l.Allows(-2))
	assert.True(t, l.Allows(2+lp.Epsilon/2))
	assert.False(t, l.Allows(2.01))
	assert.True(t, NoLimit.Allows(1e12))
}

func TestLimit_JSON(t *testing.T) {
	data, err := json.Marshal(Finite(6))
	require.NoError(t, err)
	assert.Equal(t, "6", string(data))

	data, err = json.Marshal(NoLimit)
	require.NoError(t, err)
	assert.Equal(t, `"unbounded"`, string(data))

	var l Limit
	require.NoError(t, json.Unmarshal([]byte(`"unbounded"`), &l))
	assert.True(t, l.Unbounded)
	require.NoError(t, json.Unmarshal([]byte(`2.5`), &l))
	assert.Equal(t, Finite(2.5), l)
	assert.Error(t, json.Unmarshal([]byte(`"infinite"`), &l))
}

func TestRange_Interval(t *testing.T) {
	r := Range{CurrentRHS: 4, Increase: NoLimit, Decrease: Finite(2)}
	assert.Equal(t, "[2.00;+Inf]", r.Interval())

	lo, ok := r.LowerRHS()
	assert.True(t, ok)
	assert.Equal(t, 2.0, lo)
	hi, ok := r.UpperRHS()
	assert.False(t, ok)
	assert.True(t, math.IsInf(hi, 1))

	r = Range{CurrentRHS: 12, Increase: Finite(6), Decrease: Finite(6)}
	assert.Equal(t, "[6.00;18.00]", r.Interval())
	assert.Equal(t, Finite(6), r.Limit(Decrease))
}

// ============================================================
// SEARCH
// ============================================================

func searchBoth(t *testing.T, s *RangeSearch, m *lp.Model, index int) (Limit, Limit) {
	t.Helper()
	res, err := lp.NewTableauSolver().Solve(context.Background(), m)
	require.NoError(t, err)
	sol, ok := res.Optimal()
	require.True(t, ok)

	inc, _, err := s.Search(context.Background(), m, index, sol.Dual[index], Increase)
	require.NoError(t, err)
	dec, _, err := s.Search(context.Background(), m, index, sol.Dual[index], Decrease)
	require.NoError(t, err)
	return inc, dec
}

func TestRangeSearch_Wyndor(t *testing.T) {
	s := NewRangeSearch(lp.NewTableauSolver(), DefaultSearchOptions())
	m := wyndorModel(t)

	tests := []struct {
		label    string
		index    int
		inc, dec float64 // NaN - без ограничения
	}{
		{"R1", 0, math.NaN(), 2},
		{"R2", 1, 6, 6},
		{"R3", 2, 6, 6},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			inc, dec := searchBoth(t, s, m, tt.index)
			if math.IsNaN(tt.inc) {
				assert.True(t, inc.Unbounded)
			} else {
				require.False(t, inc.Unbounded)
				assert.InDelta(t, tt.inc, inc.Value, rangeTol)
			}
			require.False(t, dec.Unbounded)
			assert.InDelta(t, tt.dec, dec.Value, rangeTol)
		})
	}
}

func TestRangeSearch_GreaterEqual(t *testing.T) {
	s := NewRangeSearch(lp.NewTableauSolver(), DefaultSearchOptions())
	inc, dec := searchBoth(t, s, mixedModel(t), 2)

	require.False(t, inc.Unbounded)
	require.False(t, dec.Unbounded)
	assert.InDelta(t, 2.0, inc.Value, rangeTol)
	assert.InDelta(t, 1.0, dec.Value, rangeTol)
}

func TestRangeSearch_LimitIsTight(t *testing.T) {
	solver := lp.NewTableauSolver()
	s := NewRangeSearch(solver, DefaultSearchOptions())
	m := wyndorModel(t)

	limit, trace, err := s.Search(context.Background(), m, 1, 1.5, Increase)
	require.NoError(t, err)
	require.False(t, limit.Unbounded)
	assert.Equal(t, StateDone, trace.State)
	assert.Greater(t, trace.High, trace.Low)

	// на самой границе оценка сохраняется
	atLimit, err := m.WithRHS(1, m.RHS(1)+limit.Value)
	require.NoError(t, err)
	res, err := solver.Solve(context.Background(), atLimit)
	require.NoError(t, err)
	sol, ok := res.Optimal()
	require.True(t, ok)
	assert.True(t, Unchanged(sol.Dual[1], 1.5))

	// за границей - нет
	beyond, err := m.WithRHS(1, m.RHS(1)+limit.Value+rangeTol)
	require.NoError(t, err)
	res, err = solver.Solve(context.Background(), beyond)
	require.NoError(t, err)
	sol, ok = res.Optimal()
	require.True(t, ok)
	assert.False(t, Unchanged(sol.Dual[1], 1.5))
}

func TestRangeSearch_Unbounded(t *testing.T) {
	s := NewRangeSearch(lp.NewTableauSolver(), DefaultSearchOptions())
	m := wyndorModel(t)

	limit, trace, err := s.Search(context.Background(), m, 0, 0, Increase)
	require.NoError(t, err)
	assert.True(t, limit.Unbounded)
	assert.Equal(t, StateUnbounded, trace.State)
	assert.Equal(t, 20, trace.Probes)
	assert.Equal(t, 0.0, trace.High)

	// 1 + 2 + ... + 2^19
	assert.InDelta(t, math.Pow(2, 20)-1, trace.Low, 1e-9)
}

func TestRangeSearch_ProbeCount(t *testing.T) {
	s := NewRangeSearch(lp.NewTableauSolver(), SearchOptions{
		ExpansionProbes:     20,
		BisectionIterations: 5,
		InitialStep:         1,
	})

	// R2 вверх: пробы 1, 3 корректны, 7 - нет, затем 5 бисекций
	_, trace, err := s.Search(context.Background(), wyndorModel(t), 1, 1.5, Increase)
	require.NoError(t, err)
	assert.Equal(t, 3+5, trace.Probes)
	assert.Equal(t, 0, trace.FailedProbes)
	assert.Equal(t, "R2", trace.Label)
	assert.Equal(t, "increase", trace.Direction)
}

func TestRangeSearch_SolverErrorIsInvalidProbe(t *testing.T) {
	// решатель отказывает при R1 > 6; для R1 это эквивалентно границе +2
	solver := NewMockSolver().WithHook(func(_ int64, _ context.Context, m *lp.Model) (*lp.Result, bool, error) {
		if m.RHS(0) > 6 {
			return nil, true, errSolverBroken
		}
		return nil, false, nil
	})
	s := NewRangeSearch(solver, DefaultSearchOptions())

	limit, trace, err := s.Search(context.Background(), wyndorModel(t), 0, 0, Increase)
	require.NoError(t, err)
	require.False(t, limit.Unbounded)
	assert.InDelta(t, 2.0, limit.Value, rangeTol)
	assert.Greater(t, trace.FailedProbes, 0)
}

func TestRangeSearch_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewRangeSearch(lp.NewTableauSolver(), DefaultSearchOptions())
	_, _, err := s.Search(ctx, wyndorModel(t), 1, 1.5, Increase)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRangeSearch_BadInput(t *testing.T) {
	s := NewRangeSearch(lp.NewTableauSolver(), DefaultSearchOptions())

	_, _, err := s.Search(context.Background(), nil, 0, 0, Increase)
	assert.Equal(t, apperror.CodeNilInput, apperror.Code(err))

	_, _, err = s.Search(context.Background(), wyndorModel(t), 3, 0, Increase)
	assert.Equal(t, apperror.CodeUnknownConstraint, apperror.Code(err))
}

func TestRangeSearch_DoesNotMutateModel(t *testing.T) {
	m := wyndorModel(t)
	before := m.Problem()

	s := NewRangeSearch(lp.NewTableauSolver(), DefaultSearchOptions())
	searchBoth(t, s, m, 2)

	assert.Equal(t, before, m.Problem())
}

func TestSearchOptions_Normalized(t *testing.T) {
	// ноль бисекций допустим: граница равна последней корректной пробе расширения
	s := NewRangeSearch(lp.NewTableauSolver(), SearchOptions{})
	assert.Equal(t, SearchOptions{ExpansionProbes: 20, BisectionIterations: 0, InitialStep: 1}, s.Options())

	s = NewRangeSearch(lp.NewTableauSolver(), SearchOptions{BisectionIterations: -1})
	assert.Equal(t, DefaultSearchOptions(), s.Options())

	s = NewRangeSearch(lp.NewTableauSolver(), SearchOptions{ExpansionProbes: 5, BisectionIterations: 0, InitialStep: 0.5})
	assert.Equal(t, SearchOptions{ExpansionProbes: 5, BisectionIterations: 0, InitialStep: 0.5}, s.Options())
}
