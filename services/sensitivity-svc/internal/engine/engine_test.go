// services/sensitivity-svc/internal/engine/engine_test.go
package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"production/pkg/logger"
	"production/pkg/lp"
)

// ============================================================
// TEST SETUP
// ============================================================

func init() {
	logger.Init("error")
}

const rangeTol = 1e-3

func le(rhs float64, coef ...float64) lp.Constraint {
	return lp.Constraint{Coefficients: coef, Relation: lp.LessEqual, RHS: rhs}
}

func ge(rhs float64, coef ...float64) lp.Constraint {
	return lp.Constraint{Coefficients: coef, Relation: lp.GreaterEqual, RHS: rhs}
}

func mustModel(t *testing.T, p lp.Problem) *lp.Model {
	t.Helper()
	m, err := p.Build()
	require.NoError(t, err)
	return m
}

// wyndorModel: max 3x1 + 5x2; x1 <= 4; 2x2 <= 12; 3x1 + 2x2 <= 18.
// Оптимум 36 в (2, 6), оценки (0, 1.5, 1).
func wyndorModel(t *testing.T) *lp.Model {
	return mustModel(t, lp.Problem{
		NumVars:     2,
		Objective:   []float64{3, 5},
		Constraints: []lp.Constraint{le(4, 1, 0), le(12, 0, 2), le(18, 3, 2)},
	})
}

// mixedModel: max 3x1 + 2x2; x1 + x2 <= 4; x1 <= 3; x2 >= 2.
// Оптимум 10 в (2, 2), оценки (3, 0, -1).
func mixedModel(t *testing.T) *lp.Model {
	return mustModel(t, lp.Problem{
		NumVars:     2,
		Objective:   []float64{3, 2},
		Constraints: []lp.Constraint{le(4, 1, 1), le(3, 1, 0), ge(2, 0, 1)},
	})
}

func infeasibleModel(t *testing.T) *lp.Model {
	return mustModel(t, lp.Problem{
		NumVars:     2,
		Objective:   []float64{1, 1},
		Constraints: []lp.Constraint{le(2, 1, 1), ge(5, 1, 1)},
	})
}

// ============================================================
// MOCK SOLVER
// ============================================================

// MockSolver оборачивает настоящий решатель и позволяет подменять ответы
type MockSolver struct {
	inner lp.Solver
	calls atomic.Int64

	mu   sync.Mutex
	hook func(call int64, ctx context.Context, m *lp.Model) (*lp.Result, bool, error)
}

func NewMockSolver() *MockSolver {
	return &MockSolver{inner: lp.NewTableauSolver()}
}

// WithHook задаёт перехват: при handled == true возвращается ответ перехвата
func (s *MockSolver) WithHook(h func(call int64, ctx context.Context, m *lp.Model) (*lp.Result, bool, error)) *MockSolver {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = h
	return s
}

func (s *MockSolver) Name() string { return "mock" }

func (s *MockSolver) Solve(ctx context.Context, m *lp.Model) (*lp.Result, error) {
	call := s.calls.Add(1)
	s.mu.Lock()
	hook := s.hook
	s.mu.Unlock()
	if hook != nil {
		if res, handled, err := hook(call, ctx, m); handled {
			return res, err
		}
	}
	return s.inner.Solve(ctx, m)
}

func (s *MockSolver) Calls() int64 { return s.calls.Load() }

var errSolverBroken = errors.New("solver broken")
