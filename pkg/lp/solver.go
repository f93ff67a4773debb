package lp

import (
	"context"
	"fmt"
)

// Epsilon - общий допуск сравнения двойственных оценок.
// Одно и то же значение используют поиск диапазонов и оценка сценариев.
const Epsilon = 1e-5

// DefaultMaxIterations - лимит итераций симплекса на одну фазу
const DefaultMaxIterations = 10000

// Имена решателей
const (
	SolverTableau = "tableau"
	SolverGonum   = "gonum"
)

// Solver решает модель. Ошибка возвращается только вместе со StatusUndefined
// или при отмене контекста; Infeasible и Unbounded - штатные результаты.
type Solver interface {
	Solve(ctx context.Context, m *Model) (*Result, error)
	Name() string
}

// SolverOptions - общие параметры решателей
type SolverOptions struct {
	MaxIterations int
}

// SolverOption настраивает решатель
type SolverOption func(*SolverOptions)

// WithMaxIterations ограничивает число итераций
func WithMaxIterations(n int) SolverOption {
	return func(o *SolverOptions) {
		if n > 0 {
			o.MaxIterations = n
		}
	}
}

// NewSolver создаёт решатель по имени
func NewSolver(name string, opts ...SolverOption) (Solver, error) {
	switch name {
	case "", SolverTableau:
		return NewTableauSolver(opts...), nil
	case SolverGonum:
		return NewReferenceSolver(opts...), nil
	default:
		return nil, fmt.Errorf("unknown solver %q", name)
	}
}
