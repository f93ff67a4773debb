// services/sensitivity-svc/internal/engine/shadow.go
package engine

import (
	"math"

	"production/pkg/apperror"
	"production/pkg/lp"
)

// ShadowPrices - двойственные оценки по меткам ограничений
type ShadowPrices map[string]float64

// ExtractShadowPrices возвращает оценки оптимального результата.
// Для остальных статусов оценки не определены и возвращается ошибка.
func ExtractShadowPrices(res *lp.Result) (ShadowPrices, error) {
	if res == nil {
		return nil, apperror.New(apperror.CodeNilInput, "solve result is nil")
	}

	switch res.Status {
	case lp.StatusOptimal:
		sol, ok := res.Optimal()
		if !ok {
			return nil, apperror.New(apperror.CodeSolverFailure, "optimal result without solution")
		}
		return ShadowPrices(sol.ShadowPrices()), nil
	case lp.StatusInfeasible:
		return nil, apperror.ErrInfeasible
	case lp.StatusUnbounded:
		return nil, apperror.ErrUnbounded
	default:
		return nil, apperror.New(apperror.CodeSolverFailure, "solve status is undefined")
	}
}

// Unchanged сообщает, совпадают ли две оценки с допуском lp.Epsilon
func Unchanged(a, b float64) bool {
	return math.Abs(a-b) < lp.Epsilon
}
