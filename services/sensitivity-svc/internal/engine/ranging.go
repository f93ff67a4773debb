// services/sensitivity-svc/internal/engine/ranging.go
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"production/pkg/apperror"
	"production/pkg/logger"
	"production/pkg/lp"
)

// Direction - направление изменения правой части
type Direction int

const (
	Increase Direction = 1
	Decrease Direction = -1
)

func (d Direction) String() string {
	if d == Decrease {
		return "decrease"
	}
	return "increase"
}

// SearchState - состояние поиска границы в одном направлении
type SearchState string

const (
	StateExpanding SearchState = "expanding"
	StateBracketed SearchState = "bracketed"
	StateRefining  SearchState = "refining"
	StateDone      SearchState = "done"
	StateUnbounded SearchState = "unbounded"
)

const unboundedText = "unbounded"

// Limit - допустимое изменение правой части: конечное неотрицательное число либо без ограничения
type Limit struct {
	Value     float64
	Unbounded bool
}

// Finite создаёт конечную границу
func Finite(v float64) Limit { return Limit{Value: v} }

// NoLimit - граница, не найденная в пределах горизонта поиска
var NoLimit = Limit{Unbounded: true}

// Allows проверяет, укладывается ли |delta| в границу с допуском lp.Epsilon
func (l Limit) Allows(delta float64) bool {
	return l.Unbounded || math.Abs(delta) <= l.Value+lp.Epsilon
}

func (l Limit) String() string {
	if l.Unbounded {
		return unboundedText
	}
	return strconv.FormatFloat(l.Value, 'f', 4, 64)
}

// MarshalJSON - число или строка "unbounded"
func (l Limit) MarshalJSON() ([]byte, error) {
	if l.Unbounded {
		return json.Marshal(unboundedText)
	}
	return json.Marshal(l.Value)
}

// UnmarshalJSON принимает число или строку "unbounded"
func (l *Limit) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if s != unboundedText {
			return fmt.Errorf("invalid limit %q", s)
		}
		*l = NoLimit
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("invalid limit: %w", err)
	}
	*l = Finite(v)
	return nil
}

// Range - диапазон допустимости правой части одного ограничения
type Range struct {
	Label       string  `json:"label"`
	Index       int     `json:"index"`
	CurrentRHS  float64 `json:"currentRhs"`
	ShadowPrice float64 `json:"shadowPrice"`
	Increase    Limit   `json:"increaseLimit"`
	Decrease    Limit   `json:"decreaseLimit"`
}

// Limit возвращает границу для направления изменения
func (r Range) Limit(dir Direction) Limit {
	if dir == Decrease {
		return r.Decrease
	}
	return r.Increase
}

// LowerRHS - минимальная правая часть, при которой оценка сохраняется
func (r Range) LowerRHS() (float64, bool) {
	if r.Decrease.Unbounded {
		return math.Inf(-1), false
	}
	return r.CurrentRHS - r.Decrease.Value, true
}

// UpperRHS - максимальная правая часть, при которой оценка сохраняется
func (r Range) UpperRHS() (float64, bool) {
	if r.Increase.Unbounded {
		return math.Inf(1), false
	}
	return r.CurrentRHS + r.Increase.Value, true
}

// Interval - запись диапазона вида [min;max]
func (r Range) Interval() string {
	lo, hi := "-Inf", "+Inf"
	if v, ok := r.LowerRHS(); ok {
		lo = strconv.FormatFloat(v, 'f', 2, 64)
	}
	if v, ok := r.UpperRHS(); ok {
		hi = strconv.FormatFloat(v, 'f', 2, 64)
	}
	return "[" + lo + ";" + hi + "]"
}

// SearchTrace - протокол поиска границы в одном направлении
type SearchTrace struct {
	Label        string      `json:"label"`
	Direction    string      `json:"direction"`
	State        SearchState `json:"state"`
	Probes       int         `json:"probes"`
	ValidProbes  int         `json:"validProbes"`
	FailedProbes int         `json:"failedProbes"`
	Low          float64     `json:"low"`
	High         float64     `json:"high"` // 0, если некорректная проба не встретилась
}

// SearchOptions - параметры поиска
type SearchOptions struct {
	ExpansionProbes     int
	BisectionIterations int
	InitialStep         float64
}

// DefaultSearchOptions возвращает стандартные параметры: 20 шагов расширения, 15 бисекций, шаг 1
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		ExpansionProbes:     20,
		BisectionIterations: 15,
		InitialStep:         1.0,
	}
}

func (o SearchOptions) normalized() SearchOptions {
	d := DefaultSearchOptions()
	if o.ExpansionProbes <= 0 {
		o.ExpansionProbes = d.ExpansionProbes
	}
	if o.BisectionIterations < 0 {
		o.BisectionIterations = d.BisectionIterations
	}
	if o.InitialStep <= 0 {
		o.InitialStep = d.InitialStep
	}
	return o
}

// RangeSearch ищет наибольшее изменение правой части, при котором
// двойственная оценка ограничения не меняется. Решатель используется как чёрный ящик.
type RangeSearch struct {
	solver lp.Solver
	opts   SearchOptions
}

// NewRangeSearch создаёт поиск диапазонов
func NewRangeSearch(solver lp.Solver, opts SearchOptions) *RangeSearch {
	return &RangeSearch{solver: solver, opts: opts.normalized()}
}

// Options возвращает параметры поиска
func (s *RangeSearch) Options() SearchOptions {
	return s.opts
}

// Search находит границу для ограничения index в направлении dir.
// Расширение: пробы 1, 3, 7, ... (шаг удваивается); если все пробы корректны,
// граница не ограничена. Иначе бисекция между последней корректной и первой
// некорректной пробой. Базовая модель не изменяется.
func (s *RangeSearch) Search(ctx context.Context, model *lp.Model, index int, baseline float64, dir Direction) (Limit, SearchTrace, error) {
	trace := SearchTrace{
		Label:     lp.ConstraintLabel(index),
		Direction: dir.String(),
		State:     StateExpanding,
	}
	if model == nil {
		return Limit{}, trace, apperror.ErrNilModel
	}
	if index < 0 || index >= model.NumConstraints() {
		return Limit{}, trace, apperror.Newf(apperror.CodeUnknownConstraint, "constraint index %d out of range", index)
	}

	rhs := model.RHS(index)
	log := logger.WithConstraint(ctx, trace.Label, trace.Direction)

	// Проба корректна, если задача оптимальна и оценка не изменилась.
	// Ошибка решателя - некорректная проба, а не ошибка поиска.
	probe := func(delta float64) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		trace.Probes++

		perturbed, err := model.WithRHS(index, rhs+float64(dir)*delta)
		if err != nil {
			trace.FailedProbes++
			return false, nil
		}
		res, err := s.solver.Solve(ctx, perturbed)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return false, ctxErr
			}
			trace.FailedProbes++
			log.Debug("Probe solve failed", "delta", delta, "error", err)
			return false, nil
		}
		sol, ok := res.Optimal()
		if !ok {
			return false, nil
		}
		if !Unchanged(sol.Dual[index], baseline) {
			return false, nil
		}
		trace.ValidProbes++
		return true, nil
	}

	low, high := 0.0, math.NaN()
	step, delta := s.opts.InitialStep, 0.0
	for k := 0; k < s.opts.ExpansionProbes; k++ {
		delta += step
		step *= 2

		valid, err := probe(delta)
		if err != nil {
			return Limit{}, trace, err
		}
		if !valid {
			high = delta
			break
		}
		low = delta
	}

	if math.IsNaN(high) {
		trace.State = StateUnbounded
		trace.Low = low
		return NoLimit, trace, nil
	}

	trace.State = StateBracketed
	best := low

	trace.State = StateRefining
	for k := 0; k < s.opts.BisectionIterations; k++ {
		mid := (low + high) / 2
		valid, err := probe(mid)
		if err != nil {
			return Limit{}, trace, err
		}
		if valid {
			low, best = mid, mid
		} else {
			high = mid
		}
	}

	trace.State = StateDone
	trace.Low, trace.High = low, high
	return Finite(best), trace, nil
}
