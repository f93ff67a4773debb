package lp

import (
	"fmt"
	"math"
)

// Status - итоговое состояние решения
type Status int

const (
	StatusUndefined Status = iota
	StatusOptimal
	StatusInfeasible
	StatusUnbounded
)

var statusNames = map[Status]string{
	StatusUndefined:  "Undefined",
	StatusOptimal:    "Optimal",
	StatusInfeasible: "Infeasible",
	StatusUnbounded:  "Unbounded",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// ParseStatus разбирает строковое представление статуса
func ParseStatus(s string) (Status, error) {
	for st, name := range statusNames {
		if name == s {
			return st, nil
		}
	}
	return StatusUndefined, fmt.Errorf("unknown status %q", s)
}

// MarshalText реализует encoding.TextMarshaler
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText реализует encoding.TextUnmarshaler
func (s *Status) UnmarshalText(b []byte) error {
	st, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// Solution - оптимальное решение. Primal индексируется переменными,
// Dual - ограничениями; Dual[i] = d(прибыль)/d(rhs_i) для любого отношения.
type Solution struct {
	Objective float64
	Primal    []float64
	Dual      []float64
}

// Result - результат решения. Solution заполнен только при StatusOptimal.
type Result struct {
	Status     Status
	Solution   *Solution
	Iterations int
	Message    string
}

// Optimal возвращает решение, если статус Optimal
func (r *Result) Optimal() (*Solution, bool) {
	if r == nil || r.Status != StatusOptimal || r.Solution == nil {
		return nil, false
	}
	return r.Solution, true
}

// Variables возвращает значения переменных по именам (x1, x2, ...)
func (s *Solution) Variables() map[string]float64 {
	out := make(map[string]float64, len(s.Primal))
	for j, v := range s.Primal {
		out[VariableName(j)] = v
	}
	return out
}

// ShadowPrices возвращает двойственные оценки по меткам (R1, R2, ...)
func (s *Solution) ShadowPrices() map[string]float64 {
	out := make(map[string]float64, len(s.Dual))
	for i, v := range s.Dual {
		out[ConstraintLabel(i)] = v
	}
	return out
}

func optimal(objective float64, primal, dual []float64, iterations int) *Result {
	return &Result{
		Status: StatusOptimal,
		Solution: &Solution{
			Objective: clean(objective),
			Primal:    cleanAll(primal),
			Dual:      cleanAll(dual),
		},
		Iterations: iterations,
	}
}

func terminal(status Status, iterations int, msg string) *Result {
	return &Result{Status: status, Iterations: iterations, Message: msg}
}

// clean убирает вычислительный шум около нуля и отрицательный ноль
func clean(v float64) float64 {
	if math.Abs(v) < 1e-9 {
		return 0
	}
	return v
}

func cleanAll(vs []float64) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = clean(v)
	}
	return out
}
