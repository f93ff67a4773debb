// Package lp описывает модель задачи линейного программирования
// (максимизация прибыли при линейных ограничениях ресурсов) и решатели для неё.
package lp

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"production/pkg/apperror"
)

// Допустимое число переменных по умолчанию (ограничение формы ввода)
const (
	DefaultMinVariables   = 2
	DefaultMaxVariables   = 4
	DefaultMaxConstraints = 20
)

// Relation - отношение ограничения
type Relation string

const (
	LessEqual    Relation = "<="
	GreaterEqual Relation = ">="
	Equal        Relation = "="
)

// ParseRelation разбирает отношение, допуская распространённые варианты записи
func ParseRelation(s string) (Relation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "<=", "≤", "le", "lte":
		return LessEqual, nil
	case ">=", "≥", "ge", "gte":
		return GreaterEqual, nil
	case "=", "==", "eq":
		return Equal, nil
	}
	return "", apperror.Newf(apperror.CodeInvalidRelation, "unknown relation %q", s)
}

// Valid проверяет отношение
func (r Relation) Valid() bool {
	return r == LessEqual || r == GreaterEqual || r == Equal
}

// Constraint - одно линейное ограничение: coefficients · x (relation) rhs
type Constraint struct {
	Coefficients []float64 `json:"coefficients" yaml:"coefficients"`
	Relation     Relation  `json:"relation" yaml:"relation"`
	RHS          float64   `json:"rhs" yaml:"rhs"`
}

func (c Constraint) clone() Constraint {
	out := c
	out.Coefficients = append([]float64(nil), c.Coefficients...)
	return out
}

// Problem - внешнее представление задачи (ввод API, CLI, хранение)
type Problem struct {
	NumVars     int          `json:"numVars" yaml:"num_vars"`
	Objective   []float64    `json:"objective" yaml:"objective"`
	Constraints []Constraint `json:"constraints" yaml:"constraints"`
}

// Build собирает модель из задачи
func (p Problem) Build(opts ...BuildOption) (*Model, error) {
	return Build(p.NumVars, p.Objective, p.Constraints, opts...)
}

// Model - неизменяемая модель: max objective·x, x >= 0, при ограничениях.
// Все методы возвращают копии, исходная модель никогда не меняется.
type Model struct {
	numVars     int
	objective   []float64
	constraints []Constraint
}

type buildOptions struct {
	minVars        int
	maxVars        int
	maxConstraints int
}

// BuildOption настраивает проверки при сборке модели
type BuildOption func(*buildOptions)

// WithVariableRange задаёт допустимое число переменных; max <= 0 снимает верхнюю границу
func WithVariableRange(min, max int) BuildOption {
	return func(o *buildOptions) {
		o.minVars = min
		o.maxVars = max
	}
}

// WithMaxConstraints ограничивает число ограничений; n <= 0 снимает ограничение
func WithMaxConstraints(n int) BuildOption {
	return func(o *buildOptions) {
		o.maxConstraints = n
	}
}

// Build проверяет размеры и значения и возвращает модель.
// Любое нарушение приводит к ошибке с кодом INVALID_INPUT.
func Build(numVars int, objective []float64, constraints []Constraint, opts ...BuildOption) (*Model, error) {
	o := buildOptions{
		minVars:        DefaultMinVariables,
		maxVars:        DefaultMaxVariables,
		maxConstraints: DefaultMaxConstraints,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.minVars < 1 {
		o.minVars = 1
	}

	ve := apperror.NewValidationErrors()

	if numVars < o.minVars || (o.maxVars > 0 && numVars > o.maxVars) {
		ve.AddErrorWithField(apperror.CodeVariableRange,
			fmt.Sprintf("number of variables %d is outside [%d, %s]", numVars, o.minVars, upperBound(o.maxVars)),
			"numVars")
	}

	if len(objective) != numVars {
		ve.AddErrorWithField(apperror.CodeDimensionMismatch,
			fmt.Sprintf("objective has %d coefficients, expected %d", len(objective), numVars),
			"objective")
	}
	for j, v := range objective {
		if !finite(v) {
			ve.AddErrorWithField(apperror.CodeNonFiniteValue, "objective coefficient is not finite",
				fmt.Sprintf("objective[%d]", j))
		}
	}

	if o.maxConstraints > 0 && len(constraints) > o.maxConstraints {
		ve.AddErrorWithField(apperror.CodeTooManyConstraints,
			fmt.Sprintf("%d constraints exceed the limit of %d", len(constraints), o.maxConstraints),
			"constraints")
	}

	for i, c := range constraints {
		field := fmt.Sprintf("constraints[%d]", i)
		if len(c.Coefficients) != numVars {
			ve.AddErrorWithField(apperror.CodeDimensionMismatch,
				fmt.Sprintf("%s has %d coefficients, expected %d", ConstraintLabel(i), len(c.Coefficients), numVars),
				field+".coefficients")
		}
		for j, v := range c.Coefficients {
			if !finite(v) {
				ve.AddErrorWithField(apperror.CodeNonFiniteValue, "coefficient is not finite",
					fmt.Sprintf("%s.coefficients[%d]", field, j))
			}
		}
		if !c.Relation.Valid() {
			ve.AddErrorWithField(apperror.CodeInvalidRelation,
				fmt.Sprintf("unknown relation %q", c.Relation), field+".relation")
		}
		if !finite(c.RHS) {
			ve.AddErrorWithField(apperror.CodeNonFiniteValue, "rhs is not finite", field+".rhs")
		}
	}

	if ve.HasErrors() {
		first := ve.First()
		return nil, apperror.NewWithField(apperror.CodeInvalidInput, strings.Join(ve.ErrorMessages(), "; "), first.Field).
			WithDetails("violations", ve.ErrorMessages()).
			WithDetails("reason", string(first.Code))
	}

	m := &Model{
		numVars:     numVars,
		objective:   append([]float64(nil), objective...),
		constraints: make([]Constraint, len(constraints)),
	}
	for i, c := range constraints {
		m.constraints[i] = c.clone()
	}
	return m, nil
}

// NumVars возвращает число переменных
func (m *Model) NumVars() int { return m.numVars }

// NumConstraints возвращает число ограничений
func (m *Model) NumConstraints() int { return len(m.constraints) }

// Objective возвращает копию коэффициентов целевой функции
func (m *Model) Objective() []float64 {
	return append([]float64(nil), m.objective...)
}

// Constraint возвращает копию i-го ограничения
func (m *Model) Constraint(i int) Constraint {
	return m.constraints[i].clone()
}

// RHS возвращает правую часть i-го ограничения
func (m *Model) RHS(i int) float64 {
	return m.constraints[i].RHS
}

// Problem возвращает внешнее представление модели
func (m *Model) Problem() Problem {
	p := Problem{
		NumVars:     m.numVars,
		Objective:   m.Objective(),
		Constraints: make([]Constraint, len(m.constraints)),
	}
	for i, c := range m.constraints {
		p.Constraints[i] = c.clone()
	}
	return p
}

// WithRHS возвращает копию модели с изменённой правой частью i-го ограничения
func (m *Model) WithRHS(i int, rhs float64) (*Model, error) {
	if i < 0 || i >= len(m.constraints) {
		return nil, apperror.Newf(apperror.CodeUnknownConstraint, "constraint index %d out of range [0, %d)", i, len(m.constraints))
	}
	if !finite(rhs) {
		return nil, apperror.NewWithField(apperror.CodeNonFiniteValue, "rhs is not finite", ConstraintLabel(i))
	}
	out := &Model{
		numVars:     m.numVars,
		objective:   m.objective,
		constraints: make([]Constraint, len(m.constraints)),
	}
	// objective и коэффициенты не меняются, делим их с исходной моделью
	copy(out.constraints, m.constraints)
	out.constraints[i].RHS = rhs
	return out, nil
}

// Labels возвращает метки ограничений по порядку
func (m *Model) Labels() []string {
	labels := make([]string, len(m.constraints))
	for i := range m.constraints {
		labels[i] = ConstraintLabel(i)
	}
	return labels
}

// VariableName - имя переменной по индексу (x1, x2, ...)
func VariableName(i int) string {
	return "x" + strconv.Itoa(i+1)
}

// ConstraintLabel - метка ограничения по индексу (R1, R2, ...)
func ConstraintLabel(i int) string {
	return "R" + strconv.Itoa(i+1)
}

// ParseConstraintLabel возвращает индекс ограничения по метке
func ParseConstraintLabel(label string) (int, bool) {
	s := strings.TrimSpace(label)
	if len(s) < 2 || (s[0] != 'R' && s[0] != 'r') {
		return 0, false
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil || n < 1 {
		return 0, false
	}
	return n - 1, true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func upperBound(max int) string {
	if max <= 0 {
		return "inf"
	}
	return strconv.Itoa(max)
}
