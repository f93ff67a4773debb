package lp

import (
	"context"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"production/pkg/apperror"
)

const (
	pivotTol       = 1e-9
	ratioTieTol    = 1e-12
	feasibilityTol = 1e-7
	residualTol    = 1e-6
)

type columnKind int

const (
	colStructural columnKind = iota
	colSlack
	colSurplus
	colArtificial
)

// TableauSolver - двухфазный табличный симплекс с правилом Бланда.
// Детерминирован: одна и та же модель всегда даёт побитово одинаковый результат.
type TableauSolver struct {
	opts SolverOptions
}

// NewTableauSolver создаёт встроенный решатель
func NewTableauSolver(opts ...SolverOption) *TableauSolver {
	o := SolverOptions{MaxIterations: DefaultMaxIterations}
	for _, opt := range opts {
		opt(&o)
	}
	return &TableauSolver{opts: o}
}

// Name возвращает имя решателя
func (s *TableauSolver) Name() string { return SolverTableau }

// Solve решает модель
func (s *TableauSolver) Solve(ctx context.Context, model *Model) (*Result, error) {
	if model == nil {
		return terminal(StatusUndefined, 0, "nil model"), apperror.ErrNilModel
	}
	if err := ctx.Err(); err != nil {
		return terminal(StatusUndefined, 0, err.Error()), err
	}

	// Без ограничений: либо всё в нуле, либо прибыль растёт неограниченно
	if model.NumConstraints() == 0 {
		for _, c := range model.objective {
			if c > 0 {
				return terminal(StatusUnbounded, 0, ""), nil
			}
		}
		return optimal(0, make([]float64, model.NumVars()), nil, 0), nil
	}

	tb := newTableau(model, s.opts.MaxIterations)

	// Фаза I: минимизируем сумму искусственных переменных
	if tb.hasArtificial() {
		cost := make([]float64, tb.cols)
		for j, k := range tb.kind {
			if k == colArtificial {
				cost[j] = -1
			}
		}
		tb.setObjective(cost)
		if _, err := tb.optimize(ctx, func(int) bool { return true }); err != nil {
			return terminal(StatusUndefined, tb.iterations, err.Error()), err
		}
		if tb.obj[tb.cols] < -feasibilityTol*tb.scale {
			return terminal(StatusInfeasible, tb.iterations, ""), nil
		}
		tb.evictArtificials()
	}

	// Фаза II: исходная целевая функция, искусственные столбцы не входят в базис
	cost := make([]float64, tb.cols)
	copy(cost, model.objective)
	tb.setObjective(cost)
	bounded, err := tb.optimize(ctx, func(j int) bool { return tb.kind[j] != colArtificial })
	if err != nil {
		return terminal(StatusUndefined, tb.iterations, err.Error()), err
	}
	if !bounded {
		return terminal(StatusUnbounded, tb.iterations, ""), nil
	}

	primal, dual := tb.extract()
	objective := floats.Dot(model.objective, primal)

	if !allFinite(primal) || !allFinite(dual) || math.IsNaN(objective) {
		err := apperror.New(apperror.CodeSolverFailure, "non-finite values in solution")
		return terminal(StatusUndefined, tb.iterations, err.Message), err
	}
	if i, ok := checkResiduals(model, primal, tb.scale); !ok {
		err := apperror.Newf(apperror.CodeSolverFailure, "solution violates %s beyond tolerance", ConstraintLabel(i))
		return terminal(StatusUndefined, tb.iterations, err.Message), err
	}

	return optimal(objective, primal, dual, tb.iterations), nil
}

// tableau хранит B^-1·[A|b] в плотной матрице m x (cols+1);
// obj - строка оценок z_j - c_j, последний элемент - значение цели.
type tableau struct {
	m, n  int
	cols  int
	t     *mat.Dense
	obj   []float64
	basis []int
	kind  []columnKind
	// unitCol[i] - столбец, который в исходной таблице равен e_i (slack или искусственный)
	unitCol []int
	// sign[i] = -1, если строка была умножена на -1 ради rhs >= 0
	sign       []float64
	scale      float64
	iterations int
	maxIter    int
}

func newTableau(model *Model, maxIter int) *tableau {
	m, n := model.NumConstraints(), model.NumVars()

	rels := make([]Relation, m)
	sign := make([]float64, m)
	scale := 1.0
	cols := n
	for i, c := range model.constraints {
		rel, sg := c.Relation, 1.0
		if c.RHS < 0 {
			sg = -1
			switch rel {
			case LessEqual:
				rel = GreaterEqual
			case GreaterEqual:
				rel = LessEqual
			}
		}
		rels[i], sign[i] = rel, sg
		scale = math.Max(scale, math.Abs(c.RHS))
		if rel == GreaterEqual {
			cols += 2
		} else {
			cols++
		}
	}

	tb := &tableau{
		m:       m,
		n:       n,
		cols:    cols,
		t:       mat.NewDense(m, cols+1, nil),
		obj:     make([]float64, cols+1),
		basis:   make([]int, m),
		kind:    make([]columnKind, cols),
		unitCol: make([]int, m),
		sign:    sign,
		scale:   scale,
		maxIter: maxIter,
	}

	next := n
	for i, c := range model.constraints {
		row := tb.t.RawRowView(i)
		for j, a := range c.Coefficients {
			row[j] = sign[i] * a
		}
		row[cols] = sign[i] * c.RHS

		switch rels[i] {
		case LessEqual:
			row[next] = 1
			tb.kind[next] = colSlack
			tb.unitCol[i], tb.basis[i] = next, next
			next++
		case GreaterEqual:
			row[next] = -1
			tb.kind[next] = colSurplus
			row[next+1] = 1
			tb.kind[next+1] = colArtificial
			tb.unitCol[i], tb.basis[i] = next+1, next+1
			next += 2
		case Equal:
			row[next] = 1
			tb.kind[next] = colArtificial
			tb.unitCol[i], tb.basis[i] = next, next
			next++
		}
	}
	return tb
}

func (tb *tableau) hasArtificial() bool {
	for _, k := range tb.kind {
		if k == colArtificial {
			return true
		}
	}
	return false
}

// setObjective пересчитывает строку оценок для текущего базиса
func (tb *tableau) setObjective(cost []float64) {
	for j := 0; j < tb.cols; j++ {
		tb.obj[j] = -cost[j]
	}
	tb.obj[tb.cols] = 0
	for i, b := range tb.basis {
		if cb := cost[b]; cb != 0 {
			floats.AddScaled(tb.obj, cb, tb.t.RawRowView(i))
		}
	}
}

// optimize выполняет итерации симплекса; false - целевая функция не ограничена
func (tb *tableau) optimize(ctx context.Context, allowed func(int) bool) (bool, error) {
	rhs := tb.cols
	for steps := 0; ; steps++ {
		if steps >= tb.maxIter {
			return false, apperror.Newf(apperror.CodeIterationLimit, "simplex did not converge in %d iterations", tb.maxIter)
		}
		if steps%64 == 0 {
			if err := ctx.Err(); err != nil {
				return false, err
			}
		}

		// Правило Бланда: входит столбец с наименьшим индексом
		enter := -1
		for j := 0; j < tb.cols; j++ {
			if tb.obj[j] < -pivotTol && allowed(j) {
				enter = j
				break
			}
		}
		if enter < 0 {
			return true, nil
		}

		leave := -1
		best := math.Inf(1)
		for i := 0; i < tb.m; i++ {
			a := tb.t.At(i, enter)
			if a <= pivotTol {
				continue
			}
			ratio := tb.t.At(i, rhs) / a
			if ratio < best-ratioTieTol || (ratio <= best+ratioTieTol && tb.basis[i] < tb.basis[leave]) {
				best, leave = ratio, i
			}
		}
		if leave < 0 {
			return false, nil
		}

		tb.pivot(leave, enter)
	}
}

func (tb *tableau) pivot(r, c int) {
	rhs := tb.cols
	row := tb.t.RawRowView(r)
	floats.Scale(1/row[c], row)
	row[c] = 1

	for i := 0; i < tb.m; i++ {
		if i == r {
			continue
		}
		other := tb.t.RawRowView(i)
		if f := other[c]; f != 0 {
			floats.AddScaled(other, -f, row)
			other[c] = 0
		}
		if math.Abs(other[rhs]) < ratioTieTol {
			other[rhs] = 0
		}
	}
	if f := tb.obj[c]; f != 0 {
		floats.AddScaled(tb.obj, -f, row)
		tb.obj[c] = 0
	}

	tb.basis[r] = c
	tb.iterations++
}

// evictArtificials выводит искусственные переменные нулевого уровня из базиса.
// Строка без ненулевых неискусственных коэффициентов избыточна и остаётся как есть.
func (tb *tableau) evictArtificials() {
	for r := 0; r < tb.m; r++ {
		if tb.kind[tb.basis[r]] != colArtificial {
			continue
		}
		row := tb.t.RawRowView(r)
		for j := 0; j < tb.cols; j++ {
			if tb.kind[j] == colArtificial || math.Abs(row[j]) <= pivotTol {
				continue
			}
			row[tb.cols] = 0
			tb.pivot(r, j)
			break
		}
	}
}

func (tb *tableau) extract() (primal, dual []float64) {
	primal = make([]float64, tb.n)
	for i, b := range tb.basis {
		if b < tb.n {
			primal[b] = math.Max(0, tb.t.At(i, tb.cols))
		}
	}
	// y_i = c_B·B^-1·e_i - оценка единичного столбца строки i (его цена равна нулю)
	dual = make([]float64, tb.m)
	for i := range dual {
		dual[i] = tb.sign[i] * tb.obj[tb.unitCol[i]]
	}
	return primal, dual
}

func checkResiduals(model *Model, x []float64, scale float64) (int, bool) {
	tol := residualTol * scale
	for i, c := range model.constraints {
		lhs := floats.Dot(c.Coefficients, x)
		switch c.Relation {
		case LessEqual:
			if lhs > c.RHS+tol {
				return i, false
			}
		case GreaterEqual:
			if lhs < c.RHS-tol {
				return i, false
			}
		case Equal:
			if math.Abs(lhs-c.RHS) > tol {
				return i, false
			}
		}
	}
	return -1, true
}

func allFinite(vs []float64) bool {
	for _, v := range vs {
		if !finite(v) {
			return false
		}
	}
	return true
}
