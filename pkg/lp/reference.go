package lp

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	gonumlp "gonum.org/v1/gonum/optimize/convex/lp"

	"production/pkg/apperror"
)

const (
	referenceTol = 1e-10
	dependentTol = 1e-9
)

// ReferenceSolver решает модель через gonum: прямая задача в стандартной форме,
// двойственные оценки - решением двойственной задачи той же процедурой.
// Используется как независимая сверка встроенного решателя.
//
// ErrInfeasible от gonum перепроверяется фазой I с явным искусственным базисом;
// при расхождении, вырожденном базисе или панике gonum ответ даёт TableauSolver.
type ReferenceSolver struct {
	tableau *TableauSolver
}

// NewReferenceSolver создаёт решатель на gonum
func NewReferenceSolver(opts ...SolverOption) *ReferenceSolver {
	return &ReferenceSolver{tableau: NewTableauSolver(opts...)}
}

// Name возвращает имя решателя
func (s *ReferenceSolver) Name() string { return SolverGonum }

// Solve решает модель
func (s *ReferenceSolver) Solve(ctx context.Context, model *Model) (res *Result, err error) {
	if model == nil {
		return terminal(StatusUndefined, 0, "nil model"), apperror.ErrNilModel
	}
	if err := ctx.Err(); err != nil {
		return terminal(StatusUndefined, 0, err.Error()), err
	}

	// gonum паникует на несогласованных размерах
	defer func() {
		if r := recover(); r != nil {
			res, err = s.fallback(ctx, model, fmt.Sprint(r))
		}
	}()

	sf, status := toStandardForm(model)
	if status != StatusOptimal {
		return terminal(status, 0, ""), nil
	}

	res, err = s.solveReduced(ctx, model, sf)
	if err != nil {
		return res, err
	}
	// Столбец вне ограничений с положительной прибылью: неограниченность
	// только если остальная задача допустима
	if sf.freeProfit && res.Status == StatusOptimal {
		return terminal(StatusUnbounded, 0, ""), nil
	}
	return res, nil
}

func (s *ReferenceSolver) solveReduced(ctx context.Context, model *Model, sf *standardForm) (*Result, error) {
	rows, _ := sf.a.Dims()
	if rows == 0 {
		// Все ограничения вырождены в 0 = 0
		primal := make([]float64, model.NumVars())
		return optimal(0, primal, make([]float64, model.NumConstraints()), 0), nil
	}

	_, z, err := gonumlp.Simplex(sf.c, sf.a, sf.b, referenceTol, nil)
	switch {
	case errors.Is(err, gonumlp.ErrInfeasible):
		feasible, perr := phaseOne(sf)
		if perr != nil {
			return s.fallback(ctx, model, "phase I: "+perr.Error())
		}
		if feasible {
			return s.fallback(ctx, model, "phase I found a feasible point")
		}
		return terminal(StatusInfeasible, 0, ""), nil
	case errors.Is(err, gonumlp.ErrUnbounded):
		return terminal(StatusUnbounded, 0, ""), nil
	case err != nil:
		return s.fallback(ctx, model, err.Error())
	}

	y, err := solveDual(sf)
	if err != nil {
		return s.fallback(ctx, model, "dual: "+err.Error())
	}

	primal := make([]float64, model.NumVars())
	for k, j := range sf.varCols {
		primal[j] = z[k]
	}
	// min (-c)·x: d(прибыль)/d(b) = -y, плюс знак нормализации строки.
	// Исключённые зависимые строки получают нулевую оценку.
	dual := make([]float64, model.NumConstraints())
	for k, i := range sf.rowOf {
		dual[i] = -sf.sign[k] * y[k]
	}

	return optimal(floats.Dot(model.objective, primal), primal, dual, 0), nil
}

// fallback решает модель встроенным решателем, сохраняя причину в Message
func (s *ReferenceSolver) fallback(ctx context.Context, model *Model, reason string) (*Result, error) {
	res, err := s.tableau.Solve(ctx, model)
	if res != nil && res.Message == "" {
		res.Message = "gonum: " + reason + "; tableau result"
	}
	return res, err
}

// standardForm - задача min c·z, A·z = b, z >= 0 без нулевых строк и столбцов
type standardForm struct {
	c       []float64
	a       *mat.Dense
	b       []float64
	varCols []int     // столбец z -> индекс переменной модели (только структурные)
	rowOf   []int     // строка A -> индекс ограничения модели
	sign    []float64 // знак нормализации строки
	// есть переменная вне ограничений с положительным коэффициентом цели
	freeProfit bool
}

func toStandardForm(model *Model) (*standardForm, Status) {
	n := model.NumVars()
	sf := &standardForm{}

	// Переменная, не входящая ни в одно ограничение, фиксируется в нуле;
	// с положительной прибылью она отмечается и решается остальная задача
	keepVar := make([]bool, n)
	for j := 0; j < n; j++ {
		for _, c := range model.constraints {
			if c.Coefficients[j] != 0 {
				keepVar[j] = true
				break
			}
		}
		if keepVar[j] {
			sf.varCols = append(sf.varCols, j)
		} else if model.objective[j] > 0 {
			sf.freeProfit = true
		}
	}

	type row struct {
		coef  []float64
		rhs   float64
		slack float64
		index int
		sign  float64
	}
	var rows []row
	slacks := 0
	for i, c := range model.constraints {
		zero := true
		for _, v := range c.Coefficients {
			if v != 0 {
				zero = false
				break
			}
		}
		if zero {
			if (c.Relation == LessEqual && c.RHS < 0) ||
				(c.Relation == GreaterEqual && c.RHS > 0) ||
				(c.Relation == Equal && c.RHS != 0) {
				return nil, StatusInfeasible
			}
			continue
		}

		r := row{index: i, sign: 1, rhs: c.RHS}
		for _, j := range sf.varCols {
			r.coef = append(r.coef, c.Coefficients[j])
		}
		switch c.Relation {
		case LessEqual:
			r.slack = 1
			slacks++
		case GreaterEqual:
			r.slack = -1
			slacks++
		}
		if r.rhs < 0 {
			r.sign = -1
			r.rhs = -r.rhs
			floats.Scale(-1, r.coef)
			r.slack = -r.slack
		}
		rows = append(rows, r)
	}

	cols := len(sf.varCols) + slacks
	sf.c = make([]float64, cols)
	for k, j := range sf.varCols {
		sf.c[k] = -model.objective[j]
	}
	if len(rows) == 0 {
		sf.a = &mat.Dense{}
		return sf, StatusOptimal
	}

	sf.a = mat.NewDense(len(rows), cols, nil)
	sf.b = make([]float64, len(rows))
	next := len(sf.varCols)
	for k, r := range rows {
		sf.a.SetRow(k, append(r.coef, make([]float64, slacks)...))
		if r.slack != 0 {
			sf.a.Set(k, next, r.slack)
			next++
		}
		sf.b[k] = r.rhs
		sf.rowOf = append(sf.rowOf, r.index)
		sf.sign = append(sf.sign, r.sign)
	}
	return sf, sf.dropDependentRows()
}

// dropDependentRows исключает линейно зависимые строки A·z = b,
// чтобы матрица gonum имела полный строчный ранг.
// Зависимая строка с несовпадающей правой частью - недопустимость.
func (sf *standardForm) dropDependentRows() Status {
	m, n := sf.a.Dims()

	var (
		echelon [][]float64 // строки [A|b], обнулённые в опорных столбцах предыдущих
		pivots  []int
		keep    []int
	)
	for i := 0; i < m; i++ {
		r := make([]float64, n+1)
		mat.Row(r[:n], i, sf.a)
		r[n] = sf.b[i]
		scale := math.Max(1, floats.Norm(r, math.Inf(1)))

		for k, p := range echelon {
			if f := r[pivots[k]]; f != 0 {
				floats.AddScaled(r, -f/p[pivots[k]], p)
			}
		}

		pivot, best := -1, dependentTol*scale
		for j := 0; j < n; j++ {
			if v := math.Abs(r[j]); v > best {
				pivot, best = j, v
			}
		}
		if pivot < 0 {
			if math.Abs(r[n]) > dependentTol*scale {
				return StatusInfeasible
			}
			continue
		}
		echelon = append(echelon, r)
		pivots = append(pivots, pivot)
		keep = append(keep, i)
	}

	if len(keep) == m {
		return StatusOptimal
	}

	a := mat.NewDense(len(keep), n, nil)
	b := make([]float64, len(keep))
	rowOf := make([]int, len(keep))
	sign := make([]float64, len(keep))
	for k, i := range keep {
		a.SetRow(k, sf.a.RawRowView(i))
		b[k] = sf.b[i]
		rowOf[k] = sf.rowOf[i]
		sign[k] = sf.sign[i]
	}
	sf.a, sf.b, sf.rowOf, sf.sign = a, b, rowOf, sign
	return StatusOptimal
}

// phaseOne решает min Σa при A·z + a = b, z, a >= 0, стартуя с базиса из a.
// b уже неотрицателен после нормализации строк.
func phaseOne(sf *standardForm) (bool, error) {
	m, n := sf.a.Dims()

	a := mat.NewDense(m, n+m, nil)
	c := make([]float64, n+m)
	basic := make([]int, m)
	for i := 0; i < m; i++ {
		a.SetRow(i, append(append([]float64(nil), sf.a.RawRowView(i)...), make([]float64, m)...))
		a.Set(i, n+i, 1)
		c[n+i] = 1
		basic[i] = n + i
	}

	opt, _, err := gonumlp.Simplex(c, a, sf.b, referenceTol, basic)
	if err != nil {
		return false, err
	}
	return opt <= feasibilityTol*(1+floats.Max(sf.b)), nil
}

// solveDual решает max b·y при Aᵀy <= c, y свободны, как
// min -b·(u-v) при Aᵀ(u-v) + w = c, u, v, w >= 0
func solveDual(sf *standardForm) ([]float64, error) {
	m, n := sf.a.Dims()

	c := make([]float64, 2*m+n)
	for i := 0; i < m; i++ {
		c[i] = -sf.b[i]
		c[m+i] = sf.b[i]
	}

	a := mat.NewDense(n, 2*m+n, nil)
	for j := 0; j < n; j++ {
		for i := 0; i < m; i++ {
			v := sf.a.At(i, j)
			a.Set(j, i, v)
			a.Set(j, m+i, -v)
		}
		a.Set(j, 2*m+j, 1)
	}

	_, uvw, err := gonumlp.Simplex(c, a, sf.c, referenceTol, nil)
	if err != nil {
		return nil, err
	}

	y := make([]float64, m)
	for i := range y {
		y[i] = uvw[i] - uvw[m+i]
	}
	return y, nil
}
