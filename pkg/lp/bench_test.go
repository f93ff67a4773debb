package lp

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
)

// randomProblem строит ограниченную допустимую задачу: все коэффициенты
// положительны, правые части тоже
func randomProblem(r *rand.Rand, vars, rows int) Problem {
	p := Problem{NumVars: vars, Objective: make([]float64, vars)}
	for j := range p.Objective {
		p.Objective[j] = 1 + float64(r.Intn(20))
	}
	for i := 0; i < rows; i++ {
		c := Constraint{Coefficients: make([]float64, vars), Relation: LessEqual, RHS: 10 + float64(r.Intn(90))}
		for j := range c.Coefficients {
			c.Coefficients[j] = 1 + float64(r.Intn(9))
		}
		if i%4 == 3 {
			// нижняя граница по первой переменной, двухфазный путь
			c = Constraint{Coefficients: make([]float64, vars), Relation: GreaterEqual, RHS: 1}
			c.Coefficients[0] = 1
		}
		p.Constraints = append(p.Constraints, c)
	}
	return p
}

func benchmarkSolver(b *testing.B, solver Solver) {
	sizes := []struct{ vars, rows int }{
		{2, 3},
		{4, 10},
		{8, 40},
	}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("vars=%d/rows=%d", size.vars, size.rows), func(b *testing.B) {
			r := rand.New(rand.NewSource(42))
			model, err := randomProblem(r, size.vars, size.rows).Build(WithVariableRange(1, 0), WithMaxConstraints(0))
			if err != nil {
				b.Fatalf("build: %v", err)
			}
			ctx := context.Background()

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				res, err := solver.Solve(ctx, model)
				if err != nil {
					b.Fatal(err)
				}
				if res.Status != StatusOptimal {
					b.Fatalf("status %s", res.Status)
				}
			}
		})
	}
}

func BenchmarkTableauSolver(b *testing.B) {
	benchmarkSolver(b, NewTableauSolver())
}

func BenchmarkReferenceSolver(b *testing.B) {
	benchmarkSolver(b, NewReferenceSolver())
}

func BenchmarkModel_WithRHS(b *testing.B) {
	r := rand.New(rand.NewSource(42))
	model, err := randomProblem(r, 4, 10).Build()
	if err != nil {
		b.Fatalf("build: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := model.WithRHS(i%10, float64(i)); err != nil {
			b.Fatal(err)
		}
	}
}
