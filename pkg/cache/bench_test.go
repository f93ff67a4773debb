package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"production/pkg/lp"
)

func BenchmarkMemoryCache_SetGet(b *testing.B) {
	c := NewMemoryCache(nil)
	defer c.Close()

	ctx := context.Background()
	value := make([]byte, 1024)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := fmt.Sprintf("key-%d", i%1000)
		c.Set(ctx, key, value, time.Minute)
		c.Get(ctx, key)
	}
}

func BenchmarkModelHash(b *testing.B) {
	model, err := lp.Problem{
		NumVars:   3,
		Objective: []float64{3, 5, 4},
		Constraints: []lp.Constraint{
			{Coefficients: []float64{1, 0, 1}, Relation: lp.LessEqual, RHS: 4},
			{Coefficients: []float64{0, 2, 1}, Relation: lp.LessEqual, RHS: 12},
			{Coefficients: []float64{3, 2, 0}, Relation: lp.GreaterEqual, RHS: 1},
		},
	}.Build()
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ModelHash(model)
	}
}
