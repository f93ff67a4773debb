package cache

import (
	"math"
	"testing"

	"production/pkg/lp"
)

func mustModel(t *testing.T, objective []float64, constraints ...lp.Constraint) *lp.Model {
	t.Helper()
	m, err := lp.Build(len(objective), objective, constraints)
	if err != nil {
		t.Fatalf("build model: %v", err)
	}
	return m
}

func wyndor(t *testing.T) *lp.Model {
	return mustModel(t, []float64{3, 5},
		lp.Constraint{Coefficients: []float64{1, 0}, Relation: lp.LessEqual, RHS: 4},
		lp.Constraint{Coefficients: []float64{0, 2}, Relation: lp.LessEqual, RHS: 12},
		lp.Constraint{Coefficients: []float64{3, 2}, Relation: lp.LessEqual, RHS: 18},
	)
}

func TestModelHash(t *testing.T) {
	t.Run("nil model", func(t *testing.T) {
		if hash := ModelHash(nil); hash != "" {
			t.Errorf("ModelHash(nil) = %v, want empty string", hash)
		}
	})

	t.Run("same model produces same hash", func(t *testing.T) {
		h1, h2 := ModelHash(wyndor(t)), ModelHash(wyndor(t))
		if h1 != h2 {
			t.Errorf("same model should produce same hash: %v != %v", h1, h2)
		}
		if len(h1) != 32 {
			t.Errorf("hash length = %d, want 32", len(h1))
		}
	})

	t.Run("different rhs produces different hash", func(t *testing.T) {
		base := wyndor(t)
		changed, err := base.WithRHS(2, 19)
		if err != nil {
			t.Fatal(err)
		}
		if ModelHash(base) == ModelHash(changed) {
			t.Error("different rhs should produce different hashes")
		}
	})

	t.Run("relation affects hash", func(t *testing.T) {
		le := mustModel(t, []float64{1, 1},
			lp.Constraint{Coefficients: []float64{1, 1}, Relation: lp.LessEqual, RHS: 4})
		ge := mustModel(t, []float64{1, 1},
			lp.Constraint{Coefficients: []float64{1, 1}, Relation: lp.GreaterEqual, RHS: 4})
		if ModelHash(le) == ModelHash(ge) {
			t.Error("relation should affect hash")
		}
	})

	t.Run("constraint order affects hash", func(t *testing.T) {
		a := lp.Constraint{Coefficients: []float64{1, 0}, Relation: lp.LessEqual, RHS: 4}
		b := lp.Constraint{Coefficients: []float64{0, 1}, Relation: lp.LessEqual, RHS: 6}
		// Метки R1/R2 зависят от порядка, поэтому порядок значим
		if ModelHash(mustModel(t, []float64{1, 1}, a, b)) == ModelHash(mustModel(t, []float64{1, 1}, b, a)) {
			t.Error("constraint order should affect hash")
		}
	})

	t.Run("negative zero equals zero", func(t *testing.T) {
		negZero := math.Copysign(0, -1)
		m1 := mustModel(t, []float64{1, 0},
			lp.Constraint{Coefficients: []float64{1, 1}, Relation: lp.LessEqual, RHS: 4})
		m2 := mustModel(t, []float64{1, negZero},
			lp.Constraint{Coefficients: []float64{1, 1}, Relation: lp.LessEqual, RHS: 4})
		if ModelHash(m1) != ModelHash(m2) {
			t.Error("-0 and 0 should hash equally")
		}
	})
}

func TestBuildAnalysisKey(t *testing.T) {
	if key := BuildAnalysisKey("abc123", "tableau"); key != "analysis:tableau:abc123" {
		t.Errorf("BuildAnalysisKey() = %v", key)
	}
}

func TestBuildAnalysisKeyWithOptions(t *testing.T) {
	tests := []struct {
		name        string
		optionsHash string
		expected    string
	}{
		{"without options", "", "analysis:gonum:abc123"},
		{"with options", "opt456", "analysis:gonum:abc123:opt456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if key := BuildAnalysisKeyWithOptions("abc123", "gonum", tt.optionsHash); key != tt.expected {
				t.Errorf("BuildAnalysisKeyWithOptions() = %v, want %v", key, tt.expected)
			}
		})
	}
}

func TestShortHash(t *testing.T) {
	hash := ShortHash([]byte("test data"))
	if len(hash) != 16 {
		t.Errorf("ShortHash length = %d, want 16", len(hash))
	}
	if hash != ShortHash([]byte("test data")) {
		t.Error("same data should produce same hash")
	}
}
