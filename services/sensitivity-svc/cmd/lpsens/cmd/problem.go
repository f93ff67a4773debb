package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"production/pkg/lp"
)

// problemFile - файл задачи:
//
//	name: wyndor
//	objective: [3, 5]
//	constraints:
//	  - {coefficients: [1, 0], relation: "<=", rhs: 4}
//	scenario: {R2: 3}
type problemFile struct {
	Name       string             `yaml:"name"`
	lp.Problem `yaml:",inline"`
	Scenario   map[string]float64 `yaml:"scenario"`
}

func loadProblemFile(path string) (*problemFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read problem file: %w", err)
	}
	return parseProblem(data)
}

// parseProblem разбирает YAML; JSON тоже подходит как подмножество YAML
func parseProblem(data []byte) (*problemFile, error) {
	var pf problemFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse problem file: %w", err)
	}

	if pf.NumVars == 0 {
		pf.NumVars = len(pf.Objective)
	}
	for i := range pf.Constraints {
		rel, err := lp.ParseRelation(string(pf.Constraints[i].Relation))
		if err != nil {
			return nil, fmt.Errorf("constraint %s: %w", lp.ConstraintLabel(i), err)
		}
		pf.Constraints[i].Relation = rel
	}
	return &pf, nil
}

// parseDeltas разбирает изменения вида R2=+3
func parseDeltas(raw []string) (map[string]float64, error) {
	deltas := make(map[string]float64, len(raw))
	for _, kv := range raw {
		label, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("invalid delta %q, expected LABEL=VALUE", kv)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid delta %q: %w", kv, err)
		}
		deltas[strings.ToUpper(strings.TrimSpace(label))] += v
	}
	return deltas, nil
}
