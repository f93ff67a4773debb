// services/sensitivity-svc/internal/report/json.go
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sensitivityv1 "production/pkg/api/sensitivity/v1"
)

// JSONGenerator генератор JSON отчётов
type JSONGenerator struct {
	BaseGenerator
}

// NewJSONGenerator создаёт новый генератор
func NewJSONGenerator() *JSONGenerator {
	return &JSONGenerator{}
}

// Format возвращает формат генератора
func (g *JSONGenerator) Format() Format { return FormatJSON }

func (g *JSONGenerator) ContentType() string { return "application/json" }

func (g *JSONGenerator) Extension() string { return "json" }

// JSONReport структура JSON отчёта
type JSONReport struct {
	Metadata   JSONMetadata                  `json:"metadata"`
	Analysis   *sensitivityv1.AnalysisResult `json:"analysis"`
	Scenario   *sensitivityv1.ScenarioResult `json:"scenario,omitempty"`
	Conclusion []string                      `json:"conclusion,omitempty"`
}

type JSONMetadata struct {
	Title       string    `json:"title"`
	Company     string    `json:"company"`
	Currency    string    `json:"currency,omitempty"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// Generate генерирует JSON отчёт
func (g *JSONGenerator) Generate(ctx context.Context, data *Data) ([]byte, error) {
	if data == nil || data.Analysis == nil {
		return nil, errNoAnalysis
	}

	report := JSONReport{
		Metadata: JSONMetadata{
			Title:       g.GetTitle(data),
			Company:     g.GetCompany(data),
			Currency:    data.Currency,
			GeneratedAt: g.generatedAt(data),
		},
		Analysis:   data.Analysis,
		Scenario:   data.Scenario,
		Conclusion: g.Conclusion(data),
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("json marshal error: %w", err)
	}
	return out, nil
}
