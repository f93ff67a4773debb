// Package sensitivityv1 описывает сообщения API сервиса анализа чувствительности.
// Сообщения передаются через Connect в JSON кодировке.
package sensitivityv1

import (
	"encoding/json"
	"fmt"
	"time"

	"production/pkg/lp"
)

// Problem - задача в форме ввода: прибыль на единицу продукции и ограничения ресурсов
type Problem = lp.Problem

// Constraint - ограничение задачи
type Constraint = lp.Constraint

// Limit - допустимое изменение правой части: число либо строка "unbounded"
type Limit struct {
	Value     float64
	Unbounded bool
}

const unboundedText = "unbounded"

// MarshalJSON кодирует границу
func (l Limit) MarshalJSON() ([]byte, error) {
	if l.Unbounded {
		return json.Marshal(unboundedText)
	}
	return json.Marshal(l.Value)
}

// UnmarshalJSON декодирует границу
func (l *Limit) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if s != unboundedText {
			return fmt.Errorf("invalid limit %q", s)
		}
		*l = Limit{Unbounded: true}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("invalid limit: %w", err)
	}
	*l = Limit{Value: v}
	return nil
}

func (l Limit) String() string {
	if l.Unbounded {
		return unboundedText
	}
	return fmt.Sprintf("%.4f", l.Value)
}

// VariableValue - значение переменной решения
type VariableValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// ShadowPrice - двойственная оценка ограничения
type ShadowPrice struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// RangeResult - диапазон допустимости правой части
type RangeResult struct {
	Label         string  `json:"label"`
	CurrentRHS    float64 `json:"currentRhs"`
	ShadowPrice   float64 `json:"shadowPrice"`
	IncreaseLimit Limit   `json:"increaseLimit"`
	DecreaseLimit Limit   `json:"decreaseLimit"`
	Interval      string  `json:"interval"`
	Probes        int     `json:"probes,omitempty"`
	FailedProbes  int     `json:"failedProbes,omitempty"`
}

// ============================================================
// Solve
// ============================================================

// SolveRequest - решить задачу без анализа диапазонов
type SolveRequest struct {
	Problem Problem `json:"problem"`
	Solver  string  `json:"solver,omitempty" validate:"omitempty,oneof=tableau gonum"`
}

// SolveResponse - результат решения
type SolveResponse struct {
	Status       string          `json:"status"`
	Objective    float64         `json:"objective"`
	Variables    []VariableValue `json:"variables,omitempty"`
	ShadowPrices []ShadowPrice   `json:"shadowPrices,omitempty"`
	Iterations   int             `json:"iterations"`
	Solver       string          `json:"solver"`
	Message      string          `json:"message,omitempty"`
	DurationMs   float64         `json:"durationMs"`
}

// ============================================================
// Analyze
// ============================================================

// AnalyzeRequest - решить задачу и найти диапазоны по всем ограничениям
type AnalyzeRequest struct {
	Problem Problem `json:"problem"`
	Solver  string  `json:"solver,omitempty" validate:"omitempty,oneof=tableau gonum"`
	Name    string  `json:"name,omitempty" validate:"max=200"`
	// SkipPersist отключает сохранение в историю для этого запроса
	SkipPersist bool `json:"skipPersist,omitempty"`
}

// AnalysisResult - полный результат анализа чувствительности
type AnalysisResult struct {
	ID           string          `json:"id,omitempty"`
	Name         string          `json:"name,omitempty"`
	Solver       string          `json:"solver"`
	Status       string          `json:"status"`
	Message      string          `json:"message,omitempty"`
	Objective    float64         `json:"objective"`
	Variables    []VariableValue `json:"variables,omitempty"`
	ShadowPrices []ShadowPrice   `json:"shadowPrices,omitempty"`
	Ranges       []RangeResult   `json:"ranges"`
	Problem      Problem         `json:"problem"`
	DurationMs   float64         `json:"durationMs"`
	Cached       bool            `json:"cached,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Optimal сообщает, найдено ли оптимальное решение
func (r *AnalysisResult) Optimal() bool {
	return r != nil && r.Status == lp.StatusOptimal.String()
}

// Range возвращает диапазон по метке
func (r *AnalysisResult) Range(label string) (RangeResult, bool) {
	for _, rr := range r.Ranges {
		if rr.Label == label {
			return rr, true
		}
	}
	return RangeResult{}, false
}

// AnalyzeResponse - ответ Analyze
type AnalyzeResponse struct {
	Analysis *AnalysisResult `json:"analysis"`
}

// ============================================================
// Scenario
// ============================================================

// EvaluateScenarioRequest - оценить набор изменений правых частей.
// Анализ берётся из истории по AnalysisID либо выполняется для Problem.
type EvaluateScenarioRequest struct {
	AnalysisID string             `json:"analysisId,omitempty" validate:"omitempty,uuid"`
	Problem    *Problem           `json:"problem,omitempty" validate:"required_without=AnalysisID"`
	Solver     string             `json:"solver,omitempty" validate:"omitempty,oneof=tableau gonum"`
	Deltas     map[string]float64 `json:"deltas"`
}

// ScenarioImpact - оценка одного изменения
type ScenarioImpact struct {
	Label       string  `json:"label"`
	Delta       float64 `json:"delta"`
	Direction   string  `json:"direction"`
	Limit       Limit   `json:"limit"`
	Feasible    bool    `json:"feasible"`
	ShadowPrice float64 `json:"shadowPrice"`
	Impact      float64 `json:"impact"`
	NewRHS      float64 `json:"newRhs"`
	Formula     string  `json:"formula"`
}

// ScenarioResult - результат оценки сценария
type ScenarioResult struct {
	AnalysisID     string           `json:"analysisId,omitempty"`
	PerConstraint  []ScenarioImpact `json:"perConstraint"`
	AllFeasible    bool             `json:"allFeasible"`
	TotalImpact    float64          `json:"totalImpact"`
	BaselineProfit float64          `json:"baselineProfit"`
	NewProfit      float64          `json:"newProfit"`
}

// EvaluateScenarioResponse - ответ EvaluateScenario
type EvaluateScenarioResponse struct {
	Scenario *ScenarioResult `json:"scenario"`
}

// ============================================================
// History
// ============================================================

// GetAnalysisRequest - получить сохранённый анализ
type GetAnalysisRequest struct {
	ID string `json:"id" validate:"required,uuid"`
}

// GetAnalysisResponse - ответ GetAnalysis
type GetAnalysisResponse struct {
	Analysis *AnalysisResult `json:"analysis"`
}

// ListAnalysesRequest - список сохранённых анализов
type ListAnalysesRequest struct {
	Limit  int    `json:"limit,omitempty" validate:"min=0,max=100"`
	Offset int    `json:"offset,omitempty" validate:"min=0"`
	Status string `json:"status,omitempty" validate:"omitempty,oneof=Optimal Infeasible Unbounded Undefined"`
	Solver string `json:"solver,omitempty" validate:"omitempty,oneof=tableau gonum"`
}

// AnalysisSummary - краткая информация об анализе
type AnalysisSummary struct {
	ID             string    `json:"id"`
	Name           string    `json:"name,omitempty"`
	Solver         string    `json:"solver"`
	Status         string    `json:"status"`
	Objective      float64   `json:"objective"`
	NumVars        int       `json:"numVars"`
	NumConstraints int       `json:"numConstraints"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ListAnalysesResponse - ответ ListAnalyses
type ListAnalysesResponse struct {
	Analyses []AnalysisSummary `json:"analyses"`
	Total    int64             `json:"total"`
}

// DeleteAnalysisRequest - удалить анализ
type DeleteAnalysisRequest struct {
	ID string `json:"id" validate:"required,uuid"`
}

// DeleteAnalysisResponse - ответ DeleteAnalysis
type DeleteAnalysisResponse struct {
	Deleted bool `json:"deleted"`
}

// ============================================================
// Reports
// ============================================================

// ExportReportRequest - сформировать отчёт по анализу.
// Если задан Scenario, оценка сценария включается в отчёт.
type ExportReportRequest struct {
	AnalysisID string             `json:"analysisId,omitempty" validate:"omitempty,uuid"`
	Problem    *Problem           `json:"problem,omitempty" validate:"required_without=AnalysisID"`
	Solver     string             `json:"solver,omitempty" validate:"omitempty,oneof=tableau gonum"`
	Format     string             `json:"format,omitempty"`
	Title      string             `json:"title,omitempty" validate:"max=200"`
	Scenario   map[string]float64 `json:"scenario,omitempty"`
}

// ExportReportResponse - содержимое отчёта (base64 в JSON)
type ExportReportResponse struct {
	Format      string `json:"format"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Content     []byte `json:"content"`
}
