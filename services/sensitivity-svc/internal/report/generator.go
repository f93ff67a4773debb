// services/sensitivity-svc/internal/report/generator.go
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	sensitivityv1 "production/pkg/api/sensitivity/v1"
	"production/pkg/apperror"
	"production/pkg/config"
)

// Format - формат отчёта
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatExcel    Format = "xlsx"
	FormatPDF      Format = "pdf"
)

// Formats - все поддерживаемые форматы
var Formats = []Format{FormatCSV, FormatMarkdown, FormatJSON, FormatExcel, FormatPDF}

// ParseFormat разбирает название формата; принимает синонимы md и excel
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "xlsx", "excel":
		return FormatExcel, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return "", apperror.NewWithField(apperror.CodeInvalidReportFormat,
			fmt.Sprintf("unsupported report format %q", s), "format")
	}
}

var errNoAnalysis = apperror.New(apperror.CodeNilInput, "report requires an analysis")

// Data - данные для генерации отчёта
type Data struct {
	Title       string
	Company     string
	Currency    string
	Precision   int32
	GeneratedAt time.Time

	Analysis *sensitivityv1.AnalysisResult
	// Scenario - необязательная оценка изменений правых частей
	Scenario *sensitivityv1.ScenarioResult
}

// NewData заполняет реквизиты отчёта из конфигурации
func NewData(cfg config.ReportConfig, analysis *sensitivityv1.AnalysisResult) *Data {
	return &Data{
		Company:     cfg.CompanyName,
		Currency:    cfg.Currency,
		Precision:   cfg.Precision,
		GeneratedAt: time.Now(),
		Analysis:    analysis,
	}
}

// Generator - генератор отчёта одного формата
type Generator interface {
	Generate(ctx context.Context, data *Data) ([]byte, error)
	Format() Format
	ContentType() string
	Extension() string
}

// New возвращает генератор для формата
func New(format Format, cfg config.ReportConfig) (Generator, error) {
	switch format {
	case FormatCSV:
		return NewCSVGenerator(), nil
	case FormatMarkdown:
		return NewMarkdownGenerator(), nil
	case FormatJSON:
		return NewJSONGenerator(), nil
	case FormatExcel:
		return NewExcelGenerator(), nil
	case FormatPDF:
		return NewPDFGenerator(cfg.PDF), nil
	default:
		return nil, apperror.NewWithField(apperror.CodeInvalidReportFormat,
			fmt.Sprintf("unsupported report format %q", format), "format")
	}
}

// Filename строит имя файла отчёта для генератора
func Filename(data *Data, g Generator) string {
	var b BaseGenerator
	return b.Filename(data, g.Extension())
}

// BaseGenerator базовые утилиты для генераторов
type BaseGenerator struct{}

// GetTitle возвращает заголовок отчёта
func (b *BaseGenerator) GetTitle(data *Data) string {
	if data.Title != "" {
		return data.Title
	}
	if data.Analysis != nil && data.Analysis.Name != "" {
		return data.Analysis.Name
	}
	return "Sensitivity Analysis Report"
}

// GetCompany возвращает подпись отчёта
func (b *BaseGenerator) GetCompany(data *Data) string {
	if data.Company != "" {
		return data.Company
	}
	return "Production Planning"
}

func (b *BaseGenerator) precision(data *Data) int32 {
	if data.Precision > 0 {
		return data.Precision
	}
	return 2
}

// Money форматирует денежную величину: "$ 36.00"
func (b *BaseGenerator) Money(data *Data, v float64) string {
	cur := data.Currency
	if cur == "" {
		cur = "$"
	}
	return cur + " " + decimal.NewFromFloat(v).StringFixed(b.precision(data))
}

// SignedMoney - как Money, но со знаком: "+10.00"
func (b *BaseGenerator) SignedMoney(data *Data, v float64) string {
	s := decimal.NewFromFloat(v).StringFixed(b.precision(data))
	if v >= 0 {
		s = "+" + s
	}
	return s
}

// FormatFloat форматирует число с заданной точностью
func (b *BaseGenerator) FormatFloat(v float64, precision int) string {
	return fmt.Sprintf("%.*f", precision, v)
}

// FormatLimit форматирует границу изменения
func (b *BaseGenerator) FormatLimit(l sensitivityv1.Limit) string {
	if l.Unbounded {
		return "unbounded"
	}
	return b.FormatFloat(l.Value, 4)
}

// FormatDuration форматирует длительность
func (b *BaseGenerator) FormatDuration(ms float64) string {
	if ms < 1000 {
		return fmt.Sprintf("%.2f ms", ms)
	}
	return fmt.Sprintf("%.2f s", ms/1000)
}

// FormatTimestamp форматирует время
func (b *BaseGenerator) FormatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

func (b *BaseGenerator) generatedAt(data *Data) time.Time {
	if data.GeneratedAt.IsZero() {
		return time.Now()
	}
	return data.GeneratedAt
}

// Filename строит имя файла отчёта
func (b *BaseGenerator) Filename(data *Data, ext string) string {
	suffix := b.generatedAt(data).Format("20060102-150405")
	if data.Analysis != nil && len(data.Analysis.ID) >= 8 {
		suffix = data.Analysis.ID[:8]
	}
	return fmt.Sprintf("sensitivity-report-%s.%s", suffix, ext)
}

type keyValue struct {
	Key   string
	Value string
}

// Summary - сводка по анализу
func (b *BaseGenerator) Summary(data *Data) []keyValue {
	a := data.Analysis
	if a == nil {
		return nil
	}
	items := []keyValue{
		{"Status", a.Status},
		{"Solver", a.Solver},
	}
	if a.Optimal() {
		items = append(items, keyValue{"Maximum Profit", b.Money(data, a.Objective)})
	}
	items = append(items,
		keyValue{"Variables", fmt.Sprintf("%d", len(a.Problem.Objective))},
		keyValue{"Constraints", fmt.Sprintf("%d", len(a.Problem.Constraints))},
		keyValue{"Duration", b.FormatDuration(a.DurationMs)},
	)
	if a.ID != "" {
		items = append(items, keyValue{"Analysis ID", a.ID})
	}
	if a.Message != "" {
		items = append(items, keyValue{"Message", a.Message})
	}
	return items
}

var (
	variableHeaders = []string{"Variable", "Value"}
	shadowHeaders   = []string{"Constraint", "Shadow Price"}
	rangeHeaders    = []string{"Constraint", "Current RHS", "Shadow Price", "Allowed Increase", "Allowed Decrease", "Interval"}
	scenarioHeaders = []string{"Constraint", "Delta", "Status", "Profit Impact", "New RHS"}
)

func (b *BaseGenerator) rangeRow(r sensitivityv1.RangeResult) []string {
	return []string{
		r.Label,
		b.FormatFloat(r.CurrentRHS, 2),
		b.FormatFloat(r.ShadowPrice, 4),
		b.FormatLimit(r.IncreaseLimit),
		b.FormatLimit(r.DecreaseLimit),
		r.Interval,
	}
}

func (b *BaseGenerator) scenarioRow(s sensitivityv1.ScenarioImpact) []string {
	return []string{
		s.Label,
		b.FormatFloat(s.Delta, 2),
		FeasibilityText(s.Feasible),
		s.Formula,
		b.FormatFloat(s.NewRHS, 2),
	}
}

// FeasibilityText - подпись статуса изменения
func FeasibilityText(feasible bool) string {
	if feasible {
		return "Feasible (OK)"
	}
	return "Infeasible (out of range)"
}

// UndefinedText - пояснение для неоптимального решения
func UndefinedText(status string) string {
	return fmt.Sprintf("Sensitivity is undefined: solver status is %s.", status)
}

// ProfitFormula - новая прибыль как базовая плюс сумма влияний
const ProfitFormula = "Z_new = Z_current + sum(shadow price * delta)"

// Conclusion - общий вывод по сценарию
func (b *BaseGenerator) Conclusion(data *Data) []string {
	s := data.Scenario
	if s == nil {
		return nil
	}
	if len(s.PerConstraint) == 0 {
		return []string{"No non-zero changes were proposed."}
	}
	if !s.AllFeasible {
		var labels []string
		for _, c := range s.PerConstraint {
			if !c.Feasible {
				labels = append(labels, c.Label)
			}
		}
		return []string{
			"One or more changes violate the feasibility limits. The scenario is not viable.",
			"Out of range: " + strings.Join(labels, ", "),
		}
	}
	return []string{
		"All changes are within the feasibility limits.",
		"New estimated profit: " + b.Money(data, s.NewProfit) + " (" + b.SignedMoney(data, s.TotalImpact) + ")",
		ProfitFormula,
		fmt.Sprintf("%s = %s + (%s)",
			decimal.NewFromFloat(s.NewProfit).StringFixed(b.precision(data)),
			decimal.NewFromFloat(s.BaselineProfit).StringFixed(b.precision(data)),
			decimal.NewFromFloat(s.TotalImpact).StringFixed(b.precision(data))),
	}
}

// ColName преобразует индекс колонки в буквенное обозначение (0 -> A, 25 -> Z, 26 -> AA)
func ColName(index int) string {
	result := ""
	for {
		result = string(rune('A'+index%26)) + result
		index = index/26 - 1
		if index < 0 {
			break
		}
	}
	return result
}

// Cell возвращает адрес ячейки
func Cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// CellByIndex возвращает адрес ячейки по индексам
func CellByIndex(colIndex, rowIndex int) string {
	return fmt.Sprintf("%s%d", ColName(colIndex), rowIndex)
}
