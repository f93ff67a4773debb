// services/sensitivity-svc/internal/report/excel.go
package report

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	sensitivityv1 "production/pkg/api/sensitivity/v1"
)

// ExcelGenerator генератор Excel отчётов
type ExcelGenerator struct {
	BaseGenerator
}

// NewExcelGenerator создаёт новый генератор
func NewExcelGenerator() *ExcelGenerator {
	return &ExcelGenerator{}
}

// Format возвращает формат генератора
func (g *ExcelGenerator) Format() Format { return FormatExcel }

func (g *ExcelGenerator) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (g *ExcelGenerator) Extension() string { return "xlsx" }

// Листы книги
const (
	sheetSummary  = "Summary"
	sheetRanges   = "Ranges"
	sheetScenario = "Scenario"
)

// Generate генерирует Excel отчёт
func (g *ExcelGenerator) Generate(ctx context.Context, data *Data) ([]byte, error) {
	if data == nil || data.Analysis == nil {
		return nil, errNoAnalysis
	}

	f := excelize.NewFile()
	defer f.Close()

	// Дефолтный лист становится сводкой
	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return nil, fmt.Errorf("excel sheet error: %w", err)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})

	g.writeSummary(f, data, headerStyle, titleStyle)
	if data.Analysis.Optimal() {
		g.writeRanges(f, data, headerStyle)
	}
	if data.Scenario != nil {
		g.writeScenario(f, data, headerStyle)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("excel write error: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *ExcelGenerator) writeHeaders(f *excelize.File, sheet string, row int, headers []string, style int) {
	for i, h := range headers {
		f.SetCellValue(sheet, CellByIndex(i, row), h)
	}
	f.SetCellStyle(sheet, Cell("A", row), CellByIndex(len(headers)-1, row), style)
}

func (g *ExcelGenerator) writeSummary(f *excelize.File, data *Data, headerStyle, titleStyle int) {
	sheet := sheetSummary
	a := data.Analysis
	row := 1

	f.SetCellValue(sheet, Cell("A", row), g.GetTitle(data))
	f.MergeCell(sheet, Cell("A", row), Cell("D", row))
	f.SetCellStyle(sheet, Cell("A", row), Cell("A", row), titleStyle)
	row++
	f.SetCellValue(sheet, Cell("A", row), g.GetCompany(data))
	f.SetCellValue(sheet, Cell("B", row), g.FormatTimestamp(g.generatedAt(data)))
	row += 2

	g.writeHeaders(f, sheet, row, []string{"Metric", "Value"}, headerStyle)
	row++
	for _, kv := range g.Summary(data) {
		f.SetCellValue(sheet, Cell("A", row), kv.Key)
		f.SetCellValue(sheet, Cell("B", row), kv.Value)
		row++
	}
	row++

	if !a.Optimal() {
		f.SetCellValue(sheet, Cell("A", row), UndefinedText(a.Status))
		f.SetColWidth(sheet, "A", "B", 22)
		return
	}

	g.writeHeaders(f, sheet, row, variableHeaders, headerStyle)
	row++
	for _, v := range a.Variables {
		f.SetCellValue(sheet, Cell("A", row), v.Name)
		f.SetCellValue(sheet, Cell("B", row), v.Value)
		row++
	}
	row++

	g.writeHeaders(f, sheet, row, shadowHeaders, headerStyle)
	row++
	for _, p := range a.ShadowPrices {
		f.SetCellValue(sheet, Cell("A", row), p.Label)
		f.SetCellValue(sheet, Cell("B", row), p.Value)
		row++
	}

	f.SetColWidth(sheet, "A", "B", 22)
}

// excelLimit - число для конечной границы, текст для неограниченной
func excelLimit(l sensitivityv1.Limit) any {
	if l.Unbounded {
		return "unbounded"
	}
	return l.Value
}

func (g *ExcelGenerator) writeRanges(f *excelize.File, data *Data, headerStyle int) {
	sheet := sheetRanges
	f.NewSheet(sheet)

	g.writeHeaders(f, sheet, 1, rangeHeaders, headerStyle)
	for i, r := range data.Analysis.Ranges {
		row := i + 2
		f.SetCellValue(sheet, Cell("A", row), r.Label)
		f.SetCellValue(sheet, Cell("B", row), r.CurrentRHS)
		f.SetCellValue(sheet, Cell("C", row), r.ShadowPrice)
		f.SetCellValue(sheet, Cell("D", row), excelLimit(r.IncreaseLimit))
		f.SetCellValue(sheet, Cell("E", row), excelLimit(r.DecreaseLimit))
		f.SetCellValue(sheet, Cell("F", row), r.Interval)
	}
	f.SetColWidth(sheet, "A", "F", 18)
}

func (g *ExcelGenerator) writeScenario(f *excelize.File, data *Data, headerStyle int) {
	sheet := sheetScenario
	f.NewSheet(sheet)
	s := data.Scenario

	headers := []string{"Constraint", "Delta", "Status", "Shadow Price", "Impact", "Limit", "New RHS"}
	g.writeHeaders(f, sheet, 1, headers, headerStyle)
	row := 2
	for _, c := range s.PerConstraint {
		f.SetCellValue(sheet, Cell("A", row), c.Label)
		f.SetCellValue(sheet, Cell("B", row), c.Delta)
		f.SetCellValue(sheet, Cell("C", row), FeasibilityText(c.Feasible))
		f.SetCellValue(sheet, Cell("D", row), c.ShadowPrice)
		f.SetCellValue(sheet, Cell("E", row), c.Impact)
		f.SetCellValue(sheet, Cell("F", row), excelLimit(c.Limit))
		f.SetCellValue(sheet, Cell("G", row), c.NewRHS)
		row++
	}
	row++

	totals := []struct {
		key   string
		value float64
	}{
		{"Baseline Profit", s.BaselineProfit},
		{"Total Impact", s.TotalImpact},
		{"New Profit", s.NewProfit},
	}
	for _, t := range totals {
		f.SetCellValue(sheet, Cell("A", row), t.key)
		f.SetCellValue(sheet, Cell("B", row), t.value)
		row++
	}
	row++
	for _, line := range g.Conclusion(data) {
		f.SetCellValue(sheet, Cell("A", row), line)
		f.MergeCell(sheet, Cell("A", row), Cell("G", row))
		row++
	}
	f.SetColWidth(sheet, "A", "G", 16)
}
