// services/sensitivity-svc/internal/report/csv.go
package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
)

// CSVGenerator генератор CSV отчётов
type CSVGenerator struct {
	BaseGenerator
}

// NewCSVGenerator создаёт новый генератор
func NewCSVGenerator() *CSVGenerator {
	return &CSVGenerator{}
}

// Format возвращает формат генератора
func (g *CSVGenerator) Format() Format { return FormatCSV }

func (g *CSVGenerator) ContentType() string { return "text/csv; charset=utf-8" }

func (g *CSVGenerator) Extension() string { return "csv" }

// csvWriter обёртка для отслеживания ошибок
type csvWriter struct {
	w   *csv.Writer
	err error
}

func (cw *csvWriter) Write(record ...string) {
	if cw.err != nil {
		return
	}
	cw.err = cw.w.Write(record)
}

func (cw *csvWriter) Flush() {
	if cw.err != nil {
		return
	}
	cw.w.Flush()
	cw.err = cw.w.Error()
}

func (cw *csvWriter) Error() error {
	return cw.err
}

// Generate генерирует CSV отчёт: секции разделены пустыми строками
func (g *CSVGenerator) Generate(ctx context.Context, data *Data) ([]byte, error) {
	if data == nil || data.Analysis == nil {
		return nil, errNoAnalysis
	}

	var buf bytes.Buffer
	cw := &csvWriter{w: csv.NewWriter(&buf)}

	g.writeSummary(cw, data)

	a := data.Analysis
	if a.Optimal() {
		g.writeVariables(cw, data)
		g.writeRanges(cw, data)
	} else {
		cw.Write(UndefinedText(a.Status))
	}

	if data.Scenario != nil {
		g.writeScenario(cw, data)
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("csv write error: %w", err)
	}
	return buf.Bytes(), nil
}

func (g *CSVGenerator) writeSummary(cw *csvWriter, data *Data) {
	cw.Write(g.GetTitle(data))
	cw.Write("Company", g.GetCompany(data))
	cw.Write("Generated", g.FormatTimestamp(g.generatedAt(data)))
	for _, kv := range g.Summary(data) {
		cw.Write(kv.Key, kv.Value)
	}
	cw.Write()
}

func (g *CSVGenerator) writeVariables(cw *csvWriter, data *Data) {
	cw.Write("Decision Variables")
	cw.Write(variableHeaders...)
	for _, v := range data.Analysis.Variables {
		cw.Write(v.Name, g.FormatFloat(v.Value, 4))
	}
	cw.Write()
}

func (g *CSVGenerator) writeRanges(cw *csvWriter, data *Data) {
	cw.Write("Feasibility Ranges")
	cw.Write(rangeHeaders...)
	for _, r := range data.Analysis.Ranges {
		cw.Write(g.rangeRow(r)...)
	}
	cw.Write()
}

func (g *CSVGenerator) writeScenario(cw *csvWriter, data *Data) {
	cw.Write("Scenario")
	cw.Write(scenarioHeaders...)
	for _, s := range data.Scenario.PerConstraint {
		cw.Write(g.scenarioRow(s)...)
	}
	cw.Write("Baseline Profit", g.Money(data, data.Scenario.BaselineProfit))
	cw.Write("Total Impact", g.SignedMoney(data, data.Scenario.TotalImpact))
	cw.Write("New Profit", g.Money(data, data.Scenario.NewProfit))
	for _, line := range g.Conclusion(data) {
		cw.Write(line)
	}
}
