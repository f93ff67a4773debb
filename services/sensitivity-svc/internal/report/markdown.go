// services/sensitivity-svc/internal/report/markdown.go
package report

import (
	"bytes"
	"context"
	"fmt"
	"strings"
)

// MarkdownGenerator генератор Markdown отчётов
type MarkdownGenerator struct {
	BaseGenerator
}

// NewMarkdownGenerator создаёт новый генератор
func NewMarkdownGenerator() *MarkdownGenerator {
	return &MarkdownGenerator{}
}

// Format возвращает формат генератора
func (g *MarkdownGenerator) Format() Format { return FormatMarkdown }

func (g *MarkdownGenerator) ContentType() string { return "text/markdown; charset=utf-8" }

func (g *MarkdownGenerator) Extension() string { return "md" }

// Generate генерирует Markdown отчёт
func (g *MarkdownGenerator) Generate(ctx context.Context, data *Data) ([]byte, error) {
	if data == nil || data.Analysis == nil {
		return nil, errNoAnalysis
	}

	var buf bytes.Buffer
	a := data.Analysis

	fmt.Fprintf(&buf, "# %s\n\n", g.GetTitle(data))
	fmt.Fprintf(&buf, "*%s | Generated: %s*\n\n", g.GetCompany(data), g.FormatTimestamp(g.generatedAt(data)))

	buf.WriteString("## Summary\n\n")
	g.writeTable(&buf, []string{"Metric", "Value"}, summaryRows(g.Summary(data)))

	if !a.Optimal() {
		fmt.Fprintf(&buf, "> %s\n", UndefinedText(a.Status))
		return buf.Bytes(), nil
	}

	buf.WriteString("## Optimal Production Plan\n\n")
	vars := make([][]string, 0, len(a.Variables))
	for _, v := range a.Variables {
		vars = append(vars, []string{v.Name, g.FormatFloat(v.Value, 4)})
	}
	g.writeTable(&buf, variableHeaders, vars)

	buf.WriteString("## Shadow Prices\n\n")
	prices := make([][]string, 0, len(a.ShadowPrices))
	for _, p := range a.ShadowPrices {
		prices = append(prices, []string{p.Label, g.FormatFloat(p.Value, 4)})
	}
	g.writeTable(&buf, shadowHeaders, prices)

	buf.WriteString("## Feasibility Ranges\n\n")
	ranges := make([][]string, 0, len(a.Ranges))
	for _, r := range a.Ranges {
		ranges = append(ranges, g.rangeRow(r))
	}
	g.writeTable(&buf, rangeHeaders, ranges)

	if data.Scenario != nil {
		g.writeScenario(&buf, data)
	}
	return buf.Bytes(), nil
}

func (g *MarkdownGenerator) writeScenario(buf *bytes.Buffer, data *Data) {
	buf.WriteString("## Scenario\n\n")
	rows := make([][]string, 0, len(data.Scenario.PerConstraint))
	for _, s := range data.Scenario.PerConstraint {
		rows = append(rows, g.scenarioRow(s))
	}
	g.writeTable(buf, scenarioHeaders, rows)

	buf.WriteString("### Global Conclusion\n\n")
	for _, line := range g.Conclusion(data) {
		fmt.Fprintf(buf, "- %s\n", line)
	}
	buf.WriteString("\n")
}

func (g *MarkdownGenerator) writeTable(buf *bytes.Buffer, headers []string, rows [][]string) {
	fmt.Fprintf(buf, "| %s |\n", strings.Join(headers, " | "))
	sep := make([]string, len(headers))
	for i := range sep {
		sep[i] = "---"
	}
	fmt.Fprintf(buf, "|%s|\n", strings.Join(sep, "|"))
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = strings.ReplaceAll(c, "|", "\\|")
		}
		fmt.Fprintf(buf, "| %s |\n", strings.Join(cells, " | "))
	}
	buf.WriteString("\n")
}

func summaryRows(items []keyValue) [][]string {
	rows := make([][]string, 0, len(items))
	for _, kv := range items {
		rows = append(rows, []string{kv.Key, kv.Value})
	}
	return rows
}
