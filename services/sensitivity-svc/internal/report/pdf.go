// services/sensitivity-svc/internal/report/pdf.go
package report

import (
	"context"
	"fmt"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/border"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	appconfig "production/pkg/config"
)

// PDFGenerator генератор PDF отчётов
type PDFGenerator struct {
	BaseGenerator
	cfg appconfig.PDFConfig
}

// NewPDFGenerator создаёт новый генератор; нулевые поля берутся по умолчанию
func NewPDFGenerator(cfg appconfig.PDFConfig) *PDFGenerator {
	if cfg.MarginTop <= 0 {
		cfg.MarginTop = 15
	}
	if cfg.MarginLeft <= 0 {
		cfg.MarginLeft = 15
	}
	if cfg.MarginRight <= 0 {
		cfg.MarginRight = 15
	}
	return &PDFGenerator{cfg: cfg}
}

// Format возвращает формат генератора
func (g *PDFGenerator) Format() Format { return FormatPDF }

func (g *PDFGenerator) ContentType() string { return "application/pdf" }

func (g *PDFGenerator) Extension() string { return "pdf" }

// Стили
var (
	// Цвета
	primaryColor   = &props.Color{Red: 52, Green: 152, Blue: 219}  // #3498db
	headerBgColor  = &props.Color{Red: 44, Green: 62, Blue: 80}    // #2c3e50
	successColor   = &props.Color{Red: 39, Green: 174, Blue: 96}   // #27ae60
	dangerColor    = &props.Color{Red: 231, Green: 76, Blue: 60}   // #e74c3c
	lightGrayColor = &props.Color{Red: 236, Green: 240, Blue: 241} // #ecf0f1
	darkGrayColor  = &props.Color{Red: 127, Green: 140, Blue: 141} // #7f8c8d

	titleStyle = props.Text{
		Size:  22,
		Style: fontstyle.Bold,
		Align: align.Center,
		Color: headerBgColor,
	}

	h2Style = props.Text{
		Size:  15,
		Style: fontstyle.Bold,
		Color: headerBgColor,
		Top:   5,
	}

	normalStyle = props.Text{
		Size: 10,
	}

	boldStyle = props.Text{
		Size:  10,
		Style: fontstyle.Bold,
	}

	smallStyle = props.Text{
		Size:  8,
		Color: darkGrayColor,
	}

	metricValueStyle = props.Text{
		Size:  16,
		Style: fontstyle.Bold,
		Align: align.Center,
		Color: primaryColor,
	}

	metricLabelStyle = props.Text{
		Size:  9,
		Align: align.Center,
		Color: darkGrayColor,
		Top:   9,
	}

	tableHeaderStyle = &props.Cell{
		BackgroundColor: primaryColor,
	}

	tableHeaderTextStyle = props.Text{
		Size:  9,
		Style: fontstyle.Bold,
		Color: &props.Color{Red: 255, Green: 255, Blue: 255},
		Align: align.Center,
	}

	tableCellStyle = &props.Cell{
		BorderType:  border.Bottom,
		BorderColor: lightGrayColor,
	}

	tableCellTextStyle = props.Text{
		Size:  9,
		Align: align.Center,
	}
)

// Generate генерирует PDF отчёт
func (g *PDFGenerator) Generate(ctx context.Context, data *Data) ([]byte, error) {
	if data == nil || data.Analysis == nil {
		return nil, errNoAnalysis
	}

	builder := config.NewBuilder().
		WithLeftMargin(g.cfg.MarginLeft).
		WithTopMargin(g.cfg.MarginTop).
		WithRightMargin(g.cfg.MarginRight)
	if g.cfg.EnablePageNumbers {
		builder = builder.WithPageNumber()
	}

	m := maroto.New(builder.Build())

	g.addHeader(m, data)
	g.addSummary(m, data)

	a := data.Analysis
	if a.Optimal() {
		g.addVariables(m, data)
		g.addRanges(m, data)
	} else {
		m.AddRow(8, text.NewCol(12, UndefinedText(a.Status), props.Text{Size: 11, Color: dangerColor}))
	}

	if data.Scenario != nil {
		g.addScenario(m, data)
	}

	g.addFooter(m, data)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return doc.GetBytes(), nil
}

func (g *PDFGenerator) addHeader(m core.Maroto, data *Data) {
	m.AddRow(15,
		text.NewCol(12, g.GetTitle(data), titleStyle),
	)
	m.AddRow(5,
		line.NewCol(12),
	)
	m.AddRow(6,
		text.NewCol(6, g.GetCompany(data), smallStyle),
		text.NewCol(6, fmt.Sprintf("Generated: %s", g.FormatTimestamp(g.generatedAt(data))),
			props.Text{Size: 8, Color: darkGrayColor, Align: align.Right}),
	)
	m.AddRow(8) // Отступ
}

type metricCard struct {
	Label string
	Value string
}

func (g *PDFGenerator) addSummary(m core.Maroto, data *Data) {
	a := data.Analysis
	g.addSection(m, "Summary")

	profit := "-"
	if a.Optimal() {
		profit = g.Money(data, a.Objective)
	}
	g.addMetricCards(m, []metricCard{
		{Label: "Maximum Profit", Value: profit},
		{Label: "Status", Value: a.Status},
		{Label: "Variables", Value: fmt.Sprintf("%d", len(a.Problem.Objective))},
		{Label: "Constraints", Value: fmt.Sprintf("%d", len(a.Problem.Constraints))},
	})

	for _, kv := range g.Summary(data) {
		m.AddRow(6,
			text.NewCol(6, kv.Key, boldStyle),
			text.NewCol(6, kv.Value, normalStyle),
		)
	}
}

func (g *PDFGenerator) addMetricCards(m core.Maroto, cards []metricCard) {
	if len(cards) == 0 {
		return
	}
	colSize := 12 / len(cards)

	var cols []core.Col
	for _, card := range cards {
		cols = append(cols,
			col.New(colSize).Add(
				text.New(card.Value, metricValueStyle),
				text.New(card.Label, metricLabelStyle),
			),
		)
	}
	m.AddRow(20, cols...)
}

func (g *PDFGenerator) addSection(m core.Maroto, title string) {
	m.AddRow(10,
		text.NewCol(12, title, h2Style),
	)
	m.AddRow(2,
		line.NewCol(12, props.Line{Color: primaryColor}),
	)
	m.AddRow(5)
}

// addTable рисует таблицу; ширины колонок в сумме дают 12
func (g *PDFGenerator) addTable(m core.Maroto, headers []string, widths []int, rows [][]string) {
	header := make([]core.Col, len(headers))
	for i, h := range headers {
		header[i] = text.NewCol(widths[i], h, tableHeaderTextStyle).WithStyle(tableHeaderStyle)
	}
	m.AddRow(8, header...)

	for _, row := range rows {
		cells := make([]core.Col, len(row))
		for i, v := range row {
			cells[i] = text.NewCol(widths[i], v, tableCellTextStyle).WithStyle(tableCellStyle)
		}
		m.AddRow(6, cells...)
	}
	m.AddRow(4)
}

func (g *PDFGenerator) addVariables(m core.Maroto, data *Data) {
	a := data.Analysis
	g.addSection(m, "Optimal Production Plan")

	rows := make([][]string, 0, len(a.Variables))
	for _, v := range a.Variables {
		rows = append(rows, []string{v.Name, g.FormatFloat(v.Value, 4)})
	}
	g.addTable(m, variableHeaders, []int{6, 6}, rows)
}

func (g *PDFGenerator) addRanges(m core.Maroto, data *Data) {
	g.addSection(m, "Shadow Prices and Feasibility Ranges")

	rows := make([][]string, 0, len(data.Analysis.Ranges))
	for _, r := range data.Analysis.Ranges {
		rows = append(rows, g.rangeRow(r))
	}
	g.addTable(m, rangeHeaders, []int{2, 2, 2, 2, 2, 2}, rows)
}

func (g *PDFGenerator) addScenario(m core.Maroto, data *Data) {
	s := data.Scenario
	g.addSection(m, "Scenario")

	if len(s.PerConstraint) > 0 {
		// Заголовок
		m.AddRow(8,
			text.NewCol(2, "Constraint", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
			text.NewCol(2, "Delta", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
			text.NewCol(3, "Status", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
			text.NewCol(3, "Profit Impact", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
			text.NewCol(2, "New RHS", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		)
		for _, c := range s.PerConstraint {
			statusStyle := tableCellTextStyle
			statusStyle.Color = successColor
			if !c.Feasible {
				statusStyle.Color = dangerColor
			}
			m.AddRow(6,
				text.NewCol(2, c.Label, tableCellTextStyle).WithStyle(tableCellStyle),
				text.NewCol(2, g.FormatFloat(c.Delta, 2), tableCellTextStyle).WithStyle(tableCellStyle),
				text.NewCol(3, FeasibilityText(c.Feasible), statusStyle).WithStyle(tableCellStyle),
				text.NewCol(3, c.Formula, tableCellTextStyle).WithStyle(tableCellStyle),
				text.NewCol(2, g.FormatFloat(c.NewRHS, 2), tableCellTextStyle).WithStyle(tableCellStyle),
			)
		}
		m.AddRow(4)
	}

	m.AddRow(8, text.NewCol(12, "Global Conclusion", boldStyle))
	conclusionStyle := normalStyle
	if s.AllFeasible {
		conclusionStyle.Color = successColor
	} else {
		conclusionStyle.Color = dangerColor
	}
	for i, l := range g.Conclusion(data) {
		style := normalStyle
		if i == 0 {
			style = conclusionStyle
		}
		m.AddRow(6, text.NewCol(12, l, style))
	}
}

func (g *PDFGenerator) addFooter(m core.Maroto, data *Data) {
	m.AddRow(10)
	m.AddRow(2,
		line.NewCol(12, props.Line{Color: lightGrayColor}),
	)
	m.AddRow(6,
		text.NewCol(12,
			fmt.Sprintf("Generated by %s | %s", g.GetCompany(data), g.FormatTimestamp(g.generatedAt(data))),
			props.Text{Size: 8, Color: darkGrayColor, Align: align.Center},
		),
	)
}
