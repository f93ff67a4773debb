// services/sensitivity-svc/internal/report/markdown_test.go

package report

import (
	"context"
	"strings"
	"testing"
)

func TestMarkdownGenerator_Generate(t *testing.T) {
	g := NewMarkdownGenerator()
	if g.Format() != FormatMarkdown {
		t.Errorf("Format() = %v", g.Format())
	}

	d := testData()
	d.Title = "Wyndor Plan"
	d.Scenario = infeasibleScenario()

	result, err := g.Generate(context.Background(), d)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	md := string(result)
	for _, want := range []string{
		"# Wyndor Plan",
		"*Acme Works | Generated: 2026-03-14 09:30:00*",
		"## Optimal Production Plan",
		"| x1 | 2.0000 |",
		"## Shadow Prices",
		"| R2 | 1.5000 |",
		"## Feasibility Ranges",
		"| R3 | 18.00 | 1.0000 | 6.0000 | 6.0000 | [12.00;24.00] |",
		"### Global Conclusion",
		"Infeasible (out of range)",
		"- Out of range: R2",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("Markdown should contain %q\n%s", want, md)
		}
	}
}

func TestMarkdownGenerator_Generate_NotOptimal(t *testing.T) {
	d := testData()
	d.Analysis.Status = "Unbounded"

	result, err := NewMarkdownGenerator().Generate(context.Background(), d)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	md := string(result)
	if !strings.Contains(md, "> Sensitivity is undefined: solver status is Unbounded.") {
		t.Errorf("Markdown = %s", md)
	}
	if strings.Contains(md, "## Feasibility Ranges") {
		t.Error("ranges should be omitted for non-optimal status")
	}
}

func TestMarkdownGenerator_EscapesPipes(t *testing.T) {
	var g MarkdownGenerator
	d := testData()
	d.Analysis.Message = "a|b"

	result, err := g.Generate(context.Background(), d)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !strings.Contains(string(result), `a\|b`) {
		t.Error("pipe in cell should be escaped")
	}
}
