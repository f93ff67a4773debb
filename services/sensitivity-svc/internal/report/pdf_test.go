// services/sensitivity-svc/internal/report/pdf_test.go

package report

import (
	"bytes"
	"context"
	"testing"

	"production/pkg/config"
)

func TestNewPDFGenerator_Defaults(t *testing.T) {
	g := NewPDFGenerator(config.PDFConfig{})
	if g.cfg.MarginTop != 15 || g.cfg.MarginLeft != 15 || g.cfg.MarginRight != 15 {
		t.Errorf("default margins = %+v", g.cfg)
	}

	g = NewPDFGenerator(config.PDFConfig{MarginTop: 20, MarginLeft: 10, MarginRight: 12})
	if g.cfg.MarginTop != 20 || g.cfg.MarginLeft != 10 || g.cfg.MarginRight != 12 {
		t.Errorf("custom margins = %+v", g.cfg)
	}
}

func TestPDFGenerator_Generate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(d *Data)
	}{
		{"analysis only", func(d *Data) {}},
		{"feasible scenario", func(d *Data) { d.Scenario = feasibleScenario() }},
		{"infeasible scenario", func(d *Data) { d.Scenario = infeasibleScenario() }},
		{"not optimal", func(d *Data) {
			d.Analysis.Status = "Unbounded"
			d.Analysis.Ranges = nil
		}},
	}

	g := NewPDFGenerator(config.PDFConfig{EnablePageNumbers: true})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := testData()
			tt.modify(d)

			result, err := g.Generate(context.Background(), d)
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if !bytes.HasPrefix(result, []byte("%PDF")) {
				t.Error("result should be a PDF document")
			}
		})
	}
}
