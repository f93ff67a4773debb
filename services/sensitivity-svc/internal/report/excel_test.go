// services/sensitivity-svc/internal/report/excel_test.go

package report

import (
	"bytes"
	"context"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestExcelGenerator_Generate(t *testing.T) {
	g := NewExcelGenerator()
	d := testData()
	d.Scenario = feasibleScenario()

	result, err := g.Generate(context.Background(), d)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(result))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	want := []string{sheetSummary, sheetRanges, sheetScenario}
	if len(sheets) != len(want) {
		t.Fatalf("sheets = %v, want %v", sheets, want)
	}
	for i := range want {
		if sheets[i] != want[i] {
			t.Errorf("sheet[%d] = %q, want %q", i, sheets[i], want[i])
		}
	}

	title, _ := f.GetCellValue(sheetSummary, "A1")
	if title != "Sensitivity Analysis Report" {
		t.Errorf("A1 = %q", title)
	}

	label, _ := f.GetCellValue(sheetRanges, "A2")
	inc, _ := f.GetCellValue(sheetRanges, "D2")
	dec, _ := f.GetCellValue(sheetRanges, "E2")
	if label != "R1" || inc != "unbounded" || dec != "2" {
		t.Errorf("R1 row = %q %q %q", label, inc, dec)
	}

	status, _ := f.GetCellValue(sheetScenario, "C2")
	if status != "Feasible (OK)" {
		t.Errorf("scenario status = %q", status)
	}
}

func TestExcelGenerator_Generate_NotOptimal(t *testing.T) {
	d := testData()
	d.Analysis.Status = "Infeasible"

	result, err := NewExcelGenerator().Generate(context.Background(), d)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(result))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	if idx, _ := f.GetSheetIndex(sheetRanges); idx != -1 {
		t.Error("Ranges sheet should not exist for non-optimal status")
	}
}
