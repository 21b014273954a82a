package excel

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellValue("Sheet1", cell, v); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "data.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

func TestReader_Read(t *testing.T) {
	path := writeWorkbook(t, [][]interface{}{
		{"count", "covariate", "notes"},
		{3, 1.5, "x"},
		{0, -0.25, ""},
		{12, 2, ""},
	})

	table, err := NewReader().Read(context.Background(), path, "count", "covariate")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if table.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", table.Len())
	}
	if table.Row(0).Count != 3 || table.Row(0).Covariate != 1.5 {
		t.Errorf("unexpected first row: %+v", table.Row(0))
	}
}

func TestReader_FloatStoredCounts(t *testing.T) {
	// Spreadsheets frequently store integer counts as floats.
	path := writeWorkbook(t, [][]interface{}{
		{"count", "covariate"},
		{4.0, 0.5},
		{7.0, 1.5},
	})
	table, err := NewReader().Read(context.Background(), path, "count", "covariate")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if table.Row(1).Count != 7 {
		t.Errorf("expected count 7, got %d", table.Row(1).Count)
	}
}

func TestReader_Errors(t *testing.T) {
	ctx := context.Background()
	r := NewReader()

	if _, err := r.Read(ctx, filepath.Join(t.TempDir(), "missing.xlsx"), "count", "covariate"); err == nil {
		t.Error("missing file should error")
	}

	path := writeWorkbook(t, [][]interface{}{
		{"a", "b"},
		{1, 2},
		{3, 4},
	})
	if _, err := r.Read(ctx, path, "count", "covariate"); err == nil {
		t.Error("missing columns should error")
	}

	path = writeWorkbook(t, [][]interface{}{
		{"count", "covariate"},
		{2.5, 1.0},
		{3, 4},
	})
	if _, err := r.Read(ctx, path, "count", "covariate"); err == nil {
		t.Error("fractional count should error")
	}
}
