package excel

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"ppcheck/domain/dataset"
	"ppcheck/ports"
)

// Reader loads observation tables from the first sheet of an .xlsx file.
// The first row is treated as a header naming the columns.
type Reader struct{}

// NewReader creates a new Excel dataset reader
func NewReader() *Reader {
	return &Reader{}
}

var _ ports.DatasetReader = (*Reader)(nil)

// Read loads the named count and covariate columns into a table
func (r *Reader) Read(ctx context.Context, path, countColumn, covariateColumn string) (*dataset.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("excel file has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("sheet %s has no data rows", sheets[0])
	}

	countIdx, covIdx := -1, -1
	for i, name := range rows[0] {
		switch strings.TrimSpace(strings.ToLower(name)) {
		case strings.ToLower(countColumn):
			countIdx = i
		case strings.ToLower(covariateColumn):
			covIdx = i
		}
	}
	if countIdx < 0 {
		return nil, fmt.Errorf("count column %q not found in header", countColumn)
	}
	if covIdx < 0 {
		return nil, fmt.Errorf("covariate column %q not found in header", covariateColumn)
	}

	obs := make([]dataset.Observation, 0, len(rows)-1)
	for rowNum, row := range rows[1:] {
		if countIdx >= len(row) || covIdx >= len(row) {
			continue // short row, treat as missing
		}
		count, err := parseCount(row[countIdx])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum+2, err)
		}
		cov, err := strconv.ParseFloat(strings.TrimSpace(row[covIdx]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: covariate %q is not numeric", rowNum+2, row[covIdx])
		}
		obs = append(obs, dataset.Observation{Count: count, Covariate: cov})
	}
	return dataset.NewTable(obs)
}

// parseCount accepts integer strings and float strings that happen to be
// whole numbers (spreadsheets often store counts as floats)
func parseCount(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("count %q is not numeric", s)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("count %q is not an integer", s)
	}
	return int(f), nil
}
