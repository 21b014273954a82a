package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"ppcheck/domain/dataset"
	"ppcheck/ports"
)

// Reader loads observation tables from CSV files with a header row
type Reader struct{}

// NewReader creates a new CSV dataset reader
func NewReader() *Reader {
	return &Reader{}
}

var _ ports.DatasetReader = (*Reader)(nil)

// Read loads the named count and covariate columns into a table
func (r *Reader) Read(ctx context.Context, path, countColumn, covariateColumn string) (*dataset.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("csv has no data rows")
	}

	countIdx, covIdx := -1, -1
	for i, name := range records[0] {
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

	obs := make([]dataset.Observation, 0, len(records)-1)
	for rowNum, rec := range records[1:] {
		count, err := strconv.Atoi(strings.TrimSpace(rec[countIdx]))
		if err != nil {
			return nil, fmt.Errorf("row %d: count %q is not an integer", rowNum+2, rec[countIdx])
		}
		cov, err := strconv.ParseFloat(strings.TrimSpace(rec[covIdx]), 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: covariate %q is not numeric", rowNum+2, rec[covIdx])
		}
		obs = append(obs, dataset.Observation{Count: count, Covariate: cov})
	}
	return dataset.NewTable(obs)
}
