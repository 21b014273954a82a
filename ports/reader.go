package ports

import (
	"context"

	"ppcheck/domain/dataset"
)

// DatasetReader loads a tabular dataset into an observation table. The count
// column must hold non-negative integers; the covariate column must be
// numeric.
type DatasetReader interface {
	Read(ctx context.Context, path, countColumn, covariateColumn string) (*dataset.Table, error)
}
