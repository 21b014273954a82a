package ports

import (
	"context"
	"time"

	"ppcheck/domain/core"
	"ppcheck/domain/posterior"
	"ppcheck/domain/replicate"
)

// PolicyResult is the persisted outcome of one replication policy within a run
type PolicyResult struct {
	Policy    string               `json:"policy"`
	Valid     bool                 `json:"valid"`
	Coverage  replicate.Coverage   `json:"coverage"`
	Intervals []replicate.Interval `json:"intervals"`
}

// RunRecord is the persisted outcome of a full posterior predictive check
type RunRecord struct {
	ID          core.RunID            `db:"id" json:"id"`
	Dataset     string                `db:"dataset" json:"dataset"`
	N           int                   `db:"n" json:"n"`
	Seed        int64                 `db:"seed" json:"seed"`
	Diagnostics posterior.Diagnostics `json:"diagnostics"`
	Policies    []PolicyResult        `json:"policies"`
	FailedFolds []int                 `json:"failed_folds,omitempty"`
	CreatedAt   time.Time             `db:"created_at" json:"created_at"`
}

// RunRepository persists and retrieves posterior predictive check runs
type RunRepository interface {
	SaveRun(ctx context.Context, rec *RunRecord) error
	GetRun(ctx context.Context, id core.RunID) (*RunRecord, error)
	ListRuns(ctx context.Context, limit int) ([]*RunRecord, error)
}
