package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"ppcheck/domain/core"
	"ppcheck/domain/posterior"
	"ppcheck/ports"
)

// RunRepositoryImpl implements ports.RunRepository for PostgreSQL
type RunRepositoryImpl struct {
	db *sqlx.DB
}

// Connect opens and pings a PostgreSQL connection
func Connect(url string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return db, nil
}

// NewRunRepository creates a new PostgreSQL run repository
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &RunRepositoryImpl{db: db}
}

// EnsureSchema creates the runs table when it does not exist
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS ppc_runs (
			id           TEXT PRIMARY KEY,
			dataset      TEXT NOT NULL,
			n            INTEGER NOT NULL,
			seed         BIGINT NOT NULL,
			diagnostics  JSONB NOT NULL,
			policies     JSONB NOT NULL,
			failed_folds JSONB,
			created_at   TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure ppc_runs schema: %w", err)
	}
	return nil
}

type runRow struct {
	ID          string          `db:"id"`
	Dataset     string          `db:"dataset"`
	N           int             `db:"n"`
	Seed        int64           `db:"seed"`
	Diagnostics json.RawMessage `db:"diagnostics"`
	Policies    json.RawMessage `db:"policies"`
	FailedFolds json.RawMessage `db:"failed_folds"`
	CreatedAt   time.Time       `db:"created_at"`
}

// SaveRun persists a run record
func (r *RunRepositoryImpl) SaveRun(ctx context.Context, rec *ports.RunRecord) error {
	diag, err := json.Marshal(rec.Diagnostics)
	if err != nil {
		return fmt.Errorf("marshal diagnostics: %w", err)
	}
	policies, err := json.Marshal(rec.Policies)
	if err != nil {
		return fmt.Errorf("marshal policies: %w", err)
	}
	var failed []byte
	if rec.FailedFolds != nil {
		failed, err = json.Marshal(rec.FailedFolds)
		if err != nil {
			return fmt.Errorf("marshal failed folds: %w", err)
		}
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO ppc_runs (id, dataset, n, seed, diagnostics, policies, failed_folds, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, rec.ID.String(), rec.Dataset, rec.N, rec.Seed, diag, policies, failed, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by id
func (r *RunRepositoryImpl) GetRun(ctx context.Context, id core.RunID) (*ports.RunRecord, error) {
	var row runRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, dataset, n, seed, diagnostics, policies, failed_folds, created_at
		FROM ppc_runs WHERE id = $1
	`, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NewNotFoundError("run", id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("select run: %w", err)
	}
	return row.toRecord()
}

// ListRuns returns the most recent runs
func (r *RunRepositoryImpl) ListRuns(ctx context.Context, limit int) ([]*ports.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []runRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, dataset, n, seed, diagnostics, policies, failed_folds, created_at
		FROM ppc_runs ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	out := make([]*ports.RunRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toRecord()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (row runRow) toRecord() (*ports.RunRecord, error) {
	rec := &ports.RunRecord{
		ID:        core.RunID(row.ID),
		Dataset:   row.Dataset,
		N:         row.N,
		Seed:      row.Seed,
		CreatedAt: row.CreatedAt,
	}
	var diag posterior.Diagnostics
	if err := json.Unmarshal(row.Diagnostics, &diag); err != nil {
		return nil, fmt.Errorf("unmarshal diagnostics: %w", err)
	}
	rec.Diagnostics = diag
	if err := json.Unmarshal(row.Policies, &rec.Policies); err != nil {
		return nil, fmt.Errorf("unmarshal policies: %w", err)
	}
	if len(row.FailedFolds) > 0 {
		if err := json.Unmarshal(row.FailedFolds, &rec.FailedFolds); err != nil {
			return nil, fmt.Errorf("unmarshal failed folds: %w", err)
		}
	}
	return rec, nil
}
