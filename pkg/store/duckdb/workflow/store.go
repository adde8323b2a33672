package workflow

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/de-tools/posture-guard/pkg/adapters"
	"github.com/de-tools/posture-guard/pkg/models/domain"
	"github.com/de-tools/posture-guard/pkg/models/store"
	"github.com/de-tools/posture-guard/pkg/store/duckdb"
)

const defaultListLimit = 20

// Store keeps the history of scoring passes.
type Store interface {
	RecordRun(ctx context.Context, run domain.ScoringRun) error
	// ListRuns returns the latest runs first.
	ListRuns(ctx context.Context, limit int) ([]domain.ScoringRun, error)
}

type defaultStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &defaultStore{
		db: db,
	}, nil
}

func (s *defaultStore) RecordRun(ctx context.Context, run domain.ScoringRun) error {
	record := adapters.MapDomainRunToStore(run)
	query := `
		INSERT INTO scoring_runs (
			run_id, trigger, outcome, status, updated_count,
			skipped_count, error, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	args := []interface{}{
		record.RunID,
		record.Trigger,
		record.Outcome,
		record.Status,
		record.UpdatedCount,
		record.SkippedCount,
		record.Error,
		record.StartedAt,
		record.FinishedAt,
	}

	if _, err := duckdb.Conn(ctx, s.db).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert scoring run: %w", err)
	}
	return nil
}

func (s *defaultStore) ListRuns(ctx context.Context, limit int) ([]domain.ScoringRun, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := duckdb.Conn(ctx, s.db).QueryContext(ctx, `
		SELECT run_id, trigger, outcome, status, updated_count,
			skipped_count, error, started_at, finished_at
		FROM scoring_runs
		ORDER BY started_at DESC, run_id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query scoring runs: %w", err)
	}
	defer rows.Close()

	runs := make([]domain.ScoringRun, 0)
	for rows.Next() {
		var r store.ScoringRun
		err := rows.Scan(
			&r.RunID,
			&r.Trigger,
			&r.Outcome,
			&r.Status,
			&r.UpdatedCount,
			&r.SkippedCount,
			&r.Error,
			&r.StartedAt,
			&r.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan scoring run: %w", err)
		}
		runs = append(runs, adapters.MapStoreRunToDomain(r))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scoring runs: %w", err)
	}
	return runs, nil
}
