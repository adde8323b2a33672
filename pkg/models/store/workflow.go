package store

import (
	"database/sql"
	"time"
)

// ScoringRun is one row of the scoring_runs table.
type ScoringRun struct {
	RunID        string
	Trigger      string
	Outcome      string
	Status       string
	UpdatedCount int
	SkippedCount int
	Error        sql.NullString
	StartedAt    time.Time
	FinishedAt   time.Time
}
