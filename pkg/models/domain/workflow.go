package domain

import "time"

type RunTrigger string

const (
	RunTriggerManual    RunTrigger = "manual"
	RunTriggerScheduled RunTrigger = "scheduled"
)

// ScoringRun is the recorded history entry of one scoring pass.
type ScoringRun struct {
	RunID        string
	Trigger      RunTrigger
	Outcome      ScoringOutcome
	Status       string
	UpdatedCount int
	SkippedCount int
	Error        *string
	StartedAt    time.Time
	FinishedAt   time.Time
}
