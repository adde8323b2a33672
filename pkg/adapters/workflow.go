package adapters

import (
	"github.com/de-tools/posture-guard/pkg/models/api"
	"github.com/de-tools/posture-guard/pkg/models/domain"
	"github.com/de-tools/posture-guard/pkg/models/store"
)

func MapStoreRunToDomain(r store.ScoringRun) domain.ScoringRun {
	run := domain.ScoringRun{
		RunID:        r.RunID,
		Trigger:      domain.RunTrigger(r.Trigger),
		Outcome:      domain.ScoringOutcome(r.Outcome),
		Status:       r.Status,
		UpdatedCount: r.UpdatedCount,
		SkippedCount: r.SkippedCount,
		StartedAt:    r.StartedAt.UTC(),
		FinishedAt:   r.FinishedAt.UTC(),
	}
	if r.Error.Valid {
		msg := r.Error.String
		run.Error = &msg
	}
	return run
}

func MapDomainRunToStore(r domain.ScoringRun) store.ScoringRun {
	run := store.ScoringRun{
		RunID:        r.RunID,
		Trigger:      string(r.Trigger),
		Outcome:      string(r.Outcome),
		Status:       r.Status,
		UpdatedCount: r.UpdatedCount,
		SkippedCount: r.SkippedCount,
		StartedAt:    r.StartedAt.UTC(),
		FinishedAt:   r.FinishedAt.UTC(),
	}
	if r.Error != nil {
		run.Error.String, run.Error.Valid = *r.Error, true
	}
	return run
}

// MapDomainRunToAPI drops the failure detail; it is for logs only.
func MapDomainRunToAPI(r domain.ScoringRun) api.ScoringRun {
	return api.ScoringRun{
		RunID:        r.RunID,
		Trigger:      string(r.Trigger),
		Status:       r.Status,
		UpdatedCount: r.UpdatedCount,
		SkippedCount: r.SkippedCount,
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
	}
}
