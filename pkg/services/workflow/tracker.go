package workflow

import (
	"context"
	"time"

	"github.com/de-tools/posture-guard/pkg/models/domain"
	"github.com/de-tools/posture-guard/pkg/services/risk"
	"github.com/rs/zerolog"
)

type RunRecorder interface {
	RecordRun(ctx context.Context, run domain.ScoringRun) error
}

type trackedEngine struct {
	risk.Engine
	recorder RunRecorder
	trigger  domain.RunTrigger
	now      func() time.Time
}

// NewTrackedEngine records every ScoreAll pass of engine in the run history.
// A failed record is logged and never changes the pass result.
func NewTrackedEngine(engine risk.Engine, recorder RunRecorder, trigger domain.RunTrigger) risk.Engine {
	return &trackedEngine{
		Engine:   engine,
		recorder: recorder,
		trigger:  trigger,
		now:      time.Now,
	}
}

func (t *trackedEngine) ScoreAll(ctx context.Context) domain.ScoringResult {
	started := t.now().UTC()
	result := t.Engine.ScoreAll(ctx)

	run := domain.ScoringRun{
		RunID:        result.RunID,
		Trigger:      t.trigger,
		Outcome:      result.Outcome,
		Status:       result.Status,
		UpdatedCount: result.UpdatedCount,
		SkippedCount: result.SkippedCount,
		StartedAt:    started,
		FinishedAt:   t.now().UTC(),
	}
	if result.Err != nil {
		msg := result.Err.Error()
		run.Error = &msg
	}

	// the pass may have ended because ctx was canceled
	if err := t.recorder.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		zerolog.Ctx(ctx).Warn().
			Err(err).
			Str("run_id", run.RunID).
			Msg("failed to record scoring run")
	}
	return result
}
