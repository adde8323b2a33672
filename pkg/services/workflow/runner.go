package workflow

import (
	"context"
	"time"

	"github.com/de-tools/posture-guard/pkg/models/domain"
	"github.com/de-tools/posture-guard/pkg/services/risk"
	"github.com/rs/zerolog"
)

type RunnerConfig struct {
	Interval time.Duration
	// RunOnStart triggers a pass right away instead of after the first tick.
	RunOnStart bool
}

type RunnerProgress struct {
	Passes     int64
	LastResult domain.ScoringResult
}

// Runner drives periodic scoring passes. Passes run one at a time on the
// runner goroutine.
type Runner struct {
	engine   risk.Engine
	config   RunnerConfig
	done     chan struct{}
	progress chan RunnerProgress
}

func NewRunner(engine risk.Engine, config RunnerConfig) *Runner {
	return &Runner{
		engine:   engine,
		config:   config,
		done:     make(chan struct{}),
		progress: make(chan RunnerProgress, 100),
	}
}

func (r *Runner) Done() <-chan struct{} {
	return r.done
}

func (r *Runner) Progress() <-chan RunnerProgress {
	return r.progress
}

func (r *Runner) Run(ctx context.Context) {
	logger := zerolog.Ctx(ctx).With().Str("component", "scoring-runner").Logger()
	defer close(r.done)
	defer close(r.progress)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	logger.Info().Dur("interval", r.config.Interval).Msg("scoring runner started")

	var passes int64
	pass := func() {
		result := r.engine.ScoreAll(ctx)
		passes++
		logger.Info().
			Str("run_id", result.RunID).
			Str("status", result.Status).
			Int("updated", result.UpdatedCount).
			Int("skipped", result.SkippedCount).
			Msg("scheduled scoring pass finished")

		select {
		case r.progress <- RunnerProgress{Passes: passes, LastResult: result}:
		default:
			// nobody is draining progress
		}
	}

	if r.config.RunOnStart {
		pass()
	}
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("scoring runner stopped")
			return
		case <-ticker.C:
			pass()
		}
	}
}
