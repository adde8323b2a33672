package risk

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/de-tools/posture-guard/pkg/metrics"
	"github.com/de-tools/posture-guard/pkg/models/domain"
	"github.com/de-tools/posture-guard/pkg/services/risk/iforest"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	maxScore = 100.0
	minScore = 0.0
)

// Store is the part of the resource store the engine depends on.
type Store interface {
	FindAll(ctx context.Context) ([]domain.Resource, error)
	// UpdateFieldsIfVersion writes only when the stored version still equals
	// version and reports whether the write happened.
	UpdateFieldsIfVersion(ctx context.Context, resourceID string, version int64, fields domain.FieldUpdates) (bool, error)
}

type Engine interface {
	// ScoreAll scores the full inventory and persists the results. Failures are
	// reported through the result, never returned.
	ScoreAll(ctx context.Context) domain.ScoringResult
	// Score fits the model over resources and returns one assessment per id.
	Score(resources []domain.Resource) (map[string]domain.RiskAssessment, error)
}

type Settings struct {
	Forest iforest.Config
	// ClampScore bounds scores to [0, 100].
	ClampScore bool
}

func DefaultSettings() Settings {
	return Settings{
		Forest:     iforest.DefaultConfig(),
		ClampScore: true,
	}
}

type engine struct {
	store    Store
	settings Settings
}

func NewEngine(store Store, settings Settings) Engine {
	return &engine{
		store:    store,
		settings: settings,
	}
}

func (e *engine) ScoreAll(ctx context.Context) (result domain.ScoringResult) {
	started := time.Now()
	result.RunID = uuid.NewString()
	logger := zerolog.Ctx(ctx).With().Str("run_id", result.RunID).Logger()

	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("scoring panicked: %v", r)
			result.Outcome = domain.ScoringFailed
		}
		result.Status = result.Outcome.Status()
		if result.Outcome == domain.ScoringFailed {
			logger.Error().
				Err(result.Err).
				Int("updated", result.UpdatedCount).
				Msg("risk analysis failed")
		}
		metrics.ScoringRunsTotal.WithLabelValues(string(result.Outcome)).Inc()
		metrics.ScoringDuration.Observe(time.Since(started).Seconds())
	}()

	resources, err := e.store.FindAll(ctx)
	if err != nil {
		result.Outcome = domain.ScoringFailed
		result.Err = fmt.Errorf("load inventory: %w", err)
		return result
	}
	logger.Info().Int("resources", len(resources)).Msg("starting risk analysis")

	if len(resources) == 0 {
		result.Outcome = domain.ScoringNothingToAnalyze
		return result
	}

	assessments, err := e.Score(resources)
	if err != nil {
		result.Outcome = domain.ScoringFailed
		result.Err = err
		return result
	}

	for _, r := range resources {
		if err := ctx.Err(); err != nil {
			result.Outcome = domain.ScoringFailed
			result.Err = err
			return result
		}

		a := assessments[r.ID]
		written, err := e.store.UpdateFieldsIfVersion(ctx, r.ID, r.Version, domain.FieldUpdates{
			domain.FieldRiskScore: a.Score,
			domain.FieldRiskLevel: a.Level,
		})
		if err != nil {
			result.Outcome = domain.ScoringFailed
			result.Err = fmt.Errorf("update %s: %w", r.ID, err)
			return result
		}
		if !written {
			logger.Debug().Str("resource_id", r.ID).Msg("resource changed during analysis, skipped")
			result.SkippedCount++
			metrics.ScoringResourcesSkipped.Inc()
			continue
		}

		logger.Debug().
			Str("resource_id", r.ID).
			Float64("score", a.Score).
			Str("level", string(a.Level)).
			Msg("risk updated")
		result.UpdatedCount++
		metrics.ScoringResourcesUpdated.Inc()
	}

	result.Outcome = domain.ScoringCompleted
	logger.Info().
		Int("updated", result.UpdatedCount).
		Int("skipped", result.SkippedCount).
		Msg("risk analysis completed")
	return result
}

func (e *engine) Score(resources []domain.Resource) (map[string]domain.RiskAssessment, error) {
	out := make(map[string]domain.RiskAssessment, len(resources))
	if len(resources) == 0 {
		return out, nil
	}

	X := Matrix(resources)
	forest, err := iforest.Fit(X, e.settings.Forest)
	if err != nil {
		return nil, fmt.Errorf("fit outlier model: %w", err)
	}

	for i, r := range resources {
		outlier := forest.Predict(X[i]) == -1
		level := domain.RiskLevelLow
		if outlier {
			level = domain.RiskLevelHigh
		}
		out[r.ID] = domain.RiskAssessment{
			Score:   e.scale(forest.Decision(X[i])),
			Level:   level,
			Outlier: outlier,
		}
	}
	return out, nil
}

func (e *engine) scale(decision float64) float64 {
	score := math.Round((1-decision)*50*100) / 100
	if e.settings.ClampScore {
		score = math.Max(minScore, math.Min(maxScore, score))
	}
	return score
}
