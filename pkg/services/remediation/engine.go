package remediation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/de-tools/posture-guard/pkg/metrics"
	"github.com/de-tools/posture-guard/pkg/models/domain"
	"github.com/de-tools/posture-guard/pkg/services/remediation/rules"
	"github.com/de-tools/posture-guard/pkg/store"
	"github.com/rs/zerolog"
)

const (
	outcomeRemediated = "remediated"
	outcomeCompliant  = "compliant"
	outcomeRejected   = "rejected"
	outcomeError      = "error"
)

// Store is the part of the resource store the engine depends on.
type Store interface {
	FindOne(ctx context.Context, resourceID string) (*domain.Resource, error)
	UpdateFields(ctx context.Context, resourceID string, fields domain.FieldUpdates) error
}

type Engine interface {
	Remediate(ctx context.Context, resourceID string) (*domain.RemediationResult, error)
}

type Option func(*engine)

// WithClock overrides the time source used for rule evaluation and timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *engine) {
		e.now = now
	}
}

type engine struct {
	store   Store
	catalog rules.Catalog
	now     func() time.Time
}

func NewEngine(store Store, catalog rules.Catalog, opts ...Option) Engine {
	e := &engine{
		store:   store,
		catalog: catalog,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Remediate reads one resource, applies every triggered rule and persists the
// merged result in a single write.
func (e *engine) Remediate(ctx context.Context, resourceID string) (*domain.RemediationResult, error) {
	logger := zerolog.Ctx(ctx).With().Str("resource_id", resourceID).Logger()

	if strings.TrimSpace(resourceID) == "" {
		metrics.RemediationsTotal.WithLabelValues(outcomeRejected).Inc()
		return nil, domain.NewBadRequest("resource_id is required")
	}

	resource, err := e.store.FindOne(ctx, resourceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.RemediationsTotal.WithLabelValues(outcomeRejected).Inc()
			return nil, domain.NewNotFound("Resource not found", err)
		}
		return nil, e.fail(&logger, fmt.Errorf("find resource: %w", err))
	}

	now := e.now()
	ev, err := e.evaluate(*resource, now)
	if err != nil {
		return nil, e.fail(&logger, err)
	}
	for _, n := range ev.Notes {
		logger.Debug().Str("check", n.Check).Str("outcome", string(n.Outcome)).Msg(n.Detail)
	}

	actions := ev.Actions()
	updates := ev.Updates()
	message := domain.NoMisconfigurationsMsg
	if len(actions) > 0 {
		updates[domain.FieldRiskScore] = 0.0
		updates[domain.FieldRiskLevel] = domain.RiskLevelLow
		updates[domain.FieldLastRemediated] = now
		message = strings.Join(actions, " | ")
	} else {
		updates[domain.FieldLastChecked] = now
	}

	if err := e.store.UpdateFields(ctx, resourceID, updates); err != nil {
		return nil, e.fail(&logger, fmt.Errorf("update resource: %w", err))
	}

	if len(actions) > 0 {
		metrics.RemediationsTotal.WithLabelValues(outcomeRemediated).Inc()
		metrics.RemediationActionsTotal.WithLabelValues(string(resource.Type)).Add(float64(len(actions)))
	} else {
		metrics.RemediationsTotal.WithLabelValues(outcomeCompliant).Inc()
	}
	logger.Info().
		Str("type", string(resource.Type)).
		Int("actions", len(actions)).
		Msg("remediation applied")

	notes := make([]string, 0, len(ev.Notes))
	for _, n := range ev.Notes {
		notes = append(notes, n.String())
	}

	return &domain.RemediationResult{
		Status:     domain.RemediationStatusSuccess,
		ResourceID: resourceID,
		Message:    message,
		Actions:    actions,
		Notes:      notes,
	}, nil
}

func (e *engine) evaluate(resource domain.Resource, now time.Time) (ev rules.Evaluation, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rule evaluation for %s panicked: %v", resource.Type, r)
		}
	}()
	return e.catalog.Evaluate(resource, now), nil
}

func (e *engine) fail(logger *zerolog.Logger, err error) error {
	metrics.RemediationsTotal.WithLabelValues(outcomeError).Inc()
	internal := domain.NewInternal(err)
	logger.Error().
		Err(err).
		Str("stack", domain.ErrorStack(internal)).
		Msg("remediation failed")
	return internal
}
