package resources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/de-tools/posture-guard/pkg/adapters"
	"github.com/de-tools/posture-guard/pkg/models/api"
	"github.com/de-tools/posture-guard/pkg/models/domain"
	"github.com/de-tools/posture-guard/pkg/services/remediation"
	"github.com/de-tools/posture-guard/pkg/services/risk"
	"github.com/de-tools/posture-guard/pkg/store"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gopkg.in/go-playground/validator.v9"
)

const (
	ingestedStatus        = "Resource ingested"
	remediationFailureMsg = "Remediation failed due to server error"
)

// Inventory is the read/ingest side of the resource store.
type Inventory interface {
	FindOne(ctx context.Context, resourceID string) (*domain.Resource, error)
	FindAll(ctx context.Context) ([]domain.Resource, error)
	Insert(ctx context.Context, resource domain.Resource) error
}

type RunHistory interface {
	ListRuns(ctx context.Context, limit int) ([]domain.ScoringRun, error)
}

type Handler struct {
	inventory   Inventory
	remediation remediation.Engine
	risk        risk.Engine
	runs        RunHistory
	validate    *validator.Validate
}

func NewHandler(inventory Inventory, remediation remediation.Engine, risk risk.Engine, runs RunHistory) *Handler {
	return &Handler{
		inventory:   inventory,
		remediation: remediation,
		risk:        risk,
		runs:        runs,
		validate:    validator.New(),
	}
}

func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	var req api.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, validationMessage(err))
		return
	}
	for key := range req.Attributes {
		if domain.IsCoreField(key) || domain.IsDerivedField(key) {
			writeError(ctx, w, http.StatusBadRequest, fmt.Sprintf("attribute %q is reserved", key))
			return
		}
	}

	resource := adapters.MapIngestRequestToDomain(req)
	if !resource.Type.Known() {
		logger.Warn().
			Str("resource_id", resource.ID).
			Str("type", string(resource.Type)).
			Msg("no remediation rules for resource type")
	}
	if err := h.inventory.Insert(ctx, resource); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			writeError(ctx, w, http.StatusConflict, fmt.Sprintf("resource %s already exists", req.ResourceID))
			return
		}
		logger.Error().Err(err).Str("resource_id", req.ResourceID).Msg("failed to ingest resource")
		writeError(ctx, w, http.StatusInternalServerError, "failed to ingest resource")
		return
	}

	logger.Info().
		Str("resource_id", resource.ID).
		Str("type", string(resource.Type)).
		Msg("resource ingested")
	writeJSON(ctx, w, http.StatusOK, api.StatusResponse{Status: ingestedStatus})
}

func (h *Handler) ListResources(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	resources, err := h.inventory.FindAll(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list resources")
		writeError(ctx, w, http.StatusInternalServerError, "failed to list resources")
		return
	}

	response := make([]api.Resource, 0, len(resources))
	for _, res := range resources {
		response = append(response, adapters.MapDomainResourceToAPI(res))
	}
	writeJSON(ctx, w, http.StatusOK, response)
}

func (h *Handler) GetResource(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	resourceID := chi.URLParam(r, "resourceID")

	resource, err := h.inventory.FindOne(ctx, resourceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(ctx, w, http.StatusNotFound, "Resource not found")
			return
		}
		logger.Error().Err(err).Str("resource_id", resourceID).Msg("failed to get resource")
		writeError(ctx, w, http.StatusInternalServerError, "failed to get resource")
		return
	}
	writeJSON(ctx, w, http.StatusOK, adapters.MapDomainResourceToAPI(*resource))
}

func (h *Handler) Remediate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.RemediateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(ctx, w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	result, err := h.remediation.Remediate(ctx, req.ResourceID)
	if err != nil {
		switch domain.KindOf(err) {
		case domain.KindBadRequest:
			writeError(ctx, w, http.StatusBadRequest, err.Error())
		case domain.KindNotFound:
			writeError(ctx, w, http.StatusNotFound, "Resource not found")
		default:
			writeError(ctx, w, http.StatusInternalServerError, remediationFailureMsg)
		}
		return
	}

	writeJSON(ctx, w, http.StatusOK, adapters.MapRemediationResultToAPI(*result))
}

// Analyze runs one scoring pass. Failed passes are still reported with 200;
// the outcome is carried in the status text.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	result := h.risk.ScoreAll(ctx)
	writeJSON(ctx, w, http.StatusOK, adapters.MapScoringResultToAPI(result))
}

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(ctx, w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := h.runs.ListRuns(ctx, limit)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list scoring runs")
		writeError(ctx, w, http.StatusInternalServerError, "failed to list scoring runs")
		return
	}

	response := make([]api.ScoringRun, 0, len(runs))
	for _, run := range runs {
		response = append(response, adapters.MapDomainRunToAPI(run))
	}
	writeJSON(ctx, w, http.StatusOK, response)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, jsonName(fe.Field()))
	}
	return fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", "))
}

func jsonName(field string) string {
	switch field {
	case "ResourceID":
		return domain.FieldResourceID
	case "Type":
		return domain.FieldType
	case "Region":
		return domain.FieldRegion
	}
	return strings.ToLower(field)
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zerolog.Ctx(ctx).Error().
			Err(err).
			Msg("failed to encode response")
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, detail string) {
	writeJSON(ctx, w, status, api.ErrorResponse{Detail: detail})
}
