package adapters

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/de-tools/posture-guard/pkg/models/api"
	"github.com/de-tools/posture-guard/pkg/models/domain"
	"github.com/de-tools/posture-guard/pkg/models/store"
)

func MapStoreResourceToDomain(r store.Resource) (domain.Resource, error) {
	attributes := domain.Attributes{}
	if r.Attributes != "" {
		if err := json.Unmarshal([]byte(r.Attributes), &attributes); err != nil {
			return domain.Resource{}, fmt.Errorf("decode attributes of %s: %w", r.ResourceID, err)
		}
	}

	out := domain.Resource{
		ID:         r.ResourceID,
		Type:       domain.ParseResourceType(r.Type),
		Region:     r.Region,
		Attributes: attributes,
		Version:    r.Version,
	}
	if r.RiskScore.Valid {
		score := r.RiskScore.Float64
		out.RiskScore = &score
	}
	if r.RiskLevel.Valid {
		level := domain.RiskLevel(r.RiskLevel.String)
		out.RiskLevel = &level
	}
	if r.LastRemediated.Valid {
		t := r.LastRemediated.Time.UTC()
		out.LastRemediated = &t
	}
	if r.LastChecked.Valid {
		t := r.LastChecked.Time.UTC()
		out.LastChecked = &t
	}
	return out, nil
}

func MapDomainResourceToStore(r domain.Resource) (store.Resource, error) {
	attributes := r.Attributes
	if attributes == nil {
		attributes = domain.Attributes{}
	}
	raw, err := json.Marshal(attributes)
	if err != nil {
		return store.Resource{}, fmt.Errorf("encode attributes of %s: %w", r.ID, err)
	}

	out := store.Resource{
		ResourceID: r.ID,
		Type:       string(r.Type),
		Region:     r.Region,
		Attributes: string(raw),
		Version:    r.Version,
	}
	if r.RiskScore != nil {
		out.RiskScore.Float64, out.RiskScore.Valid = *r.RiskScore, true
	}
	if r.RiskLevel != nil {
		out.RiskLevel.String, out.RiskLevel.Valid = string(*r.RiskLevel), true
	}
	if r.LastRemediated != nil {
		out.LastRemediated.Time, out.LastRemediated.Valid = r.LastRemediated.UTC(), true
	}
	if r.LastChecked != nil {
		out.LastChecked.Time, out.LastChecked.Valid = r.LastChecked.UTC(), true
	}
	return out, nil
}

// MapFieldUpdatesToStore splits a merged update into attribute keys and
// derived columns. Core fields cannot be updated.
func MapFieldUpdatesToStore(fields domain.FieldUpdates) (store.ResourceUpdate, error) {
	var update store.ResourceUpdate
	for key, value := range fields {
		switch {
		case domain.IsCoreField(key):
			return store.ResourceUpdate{}, fmt.Errorf("field %q cannot be updated", key)
		case key == domain.FieldRiskScore:
			score, ok := toFloat(value)
			if !ok {
				return store.ResourceUpdate{}, fmt.Errorf("field %q must be numeric, got %T", key, value)
			}
			update.RiskScore = &score
		case key == domain.FieldRiskLevel:
			level, ok := toLevel(value)
			if !ok {
				return store.ResourceUpdate{}, fmt.Errorf("field %q must be a risk level, got %T", key, value)
			}
			update.RiskLevel = &level
		case key == domain.FieldLastRemediated:
			t, ok := value.(time.Time)
			if !ok {
				return store.ResourceUpdate{}, fmt.Errorf("field %q must be a timestamp, got %T", key, value)
			}
			t = t.UTC()
			update.LastRemediated = &t
		case key == domain.FieldLastChecked:
			t, ok := value.(time.Time)
			if !ok {
				return store.ResourceUpdate{}, fmt.Errorf("field %q must be a timestamp, got %T", key, value)
			}
			t = t.UTC()
			update.LastChecked = &t
		default:
			if update.Attributes == nil {
				update.Attributes = make(map[string]interface{})
			}
			update.Attributes[key] = value
		}
	}
	return update, nil
}

func MapDomainResourceToAPI(r domain.Resource) api.Resource {
	out := api.Resource{
		ResourceID:     r.ID,
		Type:           string(r.Type),
		Region:         r.Region,
		Attributes:     r.Attributes,
		RiskScore:      r.RiskScore,
		LastRemediated: r.LastRemediated,
		LastChecked:    r.LastChecked,
	}
	if r.RiskLevel != nil {
		level := string(*r.RiskLevel)
		out.RiskLevel = &level
	}
	return out
}

func MapAPIResourceToDomain(r api.Resource) domain.Resource {
	out := domain.Resource{
		ID:             r.ResourceID,
		Type:           domain.ParseResourceType(r.Type),
		Region:         r.Region,
		Attributes:     domain.Attributes(r.Attributes),
		RiskScore:      r.RiskScore,
		LastRemediated: r.LastRemediated,
		LastChecked:    r.LastChecked,
	}
	if out.Attributes == nil {
		out.Attributes = domain.Attributes{}
	}
	if r.RiskLevel != nil {
		level := domain.RiskLevel(*r.RiskLevel)
		out.RiskLevel = &level
	}
	return out
}

func MapIngestRequestToDomain(req api.IngestRequest) domain.Resource {
	attributes := domain.Attributes(req.Attributes)
	if attributes == nil {
		attributes = domain.Attributes{}
	}
	return domain.Resource{
		ID:         req.ResourceID,
		Type:       domain.ParseResourceType(req.Type),
		Region:     req.Region,
		Attributes: attributes,
	}
}

func MapRemediationResultToAPI(r domain.RemediationResult) api.RemediationResponse {
	actions := r.Actions
	if actions == nil {
		actions = []string{}
	}
	return api.RemediationResponse{
		Status:           r.Status,
		ResourceID:       r.ResourceID,
		Remediation:      r.Message,
		ActionsPerformed: actions,
		Notes:            r.Notes,
	}
}

func MapScoringResultToAPI(r domain.ScoringResult) api.AnalysisResponse {
	return api.AnalysisResponse{
		RunID:        r.RunID,
		Status:       r.Status,
		UpdatedCount: r.UpdatedCount,
		SkippedCount: r.SkippedCount,
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func toLevel(v interface{}) (string, bool) {
	switch l := v.(type) {
	case domain.RiskLevel:
		return string(l), true
	case string:
		return l, true
	}
	return "", false
}
