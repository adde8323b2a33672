package api

import (
	"encoding/json"
	"fmt"
	"time"
)

// Resource is the flat wire layout: core and derived fields live next to the
// type-specific attributes in one JSON object.
type Resource struct {
	ResourceID     string
	Type           string
	Region         string
	Attributes     map[string]interface{}
	RiskScore      *float64
	RiskLevel      *string
	LastRemediated *time.Time
	LastChecked    *time.Time
}

func (r Resource) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.Attributes)+7)
	for k, v := range r.Attributes {
		out[k] = v
	}
	out["resource_id"] = r.ResourceID
	out["type"] = r.Type
	out["region"] = r.Region
	if r.RiskScore != nil {
		out["risk_score"] = *r.RiskScore
	}
	if r.RiskLevel != nil {
		out["risk_level"] = *r.RiskLevel
	}
	if r.LastRemediated != nil {
		out["last_remediated"] = r.LastRemediated.Format(time.RFC3339Nano)
	}
	if r.LastChecked != nil {
		out["last_checked"] = r.LastChecked.Format(time.RFC3339Nano)
	}
	return json.Marshal(out)
}

func (r *Resource) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var err error
	if r.ResourceID, err = stringField(raw, "resource_id"); err != nil {
		return err
	}
	if r.Type, err = stringField(raw, "type"); err != nil {
		return err
	}
	if r.Region, err = stringField(raw, "region"); err != nil {
		return err
	}
	if r.RiskScore, err = floatField(raw, "risk_score"); err != nil {
		return err
	}
	if r.RiskLevel, err = optionalStringField(raw, "risk_level"); err != nil {
		return err
	}
	if r.LastRemediated, err = timeField(raw, "last_remediated"); err != nil {
		return err
	}
	if r.LastChecked, err = timeField(raw, "last_checked"); err != nil {
		return err
	}

	for _, key := range []string{"resource_id", "type", "region", "risk_score", "risk_level", "last_remediated", "last_checked"} {
		delete(raw, key)
	}
	r.Attributes = raw
	return nil
}

func stringField(raw map[string]interface{}, key string) (string, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q must be a string", key)
	}
	return s, nil
}

func floatField(raw map[string]interface{}, key string) (*float64, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil, nil
	}
	f, ok := v.(float64)
	if !ok {
		return nil, fmt.Errorf("field %q must be a number", key)
	}
	return &f, nil
}

func optionalStringField(raw map[string]interface{}, key string) (*string, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("field %q must be a string", key)
	}
	return &s, nil
}

func timeField(raw map[string]interface{}, key string) (*time.Time, error) {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("field %q must be a timestamp string", key)
	}
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		// naive ISO timestamps without an offset
		t, err = time.Parse("2006-01-02T15:04:05.999999999", s)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
	}
	return &t, nil
}

type IngestRequest struct {
	ResourceID string                 `json:"resource_id" validate:"required"`
	Type       string                 `json:"type" validate:"required"`
	Region     string                 `json:"region" validate:"required"`
	Attributes map[string]interface{} `json:"attributes"`
}

type RemediateRequest struct {
	ResourceID string `json:"resource_id"`
}

type RemediationResponse struct {
	Status           string   `json:"status"`
	ResourceID       string   `json:"resource_id"`
	Remediation      string   `json:"remediation"`
	ActionsPerformed []string `json:"actions_performed"`
	Notes            []string `json:"notes,omitempty"`
}

type AnalysisResponse struct {
	RunID        string `json:"run_id"`
	Status       string `json:"status"`
	UpdatedCount int    `json:"updated_count"`
	SkippedCount int    `json:"skipped_count"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}

type ScoringRun struct {
	RunID        string    `json:"run_id"`
	Trigger      string    `json:"trigger"`
	Status       string    `json:"status"`
	UpdatedCount int       `json:"updated_count"`
	SkippedCount int       `json:"skipped_count"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}
