package resources

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/de-tools/posture-guard/pkg/models/api"
	"github.com/de-tools/posture-guard/pkg/models/domain"
	"github.com/de-tools/posture-guard/pkg/store"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockInventory struct {
	mock.Mock
}

func (m *mockInventory) FindOne(ctx context.Context, resourceID string) (*domain.Resource, error) {
	args := m.Called(ctx, resourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Resource), args.Error(1)
}

func (m *mockInventory) FindAll(ctx context.Context) ([]domain.Resource, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Resource), args.Error(1)
}

func (m *mockInventory) Insert(ctx context.Context, resource domain.Resource) error {
	args := m.Called(ctx, resource)
	return args.Error(0)
}

type mockRemediation struct {
	mock.Mock
}

func (m *mockRemediation) Remediate(ctx context.Context, resourceID string) (*domain.RemediationResult, error) {
	args := m.Called(ctx, resourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RemediationResult), args.Error(1)
}

type mockRisk struct {
	mock.Mock
}

func (m *mockRisk) ScoreAll(ctx context.Context) domain.ScoringResult {
	args := m.Called(ctx)
	return args.Get(0).(domain.ScoringResult)
}

func (m *mockRisk) Score(resources []domain.Resource) (map[string]domain.RiskAssessment, error) {
	args := m.Called(resources)
	return args.Get(0).(map[string]domain.RiskAssessment), args.Error(1)
}

type mockRuns struct {
	mock.Mock
}

func (m *mockRuns) ListRuns(ctx context.Context, limit int) ([]domain.ScoringRun, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScoringRun), args.Error(1)
}

type mocks struct {
	inventory   *mockInventory
	remediation *mockRemediation
	risk        *mockRisk
	runs        *mockRuns
}

func setupHandler() (*Handler, mocks) {
	m := mocks{
		inventory:   new(mockInventory),
		remediation: new(mockRemediation),
		risk:        new(mockRisk),
		runs:        new(mockRuns),
	}
	return NewHandler(m.inventory, m.remediation, m.risk, m.runs), m
}

func (m mocks) assertExpectations(t *testing.T) {
	m.inventory.AssertExpectations(t)
	m.remediation.AssertExpectations(t)
	m.risk.AssertExpectations(t)
	m.runs.AssertExpectations(t)
}

func decodeDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	var body api.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Detail
}

func TestIngest(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMock      func(mocks)
		expectedStatus int
		expectedDetail string
	}{
		{
			name: "successful ingest",
			body: `{"resource_id":"s3-001","type":"S3","region":"eu-west-1","attributes":{"public_access":true}}`,
			setupMock: func(m mocks) {
				m.inventory.On("Insert", mock.Anything, domain.Resource{
					ID:         "s3-001",
					Type:       domain.ResourceTypeObjectStore,
					Region:     "eu-west-1",
					Attributes: domain.Attributes{"public_access": true},
				}).Return(nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "type without rules is still stored",
			body: `{"resource_id":"queue-001","type":"SQS","region":"eu-west-1"}`,
			setupMock: func(m mocks) {
				m.inventory.On("Insert", mock.Anything, domain.Resource{
					ID:         "queue-001",
					Type:       domain.ResourceType("SQS"),
					Region:     "eu-west-1",
					Attributes: domain.Attributes{},
				}).Return(nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "malformed json",
			body:           `{"resource_id":`,
			setupMock:      func(mocks) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing fields",
			body:           `{"resource_id":"s3-001"}`,
			setupMock:      func(mocks) {},
			expectedStatus: http.StatusBadRequest,
			expectedDetail: "missing required fields: type, region",
		},
		{
			name:           "reserved attribute",
			body:           `{"resource_id":"s3-001","type":"S3","region":"eu-west-1","attributes":{"risk_score":0}}`,
			setupMock:      func(mocks) {},
			expectedStatus: http.StatusBadRequest,
			expectedDetail: `attribute "risk_score" is reserved`,
		},
		{
			name: "duplicate id",
			body: `{"resource_id":"s3-001","type":"S3","region":"eu-west-1"}`,
			setupMock: func(m mocks) {
				m.inventory.On("Insert", mock.Anything, mock.Anything).Return(store.ErrAlreadyExists)
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "store failure",
			body: `{"resource_id":"s3-001","type":"S3","region":"eu-west-1"}`,
			setupMock: func(m mocks) {
				m.inventory.On("Insert", mock.Anything, mock.Anything).Return(errors.New("db closed"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, m := setupHandler()
			tt.setupMock(m)

			req := httptest.NewRequest("POST", "/ingest", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			h.Ingest(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedStatus == http.StatusOK {
				var body api.StatusResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				assert.Equal(t, "Resource ingested", body.Status)
			}
			if tt.expectedDetail != "" {
				assert.Equal(t, tt.expectedDetail, decodeDetail(t, rec))
			}
			m.assertExpectations(t)
		})
	}
}

func TestListResources(t *testing.T) {
	score := 12.5
	level := domain.RiskLevelLow
	checked := time.Date(2025, 9, 30, 12, 0, 0, 0, time.UTC)

	h, m := setupHandler()
	m.inventory.On("FindAll", mock.Anything).Return([]domain.Resource{
		{
			ID:          "rds-001",
			Type:        domain.ResourceTypeManagedDatabase,
			Region:      "us-west-2",
			Attributes:  domain.Attributes{"encrypted": true},
			RiskScore:   &score,
			RiskLevel:   &level,
			LastChecked: &checked,
		},
		{
			ID:         "vm-001",
			Type:       domain.ResourceTypeVM,
			Region:     "us-east-1",
			Attributes: domain.Attributes{"public": false},
		},
	}, nil)

	req := httptest.NewRequest("GET", "/resources", nil)
	rec := httptest.NewRecorder()
	h.ListResources(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body []map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body, 2)
	assert.Equal(t, map[string]interface{}{
		"resource_id":  "rds-001",
		"type":         "RDS",
		"region":       "us-west-2",
		"encrypted":    true,
		"risk_score":   12.5,
		"risk_level":   "Low",
		"last_checked": "2025-09-30T12:00:00Z",
	}, body[0])
	assert.NotContains(t, body[1], "risk_score")
	m.assertExpectations(t)
}

func TestGetResource(t *testing.T) {
	tests := []struct {
		name           string
		resourceID     string
		setupMock      func(mocks)
		expectedStatus int
	}{
		{
			name:       "found",
			resourceID: "vm-001",
			setupMock: func(m mocks) {
				m.inventory.On("FindOne", mock.Anything, "vm-001").Return(&domain.Resource{
					ID: "vm-001", Type: domain.ResourceTypeVM, Region: "us-east-1",
				}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:       "not found",
			resourceID: "vm-404",
			setupMock: func(m mocks) {
				m.inventory.On("FindOne", mock.Anything, "vm-404").Return(nil, store.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, m := setupHandler()
			tt.setupMock(m)

			req := httptest.NewRequest("GET", "/resources/"+tt.resourceID, nil)
			rec := httptest.NewRecorder()

			ctx := chi.NewRouteContext()
			ctx.URLParams.Add("resourceID", tt.resourceID)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, ctx))

			h.GetResource(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			m.assertExpectations(t)
		})
	}
}

func TestRemediate(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMock      func(mocks)
		expectedStatus int
		expectedDetail string
		expectedBody   *api.RemediationResponse
	}{
		{
			name: "remediated",
			body: `{"resource_id":"s3-001"}`,
			setupMock: func(m mocks) {
				m.remediation.On("Remediate", mock.Anything, "s3-001").Return(&domain.RemediationResult{
					Status:     domain.RemediationStatusSuccess,
					ResourceID: "s3-001",
					Message:    "Public access disabled | Encryption enabled",
					Actions:    []string{"Public access disabled", "Encryption enabled"},
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody: &api.RemediationResponse{
				Status:           "success",
				ResourceID:       "s3-001",
				Remediation:      "Public access disabled | Encryption enabled",
				ActionsPerformed: []string{"Public access disabled", "Encryption enabled"},
			},
		},
		{
			name: "nothing to fix",
			body: `{"resource_id":"vm-001"}`,
			setupMock: func(m mocks) {
				m.remediation.On("Remediate", mock.Anything, "vm-001").Return(&domain.RemediationResult{
					Status:     domain.RemediationStatusSuccess,
					ResourceID: "vm-001",
					Message:    domain.NoMisconfigurationsMsg,
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody: &api.RemediationResponse{
				Status:           "success",
				ResourceID:       "vm-001",
				Remediation:      "No known misconfigurations detected",
				ActionsPerformed: []string{},
			},
		},
		{
			name:           "malformed json",
			body:           `not json`,
			setupMock:      func(mocks) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "missing id",
			body: `{}`,
			setupMock: func(m mocks) {
				m.remediation.On("Remediate", mock.Anything, "").
					Return(nil, domain.NewBadRequest("resource_id is required"))
			},
			expectedStatus: http.StatusBadRequest,
			expectedDetail: "resource_id is required",
		},
		{
			name: "unknown id",
			body: `{"resource_id":"vm-404"}`,
			setupMock: func(m mocks) {
				m.remediation.On("Remediate", mock.Anything, "vm-404").
					Return(nil, domain.NewNotFound("Resource not found", store.ErrNotFound))
			},
			expectedStatus: http.StatusNotFound,
			expectedDetail: "Resource not found",
		},
		{
			name: "internal failure",
			body: `{"resource_id":"vm-001"}`,
			setupMock: func(m mocks) {
				m.remediation.On("Remediate", mock.Anything, "vm-001").
					Return(nil, domain.NewInternal(errors.New("disk full")))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedDetail: "Remediation failed due to server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, m := setupHandler()
			tt.setupMock(m)

			req := httptest.NewRequest("POST", "/remediate", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			h.Remediate(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedBody != nil {
				var body api.RemediationResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				assert.Equal(t, *tt.expectedBody, body)
			}
			if tt.expectedDetail != "" {
				assert.Equal(t, tt.expectedDetail, decodeDetail(t, rec))
			}
			m.assertExpectations(t)
		})
	}
}

func TestAnalyze(t *testing.T) {
	outcomes := []domain.ScoringResult{
		{RunID: "run-1", Outcome: domain.ScoringCompleted, Status: "Risk analysis completed", UpdatedCount: 50, SkippedCount: 1},
		{RunID: "run-2", Outcome: domain.ScoringNothingToAnalyze, Status: "No resources to analyze"},
		{RunID: "run-3", Outcome: domain.ScoringFailed, Status: "Error: risk analysis failed", Err: errors.New("boom")},
	}

	for _, result := range outcomes {
		t.Run(string(result.Outcome), func(t *testing.T) {
			h, m := setupHandler()
			m.risk.On("ScoreAll", mock.Anything).Return(result)

			req := httptest.NewRequest("POST", "/analyze", nil)
			rec := httptest.NewRecorder()
			h.Analyze(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			raw := rec.Body.String()
			assert.NotContains(t, raw, "boom")

			var body api.AnalysisResponse
			require.NoError(t, json.Unmarshal([]byte(raw), &body))
			assert.Equal(t, api.AnalysisResponse{
				RunID:        result.RunID,
				Status:       result.Status,
				UpdatedCount: result.UpdatedCount,
				SkippedCount: result.SkippedCount,
			}, body)
			m.assertExpectations(t)
		})
	}
}

func TestListRuns(t *testing.T) {
	started := time.Date(2025, 9, 30, 12, 0, 0, 0, time.UTC)
	failure := "load inventory: db closed"

	tests := []struct {
		name           string
		query          string
		setupMock      func(mocks)
		expectedStatus int
		expectedBody   []api.ScoringRun
	}{
		{
			name:  "default limit",
			query: "",
			setupMock: func(m mocks) {
				m.runs.On("ListRuns", mock.Anything, 0).Return([]domain.ScoringRun{{
					RunID:      "run-1",
					Trigger:    domain.RunTriggerScheduled,
					Outcome:    domain.ScoringFailed,
					Status:     "Error: risk analysis failed",
					Error:      &failure,
					StartedAt:  started,
					FinishedAt: started.Add(time.Second),
				}}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody: []api.ScoringRun{{
				RunID:      "run-1",
				Trigger:    "scheduled",
				Status:     "Error: risk analysis failed",
				StartedAt:  started,
				FinishedAt: started.Add(time.Second),
			}},
		},
		{
			name:  "explicit limit",
			query: "?limit=5",
			setupMock: func(m mocks) {
				m.runs.On("ListRuns", mock.Anything, 5).Return([]domain.ScoringRun{}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   []api.ScoringRun{},
		},
		{
			name:           "invalid limit",
			query:          "?limit=zero",
			setupMock:      func(mocks) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:  "store failure",
			query: "",
			setupMock: func(m mocks) {
				m.runs.On("ListRuns", mock.Anything, 0).Return(nil, errors.New("db closed"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, m := setupHandler()
			tt.setupMock(m)

			req := httptest.NewRequest("GET", "/runs"+tt.query, nil)
			rec := httptest.NewRecorder()
			h.ListRuns(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedBody != nil {
				raw := rec.Body.String()
				assert.NotContains(t, raw, "db closed")

				var body []api.ScoringRun
				require.NoError(t, json.Unmarshal([]byte(raw), &body))
				assert.Equal(t, tt.expectedBody, body)
			}
			m.assertExpectations(t)
		})
	}
}
