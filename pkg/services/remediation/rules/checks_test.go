package rules

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/de-tools/posture-guard/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 9, 30, 12, 0, 0, 0, time.UTC)

func TestObjectStoreRule(t *testing.T) {
	tests := []struct {
		name            string
		attrs           domain.Attributes
		expectedActions []string
		expectedUpdates domain.FieldUpdates
	}{
		{
			name: "everything misconfigured",
			attrs: domain.Attributes{
				"public_access": true,
				"encryption":    false,
			},
			expectedActions: []string{
				"Public access blocked",
				"Server-side encryption enabled (SSE-S3)",
				"Versioning enabled",
				"Access logging enabled",
			},
			expectedUpdates: domain.FieldUpdates{
				"public_access":      false,
				"encryption":         true,
				"versioning_enabled": true,
				"logging_enabled":    true,
			},
		},
		{
			name: "missing encryption flag is treated as encrypted",
			attrs: domain.Attributes{
				"public_access":      false,
				"versioning_enabled": true,
				"logging_enabled":    true,
			},
			expectedActions: []string{},
			expectedUpdates: domain.FieldUpdates{},
		},
		{
			name: "versioning explicitly disabled",
			attrs: domain.Attributes{
				"encryption":         true,
				"versioning_enabled": false,
				"logging_enabled":    true,
			},
			expectedActions: []string{"Versioning enabled"},
			expectedUpdates: domain.FieldUpdates{"versioning_enabled": true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := ObjectStoreRule{}.Evaluate(tt.attrs, fixedNow)
			assert.Equal(t, tt.expectedActions, ev.Actions())
			assert.Equal(t, tt.expectedUpdates, ev.Updates())
			assert.Empty(t, ev.Notes)
		})
	}
}

func TestVMRule_ClosesRiskyPortsPreservingOrder(t *testing.T) {
	attrs := domain.Attributes{
		"ports":          []any{float64(443), float64(3389), float64(80), float64(22), float64(8080)},
		"public":         true,
		"traffic_volume": float64(500),
	}

	ev := VMRule{}.Evaluate(attrs, fixedNow)

	assert.Equal(t, []string{"Closed risky ports: 22, 3389", "Public IP exposure removed"}, ev.Actions())
	updates := ev.Updates()
	assert.Equal(t, []int{443, 80, 8080}, updates["ports"])
	assert.Equal(t, false, updates["public"])
	assert.NotContains(t, updates, "traffic_volume")
}

func TestVMRule_AllPortsRisky(t *testing.T) {
	ev := VMRule{}.Evaluate(domain.Attributes{"ports": []int{5432, 3306}}, fixedNow)

	require.Len(t, ev.Changes, 1)
	assert.Equal(t, []int{}, ev.Changes[0].Value)
	assert.Equal(t, "Closed risky ports: 3306, 5432", ev.Changes[0].Action)
}

func TestVMRule_NoRiskyPorts(t *testing.T) {
	ev := VMRule{}.Evaluate(domain.Attributes{"ports": []any{float64(80), float64(443)}, "public": false}, fixedNow)
	assert.Empty(t, ev.Changes)
}

func TestIdentityRoleRule(t *testing.T) {
	daysAgo := func(n int) string {
		return fixedNow.AddDate(0, 0, -n).Format("2006-01-02")
	}

	tests := []struct {
		name                string
		attrs               domain.Attributes
		expectedActions     []string
		expectedPermissions any
		expectedNotes       []NoteOutcome
	}{
		{
			name:                "wildcard permission recently used",
			attrs:               domain.Attributes{"permissions": []any{"*"}, "last_used": daysAgo(10)},
			expectedActions:     []string{"Overly permissive access restricted"},
			expectedPermissions: []string{"read-only"},
		},
		{
			name:                "administrator access among others",
			attrs:               domain.Attributes{"permissions": []any{"s3:GetObject", "AdministratorAccess"}},
			expectedActions:     []string{"Overly permissive access restricted"},
			expectedPermissions: []string{"read-only"},
		},
		{
			name:  "wildcard and inactive, idle rule wins",
			attrs: domain.Attributes{"permissions": []any{"*"}, "last_used": daysAgo(100)},
			expectedActions: []string{
				"Overly permissive access restricted",
				"Inactive 100 days → permissions revoked",
			},
			expectedPermissions: []string{"none"},
		},
		{
			name:                "exactly ninety days is still active",
			attrs:               domain.Attributes{"permissions": []any{"read-only"}, "last_used": daysAgo(90)},
			expectedActions:     []string{},
			expectedPermissions: nil,
		},
		{
			name:                "unparseable date is skipped",
			attrs:               domain.Attributes{"permissions": []any{"*"}, "last_used": "last tuesday"},
			expectedActions:     []string{"Overly permissive access restricted"},
			expectedPermissions: []string{"read-only"},
			expectedNotes:       []NoteOutcome{OutcomeSkippedUnparseableDate},
		},
		{
			name:                "no permissions and no date",
			attrs:               domain.Attributes{},
			expectedActions:     []string{},
			expectedPermissions: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := IdentityRoleRule{}.Evaluate(tt.attrs, fixedNow)
			assert.Equal(t, tt.expectedActions, ev.Actions())
			assert.Equal(t, tt.expectedPermissions, ev.Updates()["permissions"])

			var outcomes []NoteOutcome
			for _, n := range ev.Notes {
				outcomes = append(outcomes, n.Outcome)
			}
			assert.Equal(t, tt.expectedNotes, outcomes)
		})
	}
}

func TestIdentityRoleRule_CountsCalendarDaysAcrossDST(t *testing.T) {
	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 2026-01-01 to 2026-04-02 spans the March clock change.
	now := time.Date(2026, 4, 2, 0, 30, 0, 0, newYork)
	ev := IdentityRoleRule{}.Evaluate(domain.Attributes{
		"permissions": []any{"s3:GetObject"},
		"last_used":   "2026-01-01",
	}, now)

	assert.Equal(t, []string{"Inactive 91 days → permissions revoked"}, ev.Actions())
	assert.Equal(t, []string{"none"}, ev.Updates()["permissions"])

	t.Run("ninety calendar days stays active", func(t *testing.T) {
		ev := IdentityRoleRule{}.Evaluate(domain.Attributes{
			"permissions": []any{"s3:GetObject"},
			"last_used":   "2026-01-02",
		}, now)
		assert.Empty(t, ev.Changes)
	})
}

func TestManagedDatabaseRule(t *testing.T) {
	attrs := domain.Attributes{
		"publicly_accessible": true,
		"encrypted":           false,
		"deletion_protection": false,
	}

	ev := ManagedDatabaseRule{}.Evaluate(attrs, fixedNow)

	assert.Equal(t, []string{
		"Public accessibility disabled",
		"Storage encryption enabled",
		"Deletion protection enabled",
	}, ev.Actions())
	assert.Equal(t, domain.FieldUpdates{
		"publicly_accessible": false,
		"encrypted":           true,
		"deletion_protection": true,
	}, ev.Updates())
}

func TestServerlessFunctionRule(t *testing.T) {
	t.Run("public and long timeout", func(t *testing.T) {
		ev := ServerlessFunctionRule{}.Evaluate(domain.Attributes{
			"public_endpoint": true,
			"timeout":         float64(900),
		}, fixedNow)
		assert.Equal(t, []string{"Public invocation disabled", "Timeout reduced from 900s to 300s"}, ev.Actions())
		assert.Equal(t, 300, ev.Updates()["timeout"])
	})

	t.Run("timeout at the limit", func(t *testing.T) {
		ev := ServerlessFunctionRule{}.Evaluate(domain.Attributes{"timeout": 300}, fixedNow)
		assert.Empty(t, ev.Changes)
	})

	t.Run("missing timeout uses default", func(t *testing.T) {
		ev := ServerlessFunctionRule{}.Evaluate(domain.Attributes{"public_endpoint": false}, fixedNow)
		assert.Empty(t, ev.Changes)
	})
}

func TestCatalog(t *testing.T) {
	c := NewDefaultCatalog()

	for _, rt := range []domain.ResourceType{
		domain.ResourceTypeIdentityRole,
		domain.ResourceTypeServerlessFunction,
		domain.ResourceTypeManagedDatabase,
		domain.ResourceTypeObjectStore,
		domain.ResourceTypeVM,
	} {
		rule, ok := c.Lookup(rt)
		require.True(t, ok, rt)
		assert.Equal(t, rt, rule.ResourceType())
	}
	_, ok := c.Lookup(domain.ResourceType("SQS"))
	assert.False(t, ok)

	t.Run("unknown type yields nothing", func(t *testing.T) {
		ev := c.Evaluate(domain.Resource{
			ID:         "queue-001",
			Type:       domain.ResourceType("SQS"),
			Attributes: domain.Attributes{"public_access": true},
		}, fixedNow)
		assert.Empty(t, ev.Changes)
	})

	t.Run("nil attributes", func(t *testing.T) {
		ev := c.Evaluate(domain.Resource{ID: "vm-001", Type: domain.ResourceTypeVM}, fixedNow)
		assert.Empty(t, ev.Changes)
	})

	t.Run("duplicate registration panics", func(t *testing.T) {
		assert.Panics(t, func() { c.Register(VMRule{}) })
	})
}
