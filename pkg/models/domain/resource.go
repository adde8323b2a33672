package domain

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

type ResourceType string

const (
	ResourceTypeVM                 ResourceType = "VM"
	ResourceTypeObjectStore        ResourceType = "S3"
	ResourceTypeIdentityRole       ResourceType = "IAM"
	ResourceTypeManagedDatabase    ResourceType = "RDS"
	ResourceTypeServerlessFunction ResourceType = "Lambda"
)

var resourceTypeAliases = map[string]ResourceType{
	"vm":                 ResourceTypeVM,
	"s3":                 ResourceTypeObjectStore,
	"objectstore":        ResourceTypeObjectStore,
	"iam":                ResourceTypeIdentityRole,
	"identityrole":       ResourceTypeIdentityRole,
	"rds":                ResourceTypeManagedDatabase,
	"manageddatabase":    ResourceTypeManagedDatabase,
	"lambda":             ResourceTypeServerlessFunction,
	"serverlessfunction": ResourceTypeServerlessFunction,
}

// ParseResourceType maps wire values and descriptive aliases onto the canonical
// type. Unrecognised values are kept verbatim so they can still be stored.
func ParseResourceType(s string) ResourceType {
	if rt, ok := resourceTypeAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return rt
	}
	return ResourceType(s)
}

func (rt ResourceType) Known() bool {
	switch rt {
	case ResourceTypeVM, ResourceTypeObjectStore, ResourceTypeIdentityRole,
		ResourceTypeManagedDatabase, ResourceTypeServerlessFunction:
		return true
	}
	return false
}

type RiskLevel string

const (
	RiskLevelLow  RiskLevel = "Low"
	RiskLevelHigh RiskLevel = "High"
)

const (
	FieldResourceID     = "resource_id"
	FieldType           = "type"
	FieldRegion         = "region"
	FieldRiskScore      = "risk_score"
	FieldRiskLevel      = "risk_level"
	FieldLastRemediated = "last_remediated"
	FieldLastChecked    = "last_checked"
)

// IsDerivedField reports whether the field is owned by the engines.
func IsDerivedField(name string) bool {
	switch name {
	case FieldRiskScore, FieldRiskLevel, FieldLastRemediated, FieldLastChecked:
		return true
	}
	return false
}

// IsCoreField reports whether the field is part of the record identity.
func IsCoreField(name string) bool {
	switch name {
	case FieldResourceID, FieldType, FieldRegion:
		return true
	}
	return false
}

// Resource is one cloud asset with its type-specific attributes.
type Resource struct {
	ID             string
	Type           ResourceType
	Region         string
	Attributes     Attributes
	RiskScore      *float64
	RiskLevel      *RiskLevel
	LastRemediated *time.Time
	LastChecked    *time.Time
	// Version is bumped by the store on every write.
	Version int64
}

// FieldUpdates is a merged "set attributes" payload. Keys are either attribute
// names or one of the derived field names.
type FieldUpdates map[string]any

// Attributes holds the type-specific part of a resource as decoded from JSON.
type Attributes map[string]any

func (a Attributes) Bool(key string) (bool, bool) {
	v, ok := a[key]
	if !ok || v == nil {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

func (a Attributes) String(key string) (string, bool) {
	v, ok := a[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (a Attributes) Float(key string) (float64, bool) {
	v, ok := a[key]
	if !ok || v == nil {
		return 0, false
	}
	return toFloat(v)
}

func (a Attributes) IntSlice(key string) ([]int, bool) {
	v, ok := a[key]
	if !ok || v == nil {
		return nil, false
	}
	switch vals := v.(type) {
	case []int:
		return append([]int{}, vals...), true
	case []any:
		out := make([]int, 0, len(vals))
		for _, item := range vals {
			n, ok := toInt(item)
			if !ok {
				return nil, false
			}
			out = append(out, n)
		}
		return out, true
	}
	return nil, false
}

func (a Attributes) StringSlice(key string) ([]string, bool) {
	v, ok := a[key]
	if !ok || v == nil {
		return nil, false
	}
	switch vals := v.(type) {
	case []string:
		return append([]string{}, vals...), true
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// Len returns the element count of a list-valued attribute, 0 if absent.
func (a Attributes) Len(key string) int {
	switch vals := a[key].(type) {
	case []any:
		return len(vals)
	case []int:
		return len(vals)
	case []string:
		return len(vals)
	}
	return 0
}

func toInt(v any) (int, bool) {
	f, ok := toFloat(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
