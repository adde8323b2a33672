package store

import (
	"database/sql"
	"time"
)

// Resource is one row of the resources table. Attributes holds the raw JSON
// document.
type Resource struct {
	ResourceID     string
	Type           string
	Region         string
	Attributes     string
	RiskScore      sql.NullFloat64
	RiskLevel      sql.NullString
	LastRemediated sql.NullTime
	LastChecked    sql.NullTime
	Version        int64
}

// ResourceUpdate is a partial write. Attributes are merged into the stored
// document; nil pointers leave their column untouched.
type ResourceUpdate struct {
	Attributes     map[string]interface{}
	RiskScore      *float64
	RiskLevel      *string
	LastRemediated *time.Time
	LastChecked    *time.Time
}

func (u ResourceUpdate) Empty() bool {
	return len(u.Attributes) == 0 &&
		u.RiskScore == nil &&
		u.RiskLevel == nil &&
		u.LastRemediated == nil &&
		u.LastChecked == nil
}
