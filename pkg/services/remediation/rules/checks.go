package rules

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/de-tools/posture-guard/pkg/models/domain"
)

const (
	lastUsedLayout       = "2006-01-02"
	maxInactiveDays      = 90
	maxFunctionTimeout   = 300
	defaultFunctionLimit = 3
)

// RiskyPorts are closed on every VM, reported in this order.
var RiskyPorts = []int{22, 3389, 3306, 5432}

var adminPermissions = []string{"*", "AdministratorAccess"}

// ObjectStoreRule hardens storage buckets.
type ObjectStoreRule struct{}

func (ObjectStoreRule) ResourceType() domain.ResourceType { return domain.ResourceTypeObjectStore }

func (ObjectStoreRule) Evaluate(attrs domain.Attributes, _ time.Time) Evaluation {
	var ev Evaluation
	if public, _ := attrs.Bool("public_access"); public {
		ev.add("public_access", false, "Public access blocked")
	}
	// absence means the bucket is assumed encrypted
	if encrypted, ok := attrs.Bool("encryption"); ok && !encrypted {
		ev.add("encryption", true, "Server-side encryption enabled (SSE-S3)")
	}
	if versioned, _ := attrs.Bool("versioning_enabled"); !versioned {
		ev.add("versioning_enabled", true, "Versioning enabled")
	}
	if logging, _ := attrs.Bool("logging_enabled"); !logging {
		ev.add("logging_enabled", true, "Access logging enabled")
	}
	return ev
}

// VMRule closes risky management and database ports and removes public IPs.
type VMRule struct{}

func (VMRule) ResourceType() domain.ResourceType { return domain.ResourceTypeVM }

func (VMRule) Evaluate(attrs domain.Attributes, _ time.Time) Evaluation {
	var ev Evaluation
	ports, _ := attrs.IntSlice("ports")

	var closed []string
	for _, p := range RiskyPorts {
		if slices.Contains(ports, p) {
			closed = append(closed, strconv.Itoa(p))
		}
	}
	if len(closed) > 0 {
		remaining := make([]int, 0, len(ports))
		for _, p := range ports {
			if !slices.Contains(RiskyPorts, p) {
				remaining = append(remaining, p)
			}
		}
		ev.add("ports", remaining, "Closed risky ports: "+strings.Join(closed, ", "))
	}

	if public, _ := attrs.Bool("public"); public {
		ev.add("public", false, "Public IP exposure removed")
	}
	return ev
}

// IdentityRoleRule restricts wildcard grants and revokes roles that have been
// idle for more than 90 days. The idle check runs last so it wins when both
// apply.
type IdentityRoleRule struct{}

func (IdentityRoleRule) ResourceType() domain.ResourceType { return domain.ResourceTypeIdentityRole }

func (IdentityRoleRule) Evaluate(attrs domain.Attributes, now time.Time) Evaluation {
	var ev Evaluation
	permissions, _ := attrs.StringSlice("permissions")
	for _, p := range adminPermissions {
		if slices.Contains(permissions, p) {
			ev.add("permissions", []string{"read-only"}, "Overly permissive access restricted")
			break
		}
	}

	lastUsed, ok := attrs.String("last_used")
	if !ok || lastUsed == "" {
		return ev
	}
	used, err := time.Parse(lastUsedLayout, lastUsed)
	if err != nil {
		ev.note("last_used", OutcomeSkippedUnparseableDate, fmt.Sprintf("cannot parse %q", lastUsed))
		return ev
	}
	days := calendarDays(used, now)
	if days > maxInactiveDays {
		ev.add("permissions", []string{"none"}, fmt.Sprintf("Inactive %d days → permissions revoked", days))
	}
	return ev
}

// calendarDays counts whole days between the date of from and the date of to,
// both taken on UTC midnights so DST shifts in to's zone do not drop an hour.
func calendarDays(from, to time.Time) int {
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}

// ManagedDatabaseRule locks down database instances.
type ManagedDatabaseRule struct{}

func (ManagedDatabaseRule) ResourceType() domain.ResourceType {
	return domain.ResourceTypeManagedDatabase
}

func (ManagedDatabaseRule) Evaluate(attrs domain.Attributes, _ time.Time) Evaluation {
	var ev Evaluation
	if public, _ := attrs.Bool("publicly_accessible"); public {
		ev.add("publicly_accessible", false, "Public accessibility disabled")
	}
	if encrypted, ok := attrs.Bool("encrypted"); ok && !encrypted {
		ev.add("encrypted", true, "Storage encryption enabled")
	}
	if protected, _ := attrs.Bool("deletion_protection"); !protected {
		ev.add("deletion_protection", true, "Deletion protection enabled")
	}
	return ev
}

// ServerlessFunctionRule removes public endpoints and caps the timeout.
type ServerlessFunctionRule struct{}

func (ServerlessFunctionRule) ResourceType() domain.ResourceType {
	return domain.ResourceTypeServerlessFunction
}

func (ServerlessFunctionRule) Evaluate(attrs domain.Attributes, _ time.Time) Evaluation {
	var ev Evaluation
	if public, _ := attrs.Bool("public_endpoint"); public {
		ev.add("public_endpoint", false, "Public invocation disabled")
	}
	timeout, ok := attrs.Float("timeout")
	if !ok {
		timeout = defaultFunctionLimit
	}
	if timeout > maxFunctionTimeout {
		ev.add("timeout", maxFunctionTimeout, fmt.Sprintf("Timeout reduced from %ss to %ds",
			strconv.FormatFloat(timeout, 'f', -1, 64), maxFunctionTimeout))
	}
	return ev
}
