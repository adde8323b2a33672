package risk

import "github.com/de-tools/posture-guard/pkg/models/domain"

// FeatureNames lists the vector columns in order.
var FeatureNames = []string{"public", "open_ports", "encryption", "perm_count", "traffic_volume"}

// Vector is the type-agnostic numeric summary of one resource.
type Vector [5]float64

// Extract maps a resource onto the shared feature space. Absent attributes
// take their neutral default; a missing encryption flag counts as encrypted.
func Extract(r domain.Resource) Vector {
	attrs := r.Attributes
	var v Vector

	public, _ := attrs.Bool("public")
	publicAccess, _ := attrs.Bool("public_access")
	if public || publicAccess {
		v[0] = 1
	}

	v[1] = float64(attrs.Len("ports"))

	v[2] = 1
	if encrypted, ok := attrs.Bool("encryption"); ok && !encrypted {
		v[2] = 0
	}

	v[3] = float64(attrs.Len("permissions"))

	if traffic, ok := attrs.Float("traffic_volume"); ok {
		v[4] = traffic
	}
	return v
}

// Matrix extracts one row per resource, preserving order.
func Matrix(resources []domain.Resource) [][]float64 {
	X := make([][]float64, len(resources))
	for i, r := range resources {
		v := Extract(r)
		X[i] = v[:]
	}
	return X
}
