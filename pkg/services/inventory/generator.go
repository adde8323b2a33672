package inventory

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/de-tools/posture-guard/pkg/models/domain"
)

var (
	generatedTypes = []domain.ResourceType{
		domain.ResourceTypeVM,
		domain.ResourceTypeObjectStore,
		domain.ResourceTypeIdentityRole,
		domain.ResourceTypeManagedDatabase,
		domain.ResourceTypeServerlessFunction,
	}
	Regions = []string{"us-east-1", "us-west-2", "eu-west-1", "ap-south-1"}

	vmPorts         = []int{22, 80, 443, 3389}
	environments    = []string{"prod", "dev", "test"}
	permissionSets  = [][]string{{"*"}, {"read-only"}, {"write-only"}}
	dbInstanceTypes = []string{"db.t3.micro", "db.m5.large"}
)

const dateLayout = "2006-01-02"

// Generate builds n synthetic resources. Ids are "<lowercase type>-NNN" with a
// 1-based index, so they stay unique across types.
func Generate(n int, rng *rand.Rand, now time.Time) []domain.Resource {
	resources := make([]domain.Resource, 0, n)
	for i := 0; i < n; i++ {
		rt := generatedTypes[rng.Intn(len(generatedTypes))]
		resources = append(resources, domain.Resource{
			ID:         fmt.Sprintf("%s-%03d", strings.ToLower(string(rt)), i+1),
			Type:       rt,
			Region:     Regions[rng.Intn(len(Regions))],
			Attributes: attributesFor(rt, rng, now),
		})
	}
	return resources
}

func attributesFor(rt domain.ResourceType, rng *rand.Rand, now time.Time) domain.Attributes {
	switch rt {
	case domain.ResourceTypeVM:
		perm := rng.Perm(len(vmPorts))[:1+rng.Intn(len(vmPorts))]
		ports := make([]any, 0, len(perm))
		for _, idx := range perm {
			ports = append(ports, vmPorts[idx])
		}
		return domain.Attributes{
			"ports":          ports,
			"public":         coin(rng),
			"tags":           map[string]any{"env": environments[rng.Intn(len(environments))]},
			"traffic_volume": 50 + rng.Intn(951),
		}
	case domain.ResourceTypeObjectStore:
		return domain.Attributes{
			"public_access":      coin(rng),
			"encryption":         coin(rng),
			"versioning_enabled": coin(rng),
			"logging_enabled":    coin(rng),
			"size_mb":            100 + rng.Intn(4901),
		}
	case domain.ResourceTypeIdentityRole:
		perms := permissionSets[rng.Intn(len(permissionSets))]
		permissions := make([]any, 0, len(perms))
		for _, p := range perms {
			permissions = append(permissions, p)
		}
		return domain.Attributes{
			"permissions": permissions,
			"last_used":   daysAgo(now, 1+rng.Intn(30)),
		}
	case domain.ResourceTypeManagedDatabase:
		return domain.Attributes{
			"publicly_accessible": coin(rng),
			"encrypted":           coin(rng),
			"deletion_protection": coin(rng),
			"instance_type":       dbInstanceTypes[rng.Intn(len(dbInstanceTypes))],
		}
	case domain.ResourceTypeServerlessFunction:
		return domain.Attributes{
			"timeout":         3 + rng.Intn(898),
			"public_endpoint": coin(rng),
			"last_invoked":    daysAgo(now, 1+rng.Intn(7)),
		}
	}
	return domain.Attributes{}
}

func coin(rng *rand.Rand) bool {
	return rng.Intn(2) == 1
}

func daysAgo(now time.Time, days int) string {
	return now.AddDate(0, 0, -days).Format(dateLayout)
}
