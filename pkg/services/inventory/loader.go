package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/de-tools/posture-guard/pkg/adapters"
	"github.com/de-tools/posture-guard/pkg/models/api"
	"github.com/de-tools/posture-guard/pkg/models/domain"
	"github.com/rs/zerolog"
)

// LoadFile reads a JSON array of flat resource documents.
func LoadFile(path string) ([]domain.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read inventory file: %w", err)
	}

	var docs []api.Resource
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("decode inventory file %s: %w", path, err)
	}

	resources := make([]domain.Resource, 0, len(docs))
	for i, doc := range docs {
		if doc.ResourceID == "" || doc.Type == "" || doc.Region == "" {
			return nil, fmt.Errorf("inventory entry %d: resource_id, type and region are required", i)
		}
		if field, ok := derivedField(doc); ok {
			return nil, fmt.Errorf("inventory entry %d (%s): field %q is reserved", i, doc.ResourceID, field)
		}
		resources = append(resources, adapters.MapAPIResourceToDomain(doc))
	}
	return resources, nil
}

// derivedField reports the first engine-owned field present in doc. Seeded
// resources start unscored, like ingested ones.
func derivedField(doc api.Resource) (string, bool) {
	switch {
	case doc.RiskScore != nil:
		return domain.FieldRiskScore, true
	case doc.RiskLevel != nil:
		return domain.FieldRiskLevel, true
	case doc.LastRemediated != nil:
		return domain.FieldLastRemediated, true
	case doc.LastChecked != nil:
		return domain.FieldLastChecked, true
	}
	return "", false
}

func WriteFile(path string, resources []domain.Resource) error {
	docs := make([]api.Resource, 0, len(resources))
	for _, r := range resources {
		docs = append(docs, adapters.MapDomainResourceToAPI(r))
	}

	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode inventory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write inventory file: %w", err)
	}
	return nil
}

type Seeder interface {
	InsertMany(ctx context.Context, resources []domain.Resource) error
	DeleteAll(ctx context.Context) error
}

// Seed loads resources into the store, optionally clearing it first. The
// insert is all-or-nothing.
func Seed(ctx context.Context, store Seeder, resources []domain.Resource, reset bool) error {
	logger := zerolog.Ctx(ctx)

	if reset {
		if err := store.DeleteAll(ctx); err != nil {
			return fmt.Errorf("reset inventory: %w", err)
		}
		logger.Info().Msg("inventory cleared")
	}

	if err := store.InsertMany(ctx, resources); err != nil {
		return fmt.Errorf("seed inventory: %w", err)
	}
	logger.Info().Int("resources", len(resources)).Msg("inventory seeded")
	return nil
}
