package resources

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/de-tools/posture-guard/pkg/adapters"
	"github.com/de-tools/posture-guard/pkg/models/domain"
	models "github.com/de-tools/posture-guard/pkg/models/store"
	"github.com/de-tools/posture-guard/pkg/store"
	"github.com/de-tools/posture-guard/pkg/store/duckdb"
)

const selectColumns = `
	resource_id, type, region, CAST(attributes AS VARCHAR),
	risk_score, risk_level, last_remediated, last_checked, version
`

// Store persists resources in DuckDB. Every write bumps the row version.
type Store interface {
	FindOne(ctx context.Context, resourceID string) (*domain.Resource, error)
	// FindAll returns every resource in insertion order.
	FindAll(ctx context.Context) ([]domain.Resource, error)
	UpdateFields(ctx context.Context, resourceID string, fields domain.FieldUpdates) error
	// UpdateFieldsIfVersion writes only when the stored version equals version.
	// A missing row is reported as not written.
	UpdateFieldsIfVersion(ctx context.Context, resourceID string, version int64, fields domain.FieldUpdates) (bool, error)
	Insert(ctx context.Context, resource domain.Resource) error
	InsertMany(ctx context.Context, resources []domain.Resource) error
	DeleteAll(ctx context.Context) error
}

type resourceStore struct {
	db *sql.DB
	// serializes read-merge-write cycles issued through this store
	mu sync.Mutex
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &resourceStore{
		db: db,
	}, nil
}

func (s *resourceStore) FindOne(ctx context.Context, resourceID string) (*domain.Resource, error) {
	query := fmt.Sprintf(`SELECT %s FROM resources WHERE resource_id = ?`, selectColumns)
	row := duckdb.Conn(ctx, s.db).QueryRowContext(ctx, query, resourceID)

	record, err := scanResource(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query resource: %w", err)
	}

	resource, err := adapters.MapStoreResourceToDomain(record)
	if err != nil {
		return nil, err
	}
	return &resource, nil
}

func (s *resourceStore) FindAll(ctx context.Context) ([]domain.Resource, error) {
	query := fmt.Sprintf(`SELECT %s FROM resources ORDER BY seq, resource_id`, selectColumns)
	rows, err := duckdb.Conn(ctx, s.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query resources: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Resource, 0)
	for rows.Next() {
		record, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("scan resource: %w", err)
		}
		resource, err := adapters.MapStoreResourceToDomain(record)
		if err != nil {
			return nil, err
		}
		result = append(result, resource)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resources: %w", err)
	}
	return result, nil
}

func (s *resourceStore) UpdateFields(ctx context.Context, resourceID string, fields domain.FieldUpdates) error {
	_, err := s.update(ctx, resourceID, nil, fields)
	return err
}

func (s *resourceStore) UpdateFieldsIfVersion(
	ctx context.Context,
	resourceID string,
	version int64,
	fields domain.FieldUpdates,
) (bool, error) {
	written, err := s.update(ctx, resourceID, &version, fields)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return written, err
}

func (s *resourceStore) update(
	ctx context.Context,
	resourceID string,
	expectedVersion *int64,
	fields domain.FieldUpdates,
) (bool, error) {
	update, err := adapters.MapFieldUpdatesToStore(fields)
	if err != nil {
		return false, err
	}
	if update.Empty() {
		return false, fmt.Errorf("no fields to update for %s", resourceID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	written := false
	err = duckdb.InTransaction(ctx, s.db, func(tx *sql.Tx) error {
		var (
			raw     sql.NullString
			version int64
		)
		err := tx.QueryRowContext(ctx,
			`SELECT CAST(attributes AS VARCHAR), version FROM resources WHERE resource_id = ?`,
			resourceID,
		).Scan(&raw, &version)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return store.ErrNotFound
			}
			return fmt.Errorf("read resource: %w", err)
		}

		if expectedVersion != nil && *expectedVersion != version {
			return nil
		}

		query, args, err := buildUpdate(resourceID, raw.String, update)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("update resource: %w", err)
		}
		written = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return written, nil
}

// buildUpdate renders the UPDATE statement. Columns are always emitted in the
// same order.
func buildUpdate(resourceID string, stored string, update models.ResourceUpdate) (string, []interface{}, error) {
	sets := make([]string, 0, 6)
	args := make([]interface{}, 0, 6)

	if len(update.Attributes) > 0 {
		merged := map[string]interface{}{}
		if stored != "" {
			if err := json.Unmarshal([]byte(stored), &merged); err != nil {
				return "", nil, fmt.Errorf("decode stored attributes: %w", err)
			}
		}
		for k, v := range update.Attributes {
			merged[k] = v
		}
		doc, err := json.Marshal(merged)
		if err != nil {
			return "", nil, fmt.Errorf("encode attributes: %w", err)
		}
		sets = append(sets, "attributes = ?")
		args = append(args, string(doc))
	}
	if update.RiskScore != nil {
		sets = append(sets, "risk_score = ?")
		args = append(args, *update.RiskScore)
	}
	if update.RiskLevel != nil {
		sets = append(sets, "risk_level = ?")
		args = append(args, *update.RiskLevel)
	}
	if update.LastRemediated != nil {
		sets = append(sets, "last_remediated = ?")
		args = append(args, *update.LastRemediated)
	}
	if update.LastChecked != nil {
		sets = append(sets, "last_checked = ?")
		args = append(args, *update.LastChecked)
	}
	sets = append(sets, "version = version + 1")
	args = append(args, resourceID)

	query := fmt.Sprintf(`UPDATE resources SET %s WHERE resource_id = ?`, strings.Join(sets, ", "))
	return query, args, nil
}

func (s *resourceStore) Insert(ctx context.Context, resource domain.Resource) error {
	return s.InsertMany(ctx, []domain.Resource{resource})
}

// InsertMany inserts all resources or none of them.
func (s *resourceStore) InsertMany(ctx context.Context, resources []domain.Resource) error {
	if len(resources) == 0 {
		return nil
	}

	records := make([]models.Resource, 0, len(resources))
	seen := make(map[string]struct{}, len(resources))
	for _, r := range resources {
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("%s: %w", r.ID, store.ErrAlreadyExists)
		}
		seen[r.ID] = struct{}{}

		record, err := adapters.MapDomainResourceToStore(r)
		if err != nil {
			return err
		}
		records = append(records, record)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return duckdb.InTransaction(ctx, s.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO resources (
				resource_id, type, region, attributes, risk_score,
				risk_level, last_remediated, last_checked
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, record := range records {
			var exists int
			err := tx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM resources WHERE resource_id = ?`,
				record.ResourceID,
			).Scan(&exists)
			if err != nil {
				return fmt.Errorf("check resource: %w", err)
			}
			if exists > 0 {
				return fmt.Errorf("%s: %w", record.ResourceID, store.ErrAlreadyExists)
			}

			_, err = stmt.ExecContext(ctx,
				record.ResourceID,
				record.Type,
				record.Region,
				record.Attributes,
				record.RiskScore,
				record.RiskLevel,
				record.LastRemediated,
				record.LastChecked,
			)
			if err != nil {
				return fmt.Errorf("insert resource %s: %w", record.ResourceID, err)
			}
		}
		return nil
	})
}

func (s *resourceStore) DeleteAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := duckdb.Conn(ctx, s.db).ExecContext(ctx, `DELETE FROM resources`); err != nil {
		return fmt.Errorf("delete resources: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanResource(row scanner) (models.Resource, error) {
	var (
		r          models.Resource
		attributes sql.NullString
	)
	err := row.Scan(
		&r.ResourceID,
		&r.Type,
		&r.Region,
		&attributes,
		&r.RiskScore,
		&r.RiskLevel,
		&r.LastRemediated,
		&r.LastChecked,
		&r.Version,
	)
	r.Attributes = attributes.String
	return r, err
}
