package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/marcboeker/go-duckdb/v2"
)

const ResourcesSequence = `
	CREATE SEQUENCE IF NOT EXISTS resources_seq START 1;
`

const ResourcesTableSchema = `
	CREATE TABLE IF NOT EXISTS resources (
		resource_id VARCHAR NOT NULL PRIMARY KEY,
		type VARCHAR NOT NULL,
		region VARCHAR NOT NULL,
		attributes JSON,
		risk_score DOUBLE NULL,
		risk_level VARCHAR NULL,
		last_remediated TIMESTAMP NULL,
		last_checked TIMESTAMP NULL,
		version BIGINT NOT NULL DEFAULT 0,
		seq BIGINT NOT NULL DEFAULT nextval('resources_seq'),
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
`

const ScoringRunsTableSchema = `
	CREATE TABLE IF NOT EXISTS scoring_runs (
		run_id VARCHAR NOT NULL PRIMARY KEY,
		trigger VARCHAR NOT NULL,
		outcome VARCHAR NOT NULL,
		status VARCHAR NOT NULL,
		updated_count INTEGER NOT NULL DEFAULT 0,
		skipped_count INTEGER NOT NULL DEFAULT 0,
		error VARCHAR NULL,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP NOT NULL
	);
`

var bootQueries = []string{
	ResourcesSequence,
	ResourcesTableSchema,
	ScoringRunsTableSchema,
}

type Settings struct {
	DbPath string
}

func NewDB(settings Settings) (*sql.DB, error) {
	c, err := duckdb.NewConnector(fmt.Sprintf("%s?threads=4", settings.DbPath), func(exec driver.ExecerContext) error {
		bootQueries := append([]string{}, bootQueries...)

		for _, query := range bootQueries {
			_, err := exec.ExecContext(context.Background(), query, nil)
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	db := sql.OpenDB(c)
	return db, nil
}
