package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/de-tools/posture-guard/pkg/models/domain"
	"github.com/de-tools/posture-guard/pkg/services/config"
	"github.com/de-tools/posture-guard/pkg/services/remediation"
	"github.com/de-tools/posture-guard/pkg/services/remediation/rules"
	"github.com/de-tools/posture-guard/pkg/services/risk"
	"github.com/de-tools/posture-guard/pkg/services/risk/iforest"
	"github.com/de-tools/posture-guard/pkg/services/workflow"
	"github.com/de-tools/posture-guard/pkg/store/duckdb"
	"github.com/de-tools/posture-guard/pkg/store/duckdb/resources"
	duckdbworkflow "github.com/de-tools/posture-guard/pkg/store/duckdb/workflow"
)

// App holds the stores and engines shared by the web server and the CLI.
type App struct {
	DB          *sql.DB
	Resources   resources.Store
	Runs        duckdbworkflow.Store
	Remediation remediation.Engine
	// Risk records its passes as manual runs.
	Risk      risk.Engine
	Scheduler *workflow.DefaultController
}

func New(cfg *config.Config) (*App, error) {
	db, err := duckdb.NewDB(duckdb.Settings{
		DbPath: cfg.Storage.DbPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB instance: %w", err)
	}

	resourceStore, err := resources.NewStore(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create resource store: %w", err)
	}
	runStore, err := duckdbworkflow.NewStore(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create run store: %w", err)
	}

	scorer := risk.NewEngine(resourceStore, ScoringSettings(cfg.Scoring))

	return &App{
		DB:          db,
		Resources:   resourceStore,
		Runs:        runStore,
		Remediation: remediation.NewEngine(resourceStore, rules.NewDefaultCatalog()),
		Risk:        workflow.NewTrackedEngine(scorer, runStore, domain.RunTriggerManual),
		Scheduler: workflow.NewController(
			workflow.NewTrackedEngine(scorer, runStore, domain.RunTriggerScheduled),
			workflow.RunnerConfig{Interval: cfg.Scoring.Interval},
		),
	}, nil
}

func ScoringSettings(cfg config.ScoringConfig) risk.Settings {
	return risk.Settings{
		Forest: iforest.Config{
			Trees:         cfg.Trees,
			MaxSamples:    cfg.MaxSamples,
			Contamination: cfg.Contamination,
			Seed:          cfg.Seed,
		},
		ClampScore: cfg.ClampScore,
	}
}

// Close stops the scheduler if it runs and closes the database.
func (a *App) Close(ctx context.Context) error {
	if a.Scheduler.Progress() != nil {
		_ = a.Scheduler.Cancel(ctx)
	}
	return a.DB.Close()
}
