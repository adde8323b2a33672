package main

import (
	"fmt"
	"os"

	"github.com/de-tools/posture-guard/pkg/runtime/app"
	"github.com/de-tools/posture-guard/pkg/server"
	"github.com/de-tools/posture-guard/pkg/services/config"
	"github.com/de-tools/posture-guard/pkg/services/inventory"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var cfgPath string

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the web server for Posture Guard",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "",
		"Path to the YAML config file (defaults and POSTURE_* env vars apply without it)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Close(ctx); err != nil {
			logger.Error().Err(err).Msg("failed to close database")
		}
	}()

	if cfg.Inventory.SeedFile != "" {
		resources, err := inventory.LoadFile(cfg.Inventory.SeedFile)
		if err != nil {
			return fmt.Errorf("failed to read seed inventory: %w", err)
		}
		err = inventory.Seed(ctx, application.Resources, resources, cfg.Inventory.ResetOnStart)
		if err != nil {
			return fmt.Errorf("failed to seed inventory: %w", err)
		}
		logger.Info().Msgf("Inventory `%s` loaded: %d resources.", cfg.Inventory.SeedFile, len(resources))
	}

	if err := application.Scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scoring scheduler: %w", err)
	}

	api := server.NewWebAPI(server.Config{
		Addr:            cfg.Server.Addr(),
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		Dependencies: server.Dependencies{
			Inventory:   application.Resources,
			Remediation: application.Remediation,
			Risk:        application.Risk,
			Runs:        application.Runs,
			Logger:      logger,
		},
	})

	return api.Start()
}
