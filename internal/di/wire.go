// Package di provides dependency injection wiring and initialization.
package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/frontier/internal/config"
	"github.com/aristath/frontier/internal/database"
	"github.com/aristath/frontier/internal/modules/runs"
	"github.com/aristath/frontier/internal/modules/universe"
	"github.com/aristath/frontier/internal/publish"
)

// Wire initializes all dependencies and returns a configured container.
// Order of operations:
// 1. Initialize the runs database (when persisting)
// 2. Initialize publishers
// 3. Initialize the run service
func Wire(ctx context.Context, cfg *config.Config, opts Options, log zerolog.Logger) (*Container, error) {
	container := &Container{
		Source: universe.NewFileSource(cfg.TimeseriesDir()),
	}

	// Step 1: runs.db
	if opts.Persist {
		db, err := database.New(database.Config{
			Path:    cfg.RunsDBPath(),
			Profile: database.ProfileStandard,
			Name:    "runs",
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize runs database: %w", err)
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate runs database: %w", err)
		}
		container.RunsDB = db
		container.RunsRepo = runs.NewRepository(db, log)
		log.Info().Str("path", db.Path()).Msg("Runs database initialized")
	}

	// Step 2: publishers
	publisher, err := newPublisher(ctx, cfg, log)
	if err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to initialize publishers: %w", err)
	}
	container.Publisher = publisher

	// Step 3: services
	container.RunService = runs.NewService(
		container.Source,
		container.RunsRepo,
		container.Publisher,
		runs.Settings{
			Search:        cfg.SearchConfig(),
			Filter:        cfg.FilterConfig(),
			FlatArtifacts: opts.FlatArtifacts,
		},
		log,
	)

	log.Info().Msg("Dependency injection wiring completed successfully")

	return container, nil
}

// newPublisher always writes to the output directory and adds S3 when a bucket
// is configured.
func newPublisher(ctx context.Context, cfg *config.Config, log zerolog.Logger) (publish.Publisher, error) {
	publishers := publish.Multi{publish.NewFilePublisher(cfg.OutputDir(), log)}

	if cfg.S3Bucket != "" {
		s3Publisher, err := publish.NewS3Publisher(ctx, cfg.S3Bucket, cfg.S3Prefix, log)
		if err != nil {
			return nil, err
		}
		publishers = append(publishers, s3Publisher)
		log.Info().Str("bucket", cfg.S3Bucket).Str("prefix", cfg.S3Prefix).Msg("S3 publishing enabled")
	}

	return publishers, nil
}
