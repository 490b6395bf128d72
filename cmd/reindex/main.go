package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/krafta/backend/internal/adapters/database"
	"github.com/krafta/backend/internal/adapters/search"
	"github.com/krafta/backend/internal/application/services"
	"github.com/krafta/backend/internal/infrastructure/clients/postgres"
	"github.com/krafta/backend/internal/infrastructure/clients/typesense"
	"github.com/krafta/backend/internal/infrastructure/observability"
	"github.com/krafta/backend/pkg/config"
	"github.com/rs/zerolog/log"
)

const pageSize = 200

func main() {
	var reset bool
	var intervalFlag string
	flag.BoolVar(&reset, "reset", false, "delete the technicians collection before reindexing")
	flag.StringVar(&intervalFlag, "interval", "", "repeat interval for reindexing (e.g. 6h, 30m)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	observability.InitLogger("krafta-reindex", cfg.Server.Environment, cfg.Server.LogLevel)

	intervalValue := strings.TrimSpace(intervalFlag)
	if intervalValue == "" {
		intervalValue = strings.TrimSpace(os.Getenv("REINDEX_INTERVAL"))
	}

	var interval time.Duration
	if intervalValue != "" {
		interval, err = time.ParseDuration(intervalValue)
		if err != nil {
			log.Fatal().Err(err).Str("interval", intervalValue).Msg("Invalid interval")
		}
		if interval <= 0 {
			log.Fatal().Msg("Interval must be greater than zero")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		if err := indexOnce(ctx, cfg, reset); err != nil {
			log.Error().Err(err).Msg("Reindex failed")
		}

		if interval <= 0 {
			break
		}

		reset = false
		log.Info().Dur("next_run_in", interval).Msg("Reindex complete")

		select {
		case <-ctx.Done():
			log.Info().Msg("Reindexer shutting down")
			return
		case <-time.After(interval):
		}
	}
}

func indexOnce(ctx context.Context, cfg *config.Config, reset bool) error {
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		return err
	}
	defer pgClient.Close()

	tsClient, err := typesense.NewClient(&cfg.Typesense)
	if err != nil {
		return err
	}

	if reset || os.Getenv("RESET_TYPESENSE") == "true" {
		log.Info().Str("collection", typesense.TechniciansCollection).Msg("Deleting collection")
		if _, err := tsClient.Client().Collection(typesense.TechniciansCollection).Delete(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to delete collection, continuing")
		}
	}

	if err := tsClient.InitSchema(ctx); err != nil {
		return err
	}

	indexer := services.NewDirectoryIndexService(search.NewTypesenseAdapter(tsClient), database.NewUserAdapter(pgClient))

	start := time.Now()
	count, err := indexer.Reindex(ctx, database.NewTechnicianAdapter(pgClient), pageSize)
	if err != nil {
		return err
	}

	log.Info().Int("technicians", count).Dur("took", time.Since(start)).Msg("Indexed technicians")
	return nil
}
