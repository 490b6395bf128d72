package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"github.com/krafta/backend/internal/infrastructure/clients/postgres"
	"github.com/krafta/backend/internal/infrastructure/observability"
	"github.com/krafta/backend/pkg/config"
	"github.com/rs/zerolog/log"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	observability.InitLogger("krafta-migrate", cfg.Server.Environment, cfg.Server.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pgClient.Close()

	if err := pgClient.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
	log.Info().Str("database", cfg.Database.Database).Msg("Schema is up to date")
}
