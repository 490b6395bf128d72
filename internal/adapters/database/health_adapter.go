package database

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	"github.com/krafta/backend/internal/domain/repositories"
	"github.com/krafta/backend/internal/infrastructure/clients/postgres"
)

// HealthAdapter keeps the database warm for scheduled pings
type HealthAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewHealthAdapter creates a new health adapter
func NewHealthAdapter(client *postgres.Client) repositories.HealthRepository {
	return &HealthAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Ping counts users, touching a real table rather than just the connection
func (a *HealthAdapter) Ping(ctx context.Context) error {
	_, err := countRows(ctx, a.client, a.db, "users")
	return err
}
