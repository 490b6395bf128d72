package typesense

import (
	"context"
	"fmt"
	"time"

	"github.com/krafta/backend/pkg/config"
	"github.com/krafta/backend/pkg/retry"
	"github.com/rs/zerolog/log"
	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
)

const (
	TechniciansCollection = "technicians"
)

// Client represents a Typesense client
type Client struct {
	client *typesense.Client
}

// NewClient creates a new Typesense client with exponential backoff retry
func NewClient(cfg *config.TypesenseConfig) (*Client, error) {
	client := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(5*time.Second),
	)

	// Search is optional, so give up sooner than the database does
	retryConfig := retry.Startup("Typesense")
	retryConfig.MaxAttempts = 5
	retryConfig.Timeout = 15 * time.Second
	retryConfig.OnRetry = func(attempt int, err error, wait time.Duration) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", wait).Msg("Typesense connection attempt failed")
	}

	err := retry.Do(context.Background(), retryConfig, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		healthy, err := client.Health(ctx, 2*time.Second)
		if err != nil {
			return err
		}
		if !healthy {
			return fmt.Errorf("typesense reports unhealthy")
		}
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to connect to Typesense after retries: %w", err)
	}

	log.Info().Str("url", cfg.URL).Msg("Successfully connected to Typesense")
	return &Client{client: client}, nil
}

// Client returns the underlying Typesense client
func (c *Client) Client() *typesense.Client {
	return c.client
}

// InitSchema ensures the technicians collection exists
func (c *Client) InitSchema(ctx context.Context) error {
	collections, err := c.client.Collections().Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve collections: %w", err)
	}

	for _, col := range collections {
		if col.Name == TechniciansCollection {
			log.Debug().Str("collection", TechniciansCollection).Msg("Typesense collection already exists")
			return nil
		}
	}

	schema := &api.CollectionSchema{
		Name: TechniciansCollection,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "name", Type: "string"},
			{Name: "title", Type: "string"},
			{Name: "city", Type: "string", Facet: pointer.True()},
			{Name: "area", Type: "string", Optional: pointer.True()},
			{Name: "skills", Type: "string[]", Optional: pointer.True()},
			{Name: "categories", Type: "string[]", Facet: pointer.True(), Optional: pointer.True()},
			{Name: "average_rating", Type: "float"},
			{Name: "review_count", Type: "int32"},
			{Name: "is_verified", Type: "bool", Facet: pointer.True()},
		},
		DefaultSortingField: pointer.String("average_rating"),
	}

	if _, err := c.client.Collections().Create(ctx, schema); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	log.Info().Str("collection", TechniciansCollection).Msg("Created Typesense collection")
	return nil
}
