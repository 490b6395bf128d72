package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/krafta/backend/internal/domain/entities"
	"github.com/krafta/backend/internal/domain/providers"
	tsclient "github.com/krafta/backend/internal/infrastructure/clients/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
)

const (
	collectionName     = tsclient.TechniciansCollection
	queryFields        = "title,name,skills,categories,city,area"
	defaultSearchLimit = 24
	maxSearchLimit     = 100
)

// TypesenseAdapter implements technician directory search using Typesense
type TypesenseAdapter struct {
	client *tsclient.Client
}

var _ providers.TechnicianSearchProvider = (*TypesenseAdapter)(nil)

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(client *tsclient.Client) *TypesenseAdapter {
	return &TypesenseAdapter{client: client}
}

// Index upserts a technician directory document
func (a *TypesenseAdapter) Index(ctx context.Context, entry entities.DirectoryEntry) error {
	_, err := a.client.Client().Collection(collectionName).Documents().Upsert(ctx, documentFor(entry))
	if err != nil {
		return fmt.Errorf("failed to index technician %s: %w", entry.ID, err)
	}
	return nil
}

// Remove deletes a technician from the index
func (a *TypesenseAdapter) Remove(ctx context.Context, technicianID string) error {
	_, err := a.client.Client().Collection(collectionName).Document(technicianID).Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to remove technician %s from index: %w", technicianID, err)
	}
	return nil
}

// Search returns technician IDs ordered by relevance, then rating
func (a *TypesenseAdapter) Search(ctx context.Context, params providers.TechnicianSearchParams) ([]string, error) {
	result, err := a.client.Client().Collection(collectionName).Documents().Search(ctx, buildSearchParams(params))
	if err != nil {
		return nil, fmt.Errorf("failed to search technicians: %w", err)
	}

	ids := []string{}
	if result.Hits == nil {
		return ids, nil
	}
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		if id, ok := (*hit.Document)["id"].(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func documentFor(entry entities.DirectoryEntry) map[string]interface{} {
	return map[string]interface{}{
		"id":             entry.ID,
		"name":           entry.Name,
		"title":          entry.Title,
		"city":           entry.City,
		"area":           entry.Area,
		"skills":         entry.Skills,
		"categories":     entry.Categories,
		"average_rating": entry.AverageRating,
		"review_count":   entry.ReviewCount,
		"is_verified":    entry.IsVerified,
	}
}

func buildSearchParams(params providers.TechnicianSearchParams) *api.SearchCollectionParams {
	limit := params.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	q := strings.TrimSpace(params.Query)
	if q == "" {
		q = "*"
	}

	var filters []string
	if city := strings.TrimSpace(params.City); city != "" {
		filters = append(filters, fmt.Sprintf("city:=`%s`", strings.ReplaceAll(city, "`", "")))
	}
	if params.VerifiedOnly {
		filters = append(filters, "is_verified:=true")
	}

	searchParams := &api.SearchCollectionParams{
		Q:       pointer.String(q),
		QueryBy: pointer.String(queryFields),
		SortBy:  pointer.String("_text_match:desc,average_rating:desc"),
		PerPage: pointer.Int(limit),
	}
	if len(filters) > 0 {
		searchParams.FilterBy = pointer.String(strings.Join(filters, " && "))
	}
	return searchParams
}
