package providers

import (
	"context"

	"github.com/krafta/backend/internal/domain/entities"
)

// TechnicianSearchParams are the directory search inputs
type TechnicianSearchParams struct {
	Query        string
	City         string
	VerifiedOnly bool
	Limit        int
}

// TechnicianSearchProvider indexes and queries the technician directory
type TechnicianSearchProvider interface {
	// Index upserts a directory document
	Index(ctx context.Context, entry entities.DirectoryEntry) error

	// Remove deletes a directory document
	Remove(ctx context.Context, technicianID string) error

	// Search returns matching technician IDs in relevance order
	Search(ctx context.Context, params TechnicianSearchParams) ([]string, error)
}
