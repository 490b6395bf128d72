package repositories

import (
	"context"

	"github.com/krafta/backend/internal/domain/entities"
)

// TechnicianRepository defines the interface for technician profile operations
type TechnicianRepository interface {
	// Create creates a new profile; a second profile for the same user yields a conflict error
	Create(ctx context.Context, technician *entities.Technician) error

	// GetByID retrieves a technician by ID
	GetByID(ctx context.Context, id string) (*entities.Technician, error)

	// GetByUserID retrieves the profile owned by a user
	GetByUserID(ctx context.Context, userID string) (*entities.Technician, error)

	// GetByIDs retrieves technicians in bulk, keyed by ID
	GetByIDs(ctx context.Context, ids []string) (map[string]*entities.Technician, error)

	// List retrieves technicians
	List(ctx context.Context, filter TechnicianFilter) ([]*entities.Technician, error)

	// Count returns the total number of technicians
	Count(ctx context.Context) (int, error)

	// SetVerified sets the verification flag
	SetVerified(ctx context.Context, id string, verified bool) error
}

// TechnicianOrder selects the listing order
type TechnicianOrder int

const (
	// OrderNewest lists the most recently created profiles first
	OrderNewest TechnicianOrder = iota
	// OrderVerifiedFirst lists verified profiles first, then by rating
	OrderVerifiedFirst
)

// TechnicianFilter defines filters for listing technicians
type TechnicianFilter struct {
	Query  string
	City   string
	Order  TechnicianOrder
	Limit  int
	Offset int
}
