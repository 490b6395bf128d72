package repositories

import (
	"context"

	"github.com/krafta/backend/internal/domain/entities"
)

// ReviewRepository defines the interface for review operations
type ReviewRepository interface {
	// CreateAndAggregate inserts the review and, in the same transaction,
	// recomputes the technician's average rating and review count from all
	// of its reviews. A second review for the booking yields a conflict error.
	CreateAndAggregate(ctx context.Context, review *entities.Review) (*entities.Technician, error)

	// GetByBookingID retrieves the review of a booking
	GetByBookingID(ctx context.Context, bookingID string) (*entities.Review, error)

	// GetByBookingIDs retrieves reviews in bulk, keyed by booking ID
	GetByBookingIDs(ctx context.Context, bookingIDs []string) (map[string]*entities.Review, error)

	// ListByTechnician retrieves a technician's reviews, newest first
	ListByTechnician(ctx context.Context, technicianID string, limit int) ([]*entities.Review, error)
}
