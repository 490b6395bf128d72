package repositories

import (
	"context"

	"github.com/krafta/backend/internal/domain/entities"
)

// BookingRepository defines the interface for booking data operations
type BookingRepository interface {
	// Create creates a new booking
	Create(ctx context.Context, booking *entities.Booking) error

	// GetByID retrieves a booking by ID
	GetByID(ctx context.Context, id string) (*entities.Booking, error)

	// Transition applies a compare-and-set status change. It returns false
	// when no row matched the id, owner and expected status.
	Transition(ctx context.Context, change entities.BookingChange) (bool, error)

	// RecordDeclinedPayment bumps the payment attempt counter of an ACCEPTED booking
	RecordDeclinedPayment(ctx context.Context, id string) error

	// List retrieves bookings matching the filter
	List(ctx context.Context, filter BookingFilter) ([]*entities.Booking, error)

	// Count returns the total number of bookings
	Count(ctx context.Context) (int, error)

	// CountMatching counts bookings matching the filter; Sort and Limit are ignored
	CountMatching(ctx context.Context, filter BookingFilter) (int, error)

	// SumEarnings totals the quoted price of a technician's completed bookings
	SumEarnings(ctx context.Context, technicianID string) (float64, error)
}

// BookingSort selects the listing order
type BookingSort int

const (
	SortRequestedDesc BookingSort = iota
	SortScheduledAsc
	SortCompletedDesc
	SortUpdatedDesc
)

// BookingFilter defines filters for listing bookings
type BookingFilter struct {
	CustomerID   string
	TechnicianID string
	Statuses     []entities.BookingStatus
	PricedOnly   bool
	Sort         BookingSort
	Limit        int
}
