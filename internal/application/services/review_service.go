package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/krafta/backend/internal/domain/entities"
	"github.com/krafta/backend/internal/domain/repositories"
	"github.com/krafta/backend/internal/infrastructure/observability"
	apperrors "github.com/krafta/backend/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

const (
	msgReviewExists       = "Review already submitted"
	msgFailedSubmitReview = "Failed to submit review"
	defaultRecentReviews  = 5
)

// ReviewService records customer ratings and keeps technician aggregates current
type ReviewService struct {
	reviews     repositories.ReviewRepository
	bookings    repositories.BookingRepository
	users       repositories.UserRepository
	indexer     DirectoryIndexer
	revalidator Revalidator
	now         func() time.Time
}

// NewReviewService creates a new review service
func NewReviewService(
	reviews repositories.ReviewRepository,
	bookings repositories.BookingRepository,
	users repositories.UserRepository,
	indexer DirectoryIndexer,
	revalidator Revalidator,
) *ReviewService {
	return &ReviewService{
		reviews:     reviews,
		bookings:    bookings,
		users:       users,
		indexer:     indexer,
		revalidator: revalidator,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SubmitReview rates a completed booking once and refreshes the technician's average
func (s *ReviewService) SubmitReview(ctx context.Context, actor *entities.Principal, bookingID string, rating int, comment string) (*entities.Review, error) {
	ctx, span := observability.StartSpan(ctx, "ReviewService.SubmitReview")
	defer span.End()

	if err := requireRole(actor, entities.RoleCustomer); err != nil {
		return nil, err
	}
	if !entities.ValidRating(rating) {
		return nil, apperrors.NewValidationError("Rating must be between 1 and 5")
	}

	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil, apperrors.NewNotFoundError("Booking not found")
		}
		observability.RecordError(span, err)
		return nil, internalOr(err, msgFailedSubmitReview)
	}
	if booking.CustomerID != actor.UserID {
		return nil, apperrors.NewForbiddenError("Unauthorized")
	}
	if booking.Status != entities.BookingStatusCompleted {
		return nil, apperrors.NewInvalidStateError("Can only review completed bookings")
	}

	existing, err := s.reviews.GetByBookingID(ctx, bookingID)
	if err != nil && !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
		observability.RecordError(span, err)
		return nil, internalOr(err, msgFailedSubmitReview)
	}
	if existing != nil {
		return nil, apperrors.NewConflictError(msgReviewExists)
	}

	review := &entities.Review{
		ID:           uuid.New().String(),
		BookingID:    booking.ID,
		CustomerID:   actor.UserID,
		TechnicianID: booking.TechnicianID,
		Rating:       rating,
		Comment:      strings.TrimSpace(comment),
		CreatedAt:    s.now(),
	}

	// The unique index on booking_id backs the check above when two
	// submissions race.
	technician, err := s.reviews.CreateAndAggregate(ctx, review)
	if err != nil {
		observability.RecordError(span, err)
		return nil, internalOr(err, msgFailedSubmitReview, apperrors.ErrorTypeConflict)
	}

	observability.SetSpanAttributes(span,
		attribute.String("technician.id", technician.ID),
		attribute.Float64("technician.average_rating", technician.AverageRating),
	)

	if s.revalidator != nil {
		s.revalidator.Revalidate(ctx, PathCustomer, PathProfessional, PathTechnicians)
	}
	if s.indexer != nil {
		s.indexer.IndexTechnician(ctx, technician)
	}
	return review, nil
}

// ListTechnicianReviews returns a technician's newest reviews with reviewer names
func (s *ReviewService) ListTechnicianReviews(ctx context.Context, technicianID string, limit int) ([]entities.ReviewView, error) {
	if limit <= 0 {
		limit = defaultRecentReviews
	}

	reviews, err := s.reviews.ListByTechnician(ctx, technicianID, limit)
	if err != nil {
		return nil, internalOr(err, "Failed to load reviews")
	}

	ids := make([]string, 0, len(reviews))
	for _, r := range reviews {
		ids = append(ids, r.CustomerID)
	}
	names := map[string]*entities.User{}
	if len(ids) > 0 {
		if names, err = s.users.GetByIDs(ctx, ids); err != nil {
			return nil, internalOr(err, "Failed to load reviews")
		}
	}

	views := make([]entities.ReviewView, 0, len(reviews))
	for _, r := range reviews {
		view := entities.ReviewView{Review: r}
		if u, ok := names[r.CustomerID]; ok {
			view.CustomerName = u.Name
		}
		views = append(views, view)
	}
	return views, nil
}
