package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/krafta/backend/internal/application/services"
	"github.com/krafta/backend/internal/domain/entities"
	apperrors "github.com/krafta/backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewService_SubmitReviewValidation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		status  entities.BookingStatus
		actor   func(*fixture) *entities.Principal
		booking string
		rating  int
		typ     apperrors.ErrorType
		message string
	}{
		{"rating too low", entities.BookingStatusCompleted, func(f *fixture) *entities.Principal { return f.customer }, "b-1", 0,
			apperrors.ErrorTypeValidation, "Rating must be between 1 and 5"},
		{"rating too high", entities.BookingStatusCompleted, func(f *fixture) *entities.Principal { return f.customer }, "b-1", 6,
			apperrors.ErrorTypeValidation, "Rating must be between 1 and 5"},
		{"missing booking", entities.BookingStatusCompleted, func(f *fixture) *entities.Principal { return f.customer }, "nope", 5,
			apperrors.ErrorTypeNotFound, "Booking not found"},
		{"not the customer", entities.BookingStatusCompleted, func(f *fixture) *entities.Principal {
			return &entities.Principal{UserID: "u-other", Role: entities.RoleCustomer}
		}, "b-1", 5, apperrors.ErrorTypeForbidden, "Unauthorized"},
		{"not completed", entities.BookingStatusPaid, func(f *fixture) *entities.Principal { return f.customer }, "b-1", 5,
			apperrors.ErrorTypeInvalidState, "Can only review completed bookings"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.seedBooking("b-1", tt.status, price(100))
			svc := services.NewReviewService(f.reviews, f.bookings, f.users, nil, nil)

			_, err := svc.SubmitReview(ctx, tt.actor(f), tt.booking, tt.rating, "")
			assertAppError(t, err, tt.typ, tt.message)
			assert.Empty(t, f.store.reviews)
			assert.Zero(t, f.store.technicians["t-1"].ReviewCount)
		})
	}
}

func TestReviewService_AverageIsExactMean(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := services.NewReviewService(f.reviews, f.bookings, f.users, nil, nil)

	ratings := []int{5, 4, 2, 5}
	for i, r := range ratings {
		id := fmt.Sprintf("b-%d", i)
		f.seedBooking(id, entities.BookingStatusCompleted, price(50))
		_, err := svc.SubmitReview(ctx, f.customer, id, r, "ok")
		require.NoError(t, err)
	}

	tech := f.store.technicians["t-1"]
	assert.InDelta(t, 4.0, tech.AverageRating, 1e-9)
	assert.Equal(t, 4, tech.ReviewCount)
}

func TestReviewService_ListTechnicianReviews(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		id := fmt.Sprintf("b-%d", i)
		f.store.reviews[id] = &entities.Review{
			ID: "r-" + id, BookingID: id, CustomerID: "u-cust", TechnicianID: "t-1",
			Rating: 4, CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
	}
	svc := services.NewReviewService(f.reviews, f.bookings, f.users, nil, nil)

	views, err := svc.ListTechnicianReviews(ctx, "t-1", 0)
	require.NoError(t, err)
	require.Len(t, views, 5)
	assert.Equal(t, "r-b-6", views[0].ID)
	assert.Equal(t, "Alex", views[0].CustomerName)
}
