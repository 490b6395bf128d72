package services_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/krafta/backend/internal/application/services"
	"github.com/krafta/backend/internal/domain/entities"
	"github.com/krafta/backend/internal/domain/providers"
	apperrors "github.com/krafta/backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newBookingService(f *fixture, gateway providers.PaymentGateway, rv services.Revalidator) *services.BookingService {
	return services.NewBookingService(f.bookings, f.technicians, f.users, gateway, stubRenderer{}, rv, "usd")
}

func assertAppError(t *testing.T, err error, typ apperrors.ErrorType, message string) {
	t.Helper()
	appErr, ok := apperrors.As(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, typ, appErr.Type)
	assert.Equal(t, message, appErr.Message)
}

func TestBookingService_FullLifecycleAndReview(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	gateway := new(MockPaymentGateway)
	rv := &recordingRevalidator{}
	indexer := &recordingIndexer{}

	bookingSvc := newBookingService(f, gateway, rv)
	reviewSvc := services.NewReviewService(f.reviews, f.bookings, f.users, indexer, rv)

	booking, err := bookingSvc.CreateBooking(ctx, f.customer, services.CreateBookingInput{
		TechnicianID: "t-1",
		Description:  "Install ceiling lights",
		Address:      "5 Bourdillon Rd",
	})
	require.NoError(t, err)
	assert.Equal(t, entities.BookingStatusPending, booking.Status)
	assert.Equal(t, "u-cust", booking.CustomerID)

	accepted, err := bookingSvc.AcceptBooking(ctx, f.professional, booking.ID, services.AcceptBookingInput{PriceQuoted: price(150)})
	require.NoError(t, err)
	assert.Equal(t, entities.BookingStatusAccepted, accepted.Status)
	assert.Equal(t, 150.0, *accepted.PriceQuoted)

	gateway.On("Charge", mock.Anything, mock.MatchedBy(func(req providers.ChargeRequest) bool {
		return req.Amount == 150 && req.IdempotencyKey == "booking-"+booking.ID && req.Currency == "usd"
	})).Return(&providers.ChargeResult{Reference: "sim_ref", Status: "succeeded"}, nil).Once()

	paid, err := bookingSvc.PayBooking(ctx, f.customer, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.BookingStatusPaid, paid.Status)
	assert.Equal(t, "sim_ref", f.store.bookings[booking.ID].PaymentReference)

	completed, err := bookingSvc.CompleteBooking(ctx, f.professional, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.BookingStatusCompleted, completed.Status)
	require.NotNil(t, f.store.bookings[booking.ID].CompletedAt)

	review, err := reviewSvc.SubmitReview(ctx, f.customer, booking.ID, 5, "Great job")
	require.NoError(t, err)
	assert.Equal(t, 5, review.Rating)
	assert.Equal(t, 5.0, f.store.technicians["t-1"].AverageRating)
	assert.Equal(t, 1, f.store.technicians["t-1"].ReviewCount)

	_, err = reviewSvc.SubmitReview(ctx, f.customer, booking.ID, 4, "again")
	assertAppError(t, err, apperrors.ErrorTypeConflict, "Review already submitted")

	require.Len(t, indexer.indexed, 1)
	assert.Equal(t, 5.0, indexer.indexed[0].AverageRating)
	assert.Contains(t, rv.Paths(), services.PathCustomer)
	assert.Contains(t, rv.Paths(), services.PathTechnicians)
	gateway.AssertExpectations(t)
}

func TestBookingService_CreateBooking(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := newBookingService(f, new(MockPaymentGateway), nil)

	t.Run("unknown technician", func(t *testing.T) {
		_, err := svc.CreateBooking(ctx, f.customer, services.CreateBookingInput{
			TechnicianID: "missing", Description: "x", Address: "y",
		})
		assertAppError(t, err, apperrors.ErrorTypeNotFound, "Technician not found")
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := svc.CreateBooking(ctx, f.customer, services.CreateBookingInput{TechnicianID: "t-1", Description: "  "})
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	})

	t.Run("professional cannot book", func(t *testing.T) {
		_, err := svc.CreateBooking(ctx, f.professional, services.CreateBookingInput{
			TechnicianID: "t-1", Description: "x", Address: "y",
		})
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeForbidden))
	})

	t.Run("anonymous", func(t *testing.T) {
		_, err := svc.CreateBooking(ctx, nil, services.CreateBookingInput{})
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))
	})
}

func TestBookingService_InvalidTransitions(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		status  entities.BookingStatus
		price   *float64
		run     func(*services.BookingService, *fixture) error
		typ     apperrors.ErrorType
		message string
	}{
		{
			name:   "accept non-pending",
			status: entities.BookingStatusAccepted,
			run: func(s *services.BookingService, f *fixture) error {
				_, err := s.AcceptBooking(ctx, f.professional, "b-1", services.AcceptBookingInput{})
				return err
			},
			typ: apperrors.ErrorTypeInvalidState, message: "Booking is not pending",
		},
		{
			name:   "reject paid",
			status: entities.BookingStatusPaid,
			run: func(s *services.BookingService, f *fixture) error {
				_, err := s.RejectBooking(ctx, f.professional, "b-1")
				return err
			},
			typ: apperrors.ErrorTypeInvalidState, message: "Booking cannot be rejected",
		},
		{
			name:   "pay pending",
			status: entities.BookingStatusPending,
			run: func(s *services.BookingService, f *fixture) error {
				_, err := s.PayBooking(ctx, f.customer, "b-1")
				return err
			},
			typ: apperrors.ErrorTypeInvalidState, message: "Booking must be accepted before payment",
		},
		{
			name:   "pay without price",
			status: entities.BookingStatusAccepted,
			run: func(s *services.BookingService, f *fixture) error {
				_, err := s.PayBooking(ctx, f.customer, "b-1")
				return err
			},
			typ: apperrors.ErrorTypeValidation, message: "Price not set by professional",
		},
		{
			name:   "complete accepted",
			status: entities.BookingStatusAccepted,
			price:  price(100),
			run: func(s *services.BookingService, f *fixture) error {
				_, err := s.CompleteBooking(ctx, f.professional, "b-1")
				return err
			},
			typ: apperrors.ErrorTypeInvalidState, message: "Booking must be paid first",
		},
		{
			name:   "cancel paid",
			status: entities.BookingStatusPaid,
			price:  price(100),
			run: func(s *services.BookingService, f *fixture) error {
				_, err := s.CancelBooking(ctx, f.customer, "b-1")
				return err
			},
			typ: apperrors.ErrorTypeInvalidState, message: "Booking cannot be cancelled",
		},
		{
			name:   "accept by another professional",
			status: entities.BookingStatusPending,
			run: func(s *services.BookingService, f *fixture) error {
				f.store.users["u-pro2"] = &entities.User{ID: "u-pro2", Role: entities.RoleProfessional}
				f.store.technicians["t-2"] = &entities.Technician{ID: "t-2", UserID: "u-pro2"}
				other := &entities.Principal{UserID: "u-pro2", Role: entities.RoleProfessional}
				_, err := s.AcceptBooking(ctx, other, "b-1", services.AcceptBookingInput{})
				return err
			},
			typ: apperrors.ErrorTypeNotFound, message: "Unauthorized or booking not found",
		},
		{
			name:   "pay by another customer",
			status: entities.BookingStatusAccepted,
			price:  price(100),
			run: func(s *services.BookingService, f *fixture) error {
				other := &entities.Principal{UserID: "u-other", Role: entities.RoleCustomer}
				_, err := s.PayBooking(ctx, other, "b-1")
				return err
			},
			typ: apperrors.ErrorTypeNotFound, message: "Unauthorized or booking not found",
		},
		{
			name:   "missing booking",
			status: entities.BookingStatusPending,
			run: func(s *services.BookingService, f *fixture) error {
				_, err := s.RejectBooking(ctx, f.professional, "nope")
				return err
			},
			typ: apperrors.ErrorTypeNotFound, message: "Unauthorized or booking not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.seedBooking("b-1", tt.status, tt.price)
			gateway := new(MockPaymentGateway)
			svc := newBookingService(f, gateway, nil)

			err := tt.run(svc, f)
			assertAppError(t, err, tt.typ, tt.message)
			assert.Equal(t, tt.status, f.store.bookings["b-1"].Status)
			gateway.AssertNotCalled(t, "Charge", mock.Anything, mock.Anything)
		})
	}
}

func TestBookingService_AcceptLosesConcurrentRace(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedBooking("b-1", entities.BookingStatusPending, nil)

	// Another request rejects the booking between our read and our write
	f.bookings.beforeTransition = func(b *entities.Booking) {
		b.Status = entities.BookingStatusRejected
	}
	rv := &recordingRevalidator{}
	svc := newBookingService(f, new(MockPaymentGateway), rv)

	_, err := svc.AcceptBooking(ctx, f.professional, "b-1", services.AcceptBookingInput{PriceQuoted: price(90)})
	assertAppError(t, err, apperrors.ErrorTypeInvalidState, "Booking is not pending")
	assert.Equal(t, entities.BookingStatusRejected, f.store.bookings["b-1"].Status)
	assert.Nil(t, f.store.bookings["b-1"].PriceQuoted)
	assert.Empty(t, rv.Paths())
}

func TestBookingService_AcceptKeepsExistingQuote(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedBooking("b-1", entities.BookingStatusPending, price(80))
	svc := newBookingService(f, new(MockPaymentGateway), nil)

	when := time.Date(2026, 11, 2, 9, 0, 0, 0, time.UTC)
	_, err := svc.AcceptBooking(ctx, f.professional, "b-1", services.AcceptBookingInput{ScheduledFor: &when})
	require.NoError(t, err)

	stored := f.store.bookings["b-1"]
	assert.Equal(t, 80.0, *stored.PriceQuoted)
	assert.True(t, when.Equal(*stored.ScheduledFor))

	_, err = svc.AcceptBooking(ctx, f.professional, "b-1", services.AcceptBookingInput{PriceQuoted: price(-1)})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestBookingService_PayGatewayFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedBooking("b-1", entities.BookingStatusAccepted, price(120))

	gateway := new(MockPaymentGateway)
	gateway.On("Charge", mock.Anything, mock.Anything).Return(nil, errors.New("card declined"))
	svc := newBookingService(f, gateway, nil)

	_, err := svc.PayBooking(ctx, f.customer, "b-1")
	assertAppError(t, err, apperrors.ErrorTypeExternal, "Failed to process payment")
	assert.Equal(t, entities.BookingStatusAccepted, f.store.bookings["b-1"].Status)
}

func TestBookingService_PayRetryAfterDecline(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedBooking("b-1", entities.BookingStatusAccepted, price(120))

	gateway := new(MockPaymentGateway)
	svc := newBookingService(f, gateway, nil)

	// a transient failure keeps the key so a retry is deduplicated
	gateway.On("Charge", mock.Anything, mock.MatchedBy(func(req providers.ChargeRequest) bool {
		return req.IdempotencyKey == "booking-b-1"
	})).Return(nil, errors.New("connection reset")).Once()
	_, err := svc.PayBooking(ctx, f.customer, "b-1")
	assertAppError(t, err, apperrors.ErrorTypeExternal, "Failed to process payment")
	assert.Equal(t, 0, f.store.bookings["b-1"].PaymentAttempts)

	gateway.On("Charge", mock.Anything, mock.MatchedBy(func(req providers.ChargeRequest) bool {
		return req.IdempotencyKey == "booking-b-1"
	})).Return(nil, fmt.Errorf("%w: insufficient funds", providers.ErrPaymentDeclined)).Once()
	_, err = svc.PayBooking(ctx, f.customer, "b-1")
	assertAppError(t, err, apperrors.ErrorTypeExternal, "Payment was declined. Please try again.")
	assert.Equal(t, 1, f.store.bookings["b-1"].PaymentAttempts)
	assert.Equal(t, entities.BookingStatusAccepted, f.store.bookings["b-1"].Status)

	// the declined key is retired, so the next attempt can succeed
	gateway.On("Charge", mock.Anything, mock.MatchedBy(func(req providers.ChargeRequest) bool {
		return req.IdempotencyKey == "booking-b-1-1"
	})).Return(&providers.ChargeResult{Reference: "pi_ok", Status: "succeeded"}, nil).Once()
	paid, err := svc.PayBooking(ctx, f.customer, "b-1")
	require.NoError(t, err)
	assert.Equal(t, entities.BookingStatusPaid, paid.Status)
	assert.Equal(t, "pi_ok", f.store.bookings["b-1"].PaymentReference)
	gateway.AssertExpectations(t)
}

func TestBookingService_Cancel(t *testing.T) {
	ctx := context.Background()
	for _, status := range []entities.BookingStatus{entities.BookingStatusPending, entities.BookingStatusAccepted} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture()
			f.seedBooking("b-1", status, nil)
			svc := newBookingService(f, new(MockPaymentGateway), nil)

			b, err := svc.CancelBooking(ctx, f.customer, "b-1")
			require.NoError(t, err)
			assert.Equal(t, entities.BookingStatusCancelled, b.Status)
			assert.Equal(t, entities.BookingStatusCancelled, f.store.bookings["b-1"].Status)
		})
	}
}

func TestBookingService_GetBookingAndReceipt(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seedBooking("b-1", entities.BookingStatusPaid, price(150))
	svc := newBookingService(f, new(MockPaymentGateway), nil)

	for _, actor := range []*entities.Principal{f.customer, f.professional, f.admin} {
		view, err := svc.GetBooking(ctx, actor, "b-1")
		require.NoError(t, err)
		assert.Equal(t, "Alex", view.CustomerName)
		assert.Equal(t, "Maria", view.TechnicianName)
		assert.Equal(t, "Electrician", view.TechnicianTitle)
	}

	stranger := &entities.Principal{UserID: "u-x", Role: entities.RoleCustomer}
	_, err := svc.GetBooking(ctx, stranger, "b-1")
	assertAppError(t, err, apperrors.ErrorTypeNotFound, "Booking not found")

	var buf bytes.Buffer
	require.NoError(t, svc.RenderReceipt(ctx, f.customer, "b-1", &buf))
	assert.Equal(t, "receipt b-1", buf.String())
	assert.Equal(t, "application/pdf", svc.ReceiptContentType())

	f.seedBooking("b-2", entities.BookingStatusPending, nil)
	err = svc.RenderReceipt(ctx, f.customer, "b-2", &buf)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidState))
}
