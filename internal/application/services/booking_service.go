package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/krafta/backend/internal/domain/entities"
	"github.com/krafta/backend/internal/domain/providers"
	"github.com/krafta/backend/internal/domain/repositories"
	"github.com/krafta/backend/internal/infrastructure/observability"
	apperrors "github.com/krafta/backend/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

const (
	msgBookingNotOwned  = "Unauthorized or booking not found"
	msgTechNotFound     = "Technician not found"
	msgFailedCreate     = "Failed to create booking"
	msgFailedAccept     = "Failed to accept booking"
	msgFailedReject     = "Failed to reject booking"
	msgFailedPay        = "Failed to process payment"
	msgPaymentDeclined  = "Payment was declined. Please try again."
	msgFailedComplete   = "Failed to complete booking"
	msgFailedCancel     = "Failed to cancel booking"
	msgFailedGetBooking = "Failed to load booking"
)

// CreateBookingInput is a customer's job request
type CreateBookingInput struct {
	TechnicianID string
	Description  string
	Address      string
	ScheduledFor *time.Time
}

// AcceptBookingInput carries the professional's optional quote and schedule
type AcceptBookingInput struct {
	PriceQuoted  *float64
	ScheduledFor *time.Time
}

// BookingService drives bookings through their lifecycle
type BookingService struct {
	bookings    repositories.BookingRepository
	technicians repositories.TechnicianRepository
	users       repositories.UserRepository
	gateway     providers.PaymentGateway
	receipts    providers.ReceiptRenderer
	revalidator Revalidator
	metrics     *observability.Metrics
	currency    string
	now         func() time.Time
}

// NewBookingService creates a new booking service
func NewBookingService(
	bookings repositories.BookingRepository,
	technicians repositories.TechnicianRepository,
	users repositories.UserRepository,
	gateway providers.PaymentGateway,
	receipts providers.ReceiptRenderer,
	revalidator Revalidator,
	currency string,
) *BookingService {
	return &BookingService{
		bookings:    bookings,
		technicians: technicians,
		users:       users,
		gateway:     gateway,
		receipts:    receipts,
		revalidator: revalidator,
		currency:    currency,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SetMetrics attaches transition and payment instruments
func (s *BookingService) SetMetrics(metrics *observability.Metrics) {
	s.metrics = metrics
}

// SetClock overrides the time source
func (s *BookingService) SetClock(now func() time.Time) {
	s.now = now
}

// CreateBooking opens a PENDING request against a technician
func (s *BookingService) CreateBooking(ctx context.Context, actor *entities.Principal, input CreateBookingInput) (*entities.Booking, error) {
	ctx, span := observability.StartSpan(ctx, "BookingService.CreateBooking")
	defer span.End()

	if err := requireRole(actor, entities.RoleCustomer); err != nil {
		return nil, err
	}

	input.Description = strings.TrimSpace(input.Description)
	input.Address = strings.TrimSpace(input.Address)
	if input.TechnicianID == "" || input.Description == "" || input.Address == "" {
		return nil, apperrors.NewValidationError("Technician, description and address are required")
	}

	if _, err := s.technicians.GetByID(ctx, input.TechnicianID); err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil, apperrors.NewNotFoundError(msgTechNotFound)
		}
		observability.RecordError(span, err)
		return nil, internalOr(err, msgFailedCreate)
	}

	now := s.now()
	booking := &entities.Booking{
		ID:           uuid.New().String(),
		CustomerID:   actor.UserID,
		TechnicianID: input.TechnicianID,
		Status:       entities.BookingStatusPending,
		Description:  input.Description,
		Address:      input.Address,
		ScheduledFor: input.ScheduledFor,
		RequestedAt:  now,
		UpdatedAt:    now,
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		observability.RecordError(span, err)
		return nil, internalOr(err, msgFailedCreate)
	}

	observability.SetSpanAttributes(span, attribute.String("booking.id", booking.ID))
	s.revalidate(ctx)
	return booking, nil
}

// AcceptBooking moves a PENDING booking to ACCEPTED, optionally setting a quote
func (s *BookingService) AcceptBooking(ctx context.Context, actor *entities.Principal, bookingID string, input AcceptBookingInput) (*entities.Booking, error) {
	ctx, span := observability.StartSpan(ctx, "BookingService.AcceptBooking")
	defer span.End()

	if input.PriceQuoted != nil && *input.PriceQuoted <= 0 {
		return nil, apperrors.NewValidationError("Price must be greater than zero")
	}

	booking, technicianID, err := s.loadForTechnician(ctx, actor, bookingID, msgFailedAccept)
	if err != nil {
		return nil, err
	}

	change := entities.BookingChange{
		BookingID:    booking.ID,
		To:           entities.BookingStatusAccepted,
		TechnicianID: technicianID,
		PriceQuoted:  input.PriceQuoted,
		ScheduledFor: input.ScheduledFor,
	}
	if err := s.transition(ctx, booking, change, "Booking is not pending", msgFailedAccept); err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	if input.PriceQuoted != nil {
		booking.PriceQuoted = input.PriceQuoted
	}
	if input.ScheduledFor != nil {
		booking.ScheduledFor = input.ScheduledFor
	}
	return booking, nil
}

// RejectBooking declines a PENDING booking
func (s *BookingService) RejectBooking(ctx context.Context, actor *entities.Principal, bookingID string) (*entities.Booking, error) {
	ctx, span := observability.StartSpan(ctx, "BookingService.RejectBooking")
	defer span.End()

	booking, technicianID, err := s.loadForTechnician(ctx, actor, bookingID, msgFailedReject)
	if err != nil {
		return nil, err
	}

	change := entities.BookingChange{
		BookingID:    booking.ID,
		To:           entities.BookingStatusRejected,
		TechnicianID: technicianID,
	}
	if err := s.transition(ctx, booking, change, "Booking cannot be rejected", msgFailedReject); err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	return booking, nil
}

// PayBooking charges the quoted price and moves an ACCEPTED booking to PAID
func (s *BookingService) PayBooking(ctx context.Context, actor *entities.Principal, bookingID string) (*entities.Booking, error) {
	ctx, span := observability.StartSpan(ctx, "BookingService.PayBooking")
	defer span.End()

	booking, err := s.loadForCustomer(ctx, actor, bookingID, msgFailedPay)
	if err != nil {
		return nil, err
	}
	if !entities.CanTransition(booking.Status, entities.BookingStatusPaid) {
		return nil, apperrors.NewInvalidStateError("Booking must be accepted before payment")
	}
	if booking.PriceQuoted == nil {
		return nil, apperrors.NewValidationError("Price not set by professional")
	}

	charge, err := s.charge(ctx, booking)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	change := entities.BookingChange{
		BookingID:        booking.ID,
		To:               entities.BookingStatusPaid,
		CustomerID:       actor.UserID,
		PaymentReference: &charge.Reference,
	}
	if err := s.transition(ctx, booking, change, "Booking must be accepted before payment", msgFailedPay); err != nil {
		// The charge went through but another writer moved the booking.
		// The idempotency key keeps a retry from charging twice.
		observability.LoggerFromContext(ctx).Error().
			Err(err).
			Str("booking_id", booking.ID).
			Str("payment_reference", charge.Reference).
			Msg("Payment captured but booking status was not updated")
		observability.RecordError(span, err)
		return nil, err
	}

	booking.PaymentReference = charge.Reference
	return booking, nil
}

func (s *BookingService) charge(ctx context.Context, booking *entities.Booking) (*providers.ChargeResult, error) {
	start := time.Now()
	result, err := s.gateway.Charge(ctx, providers.ChargeRequest{
		BookingID:      booking.ID,
		CustomerID:     booking.CustomerID,
		Amount:         *booking.PriceQuoted,
		Currency:       s.currency,
		IdempotencyKey: booking.PaymentKey(),
		Description:    "Krafta booking " + booking.ID,
	})
	observability.RecordPayment(ctx, s.metrics, s.gateway.Name(), err == nil, time.Since(start))

	if err != nil {
		observability.LoggerFromContext(ctx).Error().
			Err(err).
			Str("booking_id", booking.ID).
			Str("gateway", s.gateway.Name()).
			Int("attempt", booking.PaymentAttempts).
			Msg("Payment charge failed")
		if errors.Is(err, providers.ErrPaymentDeclined) {
			if recErr := s.bookings.RecordDeclinedPayment(ctx, booking.ID); recErr != nil {
				observability.LoggerFromContext(ctx).Error().Err(recErr).Str("booking_id", booking.ID).Msg("Failed to record declined payment")
			}
			return nil, apperrors.NewExternalError(msgPaymentDeclined, err)
		}
		return nil, apperrors.NewExternalError(msgFailedPay, err)
	}
	return result, nil
}

// CompleteBooking marks a PAID booking as done
func (s *BookingService) CompleteBooking(ctx context.Context, actor *entities.Principal, bookingID string) (*entities.Booking, error) {
	ctx, span := observability.StartSpan(ctx, "BookingService.CompleteBooking")
	defer span.End()

	booking, technicianID, err := s.loadForTechnician(ctx, actor, bookingID, msgFailedComplete)
	if err != nil {
		return nil, err
	}

	completedAt := s.now()
	change := entities.BookingChange{
		BookingID:    booking.ID,
		To:           entities.BookingStatusCompleted,
		TechnicianID: technicianID,
		CompletedAt:  &completedAt,
	}
	if err := s.transition(ctx, booking, change, "Booking must be paid first", msgFailedComplete); err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	booking.CompletedAt = &completedAt
	return booking, nil
}

// CancelBooking withdraws a customer's booking before payment
func (s *BookingService) CancelBooking(ctx context.Context, actor *entities.Principal, bookingID string) (*entities.Booking, error) {
	ctx, span := observability.StartSpan(ctx, "BookingService.CancelBooking")
	defer span.End()

	booking, err := s.loadForCustomer(ctx, actor, bookingID, msgFailedCancel)
	if err != nil {
		return nil, err
	}

	change := entities.BookingChange{
		BookingID:  booking.ID,
		To:         entities.BookingStatusCancelled,
		CustomerID: actor.UserID,
	}
	if err := s.transition(ctx, booking, change, "Booking cannot be cancelled", msgFailedCancel); err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	return booking, nil
}

// GetBooking returns a booking to one of its parties or an admin
func (s *BookingService) GetBooking(ctx context.Context, actor *entities.Principal, bookingID string) (*entities.BookingView, error) {
	ctx, span := observability.StartSpan(ctx, "BookingService.GetBooking")
	defer span.End()

	if actor == nil || actor.UserID == "" {
		return nil, apperrors.NewUnauthorizedError("Unauthorized")
	}

	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil, apperrors.NewNotFoundError("Booking not found")
		}
		observability.RecordError(span, err)
		return nil, internalOr(err, msgFailedGetBooking)
	}

	technician, err := s.technicians.GetByID(ctx, booking.TechnicianID)
	if err != nil {
		observability.RecordError(span, err)
		return nil, internalOr(err, msgFailedGetBooking)
	}

	switch {
	case actor.Is(entities.RoleAdmin):
	case actor.Is(entities.RoleCustomer) && booking.CustomerID == actor.UserID:
	case actor.Is(entities.RoleProfessional) && technician.UserID == actor.UserID:
	default:
		return nil, apperrors.NewNotFoundError("Booking not found")
	}

	view := &entities.BookingView{
		Booking:         booking,
		TechnicianTitle: technician.Title,
	}
	owners, err := s.users.GetByIDs(ctx, []string{booking.CustomerID, technician.UserID})
	if err != nil {
		observability.RecordError(span, err)
		return nil, internalOr(err, msgFailedGetBooking)
	}
	if u, ok := owners[booking.CustomerID]; ok {
		view.CustomerName = u.Name
	}
	if u, ok := owners[technician.UserID]; ok {
		view.TechnicianName = u.Name
	}
	return view, nil
}

// RenderReceipt writes a payment receipt for a PAID or COMPLETED booking
func (s *BookingService) RenderReceipt(ctx context.Context, actor *entities.Principal, bookingID string, w io.Writer) error {
	view, err := s.GetBooking(ctx, actor, bookingID)
	if err != nil {
		return err
	}
	if view.Status != entities.BookingStatusPaid && view.Status != entities.BookingStatusCompleted {
		return apperrors.NewInvalidStateError("Receipt is only available for paid bookings")
	}
	if err := s.receipts.Render(w, *view); err != nil {
		return apperrors.NewInternalError("Failed to render receipt", err)
	}
	return nil
}

// ReceiptContentType is the media type RenderReceipt produces
func (s *BookingService) ReceiptContentType() string {
	return s.receipts.ContentType()
}

// loadForCustomer loads a booking owned by the calling customer. Missing and
// foreign bookings answer the same way.
func (s *BookingService) loadForCustomer(ctx context.Context, actor *entities.Principal, bookingID, failMsg string) (*entities.Booking, error) {
	if err := requireRole(actor, entities.RoleCustomer); err != nil {
		return nil, err
	}

	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil, apperrors.NewNotFoundError(msgBookingNotOwned)
		}
		return nil, internalOr(err, failMsg)
	}
	if booking.CustomerID != actor.UserID {
		return nil, apperrors.NewNotFoundError(msgBookingNotOwned)
	}
	return booking, nil
}

// loadForTechnician loads a booking addressed to the calling professional's
// technician profile and returns that profile's ID
func (s *BookingService) loadForTechnician(ctx context.Context, actor *entities.Principal, bookingID, failMsg string) (*entities.Booking, string, error) {
	if err := requireRole(actor, entities.RoleProfessional); err != nil {
		return nil, "", err
	}

	technician, err := s.technicians.GetByUserID(ctx, actor.UserID)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil, "", apperrors.NewNotFoundError(msgBookingNotOwned)
		}
		return nil, "", internalOr(err, failMsg)
	}

	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil, "", apperrors.NewNotFoundError(msgBookingNotOwned)
		}
		return nil, "", internalOr(err, failMsg)
	}
	if booking.TechnicianID != technician.ID {
		return nil, "", apperrors.NewNotFoundError(msgBookingNotOwned)
	}
	return booking, technician.ID, nil
}

// transition checks the lifecycle table and applies the change only if the
// row still holds the status that was read. Losing that race is reported
// the same way as an illegal transition.
func (s *BookingService) transition(ctx context.Context, booking *entities.Booking, change entities.BookingChange, invalidMsg, failMsg string) error {
	from := booking.Status
	if !entities.CanTransition(from, change.To) {
		return apperrors.NewInvalidStateError(invalidMsg)
	}

	change.From = []entities.BookingStatus{from}
	applied, err := s.bookings.Transition(ctx, change)
	if err != nil {
		return internalOr(err, failMsg)
	}
	if !applied {
		observability.LoggerFromContext(ctx).Info().
			Str("booking_id", booking.ID).
			Str("from", string(from)).
			Str("to", string(change.To)).
			Msg("Booking changed concurrently")
		return apperrors.NewInvalidStateError(invalidMsg)
	}

	booking.Status = change.To
	booking.UpdatedAt = s.now()
	observability.RecordBookingTransition(ctx, s.metrics, string(from), string(change.To))
	s.revalidate(ctx)
	return nil
}

func (s *BookingService) revalidate(ctx context.Context) {
	if s.revalidator != nil {
		s.revalidator.Revalidate(ctx, PathCustomer, PathProfessional, PathAdmin)
	}
}
