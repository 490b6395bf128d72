package handlers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/krafta/backend/internal/api/middleware"
	"github.com/krafta/backend/internal/application/services"
	"github.com/krafta/backend/internal/domain/entities"
)

// BookingService defines the booking operations used by the handler
type BookingService interface {
	CreateBooking(ctx context.Context, actor *entities.Principal, input services.CreateBookingInput) (*entities.Booking, error)
	AcceptBooking(ctx context.Context, actor *entities.Principal, bookingID string, input services.AcceptBookingInput) (*entities.Booking, error)
	RejectBooking(ctx context.Context, actor *entities.Principal, bookingID string) (*entities.Booking, error)
	PayBooking(ctx context.Context, actor *entities.Principal, bookingID string) (*entities.Booking, error)
	CompleteBooking(ctx context.Context, actor *entities.Principal, bookingID string) (*entities.Booking, error)
	CancelBooking(ctx context.Context, actor *entities.Principal, bookingID string) (*entities.Booking, error)
	GetBooking(ctx context.Context, actor *entities.Principal, bookingID string) (*entities.BookingView, error)
	RenderReceipt(ctx context.Context, actor *entities.Principal, bookingID string, w io.Writer) error
	ReceiptContentType() string
}

// ReviewService defines the review operations used by the handler
type ReviewService interface {
	SubmitReview(ctx context.Context, actor *entities.Principal, bookingID string, rating int, comment string) (*entities.Review, error)
}

// BookingHandler handles booking lifecycle endpoints
type BookingHandler struct {
	bookings BookingService
	reviews  ReviewService
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookings BookingService, reviews ReviewService) *BookingHandler {
	return &BookingHandler{bookings: bookings, reviews: reviews}
}

type createBookingRequest struct {
	TechnicianID string     `json:"technicianId"`
	Description  string     `json:"description"`
	Address      string     `json:"address"`
	ScheduledFor *time.Time `json:"scheduledFor"`
}

type acceptBookingRequest struct {
	PriceQuoted  *float64   `json:"priceQuoted"`
	ScheduledFor *time.Time `json:"scheduledFor"`
}

type reviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// CreateBooking handles POST /api/customer/bookings
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	booking, err := h.bookings.CreateBooking(r.Context(), middleware.PrincipalFromContext(r.Context()), services.CreateBookingInput{
		TechnicianID: req.TechnicianID,
		Description:  req.Description,
		Address:      req.Address,
		ScheduledFor: req.ScheduledFor,
	})
	if err != nil {
		respondWithAppError(w, r, err, "Failed to create booking")
		return
	}
	respondWithSuccess(w, http.StatusCreated, map[string]interface{}{"booking": booking})
}

// AcceptBooking handles POST /api/professional/bookings/{id}/accept
func (h *BookingHandler) AcceptBooking(w http.ResponseWriter, r *http.Request) {
	var req acceptBookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	booking, err := h.bookings.AcceptBooking(r.Context(), middleware.PrincipalFromContext(r.Context()), r.PathValue("id"), services.AcceptBookingInput{
		PriceQuoted:  req.PriceQuoted,
		ScheduledFor: req.ScheduledFor,
	})
	if err != nil {
		respondWithAppError(w, r, err, "Failed to accept booking")
		return
	}
	respondWithSuccess(w, http.StatusOK, map[string]interface{}{"booking": booking})
}

// RejectBooking handles POST /api/professional/bookings/{id}/reject
func (h *BookingHandler) RejectBooking(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.bookings.RejectBooking, "Failed to reject booking")
}

// PayBooking handles POST /api/customer/bookings/{id}/pay
func (h *BookingHandler) PayBooking(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.bookings.PayBooking, "Failed to process payment")
}

// CompleteBooking handles POST /api/professional/bookings/{id}/complete
func (h *BookingHandler) CompleteBooking(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.bookings.CompleteBooking, "Failed to complete booking")
}

// CancelBooking handles POST /api/customer/bookings/{id}/cancel
func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.bookings.CancelBooking, "Failed to cancel booking")
}

type transitionFunc func(ctx context.Context, actor *entities.Principal, bookingID string) (*entities.Booking, error)

func (h *BookingHandler) transition(w http.ResponseWriter, r *http.Request, fn transitionFunc, fallback string) {
	booking, err := fn(r.Context(), middleware.PrincipalFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err, fallback)
		return
	}
	respondWithSuccess(w, http.StatusOK, map[string]interface{}{"booking": booking})
}

// SubmitReview handles POST /api/customer/bookings/{id}/review
func (h *BookingHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	review, err := h.reviews.SubmitReview(r.Context(), middleware.PrincipalFromContext(r.Context()), r.PathValue("id"), req.Rating, req.Comment)
	if err != nil {
		respondWithAppError(w, r, err, "Failed to submit review")
		return
	}
	respondWithSuccess(w, http.StatusCreated, map[string]interface{}{"review": review})
}

// GetBooking handles GET /api/bookings/{id}
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	view, err := h.bookings.GetBooking(r.Context(), middleware.PrincipalFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err, "Failed to load booking")
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

// GetReceipt handles GET /api/bookings/{id}/receipt
func (h *BookingHandler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	// Render fully before writing so a failure can still answer with JSON
	var buf bytes.Buffer
	if err := h.bookings.RenderReceipt(r.Context(), middleware.PrincipalFromContext(r.Context()), id, &buf); err != nil {
		respondWithAppError(w, r, err, "Failed to render receipt")
		return
	}

	w.Header().Set("Content-Type", h.bookings.ReceiptContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="krafta-receipt-`+id+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
