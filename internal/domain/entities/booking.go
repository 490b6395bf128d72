package entities

import (
	"fmt"
	"strings"
	"time"
)

// BookingStatus represents the lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusAccepted  BookingStatus = "ACCEPTED"
	BookingStatusRejected  BookingStatus = "REJECTED"
	BookingStatusPaid      BookingStatus = "PAID"
	BookingStatusCompleted BookingStatus = "COMPLETED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// transition describes one allowed edge of the booking lifecycle
type transition struct {
	from  BookingStatus
	to    BookingStatus
	actor Role
}

// bookingTransitions is the single source of truth for status changes
var bookingTransitions = []transition{
	{BookingStatusPending, BookingStatusAccepted, RoleProfessional},
	{BookingStatusPending, BookingStatusRejected, RoleProfessional},
	{BookingStatusAccepted, BookingStatusPaid, RoleCustomer},
	{BookingStatusPaid, BookingStatusCompleted, RoleProfessional},
	{BookingStatusPending, BookingStatusCancelled, RoleCustomer},
	{BookingStatusAccepted, BookingStatusCancelled, RoleCustomer},
}

// ParseBookingStatus converts a string into a BookingStatus
func ParseBookingStatus(s string) (BookingStatus, error) {
	switch st := BookingStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case BookingStatusPending, BookingStatusAccepted, BookingStatusRejected,
		BookingStatusPaid, BookingStatusCompleted, BookingStatusCancelled:
		return st, nil
	default:
		return "", fmt.Errorf("unknown booking status %q", s)
	}
}

// CanTransition reports whether a booking may move from one status to another
func CanTransition(from, to BookingStatus) bool {
	_, ok := TransitionActor(from, to)
	return ok
}

// TransitionActor returns the role allowed to perform the transition
func TransitionActor(from, to BookingStatus) (Role, bool) {
	for _, t := range bookingTransitions {
		if t.from == from && t.to == to {
			return t.actor, true
		}
	}
	return "", false
}

// SourcesFor lists every status from which a booking may reach to
func SourcesFor(to BookingStatus) []BookingStatus {
	var from []BookingStatus
	for _, t := range bookingTransitions {
		if t.to == to {
			from = append(from, t.from)
		}
	}
	return from
}

// IsTerminal reports whether no further transitions are possible
func (s BookingStatus) IsTerminal() bool {
	for _, t := range bookingTransitions {
		if t.from == s {
			return false
		}
	}
	return true
}

// Booking is a job request from a customer to a technician
type Booking struct {
	ID               string        `json:"id" db:"id"`
	CustomerID       string        `json:"customerId" db:"customer_id"`
	TechnicianID     string        `json:"technicianId" db:"technician_id"`
	Status           BookingStatus `json:"status" db:"status"`
	Description      string        `json:"description" db:"description"`
	Address          string        `json:"address" db:"address"`
	PriceQuoted      *float64      `json:"priceQuoted,omitempty" db:"price_quoted"`
	ScheduledFor     *time.Time    `json:"scheduledFor,omitempty" db:"scheduled_for"`
	RequestedAt      time.Time     `json:"requestedAt" db:"requested_at"`
	CompletedAt      *time.Time    `json:"completedAt,omitempty" db:"completed_at"`
	PaymentReference string        `json:"paymentReference,omitempty" db:"payment_reference"`
	PaymentAttempts  int           `json:"-" db:"payment_attempts"` // declined charges so far
	UpdatedAt        time.Time     `json:"updatedAt" db:"updated_at"`
}

// PaymentKey is the gateway idempotency key for the next charge. Retries of
// an attempt reuse it; a declined attempt moves the booking to a fresh key.
func (b *Booking) PaymentKey() string {
	if b.PaymentAttempts == 0 {
		return "booking-" + b.ID
	}
	return fmt.Sprintf("booking-%s-%d", b.ID, b.PaymentAttempts)
}

// BookingChange is a compare-and-set status update. Nil fields are left untouched.
type BookingChange struct {
	BookingID        string
	From             []BookingStatus
	To               BookingStatus
	CustomerID       string // when set, the booking must belong to this customer
	TechnicianID     string // when set, the booking must belong to this technician
	PriceQuoted      *float64
	ScheduledFor     *time.Time
	CompletedAt      *time.Time
	PaymentReference *string
}
