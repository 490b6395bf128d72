package providers

import (
	"context"
	"errors"
)

// ErrPaymentDeclined marks a charge the gateway refused for good. Retrying
// under the same idempotency key would replay the refusal.
var ErrPaymentDeclined = errors.New("payment declined")

// ChargeRequest describes a one-off card charge for a booking
type ChargeRequest struct {
	BookingID      string
	CustomerID     string
	Amount         float64
	Currency       string
	IdempotencyKey string
	Description    string
}

// ChargeResult is the gateway's record of a successful charge
type ChargeResult struct {
	Reference string
	Status    string
}

// PaymentGateway charges customers for accepted bookings
type PaymentGateway interface {
	// Charge captures the amount. Repeating a call with the same idempotency
	// key must not charge twice.
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)

	// Name identifies the gateway in logs
	Name() string
}
