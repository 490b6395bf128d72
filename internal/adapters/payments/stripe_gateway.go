package payments

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/krafta/backend/internal/domain/providers"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeGateway charges bookings through Stripe PaymentIntents
type StripeGateway struct {
	api           *client.API
	paymentMethod string
}

// NewStripeGateway creates a Stripe-backed gateway
func NewStripeGateway(secretKey, paymentMethod string) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{api: api, paymentMethod: paymentMethod}
}

// Name identifies the gateway
func (g *StripeGateway) Name() string { return "stripe" }

// Charge creates and confirms a PaymentIntent. Stripe deduplicates
// requests carrying the same idempotency key.
func (g *StripeGateway) Charge(ctx context.Context, req providers.ChargeRequest) (*providers.ChargeResult, error) {
	params := buildPaymentIntentParams(req, g.paymentMethod)
	params.Context = ctx

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, classifyStripeError(err)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		// The intent stored under this key will not succeed on replay
		return nil, fmt.Errorf("%w: stripe status %s", providers.ErrPaymentDeclined, pi.Status)
	}

	return &providers.ChargeResult{
		Reference: pi.ID,
		Status:    string(pi.Status),
	}, nil
}

func buildPaymentIntentParams(req providers.ChargeRequest, paymentMethod string) *stripe.PaymentIntentParams {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(toMinorUnits(req.Amount)),
		Currency:           stripe.String(req.Currency),
		PaymentMethod:      stripe.String(paymentMethod),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Confirm:            stripe.Bool(true),
		Description:        stripe.String(req.Description),
	}
	params.SetIdempotencyKey(req.IdempotencyKey)
	params.AddMetadata("booking_id", req.BookingID)
	params.AddMetadata("customer_id", req.CustomerID)
	return params
}

// classifyStripeError separates card refusals, which are final for the key
// they were sent with, from failures worth retrying as is
func classifyStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
		return fmt.Errorf("%w: %s", providers.ErrPaymentDeclined, stripeErr.Msg)
	}
	return fmt.Errorf("stripe charge failed: %w", err)
}

func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
