package payments

import (
	"fmt"
	"time"

	"github.com/krafta/backend/internal/domain/providers"
)

// NewGateway builds the configured payment gateway
func NewGateway(provider, stripeKey, stripePaymentMethod string, simulatedDelay time.Duration) (providers.PaymentGateway, error) {
	switch provider {
	case "", "simulated":
		return NewSimulatedGateway(simulatedDelay), nil
	case "stripe":
		return NewStripeGateway(stripeKey, stripePaymentMethod), nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", provider)
	}
}
