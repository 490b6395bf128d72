package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/krafta/backend/internal/domain/providers"
)

// SimulatedGateway approves every charge after a fixed delay
type SimulatedGateway struct {
	delay time.Duration
}

// NewSimulatedGateway creates a gateway that waits delay before approving
func NewSimulatedGateway(delay time.Duration) *SimulatedGateway {
	return &SimulatedGateway{delay: delay}
}

// Name identifies the gateway
func (g *SimulatedGateway) Name() string { return "simulated" }

// Charge waits for the configured delay and approves. The reference is
// derived from the idempotency key so a retried charge reports the same one.
func (g *SimulatedGateway) Charge(ctx context.Context, req providers.ChargeRequest) (*providers.ChargeResult, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("invalid charge amount %.2f", req.Amount)
	}

	timer := time.NewTimer(g.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("payment cancelled: %w", ctx.Err())
	case <-timer.C:
	}

	ref := uuid.NewSHA1(uuid.NameSpaceOID, []byte(req.IdempotencyKey))
	return &providers.ChargeResult{
		Reference: "sim_" + ref.String(),
		Status:    "succeeded",
	}, nil
}
