package processing

import (
	"context"
	"math/rand"

	"github.com/rcarvalho-pb/payment_processor-go/internal/domain/payment"
)

// Gateway stands in for the acquirer-side capture call.
type Gateway interface {
	Authorize(ctx context.Context, p *payment.Payment) bool
}

// RandomGateway approves a fixed share of captures, for demos and local runs.
type RandomGateway struct {
	SuccessRate int // percent, defaults to 90
}

func (g *RandomGateway) Authorize(ctx context.Context, p *payment.Payment) bool {
	rate := g.SuccessRate
	if rate <= 0 {
		rate = 90
	}
	return rand.Intn(100) < rate
}
