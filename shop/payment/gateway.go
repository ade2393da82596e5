// Package payment requests payments from the user through Telegram invoices.
// Pre-checkout and completion notifications arrive as bot updates and are
// routed to the checkout machine by the bot handlers.
package payment

import (
	"context"

	"github.com/surokacs/petertrain-bot/shop/orders"
)

// Request asks the user to pay Amount minor units of Currency. CorrelationID
// comes back unchanged in the completion event.
type Request struct {
	UserID        int64
	CorrelationID orders.ID
	Title         string
	Description   string
	Amount        int64
	Currency      string
}

// Payment is a completed charge as reported by the provider.
type Payment struct {
	CorrelationID orders.ID
	Amount        int64
	Currency      string
	// ProviderChargeID is the provider's reference, kept for logs.
	ProviderChargeID string
}

// Gateway sends payment requests.
type Gateway interface {
	RequestPayment(ctx context.Context, req Request) error
}

// GatewayFunc adapts a function to Gateway.
type GatewayFunc func(ctx context.Context, req Request) error

// RequestPayment implements Gateway.
func (f GatewayFunc) RequestPayment(ctx context.Context, req Request) error { return f(ctx, req) }
