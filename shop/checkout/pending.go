package checkout

import (
	"context"
	"time"

	"github.com/surokacs/petertrain-bot/shop/orders"
)

// DefaultPendingTTL is how long a requested invoice stays redeemable. Telegram
// invoices do not expire, so this is only a bound on abandoned records.
const DefaultPendingTTL = 30 * 24 * time.Hour

// PendingOrder is the order an invoice will produce once it is paid. It is
// written before the invoice is sent and outlives the conversation session,
// so a late payment is recorded even after the session expired or moved on.
type PendingOrder struct {
	ID          orders.ID `json:"order_id"`
	UserID      int64     `json:"user_id"`
	Email       string    `json:"email"`
	Item        string    `json:"item"`
	Price       int64     `json:"price"`
	Currency    string    `json:"currency"`
	RequestedAt time.Time `json:"requested_at"`
}

// PendingStore keeps pending orders keyed by order id.
type PendingStore interface {
	PutPending(ctx context.Context, p PendingOrder) error
	Pending(ctx context.Context, id orders.ID) (p PendingOrder, ok bool, err error)
	DeletePending(ctx context.Context, id orders.ID) error
}
