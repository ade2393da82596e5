package notify

import (
	"context"
	"fmt"

	"github.com/surokacs/petertrain-bot/core/sender"
	"github.com/surokacs/petertrain-bot/shop/orders"
)

// Queue accepts asynchronous jobs; *sender.Dispatcher implements it.
type Queue interface {
	Enqueue(ctx context.Context, action, endpoint string, run sender.Job) error
}

// ReceiptHook e-mails a receipt for every new order. Delivery happens on the
// queue so the buyer's reply is not held up by the mail relay.
type ReceiptHook struct {
	mail  Dispatcher
	queue Queue
}

// NewReceiptHook returns a post-commit hook sending receipts through d.
func NewReceiptHook(d Dispatcher, q Queue) *ReceiptHook {
	return &ReceiptHook{mail: d, queue: q}
}

// Name identifies the hook in logs.
func (h *ReceiptHook) Name() string { return "receipt" }

// OrderCreated queues the receipt. Only a rejected enqueue is reported; send
// failures are logged by the queue.
func (h *ReceiptHook) OrderCreated(ctx context.Context, o orders.Order) error {
	subject, body := Receipt(o)
	to := o.Email
	if h.queue == nil {
		return h.mail.Send(ctx, to, subject, body)
	}
	job := func(ctx context.Context) error {
		return h.mail.Send(ctx, to, subject, body)
	}
	if err := h.queue.Enqueue(ctx, "receipt", "order/"+o.ID.String(), job); err != nil {
		return fmt.Errorf("queue receipt: %w", err)
	}
	return nil
}
