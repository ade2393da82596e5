// Package notify delivers order receipts by e-mail and publishes order events.
// Everything here runs after the order is stored; failures are logged and
// never reach the buyer.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/surokacs/petertrain-bot/core/logger"
	"github.com/surokacs/petertrain-bot/shop/orders"
)

const component = "notify"

// Dispatcher sends a plain-text message to an address.
type Dispatcher interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogDispatcher records receipts in the log instead of sending them. It is
// used when SMTP is not configured.
type LogDispatcher struct{}

// Send implements Dispatcher.
func (LogDispatcher) Send(ctx context.Context, to, subject, _ string) error {
	logger.Info(ctx, component, "receipt.logged",
		slog.String("to", logger.MaskEmail(to)),
		slog.String("subject", subject),
	)
	return nil
}

// Receipt renders the receipt e-mail for o.
func Receipt(o orders.Order) (subject, body string) {
	subject = fmt.Sprintf("Receipt for order #%s", o.ID)
	var b strings.Builder
	b.WriteString("Thank you for your purchase!\n\n")
	fmt.Fprintf(&b, "Order number: %s\n", o.ID)
	fmt.Fprintf(&b, "Item: %s\n", o.Item)
	fmt.Fprintf(&b, "Amount: %s\n", o.Amount())
	fmt.Fprintf(&b, "Time: %s UTC\n", o.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
	return subject, b.String()
}
