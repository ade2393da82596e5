// Package admin renders the operator view of recent orders.
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/surokacs/petertrain-bot/core/logger"
	"github.com/surokacs/petertrain-bot/shop/checkout"
	"github.com/surokacs/petertrain-bot/shop/orders"
)

// DefaultLimit is the number of orders shown when none is configured.
const DefaultLimit = 10

// EmptyText is shown when no order was recorded yet.
const EmptyText = "No orders yet."

// Options configures a Reporter.
type Options struct {
	Orders  orders.Store
	IsAdmin func(int64) bool
	Limit   int
	Timeout time.Duration
}

// Reporter serves recent orders to allow-listed operators only.
type Reporter struct {
	opts Options
}

// NewReporter fills defaults. A nil IsAdmin denies everybody.
func NewReporter(opts Options) *Reporter {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Timeout <= 0 {
		opts.Timeout = checkout.DefaultStorageTimeout
	}
	return &Reporter{opts: opts}
}

// Recent returns summaries of the latest orders, oldest first. The identity
// is checked before the store is touched, and a store failure yields no
// summaries at all.
func (r *Reporter) Recent(ctx context.Context, identity int64) ([]string, error) {
	if r.opts.IsAdmin == nil || !r.opts.IsAdmin(identity) {
		logger.Warn(ctx, "admin", "report.denied",
			slog.Int64("identity", identity),
			slog.String("outcome", "rejected"),
		)
		return nil, fmt.Errorf("%w: identity %d is not an operator", checkout.ErrForbidden, identity)
	}

	ctx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()
	list, err := r.opts.Orders.ListRecent(ctx, r.opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list orders: %w", checkout.ErrStorage, err)
	}
	out := make([]string, 0, len(list))
	for _, o := range list {
		out = append(out, Summary(o))
	}
	logger.Info(ctx, "admin", "report.served", slog.Int64("identity", identity), slog.Int("count", len(out)))
	return out, nil
}

// Summary renders one order in the fixed operator format.
func Summary(o orders.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📦 Order #%s\n", o.ID)
	fmt.Fprintf(&b, "📧 Email: %s\n", o.Email)
	fmt.Fprintf(&b, "🎟 Item: %s\n", o.Item)
	fmt.Fprintf(&b, "💰 Amount: %s\n", o.Amount())
	fmt.Fprintf(&b, "🕒 Time: %s", o.CreatedAt.Format("2006-01-02 15:04:05"))
	return b.String()
}
