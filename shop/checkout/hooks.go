package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/surokacs/petertrain-bot/core/logger"
	"github.com/surokacs/petertrain-bot/shop/orders"
)

// Hook runs after an order has been durably recorded. Hook failures are
// logged and never affect the order or the reply to the user.
type Hook interface {
	Name() string
	OrderCreated(ctx context.Context, o orders.Order) error
}

type funcHook struct {
	name string
	fn   func(context.Context, orders.Order) error
}

func (h funcHook) Name() string { return h.name }

func (h funcHook) OrderCreated(ctx context.Context, o orders.Order) error { return h.fn(ctx, o) }

// NewHook wraps fn as a named Hook.
func NewHook(name string, fn func(context.Context, orders.Order) error) Hook {
	return funcHook{name: name, fn: fn}
}

// DefaultHookTimeout bounds a single hook invocation.
const DefaultHookTimeout = 10 * time.Second

// runHooks calls every hook in order, detached from the caller's cancellation
// and bounded by timeout each.
func runHooks(ctx context.Context, hooks []Hook, o orders.Order, timeout time.Duration) {
	base := context.WithoutCancel(ctx)
	for _, h := range hooks {
		start := time.Now()
		err := callHook(base, h, o, timeout)
		attrs := []slog.Attr{
			slog.String("hook", h.Name()),
			slog.String("order_id", o.ID.String()),
			slog.String("status", logger.Status(err)),
			slog.Duration("duration", logger.Took(start)),
		}
		if err != nil {
			logger.Warn(ctx, "checkout", "hook.fail", append(attrs, slog.String("err", err.Error()))...)
			continue
		}
		logger.Debug(ctx, "checkout", "hook.done", attrs...)
	}
}

func callHook(ctx context.Context, h Hook, o orders.Order, timeout time.Duration) (err error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s panicked: %v", ErrNotification, h.Name(), r)
		}
	}()
	if herr := h.OrderCreated(ctx, o); herr != nil {
		return fmt.Errorf("%w: %s: %w", ErrNotification, h.Name(), herr)
	}
	return nil
}
