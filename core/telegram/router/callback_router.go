package router

import (
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/surokacs/petertrain-bot/core/telegram"
	"github.com/surokacs/petertrain-bot/core/telegram/callbacks"
)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
}

// CallbackRoute returns a handler that routes callbacks through the registry.
// Handlers are responsible for answering the callback query.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		if c.Callback() == nil {
			return nil
		}

		key, _ := callbacks.Split(c.Callback())
		name := "callback." + normalizeHandlerName(key)
		extras := []slog.Attr{slog.String("cb_key", key)}

		cbHandler, ok := reg.GetCallback(key)
		if !ok || cbHandler == nil {
			fallback := opts.NotFound
			if fallback == nil {
				fallback = reg.CallbackNotFound()
			}
			extras = append(extras, slog.String("reason", "not_found"))
			return handleWithSummary(c, name, start, "", "ignored", func() error {
				if fallback != nil {
					return fallback(c)
				}
				return c.Respond()
			}, extras...)
		}

		return handleWithSummary(c, name, start, "", "", func() error {
			return cbHandler(c)
		}, extras...)
	}
	return tg.Route{Endpoint: tele.OnCallback, Handler: handler}
}
