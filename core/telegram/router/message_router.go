package router

import (
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/surokacs/petertrain-bot/core/telegram"
	tghelpers "github.com/surokacs/petertrain-bot/core/telegram/helpers"
)

// FSM is the conversation that owns free-text input while it is in progress.
type FSM interface {
	InProgress(c tele.Context) bool
	HandleText(c tele.Context) error
}

// TextOptions controls fallback behaviour for text updates.
type TextOptions struct {
	UnknownText tele.HandlerFunc
}

// TextRoutes builds the handler for plain text: an active conversation takes
// priority, then command lookups by alias, then UnknownText.
func TextRoutes(fsm FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if fsm != nil && tghelpers.UserID(c) != 0 && fsm.InProgress(c) {
			return handleWithSummary(c, "fsm", start, "", "", func() error {
				return fsm.HandleText(c)
			})
		}

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil && !cmd.AdminOnly {
				return handleWithSummary(c, normalizeHandlerName(key), start, "", "", func() error {
					return cmd.Handler(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, "", "ignored", func() error {
				return opts.UnknownText(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, "skip", "ignored", nil)
		return nil
	}

	return []tg.Route{{Endpoint: tele.OnText, Handler: handler}}
}
