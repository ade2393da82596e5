package router

import (
	tg "github.com/surokacs/petertrain-bot/core/telegram"
	"github.com/surokacs/petertrain-bot/core/telegram/ui"
)

// FallbackRoutes returns the callback and text routes. Callbacks without a
// registered key and text outside the conversation go to p; a nil p keeps
// the registry's not-found handler and ignores unknown text.
func FallbackRoutes(reg *tg.Registry, fsm FSM, p ui.FallbackProvider) []tg.Route {
	var (
		text TextOptions
		cb   CallbackOptions
	)
	if p != nil {
		text.UnknownText = p.UnknownText()
		cb.NotFound = p.UnknownCallback()
	}
	return append([]tg.Route{CallbackRoute(reg, cb)}, TextRoutes(fsm, reg, text)...)
}
