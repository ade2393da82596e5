package ui

import tele "gopkg.in/telebot.v4"

// FallbackProvider exposes handlers used when incoming updates cannot be
// mapped to a command, a registered callback, or an active conversation step.
type FallbackProvider interface {
	UnknownText() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}
