package helpers

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/surokacs/petertrain-bot/core/logger"
	"github.com/surokacs/petertrain-bot/core/sender"
)

var dispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher routes helper sends through d. With nil, sends run inline.
func SetDispatcher(d *sender.Dispatcher) {
	dispatcher.Store(d)
}

// deliver queues run on the dispatcher. A full or closed queue degrades to
// an inline send so replies are never dropped.
func deliver(c tele.Context, action, endpoint string, run func() error) error {
	d := dispatcher.Load()
	if d == nil {
		return run()
	}
	ctx := BuildContext(c)
	err := d.Enqueue(ctx, action, endpoint, func(context.Context) error { return run() })
	switch {
	case errors.Is(err, sender.ErrQueueFull), errors.Is(err, sender.ErrQueueClosed):
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("op", action),
			slog.String("endpoint", endpoint),
			slog.String("err", err.Error()),
		)
		return run()
	default:
		return err
	}
}

func markdown(markup []*tele.ReplyMarkup) *tele.SendOptions {
	opts := &tele.SendOptions{ParseMode: tele.ModeMarkdown}
	if len(markup) > 0 {
		opts.ReplyMarkup = markup[0]
	}
	return opts
}

// SendText sends text without a parse mode.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	args := make([]interface{}, 0, 1)
	if len(opts) > 0 && opts[0] != nil {
		args = append(args, opts[0])
	}
	return deliver(c, "send.text", "sendMessage", func() error {
		return c.Send(text, args...)
	})
}

// SendMD sends Markdown text with optional reply markup.
func SendMD(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	return SendText(c, text, markdown(markup))
}

// EditOrSendMD replaces the callback's message, or sends a new one when the
// update has no message to edit. It always runs inline.
func EditOrSendMD(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	return c.EditOrSend(text, markdown(markup))
}
