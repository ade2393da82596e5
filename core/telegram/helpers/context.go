package helpers

import (
	"context"

	tele "gopkg.in/telebot.v4"

	"github.com/surokacs/petertrain-bot/core/logger"
)

// ctxKey is the tele.Context key holding the per-update logging context.
const ctxKey = "logger_ctx"

// StoreContext caches ctx on the update so later helpers reuse it.
func StoreContext(c tele.Context, ctx context.Context) {
	if c != nil && ctx != nil {
		c.Set(ctxKey, ctx)
	}
}

// ContextFrom returns the context cached by StoreContext.
func ContextFrom(c tele.Context) (context.Context, bool) {
	if c == nil {
		return nil, false
	}
	ctx, ok := c.Get(ctxKey).(context.Context)
	return ctx, ok && ctx != nil
}

// UserID returns the sender id of the update, or 0 for anonymous updates.
func UserID(c tele.Context) int64 {
	if c == nil || c.Sender() == nil {
		return 0
	}
	return c.Sender().ID
}

func chatID(c tele.Context) int64 {
	if chat := c.Chat(); chat != nil {
		return chat.ID
	}
	return 0
}

// BuildContext returns the logging context of the update: request id,
// update/user/chat ids and the tg component logger. The result is cached
// on c, so every handler of one update logs under the same rid.
func BuildContext(c tele.Context) context.Context {
	if ctx, ok := ContextFrom(c); ok {
		return ctx
	}
	if c == nil {
		return logger.Background()
	}
	updateID, userID, chat := c.Update().ID, UserID(c), chatID(c)
	rid, _ := c.Get("rid").(string)
	if rid == "" {
		rid = logger.BuildRID(updateID, chat, userID)
	}

	ctx := logger.WithUpdateMeta(logger.WithRID(context.Background(), rid), updateID, userID, chat)
	ctx = logger.WithLogger(ctx, logger.Component("tg"))
	StoreContext(c, ctx)
	return ctx
}

// WithHandler tags the update context with the handler name.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler != "" {
		ctx = logger.WithHandler(ctx, handler)
		StoreContext(c, ctx)
	}
	return ctx
}
