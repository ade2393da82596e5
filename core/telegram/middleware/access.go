package middleware

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/surokacs/petertrain-bot/core/logger"
	tghelpers "github.com/surokacs/petertrain-bot/core/telegram/helpers"
)

// AdminOptions defines how admin-only checks should behave.
type AdminOptions struct {
	// IsAdmin reports whether the sender belongs to the operator allow-list.
	// A nil IsAdmin rejects everyone.
	IsAdmin  func(userID int64) bool
	OnReject tele.HandlerFunc
}

// AdminOnlyMiddleware ensures that only allow-listed operators can invoke downstream handlers.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			var userID int64
			if u := c.Sender(); u != nil {
				userID = u.ID
			}
			if opts.IsAdmin != nil && opts.IsAdmin(userID) {
				return next(c)
			}
			logger.Warn(tghelpers.BuildContext(c), "tg", "access.denied",
				slog.String("outcome", "rejected"),
				slog.Int64("user_id", userID),
			)
			if opts.OnReject != nil {
				return opts.OnReject(c)
			}
			return nil
		}
	}
}
