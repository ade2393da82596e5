package middleware

import (
	"log/slog"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/surokacs/petertrain-bot/core/config"
	"github.com/surokacs/petertrain-bot/core/logger"
	tghelpers "github.com/surokacs/petertrain-bot/core/telegram/helpers"
)

// RateLimitOptions configures behaviour of the rate limit middleware.
type RateLimitOptions struct {
	Interval  time.Duration
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

const sweepThreshold = 1024

// UpdateKind classifies an update for rate-limit exclusions and metrics.
func UpdateKind(upd tele.Update) string {
	switch {
	case upd.PreCheckoutQuery != nil:
		return coreconfig.UpdatePayment
	case upd.Message != nil && upd.Message.Payment != nil:
		return coreconfig.UpdatePayment
	case upd.Callback != nil:
		return coreconfig.UpdateCallback
	case upd.Message != nil:
		return coreconfig.UpdateMessage
	case upd.Query != nil:
		return "inline_query"
	}
	return "other"
}

// RateLimitMiddleware returns a middleware that enforces a minimum interval
// between updates from the same user.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	var (
		userLastSeen   = make(map[int64]time.Time)
		userLastSeenMu sync.Mutex
	)
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}

			if _, skip := opts.Exclude[UpdateKind(c.Update())]; skip {
				return next(c)
			}

			ts := now()

			userLastSeenMu.Lock()
			if last, ok := userLastSeen[user.ID]; ok && ts.Sub(last) < opts.Interval {
				userLastSeenMu.Unlock()
				logger.Warn(tghelpers.BuildContext(c), "tg", "tg.rate_limit",
					slog.String("outcome", "rate_limited"),
					slog.Int64("user_id", user.ID),
				)
				if opts.OnLimited != nil {
					_ = opts.OnLimited(c)
				}
				return nil
			}
			if len(userLastSeen) > sweepThreshold {
				for id, seen := range userLastSeen {
					if ts.Sub(seen) > opts.Interval {
						delete(userLastSeen, id)
					}
				}
			}
			userLastSeen[user.ID] = ts
			userLastSeenMu.Unlock()
			return next(c)
		}
	}
}
