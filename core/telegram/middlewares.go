package telegram

import (
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/surokacs/petertrain-bot/core/config"
	"github.com/surokacs/petertrain-bot/core/telegram/middleware"
)

// DefaultMiddlewares builds the shared middleware chain for bots.
// Recovery comes first so panics in any later middleware are contained.
func DefaultMiddlewares(cfg *coreconfig.Config, onLimited func(tele.Context) error) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
		{Name: "logger", Use: middleware.LoggerMiddleware},
	}

	if cfg != nil {
		interval := time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond
		if interval > 0 {
			// Payment updates are never throttled: a dropped completion is a
			// charge without an order.
			ex := map[string]struct{}{coreconfig.UpdatePayment: {}}
			for _, t := range cfg.RateLimit.ExcludeUpdates {
				ex[strings.ToLower(t)] = struct{}{}
			}
			mws = append(mws, Middleware{
				Name: "rate_limit",
				Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
					Interval:  interval,
					Exclude:   ex,
					OnLimited: onLimited,
				}),
			})
		}
	}

	return append(mws, Middleware{Name: "metrics", Use: middleware.MessageMetricsMiddleware})
}
