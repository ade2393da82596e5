package router

import (
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/surokacs/petertrain-bot/core/logger"
	tg "github.com/surokacs/petertrain-bot/core/telegram"
	"github.com/surokacs/petertrain-bot/core/telegram/middleware"
)

// CommandRouteOptions configures how commands are wrapped and exposed.
type CommandRouteOptions struct {
	IsAdmin       func(userID int64) bool
	OnAdminReject tele.HandlerFunc
}

// CommandRoutes prepares command handlers wrapped with shared middleware.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}

	adminOnly := middleware.AdminOnlyMiddleware(middleware.AdminOptions{
		IsAdmin:  opts.IsAdmin,
		OnReject: opts.OnAdminReject,
	})

	routes := make([]tg.Route, 0, len(reg.Commands()))
	for cmd, def := range reg.Commands() {
		name := normalizeHandlerName(cmd)
		inner := def.Handler
		h := func(c tele.Context) error {
			start := time.Now()
			return handleWithSummary(c, name, start, "", "", func() error { return inner(c) })
		}
		if def.AdminOnly {
			h = adminOnly(h)
		}
		routes = append(routes, tg.Route{Endpoint: cmd, Handler: h})
		for _, alias := range def.Aliases {
			if alias != "" && alias[0] == '/' {
				routes = append(routes, tg.Route{Endpoint: alias, Handler: h})
			}
		}
	}

	logger.TWire.Info("tg.wire",
		slog.String("event", "complete"),
		slog.Int("commands", len(reg.Commands())),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)

	return routes
}
