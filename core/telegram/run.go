package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/surokacs/petertrain-bot/core/config"
	"github.com/surokacs/petertrain-bot/core/logger"
	"github.com/surokacs/petertrain-bot/core/sender"
	tghelpers "github.com/surokacs/petertrain-bot/core/telegram/helpers"
)

// Middleware describes a global bot middleware to be registered via bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route declares a single bot handler bound to an arbitrary endpoint.
// Endpoint values are passed directly to tele.Bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions controls the behaviour of RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	DispatcherOptions sender.Options
	Dispatcher        *sender.Dispatcher

	Middlewares []Middleware
	Routes      []Route

	DisableWebhookCleanup   bool
	DisableHelperDispatcher bool

	// OnStart runs once the bot exists and before it receives updates;
	// components that send through the bot (invoices) are bound here.
	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes runtime components to lifecycle hooks.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *sender.Dispatcher
	Registry   *Registry
}

// RunTelegram composes and runs a Telegram bot until the provided context is done.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Config == nil {
		return errors.New("telegram: nil config provided")
	}
	cfg := opts.Config
	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}

	poller := BuildPoller(PollerOptions{
		RunMode:                cfg.Telegram.RunMode,
		LongPollTimeoutSeconds: cfg.Telegram.LongPollTimeoutSeconds,
		Webhook: WebhookOptions{
			Listen: cfg.Webhook.Listen,
			Port:   cfg.Webhook.Port,
			URL:    cfg.Webhook.URL,
		},
	})

	start := time.Now()
	bot, err := newBot(cfg, poller)
	if err != nil {
		return err
	}
	logMode(ctx, poller, cfg, time.Since(start))
	if _, polling := poller.(*tele.LongPoller); polling && !opts.DisableWebhookCleanup {
		removeWebhook(ctx, bot)
	}

	dispatcher := opts.Dispatcher
	if dispatcher == nil {
		dopts := opts.DispatcherOptions
		if dopts.Name == "" {
			dopts.Name = "tg.sender"
		}
		dispatcher = sender.NewDispatcher(dopts)
	}
	useHelperDispatcher := !opts.DisableHelperDispatcher
	if useHelperDispatcher {
		tghelpers.SetDispatcher(dispatcher)
	}
	release := func() {
		dispatcher.Close()
		if useHelperDispatcher {
			tghelpers.SetDispatcher(nil)
		}
	}

	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			bot.Use(mw.Use)
		}
	}
	for _, route := range opts.Routes {
		if route.Endpoint != nil && route.Handler != nil {
			bot.Handle(route.Endpoint, route.Handler)
		}
	}
	SetupCommands(bot, reg)

	rt := Runtime{Bot: bot, Dispatcher: dispatcher, Registry: reg}
	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			release()
			return err
		}
	}

	runDone := make(chan struct{})
	go func() {
		bot.Start()
		close(runDone)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		bot.Stop()
		<-runDone
		runErr = ctx.Err()
	case <-runDone:
	}

	var stopErr error
	if opts.OnStop != nil {
		stopErr = opts.OnStop(context.WithoutCancel(ctx), rt)
	}
	release()

	if stopErr != nil {
		return stopErr
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

func newBot(cfg *coreconfig.Config, poller tele.Poller) (*tele.Bot, error) {
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: poller,
		Client: BuildHTTPClient(HTTPClientOptions{
			LongPollTimeout: longPollWindow(cfg.Telegram.LongPollTimeoutSeconds),
		}),
		OnError: func(err error, c tele.Context) {
			ctx := logger.Background()
			if c != nil {
				ctx = tghelpers.BuildContext(c)
			}
			logger.Error(ctx, "tg", "handler.error", slog.String("err", err.Error()))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	return bot, nil
}

func logMode(ctx context.Context, poller tele.Poller, cfg *coreconfig.Config, took time.Duration) {
	if p, ok := poller.(*tele.Webhook); ok {
		logger.Info(ctx, "tg", "mode",
			slog.String("mode", coreconfig.RunModeWebhook),
			slog.String("listen", p.Listen),
			slog.String("public_url", p.Endpoint.PublicURL),
			slog.Duration("duration", logger.RoundMS(took)),
		)
		return
	}
	logger.Info(ctx, "tg", "mode",
		slog.String("mode", coreconfig.RunModeLongpoll),
		slog.Duration("poll_duration", longPollWindow(cfg.Telegram.LongPollTimeoutSeconds)),
		slog.Duration("duration", logger.RoundMS(took)),
	)
}

// removeWebhook clears a webhook left by an earlier deployment; Telegram
// refuses getUpdates while one is set. Pending updates are kept.
func removeWebhook(ctx context.Context, bot *tele.Bot) {
	err := bot.RemoveWebhook(false)
	attrs := []slog.Attr{slog.String("status", logger.Status(err))}
	if err != nil {
		attrs = append(attrs, slog.String("err", err.Error()))
		logger.Warn(ctx, "tg", "webhook.delete", attrs...)
		return
	}
	logger.Info(ctx, "tg", "webhook.delete", attrs...)
}

func longPollWindow(seconds int) time.Duration {
	if seconds <= 0 {
		seconds = 10
	}
	return time.Duration(seconds) * time.Second
}
