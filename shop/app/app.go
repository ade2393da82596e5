// Package app assembles the storefront: stores, checkout machine, payment
// gateway, notifications, Telegram routes and the ops server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	tele "gopkg.in/telebot.v4"

	"github.com/surokacs/petertrain-bot/core/bootstrap"
	"github.com/surokacs/petertrain-bot/core/cmd"
	coreconfig "github.com/surokacs/petertrain-bot/core/config"
	"github.com/surokacs/petertrain-bot/core/logger"
	"github.com/surokacs/petertrain-bot/core/sender"
	tg "github.com/surokacs/petertrain-bot/core/telegram"
	tghelpers "github.com/surokacs/petertrain-bot/core/telegram/helpers"
	"github.com/surokacs/petertrain-bot/core/telegram/middleware"
	"github.com/surokacs/petertrain-bot/shop/admin"
	"github.com/surokacs/petertrain-bot/shop/bot"
	"github.com/surokacs/petertrain-bot/shop/catalog"
	"github.com/surokacs/petertrain-bot/shop/checkout"
	"github.com/surokacs/petertrain-bot/shop/config"
	"github.com/surokacs/petertrain-bot/shop/notify"
	"github.com/surokacs/petertrain-bot/shop/ops"
	"github.com/surokacs/petertrain-bot/shop/orders"
	"github.com/surokacs/petertrain-bot/shop/payment"
)

const component = "app"

// Options override infrastructure constructors, mainly for tests.
type Options struct {
	LoggerInit    func(*coreconfig.Config) error
	KafkaProducer func(brokers []string) (sarama.SyncProducer, error)
}

// App is the assembled storefront.
type App struct {
	cfg *config.Config

	infra    *bootstrap.Result
	orders   orders.Store
	memory   *checkout.MemoryStore
	redis    *redis.Client
	gateway  *payment.TelegramGateway
	machine  *checkout.Machine
	bot      *bot.Bot
	notifier *sender.Dispatcher
	events   *notify.EventHook
	ops      *ops.Server
}

var (
	_ cmd.TelegramApp = (*App)(nil)
	_ cmd.ServiceApp  = (*App)(nil)
	_ cmd.Closer      = (*App)(nil)
)

// Bootstrap is the cmd.Options hook.
func Bootstrap(ctx context.Context, carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
	cfg, ok := carrier.(*config.Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}
	return New(ctx, cfg, Options{})
}

// New wires every component described by cfg. Startup checks (catalog load,
// Redis ping) run before the app is returned.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	if opts.KafkaProducer == nil {
		opts.KafkaProducer = notify.NewKafkaProducer
	}
	a := &App{cfg: cfg}
	provider := catalog.NewFileProvider(cfg.Catalog.Path)

	checks := []bootstrap.Check{
		bootstrap.CheckFunc(func(ctx context.Context) error {
			_, err := provider.Catalog(ctx)
			return err
		}),
	}
	var sessions checkout.SessionStore
	ttl := time.Duration(cfg.Sessions.IdleTTLMinutes) * time.Minute
	switch cfg.Sessions.Backend {
	case config.SessionsRedis:
		a.redis = checkout.NewRedisClient(checkout.RedisOptions{
			Addr:     cfg.Sessions.Redis.Addr,
			Password: cfg.Sessions.Redis.Password,
			DB:       cfg.Sessions.Redis.DB,
		})
		store := checkout.NewRedisStore(a.redis, ttl)
		checks = append(checks, bootstrap.CheckFunc(store.Ping))
		sessions = store
	default:
		a.memory = checkout.NewMemoryStore(ttl)
		sessions = a.memory
	}

	infra, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:     cfg.CoreConfig(),
		Database:   cfg.Database,
		LoggerInit: opts.LoggerInit,
		Checks:     checks,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.infra = infra
	if infra.DB != nil {
		a.orders = orders.NewSQLStore(infra.DB)
	} else {
		a.orders = orders.NewFileStore(cfg.Database.Path)
	}

	if err := a.wire(provider, sessions, opts); err != nil {
		_ = a.Close()
		return nil, err
	}
	logger.Info(ctx, component, "wired",
		slog.String("orders", cfg.Database.Driver),
		slog.String("sessions", cfg.Sessions.Backend),
		slog.Bool("smtp", cfg.SMTP.Host != ""),
		slog.Bool("kafka", a.events != nil),
		slog.Bool("ops", cfg.Ops.Listen != ""),
	)
	return a, nil
}

func (a *App) wire(provider catalog.Provider, sessions checkout.SessionStore, opts Options) error {
	cfg := a.cfg
	ids, err := checkout.NewIDGenerator(cfg.Orders.IDScheme)
	if err != nil {
		return err
	}

	var mail notify.Dispatcher = notify.LogDispatcher{}
	smtpOpts := notify.SMTPOptions{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		Timeout:  config.Seconds(cfg.SMTP.TimeoutSeconds),
	}
	if smtpOpts.Enabled() {
		if mail, err = notify.NewSMTPDispatcher(smtpOpts); err != nil {
			return err
		}
	}
	a.notifier = sender.NewDispatcher(sender.Options{
		Name:        "notify.sender",
		QueueSize:   64,
		Workers:     2,
		MaxRetries:  3,
		MaxDuration: 2 * time.Minute,
	})
	hooks := []checkout.Hook{notify.NewReceiptHook(mail, a.notifier)}

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := opts.KafkaProducer(cfg.Kafka.Brokers)
		if err != nil {
			return fmt.Errorf("app: kafka producer: %w", err)
		}
		a.events = notify.NewEventHook(producer, cfg.Kafka.Topic)
		hooks = append(hooks, a.events)
	}

	a.gateway = payment.NewTelegramGateway(payment.TelegramOptions{
		ProviderToken: cfg.Payments.ProviderToken,
		Timeout:       config.Seconds(cfg.Payments.TimeoutSeconds),
	})
	a.machine, err = checkout.NewMachine(checkout.Options{
		Catalog:        provider,
		Orders:         a.orders,
		Gateway:        a.gateway,
		Sessions:       sessions,
		IDs:            ids,
		Hooks:          hooks,
		Currency:       cfg.Payments.Currency,
		StorageTimeout: config.Seconds(cfg.Orders.StorageTimeoutSeconds),
		HookTimeout:    config.Seconds(cfg.Hooks.TimeoutSeconds),
	})
	if err != nil {
		return err
	}

	core := cfg.CoreConfig()
	a.bot, err = bot.New(bot.Options{
		Checkout: a.machine,
		Reports: admin.NewReporter(admin.Options{
			Orders:  a.orders,
			IsAdmin: core.IsAdmin,
			Limit:   cfg.Orders.ReportLimit,
			Timeout: config.Seconds(cfg.Orders.StorageTimeoutSeconds),
		}),
		IsAdmin:  core.IsAdmin,
		Currency: cfg.Payments.Currency,
	})
	if err != nil {
		return err
	}

	return a.buildOps()
}

type pinger interface {
	Ping(ctx context.Context) error
}

func (a *App) buildOps() error {
	var checks []ops.Check
	if p, ok := a.orders.(pinger); ok {
		checks = append(checks, ops.Check{Name: "orders", Ping: p.Ping})
	}
	if a.redis != nil {
		checks = append(checks, ops.Check{Name: "redis", Ping: func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		}})
	}
	var collectors []prometheus.Collector
	collectors = append(collectors, middleware.Collectors()...)
	collectors = append(collectors, checkout.Collectors()...)

	srv, err := ops.NewServer(ops.Options{
		Listen:     a.cfg.Ops.Listen,
		Checks:     checks,
		Collectors: collectors,
	})
	if err != nil {
		return fmt.Errorf("app: ops server: %w", err)
	}
	a.ops = srv
	return nil
}

// TelegramRunOptions implements cmd.TelegramApp.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	reg := tg.NewRegistry()
	if err := a.bot.Register(reg); err != nil {
		return tg.RunOptions{}, err
	}
	core := a.cfg.CoreConfig()
	return tg.RunOptions{
		Config:      core,
		Registry:    reg,
		Middlewares: tg.DefaultMiddlewares(core, onLimited),
		Routes:      a.bot.Routes(reg),
		OnStart: func(ctx context.Context, rt tg.Runtime) error {
			a.gateway.Bind(rt.Bot)
			logger.Info(ctx, component, "payment.bound", slog.Bool("provider_token", a.cfg.Payments.ProviderToken != ""))
			return nil
		},
	}, nil
}

func onLimited(c tele.Context) error {
	if c.Callback() != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Too many requests, slow down."})
	}
	return tghelpers.SendText(c, "Too many requests, slow down.")
}

// Services implements cmd.ServiceApp.
func (a *App) Services() []cmd.Service {
	svcs := []cmd.Service{{Name: "ops", Run: a.ops.Run}}
	if a.memory != nil {
		svcs = append(svcs, cmd.Service{Name: "sessions.sweep", Run: func(ctx context.Context) error {
			return a.memory.Run(ctx, time.Minute)
		}})
	}
	return svcs
}

// Close drains queued receipts and releases connections.
func (a *App) Close() error {
	var errs []error
	if a.notifier != nil {
		a.notifier.Close()
	}
	if a.events != nil {
		errs = append(errs, a.events.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.infra != nil {
		errs = append(errs, a.infra.Close())
	}
	return errors.Join(errs...)
}
