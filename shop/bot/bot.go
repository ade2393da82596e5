// Package bot binds Telegram updates to the checkout conversation and the
// operator report.
package bot

import (
	"context"
	"errors"

	tele "gopkg.in/telebot.v4"

	tg "github.com/surokacs/petertrain-bot/core/telegram"
	"github.com/surokacs/petertrain-bot/core/telegram/commands"
	"github.com/surokacs/petertrain-bot/core/telegram/router"
	"github.com/surokacs/petertrain-bot/shop/checkout"
	"github.com/surokacs/petertrain-bot/shop/orders"
	"github.com/surokacs/petertrain-bot/shop/payment"
)

const component = "bot"

// Checkout is the conversation driven by the handlers.
type Checkout interface {
	Session(ctx context.Context, userID int64) (checkout.Session, error)
	Start(ctx context.Context, userID int64) (checkout.Result, error)
	ChooseCategory(ctx context.Context, userID int64, i int) (checkout.Result, error)
	ChooseProduct(ctx context.Context, userID int64, j int) (checkout.Result, error)
	SubmitEmail(ctx context.Context, userID int64, text string) (checkout.Result, error)
	EditEmail(ctx context.Context, userID int64) (checkout.Result, error)
	ConfirmEmail(ctx context.Context, userID int64) (checkout.Result, error)
	PreCheckout(ctx context.Context, userID int64, correlationID orders.ID) bool
	PaymentCompleted(ctx context.Context, userID int64, p payment.Payment) (checkout.Result, error)
	Cancel(ctx context.Context, userID int64) (checkout.Result, error)
}

// Reports serves the operator view.
type Reports interface {
	Recent(ctx context.Context, identity int64) ([]string, error)
}

// Options wires the handlers.
type Options struct {
	Checkout Checkout
	Reports  Reports
	IsAdmin  func(int64) bool
	// Currency labels catalog prices. Defaults to RUB.
	Currency string
}

// Bot owns the storefront handlers.
type Bot struct {
	opts Options
}

// New validates opts.
func New(opts Options) (*Bot, error) {
	if opts.Checkout == nil {
		return nil, errors.New("bot: checkout is required")
	}
	if opts.Reports == nil {
		return nil, errors.New("bot: reports are required")
	}
	if opts.Currency == "" {
		opts.Currency = "RUB"
	}
	return &Bot{opts: opts}, nil
}

// Register adds the commands and callbacks to reg.
func (b *Bot) Register(reg *tg.Registry) error {
	cmds := map[string]commands.Command{
		"/start": {
			Handler:     b.start,
			Description: "Browse the catalog",
			Aliases:     []string{"menu"},
		},
		"/cancel": {
			Handler:     b.cancel,
			Description: "Cancel the current purchase",
		},
		"/admin": {
			Handler:     b.admin,
			Description: "Recent orders",
			AdminOnly:   true,
			Hidden:      true,
		},
	}
	for name, cmd := range cmds {
		if err := reg.RegisterCommand(name, cmd); err != nil {
			return err
		}
	}
	callbacks := map[string]tele.HandlerFunc{
		cbCategory:     b.chooseCategory,
		cbItem:         b.chooseProduct,
		cbEmailConfirm: b.confirmEmail,
		cbEmailEdit:    b.editEmail,
	}
	for key, h := range callbacks {
		if err := reg.RegisterCallback(key, h); err != nil {
			return err
		}
	}
	return nil
}

// Routes returns every route the storefront needs: commands, callbacks,
// conversation text and the payment hooks.
func (b *Bot) Routes(reg *tg.Registry) []tg.Route {
	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		IsAdmin:       b.opts.IsAdmin,
		OnAdminReject: b.denied,
	})
	routes = append(routes, router.FallbackRoutes(reg, b, b)...)
	return append(routes,
		tg.Route{Endpoint: tele.OnCheckout, Handler: b.preCheckout},
		tg.Route{Endpoint: tele.OnPayment, Handler: b.paymentCompleted},
	)
}

// UnknownText hints idle users towards /start and stays silent otherwise.
func (b *Bot) UnknownText() tele.HandlerFunc {
	return b.unknownText
}

// UnknownCallback answers buttons that no handler owns.
func (b *Bot) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return c.Respond(&tele.CallbackResponse{Text: textStale})
	}
}
