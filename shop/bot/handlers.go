package bot

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/surokacs/petertrain-bot/core/logger"
	"github.com/surokacs/petertrain-bot/core/telegram/callbacks"
	"github.com/surokacs/petertrain-bot/core/telegram/format"
	tghelpers "github.com/surokacs/petertrain-bot/core/telegram/helpers"
	"github.com/surokacs/petertrain-bot/core/telegram/keyboard"
	"github.com/surokacs/petertrain-bot/core/telegram/router"
	"github.com/surokacs/petertrain-bot/shop/admin"
	"github.com/surokacs/petertrain-bot/shop/catalog"
	"github.com/surokacs/petertrain-bot/shop/checkout"
	"github.com/surokacs/petertrain-bot/shop/orders"
	"github.com/surokacs/petertrain-bot/shop/payment"
)

var _ router.FSM = (*Bot)(nil)

func (b *Bot) start(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	res, err := b.opts.Checkout.Start(ctx, tghelpers.UserID(c))
	if err != nil {
		return b.fail(c, err)
	}
	if len(res.Categories) == 0 {
		return tghelpers.SendText(c, textCatalogEmpty)
	}
	return tghelpers.SendMD(c, textChooseCategory, categoryKeyboard(res.Categories))
}

func (b *Bot) cancel(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	_, err := b.opts.Checkout.Cancel(ctx, tghelpers.UserID(c))
	if errors.Is(err, checkout.ErrState) {
		return tghelpers.SendText(c, textNothingToStop)
	}
	if err != nil {
		return b.fail(c, err)
	}
	return tghelpers.SendText(c, textCancelled, &tele.SendOptions{ReplyMarkup: keyboard.RemoveKeyboard()})
}

func (b *Bot) chooseCategory(c tele.Context) error {
	i, err := callbacks.PayloadInt(c)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: textStale})
	}
	ctx := tghelpers.BuildContext(c)
	res, err := b.opts.Checkout.ChooseCategory(ctx, tghelpers.UserID(c), i)
	if err != nil {
		return b.fail(c, err)
	}
	_ = c.Respond()
	title := textChooseItem
	if s := res.Session; s.Category != nil {
		if name := categoryName(res.Categories, *s.Category); name != "" {
			title = "*" + format.MD(name) + "*\n" + textChooseItem
		}
	}
	return tghelpers.SendMD(c, title, itemKeyboard(res.Items, b.opts.Currency))
}

func (b *Bot) chooseProduct(c tele.Context) error {
	j, err := callbacks.PayloadInt(c)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: textStale})
	}
	ctx := tghelpers.BuildContext(c)
	res, err := b.opts.Checkout.ChooseProduct(ctx, tghelpers.UserID(c), j)
	if err != nil {
		return b.fail(c, err)
	}
	_ = c.Respond()
	return tghelpers.EditOrSendMD(c, productCard(res.Session.Product, b.opts.Currency)+"\n\n"+format.MD(textEnterEmail))
}

// InProgress reports whether the sender's conversation expects free text.
func (b *Bot) InProgress(c tele.Context) bool {
	s, err := b.opts.Checkout.Session(tghelpers.BuildContext(c), tghelpers.UserID(c))
	return err == nil && s.State.WantsText()
}

// HandleText submits the message as the e-mail address.
func (b *Bot) HandleText(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	res, err := b.opts.Checkout.SubmitEmail(ctx, tghelpers.UserID(c), c.Text())
	if err != nil {
		return b.fail(c, err)
	}
	return tghelpers.SendText(c, fmt.Sprintf(textConfirmEmail, res.Session.Email), &tele.SendOptions{
		ReplyMarkup: keyboard.InlineButtonsNPerRow([]keyboard.InlineBtn{
			{Text: btnConfirm, Unique: cbEmailConfirm},
			{Text: btnEdit, Unique: cbEmailEdit},
		}, 2),
	})
}

func (b *Bot) confirmEmail(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	_, err := b.opts.Checkout.ConfirmEmail(ctx, tghelpers.UserID(c))
	if err != nil {
		return b.fail(c, err)
	}
	// The invoice itself is the next message.
	return c.Respond()
}

func (b *Bot) editEmail(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	if _, err := b.opts.Checkout.EditEmail(ctx, tghelpers.UserID(c)); err != nil {
		return b.fail(c, err)
	}
	_ = c.Respond()
	return tghelpers.SendText(c, textEnterEmail)
}

func (b *Bot) preCheckout(c tele.Context) error {
	q := c.PreCheckoutQuery()
	if q == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	if !b.opts.Checkout.PreCheckout(ctx, tghelpers.UserID(c), orders.ID(q.Payload)) {
		return c.Accept(textUnavailable)
	}
	return c.Accept()
}

func (b *Bot) paymentCompleted(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.Payment == nil {
		return nil
	}
	p := msg.Payment
	ctx := tghelpers.BuildContext(c)
	res, err := b.opts.Checkout.PaymentCompleted(ctx, tghelpers.UserID(c), payment.Payment{
		CorrelationID:    orders.ID(p.Payload),
		Amount:           int64(p.Total),
		Currency:         p.Currency,
		ProviderChargeID: p.ProviderChargeID,
	})
	switch {
	case errors.Is(err, checkout.ErrState):
		// Redelivered or foreign completions are logged by the machine.
		return nil
	case errors.Is(err, checkout.ErrStorage):
		if sendErr := tghelpers.SendText(c, textNotRecorded); sendErr != nil {
			logger.Warn(ctx, component, "reply.fail", slog.String("err", sendErr.Error()))
		}
		return err
	case err != nil:
		return err
	}
	return tghelpers.SendText(c, fmt.Sprintf(textPaid, res.Order.ID))
}

func (b *Bot) admin(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	list, err := b.opts.Reports.Recent(ctx, tghelpers.UserID(c))
	if err != nil {
		return b.fail(c, err)
	}
	if len(list) == 0 {
		return tghelpers.SendText(c, admin.EmptyText)
	}
	for _, s := range list {
		if err := tghelpers.SendText(c, s); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) denied(c tele.Context) error {
	return tghelpers.SendText(c, textDenied)
}

func (b *Bot) unknownText(c tele.Context) error {
	s, err := b.opts.Checkout.Session(tghelpers.BuildContext(c), tghelpers.UserID(c))
	if err != nil || s.State != checkout.StateIdle || !s.IsFresh() {
		return nil
	}
	return tghelpers.SendText(c, textIdleHint)
}

// fail maps a checkout error onto the reply the user sees. Only storage and
// gateway failures are returned to the router as handler errors.
func (b *Bot) fail(c tele.Context, err error) error {
	isCallback := c.Callback() != nil
	switch {
	case errors.Is(err, checkout.ErrValidation):
		if isCallback {
			return c.Respond(&tele.CallbackResponse{Text: textBadChoice, ShowAlert: true})
		}
		return tghelpers.SendText(c, textBadEmail)
	case errors.Is(err, checkout.ErrState):
		if isCallback {
			return c.Respond(&tele.CallbackResponse{Text: textStale})
		}
		return nil
	case errors.Is(err, checkout.ErrForbidden):
		return b.denied(c)
	case errors.Is(err, checkout.ErrGateway):
		if isCallback {
			_ = c.Respond()
		}
		if sendErr := tghelpers.SendText(c, textInvoiceFailed); sendErr != nil {
			return errors.Join(err, sendErr)
		}
		return err
	default:
		if isCallback {
			_ = c.Respond()
		}
		if sendErr := tghelpers.SendText(c, textUnavailable); sendErr != nil {
			return errors.Join(err, sendErr)
		}
		return err
	}
}

func categoryName(cats []catalog.Category, i int) string {
	if i < 0 || i >= len(cats) {
		return ""
	}
	return cats[i].Name
}

func categoryKeyboard(cats []catalog.Category) *tele.ReplyMarkup {
	labels := make([]string, len(cats))
	for i, cat := range cats {
		labels[i] = cat.Name
	}
	return keyboard.InlineButtons(keyboard.Indexed(cbCategory, labels))
}

func itemKeyboard(items []catalog.Product, currency string) *tele.ReplyMarkup {
	labels := make([]string, len(items))
	for j, p := range items {
		labels[j] = p.Name + " · " + orders.FormatAmount(p.Price, currency)
	}
	return keyboard.InlineButtons(keyboard.Indexed(cbItem, labels))
}

func productCard(p *catalog.Product, currency string) string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("*" + format.MD(p.Name) + "*\n")
	if d := strings.TrimSpace(p.Description); d != "" {
		b.WriteString(format.MD(d) + "\n")
	}
	b.WriteString("Price: " + format.MD(orders.FormatAmount(p.Price, currency)))
	return b.String()
}
