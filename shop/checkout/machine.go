// Package checkout drives the per-user purchase conversation: category and
// item selection, e-mail capture and confirmation, payment request and order
// recording. Every event goes through one transition table and is serialised
// per user.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/surokacs/petertrain-bot/core/logger"
	"github.com/surokacs/petertrain-bot/shop/catalog"
	"github.com/surokacs/petertrain-bot/shop/orders"
	"github.com/surokacs/petertrain-bot/shop/payment"
)

const (
	component = "checkout"

	// DefaultStorageTimeout bounds catalog, session and order store calls.
	DefaultStorageTimeout = 5 * time.Second

	maxIDAttempts = 8
)

// Options wires the machine to its collaborators.
type Options struct {
	Catalog  catalog.Provider
	Orders   orders.Store
	Gateway  payment.Gateway
	Sessions SessionStore
	// Pending defaults to Sessions when it implements PendingStore.
	Pending PendingStore
	IDs     IDGenerator
	Hooks    []Hook
	// Currency is the ISO code used for invoices and for completions that do
	// not report one.
	Currency       string
	StorageTimeout time.Duration
	HookTimeout    time.Duration
	Now            func() time.Time
}

// Result describes the outcome of an event for rendering the next prompt.
type Result struct {
	Session    Session
	Categories []catalog.Category
	Items      []catalog.Product
	// Order is set by PaymentCompleted; Recorded is false when the order had
	// already been stored by an earlier delivery of the same completion.
	Order    *orders.Order
	Recorded bool
}

// Machine is the conversation state machine.
type Machine struct {
	opts  Options
	locks *keyedMutex
}

// NewMachine validates opts and fills defaults.
func NewMachine(opts Options) (*Machine, error) {
	switch {
	case opts.Catalog == nil:
		return nil, errors.New("checkout: catalog provider is required")
	case opts.Orders == nil:
		return nil, errors.New("checkout: order store is required")
	case opts.Gateway == nil:
		return nil, errors.New("checkout: payment gateway is required")
	}
	if opts.Sessions == nil {
		opts.Sessions = NewMemoryStore(DefaultIdleTTL)
	}
	if opts.Pending == nil {
		if ps, ok := opts.Sessions.(PendingStore); ok {
			opts.Pending = ps
		} else {
			opts.Pending = NewMemoryStore(DefaultIdleTTL)
		}
	}
	if opts.IDs == nil {
		opts.IDs = NumericIDs{}
	}
	if opts.Currency == "" {
		opts.Currency = "RUB"
	}
	if opts.StorageTimeout <= 0 {
		opts.StorageTimeout = DefaultStorageTimeout
	}
	if opts.HookTimeout <= 0 {
		opts.HookTimeout = DefaultHookTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Machine{opts: opts, locks: newKeyedMutex()}, nil
}

// Session returns the current session of userID without changing it.
func (m *Machine) Session(ctx context.Context, userID int64) (Session, error) {
	return m.load(ctx, userID)
}

// Start begins a fresh selection cycle from any state and returns the
// categories to choose from.
func (m *Machine) Start(ctx context.Context, userID int64) (Result, error) {
	return m.dispatch(ctx, userID, EventStart, func(ctx context.Context, s *Session, res *Result) error {
		cat, err := m.catalog(ctx)
		if err != nil {
			return err
		}
		*s = NewSession()
		res.Categories = cat.Categories
		return nil
	})
}

// ChooseCategory selects category i and returns its items.
func (m *Machine) ChooseCategory(ctx context.Context, userID int64, i int) (Result, error) {
	return m.dispatch(ctx, userID, EventChooseCategory, func(ctx context.Context, s *Session, res *Result) error {
		cat, err := m.catalog(ctx)
		if err != nil {
			return err
		}
		category, ok := cat.Category(i)
		if !ok {
			return validationf("category %d does not exist", i)
		}
		s.Category = &i
		res.Categories = cat.Categories
		res.Items = category.Items
		return nil
	})
}

// ChooseProduct snapshots item j of the selected category.
func (m *Machine) ChooseProduct(ctx context.Context, userID int64, j int) (Result, error) {
	return m.dispatch(ctx, userID, EventChooseProduct, func(ctx context.Context, s *Session, _ *Result) error {
		if s.Category == nil {
			return validationf("no category selected")
		}
		cat, err := m.catalog(ctx)
		if err != nil {
			return err
		}
		category, ok := cat.Category(*s.Category)
		if !ok {
			return validationf("category %d no longer exists", *s.Category)
		}
		p, ok := category.Item(j)
		if !ok {
			return validationf("item %d does not exist in category %d", j, *s.Category)
		}
		s.Product = &p
		return nil
	})
}

// SubmitEmail stores a syntactically valid address for confirmation.
func (m *Machine) SubmitEmail(ctx context.Context, userID int64, text string) (Result, error) {
	return m.dispatch(ctx, userID, EventSubmitEmail, func(_ context.Context, s *Session, _ *Result) error {
		addr, ok := NormalizeEmail(text)
		if !ok {
			return validationf("malformed email")
		}
		s.Email = addr
		return nil
	})
}

// EditEmail discards the entered address.
func (m *Machine) EditEmail(ctx context.Context, userID int64) (Result, error) {
	return m.dispatch(ctx, userID, EventEditEmail, func(_ context.Context, s *Session, _ *Result) error {
		s.Email = ""
		return nil
	})
}

// ConfirmEmail assigns a new order id, records it as pending and asks the
// gateway for payment. The pending order is kept when the gateway fails: a
// timed out invoice may still reach the user and be paid.
func (m *Machine) ConfirmEmail(ctx context.Context, userID int64) (Result, error) {
	return m.dispatch(ctx, userID, EventConfirmEmail, func(ctx context.Context, s *Session, _ *Result) error {
		if s.Product == nil || s.Email == "" {
			return validationf("product and email are required")
		}
		id, err := m.newOrderID(ctx, s.OrderID)
		if err != nil {
			return err
		}
		sctx, cancel := m.storageContext(ctx)
		err = m.opts.Pending.PutPending(sctx, PendingOrder{
			ID:          id,
			UserID:      userID,
			Email:       s.Email,
			Item:        s.Product.Name,
			Price:       s.Product.Price,
			Currency:    m.opts.Currency,
			RequestedAt: m.opts.Now().UTC(),
		})
		cancel()
		if err != nil {
			return storageError("save pending order", err)
		}
		start := time.Now()
		err = m.opts.Gateway.RequestPayment(ctx, payment.Request{
			UserID:        userID,
			CorrelationID: id,
			Title:         s.Product.Name,
			Description:   s.Product.Description,
			Amount:        s.Product.Price,
			Currency:      m.opts.Currency,
		})
		logger.Info(ctx, component, "payment.request",
			slog.String("order_id", id.String()),
			slog.Int64("amount", s.Product.Price),
			slog.String("currency", m.opts.Currency),
			slog.String("status", logger.Status(err)),
			slog.Duration("duration", logger.Took(start)),
		)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrGateway, err)
		}
		s.OrderID = id
		return nil
	})
}

// PreCheckout answers the provider's final validation before the charge. It
// always approves: price and availability are not re-checked. A correlation
// id that neither the session nor a pending order knows is logged.
func (m *Machine) PreCheckout(ctx context.Context, userID int64, correlationID orders.ID) bool {
	s, err := m.load(ctx, userID)
	if err != nil {
		logger.Warn(ctx, component, "precheckout.session", slog.String("err", err.Error()))
		return true
	}
	if s.State == StateAwaitingPayment && s.OrderID == correlationID {
		return true
	}
	sctx, cancel := m.storageContext(ctx)
	pend, ok, err := m.opts.Pending.Pending(sctx, correlationID)
	cancel()
	if err == nil && ok && pend.UserID == userID {
		logger.Info(ctx, component, "precheckout.detached",
			slog.String("order_id", correlationID.String()),
			slog.String("state", s.State.String()),
		)
		return true
	}
	logger.Warn(ctx, component, "precheckout.mismatch",
		slog.String("order_id", correlationID.String()),
		slog.String("pending_order_id", s.OrderID.String()),
		slog.String("state", s.State.String()),
	)
	return true
}

// PaymentCompleted records the order for a paid invoice exactly once and
// then runs the post-commit hooks. The user's session is reset when it was
// waiting for this payment. A payment the session does not expect (expired
// session, newer invoice, timed out request) is recorded from its pending
// order. If the order cannot be stored the session keeps waiting for payment
// so a redelivery can retry.
func (m *Machine) PaymentCompleted(ctx context.Context, userID int64, p payment.Payment) (Result, error) {
	res, err := m.dispatch(ctx, userID, EventPaymentCompleted, func(ctx context.Context, s *Session, res *Result) error {
		if s.Product == nil || s.Email == "" || s.OrderID == "" {
			return fmt.Errorf("%w: pending order is incomplete", ErrState)
		}
		if p.CorrelationID != s.OrderID {
			return fmt.Errorf("%w: payment for %s while %s is pending", ErrState, p.CorrelationID, s.OrderID)
		}
		o, err := m.record(ctx, userID, s.Email, s.Product.Name, "", p)
		if err != nil {
			return err
		}
		res.Order = &o.order
		res.Recorded = o.recorded
		s.reset()
		return nil
	})
	if errors.Is(err, ErrState) {
		return m.completeDetached(ctx, userID, p, err)
	}
	if err != nil {
		return res, err
	}
	m.committed(ctx, res.Order, res.Recorded)
	return res, nil
}

// completeDetached records a payment from its pending order without touching
// the session. Without a pending order of this user the payment is either a
// redelivery or an orphan; both are logged and reported as stateErr.
func (m *Machine) completeDetached(ctx context.Context, userID int64, p payment.Payment, stateErr error) (Result, error) {
	unlock, err := m.locks.Lock(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("checkout: wait for session: %w", err)
	}
	defer unlock()

	cur, err := m.load(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	res := Result{Session: cur}

	sctx, cancel := m.storageContext(ctx)
	pend, ok, err := m.opts.Pending.Pending(sctx, p.CorrelationID)
	cancel()
	if err != nil {
		logger.Error(ctx, component, "payment.pending_lookup",
			slog.String("order_id", p.CorrelationID.String()),
			slog.String("err", err.Error()),
		)
		return res, storageError("load pending order", err)
	}
	if !ok || pend.UserID != userID {
		m.unmatchedPayment(ctx, userID, p)
		return res, stateErr
	}

	o, err := m.record(ctx, userID, pend.Email, pend.Item, pend.Currency, p)
	if err != nil {
		return res, err
	}
	if !o.recorded {
		logger.Info(ctx, component, "payment.duplicate", slog.String("order_id", p.CorrelationID.String()))
		m.dropPending(ctx, p.CorrelationID)
		return res, stateErr
	}
	logger.Warn(ctx, component, "payment.detached",
		slog.String("order_id", o.order.ID.String()),
		slog.String("state", cur.State.String()),
		slog.String("session_order_id", cur.OrderID.String()),
	)
	res.Order = &o.order
	res.Recorded = true
	m.committed(ctx, res.Order, true)
	return res, nil
}

type recordedOrder struct {
	order    orders.Order
	recorded bool
}

// record appends the order for p. An append failure is logged with the full
// order for manual reconciliation.
func (m *Machine) record(ctx context.Context, userID int64, email, item, currency string, p payment.Payment) (recordedOrder, error) {
	if p.Currency != "" {
		currency = p.Currency
	}
	if currency == "" {
		currency = m.opts.Currency
	}
	o := orders.Order{
		ID:        p.CorrelationID,
		UserID:    userID,
		Email:     email,
		Item:      item,
		Price:     p.Amount,
		Currency:  currency,
		CreatedAt: m.opts.Now().UTC(),
	}
	sctx, cancel := m.storageContext(ctx)
	recorded, err := m.opts.Orders.Append(sctx, o)
	cancel()
	if err != nil {
		ordersTotal.WithLabelValues("failed").Inc()
		logger.Error(ctx, component, "order.reconcile",
			slog.String("order_id", o.ID.String()),
			slog.Int64("user_id", o.UserID),
			slog.String("email", o.Email),
			slog.String("item", o.Item),
			slog.Int64("price", o.Price),
			slog.String("currency", o.Currency),
			slog.Time("time", o.CreatedAt),
			slog.String("provider_charge_id", p.ProviderChargeID),
			slog.String("err", err.Error()),
		)
		return recordedOrder{}, storageError("append order", err)
	}
	if recorded {
		ordersTotal.WithLabelValues("recorded").Inc()
	} else {
		ordersTotal.WithLabelValues("duplicate").Inc()
	}
	return recordedOrder{order: o, recorded: recorded}, nil
}

// committed runs after an order is durable: the pending record is dropped
// and, for a first delivery, the hooks run.
func (m *Machine) committed(ctx context.Context, o *orders.Order, recorded bool) {
	m.dropPending(ctx, o.ID)
	if !recorded {
		return
	}
	logger.Info(ctx, component, "order.created",
		slog.String("order_id", o.ID.String()),
		slog.String("item", o.Item),
		slog.Int64("price", o.Price),
		slog.String("currency", o.Currency),
		slog.String("email", logger.MaskEmail(o.Email)),
	)
	runHooks(ctx, m.opts.Hooks, *o, m.opts.HookTimeout)
}

func (m *Machine) dropPending(ctx context.Context, id orders.ID) {
	sctx, cancel := m.storageContext(ctx)
	defer cancel()
	if err := m.opts.Pending.DeletePending(sctx, id); err != nil {
		logger.Warn(ctx, component, "pending.delete",
			slog.String("order_id", id.String()),
			slog.String("err", err.Error()),
		)
	}
}

// unmatchedPayment logs a completion that no pending session accepted. A
// known order id is a redelivery; anything else was charged without an order.
func (m *Machine) unmatchedPayment(ctx context.Context, userID int64, p payment.Payment) {
	attrs := []slog.Attr{
		slog.String("order_id", p.CorrelationID.String()),
		slog.Int64("amount", p.Amount),
		slog.String("currency", p.Currency),
		slog.String("provider_charge_id", p.ProviderChargeID),
	}
	sctx, cancel := m.storageContext(ctx)
	exists, err := m.opts.Orders.Exists(sctx, p.CorrelationID)
	cancel()
	if err == nil && exists {
		ordersTotal.WithLabelValues("duplicate").Inc()
		logger.Info(ctx, component, "payment.duplicate", attrs...)
		return
	}
	logger.Error(ctx, component, "payment.orphan", append(attrs, slog.Int64("user_id", userID))...)
}

// Cancel abandons the current purchase.
func (m *Machine) Cancel(ctx context.Context, userID int64) (Result, error) {
	return m.dispatch(ctx, userID, EventCancel, func(_ context.Context, s *Session, _ *Result) error {
		s.reset()
		return nil
	})
}

// dispatch applies ev to the session of userID under the per-user lock. fn
// mutates a copy of the session; the copy is persisted only when fn succeeds
// and the transition table accepts ev.
func (m *Machine) dispatch(ctx context.Context, userID int64, ev Event, fn func(context.Context, *Session, *Result) error) (res Result, err error) {
	start := time.Now()
	var from, to State
	defer func() {
		m.observe(ctx, ev, from, to, start, err)
	}()

	unlock, err := m.locks.Lock(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("checkout: wait for session: %w", err)
	}
	defer unlock()

	cur, err := m.load(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	from, to = cur.State, cur.State
	res.Session = cur

	target, ok := Next(cur.State, ev)
	if !ok {
		return res, stateError(cur.State, ev)
	}

	next := cur.clone()
	if err := fn(ctx, &next, &res); err != nil {
		res.Session = cur
		return res, err
	}
	next.State = target
	next.UpdatedAt = m.opts.Now().UTC()
	if target == StateIdle {
		next = Session{State: StateIdle, UpdatedAt: next.UpdatedAt}
	}

	if serr := m.save(ctx, userID, next); serr != nil {
		if res.Order != nil {
			// The order is committed. A stale session only leads to a
			// duplicate completion, which Append absorbs.
			logger.Error(ctx, component, "session.save", slog.String("err", serr.Error()))
		} else {
			res.Session = cur
			return res, serr
		}
	}
	to = target
	res.Session = next
	return res, nil
}

func (m *Machine) observe(ctx context.Context, ev Event, from, to State, start time.Time, err error) {
	kind := Kind(err)
	eventsTotal.WithLabelValues(ev.String(), kind).Inc()
	attrs := []slog.Attr{
		slog.String("event_name", ev.String()),
		slog.String("from_state", from.String()),
		slog.String("to_state", to.String()),
		slog.String("status", logger.Status(err)),
		slog.Duration("duration", logger.Took(start)),
	}
	switch kind {
	case "ok":
		logger.Info(ctx, component, "checkout.transition", attrs...)
	case "validation", "state":
		logger.Info(ctx, component, "checkout.rejected",
			append(attrs, slog.String("outcome", "rejected"), slog.String("err_code", kind), slog.String("err", err.Error()))...)
	default:
		logger.Warn(ctx, component, "checkout.fail",
			append(attrs, slog.String("err_code", kind), slog.String("err", err.Error()))...)
	}
}

func (m *Machine) storageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.opts.StorageTimeout)
}

func (m *Machine) catalog(ctx context.Context) (catalog.Catalog, error) {
	ctx, cancel := m.storageContext(ctx)
	defer cancel()
	cat, err := m.opts.Catalog.Catalog(ctx)
	if err != nil {
		return catalog.Catalog{}, storageError("load catalog", err)
	}
	return cat, nil
}

func (m *Machine) load(ctx context.Context, userID int64) (Session, error) {
	ctx, cancel := m.storageContext(ctx)
	defer cancel()
	s, ok, err := m.opts.Sessions.Get(ctx, userID)
	if err != nil {
		return Session{}, storageError("load session", err)
	}
	if !ok {
		return NewSession(), nil
	}
	return s, nil
}

func (m *Machine) save(ctx context.Context, userID int64, s Session) error {
	ctx, cancel := m.storageContext(ctx)
	defer cancel()
	var err error
	if s.State == StateIdle {
		err = m.opts.Sessions.Delete(ctx, userID)
	} else {
		err = m.opts.Sessions.Put(ctx, userID, s)
	}
	if err != nil {
		return storageError("save session", err)
	}
	return nil
}

// newOrderID draws ids until one differs from prev and is not already used
// by a stored order.
func (m *Machine) newOrderID(ctx context.Context, prev orders.ID) (orders.ID, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := m.opts.IDs.NewID()
		if id == "" || id == prev {
			continue
		}
		taken, err := m.idTaken(ctx, id)
		if err != nil {
			return "", storageError("check order id", err)
		}
		if !taken {
			return id, nil
		}
		logger.Warn(ctx, component, "order_id.collision", slog.String("order_id", id.String()))
	}
	return "", storageError("generate order id", fmt.Errorf("no unused id after %d attempts", maxIDAttempts))
}

// idTaken reports whether id belongs to a stored order or to an invoice that
// may still be paid.
func (m *Machine) idTaken(ctx context.Context, id orders.ID) (bool, error) {
	sctx, cancel := m.storageContext(ctx)
	defer cancel()
	if taken, err := m.opts.Orders.Exists(sctx, id); err != nil || taken {
		return taken, err
	}
	_, pending, err := m.opts.Pending.Pending(sctx, id)
	return pending, err
}
