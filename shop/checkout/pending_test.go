package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surokacs/petertrain-bot/shop/orders"
	"github.com/surokacs/petertrain-bot/shop/payment"
)

func TestPaymentAfterSessionExpiryIsRecorded(t *testing.T) {
	var hookCalls atomic.Int32
	f := newFixture(t, ticketCatalog(), func(o *Options) {
		o.Hooks = []Hook{NewHook("count", func(context.Context, orders.Order) error {
			hookCalls.Add(1)
			return nil
		})}
	})
	now := fixedNow
	f.sessions.ttl = 30 * time.Minute
	f.sessions.now = func() time.Time { return now }
	ctx := context.Background()
	f.walk(t, "x@y.com")

	now = now.Add(31 * time.Minute)
	require.Equal(t, NewSession(), f.session(t))
	assert.True(t, f.m.PreCheckout(ctx, user, "482193"))

	res, err := f.m.PaymentCompleted(ctx, user, payment.Payment{CorrelationID: "482193", Amount: 50000, Currency: "RUB"})
	require.NoError(t, err)
	assert.True(t, res.Recorded)
	require.NotNil(t, res.Order)
	want := orders.Order{ID: "482193", UserID: user, Email: "x@y.com", Item: "Ticket", Price: 50000, Currency: "RUB", CreatedAt: fixedNow}
	assert.Equal(t, []orders.Order{want}, f.orders.all())
	assert.Equal(t, int32(1), hookCalls.Load())
	assert.Equal(t, StateIdle, f.session(t).State)

	_, err = f.m.PaymentCompleted(ctx, user, payment.Payment{CorrelationID: "482193", Amount: 50000, Currency: "RUB"})
	assert.ErrorIs(t, err, ErrState)
	assert.Len(t, f.orders.all(), 1)
	assert.Equal(t, int32(1), hookCalls.Load())
}

func TestPaymentAfterGatewayTimeoutIsRecorded(t *testing.T) {
	f := newFixture(t, ticketCatalog())
	f.gateway.err = fmt.Errorf("payment: send invoice: %w", context.DeadlineExceeded)
	f.walkToConfirm(t)
	ctx := context.Background()

	_, err := f.m.ConfirmEmail(ctx, user)
	require.ErrorIs(t, err, ErrGateway)
	before := f.session(t)
	require.Empty(t, before.OrderID)

	// The invoice reached the user anyway.
	res, err := f.m.PaymentCompleted(ctx, user, payment.Payment{CorrelationID: "482193", Amount: 50000})
	require.NoError(t, err)
	assert.True(t, res.Recorded)
	assert.Equal(t, "x@y.com", res.Order.Email)
	assert.Equal(t, "RUB", res.Order.Currency)
	assert.Equal(t, before, f.session(t))
	assert.Len(t, f.orders.all(), 1)
}

func TestPaymentForEarlierInvoiceKeepsNewerOne(t *testing.T) {
	f := newFixture(t, ticketCatalog(), func(o *Options) {
		o.IDs = sequenceIDs("111111", "222222")
	})
	ctx := context.Background()
	f.walk(t, "first@y.com")
	f.walk(t, "second@y.com")
	require.Equal(t, orders.ID("222222"), f.session(t).OrderID)

	res, err := f.m.PaymentCompleted(ctx, user, payment.Payment{CorrelationID: "111111", Amount: 50000})
	require.NoError(t, err)
	assert.Equal(t, "first@y.com", res.Order.Email)

	s := f.session(t)
	assert.Equal(t, StateAwaitingPayment, s.State)
	assert.Equal(t, orders.ID("222222"), s.OrderID)

	res, err = f.m.PaymentCompleted(ctx, user, payment.Payment{CorrelationID: "222222", Amount: 50000})
	require.NoError(t, err)
	assert.Equal(t, "second@y.com", res.Order.Email)
	assert.Len(t, f.orders.all(), 2)
	assert.Equal(t, StateIdle, f.session(t).State)
}

func TestPendingOrderOfAnotherUserIsNotRedeemed(t *testing.T) {
	f := newFixture(t, ticketCatalog())
	f.walk(t, "x@y.com")

	_, err := f.m.PaymentCompleted(context.Background(), user+1, payment.Payment{CorrelationID: "482193", Amount: 50000})
	require.ErrorIs(t, err, ErrState)
	assert.Empty(t, f.orders.all())

	// The rightful owner can still pay.
	_, err = f.m.PaymentCompleted(context.Background(), user, payment.Payment{CorrelationID: "482193", Amount: 50000})
	require.NoError(t, err)
	assert.Len(t, f.orders.all(), 1)
}

func TestConfirmEmailSkipsIDsOfPendingInvoices(t *testing.T) {
	f := newFixture(t, ticketCatalog(), func(o *Options) {
		o.IDs = sequenceIDs("111111", "222222")
	})
	ctx := context.Background()
	require.NoError(t, f.sessions.PutPending(ctx, PendingOrder{ID: "111111", UserID: 99, Item: "Ticket", Price: 50000}))
	f.walkToConfirm(t)

	res, err := f.m.ConfirmEmail(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, orders.ID("222222"), res.Session.OrderID)
}

type brokenPending struct{}

func (brokenPending) PutPending(context.Context, PendingOrder) error {
	return errors.New("dial tcp 127.0.0.1:6379: connection refused")
}

func (brokenPending) Pending(context.Context, orders.ID) (PendingOrder, bool, error) {
	return PendingOrder{}, false, nil
}

func (brokenPending) DeletePending(context.Context, orders.ID) error { return nil }

func TestConfirmEmailNeedsPendingRecord(t *testing.T) {
	f := newFixture(t, ticketCatalog(), func(o *Options) { o.Pending = brokenPending{} })
	f.walkToConfirm(t)

	_, err := f.m.ConfirmEmail(context.Background(), user)
	require.ErrorIs(t, err, ErrStorage)
	assert.Empty(t, f.gateway.requests())
	assert.Equal(t, StateConfirmingEmail, f.session(t).State)
}

func TestMachineUsesSessionStoreForPendingOrders(t *testing.T) {
	f := newFixture(t, ticketCatalog())
	f.walk(t, "x@y.com")

	p, ok, err := f.sessions.Pending(context.Background(), "482193")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, PendingOrder{
		ID:          "482193",
		UserID:      user,
		Email:       "x@y.com",
		Item:        "Ticket",
		Price:       50000,
		Currency:    "RUB",
		RequestedAt: fixedNow,
	}, p)

	_, err = f.m.PaymentCompleted(context.Background(), user, payment.Payment{CorrelationID: "482193", Amount: 50000})
	require.NoError(t, err)
	_, ok, err = f.sessions.Pending(context.Background(), "482193")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStorePendingOutlivesSessions(t *testing.T) {
	now := fixedNow
	m := NewMemoryStore(time.Minute)
	m.now = func() time.Time { return now }
	ctx := context.Background()
	require.NoError(t, m.Put(ctx, 1, Session{State: StateAwaitingPayment, OrderID: "482193"}))
	require.NoError(t, m.PutPending(ctx, PendingOrder{ID: "482193", UserID: 1}))

	now = now.Add(time.Hour)
	assert.Equal(t, 1, m.Sweep())
	_, ok, err := m.Pending(ctx, "482193")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(DefaultPendingTTL)
	m.Sweep()
	_, ok, err = m.Pending(ctx, "482193")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, m.pending)
}

func TestRedisStorePendingRoundTrip(t *testing.T) {
	rdb := newFakeRedis()
	store := NewRedisStore(rdb, 15*time.Minute)
	ctx := context.Background()
	in := PendingOrder{ID: "482193", UserID: 42, Email: "x@y.com", Item: "VIP", Price: 150000, Currency: "RUB", RequestedAt: fixedNow}

	require.NoError(t, store.PutPending(ctx, in))
	assert.Equal(t, DefaultPendingTTL, rdb.lastTTL)
	assert.Contains(t, rdb.data, "petertrain:pending:482193")

	out, ok, err := store.Pending(ctx, "482193")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, in, out)

	require.NoError(t, store.DeletePending(ctx, "482193"))
	_, ok, err = store.Pending(ctx, "482193")
	require.NoError(t, err)
	assert.False(t, ok)

	rdb.data["petertrain:pending:1"] = "{broken"
	_, _, err = store.Pending(ctx, "1")
	assert.Error(t, err)
}
