package admin

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surokacs/petertrain-bot/shop/checkout"
	"github.com/surokacs/petertrain-bot/shop/orders"
)

type spyStore struct {
	orders.Store
	calls int
	err   error
	list  []orders.Order
}

func (s *spyStore) ListRecent(_ context.Context, n int) ([]orders.Order, error) {
	s.calls++
	if s.err != nil {
		return nil, fmt.Errorf("%w: %w", orders.ErrStorage, s.err)
	}
	if n > len(s.list) {
		n = len(s.list)
	}
	return s.list[len(s.list)-n:], nil
}

func admins(ids ...int64) func(int64) bool {
	return func(id int64) bool {
		for _, a := range ids {
			if a == id {
				return true
			}
		}
		return false
	}
}

func order(id string) orders.Order {
	return orders.Order{
		ID:        orders.ID(id),
		Email:     "x@y.com",
		Item:      "Ticket",
		Price:     50000,
		Currency:  "RUB",
		CreatedAt: time.Date(2024, 5, 17, 12, 30, 5, 0, time.UTC),
	}
}

func TestSummaryFormat(t *testing.T) {
	want := "📦 Order #482193\n" +
		"📧 Email: x@y.com\n" +
		"🎟 Item: Ticket\n" +
		"💰 Amount: 500.00 RUB\n" +
		"🕒 Time: 2024-05-17 12:30:05"
	assert.Equal(t, want, Summary(order("482193")))
}

func TestRecentDeniesUnlistedIdentity(t *testing.T) {
	store := &spyStore{list: []orders.Order{order("1"), order("2")}}
	r := NewReporter(Options{Orders: store, IsAdmin: admins(1371340477, 812859554)})

	got, err := r.Recent(context.Background(), 999)
	require.ErrorIs(t, err, checkout.ErrForbidden)
	assert.Empty(t, got)
	assert.Zero(t, store.calls)
}

func TestRecentDeniesWithoutAllowList(t *testing.T) {
	store := &spyStore{list: []orders.Order{order("1")}}
	got, err := NewReporter(Options{Orders: store}).Recent(context.Background(), 1)
	require.ErrorIs(t, err, checkout.ErrForbidden)
	assert.Empty(t, got)
	assert.Zero(t, store.calls)
}

func TestRecentFailsClosedOnStoreError(t *testing.T) {
	store := &spyStore{err: errors.New("disk I/O error")}
	got, err := NewReporter(Options{Orders: store, IsAdmin: admins(1)}).Recent(context.Background(), 1)
	require.ErrorIs(t, err, checkout.ErrStorage)
	assert.ErrorIs(t, err, orders.ErrStorage)
	assert.Nil(t, got)
}

func TestRecentLimitsAndKeepsOrder(t *testing.T) {
	store := &spyStore{}
	for i := 1; i <= 12; i++ {
		store.list = append(store.list, order(fmt.Sprintf("%06d", i)))
	}
	got, err := NewReporter(Options{Orders: store, IsAdmin: admins(1)}).Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, got, DefaultLimit)
	assert.Contains(t, got[0], "Order #000003")
	assert.Contains(t, got[9], "Order #000012")
}

func TestRecentOnFreshFileStore(t *testing.T) {
	store := orders.NewFileStore(filepath.Join(t.TempDir(), "orders.json"))
	got, err := NewReporter(Options{Orders: store, IsAdmin: admins(1), Limit: 3}).Recent(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, got)
}
