package orders

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLStore(sqlx.NewDb(db, "postgres")), mock
}

func sampleOrder() Order {
	return Order{
		ID:        "482193",
		UserID:    7,
		Email:     "x@y.com",
		Item:      "Ticket",
		Price:     500,
		Currency:  "RUB",
		CreatedAt: time.Date(2026, 10, 15, 12, 30, 0, 0, time.UTC),
	}
}

func TestSQLStoreAppendInserts(t *testing.T) {
	store, mock := newMockStore(t)
	o := sampleOrder()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO orders (order_id, user_id, email, item, price, currency, created_at)")).
		WithArgs("482193", int64(7), "x@y.com", "Ticket", int64(500), "RUB", o.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	inserted, err := store.Append(context.Background(), o)
	require.NoError(t, err)
	assert.True(t, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreAppendDuplicateIsNotAnError(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("ON CONFLICT \\(order_id\\) DO NOTHING").
		WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := store.Append(context.Background(), sampleOrder())
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestSQLStoreAppendFailureWrapsStorageError(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO orders").WillReturnError(errors.New("disk full"))

	_, err := store.Append(context.Background(), sampleOrder())
	assert.ErrorIs(t, err, ErrStorage)
}

func TestSQLStoreListRecentUsesRebind(t *testing.T) {
	store, mock := newMockStore(t)
	o := sampleOrder()
	rows := sqlmock.NewRows([]string{"order_id", "user_id", "email", "item", "price", "currency", "created_at"}).
		AddRow("100001", 1, "a@b.c", "Ticket", 500, "RUB", o.CreatedAt).
		AddRow("482193", 7, "x@y.com", "VIP", 1500, "RUB", o.CreatedAt)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY id DESC LIMIT $1")).WithArgs(10).WillReturnRows(rows)

	got, err := store.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ID("100001"), got[0].ID)
	assert.Equal(t, "VIP", got[1].Item)
}

func TestSQLStoreListRecentEmpty(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT order_id").WillReturnRows(
		sqlmock.NewRows([]string{"order_id", "user_id", "email", "item", "price", "currency", "created_at"}),
	)

	got, err := store.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSQLStoreListRecentError(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT order_id").WillReturnError(errors.New("connection reset"))

	got, err := store.ListRecent(context.Background(), 10)
	assert.ErrorIs(t, err, ErrStorage)
	assert.Nil(t, got)
}

func TestSQLStoreExists(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM orders WHERE order_id = $1)")).
		WithArgs("482193").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := store.Exists(context.Background(), "482193")
	require.NoError(t, err)
	assert.True(t, ok)
}
