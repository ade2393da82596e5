package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/surokacs/petertrain-bot/core/logger"
)

// SQLStore keeps orders in the "orders" table created by the embedded
// migrations. It works with both the postgres and sqlite drivers.
type SQLStore struct {
	db *sqlx.DB
}

// NewSQLStore wraps an open database handle.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

const insertOrderSQL = `INSERT INTO orders (order_id, user_id, email, item, price, currency, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (order_id) DO NOTHING`

const recentOrdersSQL = `SELECT order_id, user_id, email, item, price, currency, created_at
FROM (SELECT * FROM orders ORDER BY id DESC LIMIT ?) recent
ORDER BY id ASC`

const existsOrderSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE order_id = ?)`

// Append implements Store. A conflicting order id is not an error.
func (s *SQLStore) Append(ctx context.Context, o Order) (bool, error) {
	start := time.Now()
	res, err := s.db.ExecContext(ctx, s.db.Rebind(insertOrderSQL),
		string(o.ID), o.UserID, o.Email, o.Item, o.Price, o.Currency, o.CreatedAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("%w: insert order %s: %w", ErrStorage, o.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: insert order %s: %w", ErrStorage, o.ID, err)
	}
	logger.Debug(ctx, "orders", "order.insert",
		slog.String("order_id", string(o.ID)),
		slog.Bool("inserted", n > 0),
		slog.Duration("duration", time.Since(start)),
	)
	return n > 0, nil
}

// ListRecent implements Store.
func (s *SQLStore) ListRecent(ctx context.Context, n int) ([]Order, error) {
	out := []Order{}
	if n <= 0 {
		return out, nil
	}
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(recentOrdersSQL), n); err != nil {
		return nil, fmt.Errorf("%w: list orders: %w", ErrStorage, err)
	}
	return out, nil
}

// Exists implements Store.
func (s *SQLStore) Exists(ctx context.Context, id ID) (bool, error) {
	var ok bool
	err := s.db.GetContext(ctx, &ok, s.db.Rebind(existsOrderSQL), string(id))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("%w: lookup order %s: %w", ErrStorage, id, err)
	}
	return ok, nil
}

// Ping checks that the database answers; used by the health endpoint.
func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return nil
}
