// Package orders persists completed orders in an append-only store.
package orders

import (
	"context"
	"errors"
	"time"
)

// ErrStorage wraps every failure of an order store.
var ErrStorage = errors.New("orders: storage failure")

// ID identifies an order and doubles as the payment correlation id.
type ID string

// String implements fmt.Stringer.
func (id ID) String() string { return string(id) }

// Order is the durable record of one paid purchase. Orders are immutable once
// written. Price is the amount charged in minor currency units as reported by
// the payment completion event.
type Order struct {
	ID        ID        `json:"order_id" db:"order_id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Email     string    `json:"email" db:"email"`
	Item      string    `json:"item" db:"item"`
	Price     int64     `json:"price" db:"price"`
	Currency  string    `json:"currency" db:"currency"`
	CreatedAt time.Time `json:"time" db:"created_at"`
}

// Store is an append-only order log.
type Store interface {
	// Append adds o unless an order with the same id exists. It reports
	// whether a new record was written.
	Append(ctx context.Context, o Order) (bool, error)
	// ListRecent returns up to n most recent orders, oldest first. An empty
	// store yields an empty slice and no error.
	ListRecent(ctx context.Context, n int) ([]Order, error)
	// Exists reports whether an order with id was already recorded.
	Exists(ctx context.Context, id ID) (bool, error)
}
