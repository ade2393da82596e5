package checkout

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/surokacs/petertrain-bot/shop/orders"
)

// IDGenerator produces candidate order ids. Uniqueness against the store is
// checked by the Machine.
type IDGenerator interface {
	NewID() orders.ID
}

// IDFunc adapts a function to IDGenerator.
type IDFunc func() orders.ID

// NewID implements IDGenerator.
func (f IDFunc) NewID() orders.ID { return f() }

const (
	numericMin = 100000
	numericMax = 999999
)

// NumericIDs draws six-digit ids uniformly from 100000..999999.
type NumericIDs struct{}

// NewID implements IDGenerator.
func (NumericIDs) NewID() orders.ID {
	n := numericMin + rand.IntN(numericMax-numericMin+1)
	return orders.ID(strconv.Itoa(n))
}

// UUIDs draws random v4 UUIDs.
type UUIDs struct{}

// NewID implements IDGenerator.
func (UUIDs) NewID() orders.ID {
	return orders.ID(uuid.NewString())
}

// NewIDGenerator returns the generator for scheme: "numeric" (default) or "uuid".
func NewIDGenerator(scheme string) (IDGenerator, error) {
	switch strings.ToLower(strings.TrimSpace(scheme)) {
	case "", "numeric":
		return NumericIDs{}, nil
	case "uuid":
		return UUIDs{}, nil
	default:
		return nil, fmt.Errorf("checkout: unknown id scheme %q", scheme)
	}
}
