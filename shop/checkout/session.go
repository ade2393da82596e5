package checkout

import (
	"time"

	"github.com/surokacs/petertrain-bot/shop/catalog"
	"github.com/surokacs/petertrain-bot/shop/orders"
)

// Session is the in-progress purchase of one user. Fields are only set by
// transitions valid from the current state: Email after validation, OrderID
// once payment was requested.
type Session struct {
	State     State            `json:"state"`
	Category  *int             `json:"category,omitempty"`
	Product   *catalog.Product `json:"product,omitempty"`
	Email     string           `json:"email,omitempty"`
	OrderID   orders.ID        `json:"order_id,omitempty"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// NewSession returns a session in the initial state.
func NewSession() Session {
	return Session{State: StateIdle}
}

// IsFresh reports whether s carries no selection, email or order id.
func (s Session) IsFresh() bool {
	return s.Category == nil && s.Product == nil && s.Email == "" && s.OrderID == ""
}

// clone returns a deep copy so a failed event can discard its mutations.
func (s Session) clone() Session {
	out := s
	if s.Category != nil {
		c := *s.Category
		out.Category = &c
	}
	if s.Product != nil {
		p := *s.Product
		out.Product = &p
	}
	return out
}

// reset clears everything but the timestamp.
func (s *Session) reset() {
	*s = Session{State: StateIdle, UpdatedAt: s.UpdatedAt}
}
