package checkout

// State is a step of the purchase conversation.
type State string

const (
	StateIdle             State = "idle"
	StateAwaitingCategory State = "awaiting_category"
	StateAwaitingProduct  State = "awaiting_product"
	StateAwaitingEmail    State = "awaiting_email"
	StateConfirmingEmail  State = "confirming_email"
	StateAwaitingPayment  State = "awaiting_payment"
)

// String implements fmt.Stringer.
func (s State) String() string { return string(s) }

// Event is an inbound conversation action.
type Event string

const (
	EventStart            Event = "start"
	EventChooseCategory   Event = "choose_category"
	EventChooseProduct    Event = "choose_product"
	EventSubmitEmail      Event = "submit_email"
	EventEditEmail        Event = "edit_email"
	EventConfirmEmail     Event = "confirm_email"
	EventPaymentCompleted Event = "payment_completed"
	EventCancel           Event = "cancel"
)

// String implements fmt.Stringer.
func (e Event) String() string { return string(e) }

var allStates = []State{
	StateIdle,
	StateAwaitingCategory,
	StateAwaitingProduct,
	StateAwaitingEmail,
	StateConfirmingEmail,
	StateAwaitingPayment,
}

// transitions is the complete state × event table. A missing entry means the
// event is not accepted in that state.
var transitions = buildTransitions()

func buildTransitions() map[State]map[Event]State {
	t := map[State]map[Event]State{
		StateAwaitingCategory: {
			EventChooseCategory: StateAwaitingProduct,
		},
		StateAwaitingProduct: {
			EventChooseCategory: StateAwaitingProduct,
			EventChooseProduct:  StateAwaitingEmail,
		},
		StateAwaitingEmail: {
			EventSubmitEmail: StateConfirmingEmail,
		},
		StateConfirmingEmail: {
			EventSubmitEmail:  StateConfirmingEmail,
			EventEditEmail:    StateAwaitingEmail,
			EventConfirmEmail: StateAwaitingPayment,
		},
		StateAwaitingPayment: {
			EventPaymentCompleted: StateIdle,
		},
	}
	for _, s := range allStates {
		if t[s] == nil {
			t[s] = map[Event]State{}
		}
		t[s][EventStart] = StateAwaitingCategory
		if s != StateIdle {
			t[s][EventCancel] = StateIdle
		}
	}
	return t
}

// Next returns the state reached by applying ev in from, and false when the
// event is not accepted there.
func Next(from State, ev Event) (State, bool) {
	to, ok := transitions[from][ev]
	return to, ok
}

// Accepts reports whether ev has a transition out of s.
func (s State) Accepts(ev Event) bool {
	_, ok := Next(s, ev)
	return ok
}

// WantsText reports whether free text typed by the user is meaningful in s.
func (s State) WantsText() bool {
	return s.Accepts(EventSubmitEmail)
}
