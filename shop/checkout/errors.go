package checkout

import (
	"errors"
	"fmt"
)

// Error kinds. Concrete errors wrap one of them; match with errors.Is.
var (
	// ErrValidation reports bad user input: an unknown index or a malformed
	// address. The session is left untouched.
	ErrValidation = errors.New("checkout: invalid input")
	// ErrState reports an event that the current state does not accept.
	ErrState = errors.New("checkout: event not allowed in current state")
	// ErrStorage reports an unavailable catalog or order store. Store
	// failures additionally keep matching orders.ErrStorage.
	ErrStorage = errors.New("checkout: storage unavailable")
	// ErrGateway reports a failed payment request.
	ErrGateway = errors.New("checkout: payment gateway failure")
	// ErrForbidden reports an identity outside the operator allow-list.
	ErrForbidden = errors.New("checkout: forbidden")
	// ErrNotification reports a failed receipt delivery. It is only logged.
	ErrNotification = errors.New("checkout: notification failure")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func stateError(s State, ev Event) error {
	return fmt.Errorf("%w: %s in %s", ErrState, ev, s)
}

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// Kind returns a short label for err suitable for logs and metrics.
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrState):
		return "state"
	case errors.Is(err, ErrStorage):
		return "storage"
	case errors.Is(err, ErrGateway):
		return "gateway"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotification):
		return "notification"
	default:
		return "internal"
	}
}
