package bootstrap

import "context"

// Check verifies a dependency before the bot starts accepting updates,
// e.g. that the catalog file loads or Redis answers PING.
type Check interface {
	Check(ctx context.Context) error
}

// CheckFunc adapts a bare function to the Check interface.
type CheckFunc func(ctx context.Context) error

// Check executes the underlying function.
func (f CheckFunc) Check(ctx context.Context) error {
	return f(ctx)
}
