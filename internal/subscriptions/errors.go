package subscriptions

import "errors"

// Domain errors for the subscriptions module.
var (
	ErrNotFound     = errors.New("subscription not found")
	ErrInvalidCycle = errors.New("invalid billing cycle")
)
