package alert

import "context"

// Canceler adapts a Presenter to the context-taking cancellation interface
// the subscriptions service expects. Presenter methods are synchronous and
// purely in-process, so the context is not consulted.
type Canceler struct {
	presenter *Presenter
}

// NewCanceler wraps a presenter for use as a subscription reminder canceler.
func NewCanceler(presenter *Presenter) Canceler {
	return Canceler{presenter: presenter}
}

// CancelForSubscription drops pending and displayed reminders for the
// subscription.
func (c Canceler) CancelForSubscription(_ context.Context, subscriptionID string) error {
	return c.presenter.CancelForSubscription(subscriptionID)
}
