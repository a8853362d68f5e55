package reminders

import (
	"fmt"
	"time"

	"github.com/krodit/krodit-server/internal/domain"
)

// Reminder is one pending notification: a subscription together with how
// soon its billing date is due.
type Reminder struct {
	Subscription domain.Subscription
	Type         domain.ReminderType
	// BillingDate is the due date truncated to midnight. It is part of the
	// ledger key, so everything downstream uses this normalized value.
	BillingDate time.Time
}

// Tag identifies the reminder for client-side replacement and cancellation.
// All tags for one subscription share the "reminder-<id>" prefix.
func (r Reminder) Tag() string {
	return fmt.Sprintf("reminder-%s-%s", r.Subscription.ID, r.Type)
}

// URL is the in-app destination opened when the notification is clicked.
func (r Reminder) URL() string {
	return "/subscriptions/" + r.Subscription.ID
}
