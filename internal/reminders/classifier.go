// Package reminders decides which subscriptions are due for a reminder and
// keeps the delivery ledger that makes reminding idempotent.
package reminders

import (
	"time"

	"github.com/krodit/krodit-server/internal/billing"
	"github.com/krodit/krodit-server/internal/domain"
)

// Classify maps a billing date to a reminder type relative to now, comparing
// calendar days in now's location. The third day and beyond, past dates, and
// nil dates produce no reminder.
func Classify(billingDate *time.Time, now time.Time) (domain.ReminderType, bool) {
	if billingDate == nil {
		return "", false
	}

	today := billing.Midnight(now)
	due := billing.Midnight(billingDate.In(now.Location()))

	switch {
	case due.Equal(today):
		return domain.ReminderToday, true
	case due.Equal(today.AddDate(0, 0, 1)):
		return domain.ReminderTomorrow, true
	}
	return "", false
}

// Window returns the scan interval for due subscriptions: from the start of
// today through the end of tomorrow in now's location.
func Window(now time.Time) (from, to time.Time) {
	from = billing.Midnight(now)
	to = from.AddDate(0, 0, 2).Add(-time.Nanosecond)
	return from, to
}

// Priority returns the delivery urgency for a reminder type. Same-day
// reminders interrupt, day-before reminders do not.
func Priority(t domain.ReminderType) string {
	if t == domain.ReminderToday {
		return "high"
	}
	return "normal"
}
