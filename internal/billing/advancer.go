// Package billing rolls subscription billing dates forward across cycles.
package billing

import (
	"time"

	"github.com/krodit/krodit-server/internal/domain"
)

// maxSteps bounds catch-up for subscriptions that stayed overdue for a
// very long time (10 years of weekly cycles).
const maxSteps = 520

// Result describes what Advance decided for a single subscription.
type Result struct {
	// NextDate is the new billing date. Nil when the date was cleared.
	NextDate *time.Time
	// Cleared is true for one-time purchases whose date is consumed.
	Cleared bool
	// Changed is false when the stored date is already current.
	Changed bool
}

// Advance computes the next billing date for a subscription whose stored
// date has fallen strictly before today. One-time cycles clear their date
// instead of rolling forward. Recurring cycles step one period at a time
// until the date is today or later; if the step cap is hit the date snaps
// to today. Unrecognized cycles roll monthly.
//
// today must be a local midnight; callers normalize via Midnight.
func Advance(sub domain.Subscription, today time.Time) Result {
	if sub.NextBillingDate == nil {
		return Result{}
	}

	current := Midnight(sub.NextBillingDate.In(today.Location()))
	if !current.Before(today) {
		return Result{NextDate: &current}
	}

	if sub.BillingCycle == domain.BillingCycleOneTime {
		return Result{Cleared: true, Changed: true}
	}

	next := current
	for i := 0; next.Before(today); i++ {
		if i >= maxSteps {
			next = today
			break
		}
		next = addCycle(next, sub.BillingCycle)
	}

	return Result{NextDate: &next, Changed: true}
}

func addCycle(t time.Time, cycle domain.BillingCycle) time.Time {
	switch cycle {
	case domain.BillingCycleWeekly:
		return t.AddDate(0, 0, 7)
	case domain.BillingCycleYearly:
		return t.AddDate(1, 0, 0)
	default:
		return t.AddDate(0, 1, 0)
	}
}

// Midnight truncates t to 00:00:00 in its own location.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
