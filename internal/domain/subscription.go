package domain

import "time"

// BillingCycle describes how often a subscription renews.
type BillingCycle string

// Billing cycles.
const (
	BillingCycleWeekly  BillingCycle = "weekly"
	BillingCycleMonthly BillingCycle = "monthly"
	BillingCycleYearly  BillingCycle = "yearly"
	BillingCycleOneTime BillingCycle = "one_time"
)

// Valid reports whether the cycle is one of the known values.
func (c BillingCycle) Valid() bool {
	switch c {
	case BillingCycleWeekly, BillingCycleMonthly, BillingCycleYearly, BillingCycleOneTime:
		return true
	}
	return false
}

// Subscription is a recurring or one-time payment obligation tracked for a user.
// NextBillingDate is nil for one-time subscriptions whose date has passed.
type Subscription struct {
	ID              string
	UserID          string
	Name            string
	Amount          string // decimal string, 2dp
	Currency        string // ISO 4217
	BillingCycle    BillingCycle
	NextBillingDate *time.Time
	IsActive        bool
	IsAutoRenew     bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
