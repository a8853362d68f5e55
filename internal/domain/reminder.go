package domain

import "time"

// ReminderType classifies how soon a billing date is due.
type ReminderType string

// Reminder types.
const (
	ReminderToday    ReminderType = "today"
	ReminderTomorrow ReminderType = "tomorrow"
)

// ReminderChannel is a delivery channel tracked by the idempotency ledger.
type ReminderChannel string

// Reminder channels.
const (
	ChannelEmail ReminderChannel = "email"
	ChannelPush  ReminderChannel = "push"
)

// ReminderLog is one idempotency ledger row: a reminder that was successfully
// delivered for (subscription, type, billing date, channel). Rows are append
// only and never updated.
type ReminderLog struct {
	ID             string
	UserID         string
	SubscriptionID string
	ReminderType   ReminderType
	BillingDate    time.Time // truncated to midnight
	Channel        ReminderChannel
	SentAt         time.Time
}
