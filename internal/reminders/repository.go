package reminders

import (
	"context"
	"time"

	"github.com/krodit/krodit-server/internal/domain"
)

// Ledger is the append-only record of delivered reminders. A row per
// (subscription, reminder type, billing date, channel) makes every delivery
// decision idempotent across ticks and concurrent runners.
type Ledger interface {
	// HasBeenSent reports whether a reminder was already delivered for the
	// given key. billingDate must be truncated to midnight.
	HasBeenSent(ctx context.Context, subscriptionID string, t domain.ReminderType, billingDate time.Time, channel domain.ReminderChannel) (bool, error)

	// Record appends a delivery row. Recording an existing key is a no-op,
	// so racing writers converge on a single row.
	Record(ctx context.Context, log *domain.ReminderLog) error
}
