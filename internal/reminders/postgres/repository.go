// Package postgres provides PostgreSQL implementation of the reminder ledger.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/krodit/krodit-server/internal/billing"
	"github.com/krodit/krodit-server/internal/domain"
)

// Ledger implements the reminders.Ledger interface using PostgreSQL.
type Ledger struct {
	db *pgxpool.Pool
}

// NewLedger creates a new PostgreSQL ledger.
func NewLedger(db *pgxpool.Pool) *Ledger {
	return &Ledger{db: db}
}

// HasBeenSent reports whether a delivery row exists for the given key.
func (l *Ledger) HasBeenSent(ctx context.Context, subscriptionID string, t domain.ReminderType, billingDate time.Time, channel domain.ReminderChannel) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM reminder_logs
			WHERE subscription_id = $1 AND reminder_type = $2 AND billing_date = $3 AND channel = $4
		)
	`
	var exists bool
	err := l.db.QueryRow(ctx, query, subscriptionID, t, billing.Midnight(billingDate), channel).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check reminder sent: %w", err)
	}
	return exists, nil
}

// Record appends a delivery row. The ledger unique key absorbs duplicate
// writes from concurrent runs. The billing date is truncated to midnight so
// a timestamped caller cannot split one logical day into distinct rows.
func (l *Ledger) Record(ctx context.Context, log *domain.ReminderLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	query := `
		INSERT INTO reminder_logs (id, user_id, subscription_id, reminder_type, billing_date, channel)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT ON CONSTRAINT reminder_logs_ledger_key DO NOTHING
	`
	_, err := l.db.Exec(ctx, query,
		log.ID,
		log.UserID,
		log.SubscriptionID,
		log.ReminderType,
		billing.Midnight(log.BillingDate),
		log.Channel,
	)
	if err != nil {
		return fmt.Errorf("record reminder: %w", err)
	}
	return nil
}
