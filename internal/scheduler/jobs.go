// Package scheduler runs the periodic reminder and billing advancement jobs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/krodit/krodit-server/internal/billing"
	"github.com/krodit/krodit-server/internal/domain"
	"github.com/krodit/krodit-server/internal/notifier"
	"github.com/krodit/krodit-server/internal/reminders"
)

// ReminderCollector produces the reminders due right now.
type ReminderCollector interface {
	CollectDue(ctx context.Context) ([]reminders.Reminder, error)
}

// Deliverer fans a batch of reminders out to channels.
type Deliverer interface {
	Deliver(ctx context.Context, items []reminders.Reminder) notifier.RunStats
}

// SubscriptionStore is the slice of the subscriptions repository the
// advancement job needs.
type SubscriptionStore interface {
	ListOverdue(ctx context.Context, before time.Time) ([]domain.Subscription, error)
	SetNextBillingDate(ctx context.Context, id string, next *time.Time) error
}

// AdvanceStats aggregates the outcome of one advancement run.
type AdvanceStats struct {
	Scanned  int
	Advanced int
	Cleared  int
	Failed   int
}

// Jobs contains the logic for all scheduled tasks.
type Jobs struct {
	collector ReminderCollector
	deliverer Deliverer
	subs      SubscriptionStore
	loc       *time.Location
	logger    *slog.Logger
	now       func() time.Time
}

// NewJobs creates a new Jobs runner.
func NewJobs(collector ReminderCollector, deliverer Deliverer, subs SubscriptionStore, loc *time.Location, logger *slog.Logger) *Jobs {
	return &Jobs{
		collector: collector,
		deliverer: deliverer,
		subs:      subs,
		loc:       loc,
		logger:    logger,
		now:       time.Now,
	}
}

// RunReminderTick collects everything due and delivers it. Safe to run
// concurrently with itself: the ledger absorbs duplicate deliveries.
func (j *Jobs) RunReminderTick(ctx context.Context) (notifier.RunStats, error) {
	items, err := j.collector.CollectDue(ctx)
	if err != nil {
		return notifier.RunStats{}, fmt.Errorf("collect due reminders: %w", err)
	}
	if len(items) == 0 {
		return notifier.RunStats{}, nil
	}
	return j.deliverer.Deliver(ctx, items), nil
}

// RunAdvancement rolls every overdue billing date forward. Per-subscription
// failures are logged and skipped so one bad row cannot stall the rest.
func (j *Jobs) RunAdvancement(ctx context.Context) (AdvanceStats, error) {
	today := billing.Midnight(j.now().In(j.loc))

	overdue, err := j.subs.ListOverdue(ctx, today)
	if err != nil {
		return AdvanceStats{}, fmt.Errorf("list overdue subscriptions: %w", err)
	}

	var stats AdvanceStats
	for _, sub := range overdue {
		stats.Scanned++

		result := billing.Advance(sub, today)
		if !result.Changed {
			continue
		}

		if err := j.subs.SetNextBillingDate(ctx, sub.ID, result.NextDate); err != nil {
			j.logger.Error("failed to advance billing date",
				"subscription_id", sub.ID, "error", err)
			stats.Failed++
			continue
		}

		if result.Cleared {
			stats.Cleared++
			recordAdvancement("cleared")
		} else {
			stats.Advanced++
			recordAdvancement("advanced")
		}
	}

	return stats, nil
}

// ReminderTick is the cron entrypoint for reminder delivery.
func (j *Jobs) ReminderTick() {
	j.logger.Info("starting reminder tick")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	stats, err := j.RunReminderTick(ctx)
	if err != nil {
		j.logger.Error("reminder tick failed", "error", err)
		recordJobRun("reminder_tick", "error")
		return
	}

	recordJobRun("reminder_tick", "ok")
	j.logger.Info("reminder tick finished",
		"processed", stats.Processed,
		"delivered", stats.Delivered,
		"already_sent", stats.AlreadySent,
		"no_subscribers", stats.NoSubscribers,
		"pruned", stats.Pruned,
		"failed", stats.Failed,
	)
}

// AdvanceBillingDates is the cron entrypoint for billing date advancement.
func (j *Jobs) AdvanceBillingDates() {
	j.logger.Info("starting billing date advancement")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	stats, err := j.RunAdvancement(ctx)
	if err != nil {
		j.logger.Error("billing date advancement failed", "error", err)
		recordJobRun("advance_billing_dates", "error")
		return
	}

	recordJobRun("advance_billing_dates", "ok")
	j.logger.Info("billing date advancement finished",
		"scanned", stats.Scanned,
		"advanced", stats.Advanced,
		"cleared", stats.Cleared,
		"failed", stats.Failed,
	)
}
