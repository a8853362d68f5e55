// Package notifier fans due reminders out to delivery channels, consulting
// the ledger so each reminder goes out exactly once per channel.
package notifier

import (
	"context"
	"strings"
	"time"

	"github.com/krodit/krodit-server/internal/domain"
	"github.com/krodit/krodit-server/internal/pkg/ctxlog"
	"github.com/krodit/krodit-server/internal/push"
	"github.com/krodit/krodit-server/internal/reminders"
)

// EndpointSource is the slice of the push repository the notifier needs.
type EndpointSource interface {
	ListActiveByUser(ctx context.Context, userID string) ([]domain.PushEndpoint, error)
	DeactivateByID(ctx context.Context, id string) error
}

// PushSender delivers one payload to one endpoint.
type PushSender interface {
	Enabled() bool
	Send(ctx context.Context, endpoint domain.PushEndpoint, payload []byte) (push.SendResult, error)
}

// EmailSender delivers one reminder by email.
type EmailSender interface {
	Enabled() bool
	Send(ctx context.Context, to, subject, body string) error
}

// UserDirectory resolves user IDs to profiles for email delivery.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// RunStats aggregates the outcome of one delivery run.
type RunStats struct {
	Processed     int
	Delivered     int
	AlreadySent   int
	NoSubscribers int
	Pruned        int
	Failed        int
}

// Add merges another run's counters into this one.
func (s *RunStats) Add(other RunStats) {
	s.Processed += other.Processed
	s.Delivered += other.Delivered
	s.AlreadySent += other.AlreadySent
	s.NoSubscribers += other.NoSubscribers
	s.Pruned += other.Pruned
	s.Failed += other.Failed
}

// Notifier delivers reminders over push and email.
type Notifier struct {
	ledger    reminders.Ledger
	endpoints EndpointSource
	users     UserDirectory
	push      PushSender
	email     EmailSender
	baseURL   string
}

// NewNotifier creates a new notifier. email may be nil when the channel is
// not configured. baseURL prefixes the deep link carried in push payloads;
// when empty the link stays relative.
func NewNotifier(ledger reminders.Ledger, endpoints EndpointSource, users UserDirectory, pushSender PushSender, email EmailSender, baseURL string) *Notifier {
	return &Notifier{
		ledger:    ledger,
		endpoints: endpoints,
		users:     users,
		push:      pushSender,
		email:     email,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
	}
}

// Deliver processes a batch of reminders. Failures are isolated per
// reminder; one bad record never aborts the batch.
func (n *Notifier) Deliver(ctx context.Context, items []reminders.Reminder) RunStats {
	log := ctxlog.FromContext(ctx)
	var stats RunStats

	// Endpoints are loaded once per user, not per reminder.
	byUser := make(map[string][]reminders.Reminder)
	for _, rem := range items {
		byUser[rem.Subscription.UserID] = append(byUser[rem.Subscription.UserID], rem)
	}

	for userID, userItems := range byUser {
		endpoints, err := n.endpoints.ListActiveByUser(ctx, userID)
		if err != nil {
			log.Error("failed to load push endpoints", "user_id", userID, "error", err)
			stats.Processed += len(userItems)
			stats.Failed += len(userItems)
			continue
		}

		for _, rem := range userItems {
			stats.Processed++
			n.deliverPush(ctx, rem, endpoints, &stats)
			n.deliverEmail(ctx, rem, &stats)
		}
	}

	return stats
}

// deliverPush sends one reminder to every endpoint of its owner. A single
// accepted delivery marks the reminder sent; the ledger gets exactly one row
// no matter how many devices received it.
func (n *Notifier) deliverPush(ctx context.Context, rem reminders.Reminder, endpoints []domain.PushEndpoint, stats *RunStats) {
	if n.push == nil || !n.push.Enabled() {
		return
	}
	log := ctxlog.FromContext(ctx)

	sent, err := n.ledger.HasBeenSent(ctx, rem.Subscription.ID, rem.Type, rem.BillingDate, domain.ChannelPush)
	if err != nil {
		log.Error("ledger lookup failed", "subscription_id", rem.Subscription.ID, "error", err)
		stats.Failed++
		return
	}
	if sent {
		stats.AlreadySent++
		recordDelivery("push", "already_sent")
		return
	}

	if len(endpoints) == 0 {
		stats.NoSubscribers++
		recordDelivery("push", "no_subscribers")
		return
	}

	payload, err := push.Payload{
		Title: rem.Title(),
		Body:  rem.Body(),
		Tag:   rem.Tag(),
		Data: push.PayloadData{
			SubscriptionID: rem.Subscription.ID,
			ReminderType:   string(rem.Type),
			Priority:       reminders.Priority(rem.Type),
			URL:            n.baseURL + rem.URL(),
		},
	}.Encode()
	if err != nil {
		log.Error("failed to encode push payload", "subscription_id", rem.Subscription.ID, "error", err)
		stats.Failed++
		return
	}

	var sentAny bool
	for _, ep := range endpoints {
		start := time.Now()
		result, err := n.push.Send(ctx, ep, payload)
		recordDeliveryDuration("push", time.Since(start))
		if err != nil {
			log.Warn("push send failed", "endpoint_id", ep.ID, "error", err)
			continue
		}

		if result.Gone {
			// The browser dropped this subscription. The row is kept but
			// deactivated so future runs skip it and a re-registration can
			// revive it.
			if err := n.endpoints.DeactivateByID(ctx, ep.ID); err != nil {
				log.Warn("failed to prune endpoint", "endpoint_id", ep.ID, "error", err)
			} else {
				stats.Pruned++
				recordEndpointPruned()
			}
			continue
		}

		if result.Delivered {
			sentAny = true
		} else {
			log.Warn("push rejected", "endpoint_id", ep.ID, "status", result.StatusCode)
		}
	}

	if !sentAny {
		stats.Failed++
		recordDelivery("push", "failed")
		return
	}

	if err := n.record(ctx, rem, domain.ChannelPush); err != nil {
		log.Error("failed to record delivery", "subscription_id", rem.Subscription.ID, "error", err)
		stats.Failed++
		return
	}
	stats.Delivered++
	recordDelivery("push", "delivered")
}

func (n *Notifier) deliverEmail(ctx context.Context, rem reminders.Reminder, stats *RunStats) {
	if n.email == nil || !n.email.Enabled() {
		return
	}
	log := ctxlog.FromContext(ctx)

	sent, err := n.ledger.HasBeenSent(ctx, rem.Subscription.ID, rem.Type, rem.BillingDate, domain.ChannelEmail)
	if err != nil {
		log.Error("ledger lookup failed", "subscription_id", rem.Subscription.ID, "error", err)
		stats.Failed++
		return
	}
	if sent {
		stats.AlreadySent++
		recordDelivery("email", "already_sent")
		return
	}

	user, err := n.users.GetByID(ctx, rem.Subscription.UserID)
	if err != nil {
		log.Error("failed to resolve user", "user_id", rem.Subscription.UserID, "error", err)
		stats.Failed++
		recordDelivery("email", "failed")
		return
	}
	if user.Email == "" {
		stats.NoSubscribers++
		recordDelivery("email", "no_address")
		return
	}

	start := time.Now()
	err = n.email.Send(ctx, user.Email, rem.Title(), rem.Body())
	recordDeliveryDuration("email", time.Since(start))
	if err != nil {
		log.Warn("email send failed", "user_id", user.ID, "error", err)
		stats.Failed++
		recordDelivery("email", "failed")
		return
	}

	if err := n.record(ctx, rem, domain.ChannelEmail); err != nil {
		log.Error("failed to record delivery", "subscription_id", rem.Subscription.ID, "error", err)
		stats.Failed++
		return
	}
	stats.Delivered++
	recordDelivery("email", "delivered")
}

func (n *Notifier) record(ctx context.Context, rem reminders.Reminder, channel domain.ReminderChannel) error {
	return n.ledger.Record(ctx, &domain.ReminderLog{
		UserID:         rem.Subscription.UserID,
		SubscriptionID: rem.Subscription.ID,
		ReminderType:   rem.Type,
		BillingDate:    rem.BillingDate,
		Channel:        channel,
	})
}
