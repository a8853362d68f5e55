package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/krodit/krodit-server/internal/domain"
)

// SubscriptionSource is the slice of the subscriptions repository the
// reminder pipeline reads from.
type SubscriptionSource interface {
	ListDueBetween(ctx context.Context, from, to time.Time) ([]domain.Subscription, error)
	ListDueBetweenForUser(ctx context.Context, userID string, from, to time.Time) ([]domain.Subscription, error)
}

// Service collects due reminders from the subscription store.
type Service struct {
	subs SubscriptionSource
	loc  *time.Location
	now  func() time.Time
}

// NewService creates a new reminders service. All day boundaries are
// computed in loc.
func NewService(subs SubscriptionSource, loc *time.Location) *Service {
	return &Service{
		subs: subs,
		loc:  loc,
		now:  time.Now,
	}
}

// CollectDue returns reminders for every active subscription due today or
// tomorrow, across all users.
func (s *Service) CollectDue(ctx context.Context) ([]Reminder, error) {
	now := s.now().In(s.loc)
	from, to := Window(now)

	subs, err := s.subs.ListDueBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list due subscriptions: %w", err)
	}
	return s.classifyAll(subs, now), nil
}

// CollectDueForUser returns one user's reminders due today or tomorrow.
func (s *Service) CollectDueForUser(ctx context.Context, userID string) ([]Reminder, error) {
	now := s.now().In(s.loc)
	from, to := Window(now)

	subs, err := s.subs.ListDueBetweenForUser(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list due subscriptions for user: %w", err)
	}
	return s.classifyAll(subs, now), nil
}

func (s *Service) classifyAll(subs []domain.Subscription, now time.Time) []Reminder {
	out := make([]Reminder, 0, len(subs))
	for _, sub := range subs {
		t, ok := Classify(sub.NextBillingDate, now)
		if !ok {
			continue
		}
		due := sub.NextBillingDate.In(s.loc)
		out = append(out, Reminder{
			Subscription: sub,
			Type:         t,
			BillingDate:  time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, s.loc),
		})
	}
	return out
}
