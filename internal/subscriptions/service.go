package subscriptions

import (
	"context"
	"fmt"
	"time"

	"github.com/krodit/krodit-server/internal/domain"
	"github.com/krodit/krodit-server/internal/pkg/ctxlog"
)

// ReminderCanceler drops pending reminder presentations for a subscription.
// Editing or deactivating a subscription invalidates anything already queued
// from its previous billing date.
type ReminderCanceler interface {
	CancelForSubscription(ctx context.Context, subscriptionID string) error
}

// NoopCanceler satisfies ReminderCanceler without doing anything.
type NoopCanceler struct{}

// CancelForSubscription implements ReminderCanceler.
func (NoopCanceler) CancelForSubscription(ctx context.Context, subscriptionID string) error {
	return nil
}

// Service contains business logic for subscription management.
type Service struct {
	repo     Repository
	canceler ReminderCanceler
}

// NewService creates a new subscriptions service.
func NewService(repo Repository, canceler ReminderCanceler) *Service {
	if canceler == nil {
		canceler = NoopCanceler{}
	}
	return &Service{repo: repo, canceler: canceler}
}

// CreateInput holds the fields accepted when creating a subscription.
type CreateInput struct {
	Name            string
	Amount          string
	Currency        string
	BillingCycle    string
	NextBillingDate *time.Time
	IsAutoRenew     bool
}

// Create validates and stores a new subscription for the user.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*domain.Subscription, error) {
	cycle := domain.BillingCycle(in.BillingCycle)
	if cycle == "" {
		cycle = domain.BillingCycleMonthly
	}
	if !cycle.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCycle, in.BillingCycle)
	}

	currency := in.Currency
	if currency == "" {
		currency = "USD"
	}

	sub := &domain.Subscription{
		UserID:          userID,
		Name:            in.Name,
		Amount:          in.Amount,
		Currency:        currency,
		BillingCycle:    cycle,
		NextBillingDate: in.NextBillingDate,
		IsActive:        true,
		IsAutoRenew:     in.IsAutoRenew,
	}

	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Get returns a subscription owned by the user.
func (s *Service) Get(ctx context.Context, id, userID string) (*domain.Subscription, error) {
	return s.repo.GetByID(ctx, id, userID)
}

// List returns all subscriptions of the user.
func (s *Service) List(ctx context.Context, userID string) ([]domain.Subscription, error) {
	return s.repo.ListByUser(ctx, userID)
}

// UpdateInput holds the fields accepted when updating a subscription.
type UpdateInput struct {
	Name            string
	Amount          string
	Currency        string
	BillingCycle    string
	NextBillingDate *time.Time
	IsActive        bool
	IsAutoRenew     bool
}

// Update rewrites a subscription and cancels any reminders queued from its
// previous state.
func (s *Service) Update(ctx context.Context, id, userID string, in UpdateInput) (*domain.Subscription, error) {
	existing, err := s.repo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	cycle := domain.BillingCycle(in.BillingCycle)
	if !cycle.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCycle, in.BillingCycle)
	}

	existing.Name = in.Name
	existing.Amount = in.Amount
	existing.Currency = in.Currency
	existing.BillingCycle = cycle
	existing.NextBillingDate = in.NextBillingDate
	existing.IsActive = in.IsActive
	existing.IsAutoRenew = in.IsAutoRenew

	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, err
	}

	s.cancelReminders(ctx, id)
	return existing, nil
}

// Delete removes a subscription and cancels its queued reminders.
func (s *Service) Delete(ctx context.Context, id, userID string) error {
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return err
	}
	s.cancelReminders(ctx, id)
	return nil
}

// cancelReminders is best effort: a failed cancellation must not fail the
// subscription write that already committed.
func (s *Service) cancelReminders(ctx context.Context, subscriptionID string) {
	if err := s.canceler.CancelForSubscription(ctx, subscriptionID); err != nil {
		ctxlog.FromContext(ctx).Warn("failed to cancel reminders",
			"subscription_id", subscriptionID, "error", err)
	}
}
