// Package subscriptions provides CRUD and due-date scans for tracked subscriptions.
package subscriptions

import (
	"context"
	"time"

	"github.com/krodit/krodit-server/internal/domain"
)

// Repository defines the interface for subscription data access.
type Repository interface {
	Create(ctx context.Context, sub *domain.Subscription) error
	GetByID(ctx context.Context, id, userID string) (*domain.Subscription, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Subscription, error)
	Update(ctx context.Context, sub *domain.Subscription) error
	Delete(ctx context.Context, id, userID string) error

	// ListDueBetween returns active subscriptions whose billing date falls
	// inside [from, to], inclusive. Used by the reminder pipeline.
	ListDueBetween(ctx context.Context, from, to time.Time) ([]domain.Subscription, error)

	// ListDueBetweenForUser is the per-user variant backing the reminders API.
	ListDueBetweenForUser(ctx context.Context, userID string, from, to time.Time) ([]domain.Subscription, error)

	// ListOverdue returns active subscriptions whose billing date is strictly
	// before the given instant. Used by the billing date advancement job.
	ListOverdue(ctx context.Context, before time.Time) ([]domain.Subscription, error)

	// SetNextBillingDate updates only the billing date. A nil next clears it.
	SetNextBillingDate(ctx context.Context, id string, next *time.Time) error
}
