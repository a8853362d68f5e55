// Package postgres provides PostgreSQL implementation of the subscriptions repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/krodit/krodit-server/internal/domain"
	"github.com/krodit/krodit-server/internal/subscriptions"
)

// Repository implements the subscriptions.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const subscriptionColumns = `id, user_id, name, amount, currency, billing_cycle, next_billing_date, is_active, is_auto_renew, created_at, updated_at`

// Create inserts a new subscription.
func (r *Repository) Create(ctx context.Context, sub *domain.Subscription) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	query := `
		INSERT INTO subscriptions (id, user_id, name, amount, currency, billing_cycle, next_billing_date, is_active, is_auto_renew)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		sub.ID,
		sub.UserID,
		sub.Name,
		sub.Amount,
		sub.Currency,
		sub.BillingCycle,
		sub.NextBillingDate,
		sub.IsActive,
		sub.IsAutoRenew,
	).Scan(&sub.CreatedAt, &sub.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

// GetByID retrieves a subscription owned by the given user.
func (r *Repository) GetByID(ctx context.Context, id, userID string) (*domain.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE id = $1 AND user_id = $2
	`
	var sub domain.Subscription
	err := r.db.QueryRow(ctx, query, id, userID).Scan(
		&sub.ID,
		&sub.UserID,
		&sub.Name,
		&sub.Amount,
		&sub.Currency,
		&sub.BillingCycle,
		&sub.NextBillingDate,
		&sub.IsActive,
		&sub.IsAutoRenew,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, subscriptions.ErrNotFound
		}
		return nil, fmt.Errorf("get subscription by id: %w", err)
	}
	return &sub, nil
}

// ListByUser retrieves all subscriptions for a user, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]domain.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	return scanSubscriptions(rows)
}

// Update rewrites all mutable fields of a subscription.
func (r *Repository) Update(ctx context.Context, sub *domain.Subscription) error {
	query := `
		UPDATE subscriptions
		SET name = $3, amount = $4, currency = $5, billing_cycle = $6,
		    next_billing_date = $7, is_active = $8, is_auto_renew = $9, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		sub.ID,
		sub.UserID,
		sub.Name,
		sub.Amount,
		sub.Currency,
		sub.BillingCycle,
		sub.NextBillingDate,
		sub.IsActive,
		sub.IsAutoRenew,
	).Scan(&sub.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return subscriptions.ErrNotFound
		}
		return fmt.Errorf("update subscription: %w", err)
	}
	return nil
}

// Delete removes a subscription owned by the given user.
func (r *Repository) Delete(ctx context.Context, id, userID string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM subscriptions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	if result.RowsAffected() == 0 {
		return subscriptions.ErrNotFound
	}
	return nil
}

// ListDueBetween returns active subscriptions with a billing date in [from, to].
func (r *Repository) ListDueBetween(ctx context.Context, from, to time.Time) ([]domain.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE is_active
		  AND next_billing_date IS NOT NULL
		  AND next_billing_date >= $1
		  AND next_billing_date <= $2
		ORDER BY next_billing_date, id
	`
	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("list due subscriptions: %w", err)
	}
	defer rows.Close()

	return scanSubscriptions(rows)
}

// ListDueBetweenForUser returns one user's active subscriptions due in [from, to].
func (r *Repository) ListDueBetweenForUser(ctx context.Context, userID string, from, to time.Time) ([]domain.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE user_id = $1
		  AND is_active
		  AND next_billing_date IS NOT NULL
		  AND next_billing_date >= $2
		  AND next_billing_date <= $3
		ORDER BY next_billing_date, id
	`
	rows, err := r.db.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list due subscriptions for user: %w", err)
	}
	defer rows.Close()

	return scanSubscriptions(rows)
}

// ListOverdue returns active subscriptions with a billing date before the cutoff.
func (r *Repository) ListOverdue(ctx context.Context, before time.Time) ([]domain.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE is_active
		  AND next_billing_date IS NOT NULL
		  AND next_billing_date < $1
		ORDER BY next_billing_date, id
	`
	rows, err := r.db.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("list overdue subscriptions: %w", err)
	}
	defer rows.Close()

	return scanSubscriptions(rows)
}

// SetNextBillingDate updates only the billing date. A nil next clears it.
func (r *Repository) SetNextBillingDate(ctx context.Context, id string, next *time.Time) error {
	query := `UPDATE subscriptions SET next_billing_date = $2, updated_at = NOW() WHERE id = $1`
	result, err := r.db.Exec(ctx, query, id, next)
	if err != nil {
		return fmt.Errorf("set next billing date: %w", err)
	}
	if result.RowsAffected() == 0 {
		return subscriptions.ErrNotFound
	}
	return nil
}

func scanSubscriptions(rows pgx.Rows) ([]domain.Subscription, error) {
	subs := make([]domain.Subscription, 0)
	for rows.Next() {
		var sub domain.Subscription
		err := rows.Scan(
			&sub.ID,
			&sub.UserID,
			&sub.Name,
			&sub.Amount,
			&sub.Currency,
			&sub.BillingCycle,
			&sub.NextBillingDate,
			&sub.IsActive,
			&sub.IsAutoRenew,
			&sub.CreatedAt,
			&sub.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}
	return subs, nil
}
