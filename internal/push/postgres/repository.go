// Package postgres provides PostgreSQL implementation of the push repository.
package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/krodit/krodit-server/internal/domain"
)

// Repository implements the push.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Upsert stores an endpoint, refreshing keys and reactivating on conflict.
func (r *Repository) Upsert(ctx context.Context, endpoint *domain.PushEndpoint) error {
	if endpoint.ID == "" {
		endpoint.ID = uuid.NewString()
	}
	query := `
		INSERT INTO push_subscriptions (id, user_id, endpoint, p256dh, auth, user_agent, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		ON CONFLICT ON CONSTRAINT push_subscriptions_user_endpoint_key DO UPDATE
		SET p256dh = EXCLUDED.p256dh,
		    auth = EXCLUDED.auth,
		    user_agent = EXCLUDED.user_agent,
		    is_active = TRUE,
		    updated_at = NOW()
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		endpoint.ID,
		endpoint.UserID,
		endpoint.Endpoint,
		endpoint.P256DH,
		endpoint.Auth,
		endpoint.UserAgent,
	).Scan(&endpoint.ID, &endpoint.CreatedAt, &endpoint.UpdatedAt)

	if err != nil {
		return fmt.Errorf("upsert push endpoint: %w", err)
	}
	endpoint.IsActive = true
	return nil
}

// Deactivate marks an endpoint inactive. Unknown endpoints are a no-op.
func (r *Repository) Deactivate(ctx context.Context, userID, endpoint string) error {
	query := `
		UPDATE push_subscriptions
		SET is_active = FALSE, updated_at = NOW()
		WHERE user_id = $1 AND endpoint = $2
	`
	if _, err := r.db.Exec(ctx, query, userID, endpoint); err != nil {
		return fmt.Errorf("deactivate push endpoint: %w", err)
	}
	return nil
}

// ListActiveByUser returns all active endpoints registered by a user.
func (r *Repository) ListActiveByUser(ctx context.Context, userID string) ([]domain.PushEndpoint, error) {
	query := `
		SELECT id, user_id, endpoint, p256dh, auth, user_agent, is_active, created_at, updated_at
		FROM push_subscriptions
		WHERE user_id = $1 AND is_active
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list active push endpoints: %w", err)
	}
	defer rows.Close()

	return scanEndpoints(rows)
}

// DeactivateByID marks an endpoint inactive by row ID.
func (r *Repository) DeactivateByID(ctx context.Context, id string) error {
	query := `
		UPDATE push_subscriptions
		SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("deactivate push endpoint by id: %w", err)
	}
	return nil
}

func scanEndpoints(rows pgx.Rows) ([]domain.PushEndpoint, error) {
	endpoints := make([]domain.PushEndpoint, 0)
	for rows.Next() {
		var ep domain.PushEndpoint
		err := rows.Scan(
			&ep.ID,
			&ep.UserID,
			&ep.Endpoint,
			&ep.P256DH,
			&ep.Auth,
			&ep.UserAgent,
			&ep.IsActive,
			&ep.CreatedAt,
			&ep.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan push endpoint: %w", err)
		}
		endpoints = append(endpoints, ep)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate push endpoints: %w", err)
	}
	return endpoints, nil
}
