package push

import (
	"context"

	"github.com/krodit/krodit-server/internal/domain"
)

// Repository defines the interface for push endpoint data access.
type Repository interface {
	// Upsert stores an endpoint for a user. Re-registering an existing
	// endpoint refreshes its keys and reactivates it.
	Upsert(ctx context.Context, endpoint *domain.PushEndpoint) error

	// Deactivate marks an endpoint inactive. Unknown endpoints are a no-op.
	Deactivate(ctx context.Context, userID, endpoint string) error

	// ListActiveByUser returns all active endpoints registered by a user.
	ListActiveByUser(ctx context.Context, userID string) ([]domain.PushEndpoint, error)

	// DeactivateByID marks an endpoint inactive by row ID. Used to retire
	// endpoints the push service reports as gone; a later re-registration
	// revives the row.
	DeactivateByID(ctx context.Context, id string) error
}
