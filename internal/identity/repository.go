package identity

import (
	"context"
	"errors"

	"github.com/krodit/krodit-server/internal/domain"
)

// ErrUserNotFound is returned when a user ID resolves to nothing.
var ErrUserNotFound = errors.New("user not found")

// Repository defines the interface for user data access. User accounts are
// provisioned by the external auth system; this side only reads and mirrors
// them.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// Upsert mirrors a user record from the auth system. Existing rows get
	// their name and email refreshed.
	Upsert(ctx context.Context, user *domain.User) error
}
