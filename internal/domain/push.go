package domain

import "time"

// PushEndpoint is a registered Web Push delivery target for a user, unique per
// (user, endpoint URL). Endpoints are deactivated, never deleted, when the
// push service reports them gone.
type PushEndpoint struct {
	ID        string
	UserID    string
	Endpoint  string
	P256DH    string
	Auth      string
	UserAgent string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
