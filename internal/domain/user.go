package domain

import "time"

// User is the owner of subscriptions. Accounts are managed by an external
// identity provider; this is the local projection used for reminder delivery.
type User struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
