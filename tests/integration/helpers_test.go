//go:build integration

package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/krodit/krodit-server/internal/testutil"
)

// signToken mints a bearer token the way the external identity provider does.
func signToken(t *testing.T, userID string) string {
	t.Helper()

	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

// seedUser inserts a user row and returns its ID. Users normally arrive via
// the identity provider sync, so tests write them directly.
func seedUser(t *testing.T, email string) string {
	t.Helper()

	id := uuid.NewString()
	_, err := testDB.Exec(context.Background(),
		`INSERT INTO users (id, name, email) VALUES ($1, $2, $3)`,
		id, "Test User", email,
	)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	t.Cleanup(func() {
		_, _ = testDB.Exec(context.Background(), `DELETE FROM users WHERE id = $1`, id)
	})
	return id
}

// seedSubscription inserts a subscription row directly and returns its ID.
func seedSubscription(t *testing.T, userID, name, cycle string, nextBillingDate *time.Time) string {
	t.Helper()

	id := uuid.NewString()
	_, err := testDB.Exec(context.Background(),
		`INSERT INTO subscriptions (id, user_id, name, amount, currency, billing_cycle, next_billing_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, userID, name, "9.99", "USD", cycle, nextBillingDate,
	)
	if err != nil {
		t.Fatalf("seed subscription: %v", err)
	}
	return id
}

// clientFor returns an API client authenticated as the given user.
func clientFor(t *testing.T, userID string) *testutil.Client {
	t.Helper()
	return testClient.WithToken(signToken(t, userID))
}

// uniqueEmail returns an address that will not collide across tests.
func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%s@example.com", prefix, uuid.NewString()[:8])
}

// midnightUTC returns today's midnight in UTC, offset by days.
func midnightUTC(days int) time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, days)
}
