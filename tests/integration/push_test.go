//go:build integration

package integration

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPush_VAPIDKeyUnconfigured(t *testing.T) {
	userID := seedUser(t, uniqueEmail("vapid"))

	// The test app runs without VAPID keys, so the endpoint reports the
	// channel as unavailable.
	resp, err := clientFor(t, userID).GET("/api/v1/push/vapid-key")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestPush_SubscribeAndUnsubscribe(t *testing.T) {
	userID := seedUser(t, uniqueEmail("push"))
	client := clientFor(t, userID)

	endpoint := "https://push.example.com/send/" + userID

	resp, err := client.POST("/api/v1/push/subscriptions", map[string]interface{}{
		"endpoint": endpoint,
		"keys": map[string]string{
			"p256dh": "BNcRdreALRFXTkOOUHK1EtK2wtaz5Ry4YfYCA_0QTpQtUbVlUls0VJXg7A8u-Ts1XbjhazAkj7I99e8QcYP7DkM",
			"auth":   "tBHItJI5svbpez7KI4CCXg",
		},
		"user_agent": "integration-test",
	})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Re-subscribing the same endpoint reactivates instead of duplicating.
	resp, err = client.POST("/api/v1/push/subscriptions", map[string]interface{}{
		"endpoint": endpoint,
		"keys": map[string]string{
			"p256dh": "BNcRdreALRFXTkOOUHK1EtK2wtaz5Ry4YfYCA_0QTpQtUbVlUls0VJXg7A8u-Ts1XbjhazAkj7I99e8QcYP7DkM",
			"auth":   "tBHItJI5svbpez7KI4CCXg",
		},
	})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var count int
	err = testDB.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM push_subscriptions WHERE user_id = $1 AND is_active`, userID,
	).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	resp, err = client.DELETEWithBody("/api/v1/push/subscriptions", map[string]string{
		"endpoint": endpoint,
	})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	err = testDB.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM push_subscriptions WHERE user_id = $1 AND is_active`, userID,
	).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// Unsubscribing an unknown endpoint is a no-op, not an error.
	resp, err = client.DELETEWithBody("/api/v1/push/subscriptions", map[string]string{
		"endpoint": "https://push.example.com/send/unknown",
	})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
