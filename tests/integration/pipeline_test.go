//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The full delivery path: due subscription in, exactly one email out, no
// matter how many times the tick runs.
func TestPipeline_ReminderDeliveredOnce(t *testing.T) {
	email := uniqueEmail("pipeline")
	userID := seedUser(t, email)

	today := midnightUTC(0)
	subID := seedSubscription(t, userID, "Cloud Storage", "monthly", &today)

	ctx := context.Background()

	stats, err := testJobs.RunReminderTick(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.Delivered, 1)

	messages, err := mailpitClient.WaitForRecipient(email, 1, 10*time.Second)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0].Subject, "Cloud Storage renews today")

	// A second run must be a no-op for this reminder.
	_, err = testJobs.RunReminderTick(ctx)
	require.NoError(t, err)

	messages, err = mailpitClient.SearchByRecipient(email)
	require.NoError(t, err)
	assert.Len(t, messages, 1, "rerun must not send a duplicate")

	var logCount int
	err = testDB.QueryRow(ctx,
		`SELECT COUNT(*) FROM reminder_logs WHERE subscription_id = $1 AND channel = 'email'`,
		subID,
	).Scan(&logCount)
	require.NoError(t, err)
	assert.Equal(t, 1, logCount)
}

func TestPipeline_TomorrowReminder(t *testing.T) {
	email := uniqueEmail("tomorrow")
	userID := seedUser(t, email)

	tomorrow := midnightUTC(1)
	seedSubscription(t, userID, "Video Service", "yearly", &tomorrow)

	_, err := testJobs.RunReminderTick(context.Background())
	require.NoError(t, err)

	messages, err := mailpitClient.WaitForRecipient(email, 1, 10*time.Second)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0].Subject, "renews tomorrow")
}

func TestPipeline_AdvancementRollsOverdueDates(t *testing.T) {
	userID := seedUser(t, uniqueEmail("advance"))

	start := midnightUTC(-65)
	monthlyID := seedSubscription(t, userID, "Overdue Monthly", "monthly", &start)

	yesterday := midnightUTC(-1)
	oneTimeID := seedSubscription(t, userID, "Overdue One Time", "one_time", &yesterday)

	ctx := context.Background()
	stats, err := testJobs.RunAdvancement(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.Advanced, 1)
	assert.GreaterOrEqual(t, stats.Cleared, 1)
	assert.Zero(t, stats.Failed)

	today := midnightUTC(0)
	expected := start
	for expected.Before(today) {
		expected = expected.AddDate(0, 1, 0)
	}

	var next *time.Time
	err = testDB.QueryRow(ctx,
		`SELECT next_billing_date FROM subscriptions WHERE id = $1`, monthlyID,
	).Scan(&next)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.True(t, expected.Equal(next.UTC()), "expected %v, got %v", expected, next.UTC())

	err = testDB.QueryRow(ctx,
		`SELECT next_billing_date FROM subscriptions WHERE id = $1`, oneTimeID,
	).Scan(&next)
	require.NoError(t, err)
	assert.Nil(t, next, "one_time subscriptions clear their date instead of cycling")

	// Advancement must not resurrect a date once cleared.
	_, err = testJobs.RunAdvancement(ctx)
	require.NoError(t, err)
	err = testDB.QueryRow(ctx,
		`SELECT next_billing_date FROM subscriptions WHERE id = $1`, oneTimeID,
	).Scan(&next)
	require.NoError(t, err)
	assert.Nil(t, next)
}
