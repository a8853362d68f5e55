//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krodit/krodit-server/internal/domain"
	reminderspostgres "github.com/krodit/krodit-server/internal/reminders/postgres"
)

func TestLedger_BillingDateNormalizedToMidnight(t *testing.T) {
	userID := seedUser(t, uniqueEmail("ledger"))
	due := midnightUTC(0)
	subID := seedSubscription(t, userID, "Ledger Sub", "monthly", &due)

	ledger := reminderspostgres.NewLedger(testDB)
	ctx := context.Background()

	// Recorded with a time-of-day component, as a careless caller might.
	require.NoError(t, ledger.Record(ctx, &domain.ReminderLog{
		UserID:         userID,
		SubscriptionID: subID,
		ReminderType:   domain.ReminderToday,
		BillingDate:    due.Add(14*time.Hour + 30*time.Minute),
		Channel:        domain.ChannelPush,
	}))

	// Any timestamp on the same day resolves to the same ledger row.
	sent, err := ledger.HasBeenSent(ctx, subID, domain.ReminderToday, due.Add(23*time.Hour), domain.ChannelPush)
	require.NoError(t, err)
	assert.True(t, sent)

	sent, err = ledger.HasBeenSent(ctx, subID, domain.ReminderToday, due, domain.ChannelPush)
	require.NoError(t, err)
	assert.True(t, sent)

	// The next day is a different key.
	sent, err = ledger.HasBeenSent(ctx, subID, domain.ReminderToday, due.AddDate(0, 0, 1), domain.ChannelPush)
	require.NoError(t, err)
	assert.False(t, sent)
}
