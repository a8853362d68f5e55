package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krodit/krodit-server/internal/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sub(cycle domain.BillingCycle, next time.Time) domain.Subscription {
	return domain.Subscription{
		ID:              "sub-1",
		UserID:          "user-1",
		Name:            "Streaming",
		BillingCycle:    cycle,
		NextBillingDate: &next,
	}
}

func TestAdvance(t *testing.T) {
	today := date(2025, time.March, 15)

	tests := []struct {
		name    string
		sub     domain.Subscription
		want    time.Time
		cleared bool
		changed bool
	}{
		{
			name:    "monthly rolls one period",
			sub:     sub(domain.BillingCycleMonthly, date(2025, time.March, 10)),
			want:    date(2025, time.April, 10),
			changed: true,
		},
		{
			name:    "weekly rolls one period",
			sub:     sub(domain.BillingCycleWeekly, date(2025, time.March, 14)),
			want:    date(2025, time.March, 21),
			changed: true,
		},
		{
			name:    "yearly rolls one period",
			sub:     sub(domain.BillingCycleYearly, date(2024, time.June, 1)),
			want:    date(2025, time.June, 1),
			changed: true,
		},
		{
			name:    "long overdue catches up past today",
			sub:     sub(domain.BillingCycleMonthly, date(2024, time.January, 10)),
			want:    date(2025, time.April, 10),
			changed: true,
		},
		{
			name:    "date landing exactly on today stops there",
			sub:     sub(domain.BillingCycleWeekly, date(2025, time.March, 8)),
			want:    date(2025, time.March, 15),
			changed: true,
		},
		{
			name:    "one time clears the date",
			sub:     sub(domain.BillingCycleOneTime, date(2025, time.March, 1)),
			cleared: true,
			changed: true,
		},
		{
			name:    "unknown cycle falls back to monthly",
			sub:     sub(domain.BillingCycle("quarterly"), date(2025, time.March, 1)),
			want:    date(2025, time.April, 1),
			changed: true,
		},
		{
			name: "today is already current",
			sub:  sub(domain.BillingCycleMonthly, today),
			want: today,
		},
		{
			name: "future date is untouched",
			sub:  sub(domain.BillingCycleMonthly, date(2025, time.May, 1)),
			want: date(2025, time.May, 1),
		},
		{
			name: "future one time is untouched",
			sub:  sub(domain.BillingCycleOneTime, date(2025, time.April, 1)),
			want: date(2025, time.April, 1),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Advance(tt.sub, today)

			assert.Equal(t, tt.cleared, got.Cleared)
			assert.Equal(t, tt.changed, got.Changed)
			if tt.cleared {
				assert.Nil(t, got.NextDate)
				return
			}
			require.NotNil(t, got.NextDate)
			assert.True(t, tt.want.Equal(*got.NextDate), "want %s, got %s", tt.want, got.NextDate)
		})
	}
}

func TestAdvance_NilDate(t *testing.T) {
	s := domain.Subscription{ID: "sub-1", BillingCycle: domain.BillingCycleMonthly}

	got := Advance(s, date(2025, time.March, 15))

	assert.Nil(t, got.NextDate)
	assert.False(t, got.Cleared)
	assert.False(t, got.Changed)
}

func TestAdvance_StepCapSnapsToToday(t *testing.T) {
	// More than 520 weekly periods behind.
	today := date(2025, time.March, 15)
	s := sub(domain.BillingCycleWeekly, date(2010, time.January, 1))

	got := Advance(s, today)

	require.NotNil(t, got.NextDate)
	assert.True(t, today.Equal(*got.NextDate), "want snap to today, got %s", got.NextDate)
	assert.True(t, got.Changed)
}

func TestAdvance_TimeOfDayIgnored(t *testing.T) {
	// A stored timestamp late on the 10th still rolls from the 10th.
	today := date(2025, time.March, 15)
	stored := time.Date(2025, time.March, 10, 23, 45, 0, 0, time.UTC)
	s := sub(domain.BillingCycleMonthly, stored)

	got := Advance(s, today)

	require.NotNil(t, got.NextDate)
	assert.True(t, date(2025, time.April, 10).Equal(*got.NextDate))
}

func TestMidnight(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	in := time.Date(2025, time.March, 15, 17, 30, 12, 99, loc)
	out := Midnight(in)

	assert.Equal(t, time.Date(2025, time.March, 15, 0, 0, 0, 0, loc), out)
}
