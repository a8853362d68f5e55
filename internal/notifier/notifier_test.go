package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krodit/krodit-server/internal/domain"
	"github.com/krodit/krodit-server/internal/push"
	"github.com/krodit/krodit-server/internal/reminders"
)

type ledgerKey struct {
	subscriptionID string
	reminderType   domain.ReminderType
	billingDate    time.Time
	channel        domain.ReminderChannel
}

type mockLedger struct {
	sent    map[ledgerKey]bool
	records []domain.ReminderLog
}

func newMockLedger() *mockLedger {
	return &mockLedger{sent: make(map[ledgerKey]bool)}
}

func (m *mockLedger) HasBeenSent(_ context.Context, subID string, t domain.ReminderType, billingDate time.Time, channel domain.ReminderChannel) (bool, error) {
	return m.sent[ledgerKey{subID, t, billingDate, channel}], nil
}

func (m *mockLedger) Record(_ context.Context, log *domain.ReminderLog) error {
	key := ledgerKey{log.SubscriptionID, log.ReminderType, log.BillingDate, log.Channel}
	if m.sent[key] {
		return nil
	}
	m.sent[key] = true
	m.records = append(m.records, *log)
	return nil
}

type mockEndpoints struct {
	byUser      map[string][]domain.PushEndpoint
	deactivated []string
}

func (m *mockEndpoints) ListActiveByUser(_ context.Context, userID string) ([]domain.PushEndpoint, error) {
	return m.byUser[userID], nil
}

func (m *mockEndpoints) DeactivateByID(_ context.Context, id string) error {
	m.deactivated = append(m.deactivated, id)
	for user, eps := range m.byUser {
		for i := range eps {
			if eps[i].ID == id {
				eps[i].IsActive = false
			}
		}
		m.byUser[user] = eps
	}
	return nil
}

type mockUsers struct {
	users map[string]*domain.User
}

func (m *mockUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	return user, nil
}

type mockPushSender struct {
	enabled bool
	// resultFor maps endpoint URL to a canned outcome.
	resultFor map[string]push.SendResult
	errFor    map[string]error
	sends     []string
	payloads  [][]byte
}

func (m *mockPushSender) Enabled() bool { return m.enabled }

func (m *mockPushSender) Send(_ context.Context, ep domain.PushEndpoint, payload []byte) (push.SendResult, error) {
	m.sends = append(m.sends, ep.Endpoint)
	m.payloads = append(m.payloads, payload)
	if err := m.errFor[ep.Endpoint]; err != nil {
		return push.SendResult{}, err
	}
	if result, ok := m.resultFor[ep.Endpoint]; ok {
		return result, nil
	}
	return push.SendResult{Delivered: true, StatusCode: 201}, nil
}

type mockEmailSender struct {
	enabled bool
	sent    []string
	err     error
}

func (m *mockEmailSender) Enabled() bool { return m.enabled }

func (m *mockEmailSender) Send(_ context.Context, to, _, _ string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to)
	return nil
}

func testReminder(subID, userID string) reminders.Reminder {
	due := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)
	return reminders.Reminder{
		Subscription: domain.Subscription{
			ID:       subID,
			UserID:   userID,
			Name:     "Streaming",
			Amount:   "9.99",
			Currency: "USD",
		},
		Type:        domain.ReminderToday,
		BillingDate: due,
	}
}

func endpoint(id, url string) domain.PushEndpoint {
	return domain.PushEndpoint{ID: id, Endpoint: url, IsActive: true}
}

func TestNotifier_PushDelivered(t *testing.T) {
	ledger := newMockLedger()
	endpoints := &mockEndpoints{byUser: map[string][]domain.PushEndpoint{
		"u1": {endpoint("ep1", "https://push/1"), endpoint("ep2", "https://push/2")},
	}}
	sender := &mockPushSender{enabled: true}

	n := NewNotifier(ledger, endpoints, &mockUsers{}, sender, nil, "")
	stats := n.Deliver(context.Background(), []reminders.Reminder{testReminder("sub-1", "u1")})

	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 1, stats.Delivered)
	assert.Len(t, sender.sends, 2)
	// One ledger row even though two devices were reached.
	require.Len(t, ledger.records, 1)
	assert.Equal(t, domain.ChannelPush, ledger.records[0].Channel)
}

func TestNotifier_PushPayloadCarriesAbsoluteLink(t *testing.T) {
	ledger := newMockLedger()
	endpoints := &mockEndpoints{byUser: map[string][]domain.PushEndpoint{
		"u1": {endpoint("ep1", "https://push/1")},
	}}
	sender := &mockPushSender{enabled: true}

	n := NewNotifier(ledger, endpoints, &mockUsers{}, sender, nil, "https://app.example.com/")
	n.Deliver(context.Background(), []reminders.Reminder{testReminder("sub-1", "u1")})

	require.Len(t, sender.payloads, 1)
	var payload push.Payload
	require.NoError(t, json.Unmarshal(sender.payloads[0], &payload))
	assert.Equal(t, "https://app.example.com/subscriptions/sub-1", payload.Data.URL)
}

func TestNotifier_AlreadySentSkips(t *testing.T) {
	ledger := newMockLedger()
	rem := testReminder("sub-1", "u1")
	ledger.sent[ledgerKey{"sub-1", rem.Type, rem.BillingDate, domain.ChannelPush}] = true

	endpoints := &mockEndpoints{byUser: map[string][]domain.PushEndpoint{
		"u1": {endpoint("ep1", "https://push/1")},
	}}
	sender := &mockPushSender{enabled: true}

	n := NewNotifier(ledger, endpoints, &mockUsers{}, sender, nil, "")
	stats := n.Deliver(context.Background(), []reminders.Reminder{rem})

	assert.Equal(t, 1, stats.AlreadySent)
	assert.Zero(t, stats.Delivered)
	assert.Empty(t, sender.sends)
}

func TestNotifier_NoSubscribers(t *testing.T) {
	n := NewNotifier(newMockLedger(), &mockEndpoints{byUser: map[string][]domain.PushEndpoint{}},
		&mockUsers{}, &mockPushSender{enabled: true}, nil, "")

	stats := n.Deliver(context.Background(), []reminders.Reminder{testReminder("sub-1", "u1")})

	assert.Equal(t, 1, stats.NoSubscribers)
	assert.Zero(t, stats.Delivered)
	assert.Zero(t, stats.Failed)
}

func TestNotifier_PrunesGoneEndpoints(t *testing.T) {
	ledger := newMockLedger()
	endpoints := &mockEndpoints{byUser: map[string][]domain.PushEndpoint{
		"u1": {endpoint("dead", "https://push/dead"), endpoint("live", "https://push/live")},
	}}
	sender := &mockPushSender{
		enabled: true,
		resultFor: map[string]push.SendResult{
			"https://push/dead": {Gone: true, StatusCode: 410},
		},
	}

	n := NewNotifier(ledger, endpoints, &mockUsers{}, sender, nil, "")
	stats := n.Deliver(context.Background(), []reminders.Reminder{testReminder("sub-1", "u1")})

	assert.Equal(t, 1, stats.Delivered)
	assert.Equal(t, 1, stats.Pruned)
	// The gone endpoint is deactivated, never removed: re-registration from
	// the same browser must be able to revive the row.
	assert.Equal(t, []string{"dead"}, endpoints.deactivated)
	for _, ep := range endpoints.byUser["u1"] {
		if ep.ID == "dead" {
			assert.False(t, ep.IsActive)
		}
	}
	assert.Len(t, ledger.records, 1)
}

func TestNotifier_AllSendsFailed(t *testing.T) {
	ledger := newMockLedger()
	endpoints := &mockEndpoints{byUser: map[string][]domain.PushEndpoint{
		"u1": {endpoint("ep1", "https://push/1")},
	}}
	sender := &mockPushSender{
		enabled: true,
		errFor:  map[string]error{"https://push/1": errors.New("connection refused")},
	}

	n := NewNotifier(ledger, endpoints, &mockUsers{}, sender, nil, "")
	stats := n.Deliver(context.Background(), []reminders.Reminder{testReminder("sub-1", "u1")})

	assert.Equal(t, 1, stats.Failed)
	// Nothing recorded; the next run retries.
	assert.Empty(t, ledger.records)
}

func TestNotifier_FailureIsolation(t *testing.T) {
	ledger := newMockLedger()
	endpoints := &mockEndpoints{byUser: map[string][]domain.PushEndpoint{
		"u1": {endpoint("ep1", "https://push/1")},
		"u2": {endpoint("ep2", "https://push/2")},
	}}
	sender := &mockPushSender{
		enabled: true,
		errFor:  map[string]error{"https://push/1": errors.New("boom")},
	}

	n := NewNotifier(ledger, endpoints, &mockUsers{}, sender, nil, "")
	stats := n.Deliver(context.Background(), []reminders.Reminder{
		testReminder("sub-1", "u1"),
		testReminder("sub-2", "u2"),
	})

	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Delivered)
}

func TestNotifier_EmailChannel(t *testing.T) {
	ledger := newMockLedger()
	users := &mockUsers{users: map[string]*domain.User{
		"u1": {ID: "u1", Email: "u1@example.com"},
	}}
	emailSender := &mockEmailSender{enabled: true}

	n := NewNotifier(ledger, &mockEndpoints{byUser: map[string][]domain.PushEndpoint{}},
		users, &mockPushSender{enabled: false}, emailSender, "")

	stats := n.Deliver(context.Background(), []reminders.Reminder{testReminder("sub-1", "u1")})

	assert.Equal(t, 1, stats.Delivered)
	assert.Equal(t, []string{"u1@example.com"}, emailSender.sent)
	require.Len(t, ledger.records, 1)
	assert.Equal(t, domain.ChannelEmail, ledger.records[0].Channel)
}

func TestNotifier_EmailSkipsUserWithoutAddress(t *testing.T) {
	ledger := newMockLedger()
	users := &mockUsers{users: map[string]*domain.User{
		"u1": {ID: "u1", Email: ""},
	}}
	emailSender := &mockEmailSender{enabled: true}

	n := NewNotifier(ledger, &mockEndpoints{byUser: map[string][]domain.PushEndpoint{}},
		users, &mockPushSender{enabled: false}, emailSender, "")

	stats := n.Deliver(context.Background(), []reminders.Reminder{testReminder("sub-1", "u1")})

	assert.Zero(t, stats.Delivered)
	assert.Zero(t, stats.Failed)
	assert.Equal(t, 1, stats.NoSubscribers)
	assert.Empty(t, emailSender.sent)
	assert.Empty(t, ledger.records)
}

func TestNotifier_BothChannelsIndependent(t *testing.T) {
	ledger := newMockLedger()
	rem := testReminder("sub-1", "u1")
	// Push already delivered earlier; email has not gone out yet.
	ledger.sent[ledgerKey{"sub-1", rem.Type, rem.BillingDate, domain.ChannelPush}] = true

	users := &mockUsers{users: map[string]*domain.User{
		"u1": {ID: "u1", Email: "u1@example.com"},
	}}
	endpoints := &mockEndpoints{byUser: map[string][]domain.PushEndpoint{
		"u1": {endpoint("ep1", "https://push/1")},
	}}
	emailSender := &mockEmailSender{enabled: true}

	n := NewNotifier(ledger, endpoints, users, &mockPushSender{enabled: true}, emailSender, "")
	stats := n.Deliver(context.Background(), []reminders.Reminder{rem})

	assert.Equal(t, 1, stats.AlreadySent)
	assert.Equal(t, 1, stats.Delivered)
	assert.Equal(t, []string{"u1@example.com"}, emailSender.sent)
}

func TestNotifier_RerunIsIdempotent(t *testing.T) {
	ledger := newMockLedger()
	endpoints := &mockEndpoints{byUser: map[string][]domain.PushEndpoint{
		"u1": {endpoint("ep1", "https://push/1")},
	}}
	sender := &mockPushSender{enabled: true}
	n := NewNotifier(ledger, endpoints, &mockUsers{}, sender, nil, "")

	items := []reminders.Reminder{testReminder("sub-1", "u1")}
	first := n.Deliver(context.Background(), items)
	second := n.Deliver(context.Background(), items)

	assert.Equal(t, 1, first.Delivered)
	assert.Equal(t, 1, second.AlreadySent)
	assert.Zero(t, second.Delivered)
	assert.Len(t, ledger.records, 1)
	assert.Len(t, sender.sends, 1)
}

func TestRunStats_Add(t *testing.T) {
	var total RunStats
	total.Add(RunStats{Processed: 2, Delivered: 1, Failed: 1})
	total.Add(RunStats{Processed: 3, AlreadySent: 2, NoSubscribers: 1})

	assert.Equal(t, RunStats{Processed: 5, Delivered: 1, AlreadySent: 2, NoSubscribers: 1, Failed: 1}, total)
}
