package push

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krodit/krodit-server/internal/domain"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name      string
		code      int
		delivered bool
		gone      bool
	}{
		{"created", 201, true, false},
		{"ok", 200, true, false},
		{"not found prunes", 404, false, true},
		{"gone prunes", 410, false, true},
		{"too many requests", 429, false, false},
		{"server error", 500, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyStatus(tt.code)
			assert.Equal(t, tt.delivered, got.Delivered)
			assert.Equal(t, tt.gone, got.Gone)
			assert.Equal(t, tt.code, got.StatusCode)
		})
	}
}

func TestSender_DisabledWithoutKeys(t *testing.T) {
	sender := NewSender(SenderConfig{})
	assert.False(t, sender.Enabled())

	_, err := sender.Send(context.Background(), domain.PushEndpoint{}, []byte("{}"))
	assert.Error(t, err)
}

func TestPayload_Encode(t *testing.T) {
	payload := Payload{
		Title: "Streaming renews today",
		Body:  "$9.99 will be charged today.",
		Tag:   "reminder-sub-42-today",
		Data: PayloadData{
			SubscriptionID: "sub-42",
			ReminderType:   "today",
			Priority:       "high",
			URL:            "/subscriptions/sub-42",
		},
	}

	raw, err := payload.Encode()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, "reminder-sub-42-today", decoded["tag"])
	data, ok := decoded["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "sub-42", data["subscriptionId"])
	assert.Equal(t, "high", data["priority"])
	assert.Equal(t, "/subscriptions/sub-42", data["url"])
}
