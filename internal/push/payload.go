// Package push delivers Web Push notifications and manages push endpoints.
package push

import "encoding/json"

// Payload is the JSON document delivered to the service worker. Tag lets the
// client replace or cancel notifications for the same subscription.
type Payload struct {
	Title string      `json:"title"`
	Body  string      `json:"body,omitempty"`
	Tag   string      `json:"tag"`
	Data  PayloadData `json:"data"`
}

// PayloadData carries routing fields the client uses when the notification
// is clicked or presented.
type PayloadData struct {
	SubscriptionID string `json:"subscriptionId"`
	ReminderType   string `json:"reminderType"`
	Priority       string `json:"priority"`
	URL            string `json:"url"`
}

// Encode serializes the payload for transmission.
func (p Payload) Encode() ([]byte, error) {
	return json.Marshal(p)
}
