package reminders

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/krodit/krodit-server/internal/pkg/httputil"
)

// ClientSettings is the presentation policy clients apply when surfacing
// reminders: how many notifications may be shown per day and the minimum
// lead time before an alarm fires.
type ClientSettings struct {
	DailyDisplayLimit int `json:"daily_display_limit"`
	AlarmMinSeconds   int `json:"alarm_min_seconds"`
}

// Handler handles HTTP requests for the reminders module.
type Handler struct {
	service  *Service
	settings ClientSettings
}

// NewHandler creates a new reminders handler.
func NewHandler(service *Service, settings ClientSettings) *Handler {
	return &Handler{service: service, settings: settings}
}

// RegisterRoutes registers all HTTP routes for the reminders module.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/reminders", h.ListDue)
	r.Get("/reminders/settings", h.Settings)
}

// Settings handles GET /reminders/settings request. Clients fetch the
// server-configured presentation policy instead of hardcoding it.
func (h *Handler) Settings(w http.ResponseWriter, _ *http.Request) {
	httputil.Success(w, http.StatusOK, h.settings)
}

// ReminderResponse is the JSON shape of a pending reminder.
type ReminderResponse struct {
	SubscriptionID string    `json:"subscription_id"`
	Name           string    `json:"name"`
	Amount         string    `json:"amount"`
	Currency       string    `json:"currency"`
	Type           string    `json:"type"`
	Priority       string    `json:"priority"`
	BillingDate    time.Time `json:"billing_date"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	URL            string    `json:"url"`
	Tag            string    `json:"tag"`
}

// ListDue handles GET /reminders request. It returns the authenticated
// user's reminders due today or tomorrow.
func (h *Handler) ListDue(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r.Context())

	items, err := h.service.CollectDueForUser(r.Context(), userID)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, nil)
		return
	}

	out := make([]ReminderResponse, 0, len(items))
	for _, rem := range items {
		out = append(out, ReminderResponse{
			SubscriptionID: rem.Subscription.ID,
			Name:           rem.Subscription.Name,
			Amount:         rem.Subscription.Amount,
			Currency:       rem.Subscription.Currency,
			Type:           string(rem.Type),
			Priority:       Priority(rem.Type),
			BillingDate:    rem.BillingDate,
			Title:          rem.Title(),
			Body:           rem.Body(),
			URL:            rem.URL(),
			Tag:            rem.Tag(),
		})
	}
	httputil.Success(w, http.StatusOK, out)
}
