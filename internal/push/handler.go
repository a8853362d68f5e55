package push

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/krodit/krodit-server/internal/pkg/httputil"
)

// Handler handles HTTP requests for push endpoint registration.
type Handler struct {
	service        *Service
	vapidPublicKey string
	validator      *validator.Validate
}

// NewHandler creates a new push handler. vapidPublicKey is exposed to
// clients so they can subscribe with the matching application server key.
func NewHandler(service *Service, vapidPublicKey string) *Handler {
	return &Handler{
		service:        service,
		vapidPublicKey: vapidPublicKey,
		validator:      validator.New(),
	}
}

// RegisterRoutes registers all HTTP routes for the push module.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/push", func(r chi.Router) {
		r.Get("/vapid-key", h.VAPIDKey)
		r.Post("/subscriptions", h.Subscribe)
		r.Delete("/subscriptions", h.Unsubscribe)
	})
}

// SubscribeRequest mirrors the browser PushSubscription JSON shape.
type SubscribeRequest struct {
	Endpoint string `json:"endpoint" validate:"required,url"`
	Keys     struct {
		P256DH string `json:"p256dh" validate:"required"`
		Auth   string `json:"auth" validate:"required"`
	} `json:"keys" validate:"required"`
	UserAgent string `json:"user_agent"`
}

// UnsubscribeRequest identifies the endpoint to deactivate.
type UnsubscribeRequest struct {
	Endpoint string `json:"endpoint" validate:"required,url"`
}

// VAPIDKey handles GET /push/vapid-key request.
func (h *Handler) VAPIDKey(w http.ResponseWriter, r *http.Request) {
	if h.vapidPublicKey == "" {
		httputil.Error(w, http.StatusServiceUnavailable, "push notifications are not configured")
		return
	}
	httputil.Success(w, http.StatusOK, map[string]string{"public_key": h.vapidPublicKey})
}

// Subscribe handles POST /push/subscriptions request.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	userID := httputil.GetUserID(r.Context())
	endpoint, err := h.service.Subscribe(r.Context(), userID, SubscribeInput{
		Endpoint:  req.Endpoint,
		P256DH:    req.Keys.P256DH,
		Auth:      req.Keys.Auth,
		UserAgent: req.UserAgent,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, nil)
		return
	}

	httputil.Success(w, http.StatusCreated, map[string]string{"id": endpoint.ID})
}

// Unsubscribe handles DELETE /push/subscriptions request.
func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req UnsubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	userID := httputil.GetUserID(r.Context())
	if err := h.service.Unsubscribe(r.Context(), userID, req.Endpoint); err != nil {
		httputil.HandleError(r.Context(), w, err, nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
