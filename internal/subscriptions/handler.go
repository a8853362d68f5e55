package subscriptions

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/krodit/krodit-server/internal/domain"
	"github.com/krodit/krodit-server/internal/pkg/httputil"
)

// Handler handles HTTP requests for the subscriptions module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new subscriptions handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers all HTTP routes for the subscriptions module.
// All routes require an authenticated user.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/subscriptions", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

// CreateSubscriptionRequest represents the request body for creating a subscription.
type CreateSubscriptionRequest struct {
	Name            string     `json:"name" validate:"required,min=1,max=255"`
	Amount          string     `json:"amount" validate:"required"`
	Currency        string     `json:"currency" validate:"omitempty,len=3"`
	BillingCycle    string     `json:"billing_cycle" validate:"omitempty,oneof=weekly monthly yearly one_time"`
	NextBillingDate *time.Time `json:"next_billing_date"`
	IsAutoRenew     bool       `json:"is_auto_renew"`
}

// UpdateSubscriptionRequest represents the request body for updating a subscription.
type UpdateSubscriptionRequest struct {
	Name            string     `json:"name" validate:"required,min=1,max=255"`
	Amount          string     `json:"amount" validate:"required"`
	Currency        string     `json:"currency" validate:"required,len=3"`
	BillingCycle    string     `json:"billing_cycle" validate:"required,oneof=weekly monthly yearly one_time"`
	NextBillingDate *time.Time `json:"next_billing_date"`
	IsActive        bool       `json:"is_active"`
	IsAutoRenew     bool       `json:"is_auto_renew"`
}

// SubscriptionResponse is the JSON shape of a subscription.
type SubscriptionResponse struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Amount          string     `json:"amount"`
	Currency        string     `json:"currency"`
	BillingCycle    string     `json:"billing_cycle"`
	NextBillingDate *time.Time `json:"next_billing_date"`
	IsActive        bool       `json:"is_active"`
	IsAutoRenew     bool       `json:"is_auto_renew"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func toResponse(sub *domain.Subscription) SubscriptionResponse {
	return SubscriptionResponse{
		ID:              sub.ID,
		Name:            sub.Name,
		Amount:          sub.Amount,
		Currency:        sub.Currency,
		BillingCycle:    string(sub.BillingCycle),
		NextBillingDate: sub.NextBillingDate,
		IsActive:        sub.IsActive,
		IsAutoRenew:     sub.IsAutoRenew,
		CreatedAt:       sub.CreatedAt,
		UpdatedAt:       sub.UpdatedAt,
	}
}

// Create handles POST /subscriptions request.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	userID := httputil.GetUserID(r.Context())
	sub, err := h.service.Create(r.Context(), userID, CreateInput{
		Name:            req.Name,
		Amount:          req.Amount,
		Currency:        req.Currency,
		BillingCycle:    req.BillingCycle,
		NextBillingDate: req.NextBillingDate,
		IsAutoRenew:     req.IsAutoRenew,
	})
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.Success(w, http.StatusCreated, toResponse(sub))
}

// Get handles GET /subscriptions/{id} request.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r.Context())

	sub, err := h.service.Get(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.Success(w, http.StatusOK, toResponse(sub))
}

// List handles GET /subscriptions request.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r.Context())

	subs, err := h.service.List(r.Context(), userID)
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	out := make([]SubscriptionResponse, 0, len(subs))
	for i := range subs {
		out = append(out, toResponse(&subs[i]))
	}
	httputil.Success(w, http.StatusOK, out)
}

// Update handles PUT /subscriptions/{id} request.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	userID := httputil.GetUserID(r.Context())
	sub, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), userID, UpdateInput{
		Name:            req.Name,
		Amount:          req.Amount,
		Currency:        req.Currency,
		BillingCycle:    req.BillingCycle,
		NextBillingDate: req.NextBillingDate,
		IsActive:        req.IsActive,
		IsAutoRenew:     req.IsAutoRenew,
	})
	if err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	httputil.Success(w, http.StatusOK, toResponse(sub))
}

// Delete handles DELETE /subscriptions/{id} request.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r.Context())

	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		h.handleServiceError(r, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleServiceError(r *http.Request, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httputil.Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidCycle):
		httputil.Error(w, http.StatusBadRequest, err.Error())
	default:
		httputil.HandleError(r.Context(), w, err, nil)
	}
}
