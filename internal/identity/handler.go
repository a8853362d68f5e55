package identity

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

// Handler handles HTTP requests for the local user mirror.
type Handler struct {
	repo      Repository
	validator *validator.Validate
}

// NewHandler creates a new identity handler.
func NewHandler(repo Repository) *Handler {
	return &Handler{
		repo:      repo,
		validator: validator.New(),
	}
}

// RegisterRoutes registers the profile routes. All require an authenticated
// user.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/me", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Sync)
	})
}

// SyncProfileRequest carries the profile fields mirrored from the identity
// provider.
type SyncProfileRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=255"`
	Email string `json:"email" validate:"required,email"`
}

// ProfileResponse is the JSON shape of the local user record.
type ProfileResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Get handles GET /me request.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r.Context())

	user, err := h.repo.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			httputil.Error(w, http.StatusNotFound, "profile not synced yet")
			return
		}
		httputil.HandleError(r.Context(), w, err, nil)
		return
	}

	httputil.Success(w, http.StatusOK, ProfileResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	})
}

// Sync handles PUT /me request. The client calls this after sign-in so the
// reminder pipeline knows where to send email.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	var req SyncProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	user := &domain.User{
		ID:    httputil.GetUserID(r.Context()),
		Name:  req.Name,
		Email: req.Email,
	}
	if err := h.repo.Upsert(r.Context(), user); err != nil {
		httputil.HandleError(r.Context(), w, err, nil)
		return
	}

	httputil.Success(w, http.StatusOK, ProfileResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	})
}
