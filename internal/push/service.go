package push

import (
	"context"

	"github.com/krodit/krodit-server/internal/domain"
)

// Service contains business logic for push endpoint registration.
type Service struct {
	repo Repository
}

// NewService creates a new push service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// SubscribeInput holds a browser push subscription as sent by the client.
type SubscribeInput struct {
	Endpoint  string
	P256DH    string
	Auth      string
	UserAgent string
}

// Subscribe registers or refreshes a push endpoint for the user.
func (s *Service) Subscribe(ctx context.Context, userID string, in SubscribeInput) (*domain.PushEndpoint, error) {
	endpoint := &domain.PushEndpoint{
		UserID:    userID,
		Endpoint:  in.Endpoint,
		P256DH:    in.P256DH,
		Auth:      in.Auth,
		UserAgent: in.UserAgent,
		IsActive:  true,
	}
	if err := s.repo.Upsert(ctx, endpoint); err != nil {
		return nil, err
	}
	return endpoint, nil
}

// Unsubscribe deactivates a push endpoint. Unsubscribing an unknown
// endpoint succeeds; the client's goal state is already met.
func (s *Service) Unsubscribe(ctx context.Context, userID, endpoint string) error {
	return s.repo.Deactivate(ctx, userID, endpoint)
}

// ActiveEndpoints returns the user's active endpoints for delivery.
func (s *Service) ActiveEndpoints(ctx context.Context, userID string) ([]domain.PushEndpoint, error) {
	return s.repo.ListActiveByUser(ctx, userID)
}
