package push

import (
	"context"
	"fmt"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"golang.org/x/time/rate"

	"github.com/krodit/krodit-server/internal/domain"
)

// SenderConfig holds Web Push delivery settings.
type SenderConfig struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	// Subject is the mailto or https contact required by VAPID.
	Subject     string
	SendTimeout time.Duration
	// RatePerSecond caps outgoing requests to the push services.
	RatePerSecond float64
	TTL           int
}

// SendResult describes the outcome of one delivery attempt.
type SendResult struct {
	// Delivered is true when the push service accepted the message.
	Delivered bool
	// Gone is true when the endpoint no longer exists and should be pruned.
	Gone       bool
	StatusCode int
}

// Sender delivers payloads to push endpoints with VAPID authentication.
type Sender struct {
	cfg     SenderConfig
	limiter *rate.Limiter
}

// NewSender creates a new sender. When VAPID keys are not configured the
// sender is disabled and Send refuses to run.
func NewSender(cfg SenderConfig) *Sender {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 50
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * 60 * 60
	}
	return &Sender{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), int(cfg.RatePerSecond)),
	}
}

// Enabled reports whether VAPID keys are configured.
func (s *Sender) Enabled() bool {
	return s.cfg.VAPIDPublicKey != "" && s.cfg.VAPIDPrivateKey != ""
}

// Send delivers a payload to one endpoint. A non-2xx status is not an error;
// the caller inspects SendResult to decide about pruning.
func (s *Sender) Send(ctx context.Context, endpoint domain.PushEndpoint, payload []byte) (SendResult, error) {
	if !s.Enabled() {
		return SendResult{}, fmt.Errorf("push sender disabled: VAPID keys not configured")
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return SendResult{}, fmt.Errorf("rate limit wait: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	defer cancel()

	sub := &webpush.Subscription{
		Endpoint: endpoint.Endpoint,
		Keys: webpush.Keys{
			P256dh: endpoint.P256DH,
			Auth:   endpoint.Auth,
		},
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, sub, &webpush.Options{
		Subscriber:      s.cfg.Subject,
		VAPIDPublicKey:  s.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: s.cfg.VAPIDPrivateKey,
		TTL:             s.cfg.TTL,
	})
	if err != nil {
		return SendResult{}, fmt.Errorf("send push notification: %w", err)
	}
	defer resp.Body.Close()

	return classifyStatus(resp.StatusCode), nil
}

// classifyStatus maps a push service response to a delivery outcome.
// 404 and 410 mean the browser dropped the subscription.
func classifyStatus(code int) SendResult {
	result := SendResult{StatusCode: code}
	switch {
	case code >= 200 && code < 300:
		result.Delivered = true
	case code == http.StatusNotFound || code == http.StatusGone:
		result.Gone = true
	}
	return result
}
