package notify

import (
	"context"
	"fmt"

	"festival-tracker-backend/internal/config"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

// APNsSender delivers alerts through Apple Push Notification service with
// token-based authentication.
type APNsSender struct {
	client *apns2.Client
	topic  string
}

// NewAPNsSender loads the .p8 signing key and builds a client for the
// configured environment.
func NewAPNsSender(cfg config.APNsConfig) (*APNsSender, error) {
	authKey, err := token.AuthKeyFromFile(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs key: %w", err)
	}

	client := apns2.NewTokenClient(&token.Token{
		AuthKey: authKey,
		KeyID:   cfg.KeyID,
		TeamID:  cfg.TeamID,
	})
	if cfg.Production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &APNsSender{client: client, topic: cfg.Topic}, nil
}

var _ Sender = (*APNsSender)(nil)

// Send pushes one alert. Tokens APNs reports as gone return ErrDeviceGone.
func (s *APNsSender) Send(ctx context.Context, deviceToken string, alert Alert) error {
	res, err := s.client.PushWithContext(ctx, &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       s.topic,
		Payload:     buildPayload(alert),
		Priority:    apns2.PriorityHigh,
	})
	if err != nil {
		return fmt.Errorf("failed to push notification: %w", err)
	}
	if res.Sent() {
		return nil
	}

	switch res.Reason {
	case apns2.ReasonBadDeviceToken, apns2.ReasonUnregistered, apns2.ReasonDeviceTokenNotForTopic:
		return fmt.Errorf("%w: %s", ErrDeviceGone, res.Reason)
	}
	return fmt.Errorf("apns rejected notification: %d %s", res.StatusCode, res.Reason)
}

func buildPayload(alert Alert) *payload.Payload {
	p := payload.NewPayload().
		AlertTitle(alert.Title).
		AlertBody(alert.Body).
		Sound("default")
	if alert.Kind != "" {
		p.Custom("kind", alert.Kind)
	}
	return p
}
