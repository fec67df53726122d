// Package notify delivers push alerts to group members outside the app.
package notify

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
)

// ErrDeviceGone means the device token is no longer valid and should be cleared.
var ErrDeviceGone = errors.New("device token no longer valid")

// Alert is a user-visible push notification
type Alert struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Kind  string `json:"kind"`
}

// Sender delivers an alert to a single device
type Sender interface {
	Send(ctx context.Context, deviceToken string, alert Alert) error
}

// LogSender only logs alerts. It is used when push delivery is disabled.
type LogSender struct{}

func (LogSender) Send(_ context.Context, deviceToken string, alert Alert) error {
	log.Info().
		Str("kind", alert.Kind).
		Str("title", alert.Title).
		Int("token_len", len(deviceToken)).
		Msg("Push delivery disabled, alert logged")
	return nil
}
