package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"festival-tracker-backend/internal/models"
	"festival-tracker-backend/internal/queue"
	"festival-tracker-backend/internal/repository"

	"github.com/rs/zerolog/log"
)

// Task types. A group task resolves recipients and fans out one device task
// each, so a failed delivery retries only its own device.
const (
	TaskTypeGroup  = "notify:group"
	TaskTypeDevice = "notify:device"
)

// QueueName is the queue group alerts are enqueued on
const QueueName = "notifications"

// Event kinds
const (
	KindFindMe       = "find_me"
	KindVoiceMessage = "voice_message"
	KindPhoto        = "photo"
	KindMemberJoined = "member_joined"
)

// GroupEvent is the task payload for TaskTypeGroup
type GroupEvent struct {
	GroupID     string `json:"group_id"`
	SenderEmail string `json:"sender_email"`
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	Body        string `json:"body"`
}

// DeviceAlert is the task payload for TaskTypeDevice
type DeviceAlert struct {
	UserID      string `json:"user_id"`
	DeviceToken string `json:"device_token"`
	Alert
}

// FindMeEvent builds the alert sent when a member asks to be found
func FindMeEvent(sender *models.User) GroupEvent {
	return GroupEvent{
		GroupID:     sender.Group(),
		SenderEmail: sender.Email,
		Kind:        KindFindMe,
		Title:       "Find me!",
		Body:        fmt.Sprintf("%s just shared their exact location", displayName(sender)),
	}
}

// VoiceMessageEvent builds the alert for a new voice message
func VoiceMessageEvent(sender *models.User, duration int) GroupEvent {
	return GroupEvent{
		GroupID:     sender.Group(),
		SenderEmail: sender.Email,
		Kind:        KindVoiceMessage,
		Title:       displayName(sender),
		Body:        fmt.Sprintf("Sent you a voice message (%ds)", duration),
	}
}

// PhotoEvent builds the alert for a new photo
func PhotoEvent(sender *models.User, caption *string) GroupEvent {
	body := "Shared a festival photo"
	if caption != nil && *caption != "" {
		body = *caption
	}
	return GroupEvent{
		GroupID:     sender.Group(),
		SenderEmail: sender.Email,
		Kind:        KindPhoto,
		Title:       displayName(sender),
		Body:        body,
	}
}

// MemberJoinedEvent builds the alert sent when someone joins with the code
func MemberJoinedEvent(member *models.User) GroupEvent {
	return GroupEvent{
		GroupID:     member.Group(),
		SenderEmail: member.Email,
		Kind:        KindMemberJoined,
		Title:       "You're connected",
		Body:        fmt.Sprintf("%s joined your group", displayName(member)),
	}
}

func displayName(u *models.User) string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return "Partner"
}

// Notifier schedules group alerts
type Notifier interface {
	Notify(ctx context.Context, ev GroupEvent) error
}

// Publisher enqueues group alerts on the task queue
type Publisher struct {
	client queue.Client
}

// NewPublisher creates a publisher backed by a queue client
func NewPublisher(client queue.Client) *Publisher {
	return &Publisher{client: client}
}

var _ Notifier = (*Publisher)(nil)

// Notify enqueues ev for background delivery
func (p *Publisher) Notify(ctx context.Context, ev GroupEvent) error {
	if err := enqueue(ctx, p.client, TaskTypeGroup, ev); err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}
	return nil
}

func enqueue(ctx context.Context, client queue.Client, taskType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", taskType, err)
	}
	_, err = client.Enqueue(ctx, queue.Task{Type: taskType, Payload: data}, queue.EnqueueOption{
		Queue:    QueueName,
		MaxRetry: 3,
		Deadline: time.Now().Add(2 * time.Minute),
	})
	return err
}

// Worker resolves group members and delivers alerts
type Worker struct {
	users  repository.UserRepositoryInterface
	sender Sender
	client queue.Client
}

// NewWorker creates a notification worker. client enqueues the per-device
// deliveries a group task fans out to.
func NewWorker(users repository.UserRepositoryInterface, sender Sender, client queue.Client) *Worker {
	return &Worker{users: users, sender: sender, client: client}
}

// Register binds the worker to its task types
func (w *Worker) Register(srv queue.Server) {
	srv.Register(TaskTypeGroup, w.HandleGroupEvent)
	srv.Register(TaskTypeDevice, w.HandleDeviceAlert)
}

// HandleGroupEvent enqueues one device task per member other than the
// sender. Only a failed member lookup is retried. Enqueue failures are logged
// and skipped so a retry never re-alerts members already scheduled.
func (w *Worker) HandleGroupEvent(ctx context.Context, task queue.Task) error {
	var ev GroupEvent
	if err := json.Unmarshal(task.Payload, &ev); err != nil {
		// malformed payloads will never succeed
		log.Error().Err(err).Msg("Dropping malformed notification task")
		return nil
	}

	members, err := w.users.ListByGroup(ctx, ev.GroupID)
	if err != nil {
		return fmt.Errorf("failed to list group members: %w", err)
	}

	alert := Alert{Title: ev.Title, Body: ev.Body, Kind: ev.Kind}
	for _, m := range members {
		if m.Email == ev.SenderEmail || m.PushToken == nil || *m.PushToken == "" {
			continue
		}
		da := DeviceAlert{UserID: m.ID, DeviceToken: *m.PushToken, Alert: alert}
		if err := enqueue(ctx, w.client, TaskTypeDevice, da); err != nil {
			log.Error().Err(err).Str("user_id", m.ID).Str("kind", ev.Kind).Msg("Failed to schedule alert")
		}
	}
	return nil
}

// HandleDeviceAlert delivers one alert. A device APNs reports as gone has its
// token cleared. Other failures are returned so only this delivery retries.
func (w *Worker) HandleDeviceAlert(ctx context.Context, task queue.Task) error {
	var da DeviceAlert
	if err := json.Unmarshal(task.Payload, &da); err != nil {
		log.Error().Err(err).Msg("Dropping malformed device alert")
		return nil
	}

	err := w.sender.Send(ctx, da.DeviceToken, da.Alert)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrDeviceGone):
		log.Info().Str("user_id", da.UserID).Msg("Clearing stale push token")
		if err := w.users.UpdatePushToken(ctx, da.UserID, nil); err != nil {
			log.Error().Err(err).Str("user_id", da.UserID).Msg("Failed to clear push token")
		}
		return nil
	default:
		log.Error().Err(err).Str("user_id", da.UserID).Str("kind", da.Kind).Msg("Failed to deliver alert")
		return err
	}
}
