package services

import (
	"context"
	"errors"
	"io"
	"time"

	"festival-tracker-backend/internal/apperr"
	"festival-tracker-backend/internal/models"
	"festival-tracker-backend/internal/notify"
	"festival-tracker-backend/internal/repository"
	"festival-tracker-backend/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// VoiceService handles recorded clips shared within a group
type VoiceService struct {
	voiceRepo repository.VoiceMessageRepositoryInterface
	store     storage.ObjectStore
	notifier  notify.Notifier
	hub       *WSHub
	maxBytes  int64
	now       func() time.Time
}

// NewVoiceService creates a new voice service
func NewVoiceService(
	voiceRepo repository.VoiceMessageRepositoryInterface,
	store storage.ObjectStore,
	notifier notify.Notifier,
	hub *WSHub,
	maxBytes int64,
) *VoiceService {
	return &VoiceService{
		voiceRepo: voiceRepo,
		store:     store,
		notifier:  notifier,
		hub:       hub,
		maxBytes:  maxBytes,
		now:       time.Now,
	}
}

// SendVoice uploads a clip under the group's prefix and records it
func (s *VoiceService) SendVoice(ctx context.Context, user *models.User, body io.Reader, contentType string, duration int) (*models.VoiceMessage, error) {
	groupID, err := requireGroup(user)
	if err != nil {
		return nil, err
	}
	if duration < 0 {
		return nil, apperr.ErrInvalidDuration
	}
	ext, ok := storage.AudioExtension(contentType)
	if !ok {
		return nil, apperr.ErrUnsupportedMedia
	}

	data, err := io.ReadAll(io.LimitReader(body, s.maxBytes+1))
	if err != nil {
		return nil, apperr.Internal("failed to read audio", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, apperr.ErrUploadTooLarge
	}

	key := storage.ObjectKey(groupID, storage.KindVoice, ext, s.now())
	if err := s.store.Put(ctx, key, data, contentType); err != nil {
		return nil, apperr.Internal("failed to upload audio", err)
	}

	return s.create(ctx, user, groupID, s.store.PublicURL(key), duration)
}

// CreateVoice records a clip the client already uploaded with a pre-signed URL
func (s *VoiceService) CreateVoice(ctx context.Context, user *models.User, audioURL string, duration int) (*models.VoiceMessage, error) {
	groupID, err := requireGroup(user)
	if err != nil {
		return nil, err
	}
	if duration < 0 {
		return nil, apperr.ErrInvalidDuration
	}
	if !storage.URLInGroup(s.store, audioURL, groupID) {
		return nil, apperr.ErrMediaURLOutsideGroup
	}
	return s.create(ctx, user, groupID, audioURL, duration)
}

func (s *VoiceService) create(ctx context.Context, user *models.User, groupID, audioURL string, duration int) (*models.VoiceMessage, error) {
	msg := &models.VoiceMessage{
		ID:             uuid.New().String(),
		GroupID:        groupID,
		AudioURL:       audioURL,
		Duration:       duration,
		PartnerName:    authorName(user),
		CreatedByEmail: user.Email,
		CreatedAt:      s.now(),
	}
	if err := s.voiceRepo.Create(ctx, msg); err != nil {
		return nil, apperr.Internal("failed to save voice message", err)
	}

	if s.hub != nil {
		s.hub.BroadcastToGroup(groupID, WSMessage{Type: EventVoiceMessage, UserID: user.ID, Data: msg}, user.ID)
	}
	if err := s.notifier.Notify(ctx, notify.VoiceMessageEvent(user, duration)); err != nil {
		log.Error().Err(err).Str("group_id", groupID).Msg("Failed to schedule voice notification")
	}

	log.Info().Str("user_id", user.ID).Str("message_id", msg.ID).Int("duration", duration).Msg("Voice message sent")
	return msg, nil
}

// MarkPlayed flips the played flag the first time a non-author plays the
// message. The author playing their own message changes nothing.
func (s *VoiceService) MarkPlayed(ctx context.Context, user *models.User, messageID string) (*models.VoiceMessage, error) {
	groupID, err := requireGroup(user)
	if err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(messageID); err != nil {
		return nil, apperr.ErrMessageNotFound
	}

	msg, err := s.voiceRepo.GetByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ErrMessageNotFound
		}
		return nil, apperr.Internal("failed to get voice message", err)
	}
	if msg.GroupID != groupID {
		return nil, apperr.ErrMessageNotFound
	}
	if msg.CreatedByEmail == user.Email || msg.IsPlayed {
		return msg, nil
	}

	flipped, err := s.voiceRepo.MarkPlayed(ctx, messageID)
	if err != nil {
		return nil, apperr.Internal("failed to mark voice message played", err)
	}
	msg.IsPlayed = true

	if flipped && s.hub != nil {
		s.hub.BroadcastToGroup(groupID, WSMessage{Type: EventVoicePlayed, UserID: user.ID, Data: msg}, user.ID)
	}
	return msg, nil
}

// List returns the group's voice messages, newest first
func (s *VoiceService) List(ctx context.Context, user *models.User, limit int) ([]*models.VoiceMessage, error) {
	groupID, err := requireGroup(user)
	if err != nil {
		return nil, err
	}
	messages, err := s.voiceRepo.ListByGroup(ctx, groupID, feedLimit(limit))
	if err != nil {
		return nil, apperr.Internal("failed to list voice messages", err)
	}
	if messages == nil {
		messages = []*models.VoiceMessage{}
	}
	return messages, nil
}
