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
	"festival-tracker-backend/internal/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const maxCaptionLength = 500

// PhotoInput carries the optional fields of a shared photo
type PhotoInput struct {
	Caption   *string  `json:"caption"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (in PhotoInput) normalize() (PhotoInput, error) {
	if in.Caption != nil {
		caption := validation.TrimAndLimit(*in.Caption, maxCaptionLength)
		if caption == "" {
			in.Caption = nil
		} else {
			in.Caption = &caption
		}
	}
	if (in.Latitude == nil) != (in.Longitude == nil) {
		return in, apperr.ErrInvalidCoordinates
	}
	if in.Latitude != nil && !validation.ValidCoordinates(*in.Latitude, *in.Longitude) {
		return in, apperr.ErrInvalidCoordinates
	}
	return in, nil
}

// PhotoService handles photo-related business logic
type PhotoService struct {
	photoRepo    repository.PhotoRepositoryInterface
	locationRepo repository.LocationRepositoryInterface
	store        storage.ObjectStore
	notifier     notify.Notifier
	hub          *WSHub
	imageOpts    storage.PhotoOptions
	now          func() time.Time
}

// NewPhotoService creates a new photo service
func NewPhotoService(
	photoRepo repository.PhotoRepositoryInterface,
	locationRepo repository.LocationRepositoryInterface,
	store storage.ObjectStore,
	notifier notify.Notifier,
	hub *WSHub,
	maxBytes int64,
) *PhotoService {
	opts := storage.DefaultPhotoOptions()
	opts.MaxBytes = maxBytes
	return &PhotoService{
		photoRepo:    photoRepo,
		locationRepo: locationRepo,
		store:        store,
		notifier:     notifier,
		hub:          hub,
		imageOpts:    opts,
		now:          time.Now,
	}
}

// SendPhoto normalizes an uploaded image to JPEG, stores it under the
// group's prefix and records it. Without a geotag the caller's latest
// location is used when there is one.
func (s *PhotoService) SendPhoto(ctx context.Context, user *models.User, body io.Reader, in PhotoInput) (*models.FestivalPhoto, error) {
	groupID, err := requireGroup(user)
	if err != nil {
		return nil, err
	}
	in, err = in.normalize()
	if err != nil {
		return nil, err
	}

	data, err := storage.ProcessPhoto(body, s.imageOpts)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrTooLarge):
			return nil, apperr.ErrUploadTooLarge
		case errors.Is(err, storage.ErrUnsupported), errors.Is(err, storage.ErrInvalidImage):
			return nil, apperr.ErrUnsupportedMedia
		default:
			return nil, apperr.Wrap(apperr.CodeInvalidArgument, "could not read image", err)
		}
	}

	key := storage.ObjectKey(groupID, storage.KindPhoto, "jpg", s.now())
	if err := s.store.Put(ctx, key, data, "image/jpeg"); err != nil {
		return nil, apperr.Internal("failed to upload photo", err)
	}

	return s.create(ctx, user, groupID, s.store.PublicURL(key), in)
}

// CreatePhoto records a photo the client already uploaded with a pre-signed URL
func (s *PhotoService) CreatePhoto(ctx context.Context, user *models.User, imageURL string, in PhotoInput) (*models.FestivalPhoto, error) {
	groupID, err := requireGroup(user)
	if err != nil {
		return nil, err
	}
	in, err = in.normalize()
	if err != nil {
		return nil, err
	}
	if !storage.URLInGroup(s.store, imageURL, groupID) {
		return nil, apperr.ErrMediaURLOutsideGroup
	}
	return s.create(ctx, user, groupID, imageURL, in)
}

func (s *PhotoService) create(ctx context.Context, user *models.User, groupID, imageURL string, in PhotoInput) (*models.FestivalPhoto, error) {
	if in.Latitude == nil {
		s.applyDefaultGeotag(ctx, user, groupID, &in)
	}

	photo := &models.FestivalPhoto{
		ID:             uuid.New().String(),
		GroupID:        groupID,
		ImageURL:       imageURL,
		Caption:        in.Caption,
		PartnerName:    authorName(user),
		Latitude:       in.Latitude,
		Longitude:      in.Longitude,
		CreatedByEmail: user.Email,
		CreatedAt:      s.now(),
	}
	if err := s.photoRepo.Create(ctx, photo); err != nil {
		return nil, apperr.Internal("failed to save photo", err)
	}

	if s.hub != nil {
		s.hub.BroadcastToGroup(groupID, WSMessage{Type: EventPhoto, UserID: user.ID, Data: photo}, user.ID)
	}
	if err := s.notifier.Notify(ctx, notify.PhotoEvent(user, photo.Caption)); err != nil {
		log.Error().Err(err).Str("group_id", groupID).Msg("Failed to schedule photo notification")
	}

	log.Info().Str("user_id", user.ID).Str("photo_id", photo.ID).Msg("Photo shared")
	return photo, nil
}

func (s *PhotoService) applyDefaultGeotag(ctx context.Context, user *models.User, groupID string, in *PhotoInput) {
	loc, err := s.locationRepo.LatestByAuthor(ctx, groupID, user.Email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Warn().Err(err).Str("user_id", user.ID).Msg("Failed to look up photo geotag")
		}
		return
	}
	lat, lon := loc.Latitude, loc.Longitude
	in.Latitude, in.Longitude = &lat, &lon
}

// List returns the group's photos, newest first
func (s *PhotoService) List(ctx context.Context, user *models.User, limit int) ([]*models.FestivalPhoto, error) {
	groupID, err := requireGroup(user)
	if err != nil {
		return nil, err
	}
	photos, err := s.photoRepo.ListByGroup(ctx, groupID, feedLimit(limit))
	if err != nil {
		return nil, apperr.Internal("failed to list photos", err)
	}
	if photos == nil {
		photos = []*models.FestivalPhoto{}
	}
	return photos, nil
}
