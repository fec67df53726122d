package services

import (
	"context"
	"strings"
	"time"

	"festival-tracker-backend/internal/apperr"
	"festival-tracker-backend/internal/models"
	"festival-tracker-backend/internal/storage"
)

const presignExpiry = 5 * time.Minute

var photoExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// UploadTicket lets a client PUT a blob straight to object storage
type UploadTicket struct {
	UploadURL string `json:"upload_url"`
	PublicURL string `json:"public_url"`
	Key       string `json:"key"`
	ExpiresIn int    `json:"expires_in"`
}

// MediaService issues direct-upload URLs scoped to the caller's group
type MediaService struct {
	store storage.ObjectStore
	now   func() time.Time
}

// NewMediaService creates a new media service
func NewMediaService(store storage.ObjectStore) *MediaService {
	return &MediaService{store: store, now: time.Now}
}

// PresignUpload generates a pre-signed URL for uploading a voice clip or photo
func (s *MediaService) PresignUpload(ctx context.Context, user *models.User, kind, contentType string) (*UploadTicket, error) {
	groupID, err := requireGroup(user)
	if err != nil {
		return nil, err
	}

	var ext string
	var ok bool
	switch kind {
	case storage.KindVoice:
		ext, ok = storage.AudioExtension(contentType)
	case storage.KindPhoto:
		ext, ok = photoExtensions[strings.ToLower(strings.TrimSpace(contentType))]
	}
	if !ok {
		return nil, apperr.ErrUnsupportedMedia
	}

	key := storage.ObjectKey(groupID, kind, ext, s.now())
	uploadURL, err := s.store.PresignPut(ctx, key, contentType, presignExpiry)
	if err != nil {
		return nil, apperr.Internal("failed to generate upload url", err)
	}

	return &UploadTicket{
		UploadURL: uploadURL,
		PublicURL: s.store.PublicURL(key),
		Key:       key,
		ExpiresIn: int(presignExpiry.Seconds()),
	}, nil
}

// feedLimit maps a caller's limit onto the repository convention where zero
// returns the whole feed
func feedLimit(limit int) int {
	return max(limit, 0)
}
