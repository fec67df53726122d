package repository

import (
	"context"
	"errors"
	"time"

	"festival-tracker-backend/internal/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned when an insert hits a unique constraint
	ErrAlreadyExists = errors.New("record already exists")
)

// UserRepositoryInterface is the user store used by services
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, userID, displayName, groupID string) error
	UpdatePushToken(ctx context.Context, userID string, pushToken *string) error
	GroupExists(ctx context.Context, groupID string) (bool, error)
	ListByGroup(ctx context.Context, groupID string) ([]*models.User, error)
}

// LocationRepositoryInterface is the append-only location log
type LocationRepositoryInterface interface {
	Create(ctx context.Context, loc *models.LocationUpdate) error
	ListActive(ctx context.Context, groupID string, limit int) ([]*models.LocationUpdate, error)
	ListSince(ctx context.Context, groupID string, since time.Time) ([]*models.LocationUpdate, error)
	LatestByAuthor(ctx context.Context, groupID, email string) (*models.LocationUpdate, error)
}

// VoiceMessageRepositoryInterface stores voice message metadata
type VoiceMessageRepositoryInterface interface {
	Create(ctx context.Context, msg *models.VoiceMessage) error
	GetByID(ctx context.Context, id string) (*models.VoiceMessage, error)
	ListByGroup(ctx context.Context, groupID string, limit int) ([]*models.VoiceMessage, error)
	MarkPlayed(ctx context.Context, id string) (bool, error)
}

// PhotoRepositoryInterface stores photo metadata
type PhotoRepositoryInterface interface {
	Create(ctx context.Context, photo *models.FestivalPhoto) error
	ListByGroup(ctx context.Context, groupID string, limit int) ([]*models.FestivalPhoto, error)
}

var (
	_ UserRepositoryInterface         = (*UserRepository)(nil)
	_ LocationRepositoryInterface     = (*LocationRepository)(nil)
	_ VoiceMessageRepositoryInterface = (*VoiceMessageRepository)(nil)
	_ PhotoRepositoryInterface        = (*PhotoRepository)(nil)
)
