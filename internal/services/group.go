package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"festival-tracker-backend/internal/apperr"
	"festival-tracker-backend/internal/models"
	"festival-tracker-backend/internal/notify"
	"festival-tracker-backend/internal/repository"
	"festival-tracker-backend/internal/validation"

	"github.com/rs/zerolog/log"
)

const (
	codeLength      = 6
	codeChars       = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCodeAttempts = 10
)

// GroupService handles pairing: creating and joining groups by code
type GroupService struct {
	userRepo repository.UserRepositoryInterface
	notifier notify.Notifier
	hub      *WSHub
}

// NewGroupService creates a new group service
func NewGroupService(userRepo repository.UserRepositoryInterface, notifier notify.Notifier, hub *WSHub) *GroupService {
	return &GroupService{
		userRepo: userRepo,
		notifier: notifier,
		hub:      hub,
	}
}

// GenerateCode generates a random 6-character code
func GenerateCode() (string, error) {
	code := make([]byte, codeLength)
	limit := big.NewInt(int64(len(codeChars)))
	for i := range code {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}
		code[i] = codeChars[n.Int64()]
	}
	return string(code), nil
}

// GenerateUniqueCode generates a code no existing group uses
func (s *GroupService) GenerateUniqueCode(ctx context.Context) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := GenerateCode()
		if err != nil {
			return "", apperr.Internal("failed to generate code", err)
		}
		exists, err := s.userRepo.GroupExists(ctx, code)
		if err != nil {
			return "", apperr.Internal("failed to check code existence", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", apperr.ErrCodeSpaceExhausted
}

// CreateGroup pairs the user into a fresh group and returns the updated profile
func (s *GroupService) CreateGroup(ctx context.Context, userID, name string) (*models.User, error) {
	name = validation.NormalizeName(name)
	if name == "" {
		return nil, apperr.ErrNameRequired
	}

	code, err := s.GenerateUniqueCode(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.assign(ctx, userID, name, code)
	if err != nil {
		return nil, err
	}
	log.Info().Str("user_id", userID).Str("group_id", code).Msg("Group created")
	return user, nil
}

// JoinGroup pairs the user into the group named by code. Knowing the code is
// enough to join; an unknown code starts a group with one member.
func (s *GroupService) JoinGroup(ctx context.Context, userID, name, code string) (*models.User, error) {
	name = validation.NormalizeName(name)
	if name == "" {
		return nil, apperr.ErrNameRequired
	}
	code = validation.CanonicalGroupCode(code)
	if code == "" {
		return nil, apperr.ErrCodeRequired
	}
	if !validation.ValidGroupCode(code) {
		return nil, apperr.ErrInvalidCode
	}

	exists, err := s.userRepo.GroupExists(ctx, code)
	if err != nil {
		return nil, apperr.Internal("failed to check group existence", err)
	}
	if !exists {
		log.Info().Str("user_id", userID).Str("group_id", code).Msg("Joining a group with no other members")
	}

	user, err := s.assign(ctx, userID, name, code)
	if err != nil {
		return nil, err
	}

	if s.hub != nil {
		s.hub.BroadcastToGroup(code, WSMessage{
			Type:    EventMemberJoined,
			UserID:  user.ID,
			Message: user.DisplayName,
		}, user.ID)
	}
	if err := s.notifier.Notify(ctx, notify.MemberJoinedEvent(user)); err != nil {
		log.Error().Err(err).Str("group_id", code).Msg("Failed to schedule join notification")
	}

	log.Info().Str("user_id", userID).Str("group_id", code).Msg("Group joined")
	return user, nil
}

func (s *GroupService) assign(ctx context.Context, userID, name, code string) (*models.User, error) {
	if err := s.userRepo.UpdateProfile(ctx, userID, name, code); err != nil {
		if isNotFound(err) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, apperr.Internal("failed to update profile", err)
	}
	if s.hub != nil {
		s.hub.SetGroup(userID, code)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("failed to reload profile", err)
	}
	return user, nil
}

// Members returns every profile carrying the group code
func (s *GroupService) Members(ctx context.Context, user *models.User) ([]*models.User, error) {
	groupID, err := requireGroup(user)
	if err != nil {
		return nil, err
	}
	members, err := s.userRepo.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, apperr.Internal("failed to list members", err)
	}
	if members == nil {
		members = []*models.User{}
	}
	return members, nil
}
