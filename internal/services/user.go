package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"festival-tracker-backend/internal/apperr"
	"festival-tracker-backend/internal/cache"
	"festival-tracker-backend/internal/models"
	"festival-tracker-backend/internal/repository"
	"festival-tracker-backend/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// Session is returned on sign-up and sign-in
type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// UserService handles accounts and session tokens
type UserService struct {
	userRepo   repository.UserRepositoryInterface
	cache      cache.Cache
	hub        *WSHub
	jwtSecret  string
	tokenTTL   time.Duration
	bcryptCost int
	now        func() time.Time
}

// NewUserService creates a new user service. hub may be nil.
func NewUserService(userRepo repository.UserRepositoryInterface, c cache.Cache, hub *WSHub, jwtSecret string, expiryDays int) *UserService {
	return &UserService{
		userRepo:   userRepo,
		cache:      c,
		hub:        hub,
		jwtSecret:  jwtSecret,
		tokenTTL:   time.Duration(expiryDays) * 24 * time.Hour,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
}

// SignUp registers a new account and opens a session
func (s *UserService) SignUp(ctx context.Context, email, password, displayName string) (*Session, error) {
	email = validation.NormalizeEmail(email)
	if !validation.ValidateEmail(email) {
		return nil, apperr.ErrInvalidEmail
	}
	if !validation.ValidatePassword(password) {
		return nil, apperr.ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, apperr.Internal("failed to hash password", err)
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  validation.NormalizeName(displayName),
		CreatedAt:    s.now(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, apperr.ErrEmailTaken
		}
		return nil, apperr.Internal("failed to create user", err)
	}

	log.Info().Str("user_id", user.ID).Msg("User signed up")
	return s.openSession(user)
}

// SignIn verifies credentials and opens a session. Every mismatch yields the
// same error.
func (s *UserService) SignIn(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.userRepo.GetByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, apperr.Internal("failed to get user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.ErrInvalidCredentials
	}
	return s.openSession(user)
}

func (s *UserService) openSession(user *models.User) (*Session, error) {
	token, err := s.GenerateJWT(user.ID)
	if err != nil {
		return nil, apperr.Internal("failed to generate token", err)
	}
	return &Session{Token: token, User: user}, nil
}

// GenerateJWT generates a JWT token for a user
func (s *UserService) GenerateJWT(userID string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"jti":     uuid.New().String(),
		"exp":     now.Add(s.tokenTTL).Unix(),
		"iat":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

type tokenClaims struct {
	userID    string
	jti       string
	expiresAt time.Time
}

func (s *UserService) parseToken(tokenString string) (*tokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.jwtSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, apperr.ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apperr.ErrInvalidToken
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, apperr.ErrInvalidToken
	}
	jti, _ := claims["jti"].(string)
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, apperr.ErrInvalidToken
	}
	return &tokenClaims{userID: userID, jti: jti, expiresAt: exp.Time}, nil
}

// ValidateToken validates a session token and returns the user ID
func (s *UserService) ValidateToken(ctx context.Context, tokenString string) (string, error) {
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return "", err
	}
	if claims.jti == "" {
		return claims.userID, nil
	}

	_, err = s.cache.Get(ctx, cache.RevokedTokenKey(claims.jti))
	switch {
	case errors.Is(err, cache.ErrMiss):
		return claims.userID, nil
	case err != nil:
		return "", apperr.Internal("failed to check token revocation", err)
	default:
		return "", apperr.ErrInvalidToken
	}
}

// SignOut revokes the token until it would have expired and ends the
// user's live connection
func (s *UserService) SignOut(ctx context.Context, tokenString string) error {
	claims, err := s.parseToken(tokenString)
	if err != nil {
		return err
	}

	if claims.jti != "" {
		ttl := claims.expiresAt.Sub(s.now())
		if ttl > 0 {
			if err := s.cache.Set(ctx, cache.RevokedTokenKey(claims.jti), claims.userID, ttl); err != nil {
				return apperr.Internal("failed to revoke token", err)
			}
		}
	}

	if s.hub != nil {
		s.hub.Disconnect(claims.userID, WSMessage{Type: EventSessionEnded, UserID: claims.userID})
	}
	log.Info().Str("user_id", claims.userID).Msg("User signed out")
	return nil
}

// GetProfile returns a user by ID
func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, apperr.Internal("failed to get user", err)
	}
	return user, nil
}

// UpdatePushToken stores the device token used for push alerts. An empty
// token clears it.
func (s *UserService) UpdatePushToken(ctx context.Context, userID, pushToken string) error {
	var value *string
	if pushToken != "" {
		value = &pushToken
	}
	if err := s.userRepo.UpdatePushToken(ctx, userID, value); err != nil {
		return apperr.Internal("failed to update push token", err)
	}
	return nil
}
