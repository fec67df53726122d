package services

import (
	"context"
	"math"
	"time"

	"festival-tracker-backend/internal/apperr"
	"festival-tracker-backend/internal/cache"
	"festival-tracker-backend/internal/config"
	"festival-tracker-backend/internal/geo"
	"festival-tracker-backend/internal/models"
	"festival-tracker-backend/internal/notify"
	"festival-tracker-backend/internal/repository"
	"festival-tracker-backend/internal/tracker"
	"festival-tracker-backend/internal/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// LocationInput is one GPS fix as published by a client
type LocationInput struct {
	Latitude     float64    `json:"latitude"`
	Longitude    float64    `json:"longitude"`
	Accuracy     float64    `json:"accuracy"`
	BatteryLevel *int       `json:"battery_level"`
	IsActive     *bool      `json:"is_active"`
	CreatedAt    *time.Time `json:"created_at"`
}

func (in LocationInput) validate() error {
	if !validation.ValidCoordinates(in.Latitude, in.Longitude) {
		return apperr.ErrInvalidCoordinates
	}
	if in.Accuracy < 0 || math.IsNaN(in.Accuracy) {
		return apperr.ErrInvalidAccuracy
	}
	if in.BatteryLevel != nil && (*in.BatteryLevel < 0 || *in.BatteryLevel > 100) {
		return apperr.ErrInvalidBattery
	}
	return nil
}

// Summary is the server-derived map view for one member
type Summary struct {
	Me          *models.LocationUpdate `json:"me"`
	Partner     *models.LocationUpdate `json:"partner"`
	Distance    geo.Report             `json:"distance"`
	Center      geo.Point              `json:"center"`
	MyPath      []geo.Point            `json:"my_path,omitempty"`
	PartnerPath []geo.Point            `json:"partner_path,omitempty"`
}

// LocationService records fixes and serves the group's current and past positions
type LocationService struct {
	locationRepo repository.LocationRepositoryInterface
	cache        cache.Cache
	notifier     notify.Notifier
	hub          *WSHub
	activeLimit  int
	cacheTTL     time.Duration
	now          func() time.Time
}

// NewLocationService creates a new location service
func NewLocationService(
	locationRepo repository.LocationRepositoryInterface,
	c cache.Cache,
	notifier notify.Notifier,
	hub *WSHub,
	cfg config.TrackerConfig,
) *LocationService {
	return &LocationService{
		locationRepo: locationRepo,
		cache:        c,
		notifier:     notifier,
		hub:          hub,
		activeLimit:  cfg.ActiveLimit,
		cacheTTL:     cfg.ActivePollInterval,
		now:          time.Now,
	}
}

// Record appends a fix to the group's log. Identical fixes are stored again.
func (s *LocationService) Record(ctx context.Context, user *models.User, in LocationInput) (*models.LocationUpdate, error) {
	return s.record(ctx, user, in, false)
}

// FindMe records a fix outside the regular cadence and alerts the group
func (s *LocationService) FindMe(ctx context.Context, user *models.User, in LocationInput) (*models.LocationUpdate, error) {
	return s.record(ctx, user, in, true)
}

func (s *LocationService) record(ctx context.Context, user *models.User, in LocationInput, findMe bool) (*models.LocationUpdate, error) {
	groupID, err := requireGroup(user)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	createdAt := now
	if in.CreatedAt != nil && !in.CreatedAt.IsZero() && !in.CreatedAt.After(now) {
		createdAt = *in.CreatedAt
	}
	isActive := true
	if in.IsActive != nil {
		isActive = *in.IsActive
	}

	loc := &models.LocationUpdate{
		ID:             uuid.New().String(),
		GroupID:        groupID,
		Latitude:       in.Latitude,
		Longitude:      in.Longitude,
		Accuracy:       in.Accuracy,
		BatteryLevel:   in.BatteryLevel,
		PartnerName:    user.DisplayName,
		IsActive:       isActive,
		CreatedByEmail: user.Email,
		CreatedAt:      createdAt,
	}
	if err := s.locationRepo.Create(ctx, loc); err != nil {
		return nil, apperr.Internal("failed to record location", err)
	}

	if _, err := s.cache.Del(ctx, cache.ActiveLocationsKey(groupID)); err != nil {
		log.Warn().Err(err).Str("group_id", groupID).Msg("Failed to invalidate active locations")
	}

	if s.hub != nil {
		s.hub.BroadcastToGroup(groupID, WSMessage{Type: EventLocationUpdated, UserID: user.ID, Data: loc}, user.ID)
		if findMe {
			s.hub.BroadcastToGroup(groupID, WSMessage{Type: EventFindMe, UserID: user.ID, Data: loc}, user.ID)
		}
	}
	if findMe {
		if err := s.notifier.Notify(ctx, notify.FindMeEvent(user)); err != nil {
			log.Error().Err(err).Str("group_id", groupID).Msg("Failed to schedule find-me notification")
		}
		log.Info().Str("user_id", user.ID).Str("group_id", groupID).Msg("Find me requested")
	}

	return loc, nil
}

// Active returns the newest active rows for the caller's group, newest first
func (s *LocationService) Active(ctx context.Context, user *models.User) ([]*models.LocationUpdate, error) {
	groupID, err := requireGroup(user)
	if err != nil {
		return nil, err
	}

	key := cache.ActiveLocationsKey(groupID)
	var cached []*models.LocationUpdate
	hit, err := cache.GetJSON(ctx, s.cache, key, &cached)
	if err != nil {
		log.Warn().Err(err).Str("group_id", groupID).Msg("Active locations cache read failed")
	}
	if hit {
		return cached, nil
	}

	rows, err := s.locationRepo.ListActive(ctx, groupID, s.activeLimit)
	if err != nil {
		return nil, apperr.Internal("failed to get active locations", err)
	}
	if rows == nil {
		rows = []*models.LocationUpdate{}
	}

	if err := cache.SetJSON(ctx, s.cache, key, rows, s.cacheTTL); err != nil {
		log.Warn().Err(err).Str("group_id", groupID).Msg("Active locations cache write failed")
	}
	return rows, nil
}

// History returns the group's rows newer than now minus hours, newest first
func (s *LocationService) History(ctx context.Context, user *models.User, hours int) ([]*models.LocationUpdate, error) {
	groupID, err := requireGroup(user)
	if err != nil {
		return nil, err
	}
	if !validation.ValidHistoryPeriod(hours) {
		return nil, apperr.ErrInvalidHistoryPeriod
	}

	since := s.now().Add(-time.Duration(hours) * time.Hour)
	rows, err := s.locationRepo.ListSince(ctx, groupID, since)
	if err != nil {
		return nil, apperr.Internal("failed to get location history", err)
	}
	if rows == nil {
		rows = []*models.LocationUpdate{}
	}
	return rows, nil
}

// Summary derives the caller's map view. historyHours of zero omits paths.
func (s *LocationService) Summary(ctx context.Context, user *models.User, historyHours int) (*Summary, error) {
	active, err := s.Active(ctx, user)
	if err != nil {
		return nil, err
	}

	me := tracker.LatestByAuthor(active, user.Email)
	partner := tracker.PartnerLocation(active, user.Email)
	summary := &Summary{
		Me:       me,
		Partner:  partner,
		Distance: geo.Measure(tracker.FixOf(me), tracker.FixOf(partner)),
		Center:   tracker.Center(me),
	}

	if historyHours == 0 {
		return summary, nil
	}
	history, err := s.History(ctx, user, historyHours)
	if err != nil {
		return nil, err
	}
	mine, others := tracker.SplitHistory(history, user.Email)
	summary.MyPath = tracker.Path(mine)
	summary.PartnerPath = tracker.Path(others)
	return summary, nil
}

// LatestOwn returns the caller's newest row, or nil when they never shared
func (s *LocationService) LatestOwn(ctx context.Context, user *models.User) (*models.LocationUpdate, error) {
	groupID, err := requireGroup(user)
	if err != nil {
		return nil, err
	}
	loc, err := s.locationRepo.LatestByAuthor(ctx, groupID, user.Email)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, apperr.Internal("failed to get latest location", err)
	}
	return loc, nil
}
