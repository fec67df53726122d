package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"festival-tracker-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const locationColumns = `id, group_id, latitude, longitude, accuracy, battery_level,
	partner_name, is_active, created_by_email, created_at`

// LocationRepository handles database operations for location updates
type LocationRepository struct {
	db *pgxpool.Pool
}

// NewLocationRepository creates a new location repository
func NewLocationRepository(db *pgxpool.Pool) *LocationRepository {
	return &LocationRepository{db: db}
}

func scanLocation(row pgx.Row) (*models.LocationUpdate, error) {
	var loc models.LocationUpdate
	err := row.Scan(
		&loc.ID, &loc.GroupID, &loc.Latitude, &loc.Longitude, &loc.Accuracy,
		&loc.BatteryLevel, &loc.PartnerName, &loc.IsActive, &loc.CreatedByEmail,
		&loc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

func collectLocations(rows pgx.Rows) ([]*models.LocationUpdate, error) {
	defer rows.Close()

	locations := make([]*models.LocationUpdate, 0)
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locations = append(locations, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating locations: %w", err)
	}
	return locations, nil
}

// Create appends a location update. Rows are never updated afterwards.
func (r *LocationRepository) Create(ctx context.Context, loc *models.LocationUpdate) error {
	query := `
		INSERT INTO location_updates (` + locationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query,
		loc.ID, loc.GroupID, loc.Latitude, loc.Longitude, loc.Accuracy,
		loc.BatteryLevel, loc.PartnerName, loc.IsActive, loc.CreatedByEmail,
		loc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create location update: %w", err)
	}
	return nil
}

// ListActive returns the newest active rows for a group
func (r *LocationRepository) ListActive(ctx context.Context, groupID string, limit int) ([]*models.LocationUpdate, error) {
	query := `
		SELECT ` + locationColumns + `
		FROM location_updates
		WHERE group_id = $1 AND is_active
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, groupID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get active locations: %w", err)
	}
	return collectLocations(rows)
}

// ListSince returns every row for a group strictly newer than since, newest first
func (r *LocationRepository) ListSince(ctx context.Context, groupID string, since time.Time) ([]*models.LocationUpdate, error) {
	query := `
		SELECT ` + locationColumns + `
		FROM location_updates
		WHERE group_id = $1 AND created_at > $2
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, groupID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get location history: %w", err)
	}
	return collectLocations(rows)
}

// LatestByAuthor returns the newest row written by email in a group
func (r *LocationRepository) LatestByAuthor(ctx context.Context, groupID, email string) (*models.LocationUpdate, error) {
	query := `
		SELECT ` + locationColumns + `
		FROM location_updates
		WHERE group_id = $1 AND created_by_email = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	loc, err := scanLocation(r.db.QueryRow(ctx, query, groupID, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("latest location for %s: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get latest location: %w", err)
	}
	return loc, nil
}
