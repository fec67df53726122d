package repository

import (
	"context"
	"fmt"

	"festival-tracker-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

const photoColumns = `id, group_id, image_url, caption, partner_name, latitude, longitude, created_by_email, created_at`

// PhotoRepository handles database operations for photos
type PhotoRepository struct {
	db *pgxpool.Pool
}

// NewPhotoRepository creates a new photo repository
func NewPhotoRepository(db *pgxpool.Pool) *PhotoRepository {
	return &PhotoRepository{db: db}
}

// Create creates a new photo
func (r *PhotoRepository) Create(ctx context.Context, photo *models.FestivalPhoto) error {
	query := `
		INSERT INTO festival_photos (` + photoColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		photo.ID, photo.GroupID, photo.ImageURL, photo.Caption, photo.PartnerName,
		photo.Latitude, photo.Longitude, photo.CreatedByEmail, photo.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create photo: %w", err)
	}
	return nil
}

// ListByGroup retrieves a group's photos, newest first. A limit of zero
// returns all of them.
func (r *PhotoRepository) ListByGroup(ctx context.Context, groupID string, limit int) ([]*models.FestivalPhoto, error) {
	query := `
		SELECT ` + photoColumns + `
		FROM festival_photos
		WHERE group_id = $1
		ORDER BY created_at DESC
		LIMIT NULLIF($2::int, 0)
	`
	rows, err := r.db.Query(ctx, query, groupID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get photos: %w", err)
	}
	defer rows.Close()

	photos := make([]*models.FestivalPhoto, 0)
	for rows.Next() {
		var photo models.FestivalPhoto
		err := rows.Scan(
			&photo.ID, &photo.GroupID, &photo.ImageURL, &photo.Caption, &photo.PartnerName,
			&photo.Latitude, &photo.Longitude, &photo.CreatedByEmail, &photo.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos = append(photos, &photo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating photos: %w", err)
	}

	return photos, nil
}
