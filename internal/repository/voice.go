package repository

import (
	"context"
	"errors"
	"fmt"

	"festival-tracker-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const voiceColumns = `id, group_id, audio_url, duration, partner_name, is_played, created_by_email, created_at`

// VoiceMessageRepository handles database operations for voice messages
type VoiceMessageRepository struct {
	db *pgxpool.Pool
}

// NewVoiceMessageRepository creates a new voice message repository
func NewVoiceMessageRepository(db *pgxpool.Pool) *VoiceMessageRepository {
	return &VoiceMessageRepository{db: db}
}

func scanVoiceMessage(row pgx.Row) (*models.VoiceMessage, error) {
	var msg models.VoiceMessage
	err := row.Scan(
		&msg.ID, &msg.GroupID, &msg.AudioURL, &msg.Duration, &msg.PartnerName,
		&msg.IsPlayed, &msg.CreatedByEmail, &msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// Create creates a new voice message
func (r *VoiceMessageRepository) Create(ctx context.Context, msg *models.VoiceMessage) error {
	query := `
		INSERT INTO voice_messages (` + voiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		msg.ID, msg.GroupID, msg.AudioURL, msg.Duration, msg.PartnerName,
		msg.IsPlayed, msg.CreatedByEmail, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create voice message: %w", err)
	}
	return nil
}

// GetByID retrieves a voice message by ID
func (r *VoiceMessageRepository) GetByID(ctx context.Context, id string) (*models.VoiceMessage, error) {
	query := `SELECT ` + voiceColumns + ` FROM voice_messages WHERE id = $1`
	msg, err := scanVoiceMessage(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("voice message %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get voice message: %w", err)
	}
	return msg, nil
}

// ListByGroup returns a group's voice messages, newest first. A limit of
// zero returns all of them.
func (r *VoiceMessageRepository) ListByGroup(ctx context.Context, groupID string, limit int) ([]*models.VoiceMessage, error) {
	query := `
		SELECT ` + voiceColumns + `
		FROM voice_messages
		WHERE group_id = $1
		ORDER BY created_at DESC
		LIMIT NULLIF($2::int, 0)
	`
	rows, err := r.db.Query(ctx, query, groupID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get voice messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*models.VoiceMessage, 0)
	for rows.Next() {
		msg, err := scanVoiceMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan voice message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating voice messages: %w", err)
	}
	return messages, nil
}

// MarkPlayed flips is_played to true. It reports false when the flag was already set.
func (r *VoiceMessageRepository) MarkPlayed(ctx context.Context, id string) (bool, error) {
	query := `UPDATE voice_messages SET is_played = TRUE WHERE id = $1 AND NOT is_played`
	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark voice message played: %w", err)
	}
	return result.RowsAffected() == 1, nil
}
