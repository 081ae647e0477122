package rsvp

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"rallypoint-bot/internal/models"
	"rallypoint-bot/internal/repository"
)

type rsvpRepository struct {
	db *sqlx.DB
}

func NewRSVPRepository(db *sqlx.DB) repository.RSVPRepository {
	return &rsvpRepository{db: db}
}

func (r *rsvpRepository) Upsert(ctx context.Context, rsvp *models.RSVP) error {
	query := `
		INSERT INTO event_rsvps (event_id, user_id, choice, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_id, user_id) DO UPDATE SET
			choice = EXCLUDED.choice,
			updated_at = EXCLUDED.updated_at
	`
	rsvp.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, query, rsvp.EventID, rsvp.UserID, rsvp.Choice, rsvp.UpdatedAt)
	return err
}

func (r *rsvpRepository) CountsByEvent(ctx context.Context, eventID int64) (models.RSVPCounts, error) {
	query := `
		SELECT
			COUNT(CASE WHEN choice = $2 THEN 1 END) AS yes,
			COUNT(CASE WHEN choice = $3 THEN 1 END) AS no,
			COUNT(CASE WHEN choice = $4 THEN 1 END) AS maybe
		FROM event_rsvps
		WHERE event_id = $1
	`

	var counts models.RSVPCounts
	err := r.db.GetContext(ctx, &counts, query, eventID, models.RSVPYes, models.RSVPNo, models.RSVPMaybe)
	return counts, err
}

func (r *rsvpRepository) ListByEvent(ctx context.Context, eventID int64) ([]models.RSVP, error) {
	query := `
		SELECT event_id, user_id, choice, updated_at
		FROM event_rsvps
		WHERE event_id = $1
		ORDER BY updated_at ASC
	`

	var rsvps []models.RSVP
	if err := r.db.SelectContext(ctx, &rsvps, query, eventID); err != nil {
		return nil, err
	}
	return rsvps, nil
}
