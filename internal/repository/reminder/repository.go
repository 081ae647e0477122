package reminder

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"rallypoint-bot/internal/models"
	"rallypoint-bot/internal/repository"
)

type reminderRepository struct {
	db *sqlx.DB
}

func NewReminderRepository(db *sqlx.DB) repository.ReminderRepository {
	return &reminderRepository{db: db}
}

// Insert adds one reminder row. The unique (event_id, offset_minutes) pair
// turns re-runs into no-ops; Insert reports false for those.
func (r *reminderRepository) Insert(ctx context.Context, rem *models.Reminder) (bool, error) {
	query := `
		INSERT INTO event_reminders (event_id, offset_minutes, fire_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id, offset_minutes) DO NOTHING
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query, rem.EventID, rem.OffsetMinutes, rem.FireAt.UTC()).Scan(&rem.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *reminderRepository) ListByEvent(ctx context.Context, eventID int64) ([]models.Reminder, error) {
	query := `
		SELECT id, event_id, offset_minutes, fire_at, fired
		FROM event_reminders
		WHERE event_id = $1
		ORDER BY offset_minutes DESC
	`

	var reminders []models.Reminder
	if err := r.db.SelectContext(ctx, &reminders, query, eventID); err != nil {
		return nil, err
	}
	return reminders, nil
}

func (r *reminderRepository) ListDue(ctx context.Context, from, to time.Time, limit int) ([]models.DueReminder, error) {
	query := `
		SELECT r.id, r.event_id, r.offset_minutes, r.fire_at,
		       e.channel_id, e.name AS event_name, e.start_at, e.notes
		FROM event_reminders r
		JOIN events e ON e.id = r.event_id
		WHERE NOT r.fired
		  AND e.status = $1
		  AND r.fire_at BETWEEN $2 AND $3
		ORDER BY r.fire_at ASC
		LIMIT $4
	`

	var due []models.DueReminder
	if err := r.db.SelectContext(ctx, &due, query, models.EventStatusActive, from.UTC(), to.UTC(), limit); err != nil {
		return nil, err
	}
	return due, nil
}

func (r *reminderRepository) MarkFired(ctx context.Context, id int64) error {
	query := `UPDATE event_reminders SET fired = TRUE WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *reminderRepository) DeleteByEventAndOffsets(ctx context.Context, eventID int64, offsets []int64) error {
	if len(offsets) == 0 {
		return nil
	}

	query := `DELETE FROM event_reminders WHERE event_id = $1 AND offset_minutes = ANY($2)`
	_, err := r.db.ExecContext(ctx, query, eventID, pq.Array(offsets))
	return err
}
