package event

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"rallypoint-bot/internal/models"
	"rallypoint-bot/internal/repository"
)

type eventRepository struct {
	db *sqlx.DB
}

func NewEventRepository(db *sqlx.DB) repository.EventRepository {
	return &eventRepository{db: db}
}

// Create inserts one event. For template-backed events the partial unique
// index on (template_id, start_at) absorbs duplicates: the insert becomes a
// no-op and Create reports false. One-off events (nil template) never
// conflict.
func (r *eventRepository) Create(ctx context.Context, e *models.Event) (bool, error) {
	query := `
		INSERT INTO events (template_id, channel_id, name, notes, start_at, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (template_id, start_at) WHERE template_id IS NOT NULL DO NOTHING
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(
		ctx,
		query,
		e.TemplateID,
		e.ChannelID,
		e.Name,
		e.Notes,
		e.StartAt.UTC(),
		e.Status,
	).Scan(&e.ID, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *eventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	query := `
		SELECT id, template_id, channel_id, name, notes, start_at, status, created_at
		FROM events
		WHERE id = $1
	`

	e := &models.Event{}
	if err := r.db.GetContext(ctx, e, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) ListUpcoming(ctx context.Context, from time.Time, limit int) ([]models.Event, error) {
	query := `
		SELECT id, template_id, channel_id, name, notes, start_at, status, created_at
		FROM events
		WHERE status = $1 AND start_at >= $2
		ORDER BY start_at ASC
		LIMIT $3
	`

	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, models.EventStatusActive, from.UTC(), limit); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *eventRepository) UpdatePartial(ctx context.Context, id int64, patch models.EventPatch) error {
	sets, args := SetClauses(patch)
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf(
		"UPDATE events SET %s WHERE id = $%d",
		strings.Join(sets, ", "), len(args),
	)

	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// SetClauses maps an EventPatch onto SQL SET clauses. Status is not
// patchable; MarkEnded is the only status transition.
func SetClauses(patch models.EventPatch) ([]string, []interface{}) {
	var sets []string
	var args []interface{}

	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Notes != nil {
		add("notes", *patch.Notes)
	}
	if patch.StartAt != nil {
		add("start_at", patch.StartAt.UTC())
	}

	return sets, args
}

func (r *eventRepository) MarkEnded(ctx context.Context, id int64) error {
	query := `UPDATE events SET status = $1 WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, models.EventStatusEnded, id)
	return err
}

func (r *eventRepository) DeleteFutureByTemplate(ctx context.Context, templateID int64, from time.Time) (int64, error) {
	query := `
		DELETE FROM events
		WHERE template_id = $1 AND status = $2 AND start_at > $3
	`

	res, err := r.db.ExecContext(ctx, query, templateID, models.EventStatusActive, from.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
