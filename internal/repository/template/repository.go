package template

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"rallypoint-bot/internal/models"
	"rallypoint-bot/internal/repository"
)

type templateRepository struct {
	db *sqlx.DB
}

func NewTemplateRepository(db *sqlx.DB) repository.TemplateRepository {
	return &templateRepository{db: db}
}

func (r *templateRepository) Create(ctx context.Context, t *models.EventTemplate) error {
	query := `
		INSERT INTO event_templates
			(guild_id, channel_id, name, notes, timezone, hour, minute, weekdays, horizon_weeks, enabled, remind_offsets)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRowContext(
		ctx,
		query,
		t.GuildID,
		t.ChannelID,
		t.Name,
		t.Notes,
		t.Timezone,
		t.Hour,
		t.Minute,
		t.Weekdays,
		t.HorizonWeeks,
		t.Enabled,
		t.RemindOffsets,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

func (r *templateRepository) GetByID(ctx context.Context, id int64) (*models.EventTemplate, error) {
	query := `
		SELECT id, guild_id, channel_id, name, notes, timezone, hour, minute,
		       weekdays, horizon_weeks, enabled, remind_offsets, created_at, updated_at
		FROM event_templates
		WHERE id = $1
	`

	t := &models.EventTemplate{}
	if err := r.db.GetContext(ctx, t, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

func (r *templateRepository) ListEnabled(ctx context.Context) ([]models.EventTemplate, error) {
	query := `
		SELECT id, guild_id, channel_id, name, notes, timezone, hour, minute,
		       weekdays, horizon_weeks, enabled, remind_offsets, created_at, updated_at
		FROM event_templates
		WHERE enabled
		ORDER BY id
	`

	var templates []models.EventTemplate
	if err := r.db.SelectContext(ctx, &templates, query); err != nil {
		return nil, err
	}
	return templates, nil
}

func (r *templateRepository) ListByGuild(ctx context.Context, guildID string) ([]models.EventTemplate, error) {
	query := `
		SELECT id, guild_id, channel_id, name, notes, timezone, hour, minute,
		       weekdays, horizon_weeks, enabled, remind_offsets, created_at, updated_at
		FROM event_templates
		WHERE guild_id = $1
		ORDER BY id DESC
	`

	var templates []models.EventTemplate
	if err := r.db.SelectContext(ctx, &templates, query, guildID); err != nil {
		return nil, err
	}
	return templates, nil
}

func (r *templateRepository) UpdatePartial(ctx context.Context, id int64, patch models.TemplatePatch) error {
	sets, args := SetClauses(patch)
	if len(sets) == 0 {
		return nil
	}

	args = append(args, time.Now().UTC())
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))

	args = append(args, id)
	query := fmt.Sprintf(
		"UPDATE event_templates SET %s WHERE id = $%d",
		strings.Join(sets, ", "), len(args),
	)

	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// SetClauses maps a TemplatePatch onto SQL SET clauses. Column names are
// fixed per field here, which is the whole allowed-fields contract.
func SetClauses(patch models.TemplatePatch) ([]string, []interface{}) {
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
	if patch.Timezone != nil {
		add("timezone", *patch.Timezone)
	}
	if patch.Hour != nil {
		add("hour", *patch.Hour)
	}
	if patch.Minute != nil {
		add("minute", *patch.Minute)
	}
	if patch.Weekdays != nil {
		add("weekdays", *patch.Weekdays)
	}
	if patch.HorizonWeeks != nil {
		add("horizon_weeks", *patch.HorizonWeeks)
	}
	if patch.RemindOffsets != nil {
		add("remind_offsets", pq.Int64Array(*patch.RemindOffsets))
	}

	return sets, args
}

func (r *templateRepository) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	query := `UPDATE event_templates SET enabled = $1, updated_at = now() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, enabled, id)
	return err
}

func (r *templateRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM event_templates WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
