package repository

import (
	"context"
	"time"

	"rallypoint-bot/internal/models"
)

type TemplateRepository interface {
	Create(ctx context.Context, t *models.EventTemplate) error
	GetByID(ctx context.Context, id int64) (*models.EventTemplate, error)
	ListEnabled(ctx context.Context) ([]models.EventTemplate, error)
	ListByGuild(ctx context.Context, guildID string) ([]models.EventTemplate, error)
	UpdatePartial(ctx context.Context, id int64, patch models.TemplatePatch) error
	SetEnabled(ctx context.Context, id int64, enabled bool) error
	Delete(ctx context.Context, id int64) error
}

type EventRepository interface {
	// Create inserts the event and reports false when the
	// (template_id, start_at) pair already exists. A conflict is the
	// expected outcome of repeated generation, not an error.
	Create(ctx context.Context, e *models.Event) (bool, error)
	GetByID(ctx context.Context, id int64) (*models.Event, error)
	ListUpcoming(ctx context.Context, from time.Time, limit int) ([]models.Event, error)
	UpdatePartial(ctx context.Context, id int64, patch models.EventPatch) error
	MarkEnded(ctx context.Context, id int64) error
	DeleteFutureByTemplate(ctx context.Context, templateID int64, from time.Time) (int64, error)
}

type ReminderRepository interface {
	// Insert reports false when the (event_id, offset_minutes) pair
	// already exists.
	Insert(ctx context.Context, r *models.Reminder) (bool, error)
	ListByEvent(ctx context.Context, eventID int64) ([]models.Reminder, error)
	// ListDue returns unfired reminders of ACTIVE events with fire_at in
	// [from, to], ascending by fire_at, at most limit rows.
	ListDue(ctx context.Context, from, to time.Time, limit int) ([]models.DueReminder, error)
	MarkFired(ctx context.Context, id int64) error
	DeleteByEventAndOffsets(ctx context.Context, eventID int64, offsets []int64) error
}

type RSVPRepository interface {
	// Upsert records one response; a repeated (event_id, user_id) pair
	// replaces the stored choice.
	Upsert(ctx context.Context, r *models.RSVP) error
	CountsByEvent(ctx context.Context, eventID int64) (models.RSVPCounts, error)
	ListByEvent(ctx context.Context, eventID int64) ([]models.RSVP, error)
}
