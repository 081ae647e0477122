package service

import (
	"context"
	"time"

	"rallypoint-bot/internal/models"
)

// CreateTemplateInput carries raw caller input for a new recurring template.
// Weekdays and TimeOfDay are validated and canonicalized before any write.
type CreateTemplateInput struct {
	GuildID       string
	ChannelID     string
	Name          string
	Notes         *string
	Timezone      string
	TimeOfDay     string // "HH:MM", 24-hour
	Weekdays      string // CSV, e.g. "wed,sun"
	HorizonWeeks  int
	RemindOffsets []int64 // nil -> configured default
}

// CreateEventInput carries caller input for a one-off event.
type CreateEventInput struct {
	ChannelID     string // empty -> configured default channel
	Name          string
	Notes         *string
	StartAt       time.Time
	RemindOffsets []int64 // nil -> configured default
}

// EventService owns templates, occurrence materialization, and event
// lifecycle. All validation errors surface synchronously before any state
// change.
type EventService interface {
	CreateTemplate(ctx context.Context, in CreateTemplateInput) (*models.EventTemplate, error)
	EditTemplate(ctx context.Context, id int64, patch models.TemplatePatch, regenerate bool) error
	ExtendTemplate(ctx context.Context, id int64, horizonWeeks int) (int, error)
	SetTemplateEnabled(ctx context.Context, id int64, enabled bool) error
	DeleteTemplate(ctx context.Context, id int64, purgeFuture bool) error
	ListTemplates(ctx context.Context, guildID string) ([]models.EventTemplate, error)

	// GenerateAndMaterialize expands the template from the anchor date and
	// inserts missing occurrences, returning how many were created.
	// Already-existing occurrences are skipped silently.
	GenerateAndMaterialize(ctx context.Context, tmpl *models.EventTemplate, anchor time.Time) (int, error)
	// TopUp runs GenerateAndMaterialize for every enabled template using
	// today (in the template's zone) as the anchor.
	TopUp(ctx context.Context) (int, error)

	CreateOneOff(ctx context.Context, in CreateEventInput) (*models.Event, error)
	GetEvent(ctx context.Context, id int64) (*models.Event, error)
	ListUpcoming(ctx context.Context, limit int) ([]models.Event, error)
	EndEvent(ctx context.Context, id int64) error
	EditEvent(ctx context.Context, id int64, patch models.EventPatch) error
	PurgeFutureOccurrences(ctx context.Context, templateID int64, from time.Time) (int, error)
}

// ReminderService derives, reconciles, and dispatches reminders.
type ReminderService interface {
	// Schedule inserts one reminder per offset whose fire instant is still
	// in the future. Existing rows and ENDED events are no-ops.
	Schedule(ctx context.Context, event *models.Event, offsets []int64) (int, error)
	// Reconcile diffs the wanted reminder set against stored rows after an
	// event edit: stale rows go, missing rows are inserted, untouched rows
	// keep their fired state.
	Reconcile(ctx context.Context, event *models.Event, offsets []int64) error
	// DispatchDue delivers reminders whose fire instant is inside the
	// polling window and marks them fired, returning the number processed.
	DispatchDue(ctx context.Context) (int, error)
}

// RSVPService records and reads attendance responses. One response per user
// per event; responding again replaces the stored choice.
type RSVPService interface {
	SetResponse(ctx context.Context, eventID int64, userID, choice string) error
	Counts(ctx context.Context, eventID int64) (models.RSVPCounts, error)
	Responses(ctx context.Context, eventID int64) ([]models.RSVP, error)
}
