package event_service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"rallypoint-bot/internal/models"
	"rallypoint-bot/internal/models/config"
	"rallypoint-bot/internal/repository"
	"rallypoint-bot/internal/service"
	"rallypoint-bot/internal/service/recurrence"
)

type eventService struct {
	templates repository.TemplateRepository
	events    repository.EventRepository
	reminders service.ReminderService
	cfg       *config.Config
	clk       clock.Clock
	log       *zap.Logger
}

func NewEventService(
	templates repository.TemplateRepository,
	events repository.EventRepository,
	reminders service.ReminderService,
	cfg *config.Config,
	clk clock.Clock,
	log *zap.Logger,
) service.EventService {
	return &eventService{
		templates: templates,
		events:    events,
		reminders: reminders,
		cfg:       cfg,
		clk:       clk,
		log:       log,
	}
}

func (s *eventService) CreateTemplate(ctx context.Context, in service.CreateTemplateInput) (*models.EventTemplate, error) {
	days, err := recurrence.ParseWeekdays(in.Weekdays)
	if err != nil {
		return nil, err
	}
	hour, minute, err := recurrence.ParseTimeOfDay(in.TimeOfDay)
	if err != nil {
		return nil, err
	}
	if _, err := recurrence.LoadZone(in.Timezone); err != nil {
		return nil, err
	}
	if in.HorizonWeeks < 1 {
		return nil, &recurrence.ValidationError{Field: "horizon_weeks", Reason: "must be at least 1"}
	}
	if in.ChannelID == "" {
		return nil, &recurrence.ValidationError{Field: "channel", Reason: "destination channel is required"}
	}

	t := &models.EventTemplate{
		GuildID:       in.GuildID,
		ChannelID:     in.ChannelID,
		Name:          in.Name,
		Notes:         in.Notes,
		Timezone:      in.Timezone,
		Hour:          hour,
		Minute:        minute,
		Weekdays:      recurrence.FormatWeekdays(days),
		HorizonWeeks:  in.HorizonWeeks,
		Enabled:       true,
		RemindOffsets: s.normalizeOffsets(in.RemindOffsets),
	}
	if err := s.templates.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("creating template: %w", err)
	}
	return t, nil
}

// EditTemplate validates and applies a patch. Existing occurrences are left
// untouched unless regenerate is set, in which case future occurrences are
// purged and rebuilt from today under the new schedule.
func (s *eventService) EditTemplate(ctx context.Context, id int64, patch models.TemplatePatch, regenerate bool) error {
	if patch.Weekdays != nil {
		days, err := recurrence.ParseWeekdays(*patch.Weekdays)
		if err != nil {
			return err
		}
		canonical := recurrence.FormatWeekdays(days)
		patch.Weekdays = &canonical
	}
	if patch.Timezone != nil {
		if _, err := recurrence.LoadZone(*patch.Timezone); err != nil {
			return err
		}
	}
	if patch.Hour != nil || patch.Minute != nil {
		hour, minute := 0, 0
		if patch.Hour != nil {
			hour = *patch.Hour
		}
		if patch.Minute != nil {
			minute = *patch.Minute
		}
		if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
			return &recurrence.ValidationError{Field: "time", Reason: "must be HH:MM (24-hour)"}
		}
	}
	if patch.HorizonWeeks != nil && *patch.HorizonWeeks < 1 {
		return &recurrence.ValidationError{Field: "horizon_weeks", Reason: "must be at least 1"}
	}
	if patch.RemindOffsets != nil {
		normalized := []int64(s.normalizeOffsets(*patch.RemindOffsets))
		patch.RemindOffsets = &normalized
	}

	if err := s.templates.UpdatePartial(ctx, id, patch); err != nil {
		return fmt.Errorf("updating template %d: %w", id, err)
	}
	if !regenerate {
		return nil
	}

	tmpl, err := s.templates.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if tmpl == nil {
		return fmt.Errorf("template %d not found", id)
	}
	if _, err := s.PurgeFutureOccurrences(ctx, id, s.clk.Now()); err != nil {
		return err
	}
	_, err = s.materializeFromToday(ctx, tmpl)
	return err
}

// ExtendTemplate bumps the horizon and immediately tops the template up from
// today so the extension is visible without waiting for the daily driver.
func (s *eventService) ExtendTemplate(ctx context.Context, id int64, horizonWeeks int) (int, error) {
	if horizonWeeks < 1 {
		return 0, &recurrence.ValidationError{Field: "horizon_weeks", Reason: "must be at least 1"}
	}

	if err := s.templates.UpdatePartial(ctx, id, models.TemplatePatch{HorizonWeeks: &horizonWeeks}); err != nil {
		return 0, err
	}
	tmpl, err := s.templates.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if tmpl == nil {
		return 0, fmt.Errorf("template %d not found", id)
	}
	return s.materializeFromToday(ctx, tmpl)
}

func (s *eventService) SetTemplateEnabled(ctx context.Context, id int64, enabled bool) error {
	return s.templates.SetEnabled(ctx, id, enabled)
}

// DeleteTemplate removes the template. Materialized occurrences survive with
// a cleared back-reference unless purgeFuture asks for future ones to go too.
func (s *eventService) DeleteTemplate(ctx context.Context, id int64, purgeFuture bool) error {
	if purgeFuture {
		if _, err := s.PurgeFutureOccurrences(ctx, id, s.clk.Now()); err != nil {
			return err
		}
	}
	return s.templates.Delete(ctx, id)
}

func (s *eventService) ListTemplates(ctx context.Context, guildID string) ([]models.EventTemplate, error) {
	return s.templates.ListByGuild(ctx, guildID)
}

func (s *eventService) GenerateAndMaterialize(ctx context.Context, tmpl *models.EventTemplate, anchor time.Time) (int, error) {
	days, err := recurrence.ParseWeekdays(tmpl.Weekdays)
	if err != nil {
		return 0, err
	}

	starts, err := recurrence.Generate(recurrence.Input{
		AnchorDate:   anchor,
		Hour:         tmpl.Hour,
		Minute:       tmpl.Minute,
		Timezone:     tmpl.Timezone,
		Weekdays:     days,
		HorizonWeeks: tmpl.HorizonWeeks,
	})
	if err != nil {
		return 0, err
	}

	created, skipped := 0, 0
	for _, startAt := range starts {
		e := &models.Event{
			TemplateID: &tmpl.ID,
			ChannelID:  tmpl.ChannelID,
			Name:       tmpl.Name,
			Notes:      tmpl.Notes,
			StartAt:    startAt,
			Status:     models.EventStatusActive,
		}
		inserted, err := s.events.Create(ctx, e)
		if err != nil {
			return created, fmt.Errorf("materializing occurrence at %s: %w", startAt, err)
		}
		if !inserted {
			skipped++
			continue
		}
		if _, err := s.reminders.Schedule(ctx, e, tmpl.RemindOffsets); err != nil {
			return created, err
		}
		created++
	}
	if skipped > 0 {
		s.log.Debug("materialization skipped existing occurrences",
			zap.Int64("template_id", tmpl.ID),
			zap.Int("skipped", skipped),
		)
	}
	return created, nil
}

// TopUp extends the materialized horizon of every enabled template. There is
// no cursor: anchoring at today and relying on the uniqueness guard keeps
// repeated and overlapping runs safe.
func (s *eventService) TopUp(ctx context.Context) (int, error) {
	templates, err := s.templates.ListEnabled(ctx)
	if err != nil {
		return 0, err
	}

	total := 0
	for i := range templates {
		n, err := s.materializeFromToday(ctx, &templates[i])
		if err != nil {
			// One broken template must not starve the rest.
			s.log.Error("top-up failed for template",
				zap.Int64("template_id", templates[i].ID),
				zap.Error(err),
			)
			continue
		}
		total += n
	}
	return total, nil
}

// materializeFromToday anchors generation at today's date in the template's
// own zone, matching the wall-clock terms the weekday set is written in.
func (s *eventService) materializeFromToday(ctx context.Context, tmpl *models.EventTemplate) (int, error) {
	loc, err := recurrence.LoadZone(tmpl.Timezone)
	if err != nil {
		return 0, err
	}
	return s.GenerateAndMaterialize(ctx, tmpl, s.clk.Now().In(loc))
}

func (s *eventService) CreateOneOff(ctx context.Context, in service.CreateEventInput) (*models.Event, error) {
	channelID := in.ChannelID
	if channelID == "" {
		channelID = s.cfg.Bot.EventsChannel
	}
	if channelID == "" {
		return nil, &recurrence.ValidationError{Field: "channel", Reason: "destination channel is required"}
	}
	if in.Name == "" {
		return nil, &recurrence.ValidationError{Field: "name", Reason: "must not be empty"}
	}

	e := &models.Event{
		ChannelID: channelID,
		Name:      in.Name,
		Notes:     in.Notes,
		StartAt:   in.StartAt.UTC(),
		Status:    models.EventStatusActive,
	}
	if _, err := s.events.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("creating event: %w", err)
	}
	if _, err := s.reminders.Schedule(ctx, e, s.normalizeOffsets(in.RemindOffsets)); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *eventService) GetEvent(ctx context.Context, id int64) (*models.Event, error) {
	return s.events.GetByID(ctx, id)
}

func (s *eventService) ListUpcoming(ctx context.Context, limit int) ([]models.Event, error) {
	return s.events.ListUpcoming(ctx, s.clk.Now(), limit)
}

func (s *eventService) EndEvent(ctx context.Context, id int64) error {
	e, err := s.events.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if e == nil {
		return fmt.Errorf("event %d not found", id)
	}
	return s.events.MarkEnded(ctx, id)
}

func (s *eventService) EditEvent(ctx context.Context, id int64, patch models.EventPatch) error {
	if patch.IsZero() {
		return nil
	}

	e, err := s.events.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if e == nil {
		return fmt.Errorf("event %d not found", id)
	}

	if err := s.events.UpdatePartial(ctx, id, patch); err != nil {
		return fmt.Errorf("updating event %d: %w", id, err)
	}
	if patch.StartAt == nil {
		return nil
	}

	// Start moved: recompute the reminder set against the new instant.
	e.StartAt = patch.StartAt.UTC()
	offsets := s.cfg.Scheduler.RemindOffsets
	if e.TemplateID != nil {
		tmpl, err := s.templates.GetByID(ctx, *e.TemplateID)
		if err != nil {
			return err
		}
		if tmpl != nil {
			offsets = tmpl.RemindOffsets
		}
	}
	return s.reminders.Reconcile(ctx, e, offsets)
}

func (s *eventService) PurgeFutureOccurrences(ctx context.Context, templateID int64, from time.Time) (int, error) {
	n, err := s.events.DeleteFutureByTemplate(ctx, templateID, from)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// normalizeOffsets drops non-positive values and duplicates and orders the
// rest largest-first; nil or an all-invalid list falls back to the configured
// default.
func (s *eventService) normalizeOffsets(offsets []int64) []int64 {
	seen := make(map[int64]bool)
	var out []int64
	for _, m := range offsets {
		if m <= 0 || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	if len(out) == 0 {
		return s.cfg.Scheduler.RemindOffsets
	}
	sort.Slice(out, func(i, j int) bool { return out[i] > out[j] })
	return out
}
