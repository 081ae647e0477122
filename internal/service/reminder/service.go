package reminder_service

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"rallypoint-bot/internal/models"
	"rallypoint-bot/internal/notify"
	"rallypoint-bot/internal/repository"
	"rallypoint-bot/internal/service"
)

const (
	// pollSlack is the half-width of the dispatch window around "now".
	// It must cover at least one poll interval so a reminder cannot slip
	// between two ticks.
	pollSlack = 30 * time.Second
	// batchLimit bounds one dispatch pass.
	batchLimit = 25
)

type reminderService struct {
	reminders repository.ReminderRepository
	notifier  notify.Notifier
	clk       clock.Clock
	log       *zap.Logger
}

func NewReminderService(
	reminders repository.ReminderRepository,
	notifier notify.Notifier,
	clk clock.Clock,
	log *zap.Logger,
) service.ReminderService {
	return &reminderService{
		reminders: reminders,
		notifier:  notifier,
		clk:       clk,
		log:       log,
	}
}

func (s *reminderService) Schedule(ctx context.Context, event *models.Event, offsets []int64) (int, error) {
	if event.Status == models.EventStatusEnded {
		return 0, nil
	}

	now := s.clk.Now()
	created := 0
	for _, minutes := range offsets {
		if minutes <= 0 {
			continue
		}
		fireAt := event.StartAt.Add(-time.Duration(minutes) * time.Minute)
		// A reminder is never created already due or past.
		if !fireAt.After(now) {
			continue
		}

		inserted, err := s.reminders.Insert(ctx, &models.Reminder{
			EventID:       event.ID,
			OffsetMinutes: int(minutes),
			FireAt:        fireAt,
		})
		if err != nil {
			return created, err
		}
		if inserted {
			created++
		}
	}
	return created, nil
}

func (s *reminderService) Reconcile(ctx context.Context, event *models.Event, offsets []int64) error {
	now := s.clk.Now()

	wanted := make(map[int]time.Time, len(offsets))
	if event.Status != models.EventStatusEnded {
		for _, minutes := range offsets {
			if minutes <= 0 {
				continue
			}
			fireAt := event.StartAt.Add(-time.Duration(minutes) * time.Minute)
			if fireAt.After(now) {
				wanted[int(minutes)] = fireAt
			}
		}
	}

	existing, err := s.reminders.ListByEvent(ctx, event.ID)
	if err != nil {
		return err
	}

	// Rows matching a wanted offset at the same fire instant are kept as
	// they are, fired or not; everything else is stale. Only stale rows are
	// ever absent, so there is no window with zero reminders.
	var stale []int64
	for _, row := range existing {
		if fireAt, ok := wanted[row.OffsetMinutes]; ok && fireAt.Equal(row.FireAt) {
			delete(wanted, row.OffsetMinutes)
			continue
		}
		stale = append(stale, int64(row.OffsetMinutes))
	}

	if err := s.reminders.DeleteByEventAndOffsets(ctx, event.ID, stale); err != nil {
		return err
	}
	for minutes, fireAt := range wanted {
		if _, err := s.reminders.Insert(ctx, &models.Reminder{
			EventID:       event.ID,
			OffsetMinutes: minutes,
			FireAt:        fireAt,
		}); err != nil {
			return err
		}
	}
	return nil
}

// DispatchDue processes one polling pass. Every selected reminder ends up
// fired no matter what delivery did: retrying a failed send on the next poll
// would risk a duplicate message once the transient condition clears, and
// there is no retry state to tell those cases apart.
func (s *reminderService) DispatchDue(ctx context.Context) (int, error) {
	now := s.clk.Now()
	due, err := s.reminders.ListDue(ctx, now.Add(-pollSlack), now.Add(pollSlack), batchLimit)
	if err != nil {
		return 0, err
	}

	processed := 0
	for i := range due {
		r := &due[i]

		target, err := s.notifier.Resolve(ctx, r.ChannelID)
		if err != nil || target == nil {
			// Dead destinations are not retried indefinitely.
			s.log.Warn("reminder destination unresolvable",
				zap.Int64("event_id", r.EventID),
				zap.String("channel_id", r.ChannelID),
				zap.Error(err),
			)
		} else if err := s.notifier.Send(ctx, target, notify.Notification{
			EventID:       r.EventID,
			Name:          r.EventName,
			StartAt:       r.StartAt,
			Notes:         r.Notes,
			MinutesBefore: r.OffsetMinutes,
		}); err != nil {
			s.log.Warn("reminder delivery failed",
				zap.Int64("event_id", r.EventID),
				zap.Int("minutes_before", r.OffsetMinutes),
				zap.Error(err),
			)
		}

		if err := s.reminders.MarkFired(ctx, r.ID); err != nil {
			return processed, err
		}
		processed++
	}
	return processed, nil
}
