// Package scheduler owns the two periodic drivers: a low-frequency template
// top-up and a high-frequency reminder dispatch tick. The ticks are
// independent cron entries; a failing tick logs and leaves the next one
// untouched.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"rallypoint-bot/internal/models/config"
	"rallypoint-bot/internal/service"
)

// tickTimeout bounds a single tick so a hung store or delivery call cannot
// pile up behind the next schedule.
const tickTimeout = 2 * time.Minute

type Scheduler struct {
	cron      *cron.Cron
	events    service.EventService
	reminders service.ReminderService
	log       *zap.Logger

	topUpSpec string
	pollEvery time.Duration
}

func New(
	cfg *config.Config,
	events service.EventService,
	reminders service.ReminderService,
	log *zap.Logger,
) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(time.UTC)),
		events:    events,
		reminders: reminders,
		log:       log,
		topUpSpec: cfg.Scheduler.TopUpCron,
		pollEvery: time.Duration(cfg.Scheduler.PollSeconds) * time.Second,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.topUpSpec, s.RunTopUp); err != nil {
		return fmt.Errorf("invalid top-up schedule %q: %w", s.topUpSpec, err)
	}
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.pollEvery), s.RunDispatch); err != nil {
		return fmt.Errorf("invalid dispatch interval %s: %w", s.pollEvery, err)
	}

	s.cron.Start()
	s.log.Info("schedulers started",
		zap.String("top_up", s.topUpSpec),
		zap.Duration("dispatch_every", s.pollEvery),
	)
	return nil
}

// Stop stops scheduling further ticks and waits for a running tick to finish.
// There is no mid-flight cancellation.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunTopUp executes one top-up tick.
func (s *Scheduler) RunTopUp() {
	ctx, cancel := context.WithTimeout(context.Background(), tickTimeout)
	defer cancel()

	created, err := s.events.TopUp(ctx)
	if err != nil {
		s.log.Error("top-up tick failed", zap.Error(err))
		return
	}
	if created > 0 {
		s.log.Info("top-up materialized occurrences", zap.Int("created", created))
	}
}

// RunDispatch executes one reminder dispatch tick.
func (s *Scheduler) RunDispatch() {
	ctx, cancel := context.WithTimeout(context.Background(), tickTimeout)
	defer cancel()

	fired, err := s.reminders.DispatchDue(ctx)
	if err != nil {
		s.log.Error("reminder tick failed", zap.Error(err))
		return
	}
	if fired > 0 {
		s.log.Info("dispatched due reminders", zap.Int("fired", fired))
	}
}
