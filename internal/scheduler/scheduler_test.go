package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rallypoint-bot/internal/models/config"
	"rallypoint-bot/internal/service"
)

type stubEventService struct {
	service.EventService
	topUpCalls int
	topUpErr   error
}

func (s *stubEventService) TopUp(_ context.Context) (int, error) {
	s.topUpCalls++
	return 1, s.topUpErr
}

type stubReminderService struct {
	service.ReminderService
	dispatchCalls int
	dispatchErr   error
}

func (s *stubReminderService) DispatchDue(_ context.Context) (int, error) {
	s.dispatchCalls++
	return 1, s.dispatchErr
}

func newScheduler(topUpSpec string, pollSeconds int) (*Scheduler, *stubEventService, *stubReminderService) {
	events := &stubEventService{}
	reminders := &stubReminderService{}
	cfg := &config.Config{
		Scheduler: config.SchedulerConfig{
			TopUpCron:   topUpSpec,
			PollSeconds: pollSeconds,
		},
	}
	return New(cfg, events, reminders, zap.NewNop()), events, reminders
}

func TestStartRejectsInvalidTopUpSpec(t *testing.T) {
	s, _, _ := newScheduler("not a cron spec", 30)
	require.Error(t, s.Start())
}

func TestStartAndStop(t *testing.T) {
	s, _, _ := newScheduler("5 0 * * *", 30)
	require.NoError(t, s.Start())
	s.Stop()
}

func TestRunTopUpAbsorbsErrors(t *testing.T) {
	s, events, _ := newScheduler("5 0 * * *", 30)
	events.topUpErr = errors.New("store down")

	s.RunTopUp()
	s.RunTopUp()
	assert.Equal(t, 2, events.topUpCalls, "a failed tick must not stop subsequent ticks")
}

func TestRunDispatchAbsorbsErrors(t *testing.T) {
	s, _, reminders := newScheduler("5 0 * * *", 30)
	reminders.dispatchErr = errors.New("delivery down")

	s.RunDispatch()
	s.RunDispatch()
	assert.Equal(t, 2, reminders.dispatchCalls)
}
