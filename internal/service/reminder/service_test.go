package reminder_service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rallypoint-bot/internal/models"
	"rallypoint-bot/internal/notify"
)

type fakeReminderRepo struct {
	rows   map[string]*models.Reminder // "eventID:offset"
	events map[int64]*models.Event
	nextID int64
	dueErr error
}

func newFakeReminderRepo() *fakeReminderRepo {
	return &fakeReminderRepo{
		rows:   make(map[string]*models.Reminder),
		events: make(map[int64]*models.Event),
	}
}

func key(eventID int64, offset int) string {
	return fmt.Sprintf("%d:%d", eventID, offset)
}

func (f *fakeReminderRepo) Insert(_ context.Context, r *models.Reminder) (bool, error) {
	k := key(r.EventID, r.OffsetMinutes)
	if _, ok := f.rows[k]; ok {
		return false, nil
	}
	f.nextID++
	r.ID = f.nextID
	cp := *r
	f.rows[k] = &cp
	return true, nil
}

func (f *fakeReminderRepo) ListByEvent(_ context.Context, eventID int64) ([]models.Reminder, error) {
	var out []models.Reminder
	for _, r := range f.rows {
		if r.EventID == eventID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeReminderRepo) ListDue(_ context.Context, from, to time.Time, limit int) ([]models.DueReminder, error) {
	if f.dueErr != nil {
		return nil, f.dueErr
	}

	var out []models.DueReminder
	for _, r := range f.rows {
		e := f.events[r.EventID]
		if r.Fired || e == nil || e.Status != models.EventStatusActive {
			continue
		}
		if r.FireAt.Before(from) || r.FireAt.After(to) {
			continue
		}
		out = append(out, models.DueReminder{
			ID:            r.ID,
			EventID:       r.EventID,
			OffsetMinutes: r.OffsetMinutes,
			FireAt:        r.FireAt,
			ChannelID:     e.ChannelID,
			EventName:     e.Name,
			StartAt:       e.StartAt,
			Notes:         e.Notes,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FireAt.Before(out[j].FireAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeReminderRepo) MarkFired(_ context.Context, id int64) error {
	for _, r := range f.rows {
		if r.ID == id {
			r.Fired = true
			return nil
		}
	}
	return fmt.Errorf("reminder %d not found", id)
}

func (f *fakeReminderRepo) DeleteByEventAndOffsets(_ context.Context, eventID int64, offsets []int64) error {
	for _, m := range offsets {
		delete(f.rows, key(eventID, int(m)))
	}
	return nil
}

type fakeNotifier struct {
	resolveErr error
	sendErr    error
	sent       []notify.Notification
}

func (f *fakeNotifier) Resolve(_ context.Context, destination string) (*notify.Target, error) {
	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	return &notify.Target{ChatID: 1}, nil
}

func (f *fakeNotifier) Send(_ context.Context, _ *notify.Target, n notify.Notification) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, n)
	return nil
}

func setup(t *testing.T) (*fakeReminderRepo, *fakeNotifier, *clock.Mock, *reminderService) {
	t.Helper()
	repo := newFakeReminderRepo()
	notifier := &fakeNotifier{}
	clk := clock.NewMock()
	clk.Set(time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC))
	svc := NewReminderService(repo, notifier, clk, zap.NewNop()).(*reminderService)
	return repo, notifier, clk, svc
}

func activeEvent(repo *fakeReminderRepo, id int64, startAt time.Time) *models.Event {
	e := &models.Event{
		ID:        id,
		ChannelID: "1001",
		Name:      "raid night",
		StartAt:   startAt,
		Status:    models.EventStatusActive,
	}
	repo.events[id] = e
	return e
}

func TestScheduleSkipsPastFireInstants(t *testing.T) {
	repo, _, clk, svc := setup(t)
	e := activeEvent(repo, 1, clk.Now().Add(-time.Hour))

	created, err := svc.Schedule(context.Background(), e, []int64{60, 15, 5})
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Empty(t, repo.rows)
}

func TestScheduleDropsAlreadyDueOffsets(t *testing.T) {
	repo, _, clk, svc := setup(t)
	e := activeEvent(repo, 1, clk.Now().Add(10*time.Minute))

	created, err := svc.Schedule(context.Background(), e, []int64{60, 15, 5})
	require.NoError(t, err)
	assert.Equal(t, 1, created)
	require.Len(t, repo.rows, 1)
	assert.Contains(t, repo.rows, key(1, 5))
}

func TestScheduleIdempotent(t *testing.T) {
	repo, _, clk, svc := setup(t)
	e := activeEvent(repo, 1, clk.Now().Add(2*time.Hour))

	created, err := svc.Schedule(context.Background(), e, []int64{60, 15})
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	created, err = svc.Schedule(context.Background(), e, []int64{60, 15})
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Len(t, repo.rows, 2)
}

func TestScheduleEndedEventIsNoOp(t *testing.T) {
	repo, _, clk, svc := setup(t)
	e := activeEvent(repo, 1, clk.Now().Add(2*time.Hour))
	e.Status = models.EventStatusEnded

	created, err := svc.Schedule(context.Background(), e, []int64{60})
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Empty(t, repo.rows)
}

func TestDispatchFiresExactlyOnce(t *testing.T) {
	repo, notifier, clk, svc := setup(t)
	e := activeEvent(repo, 1, clk.Now().Add(15*time.Minute))
	_, err := repo.Insert(context.Background(), &models.Reminder{
		EventID: 1, OffsetMinutes: 15, FireAt: clk.Now(),
	})
	require.NoError(t, err)

	processed, err := svc.DispatchDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, e.Name, notifier.sent[0].Name)
	assert.Equal(t, 15, notifier.sent[0].MinutesBefore)
	assert.True(t, repo.rows[key(1, 15)].Fired)

	// Second pass over the now-updated data must not re-deliver.
	processed, err = svc.DispatchDue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, processed)
	assert.Len(t, notifier.sent, 1)
}

func TestDispatchIgnoresRemindersOutsideWindow(t *testing.T) {
	repo, notifier, clk, svc := setup(t)
	activeEvent(repo, 1, clk.Now().Add(time.Hour))
	_, err := repo.Insert(context.Background(), &models.Reminder{
		EventID: 1, OffsetMinutes: 55, FireAt: clk.Now().Add(5 * time.Minute),
	})
	require.NoError(t, err)

	processed, err := svc.DispatchDue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, processed)
	assert.Empty(t, notifier.sent)
	assert.False(t, repo.rows[key(1, 55)].Fired)
}

func TestDispatchUnresolvableDestinationMarksFired(t *testing.T) {
	repo, notifier, clk, svc := setup(t)
	notifier.resolveErr = errors.New("chat gone")
	activeEvent(repo, 1, clk.Now().Add(15*time.Minute))
	_, err := repo.Insert(context.Background(), &models.Reminder{
		EventID: 1, OffsetMinutes: 15, FireAt: clk.Now(),
	})
	require.NoError(t, err)

	processed, err := svc.DispatchDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Empty(t, notifier.sent)
	assert.True(t, repo.rows[key(1, 15)].Fired)
}

func TestDispatchSendFailureStillMarksFired(t *testing.T) {
	repo, notifier, clk, svc := setup(t)
	notifier.sendErr = errors.New("flood limit")
	activeEvent(repo, 1, clk.Now().Add(15*time.Minute))
	_, err := repo.Insert(context.Background(), &models.Reminder{
		EventID: 1, OffsetMinutes: 15, FireAt: clk.Now(),
	})
	require.NoError(t, err)

	processed, err := svc.DispatchDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.True(t, repo.rows[key(1, 15)].Fired)

	notifier.sendErr = nil
	processed, err = svc.DispatchDue(context.Background())
	require.NoError(t, err)
	assert.Zero(t, processed, "failed deliveries are not retried")
	assert.Empty(t, notifier.sent)
}

func TestDispatchProcessesInFireInstantOrder(t *testing.T) {
	repo, notifier, clk, svc := setup(t)
	activeEvent(repo, 1, clk.Now().Add(time.Hour))
	activeEvent(repo, 2, clk.Now().Add(time.Hour))
	_, _ = repo.Insert(context.Background(), &models.Reminder{EventID: 2, OffsetMinutes: 10, FireAt: clk.Now().Add(-10 * time.Second)})
	_, _ = repo.Insert(context.Background(), &models.Reminder{EventID: 1, OffsetMinutes: 10, FireAt: clk.Now().Add(-20 * time.Second)})

	processed, err := svc.DispatchDue(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, processed)
	require.Len(t, notifier.sent, 2)
	assert.Equal(t, int64(1), notifier.sent[0].EventID)
	assert.Equal(t, int64(2), notifier.sent[1].EventID)
}

func TestReconcileDiffsWantedAgainstExisting(t *testing.T) {
	repo, _, clk, svc := setup(t)
	oldStart := clk.Now().Add(2 * time.Hour)
	e := activeEvent(repo, 1, oldStart)

	_, err := svc.Schedule(context.Background(), e, []int64{60, 15})
	require.NoError(t, err)
	repo.rows[key(1, 15)].Fired = true

	// Start moves out by an hour and the wanted set changes to {60, 5}.
	e.StartAt = oldStart.Add(time.Hour)
	require.NoError(t, svc.Reconcile(context.Background(), e, []int64{60, 5}))

	require.Len(t, repo.rows, 2)
	r60 := repo.rows[key(1, 60)]
	require.NotNil(t, r60)
	assert.True(t, r60.FireAt.Equal(e.StartAt.Add(-60*time.Minute)))
	assert.False(t, r60.Fired, "stale row is replaced, not kept fired")
	r5 := repo.rows[key(1, 5)]
	require.NotNil(t, r5)
	assert.True(t, r5.FireAt.Equal(e.StartAt.Add(-5*time.Minute)))
	assert.NotContains(t, repo.rows, key(1, 15))
}

func TestReconcileUnchangedKeepsFiredState(t *testing.T) {
	repo, _, clk, svc := setup(t)
	e := activeEvent(repo, 1, clk.Now().Add(2*time.Hour))

	_, err := svc.Schedule(context.Background(), e, []int64{60, 15})
	require.NoError(t, err)
	repo.rows[key(1, 60)].Fired = true

	require.NoError(t, svc.Reconcile(context.Background(), e, []int64{60, 15}))

	require.Len(t, repo.rows, 2)
	assert.True(t, repo.rows[key(1, 60)].Fired, "matching rows keep their fired state")
	assert.False(t, repo.rows[key(1, 15)].Fired)
}
