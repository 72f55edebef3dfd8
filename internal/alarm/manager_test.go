package alarm

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visualroutine/internal/clock"
	"visualroutine/internal/models"
	"visualroutine/internal/reminder"
)

type memStore struct {
	mu   sync.Mutex
	rems map[string]models.Reminder
}

func newMemStore() *memStore {
	return &memStore{rems: make(map[string]models.Reminder)}
}

func (s *memStore) Put(_ context.Context, rem models.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rems[rem.Key] = rem
	return nil
}

func (s *memStore) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rems[key]
	delete(s.rems, key)
	return ok, nil
}

func (s *memStore) DeleteFired(_ context.Context, key string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rem, ok := s.rems[key]
	if !ok || !rem.FireAt.Equal(at) {
		return false, nil
	}
	delete(s.rems, key)
	return true, nil
}

func (s *memStore) ListAll(_ context.Context) ([]models.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Reminder
	for _, rem := range s.rems {
		out = append(out, rem)
	}
	return out, nil
}

func (s *memStore) ListDue(_ context.Context, mode models.DeliveryMode, now time.Time) ([]models.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Reminder
	for _, rem := range s.rems {
		if rem.Mode == mode && !rem.FireAt.After(now) {
			out = append(out, rem)
		}
	}
	return out, nil
}

type recordingHandler struct {
	mu    sync.Mutex
	fired []string
}

func (h *recordingHandler) OnReminderFired(_ context.Context, payload models.ReminderPayload) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fired = append(h.fired, payload.ActivityID)
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.fired)
}

// manualTimer records the callback so tests fire it explicitly
type manualTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

func newTestManager(exact bool, clk clock.Clock) (*Manager, *memStore, *recordingHandler, *[]*manualTimer) {
	store := newMemStore()
	handler := &recordingHandler{}
	m := NewManager(store, handler, clk, Options{ExactCapability: exact, SweepInterval: time.Hour})

	var timers []*manualTimer
	m.afterFunc = func(d time.Duration, f func()) timer {
		t := &manualTimer{delay: d, fn: f}
		timers = append(timers, t)
		return t
	}
	return m, store, handler, &timers
}

func payload(id string) models.ReminderPayload {
	return models.ReminderPayload{ActivityID: id, UserID: "u1", ActivityName: "Lunch", ActivityTime: "13:00"}
}

func TestRegisterExactArmsTimer(t *testing.T) {
	now := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	m, store, handler, timers := newTestManager(true, clock.NewFixed(now))
	ctx := context.Background()

	require.NoError(t, m.RegisterExact(ctx, "a1", now.Add(time.Hour), payload("a1")))
	require.Len(t, *timers, 1)
	assert.Equal(t, time.Hour, (*timers)[0].delay)

	at, ok := m.Pending("a1")
	require.True(t, ok)
	assert.True(t, at.Equal(now.Add(time.Hour)))

	(*timers)[0].fn()
	assert.Equal(t, []string{"a1"}, handler.fired)
	assert.Empty(t, store.rems, "fired reminder is removed")

	_, ok = m.Pending("a1")
	assert.False(t, ok)
}

func TestRegisterExactWithoutCapability(t *testing.T) {
	m, store, _, _ := newTestManager(false, clock.NewFixed(time.Now()))

	err := m.RegisterExact(context.Background(), "a1", time.Now(), payload("a1"))
	require.ErrorIs(t, err, reminder.ErrPermissionDenied)
	assert.Empty(t, store.rems)
}

func TestReplaceStopsPreviousTimer(t *testing.T) {
	now := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	m, store, handler, timers := newTestManager(true, clock.NewFixed(now))
	ctx := context.Background()

	require.NoError(t, m.RegisterExact(ctx, "a1", now.Add(time.Hour), payload("a1")))
	require.NoError(t, m.RegisterExact(ctx, "a1", now.Add(2*time.Hour), payload("a1")))

	require.Len(t, *timers, 2)
	assert.True(t, (*timers)[0].stopped)
	require.Len(t, store.rems, 1)
	assert.True(t, store.rems["a1"].FireAt.Equal(now.Add(2*time.Hour)))

	// a stale callback that already started must not deliver the replaced reminder
	(*timers)[0].fn()
	assert.Equal(t, 0, handler.count())

	(*timers)[1].fn()
	assert.Equal(t, 1, handler.count())
}

func TestBestEffortReplacesExact(t *testing.T) {
	now := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	m, store, _, timers := newTestManager(true, clock.NewFixed(now))
	ctx := context.Background()

	require.NoError(t, m.RegisterExact(ctx, "a1", now.Add(time.Hour), payload("a1")))
	require.NoError(t, m.RegisterBestEffort(ctx, "a1", now.Add(time.Hour), payload("a1")))

	assert.True(t, (*timers)[0].stopped)
	assert.Equal(t, models.DeliveryBestEffort, store.rems["a1"].Mode)
	_, ok := m.Pending("a1")
	assert.False(t, ok)
}

func TestSweepFiresDueBestEffort(t *testing.T) {
	now := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	clk := clock.NewFixed(now)
	m, store, handler, _ := newTestManager(false, clk)
	ctx := context.Background()

	require.NoError(t, m.RegisterBestEffort(ctx, "a1", now.Add(time.Minute), payload("a1")))
	require.NoError(t, m.RegisterBestEffort(ctx, "a2", now.Add(time.Hour), payload("a2")))

	fired, err := m.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, fired)

	clk.Advance(2 * time.Minute)
	fired, err = m.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fired)
	assert.Equal(t, []string{"a1"}, handler.fired)

	fired, err = m.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, fired, "a reminder fires once")
	assert.Len(t, store.rems, 1)
}

func TestCancel(t *testing.T) {
	now := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	m, store, _, timers := newTestManager(true, clock.NewFixed(now))
	ctx := context.Background()

	require.NoError(t, m.RegisterExact(ctx, "a1", now.Add(time.Hour), payload("a1")))
	require.NoError(t, m.Cancel(ctx, "a1"))
	require.NoError(t, m.Cancel(ctx, "a1"), "cancel is idempotent")

	assert.True(t, (*timers)[0].stopped)
	assert.Empty(t, store.rems)
}

func TestStartRestoresPersistedReminders(t *testing.T) {
	now := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	m, store, handler, timers := newTestManager(true, clock.NewFixed(now))
	ctx := context.Background()

	store.rems["future"] = models.Reminder{Key: "future", FireAt: now.Add(time.Hour), Mode: models.DeliveryExact, Payload: payload("future")}
	store.rems["overdue"] = models.Reminder{Key: "overdue", FireAt: now.Add(-time.Hour), Mode: models.DeliveryExact, Payload: payload("overdue")}
	store.rems["missed"] = models.Reminder{Key: "missed", FireAt: now.Add(-time.Minute), Mode: models.DeliveryBestEffort, Payload: payload("missed")}

	require.NoError(t, m.Start(ctx))
	defer m.Stop()

	require.Len(t, *timers, 2)
	for _, tm := range *timers {
		if tm.delay == 0 {
			tm.fn()
		}
	}

	assert.ElementsMatch(t, []string{"overdue", "missed"}, handler.fired)
	_, ok := store.rems["future"]
	assert.True(t, ok)
}

func TestSetExactCapability(t *testing.T) {
	m, _, _, _ := newTestManager(false, clock.NewFixed(time.Now()))
	assert.False(t, m.HasExactAlarmCapability())
	m.SetExactCapability(true)
	assert.True(t, m.HasExactAlarmCapability())
}

func TestSchedulerFallsBackThroughManager(t *testing.T) {
	now := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	clk := clock.NewFixed(now)
	m, store, _, _ := newTestManager(false, clk)
	scheduler := reminder.NewScheduler(m, clk, false)

	activity := &models.Activity{ID: "a1", UserID: "u1", Name: "Lunch", Time: "13:00"}
	scheduled, err := scheduler.Schedule(context.Background(), activity)
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryBestEffort, scheduled.Mode)
	assert.Equal(t, models.DeliveryBestEffort, store.rems["a1"].Mode)
}
