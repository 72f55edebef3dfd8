package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"visualroutine/internal/clock"
	"visualroutine/internal/database"
	"visualroutine/internal/models"
	"visualroutine/internal/progress"
	"visualroutine/internal/reminder"
	"visualroutine/internal/repository"
)

// fakeAlarms records the pending alarm per key
type fakeAlarms struct {
	mu      sync.Mutex
	exact   bool
	pending map[string]time.Time
	modes   map[string]models.DeliveryMode
}

func newFakeAlarms(exact bool) *fakeAlarms {
	return &fakeAlarms{exact: exact, pending: make(map[string]time.Time), modes: make(map[string]models.DeliveryMode)}
}

func (f *fakeAlarms) RegisterExact(_ context.Context, key string, at time.Time, _ models.ReminderPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending[key] = at
	f.modes[key] = models.DeliveryExact
	return nil
}

func (f *fakeAlarms) RegisterBestEffort(_ context.Context, key string, at time.Time, _ models.ReminderPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending[key] = at
	f.modes[key] = models.DeliveryBestEffort
	return nil
}

func (f *fakeAlarms) Cancel(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pending, key)
	delete(f.modes, key)
	return nil
}

func (f *fakeAlarms) HasExactAlarmCapability() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exact
}

func (f *fakeAlarms) at(key string) (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	at, ok := f.pending[key]
	return at, ok
}

type unlockRecorder struct {
	mu  sync.Mutex
	ids []string
}

func (r *unlockRecorder) OnAchievementUnlocked(_ context.Context, _ string, a models.Achievement) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, a.ID)
}

// flakyStats fails Save while down is set
type flakyStats struct {
	progress.StatsStore
	mu   sync.Mutex
	down bool
}

func (f *flakyStats) setDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

func (f *flakyStats) Save(ctx context.Context, stats models.UserStats) (models.UserStats, error) {
	f.mu.Lock()
	down := f.down
	f.mu.Unlock()
	if down {
		return models.UserStats{}, errors.New("db down")
	}
	return f.StatsStore.Save(ctx, stats)
}

type testEnv struct {
	db         *database.DB
	clock      *clock.Fixed
	alarms     *fakeAlarms
	unlocks    *unlockRecorder
	stats      *flakyStats
	activities *ActivityService
	progress   *ProgressService
	user       *models.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := database.Initialize(filepath.Join(t.TempDir(), "routine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations(ctx))

	clk := clock.NewFixed(time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC))
	alarms := newFakeAlarms(true)
	unlocks := &unlockRecorder{}

	achievements := repository.NewAchievementRepository(db)
	rules := progress.NewRuleEngine(achievements, unlocks, clk)
	stats := &flakyStats{StatsStore: repository.NewStatsRepository(db)}
	pipeline := progress.NewPipeline(stats, rules, clk, false)
	scheduler := reminder.NewScheduler(alarms, clk, false)

	user := &models.User{Email: "parent@example.com", Name: "Pat", PasswordHash: "hash"}
	require.NoError(t, repository.NewUserRepository(db).CreateUser(ctx, user))

	return &testEnv{
		db:         db,
		clock:      clk,
		alarms:     alarms,
		unlocks:    unlocks,
		stats:      stats,
		activities: NewActivityService(db, scheduler, pipeline, nil, false),
		progress:   NewProgressService(pipeline, achievements),
		user:       user,
	}
}

const fourSteps = `[
	{"id": "s1", "name": "Take toothbrush", "stepNumber": 1},
	{"id": "s2", "name": "Add toothpaste", "stepNumber": 2},
	{"id": "s3", "name": "Brush", "description": "Two minutes", "stepNumber": 3},
	{"id": "s4", "name": "Rinse", "stepNumber": 4}
]`
