package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visualroutine/internal/clock"
	"visualroutine/internal/database"
	"visualroutine/internal/models"
	"visualroutine/internal/notify"
	"visualroutine/internal/progress"
	"visualroutine/internal/reminder"
	"visualroutine/internal/repository"
	"visualroutine/internal/security"
	"visualroutine/internal/service"
)

// fakeAlarms records the pending alarm per key
type fakeAlarms struct {
	mu      sync.Mutex
	exact   bool
	pending map[string]models.DeliveryMode
}

func newFakeAlarms() *fakeAlarms {
	return &fakeAlarms{exact: true, pending: make(map[string]models.DeliveryMode)}
}

func (f *fakeAlarms) RegisterExact(_ context.Context, key string, _ time.Time, _ models.ReminderPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending[key] = models.DeliveryExact
	return nil
}

func (f *fakeAlarms) RegisterBestEffort(_ context.Context, key string, _ time.Time, _ models.ReminderPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending[key] = models.DeliveryBestEffort
	return nil
}

func (f *fakeAlarms) Cancel(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pending, key)
	return nil
}

func (f *fakeAlarms) HasExactAlarmCapability() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exact
}

func (f *fakeAlarms) SetExactCapability(granted bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exact = granted
}

func (f *fakeAlarms) mode(key string) (models.DeliveryMode, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	mode, ok := f.pending[key]
	return mode, ok
}

type apiEnv struct {
	server  *httptest.Server
	alarms  *fakeAlarms
	startup *StartupStatus
	token   string
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	ctx := context.Background()

	db, err := database.Initialize(filepath.Join(t.TempDir(), "routine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations(ctx))

	clk := clock.NewFixed(time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC))
	alarms := newFakeAlarms()
	feed := notify.NewFeed(clk)

	achievements := repository.NewAchievementRepository(db)
	rules := progress.NewRuleEngine(achievements, feed, clk)
	pipeline := progress.NewPipeline(repository.NewStatsRepository(db), rules, clk, false)
	activities := service.NewActivityService(db, reminder.NewScheduler(alarms, clk, false), pipeline, nil, false)

	tokens, err := security.NewTokenIssuer("test-secret", time.Hour, clk)
	require.NoError(t, err)
	authService := service.NewAuthService(repository.NewUserRepository(db), tokens)

	startup := NewStartupStatus(StepDatabase, StepServer)
	mux := Routes(Handlers{
		Middleware: NewMiddleware(authService, nil),
		Auth:       NewAuthHandler(authService, nil, "", security.NewStateSigner("test-secret")),
		Activities: NewActivityHandler(activities),
		Sequences:  NewSequenceHandler(activities),
		Progress:   NewProgressHandler(service.NewProgressService(pipeline, achievements), feed),
		Account:    NewAccountHandler(authService, alarms, activities),
		Startup:    startup,
	})

	server := httptest.NewServer(Logging(mux))
	t.Cleanup(server.Close)

	env := &apiEnv{server: server, alarms: alarms, startup: startup}

	var session struct {
		Token string `json:"token"`
	}
	resp := env.do(t, http.MethodPost, "/auth/register", `{"email":"parent@example.com","password":"password123","name":"Pat"}`, &session)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, session.Token)
	env.token = session.Token

	return env
}

func (e *apiEnv) do(t *testing.T, method, path, body string, out any) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

type createdActivity struct {
	models.Activity
	Reminder *reminder.Scheduled `json:"reminder"`
}

func (e *apiEnv) createActivity(t *testing.T, body string) createdActivity {
	t.Helper()
	var created createdActivity
	resp := e.do(t, http.MethodPost, "/api/activities", body, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return created
}

func TestAPIRequiresBearerToken(t *testing.T) {
	env := newAPIEnv(t)
	env.token = ""

	var body errorResponse
	resp := env.do(t, http.MethodGet, "/api/activities", "", &body)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, ErrUnauthorized, body.Error)

	env.token = "not-a-jwt"
	resp = env.do(t, http.MethodGet, "/api/stats", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPIMe(t *testing.T) {
	env := newAPIEnv(t)

	var me userResponse
	resp := env.do(t, http.MethodGet, "/api/me", "", &me)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "parent@example.com", me.Email)
	assert.False(t, me.HasChildPIN)
}

func TestAPICreateAndCompleteActivity(t *testing.T) {
	env := newAPIEnv(t)

	created := env.createActivity(t, `{"name":"Breakfast","time":"09:00","pictogramId":7}`)
	require.NotNil(t, created.Reminder)
	assert.Equal(t, models.DeliveryExact, created.Reminder.Mode)

	var list []models.Activity
	env.do(t, http.MethodGet, "/api/activities", "", &list)
	require.Len(t, list, 1)

	var completion struct {
		service.Completion
		Speak string `json:"speak"`
	}
	resp := env.do(t, http.MethodPost, "/api/activities/"+created.ID+"/complete", "", &completion)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, completion.AlreadyCompleted)
	assert.Equal(t, 1, completion.Progress.Stats.TotalActivitiesCompleted)
	assert.Equal(t, 10, completion.Progress.Stats.TotalPoints)
	var unlocked []string
	for _, a := range completion.Progress.Unlocked {
		unlocked = append(unlocked, a.ID)
	}
	assert.ElementsMatch(t, []string{"daily_bronze", "explorer"}, unlocked)
	assert.Equal(t, "Well done! You finished Breakfast", completion.Speak)

	_, pending := env.alarms.mode(created.ID)
	assert.False(t, pending)

	resp = env.do(t, http.MethodPost, "/api/activities/"+created.ID+"/complete", "", &completion)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, completion.AlreadyCompleted)
	assert.Equal(t, 1, completion.Progress.Stats.TotalActivitiesCompleted)

	var events []notify.Event
	env.do(t, http.MethodGet, "/api/notifications", "", &events)
	require.Len(t, events, 2)
	for _, e := range events {
		assert.Equal(t, notify.EventAchievement, e.Kind)
	}

	env.do(t, http.MethodGet, "/api/notifications", "", &events)
	assert.Empty(t, events)
}

func TestAPIRejectsInvalidActivity(t *testing.T) {
	env := newAPIEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"bad time", `{"name":"Lunch","time":"noon"}`},
		{"missing name", `{"time":"12:00"}`},
		{"unknown field", `{"name":"Lunch","time":"12:00","colour":"red"}`},
		{"malformed steps", `{"name":"Lunch","time":"12:00","steps":[{"id":"s1","stepNumber":1}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/api/activities", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestAPIUnknownActivity(t *testing.T) {
	env := newAPIEnv(t)

	var body errorResponse
	resp := env.do(t, http.MethodGet, "/api/activities/missing", "", &body)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, ErrActivityNotFound, body.Error)

	resp = env.do(t, http.MethodDelete, "/api/activities/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIDeleteActivity(t *testing.T) {
	env := newAPIEnv(t)
	created := env.createActivity(t, `{"name":"Bath","time":"19:00"}`)

	resp := env.do(t, http.MethodDelete, "/api/activities/"+created.ID, "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, pending := env.alarms.mode(created.ID)
	assert.False(t, pending)

	resp = env.do(t, http.MethodGet, "/api/activities/"+created.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIGuidedSequence(t *testing.T) {
	env := newAPIEnv(t)
	created := env.createActivity(t, `{"name":"Brush teeth","time":"20:00","steps":[
		{"id":"s1","name":"Toothpaste","stepNumber":1},
		{"id":"s2","name":"Brush","description":"Two minutes","stepNumber":2}
	]}`)
	base := "/api/activities/" + created.ID + "/sequence"

	var state stepResponse
	resp := env.do(t, http.MethodGet, base, "", &state)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, state.Steps, 2)
	assert.True(t, state.HasNext)
	assert.Equal(t, "Toothpaste", state.Speak)

	var incomplete errorResponse
	resp = env.do(t, http.MethodPost, base+"/finish", "", &incomplete)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, SpeakFinishAllSteps, incomplete.Speak)

	resp = env.do(t, http.MethodPost, base+"/complete-step", "", &state)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 50, state.ProgressPercentage)

	var again errorResponse
	resp = env.do(t, http.MethodPost, base+"/complete-step", "", &again)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, SpeakStepAlreadyDone, again.Speak)

	resp = env.do(t, http.MethodPost, base+"/advance", "", &state)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, state.CurrentStepIndex)
	assert.Equal(t, "Brush. Two minutes", state.Speak)

	env.do(t, http.MethodPost, base+"/complete-step", "", &state)
	assert.True(t, state.CanFinish)

	var finished struct {
		State      stepResponse       `json:"state"`
		Completion service.Completion `json:"completion"`
		Speak      string             `json:"speak"`
	}
	resp = env.do(t, http.MethodPost, base+"/finish", "", &finished)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, finished.State.Finished)
	assert.Equal(t, 1, finished.Completion.Progress.Stats.TotalActivitiesCompleted)

	resp = env.do(t, http.MethodPost, base+"/finish", "", &finished)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, finished.Completion.AlreadyCompleted)
	assert.Equal(t, 1, finished.Completion.Progress.Stats.TotalActivitiesCompleted)
}

func TestAPIResetRoutine(t *testing.T) {
	env := newAPIEnv(t)
	created := env.createActivity(t, `{"name":"Breakfast","time":"09:00"}`)
	env.do(t, http.MethodPost, "/api/activities/"+created.ID+"/complete", "", nil)

	var reset map[string]int
	resp := env.do(t, http.MethodPost, "/api/routine/reset", "", &reset)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, reset["reset"])

	var activity models.Activity
	env.do(t, http.MethodGet, "/api/activities/"+created.ID, "", &activity)
	assert.False(t, activity.Completed)

	_, pending := env.alarms.mode(created.ID)
	assert.True(t, pending)
}

func TestAPIChildPIN(t *testing.T) {
	env := newAPIEnv(t)

	resp := env.do(t, http.MethodPut, "/api/child-pin", `{"pin":"12a4"}`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPut, "/api/child-pin", `{"pin":"1234"}`, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	var body errorResponse
	resp = env.do(t, http.MethodPost, "/api/child-pin/verify", `{"pin":"0000"}`, &body)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, SpeakWrongPIN, body.Speak)

	resp = env.do(t, http.MethodPost, "/api/child-pin/verify", `{"pin":"1234"}`, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var me userResponse
	env.do(t, http.MethodGet, "/api/me", "", &me)
	assert.True(t, me.HasChildPIN)
}

func TestAPIExactAlarmToggleReschedules(t *testing.T) {
	env := newAPIEnv(t)
	created := env.createActivity(t, `{"name":"Lunch","time":"12:00"}`)

	var result map[string]any
	resp := env.do(t, http.MethodPut, "/api/device/exact-alarms", `{"granted":false}`, &result)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), result["rescheduled"])

	mode, ok := env.alarms.mode(created.ID)
	require.True(t, ok)
	assert.Equal(t, models.DeliveryBestEffort, mode)
}

func TestHealthReportsReadiness(t *testing.T) {
	env := newAPIEnv(t)

	resp := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	env.startup.CompleteStep(StepDatabase)
	var health healthResponse
	env.do(t, http.MethodGet, "/healthz", "", &health)
	assert.Equal(t, 50, health.Progress)

	env.startup.MarkReady()
	resp = env.do(t, http.MethodGet, "/healthz", "", &health)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, health.Ready)
}
