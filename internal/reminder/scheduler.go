package reminder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"visualroutine/internal/clock"
	"visualroutine/internal/models"
)

// SnoozeDelay is how far a postponed reminder is pushed
const SnoozeDelay = 5 * time.Minute

// ErrPermissionDenied is returned by an AlarmPort when exact delivery is refused at
// registration time. The scheduler recovers by registering a best-effort alarm.
var ErrPermissionDenied = errors.New("exact alarm permission denied")

// AlarmPort is the platform alarm capability. Registering a key replaces any pending alarm
// for the same key; cancelling an unknown key is not an error.
type AlarmPort interface {
	RegisterExact(ctx context.Context, key string, at time.Time, payload models.ReminderPayload) error
	RegisterBestEffort(ctx context.Context, key string, at time.Time, payload models.ReminderPayload) error
	Cancel(ctx context.Context, key string) error
	HasExactAlarmCapability() bool
}

// Scheduled describes the alarm registered for an activity
type Scheduled struct {
	Key  string              `json:"key"`
	At   time.Time           `json:"at"`
	Mode models.DeliveryMode `json:"mode"`
}

// Scheduler registers, replaces and cancels activity reminders
type Scheduler struct {
	alarms AlarmPort
	clock  clock.Clock
	debug  bool
}

// NewScheduler creates a scheduler on top of an alarm port
func NewScheduler(alarms AlarmPort, clk clock.Clock, debug bool) *Scheduler {
	return &Scheduler{
		alarms: alarms,
		clock:  clk,
		debug:  debug,
	}
}

// Schedule resolves the activity's time of day and registers its reminder
func (s *Scheduler) Schedule(ctx context.Context, activity *models.Activity) (Scheduled, error) {
	now := s.clock.Now()
	at, err := Resolve(activity.Time, now)
	if err != nil {
		return Scheduled{}, err
	}

	if s.debug {
		log.Printf("[DEBUG] resolved reminder for %s: time=%s now=%s at=%s", activity.ID, activity.Time, now.Format(time.RFC3339), at.Format(time.RFC3339))
	}

	return s.ScheduleAt(ctx, activity, at)
}

// ScheduleAt registers the activity's reminder at a concrete instant
func (s *Scheduler) ScheduleAt(ctx context.Context, activity *models.Activity, at time.Time) (Scheduled, error) {
	key := activity.ID
	payload := PayloadFor(activity)

	if s.alarms.HasExactAlarmCapability() {
		err := s.alarms.RegisterExact(ctx, key, at, payload)
		if err == nil {
			return Scheduled{Key: key, At: at, Mode: models.DeliveryExact}, nil
		}
		if !errors.Is(err, ErrPermissionDenied) {
			return Scheduled{}, fmt.Errorf("failed to register exact reminder: %w", err)
		}
		log.Printf("Exact alarm refused for %s, falling back to best-effort: %v", key, err)
	}

	if err := s.alarms.RegisterBestEffort(ctx, key, at, payload); err != nil {
		return Scheduled{}, fmt.Errorf("failed to register reminder: %w", err)
	}
	return Scheduled{Key: key, At: at, Mode: models.DeliveryBestEffort}, nil
}

// Snooze pushes the activity's reminder to now + SnoozeDelay under the same key
func (s *Scheduler) Snooze(ctx context.Context, activity *models.Activity) (Scheduled, error) {
	return s.ScheduleAt(ctx, activity, s.clock.Now().Add(SnoozeDelay))
}

// Cancel deregisters any pending reminder for the activity
func (s *Scheduler) Cancel(ctx context.Context, activityID string) error {
	if err := s.alarms.Cancel(ctx, activityID); err != nil {
		return fmt.Errorf("failed to cancel reminder: %w", err)
	}
	return nil
}

// PayloadFor builds the data delivered with an activity's reminder
func PayloadFor(activity *models.Activity) models.ReminderPayload {
	return models.ReminderPayload{
		ActivityID:       activity.ID,
		UserID:           activity.UserID,
		ActivityName:     activity.Name,
		ActivityTime:     activity.Time,
		PictogramID:      activity.PictogramID,
		PictogramKeyword: activity.PictogramKeyword,
	}
}
