// Package notify delivers achievement unlocks and fired reminders to the people who
// should hear about them: the process log, the caregiver's inbox, rendered speech and
// the in-app feed the client polls.
package notify

import (
	"context"
	"log"

	"visualroutine/internal/models"
)

// Sink receives outcome notifications from the progress pipeline and the alarm manager.
// Implementations must not block the caller for long.
type Sink interface {
	OnAchievementUnlocked(ctx context.Context, userID string, achievement models.Achievement)
	OnReminderFired(ctx context.Context, payload models.ReminderPayload)
}

// Multi fans every notification out to each sink in order
type Multi []Sink

func (m Multi) OnAchievementUnlocked(ctx context.Context, userID string, achievement models.Achievement) {
	for _, s := range m {
		s.OnAchievementUnlocked(ctx, userID, achievement)
	}
}

func (m Multi) OnReminderFired(ctx context.Context, payload models.ReminderPayload) {
	for _, s := range m {
		s.OnReminderFired(ctx, payload)
	}
}

// LogSink writes notifications to the standard logger
type LogSink struct{}

func (LogSink) OnAchievementUnlocked(_ context.Context, userID string, achievement models.Achievement) {
	log.Printf("User %s unlocked achievement %q", userID, achievement.Name)
}

func (LogSink) OnReminderFired(_ context.Context, payload models.ReminderPayload) {
	log.Printf("Reminder for user %s: %s at %s", payload.UserID, payload.ActivityName, payload.ActivityTime)
}
