package notify

import (
	"context"
	"log"
	"sync"
	"time"

	"visualroutine/internal/models"
)

const emailTimeout = 15 * time.Second

// UserLookup resolves the caregiver account for a user id
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// AchievementMailer sends the unlock e-mail
type AchievementMailer interface {
	SendAchievementEmail(ctx context.Context, toEmail, toName, achievementName, description string) error
}

// EmailSink mails the caregiver when an achievement is unlocked. Sending happens in the
// background so the completion request is not held up by SES.
type EmailSink struct {
	users  UserLookup
	mailer AchievementMailer
	wg     sync.WaitGroup
}

// NewEmailSink creates an e-mail sink
func NewEmailSink(users UserLookup, mailer AchievementMailer) *EmailSink {
	return &EmailSink{users: users, mailer: mailer}
}

func (s *EmailSink) OnAchievementUnlocked(ctx context.Context, userID string, achievement models.Achievement) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), emailTimeout)
		defer cancel()

		user, err := s.users.GetUserByID(ctx, userID)
		if err != nil {
			log.Printf("Error loading user %s for achievement email: %v", userID, err)
			return
		}
		if user == nil || user.Email == "" {
			return
		}
		if err := s.mailer.SendAchievementEmail(ctx, user.Email, user.Name, achievement.Name, achievement.Description); err != nil {
			log.Printf("Error sending achievement email: %v", err)
		}
	}()
}

// OnReminderFired is a no-op: reminders are announced on the device, not by e-mail
func (s *EmailSink) OnReminderFired(context.Context, models.ReminderPayload) {}

// Wait blocks until every pending e-mail has been handled
func (s *EmailSink) Wait() {
	s.wg.Wait()
}
