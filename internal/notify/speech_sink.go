package notify

import (
	"context"
	"log"

	"visualroutine/internal/audio"
	"visualroutine/internal/models"
)

// Renderer turns a reminder announcement into an audio file
type Renderer interface {
	RenderReminder(ctx context.Context, activityID, activityName string) (string, error)
}

// SpeechSink renders the spoken announcement for every fired reminder and returns the
// file through the feed, so the device can play it
type SpeechSink struct {
	renderer Renderer
	feed     *Feed
}

// NewSpeechSink creates a speech sink. feed may be nil.
func NewSpeechSink(renderer Renderer, feed *Feed) *SpeechSink {
	return &SpeechSink{renderer: renderer, feed: feed}
}

func (s *SpeechSink) OnAchievementUnlocked(context.Context, string, models.Achievement) {}

func (s *SpeechSink) OnReminderFired(ctx context.Context, payload models.ReminderPayload) {
	file, err := s.renderer.RenderReminder(ctx, payload.ActivityID, payload.ActivityName)
	if err != nil {
		log.Printf("Error rendering reminder audio for %s: %v", payload.ActivityID, err)
	}
	if s.feed == nil {
		return
	}
	s.feed.Push(payload.UserID, Event{
		Kind:        EventReminder,
		ActivityID:  payload.ActivityID,
		Title:       payload.ActivityName,
		Speak:       audio.ReminderPhrase(payload.ActivityName),
		AudioFile:   file,
		PictogramID: payload.PictogramID,
	})
}
