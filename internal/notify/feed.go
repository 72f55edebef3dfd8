package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"visualroutine/internal/clock"
	"visualroutine/internal/models"
)

// feedCapacity is how many undelivered events are kept per user
const feedCapacity = 50

// EventKind distinguishes feed entries
type EventKind string

const (
	EventReminder    EventKind = "reminder"
	EventAchievement EventKind = "achievement"
)

// Event is one notice shown to the user as a toast and read aloud
type Event struct {
	Kind          EventKind `json:"kind"`
	ActivityID    string    `json:"activityId,omitempty"`
	AchievementID string    `json:"achievementId,omitempty"`
	Title         string    `json:"title"`
	Speak         string    `json:"speak"`
	AudioFile     string    `json:"audioFile,omitempty"`
	PictogramID   int       `json:"pictogramId,omitempty"`
	At            time.Time `json:"at"`
}

// Feed buffers events per user until the client drains them
type Feed struct {
	mu     sync.Mutex
	clock  clock.Clock
	events map[string][]Event
}

// NewFeed creates an empty feed
func NewFeed(clk clock.Clock) *Feed {
	return &Feed{clock: clk, events: make(map[string][]Event)}
}

// Push appends an event, dropping the oldest once the user's buffer is full
func (f *Feed) Push(userID string, e Event) {
	if e.At.IsZero() {
		e.At = f.clock.Now()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	queue := append(f.events[userID], e)
	if len(queue) > feedCapacity {
		queue = queue[len(queue)-feedCapacity:]
	}
	f.events[userID] = queue
}

// Drain returns and clears a user's pending events, oldest first
func (f *Feed) Drain(userID string) []Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	events := f.events[userID]
	delete(f.events, userID)
	if events == nil {
		return []Event{}
	}
	return events
}

func (f *Feed) OnAchievementUnlocked(_ context.Context, userID string, achievement models.Achievement) {
	f.Push(userID, Event{
		Kind:          EventAchievement,
		AchievementID: achievement.ID,
		Title:         achievement.Name,
		Speak:         fmt.Sprintf("Well done! You unlocked %s", achievement.Name),
	})
}

// OnReminderFired is a no-op; SpeechSink pushes reminder events once audio is rendered
func (f *Feed) OnReminderFired(context.Context, models.ReminderPayload) {}
