package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"visualroutine/internal/audio"
	"visualroutine/internal/database"
	"visualroutine/internal/models"
	"visualroutine/internal/progress"
	"visualroutine/internal/reminder"
	"visualroutine/internal/repository"
	"visualroutine/internal/validation"
)

// ActivityInput is the caregiver-editable part of an activity. Steps is the raw step
// list as sent by the client; it is decoded strictly.
type ActivityInput struct {
	Name             string          `json:"name"`
	Time             string          `json:"time"`
	PictogramID      int             `json:"pictogramId"`
	PictogramKeyword string          `json:"pictogramKeyword"`
	Steps            json.RawMessage `json:"steps,omitempty"`
}

// Completion is the outcome of completing an activity or finishing a sequence
type Completion struct {
	Activity         *models.Activity          `json:"activity"`
	Progress         progress.CompletionResult `json:"progress"`
	AlreadyCompleted bool                      `json:"alreadyCompleted"`
}

// ActivityService handles the activity lifecycle: CRUD, reminders and completion
type ActivityService struct {
	db        *database.DB
	repo      *repository.ActivityRepository
	scheduler *reminder.Scheduler
	pipeline  *progress.Pipeline
	tts       *audio.TTSService
	debug     bool
	audioWG   sync.WaitGroup
}

// NewActivityService creates a new activity service. tts may be nil.
func NewActivityService(db *database.DB, scheduler *reminder.Scheduler, pipeline *progress.Pipeline, tts *audio.TTSService, debug bool) *ActivityService {
	return &ActivityService{
		db:        db,
		repo:      repository.NewActivityRepository(db),
		scheduler: scheduler,
		pipeline:  pipeline,
		tts:       tts,
		debug:     debug,
	}
}

// Create validates the input, stores the activity and schedules its reminder
func (s *ActivityService) Create(ctx context.Context, userID string, in ActivityInput) (*models.Activity, reminder.Scheduled, error) {
	activity := &models.Activity{UserID: userID}
	if err := applyInput(activity, in); err != nil {
		return nil, reminder.Scheduled{}, err
	}

	if err := s.repo.Create(ctx, activity); err != nil {
		return nil, reminder.Scheduled{}, fmt.Errorf("failed to create activity: %w", err)
	}

	scheduled, err := s.scheduler.Schedule(ctx, activity)
	if err != nil {
		return activity, reminder.Scheduled{}, fmt.Errorf("failed to schedule reminder: %w", err)
	}

	s.prepareAudio(activity)
	return activity, scheduled, nil
}

// Get returns one of the user's activities, or repository.ErrNotFound
func (s *ActivityService) Get(ctx context.Context, userID, id string) (*models.Activity, error) {
	return s.owned(ctx, userID, id)
}

// List returns the user's activities ordered by time of day
func (s *ActivityService) List(ctx context.Context, userID string) ([]models.Activity, error) {
	activities, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	if activities == nil {
		activities = []models.Activity{}
	}
	return activities, nil
}

// Update replaces the editable fields and reschedules the reminder under the same key
func (s *ActivityService) Update(ctx context.Context, userID, id string, in ActivityInput) (*models.Activity, reminder.Scheduled, error) {
	unlock := s.pipeline.Locks().Lock(userID)
	defer unlock()

	activity, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, reminder.Scheduled{}, err
	}
	if err := applyInput(activity, in); err != nil {
		return nil, reminder.Scheduled{}, err
	}
	if err := s.repo.Update(ctx, activity); err != nil {
		return nil, reminder.Scheduled{}, fmt.Errorf("failed to update activity: %w", err)
	}

	var scheduled reminder.Scheduled
	if !activity.Completed {
		scheduled, err = s.scheduler.Schedule(ctx, activity)
		if err != nil {
			return activity, reminder.Scheduled{}, fmt.Errorf("failed to reschedule reminder: %w", err)
		}
	}

	s.prepareAudio(activity)
	return activity, scheduled, nil
}

// Delete cancels the activity's reminder, removes it and drops its rendered audio
func (s *ActivityService) Delete(ctx context.Context, userID, id string) error {
	unlock := s.pipeline.Locks().Lock(userID)
	defer unlock()

	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.scheduler.Cancel(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete activity: %w", err)
	}

	if s.tts != nil {
		if err := s.tts.DeleteActivityAudio(id); err != nil {
			log.Printf("Error deleting audio for activity %s: %v", id, err)
		}
	}
	return nil
}

// Snooze pushes the activity's reminder back by reminder.SnoozeDelay
func (s *ActivityService) Snooze(ctx context.Context, userID, id string) (reminder.Scheduled, error) {
	activity, err := s.owned(ctx, userID, id)
	if err != nil {
		return reminder.Scheduled{}, err
	}
	return s.scheduler.Snooze(ctx, activity)
}

// Complete marks a plain activity done and runs the progress pipeline once. Completing an
// activity that is already done has no further effect.
func (s *ActivityService) Complete(ctx context.Context, userID, id string) (*Completion, error) {
	unlock := s.pipeline.Locks().Lock(userID)
	defer unlock()

	activity, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if activity.Completed {
		return s.alreadyCompleted(ctx, activity)
	}

	previous := activity.Clone()
	activity.Completed = true
	if activity.IsSequence {
		for i := range activity.Steps {
			activity.Steps[i].Completed = true
		}
	}
	return s.recordCompletion(ctx, activity, previous)
}

// ResetDay starts a new day for all of the user's activities: each is marked pending,
// each sequence gets a fresh list of pending steps and every reminder is scheduled again
func (s *ActivityService) ResetDay(ctx context.Context, userID string) (int, error) {
	unlock := s.pipeline.Locks().Lock(userID)
	defer unlock()

	var reset []models.Activity
	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		repo := repository.NewActivityRepository(tx)
		activities, err := repo.ListByUser(ctx, userID)
		if err != nil {
			return err
		}
		for i := range activities {
			activities[i].ResetForNewDay(uuid.NewString)
			if err := repo.Update(ctx, &activities[i]); err != nil {
				return err
			}
		}
		reset = activities
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to reset routine: %w", err)
	}

	for i := range reset {
		if _, err := s.scheduler.Schedule(ctx, &reset[i]); err != nil {
			log.Printf("Error rescheduling reminder for %s: %v", reset[i].ID, err)
		}
		if reset[i].IsSequence {
			s.prepareAudio(&reset[i])
		}
	}

	log.Printf("Routine reset for user %s: %d activities", userID, len(reset))
	return len(reset), nil
}

// RescheduleAll registers the reminder of every pending activity again, used after the
// device's exact-alarm capability changes
func (s *ActivityService) RescheduleAll(ctx context.Context, userID string) (int, error) {
	activities, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to list activities: %w", err)
	}

	count := 0
	for i := range activities {
		if activities[i].Completed {
			continue
		}
		if _, err := s.scheduler.Schedule(ctx, &activities[i]); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// WaitForAudio blocks until background audio rendering has finished
func (s *ActivityService) WaitForAudio() {
	s.audioWG.Wait()
}

// recordCompletion persists the completed activity and feeds the pipeline. If the
// completion could not be counted the activity is put back to previous, so a retry runs
// the pipeline again. The user's lock must be held.
func (s *ActivityService) recordCompletion(ctx context.Context, activity, previous *models.Activity) (*Completion, error) {
	if err := s.repo.Update(ctx, activity); err != nil {
		return nil, fmt.Errorf("failed to save activity: %w", err)
	}

	result, err := s.pipeline.RecordCompletion(ctx, activity.UserID)
	if err != nil && !result.Recorded {
		if rbErr := s.repo.Update(ctx, previous); rbErr != nil {
			log.Printf("Error restoring activity %s after failed completion: %v", activity.ID, rbErr)
			return &Completion{Activity: activity, Progress: result}, err
		}
		return &Completion{Activity: previous, Progress: result}, err
	}

	if cancelErr := s.scheduler.Cancel(ctx, activity.ID); cancelErr != nil {
		log.Printf("Error cancelling reminder for completed activity %s: %v", activity.ID, cancelErr)
	}
	return &Completion{Activity: activity, Progress: result}, err
}

func (s *ActivityService) alreadyCompleted(ctx context.Context, activity *models.Activity) (*Completion, error) {
	stats, err := s.pipeline.CurrentStats(ctx, activity.UserID)
	if err != nil {
		return nil, err
	}
	return &Completion{
		Activity:         activity,
		Progress:         progress.CompletionResult{Stats: stats, Unlocked: []models.Achievement{}},
		AlreadyCompleted: true,
	}, nil
}

// owned loads an activity and hides activities that belong to someone else
func (s *ActivityService) owned(ctx context.Context, userID, id string) (*models.Activity, error) {
	activity, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if activity.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return activity, nil
}

// prepareAudio renders the reminder and step audio in the background
func (s *ActivityService) prepareAudio(activity *models.Activity) {
	if s.tts == nil || !s.tts.Enabled() {
		return
	}

	id, name := activity.ID, activity.Name
	steps := append([]models.SequenceStep(nil), activity.Steps...)

	s.audioWG.Add(1)
	go func() {
		defer s.audioWG.Done()
		ctx := context.Background()

		if _, err := s.tts.RenderReminder(ctx, id, name); err != nil {
			log.Printf("Error generating reminder audio for %s: %v", id, err)
		}
		for _, step := range steps {
			if _, err := s.tts.RenderStep(ctx, id, step.ID, step.AudioText); err != nil {
				log.Printf("Error generating step audio for %s/%s: %v", id, step.ID, err)
			}
		}
		if s.debug {
			log.Printf("[DEBUG] audio ready for activity %s (%d steps)", id, len(steps))
		}
	}()
}

// applyInput validates caregiver input and copies it onto the activity. Replacing the
// steps moves the cursor back to the first step; a step id that is already completed
// stays completed.
func applyInput(activity *models.Activity, in ActivityInput) error {
	if err := validation.ValidateActivityName(in.Name); err != nil {
		return err
	}
	if err := validation.ValidateTimeOfDay(in.Time); err != nil {
		return err
	}

	activity.Name = in.Name
	activity.Time = in.Time
	activity.PictogramID = in.PictogramID
	activity.PictogramKeyword = in.PictogramKeyword

	if len(in.Steps) == 0 || string(in.Steps) == "null" {
		return nil
	}
	steps, err := models.DecodeSteps(in.Steps)
	if err != nil {
		return err
	}
	done := make(map[string]bool, len(activity.Steps))
	for _, step := range activity.Steps {
		if step.Completed {
			done[step.ID] = true
		}
	}
	for i := range steps {
		steps[i].Completed = steps[i].Completed || done[steps[i].ID]
	}
	activity.Steps = steps
	activity.IsSequence = len(steps) > 0
	activity.CurrentStepIndex = 0
	return nil
}

// IsNotFound reports whether err means the requested activity does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
