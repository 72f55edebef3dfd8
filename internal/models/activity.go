package models

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// ErrInvalidActivity is returned when an activity violates its sequence invariant
var ErrInvalidActivity = errors.New("invalid activity")

// Activity is one schedulable, picturable task shown to the end user
type Activity struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Time             string         `json:"time"` // HH:MM, no date
	PictogramID      int            `json:"pictogramId"`
	PictogramKeyword string         `json:"pictogramKeyword,omitempty"`
	Completed        bool           `json:"completed"`
	UserID           string         `json:"userId"`
	CreatedAt        time.Time      `json:"createdAt"`
	IsSequence       bool           `json:"isSequence"`
	Steps            []SequenceStep `json:"steps,omitempty"`
	CurrentStepIndex int            `json:"currentStepIndex"`
}

// SequenceStep is one instruction within a multi-step activity
type SequenceStep struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	PictogramID      int    `json:"pictogramId"`
	PictogramKeyword string `json:"pictogramKeyword"`
	StepNumber       int    `json:"stepNumber"`
	Completed        bool   `json:"completed"`
	AudioText        string `json:"audioText"`
}

// NewSequenceStep creates a pending step with its speakable text derived from name and description
func NewSequenceStep(id, name, description string, pictogramID int, keyword string, stepNumber int) SequenceStep {
	return SequenceStep{
		ID:               id,
		Name:             name,
		Description:      description,
		PictogramID:      pictogramID,
		PictogramKeyword: keyword,
		StepNumber:       stepNumber,
		AudioText:        SpeakableStepText(name, description),
	}
}

// SpeakableStepText builds the text read aloud for a step
func SpeakableStepText(name, description string) string {
	if description == "" {
		return name
	}
	return name + ". " + description
}

// TotalSteps returns the number of steps in the activity
func (a *Activity) TotalSteps() int {
	return len(a.Steps)
}

// Validate checks the sequence invariant: a sequence has steps and an in-range cursor
func (a *Activity) Validate() error {
	if !a.IsSequence {
		return nil
	}
	if len(a.Steps) == 0 {
		return fmt.Errorf("%w: sequence %q has no steps", ErrInvalidActivity, a.ID)
	}
	if a.CurrentStepIndex < 0 || a.CurrentStepIndex >= len(a.Steps) {
		return fmt.Errorf("%w: step index %d out of range [0, %d)", ErrInvalidActivity, a.CurrentStepIndex, len(a.Steps))
	}
	return nil
}

// AsSequence returns the activity as a sequence. Plain activities are promoted to a
// single step that repeats the activity itself.
func (a Activity) AsSequence() Activity {
	if a.IsSequence && len(a.Steps) > 0 {
		return a
	}
	step := NewSequenceStep("step_1", a.Name, "Do the activity: "+a.Name, a.PictogramID, a.PictogramKeyword, 1)
	step.Completed = a.Completed
	a.IsSequence = true
	a.Steps = []SequenceStep{step}
	a.CurrentStepIndex = 0
	return a
}

// Clone returns a copy that shares no step storage with a
func (a *Activity) Clone() *Activity {
	c := *a
	c.Steps = slices.Clone(a.Steps)
	return &c
}

// ResetForNewDay marks the activity pending again. A sequence is given a fresh list of
// pending steps under ids from newID; completed step records are replaced, never cleared.
func (a *Activity) ResetForNewDay(newID func() string) {
	a.Completed = false
	a.CurrentStepIndex = 0
	if len(a.Steps) == 0 {
		return
	}

	fresh := make([]SequenceStep, len(a.Steps))
	for i, step := range a.Steps {
		fresh[i] = NewSequenceStep(newID(), step.Name, step.Description, step.PictogramID, step.PictogramKeyword, step.StepNumber)
		fresh[i].AudioText = step.AudioText
	}
	a.Steps = fresh
}
