// Package sequence implements the guided step-by-step state machine for multi-step
// activities. A Sequence is a value: every transition returns a new Sequence and leaves
// the receiver untouched.
package sequence

import (
	"errors"
	"fmt"
	"slices"

	"visualroutine/internal/models"
)

var (
	// ErrAlreadyCompleted is returned when completing a step that is already done
	ErrAlreadyCompleted = errors.New("step already completed")

	// ErrSequenceIncomplete is returned when finishing with pending steps
	ErrSequenceIncomplete = errors.New("sequence has pending steps")
)

// Sequence is a cursor over an ordered list of steps
type Sequence struct {
	steps  []models.SequenceStep
	cursor int
}

// New creates a sequence over a copy of steps. The cursor is clamped into range.
func New(steps []models.SequenceStep, cursor int) Sequence {
	s := Sequence{steps: slices.Clone(steps)}
	s.cursor = s.clamp(cursor)
	return s
}

// FromActivity builds the sequence for an activity, promoting plain activities to a
// single step
func FromActivity(a models.Activity) Sequence {
	seq := a.AsSequence()
	return New(seq.Steps, seq.CurrentStepIndex)
}

func (s Sequence) clamp(i int) int {
	if i < 0 || len(s.steps) == 0 {
		return 0
	}
	if i >= len(s.steps) {
		return len(s.steps) - 1
	}
	return i
}

// Len returns the number of steps
func (s Sequence) Len() int {
	return len(s.steps)
}

// Cursor returns the index of the current step
func (s Sequence) Cursor() int {
	return s.cursor
}

// Steps returns a copy of the steps
func (s Sequence) Steps() []models.SequenceStep {
	return slices.Clone(s.steps)
}

// Current returns the step at the cursor
func (s Sequence) Current() (models.SequenceStep, bool) {
	if len(s.steps) == 0 {
		return models.SequenceStep{}, false
	}
	return s.steps[s.cursor], true
}

// HasNext reports whether Advance would move the cursor
func (s Sequence) HasNext() bool {
	return s.cursor < len(s.steps)-1
}

// HasPrevious reports whether Retreat would move the cursor
func (s Sequence) HasPrevious() bool {
	return s.cursor > 0
}

// Advance moves to the next step; a no-op on the last step
func (s Sequence) Advance() Sequence {
	if s.HasNext() {
		s.cursor++
	}
	return s
}

// Retreat moves to the previous step; a no-op on the first step
func (s Sequence) Retreat() Sequence {
	if s.HasPrevious() {
		s.cursor--
	}
	return s
}

// CompleteCurrentStep marks the step at the cursor as completed. Completion is one-way:
// a completed step yields ErrAlreadyCompleted and the receiver is returned unchanged.
func (s Sequence) CompleteCurrentStep() (Sequence, error) {
	if len(s.steps) == 0 {
		return s, fmt.Errorf("complete step: %w", ErrSequenceIncomplete)
	}
	if s.steps[s.cursor].Completed {
		return s, fmt.Errorf("step %d: %w", s.steps[s.cursor].StepNumber, ErrAlreadyCompleted)
	}

	next := Sequence{steps: slices.Clone(s.steps), cursor: s.cursor}
	next.steps[next.cursor].Completed = true
	return next, nil
}

// CompletedCount returns how many steps are completed
func (s Sequence) CompletedCount() int {
	n := 0
	for _, step := range s.steps {
		if step.Completed {
			n++
		}
	}
	return n
}

// ProgressPercentage returns 100*completed/total, or 0 for an empty sequence
func (s Sequence) ProgressPercentage() int {
	if len(s.steps) == 0 {
		return 0
	}
	return 100 * s.CompletedCount() / len(s.steps)
}

// IsComplete reports whether every step is completed
func (s Sequence) IsComplete() bool {
	return len(s.steps) > 0 && s.CompletedCount() == len(s.steps)
}

// CanFinish returns ErrSequenceIncomplete unless every step is completed
func (s Sequence) CanFinish() error {
	if !s.IsComplete() {
		return fmt.Errorf("%d of %d steps completed: %w", s.CompletedCount(), len(s.steps), ErrSequenceIncomplete)
	}
	return nil
}

// ApplyTo writes the steps and cursor into the activity
func (s Sequence) ApplyTo(a *models.Activity) {
	a.IsSequence = true
	a.Steps = slices.Clone(s.steps)
	a.CurrentStepIndex = s.cursor
}

// State is the serializable view of a sequence returned to clients
type State struct {
	ActivityID         string                `json:"activityId"`
	Steps              []models.SequenceStep `json:"steps"`
	CurrentStepIndex   int                   `json:"currentStepIndex"`
	CurrentStep        *models.SequenceStep  `json:"currentStep,omitempty"`
	HasNext            bool                  `json:"hasNext"`
	HasPrevious        bool                  `json:"hasPrevious"`
	ProgressPercentage int                   `json:"progressPercentage"`
	CanFinish          bool                  `json:"canFinish"`
	Finished           bool                  `json:"finished"`
}

// Snapshot returns the client view of the sequence for an activity
func (s Sequence) Snapshot(activityID string, finished bool) State {
	state := State{
		ActivityID:         activityID,
		Steps:              s.Steps(),
		CurrentStepIndex:   s.cursor,
		HasNext:            s.HasNext(),
		HasPrevious:        s.HasPrevious(),
		ProgressPercentage: s.ProgressPercentage(),
		CanFinish:          s.IsComplete(),
		Finished:           finished,
	}
	if step, ok := s.Current(); ok {
		state.CurrentStep = &step
	}
	return state
}
