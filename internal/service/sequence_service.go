package service

import (
	"context"
	"errors"
	"fmt"

	"visualroutine/internal/sequence"
)

// FinishResult is returned by FinishSequence
type FinishResult struct {
	State      sequence.State `json:"state"`
	Completion *Completion    `json:"completion"`
}

// SequenceState returns the guided-sequence view of an activity. Plain activities are
// presented as a single step.
func (s *ActivityService) SequenceState(ctx context.Context, userID, id string) (sequence.State, error) {
	activity, err := s.owned(ctx, userID, id)
	if err != nil {
		return sequence.State{}, err
	}
	return sequence.FromActivity(*activity).Snapshot(activity.ID, activity.Completed), nil
}

// AdvanceStep moves the cursor to the next step; a no-op on the last step
func (s *ActivityService) AdvanceStep(ctx context.Context, userID, id string) (sequence.State, error) {
	return s.mutateSequence(ctx, userID, id, func(seq sequence.Sequence) (sequence.Sequence, error) {
		return seq.Advance(), nil
	})
}

// RetreatStep moves the cursor to the previous step; a no-op on the first step
func (s *ActivityService) RetreatStep(ctx context.Context, userID, id string) (sequence.State, error) {
	return s.mutateSequence(ctx, userID, id, func(seq sequence.Sequence) (sequence.Sequence, error) {
		return seq.Retreat(), nil
	})
}

// CompleteStep marks the step under the cursor done. It returns
// sequence.ErrAlreadyCompleted, with the unchanged state, if it already was.
func (s *ActivityService) CompleteStep(ctx context.Context, userID, id string) (sequence.State, error) {
	return s.mutateSequence(ctx, userID, id, func(seq sequence.Sequence) (sequence.Sequence, error) {
		return seq.CompleteCurrentStep()
	})
}

// FinishSequence completes the parent activity once every step is done and runs the
// progress pipeline exactly once. Finishing an already finished activity has no further
// effect; finishing with pending steps returns sequence.ErrSequenceIncomplete and
// leaves the activity untouched.
func (s *ActivityService) FinishSequence(ctx context.Context, userID, id string) (*FinishResult, error) {
	unlock := s.pipeline.Locks().Lock(userID)
	defer unlock()

	activity, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	seq := sequence.FromActivity(*activity)

	if activity.Completed {
		completion, err := s.alreadyCompleted(ctx, activity)
		if err != nil {
			return nil, err
		}
		return &FinishResult{State: seq.Snapshot(activity.ID, true), Completion: completion}, nil
	}

	if err := seq.CanFinish(); err != nil {
		return &FinishResult{State: seq.Snapshot(activity.ID, false)}, err
	}

	previous := activity.Clone()
	seq.ApplyTo(activity)
	activity.Completed = true

	completion, err := s.recordCompletion(ctx, activity, previous)
	if completion != nil && completion.Activity == previous {
		return &FinishResult{State: seq.Snapshot(activity.ID, false), Completion: completion}, err
	}
	return &FinishResult{State: seq.Snapshot(activity.ID, true), Completion: completion}, err
}

// mutateSequence applies one transition under the user's lock and persists the result
func (s *ActivityService) mutateSequence(ctx context.Context, userID, id string, transition func(sequence.Sequence) (sequence.Sequence, error)) (sequence.State, error) {
	unlock := s.pipeline.Locks().Lock(userID)
	defer unlock()

	activity, err := s.owned(ctx, userID, id)
	if err != nil {
		return sequence.State{}, err
	}

	seq := sequence.FromActivity(*activity)
	next, err := transition(seq)
	if err != nil {
		if errors.Is(err, sequence.ErrAlreadyCompleted) {
			return seq.Snapshot(activity.ID, activity.Completed), err
		}
		return sequence.State{}, err
	}

	if sameCursorAndSteps(seq, next) {
		return next.Snapshot(activity.ID, activity.Completed), nil
	}

	next.ApplyTo(activity)
	if err := s.repo.Update(ctx, activity); err != nil {
		return sequence.State{}, fmt.Errorf("failed to save sequence: %w", err)
	}
	return next.Snapshot(activity.ID, activity.Completed), nil
}

func sameCursorAndSteps(a, b sequence.Sequence) bool {
	if a.Cursor() != b.Cursor() || a.CompletedCount() != b.CompletedCount() {
		return false
	}
	return a.Len() == b.Len()
}
