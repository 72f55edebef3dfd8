package sequence

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visualroutine/internal/models"
)

func fourSteps() []models.SequenceStep {
	names := []string{"Take toothbrush", "Add toothpaste", "Brush teeth", "Rinse mouth"}
	steps := make([]models.SequenceStep, len(names))
	for i, name := range names {
		steps[i] = models.NewSequenceStep(fmt.Sprintf("step_%d", i+1), name, "", 1000+i, "", i+1)
	}
	return steps
}

func TestCursorMovement(t *testing.T) {
	s := New(fourSteps(), 0)

	assert.False(t, s.HasPrevious())
	assert.Equal(t, 0, s.Retreat().Cursor(), "retreat on first step is a no-op")

	for i := 1; i < 4; i++ {
		s = s.Advance()
		assert.Equal(t, i, s.Cursor())
	}
	assert.False(t, s.HasNext())
	assert.Equal(t, 3, s.Advance().Cursor(), "advance on last step is a no-op")

	s = s.Retreat()
	assert.Equal(t, 2, s.Cursor())
}

func TestTransitionsDoNotMutateReceiver(t *testing.T) {
	s := New(fourSteps(), 1)

	_ = s.Advance()
	_ = s.Retreat()
	done, err := s.CompleteCurrentStep()
	require.NoError(t, err)

	assert.Equal(t, 1, s.Cursor())
	assert.Equal(t, 0, s.CompletedCount())
	assert.Equal(t, 1, done.CompletedCount())
}

func TestNewClampsCursor(t *testing.T) {
	tests := []struct {
		cursor int
		want   int
	}{
		{-3, 0},
		{0, 0},
		{3, 3},
		{10, 3},
	}
	for _, tt := range tests {
		if got := New(fourSteps(), tt.cursor).Cursor(); got != tt.want {
			t.Errorf("New(steps, %d).Cursor() = %d, want %d", tt.cursor, got, tt.want)
		}
	}
}

func TestCompleteCurrentStepTwice(t *testing.T) {
	s := New(fourSteps(), 0)

	s, err := s.CompleteCurrentStep()
	require.NoError(t, err)

	again, err := s.CompleteCurrentStep()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAlreadyCompleted))
	assert.Equal(t, 1, again.CompletedCount())
}

func TestFinishGate(t *testing.T) {
	s := New(fourSteps(), 0)

	for i := 0; i < 4; i++ {
		require.ErrorIs(t, s.CanFinish(), ErrSequenceIncomplete)

		var err error
		s, err = s.CompleteCurrentStep()
		require.NoError(t, err)
		s = s.Advance()
	}

	assert.NoError(t, s.CanFinish())
	assert.True(t, s.IsComplete())
}

func TestProgressPercentage(t *testing.T) {
	for n := 0; n <= 5; n++ {
		steps := make([]models.SequenceStep, n)
		for i := range steps {
			steps[i] = models.NewSequenceStep(fmt.Sprintf("s%d", i), "step", "", 0, "", i+1)
		}
		s := New(steps, 0)

		for k := 0; k <= n; k++ {
			want := 0
			if n > 0 {
				want = 100 * k / n
			}
			if got := s.ProgressPercentage(); got != want {
				t.Errorf("N=%d k=%d ProgressPercentage() = %d, want %d", n, k, got, want)
			}
			if k < n {
				var err error
				s, err = s.CompleteCurrentStep()
				require.NoError(t, err)
				s = s.Advance()
			}
		}
	}
}

func TestEmptySequence(t *testing.T) {
	s := New(nil, 0)

	_, ok := s.Current()
	assert.False(t, ok)
	assert.False(t, s.HasNext())
	assert.ErrorIs(t, s.CanFinish(), ErrSequenceIncomplete)

	_, err := s.CompleteCurrentStep()
	assert.Error(t, err)
}

func TestFromActivityPromotesPlainActivity(t *testing.T) {
	a := models.Activity{ID: "a1", Name: "Eat breakfast", PictogramID: 42}
	s := FromActivity(a)

	require.Equal(t, 1, s.Len())
	step, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "Eat breakfast", step.Name)
	assert.Equal(t, 42, step.PictogramID)
}

func TestApplyToAndSnapshot(t *testing.T) {
	s := New(fourSteps(), 0)
	s, err := s.CompleteCurrentStep()
	require.NoError(t, err)
	s = s.Advance()

	var a models.Activity
	s.ApplyTo(&a)
	assert.True(t, a.IsSequence)
	assert.Equal(t, 1, a.CurrentStepIndex)
	assert.True(t, a.Steps[0].Completed)
	require.NoError(t, a.Validate())

	state := s.Snapshot("a1", false)
	assert.Equal(t, 25, state.ProgressPercentage)
	assert.True(t, state.HasNext)
	assert.True(t, state.HasPrevious)
	assert.False(t, state.CanFinish)
	require.NotNil(t, state.CurrentStep)
	assert.Equal(t, "Add toothpaste", state.CurrentStep.Name)
}
