package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visualroutine/internal/models"
)

func TestActivityRepositoryCRUD(t *testing.T) {
	db := setupTestDB(t)
	repo := NewActivityRepository(db)
	ctx := context.Background()
	user := createTestUser(t, db, "ana@example.com")

	plain := &models.Activity{UserID: user.ID, Name: "Lunch", Time: "13:00", PictogramID: 2345}
	require.NoError(t, repo.Create(ctx, plain))
	require.NotEmpty(t, plain.ID)

	seq := &models.Activity{
		UserID:     user.ID,
		Name:       "Brush teeth",
		Time:       "08:00",
		IsSequence: true,
		Steps: []models.SequenceStep{
			models.NewSequenceStep("s1", "Take toothbrush", "", 1, "toothbrush", 1),
			models.NewSequenceStep("s2", "Brush", "Up and down", 2, "brush", 2),
		},
	}
	require.NoError(t, repo.Create(ctx, seq))

	got, err := repo.GetByID(ctx, seq.ID)
	require.NoError(t, err)
	assert.True(t, got.IsSequence)
	require.Len(t, got.Steps, 2)
	assert.Equal(t, "Brush. Up and down", got.Steps[1].AudioText)

	list, err := repo.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "08:00", list[0].Time, "ordered by time of day")

	got.Steps[0].Completed = true
	got.CurrentStepIndex = 1
	require.NoError(t, repo.Update(ctx, got))

	again, err := repo.GetByID(ctx, seq.ID)
	require.NoError(t, err)
	assert.True(t, again.Steps[0].Completed)
	assert.Equal(t, 1, again.CurrentStepIndex)

	// writing identical values still counts as a found row
	require.NoError(t, repo.Update(ctx, again))

	require.NoError(t, repo.Delete(ctx, plain.ID))
	_, err = repo.GetByID(ctx, plain.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, plain.ID), ErrNotFound)

	missing := &models.Activity{ID: "missing", Name: "x", Time: "10:00"}
	assert.ErrorIs(t, repo.Update(ctx, missing), ErrNotFound)
}

func TestActivityRepositoryRejectsInvalidSequence(t *testing.T) {
	db := setupTestDB(t)
	repo := NewActivityRepository(db)
	user := createTestUser(t, db, "ana@example.com")

	bad := &models.Activity{UserID: user.ID, Name: "Empty", Time: "09:00", IsSequence: true}
	assert.ErrorIs(t, repo.Create(context.Background(), bad), models.ErrInvalidActivity)
}

func TestActivityRepositoryMalformedStoredSteps(t *testing.T) {
	db := setupTestDB(t)
	repo := NewActivityRepository(db)
	ctx := context.Background()
	user := createTestUser(t, db, "ana@example.com")

	_, err := db.ExecContext(ctx,
		"INSERT INTO activities (id, user_id, name, time_of_day, is_sequence, steps_json) VALUES (?, ?, ?, ?, ?, ?)",
		"a1", user.ID, "Broken", "09:00", true, `[{"id":"s1","stepNumber":1}]`)
	require.NoError(t, err)

	_, err = repo.GetByID(ctx, "a1")
	var malformed *models.MalformedStepError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "name", malformed.Field)
}
