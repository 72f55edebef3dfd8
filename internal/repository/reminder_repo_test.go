package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visualroutine/internal/models"
)

func TestReminderRepositoryReplace(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReminderRepository(db)
	ctx := context.Background()

	payload := models.ReminderPayload{ActivityID: "a1", UserID: "u1", ActivityName: "Lunch", ActivityTime: "13:00", PictogramID: 7}
	first := time.Date(2024, 3, 10, 13, 0, 0, 0, time.UTC)
	second := first.Add(24 * time.Hour)

	require.NoError(t, repo.Put(ctx, models.Reminder{Key: "a1", FireAt: first, Mode: models.DeliveryExact, Payload: payload}))
	require.NoError(t, repo.Put(ctx, models.Reminder{Key: "a1", FireAt: second, Mode: models.DeliveryBestEffort, Payload: payload}))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].FireAt.Equal(second))
	assert.Equal(t, models.DeliveryBestEffort, all[0].Mode)
	assert.Equal(t, "Lunch", all[0].Payload.ActivityName)
	assert.Equal(t, "u1", all[0].Payload.UserID)

	due, err := repo.ListDue(ctx, models.DeliveryBestEffort, first)
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = repo.ListDue(ctx, models.DeliveryBestEffort, second)
	require.NoError(t, err)
	assert.Len(t, due, 1)

	deleted, err := repo.DeleteFired(ctx, "a1", first)
	require.NoError(t, err)
	assert.False(t, deleted, "rescheduled reminder survives")

	deleted, err = repo.Delete(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, "a1")
	require.NoError(t, err)
	assert.False(t, deleted)

	got, err := repo.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Nil(t, got)
}
