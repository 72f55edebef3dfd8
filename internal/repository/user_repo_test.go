package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := createTestUser(t, db, "ana@example.com")
	require.NotEmpty(t, user.ID)

	byEmail, err := repo.GetUserByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.False(t, byEmail.HasChildPIN())

	missing, err := repo.GetUserByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.LinkOAuthProvider(ctx, user.ID, "google", "sub-123"))
	assert.Error(t, repo.LinkOAuthProvider(ctx, user.ID, "google", "sub-456"), "second link is rejected")

	byOAuth, err := repo.GetUserByOAuth(ctx, "google", "sub-123")
	require.NoError(t, err)
	require.NotNil(t, byOAuth)
	assert.Equal(t, user.ID, byOAuth.ID)

	require.NoError(t, repo.SetChildPINHash(ctx, user.ID, "pinhash"))
	byID, err := repo.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, byID.HasChildPIN())

	assert.ErrorIs(t, repo.SetChildPINHash(ctx, "missing", "x"), ErrNotFound)

	createTestUser(t, db, "bea@example.com")
	all, err := repo.GetAllUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	createDup := createTestUserErr(repo, "ana@example.com")
	assert.Error(t, createDup, "email is unique")
}
